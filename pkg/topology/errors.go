package topology

import "errors"

var (
	// ErrTopologyUnavailable means the data source backing resolution
	// (consensus store or proxy stats) is unreachable. Retryable, usually
	// from another node.
	ErrTopologyUnavailable = errors.New("topology: cluster topology unavailable")

	// ErrRoleUnsupported means the caller's node runs neither the database
	// nor the client role, so no resolution strategy applies.
	ErrRoleUnsupported = errors.New("topology: node role cannot resolve cluster topology")
)
