package cluster

import "errors"

// Safety precondition errors. Always raised before any mutation; the
// cluster is undisturbed when one of these is returned.
var (
	ErrAlreadyMember       = errors.New("cluster: node is already part of the cluster")
	ErrNotAMember          = errors.New("cluster: node is not part of the cluster")
	ErrMemberNotFound      = errors.New("cluster: no consensus member found for address")
	ErrLastReplica         = errors.New("cluster: the last replica cannot be removed")
	ErrCannotRemovePrimary = errors.New("cluster: the current primary cannot be removed")
	ErrCannotReinitPrimary = errors.New("cluster: the current primary cannot be reinitialized")
	ErrAlreadyPrimary      = errors.New("cluster: node is already the primary")
)

// Liveness and role errors.
var (
	// ErrNodeNotResponding means the target node failed its agent probe.
	ErrNodeNotResponding = errors.New("cluster: node agent is not responding")
	// ErrWrongRole means the operation is not valid for the configured
	// node role. This is a configuration error, not a transient one.
	ErrWrongRole = errors.New("cluster: operation not valid for this node role")
)
