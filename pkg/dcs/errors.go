package dcs

import "errors"

var (
	// ErrStoreNotAvailable means the consensus store did not answer within
	// the auth-detection retry window. Retryable; on a brand new cluster it
	// simply means a majority of nodes is not installed yet.
	ErrStoreNotAvailable = errors.New("dcs: consensus store not yet available")

	// ErrUnsupportedUser rejects credentials for users the cluster does not
	// manage.
	ErrUnsupportedUser = errors.New("dcs: unsupported consensus store user")

	// ErrMalformedMemberList means the member listing output did not match
	// the expected line format.
	ErrMalformedMemberList = errors.New("dcs: malformed member list output")
)
