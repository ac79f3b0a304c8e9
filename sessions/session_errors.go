package sessions

import "errors"

var (
	// ErrNotFound is returned by a Repo when a vendor has no session record.
	ErrNotFound = errors.New("session not found")

	// ErrSessionExists is returned when creating a session for a vendor
	// that already has one.
	ErrSessionExists = errors.New("vendor already has an active session")

	// ErrNoSession is returned for operations that require an existing
	// session record.
	ErrNoSession = errors.New("vendor has no session")

	// ErrIncompleteResponse is returned when the create-session response is
	// missing required fields; the session record is persisted as failed.
	ErrIncompleteResponse = errors.New("create session response missing required fields")
)
