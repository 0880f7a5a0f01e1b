package session

import "errors"

// Domain errors for the session package. Check with errors.Is().
var (
	// ErrNotFound is returned when a session key does not exist.
	ErrNotFound = errors.New("session: not found")

	// ErrEmptyKey is returned when a session key normalises to the empty string.
	ErrEmptyKey = errors.New("session: empty key")
)
