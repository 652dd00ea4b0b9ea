package session

import "errors"

var (
	// ErrSessionNotFound is returned when no session has the requested ID.
	ErrSessionNotFound = errors.New("session not found")

	// ErrSessionClosed is returned by operations on a reaped or closed session.
	ErrSessionClosed = errors.New("session closed")
)
