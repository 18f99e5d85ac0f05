package docstore

import (
	"errors"
	"fmt"
)

var (
	// ErrUnavailable is returned while the remote store has not signaled readiness.
	// It is an expected state, callers fall back to local-only mode.
	ErrUnavailable = errors.New("remote document store unavailable")
	// ErrClosed is returned after the client has been closed.
	ErrClosed = errors.New("remote document store closed")
)

// ConnectionError is a failed read or write against an available remote store.
type ConnectionError struct {
	Op         string
	Collection string
	ID         string
	Err        error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("%s %s/%s: %v", e.Op, e.Collection, e.ID, e.Err)
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}

// IsConnectionError reports whether err is or wraps a ConnectionError.
func IsConnectionError(err error) bool {
	var cErr *ConnectionError
	return errors.As(err, &cErr)
}
