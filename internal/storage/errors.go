package storage

import (
	"errors"
	"fmt"
)

var (
	// ErrStoreUnavailable is returned by Open when the backing file cannot be
	// created, opened or initialised. Nothing else in the store is usable.
	ErrStoreUnavailable = errors.New("store unavailable")

	// ErrSessionNotFound is returned when a session does not exist.
	ErrSessionNotFound = errors.New("session not found")

	// ErrReadOnly is returned by write operations on a store opened with OpenReadOnly.
	ErrReadOnly = errors.New("store is read-only")
)

// WriteError reports a failed insert or update. The affected record is lost;
// callers are expected to log it and carry on with the next one.
type WriteError struct {
	Op  string
	Err error
}

func newWriteError(op string, err error) *WriteError {
	return &WriteError{Op: op, Err: err}
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("storage: %s: %v", e.Op, e.Err)
}

func (e *WriteError) Unwrap() error {
	return e.Err
}
