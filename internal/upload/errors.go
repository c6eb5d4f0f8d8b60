package upload

import (
	"errors"
	"fmt"
)

var (
	// ErrCycleInProgress is returned when a sync is requested while another one is running.
	// The request is dropped, not queued.
	ErrCycleInProgress = errors.New("upload cycle already in progress")

	// ErrDisabled is returned when uploads are turned off or not configured.
	ErrDisabled = errors.New("upload disabled")
)

// TransportError reports a failed POST of one session: a connection failure,
// a timeout or a non-2xx response. The session stays pending.
type TransportError struct {
	SessionID  int64
	StatusCode int // 0 when no response was received
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("upload: session %d: status %d: %v", e.SessionID, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("upload: session %d: %v", e.SessionID, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}
