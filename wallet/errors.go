package wallet

import (
	"errors"
	"fmt"
)

// ErrInvalidState is returned when a command is issued in a state that forbids it.
var ErrInvalidState = errors.New("invalid session state")

// ErrPermissionDenied is returned when a wallet refuses account access.
var ErrPermissionDenied = errors.New("wallet denied account access")

// InitializationError reports that the connector could not be constructed.
// Retrying the init command is the way to recover.
type InitializationError struct {
	Err error
}

func (e *InitializationError) Error() string {
	return "connector initialization failed: " + e.Err.Error()
}

func (e *InitializationError) Unwrap() error { return e.Err }

// TransientFetchError wraps a failed address or balance read during polling.
type TransientFetchError struct {
	Op  string
	Err error
}

func (e *TransientFetchError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransientFetchError) Unwrap() error { return e.Err }
