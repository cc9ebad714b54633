package resilience

import (
	"errors"
	"fmt"
	"time"
)

// operationTimeoutMarker is embedded in every internally generated timeout so
// that it stays distinguishable from transport-level timeouts.
const operationTimeoutMarker = "operation timeout"

var (
	// ErrOperationTimeout marks an attempt abandoned by the executor's timer.
	ErrOperationTimeout = errors.New(operationTimeoutMarker)

	// ErrNetwork marks a connectivity fault reported by a backend adapter.
	ErrNetwork = errors.New("network error")

	// ErrSessionExpired is returned when the local session can no longer be used.
	ErrSessionExpired = errors.New("session expired")

	// ErrUnauthenticated is returned when there is no session at all.
	ErrUnauthenticated = errors.New("not authenticated")

	// ErrPermissionDenied is returned when the principal lacks a required role.
	ErrPermissionDenied = errors.New("permission denied")
)

// StatusError is a failure carrying a numeric HTTP-like status.
// Backend adapters translate their driver errors into it.
type StatusError struct {
	Code    int
	Message string
	Err     error
}

func (e *StatusError) Error() string {
	if e.Message == "" && e.Err != nil {
		return fmt.Sprintf("status %d: %v", e.Code, e.Err)
	}
	return fmt.Sprintf("status %d: %s", e.Code, e.Message)
}

func (e *StatusError) Unwrap() error { return e.Err }

// StatusCode implements the status-bearing error contract used by StatusCode.
func (e *StatusError) StatusCode() int { return e.Code }

// NewStatusError builds a StatusError wrapping err.
func NewStatusError(code int, message string, err error) *StatusError {
	return &StatusError{Code: code, Message: message, Err: err}
}

// ValidationError reports structurally invalid input. It is always fatal.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validation failed: " + e.Reason
	}
	return fmt.Sprintf("validation failed: %s: %s", e.Field, e.Reason)
}

// TimeoutError is returned when the last attempt of an operation timed out.
// Error() names the operation for logs; UserMessage gives the end-user text.
type TimeoutError struct {
	Operation string
	Timeout   time.Duration
	Attempts  int
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf(
		"%q took longer than %s (%d attempts)",
		e.Operation, e.Timeout, e.Attempts,
	)
}

func (e *TimeoutError) Unwrap() error { return ErrOperationTimeout }

// attemptTimeout is the per-attempt failure produced by the timer.
type attemptTimeout struct {
	operation string
	timeout   time.Duration
}

func (e *attemptTimeout) Error() string {
	return fmt.Sprintf("%s: %s exceeded %s", operationTimeoutMarker, e.operation, e.timeout)
}

func (e *attemptTimeout) Unwrap() error { return ErrOperationTimeout }
