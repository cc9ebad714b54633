package resilience

import (
	"context"
	"time"
)

const (
	// DefaultMaxAttempts bounds the attempts of an Operation that does not set MaxAttempts.
	DefaultMaxAttempts = 3

	// DefaultTimeout bounds a single attempt of an Operation that does not set Timeout.
	DefaultTimeout = 90 * time.Second
)

// Operation describes one remote call submitted to the Executor.
// It is built per call and consumed once.
type Operation[T any] struct {
	// Name identifies the operation in logs and metrics (e.g. "trips.update").
	Name string

	// Invoke performs the remote call. It may run more than once, and an
	// abandoned attempt may still complete server-side, so it should be idempotent.
	Invoke func(ctx context.Context) (T, error)

	// MaxAttempts bounds the number of Invoke calls (default 3).
	MaxAttempts int

	// Timeout bounds a single attempt, not the whole sequence (default 90s).
	Timeout time.Duration
}

// NewOperation creates an Operation with the executor defaults.
func NewOperation[T any](name string, invoke func(ctx context.Context) (T, error)) Operation[T] {
	return Operation[T]{
		Name:   name,
		Invoke: invoke,
	}
}

// Outcome is the result of a single attempt.
type Outcome string

const (
	OutcomeSuccess          Outcome = "success"
	OutcomeRetryableFailure Outcome = "retryable_failure"
	OutcomeFatalFailure     Outcome = "fatal_failure"
)

// Attempt records one execution of Operation.Invoke.
type Attempt struct {
	Operation string
	Index     int
	Start     time.Time
	End       time.Time
	Outcome   Outcome
	Err       error
}

// Duration returns how long the attempt took.
func (a Attempt) Duration() time.Duration {
	return a.End.Sub(a.Start)
}
