// Package resilience executes remote calls with a per-attempt timeout,
// failure classification and capped exponential backoff.
//
// Every remote call made by tourdesk goes through Execute (or Do), which is
// the only place timeout, retry and backoff policy live:
//
//	exec := resilience.NewExecutor(resilience.WithSessionInvalidator(authClient))
//	trip, err := resilience.Execute(ctx, exec, resilience.Operation[*domain.Trip]{
//	    Name:   "trips.get",
//	    Invoke: func(ctx context.Context) (*domain.Trip, error) { return repo.Get(ctx, id) },
//	})
package resilience

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	otelcodes "go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/vietddude/tourdesk/internal/metrics"
)

var tracer = otel.Tracer("github.com/vietddude/tourdesk/internal/infra/resilience")

// SessionInvalidator drops the local session after an unrecoverable auth failure.
type SessionInvalidator interface {
	SignOut(ctx context.Context) error
}

// Executor runs Operations. It holds no per-call state and is safe for
// concurrent use.
type Executor struct {
	backoff         Backoff
	sessions        SessionInvalidator
	log             *slog.Logger
	observe         func(Attempt)
	sleep           func(ctx context.Context, d time.Duration) error
	now             func() time.Time
	defaultAttempts int
	defaultTimeout  time.Duration
}

// Option configures an Executor.
type Option func(*Executor)

// WithBackoff sets the backoff profile.
func WithBackoff(b Backoff) Option {
	return func(e *Executor) { e.backoff = b }
}

// WithSessionInvalidator sets the session that is signed out on auth failures.
func WithSessionInvalidator(s SessionInvalidator) Option {
	return func(e *Executor) { e.sessions = s }
}

// WithLogger sets the logger used for per-attempt diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(e *Executor) {
		if l != nil {
			e.log = l
		}
	}
}

// WithObserver registers a hook called after every attempt.
func WithObserver(fn func(Attempt)) Option {
	return func(e *Executor) { e.observe = fn }
}

// WithSleep replaces the backoff wait. Tests use it to avoid real delays.
func WithSleep(fn func(ctx context.Context, d time.Duration) error) Option {
	return func(e *Executor) { e.sleep = fn }
}

// WithClock replaces time.Now for attempt timestamps.
func WithClock(now func() time.Time) Option {
	return func(e *Executor) { e.now = now }
}

// WithDefaults overrides the attempt budget and timeout used when an
// Operation leaves them unset.
func WithDefaults(maxAttempts int, timeout time.Duration) Option {
	return func(e *Executor) {
		if maxAttempts > 0 {
			e.defaultAttempts = maxAttempts
		}
		if timeout > 0 {
			e.defaultTimeout = timeout
		}
	}
}

// NewExecutor creates an Executor with the interactive backoff profile.
func NewExecutor(opts ...Option) *Executor {
	e := &Executor{
		backoff:         InteractiveBackoff,
		log:             slog.Default(),
		sleep:           sleepContext,
		now:             time.Now,
		defaultAttempts: DefaultMaxAttempts,
		defaultTimeout:  DefaultTimeout,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.log = e.log.With("component", "resilience")
	return e
}

// With returns a copy of e with opts applied on top.
func (e *Executor) With(opts ...Option) *Executor {
	c := *e
	for _, opt := range opts {
		opt(&c)
	}
	return &c
}

// Backoff returns the backoff profile in use.
func (e *Executor) Backoff() Backoff {
	return e.backoff
}

// Execute runs op until it succeeds, fails fatally or exhausts its attempts.
// On failure it returns the last observed error; a final timeout is returned
// as *TimeoutError. Cancelling ctx stops the loop with ctx.Err().
func Execute[T any](ctx context.Context, e *Executor, op Operation[T]) (T, error) {
	var zero T
	if op.Invoke == nil {
		return zero, &ValidationError{Field: "invoke", Reason: "operation " + op.Name + " has nothing to invoke"}
	}

	maxAttempts := op.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = e.defaultAttempts
	}
	timeout := op.Timeout
	if timeout <= 0 {
		timeout = e.defaultTimeout
	}

	log := e.log.With("operation", op.Name, "run_id", uuid.NewString())
	ctx, span := tracer.Start(ctx, op.Name, trace.WithAttributes(
		attribute.Int("resilience.max_attempts", maxAttempts),
		attribute.String("resilience.timeout", timeout.String()),
	))
	defer span.End()

	started := e.now()
	var lastErr error
	attempts := 0

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		attempts = attempt
		start := e.now()
		result, err := runAttempt(ctx, op, timeout)
		end := e.now()

		if err == nil {
			e.record(log, span, Attempt{op.Name, attempt, start, end, OutcomeSuccess, nil})
			metrics.OperationDuration.WithLabelValues(op.Name, "success").Observe(end.Sub(started).Seconds())
			return result, nil
		}

		if ctxErr := ctx.Err(); ctxErr != nil {
			e.record(log, span, Attempt{op.Name, attempt, start, end, OutcomeFatalFailure, ctxErr})
			metrics.OperationDuration.WithLabelValues(op.Name, "cancelled").Observe(end.Sub(started).Seconds())
			span.SetStatus(otelcodes.Error, "cancelled")
			return zero, ctxErr
		}

		lastErr = err
		verdict := Classify(err)
		outcome := OutcomeRetryableFailure
		if verdict == Fatal {
			outcome = OutcomeFatalFailure
		}
		e.record(log, span, Attempt{op.Name, attempt, start, end, outcome, err})

		if verdict == Fatal || attempt == maxAttempts {
			break
		}

		delay := e.backoff.DelayFor(attempt)
		log.Debug("Backing off before retry", "attempt", attempt, "delay", delay)
		if err := e.sleep(ctx, delay); err != nil {
			span.SetStatus(otelcodes.Error, "cancelled")
			return zero, err
		}
	}

	metrics.OperationDuration.WithLabelValues(op.Name, "failure").Observe(e.now().Sub(started).Seconds())
	span.RecordError(lastErr)
	span.SetStatus(otelcodes.Error, Classify(lastErr).String())

	if IsAuthFailure(lastErr) && e.sessions != nil {
		log.Warn("Auth failure, invalidating local session", "error", lastErr)
		metrics.SessionInvalidations.Inc()
		signOutCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
		if err := e.sessions.SignOut(signOutCtx); err != nil {
			log.Error("Failed to invalidate session", "error", err)
		}
		cancel()
	}

	if IsTimeout(lastErr) {
		return zero, &TimeoutError{Operation: op.Name, Timeout: timeout, Attempts: attempts}
	}
	return zero, lastErr
}

// Do runs fn as an Operation with the executor defaults and no result.
func Do(ctx context.Context, e *Executor, name string, fn func(ctx context.Context) error) error {
	_, err := Execute(ctx, e, Operation[struct{}]{
		Name: name,
		Invoke: func(ctx context.Context) (struct{}, error) {
			return struct{}{}, fn(ctx)
		},
	})
	return err
}

// runAttempt races one Invoke against the attempt timer. The result slot is
// buffered so a late Invoke can always deliver and exit; whatever it delivers
// after the timer fired is dropped.
func runAttempt[T any](ctx context.Context, op Operation[T], timeout time.Duration) (T, error) {
	var zero T

	attemptCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	type result struct {
		value T
		err   error
	}
	slot := make(chan result, 1)

	go func() {
		v, err := op.Invoke(attemptCtx)
		slot <- result{value: v, err: err}
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case r := <-slot:
		return r.value, r.err
	case <-timer.C:
		return zero, &attemptTimeout{operation: op.Name, timeout: timeout}
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

func (e *Executor) record(log *slog.Logger, span trace.Span, a Attempt) {
	metrics.AttemptsTotal.WithLabelValues(a.Operation, string(a.Outcome)).Inc()
	span.AddEvent("attempt", trace.WithAttributes(
		attribute.Int("attempt", a.Index),
		attribute.String("outcome", string(a.Outcome)),
		attribute.Int64("duration_ms", a.Duration().Milliseconds()),
	))

	if a.Outcome == OutcomeSuccess {
		log.Debug("Attempt succeeded", "attempt", a.Index, "duration", a.Duration())
	} else {
		log.Warn("Attempt failed",
			"attempt", a.Index,
			"duration", a.Duration(),
			"outcome", a.Outcome,
			"error", a.Err,
		)
	}

	if e.observe != nil {
		e.observe(a)
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}
