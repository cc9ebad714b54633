package cascade

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/vietddude/tourdesk/internal/core/domain"
	"github.com/vietddude/tourdesk/internal/infra/backend"
	"github.com/vietddude/tourdesk/internal/infra/resilience"
	"github.com/vietddude/tourdesk/internal/metrics"
)

// RoleResolver returns the role of the authenticated principal.
type RoleResolver interface {
	ResolveRole(ctx context.Context) (domain.Role, error)
}

// Orchestrator runs deletion plans against the record collections.
type Orchestrator struct {
	records backend.Collections
	roles   RoleResolver
	exec    *resilience.Executor
	log     *slog.Logger
}

// NewOrchestrator creates an orchestrator that checks permissions with roles
// and deletes through records, retrying each step with the backend backoff.
func NewOrchestrator(
	records backend.Collections,
	roles RoleResolver,
	exec *resilience.Executor,
	log *slog.Logger,
) *Orchestrator {
	if log == nil {
		log = slog.Default()
	}
	return &Orchestrator{
		records: records,
		roles:   roles,
		exec:    exec.With(resilience.WithBackoff(resilience.BackendBackoff)),
		log:     log.With("component", "cascade"),
	}
}

// DeleteAggregate checks that the caller may delete, then removes the trip
// and everything that references it.
func (o *Orchestrator) DeleteAggregate(ctx context.Context, tripID string) error {
	if strings.TrimSpace(tripID) == "" {
		return &resilience.ValidationError{Field: "trip_id", Reason: "must not be empty"}
	}

	if err := o.Authorize(ctx, tripID); err != nil {
		return err
	}
	return o.Run(ctx, TripPlan(tripID))
}

// Authorize fails with a *PermissionError unless the current principal may
// delete trips. It does not look at the trip itself.
func (o *Orchestrator) Authorize(ctx context.Context, tripID string) error {
	role, err := o.roles.ResolveRole(ctx)
	if err != nil {
		return fmt.Errorf("resolve role: %w", err)
	}
	if !role.CanDelete() {
		o.log.Warn("Delete refused", "trip_id", tripID, "role", role)
		return &PermissionError{Role: role, Action: "delete trips"}
	}
	return nil
}

// Run executes plan strictly in order and stops at the first step that still
// fails after its retries. Each step is its own resilient operation.
func (o *Orchestrator) Run(ctx context.Context, plan Plan) error {
	log := o.log.With("aggregate", plan.Aggregate, "aggregate_id", plan.AggregateID)
	completed := make([]string, 0, len(plan.Steps))

	for _, step := range plan.Steps {
		var deleted int64
		err := resilience.Do(ctx, o.exec, "cascade.delete_"+step.Collection, func(ctx context.Context) error {
			n, err := o.records.Delete(ctx, step.Collection, backend.Eq(step.Column, plan.AggregateID))
			if err != nil {
				return err
			}
			deleted = n
			return nil
		})
		if err != nil {
			metrics.CascadeStepsTotal.WithLabelValues(step.Name, "failure").Inc()
			log.Error("Cascade step failed", "step", step.Name, "completed", completed, "error", err)
			return &StepError{
				Step:        step.Name,
				Aggregate:   plan.Aggregate,
				AggregateID: plan.AggregateID,
				Completed:   completed,
				Err:         err,
			}
		}

		metrics.CascadeStepsTotal.WithLabelValues(step.Name, "success").Inc()
		log.Debug("Cascade step done", "step", step.Name, "deleted", deleted)
		completed = append(completed, step.Name)
	}

	log.Info("Aggregate deleted", "steps", len(completed))
	return nil
}
