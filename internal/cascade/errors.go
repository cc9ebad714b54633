package cascade

import (
	"fmt"

	"github.com/vietddude/tourdesk/internal/core/domain"
	"github.com/vietddude/tourdesk/internal/infra/resilience"
)

// StepError reports the step that stopped a plan. Steps before it have
// already been applied and are not restored.
type StepError struct {
	Step        string
	Aggregate   string
	AggregateID string
	// Completed lists the steps that ran before the failure.
	Completed []string
	Err       error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("failed deleting %s for %s %s: %v", e.Step, e.Aggregate, e.AggregateID, e.Err)
}

func (e *StepError) Unwrap() error { return e.Err }

// PermissionError is returned before any step runs when the principal's role
// may not delete.
type PermissionError struct {
	Role   domain.Role
	Action string
}

func (e *PermissionError) Error() string {
	role := string(e.Role)
	if role == "" {
		role = "unknown"
	}
	return fmt.Sprintf("permission denied: role %s cannot %s", role, e.Action)
}

func (e *PermissionError) Unwrap() error { return resilience.ErrPermissionDenied }
