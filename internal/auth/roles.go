package auth

import (
	"context"
	"fmt"

	"github.com/vietddude/tourdesk/internal/core/domain"
	"github.com/vietddude/tourdesk/internal/infra/backend"
	"github.com/vietddude/tourdesk/internal/infra/resilience"
)

// RoleResolver resolves the role of the signed-in principal from its profile.
type RoleResolver struct {
	auth    backend.Auth
	records backend.Collections
	exec    *resilience.Executor
}

// NewRoleResolver creates a resolver that reads the role of the signed-in
// user from the profiles collection.
func NewRoleResolver(auth backend.Auth, records backend.Collections, exec *resilience.Executor) *RoleResolver {
	return &RoleResolver{auth: auth, records: records, exec: exec}
}

// ResolveRole returns the role of the current principal. A missing session
// fails with resilience.ErrUnauthenticated; a missing or malformed profile
// with resilience.ErrPermissionDenied.
func (r *RoleResolver) ResolveRole(ctx context.Context) (domain.Role, error) {
	return resilience.Execute(ctx, r.exec, resilience.Operation[domain.Role]{
		Name: "auth.resolve_role",
		Invoke: func(ctx context.Context) (domain.Role, error) {
			session, err := r.auth.Session(ctx)
			if err != nil {
				return "", err
			}
			if session == nil {
				return "", resilience.ErrUnauthenticated
			}

			rows, err := r.records.Select(ctx, domain.CollectionProfiles, backend.Eq("user_id", session.UserID))
			if err != nil {
				return "", err
			}
			if len(rows) == 0 {
				return "", fmt.Errorf("no profile for user %s: %w", session.UserID, resilience.ErrPermissionDenied)
			}

			role := domain.Role(rows[0].String("role"))
			if !role.Valid() {
				return "", fmt.Errorf("unknown role %q: %w", role, resilience.ErrPermissionDenied)
			}
			return role, nil
		},
	})
}
