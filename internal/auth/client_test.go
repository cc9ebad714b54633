package auth

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/vietddude/tourdesk/internal/core/domain"
	"github.com/vietddude/tourdesk/internal/infra/backend"
	"github.com/vietddude/tourdesk/internal/infra/backend/memory"
	"github.com/vietddude/tourdesk/internal/infra/resilience"
)

func newTestClient(t *testing.T) (*Client, *memory.Sessions) {
	t.Helper()
	store := memory.NewSessions()
	return NewClient(newTestTokens(t), store, "", slog.New(slog.DiscardHandler)), store
}

func TestClient_SignInAndOut(t *testing.T) {
	ctx := context.Background()
	client, store := newTestClient(t)

	var persisted []string
	client.OnTokenChange(func(token string) error {
		persisted = append(persisted, token)
		return nil
	})

	if s, err := client.Session(ctx); err != nil || s != nil {
		t.Fatalf("expected no session before sign-in, got %v, %v", s, err)
	}

	issued, err := client.SignIn(ctx, "user-1")
	if err != nil {
		t.Fatalf("SignIn failed: %v", err)
	}
	current, err := client.Session(ctx)
	if err != nil {
		t.Fatalf("Session failed: %v", err)
	}
	if current.ID != issued.ID || current.UserID != "user-1" {
		t.Errorf("unexpected session %+v", current)
	}

	if err := client.SignOut(ctx); err != nil {
		t.Fatalf("SignOut failed: %v", err)
	}
	if client.Token() != "" {
		t.Errorf("expected token to be cleared")
	}
	if active, _ := store.Active(ctx, issued.ID); active {
		t.Errorf("expected session to be revoked")
	}
	if len(persisted) != 2 || persisted[0] != issued.Token || persisted[1] != "" {
		t.Errorf("unexpected persisted tokens %v", persisted)
	}
}

func TestClient_RevokedSession(t *testing.T) {
	ctx := context.Background()
	client, store := newTestClient(t)

	issued, err := client.SignIn(ctx, "user-1")
	if err != nil {
		t.Fatalf("SignIn failed: %v", err)
	}
	if err := store.Revoke(ctx, issued.ID); err != nil {
		t.Fatalf("Revoke failed: %v", err)
	}

	_, err = client.Session(ctx)
	if !errors.Is(err, resilience.ErrSessionExpired) {
		t.Errorf("expected ErrSessionExpired, got %v", err)
	}
}

func TestClient_InvalidatedByExecutor(t *testing.T) {
	ctx := context.Background()
	client, _ := newTestClient(t)
	if _, err := client.SignIn(ctx, "user-1"); err != nil {
		t.Fatalf("SignIn failed: %v", err)
	}

	exec := resilience.NewExecutor(
		resilience.WithLogger(slog.New(slog.DiscardHandler)),
		resilience.WithSessionInvalidator(client),
		resilience.WithSleep(func(context.Context, time.Duration) error { return nil }),
	)
	err := resilience.Do(ctx, exec, "trips.list", func(context.Context) error {
		return resilience.NewStatusError(401, "JWT expired", nil)
	})
	if err == nil {
		t.Fatal("expected failure")
	}
	if client.Token() != "" {
		t.Errorf("expected local session to be dropped after an auth failure")
	}
}

func TestRoleResolver(t *testing.T) {
	ctx := context.Background()
	exec := resilience.NewExecutor(
		resilience.WithLogger(slog.New(slog.DiscardHandler)),
		resilience.WithSleep(func(context.Context, time.Duration) error { return nil }),
	)
	session := &domain.Session{ID: "s1", UserID: "u1", ExpiresAt: time.Now().Add(time.Hour)}

	tests := []struct {
		name    string
		session *domain.Session
		profile backend.Record
		want    domain.Role
		wantErr error
	}{
		{"manager", session, backend.Record{"user_id": "u1", "role": "manager"}, domain.RoleManager, nil},
		{"signed out", nil, nil, "", resilience.ErrUnauthenticated},
		{"no profile", session, nil, "", resilience.ErrPermissionDenied},
		{"unknown role", session, backend.Record{"user_id": "u1", "role": "owner"}, "", resilience.ErrPermissionDenied},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			storage := memory.NewStorage()
			records := memory.NewCollections(storage)
			if tt.profile != nil {
				if _, err := records.Insert(ctx, domain.CollectionProfiles, tt.profile); err != nil {
					t.Fatalf("seed profile: %v", err)
				}
			}
			authn := memory.NewAuth(tt.session)

			role, err := NewRoleResolver(authn, records, exec.With(resilience.WithSessionInvalidator(authn))).ResolveRole(ctx)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
			} else if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if role != tt.want {
				t.Errorf("expected role %q, got %q", tt.want, role)
			}
			if got := storage.CallCount(memory.Target("select", domain.CollectionProfiles)); tt.session != nil && got != 1 {
				t.Errorf("expected a single profile lookup, got %d", got)
			}
		})
	}
}

func TestRoleResolver_RetriesTransientLookup(t *testing.T) {
	ctx := context.Background()
	storage := memory.NewStorage()
	records := memory.NewCollections(storage)
	if _, err := records.Insert(ctx, domain.CollectionProfiles, backend.Record{"user_id": "u1", "role": "admin"}); err != nil {
		t.Fatalf("seed profile: %v", err)
	}
	storage.InjectFault(memory.Target("select", domain.CollectionProfiles), resilience.ErrNetwork)

	exec := resilience.NewExecutor(
		resilience.WithLogger(slog.New(slog.DiscardHandler)),
		resilience.WithSleep(func(context.Context, time.Duration) error { return nil }),
	)
	authn := memory.NewAuth(&domain.Session{ID: "s1", UserID: "u1"})

	role, err := NewRoleResolver(authn, records, exec).ResolveRole(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if role != domain.RoleAdmin {
		t.Errorf("expected admin, got %q", role)
	}
}
