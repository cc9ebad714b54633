package domain

import "time"

type Role string

const (
	RoleAdmin   Role = "admin"
	RoleManager Role = "manager"
	RoleAgent   Role = "agent"
	RoleViewer  Role = "viewer"
)

// CanDelete reports whether the role may delete aggregates.
func (r Role) CanDelete() bool {
	return r == RoleAdmin || r == RoleManager
}

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleManager, RoleAgent, RoleViewer:
		return true
	}
	return false
}

// Session is the authenticated principal of the local process.
type Session struct {
	ID        string
	UserID    string
	Token     string
	ExpiresAt time.Time
}

// Expired reports whether the session is past its expiry at now.
func (s *Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt)
}

// Profile holds the role assigned to a user.
type Profile struct {
	UserID string
	Email  string
	Role   Role
}
