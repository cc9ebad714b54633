package auth

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/vietddude/tourdesk/internal/core/domain"
	"github.com/vietddude/tourdesk/internal/infra/resilience"
)

// SessionStore remembers issued sessions so they can be revoked.
type SessionStore interface {
	Save(ctx context.Context, session *domain.Session) error
	Active(ctx context.Context, id string) (bool, error)
	Revoke(ctx context.Context, id string) error
}

// Client holds the session of the local process. It implements backend.Auth
// and resilience.SessionInvalidator.
type Client struct {
	tokens *Tokens
	store  SessionStore
	log    *slog.Logger

	mu    sync.Mutex
	token string
	sink  func(token string) error
}

// NewClient creates a client for the given token; an empty token means signed out.
func NewClient(tokens *Tokens, store SessionStore, token string, log *slog.Logger) *Client {
	if log == nil {
		log = slog.Default()
	}
	return &Client{
		tokens: tokens,
		store:  store,
		token:  token,
		log:    log.With("component", "auth"),
	}
}

// OnTokenChange registers fn to persist the token whenever it changes.
func (c *Client) OnTokenChange(fn func(token string) error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sink = fn
}

// SignIn issues a new session for userID and makes it current.
func (c *Client) SignIn(ctx context.Context, userID string) (*domain.Session, error) {
	session, err := c.tokens.Issue(userID)
	if err != nil {
		return nil, err
	}
	if err := c.store.Save(ctx, session); err != nil {
		return nil, err
	}
	if err := c.setToken(session.Token); err != nil {
		return nil, err
	}
	c.log.Info("Signed in", "user_id", userID, "expires_at", session.ExpiresAt)
	return session, nil
}

// Session returns the current session, nil if signed out. An expired or
// revoked session fails with resilience.ErrSessionExpired.
func (c *Client) Session(ctx context.Context) (*domain.Session, error) {
	c.mu.Lock()
	token := c.token
	c.mu.Unlock()

	if token == "" {
		return nil, nil
	}
	session, err := c.tokens.Parse(token)
	if err != nil {
		return nil, err
	}

	active, err := c.store.Active(ctx, session.ID)
	if err != nil {
		return nil, fmt.Errorf("check session: %w", err)
	}
	if !active {
		return nil, fmt.Errorf("session revoked: %w", resilience.ErrSessionExpired)
	}
	return session, nil
}

// SignOut revokes the current session and forgets the token. Revocation is
// best-effort; the local token is always dropped.
func (c *Client) SignOut(ctx context.Context) error {
	c.mu.Lock()
	token := c.token
	c.mu.Unlock()

	if token == "" {
		return nil
	}
	if session, err := c.tokens.Parse(token); err == nil {
		if err := c.store.Revoke(ctx, session.ID); err != nil {
			c.log.Warn("Failed to revoke session", "session_id", session.ID, "error", err)
		}
	}

	if err := c.setToken(""); err != nil {
		return err
	}
	c.log.Info("Signed out")
	return nil
}

// Token returns the current raw token.
func (c *Client) Token() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.token
}

func (c *Client) setToken(token string) error {
	c.mu.Lock()
	c.token = token
	sink := c.sink
	c.mu.Unlock()

	if sink != nil {
		if err := sink(token); err != nil {
			return fmt.Errorf("failed to persist token: %w", err)
		}
	}
	return nil
}
