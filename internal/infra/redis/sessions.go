package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/vietddude/tourdesk/internal/core/domain"
	"github.com/vietddude/tourdesk/internal/infra/resilience"
)

// SessionStore keeps issued sessions so they can be revoked before their
// token expires.
type SessionStore struct {
	client *Client
	rdb    *redis.Client
}

// NewSessionStore creates a new Redis-backed session store.
func NewSessionStore(client *Client) *SessionStore {
	return &SessionStore{client: client, rdb: client.rdb}
}

func (s *SessionStore) sessionKey(id string) string {
	return s.client.key("session:%s", id)
}

func (s *SessionStore) userSessionsKey(userID string) string {
	return s.client.key("user_sessions:%s", userID)
}

type storedSession struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Save stores the session until it expires.
func (s *SessionStore) Save(ctx context.Context, session *domain.Session) error {
	ttl := time.Until(session.ExpiresAt)
	if ttl <= 0 {
		return fmt.Errorf("save session %s: %w", session.ID, resilience.ErrSessionExpired)
	}

	data, err := json.Marshal(storedSession{
		ID:        session.ID,
		UserID:    session.UserID,
		ExpiresAt: session.ExpiresAt,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	pipe := s.rdb.TxPipeline()
	pipe.Set(ctx, s.sessionKey(session.ID), data, ttl)
	pipe.SAdd(ctx, s.userSessionsKey(session.UserID), session.ID)
	pipe.Expire(ctx, s.userSessionsKey(session.UserID), ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save session: %w", translate(err))
	}
	return nil
}

// Active reports whether the session exists and has not been revoked.
func (s *SessionStore) Active(ctx context.Context, id string) (bool, error) {
	n, err := s.rdb.Exists(ctx, s.sessionKey(id)).Result()
	if err != nil {
		return false, fmt.Errorf("exists failed: %w", translate(err))
	}
	return n == 1, nil
}

// Revoke deletes one session.
func (s *SessionStore) Revoke(ctx context.Context, id string) error {
	data, err := s.rdb.Get(ctx, s.sessionKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("get failed: %w", translate(err))
	}

	var stored storedSession
	if err := json.Unmarshal(data, &stored); err != nil {
		return fmt.Errorf("failed to unmarshal session: %w", err)
	}

	pipe := s.rdb.TxPipeline()
	pipe.Del(ctx, s.sessionKey(id))
	pipe.SRem(ctx, s.userSessionsKey(stored.UserID), id)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to revoke session: %w", translate(err))
	}
	return nil
}

// RevokeUser deletes every session of a user.
func (s *SessionStore) RevokeUser(ctx context.Context, userID string) (int, error) {
	ids, err := s.rdb.SMembers(ctx, s.userSessionsKey(userID)).Result()
	if err != nil {
		return 0, fmt.Errorf("smembers failed: %w", translate(err))
	}
	if len(ids) == 0 {
		return 0, nil
	}

	keys := make([]string, 0, len(ids)+1)
	for _, id := range ids {
		keys = append(keys, s.sessionKey(id))
	}
	keys = append(keys, s.userSessionsKey(userID))
	if err := s.rdb.Del(ctx, keys...).Err(); err != nil {
		return 0, fmt.Errorf("del failed: %w", translate(err))
	}
	return len(ids), nil
}

// translate marks connection-level Redis failures as network errors.
func translate(err error) error {
	if errors.Is(err, redis.ErrClosed) {
		return fmt.Errorf("%w: %w", resilience.ErrNetwork, err)
	}
	return err
}
