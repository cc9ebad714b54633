// Package auth manages the local session: JWT access tokens, revocation and
// role resolution of the signed-in principal.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/vietddude/tourdesk/internal/core/domain"
	"github.com/vietddude/tourdesk/internal/infra/resilience"
)

const DefaultSessionTTL = 12 * time.Hour

// Config holds token settings.
type Config struct {
	Secret     string        `yaml:"secret"`
	Issuer     string        `yaml:"issuer"`
	SessionTTL time.Duration `yaml:"session_ttl"`
	TokenFile  string        `yaml:"token_file"`
}

// Claims is the JWT payload of a session token.
type Claims struct {
	jwt.RegisteredClaims
}

// Tokens issues and verifies HS256 session tokens.
type Tokens struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

// NewTokens creates a token issuer. The secret must not be empty.
func NewTokens(cfg Config) (*Tokens, error) {
	if cfg.Secret == "" {
		return nil, errors.New("auth secret is required")
	}
	ttl := cfg.SessionTTL
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	issuer := cfg.Issuer
	if issuer == "" {
		issuer = "tourdesk"
	}
	return &Tokens{secret: []byte(cfg.Secret), issuer: issuer, ttl: ttl, now: time.Now}, nil
}

// Issue creates a new session for userID.
func (t *Tokens) Issue(userID string) (*domain.Session, error) {
	if userID == "" {
		return nil, &resilience.ValidationError{Field: "user_id", Reason: "required"}
	}
	now := t.now()
	session := &domain.Session{
		ID:        uuid.NewString(),
		UserID:    userID,
		ExpiresAt: now.Add(t.ttl).Truncate(time.Second),
	}

	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        session.ID,
			Subject:   userID,
			Issuer:    t.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(session.ExpiresAt),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return nil, fmt.Errorf("failed to sign token: %w", err)
	}
	session.Token = signed
	return session, nil
}

// Parse verifies token and returns its session. Expired tokens fail with
// ErrSessionExpired, anything else invalid with ErrUnauthenticated.
func (t *Tokens) Parse(token string) (*domain.Session, error) {
	var claims Claims
	_, err := jwt.ParseWithClaims(token, &claims, func(tok *jwt.Token) (any, error) {
		return t.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(t.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(t.now),
	)
	if errors.Is(err, jwt.ErrTokenExpired) {
		return nil, fmt.Errorf("jwt expired: %w", resilience.ErrSessionExpired)
	}
	if err != nil {
		return nil, fmt.Errorf("invalid token: %w: %w", resilience.ErrUnauthenticated, err)
	}
	if claims.Subject == "" || claims.ID == "" {
		return nil, fmt.Errorf("invalid token: %w", resilience.ErrUnauthenticated)
	}

	return &domain.Session{
		ID:        claims.ID,
		UserID:    claims.Subject,
		Token:     token,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}
