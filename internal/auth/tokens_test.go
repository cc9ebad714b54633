package auth

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/vietddude/tourdesk/internal/infra/resilience"
)

func newTestTokens(t *testing.T) *Tokens {
	t.Helper()
	tokens, err := NewTokens(Config{Secret: "test-secret", SessionTTL: time.Hour})
	if err != nil {
		t.Fatalf("NewTokens failed: %v", err)
	}
	return tokens
}

func TestNewTokens_RequiresSecret(t *testing.T) {
	if _, err := NewTokens(Config{}); err == nil {
		t.Error("expected error for empty secret")
	}
}

func TestTokens_IssueAndParse(t *testing.T) {
	tokens := newTestTokens(t)

	issued, err := tokens.Issue("user-1")
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}
	if issued.Token == "" || issued.ID == "" {
		t.Fatalf("expected token and id, got %+v", issued)
	}

	parsed, err := tokens.Parse(issued.Token)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if parsed.ID != issued.ID || parsed.UserID != "user-1" {
		t.Errorf("parsed %+v does not match issued %+v", parsed, issued)
	}
	if !parsed.ExpiresAt.Equal(issued.ExpiresAt) {
		t.Errorf("expiry mismatch: %v vs %v", parsed.ExpiresAt, issued.ExpiresAt)
	}
}

func TestTokens_Expired(t *testing.T) {
	tokens := newTestTokens(t)
	issued, err := tokens.Issue("user-1")
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	tokens.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	_, err = tokens.Parse(issued.Token)

	if !errors.Is(err, resilience.ErrSessionExpired) {
		t.Fatalf("expected ErrSessionExpired, got %v", err)
	}
	if !resilience.IsAuthFailure(err) {
		t.Errorf("expired tokens must count as auth failures")
	}
}

func TestTokens_Invalid(t *testing.T) {
	tokens := newTestTokens(t)
	other, err := NewTokens(Config{Secret: "other-secret"})
	if err != nil {
		t.Fatalf("NewTokens failed: %v", err)
	}
	foreign, err := other.Issue("user-1")
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	noneToken, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{
		Subject: "user-1", ID: "x", Issuer: "tourdesk",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("sign none token: %v", err)
	}

	otherIssuer, err := NewTokens(Config{Secret: "test-secret", Issuer: "someone-else"})
	if err != nil {
		t.Fatalf("NewTokens failed: %v", err)
	}
	wrongIssuer, err := otherIssuer.Issue("user-1")
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	tests := []struct {
		name  string
		token string
	}{
		{"garbage", "not-a-jwt"},
		{"wrong secret", foreign.Token},
		{"alg none", noneToken},
		{"wrong issuer", wrongIssuer.Token},
		{"truncated", foreign.Token[:strings.LastIndex(foreign.Token, ".")]},
	}

	for _, tt := range tests {
		_, err := tokens.Parse(tt.token)
		if !errors.Is(err, resilience.ErrUnauthenticated) {
			t.Errorf("%s: expected ErrUnauthenticated, got %v", tt.name, err)
		}
	}
}

func TestTokens_IssueRequiresUser(t *testing.T) {
	tokens := newTestTokens(t)
	_, err := tokens.Issue("")
	var vErr *resilience.ValidationError
	if !errors.As(err, &vErr) {
		t.Errorf("expected validation error, got %v", err)
	}
}
