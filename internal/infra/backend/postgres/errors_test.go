package postgres

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/vietddude/tourdesk/internal/core/domain"
	"github.com/vietddude/tourdesk/internal/infra/backend"
	"github.com/vietddude/tourdesk/internal/infra/resilience"
)

func TestStatusForSQLState(t *testing.T) {
	tests := []struct {
		code string
		want int
	}{
		{"23505", 409},
		{"23503", 409},
		{"23502", 422},
		{"42501", 403},
		{"40001", 503},
		{"57014", 504},
		{"08006", 503},
		{"53300", 503},
		{"22P02", 422},
		{"28P01", 401},
		{"42P01", 400},
		{"XX000", 500},
		{"", 500},
	}

	for _, tt := range tests {
		if got := statusForSQLState(tt.code); got != tt.want {
			t.Errorf("statusForSQLState(%q) = %d, want %d", tt.code, got, tt.want)
		}
	}
}

func TestTranslate(t *testing.T) {
	if translate("select", "trips", nil) != nil {
		t.Error("nil error should stay nil")
	}

	notFound := translate("select", "trips", pgx.ErrNoRows)
	if !errors.Is(notFound, backend.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", notFound)
	}

	dup := translate("insert", "trips", &pgconn.PgError{Code: "23505", Message: "duplicate key"})
	if code, ok := resilience.StatusCode(dup); !ok || code != 409 {
		t.Errorf("expected status 409, got %d (%v)", code, ok)
	}
	if resilience.Classify(dup) != resilience.Classify(resilience.NewStatusError(409, "", nil)) {
		t.Errorf("unique violation should classify like a 409")
	}

	plain := translate("update", "trips", fmt.Errorf("boom"))
	if _, ok := resilience.StatusCode(plain); ok {
		t.Errorf("plain errors should carry no status")
	}
}

func TestWhereClause(t *testing.T) {
	where, args, err := whereClause(domain.CollectionTrips, backend.Filter{"title": "x", "id": "1"}, 3)
	if err != nil {
		t.Fatalf("whereClause failed: %v", err)
	}
	if where != ` WHERE "id" = $3 AND "title" = $4` {
		t.Errorf("unexpected clause %q", where)
	}
	if len(args) != 2 || args[0] != "1" || args[1] != "x" {
		t.Errorf("unexpected args %v", args)
	}

	if where, _, err := whereClause(domain.CollectionTrips, nil, 1); err != nil || where != "" {
		t.Errorf("empty filter = (%q, %v)", where, err)
	}

	_, _, err = whereClause(domain.CollectionTrips, backend.Filter{"password": "x"}, 1)
	var vErr *resilience.ValidationError
	if !errors.As(err, &vErr) {
		t.Errorf("expected validation error for unknown column, got %v", err)
	}
}

func TestTableName(t *testing.T) {
	if name, err := tableName(domain.CollectionOrphanedObjects); err != nil || name != `"orphaned_objects"` {
		t.Errorf("tableName = (%q, %v)", name, err)
	}
	if _, err := tableName("users; drop table trips"); !errors.Is(err, backend.ErrUnknownCollection) {
		t.Errorf("expected ErrUnknownCollection, got %v", err)
	}
}
