package postgres

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/vietddude/tourdesk/internal/infra/backend"
	"github.com/vietddude/tourdesk/internal/infra/resilience"
)

// statusForSQLState maps a SQLSTATE onto an HTTP-like status.
func statusForSQLState(code string) int {
	switch code {
	case "23505", "23503", "23P01": // unique, foreign key, exclusion
		return 409
	case "23502", "23514": // not null, check
		return 422
	case "42501": // insufficient privilege
		return 403
	case "40001", "40P01": // serialization failure, deadlock
		return 503
	case "57014": // query canceled (statement_timeout)
		return 504
	}

	if len(code) < 2 {
		return 500
	}
	switch code[:2] {
	case "08", "53", "57": // connection, insufficient resources, operator intervention
		return 503
	case "22": // data exception
		return 422
	case "28": // invalid authorization
		return 401
	case "42": // syntax error or access rule violation
		return 400
	}
	return 500
}

// translate converts driver errors into classifiable errors.
func translate(op, collection string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return resilience.NewStatusError(404, fmt.Sprintf("%s %s", op, collection), backend.ErrNotFound)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return resilience.NewStatusError(
			statusForSQLState(pgErr.Code),
			fmt.Sprintf("%s %s: %s", op, collection, pgErr.Message),
			err,
		)
	}

	var connErr *pgconn.ConnectError
	if errors.As(err, &connErr) || pgconn.SafeToRetry(err) {
		return fmt.Errorf("%s %s: %w: %w", op, collection, resilience.ErrNetwork, err)
	}
	if pgconn.Timeout(err) {
		return resilience.NewStatusError(504, fmt.Sprintf("%s %s", op, collection), err)
	}

	return fmt.Errorf("%s %s: %w", op, collection, err)
}
