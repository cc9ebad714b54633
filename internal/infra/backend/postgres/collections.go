package postgres

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vietddude/tourdesk/internal/core/domain"
	"github.com/vietddude/tourdesk/internal/infra/backend"
	"github.com/vietddude/tourdesk/internal/infra/resilience"
)

// schema lists the columns each collection exposes. Identifiers outside it are
// rejected before any SQL is built.
var schema = map[string][]string{
	domain.CollectionProfiles: {"user_id", "email", "role", "created_at"},
	domain.CollectionTrips: {
		"id", "title", "destination", "start_date", "end_date",
		"cover_locator", "cover_name", "cover_bucket", "cover_path",
		"created_at", "updated_at",
	},
	domain.CollectionItineraryDays:    {"id", "trip_id", "day_number", "title", "description"},
	domain.CollectionIncludedServices: {"id", "trip_id", "name"},
	domain.CollectionBookings:         {"id", "trip_id", "customer", "status", "created_at"},
	domain.CollectionQuotations:       {"id", "trip_id", "customer", "total", "currency", "created_at"},
	domain.CollectionDocuments:        {"id", "owner_id", "locator", "display_name", "bucket", "path", "created_at"},
	domain.CollectionOrphanedObjects:  {"id", "bucket", "path", "reason", "attempts", "created_at"},
}

// Collections implements backend.Collections using PostgreSQL.
type Collections struct {
	pool *pgxpool.Pool
}

// NewCollections creates a new PostgreSQL collections backend.
func NewCollections(pool *pgxpool.Pool) *Collections {
	return &Collections{pool: pool}
}

// Select returns the rows of collection matching filter.
func (c *Collections) Select(
	ctx context.Context,
	collection string,
	filter backend.Filter,
) ([]backend.Record, error) {
	table, err := tableName(collection)
	if err != nil {
		return nil, err
	}
	where, args, err := whereClause(collection, filter, 1)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf("SELECT * FROM %s%s", table, where)
	rows, err := c.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, translate("select", collection, err)
	}
	maps, err := pgx.CollectRows(rows, pgx.RowToMap)
	if err != nil {
		return nil, translate("select", collection, err)
	}

	out := make([]backend.Record, len(maps))
	for i, m := range maps {
		out[i] = backend.Record(m)
	}
	return out, nil
}

// Insert stores rec and returns the persisted row.
func (c *Collections) Insert(
	ctx context.Context,
	collection string,
	rec backend.Record,
) (backend.Record, error) {
	table, err := tableName(collection)
	if err != nil {
		return nil, err
	}
	if len(rec) == 0 {
		return nil, &resilience.ValidationError{Field: collection, Reason: "empty record"}
	}

	columns := sortedKeys(rec)
	idents := make([]string, len(columns))
	placeholders := make([]string, len(columns))
	args := make([]any, len(columns))
	for i, col := range columns {
		ident, err := columnName(collection, col)
		if err != nil {
			return nil, err
		}
		idents[i] = ident
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		args[i] = rec[col]
	}

	query := fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES (%s) RETURNING *",
		table, strings.Join(idents, ", "), strings.Join(placeholders, ", "),
	)
	rows, err := c.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, translate("insert", collection, err)
	}
	row, err := pgx.CollectExactlyOneRow(rows, pgx.RowToMap)
	if err != nil {
		return nil, translate("insert", collection, err)
	}
	return backend.Record(row), nil
}

// Update applies patch to the rows matching filter.
func (c *Collections) Update(
	ctx context.Context,
	collection string,
	filter backend.Filter,
	patch backend.Record,
) (int64, error) {
	table, err := tableName(collection)
	if err != nil {
		return 0, err
	}
	if len(patch) == 0 {
		return 0, &resilience.ValidationError{Field: collection, Reason: "empty patch"}
	}
	if len(filter) == 0 {
		return 0, &resilience.ValidationError{Field: collection, Reason: "update without filter"}
	}

	columns := sortedKeys(patch)
	sets := make([]string, len(columns))
	args := make([]any, 0, len(columns)+len(filter))
	for i, col := range columns {
		ident, err := columnName(collection, col)
		if err != nil {
			return 0, err
		}
		sets[i] = fmt.Sprintf("%s = $%d", ident, i+1)
		args = append(args, patch[col])
	}

	where, whereArgs, err := whereClause(collection, filter, len(columns)+1)
	if err != nil {
		return 0, err
	}
	args = append(args, whereArgs...)

	query := fmt.Sprintf("UPDATE %s SET %s%s", table, strings.Join(sets, ", "), where)
	tag, err := c.pool.Exec(ctx, query, args...)
	if err != nil {
		return 0, translate("update", collection, err)
	}
	return tag.RowsAffected(), nil
}

// Delete removes the rows matching filter.
func (c *Collections) Delete(
	ctx context.Context,
	collection string,
	filter backend.Filter,
) (int64, error) {
	table, err := tableName(collection)
	if err != nil {
		return 0, err
	}
	if len(filter) == 0 {
		return 0, &resilience.ValidationError{Field: collection, Reason: "delete without filter"}
	}
	where, args, err := whereClause(collection, filter, 1)
	if err != nil {
		return 0, err
	}

	tag, err := c.pool.Exec(ctx, fmt.Sprintf("DELETE FROM %s%s", table, where), args...)
	if err != nil {
		return 0, translate("delete", collection, err)
	}
	return tag.RowsAffected(), nil
}

func tableName(collection string) (string, error) {
	if _, ok := schema[collection]; !ok {
		return "", fmt.Errorf("%w: %q", backend.ErrUnknownCollection, collection)
	}
	return pgx.Identifier{collection}.Sanitize(), nil
}

func columnName(collection, column string) (string, error) {
	for _, c := range schema[collection] {
		if c == column {
			return pgx.Identifier{column}.Sanitize(), nil
		}
	}
	return "", &resilience.ValidationError{
		Field:  column,
		Reason: fmt.Sprintf("unknown column of %s", collection),
	}
}

// whereClause builds " WHERE a = $n AND b = $n+1" with placeholders starting at first.
func whereClause(collection string, filter backend.Filter, first int) (string, []any, error) {
	if len(filter) == 0 {
		return "", nil, nil
	}
	columns := sortedKeys(filter)
	conds := make([]string, len(columns))
	args := make([]any, len(columns))
	for i, col := range columns {
		ident, err := columnName(collection, col)
		if err != nil {
			return "", nil, err
		}
		conds[i] = fmt.Sprintf("%s = $%d", ident, first+i)
		args[i] = filter[col]
	}
	return " WHERE " + strings.Join(conds, " AND "), args, nil
}

func sortedKeys[M ~map[string]any](m M) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
