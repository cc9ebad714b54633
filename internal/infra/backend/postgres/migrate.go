package postgres

import (
	"context"
	"embed"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib" // Use pgx via database/sql
	"github.com/jmoiron/sqlx"
	"github.com/pressly/goose/v3"

	"github.com/vietddude/tourdesk/internal/core/domain"
)

//go:embed migrations/*.sql
var migrations embed.FS

// Open opens a database/sql handle over the pgx driver.
// Migrations and admin queries use it; record access goes through the pool.
func Open(ctx context.Context, cfg Config) (*sqlx.DB, error) {
	db, err := sqlx.ConnectContext(ctx, "pgx", cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect database: %w", err)
	}
	db.SetMaxOpenConns(2)
	return db, nil
}

// Migrate applies all pending migrations.
func Migrate(ctx context.Context, db *sqlx.DB) error {
	goose.SetBaseFS(migrations)
	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}
	if err := goose.UpContext(ctx, db.DB, "migrations"); err != nil {
		return fmt.Errorf("failed to migrate db: %w", err)
	}
	return nil
}

// MigrationVersion returns the current schema version.
func MigrationVersion(ctx context.Context, db *sqlx.DB) (int64, error) {
	goose.SetBaseFS(migrations)
	if err := goose.SetDialect("postgres"); err != nil {
		return 0, err
	}
	return goose.GetDBVersionContext(ctx, db.DB)
}

// CollectionCount is the row count of one collection.
type CollectionCount struct {
	Collection string `db:"collection"`
	Rows       int64  `db:"row_count"`
}

// Stats returns row counts for every collection of the schema.
func Stats(ctx context.Context, db *sqlx.DB) ([]CollectionCount, error) {
	collections := []string{
		domain.CollectionTrips,
		domain.CollectionItineraryDays,
		domain.CollectionIncludedServices,
		domain.CollectionBookings,
		domain.CollectionQuotations,
		domain.CollectionDocuments,
		domain.CollectionProfiles,
		domain.CollectionOrphanedObjects,
	}

	out := make([]CollectionCount, 0, len(collections))
	for _, c := range collections {
		table, err := tableName(c)
		if err != nil {
			return nil, err
		}
		var count CollectionCount
		query := fmt.Sprintf("SELECT '%s' AS collection, count(*) AS row_count FROM %s", c, table)
		if err := db.GetContext(ctx, &count, query); err != nil {
			return nil, translate("count", c, err)
		}
		out = append(out, count)
	}
	return out, nil
}
