package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/vietddude/tourdesk/internal/infra/backend/postgres"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending database migrations",
	Run:   runMigrate,
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}

func runMigrate(cmd *cobra.Command, args []string) {
	cfg := setup()
	if cfg.Database.URL == "" {
		slog.Error("database.url is not configured")
		os.Exit(1)
	}

	ctx := context.Background()
	db, err := postgres.Open(ctx, cfg.Database)
	if err != nil {
		slog.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer func() {
		_ = db.Close()
	}()

	if err := postgres.Migrate(ctx, db); err != nil {
		slog.Error("Migration failed", "error", err)
		os.Exit(1)
	}
	version, err := postgres.MigrationVersion(ctx, db)
	if err != nil {
		slog.Error("Failed to read migration version", "error", err)
		os.Exit(1)
	}
	fmt.Printf("Database is at version %d\n", version)
}
