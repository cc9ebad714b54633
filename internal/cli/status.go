package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/vietddude/tourdesk/internal/infra/backend/postgres"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show backend health and record counts",
	Run:   runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) {
	cfg := setup()
	ctx := context.Background()

	app := openApp(ctx, cfg)
	defer app.Close()

	report := app.Health.Report(ctx)
	names := make([]string, 0, len(report.Components))
	for name := range report.Components {
		names = append(names, name)
	}
	sort.Strings(names)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', tabwriter.Debug)
	_, _ = fmt.Fprintln(w, "COMPONENT\tSTATUS\tLATENCY\tERROR")
	for _, name := range names {
		c := report.Components[name]
		_, _ = fmt.Fprintf(w, "%s\t%s\t%dms\t%s\n", name, c.Status, c.LatencyMS, c.Error)
	}
	_ = w.Flush()
	fmt.Printf("\nSystem: %s\n", report.SystemStatus)

	if cfg.Database.URL == "" {
		return
	}

	db, err := postgres.Open(ctx, cfg.Database)
	if err != nil {
		slog.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer func() {
		_ = db.Close()
	}()

	version, err := postgres.MigrationVersion(ctx, db)
	if err != nil {
		slog.Warn("Failed to read migration version", "error", err)
	} else {
		fmt.Printf("Schema version: %d\n\n", version)
	}

	counts, err := postgres.Stats(ctx, db)
	if err != nil {
		slog.Error("Failed to count records", "error", err)
		os.Exit(1)
	}
	w = tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', tabwriter.Debug)
	_, _ = fmt.Fprintln(w, "COLLECTION\tROWS")
	for _, c := range counts {
		_, _ = fmt.Fprintf(w, "%s\t%d\n", c.Collection, c.Rows)
	}
	_ = w.Flush()
}
