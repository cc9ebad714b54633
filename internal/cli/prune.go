package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var pruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Retry removing orphaned objects once",
	Run:   runPrune,
}

func init() {
	rootCmd.AddCommand(pruneCmd)
}

func runPrune(cmd *cobra.Command, args []string) {
	cfg := setup()
	ctx := context.Background()
	app := openApp(ctx, cfg)
	defer app.Close()

	removed, err := app.Pruner.Prune(ctx)
	if err != nil {
		fail(app, "Prune failed", err)
	}

	left, err := app.Orphans.List(ctx)
	if err != nil {
		fail(app, "Failed to list orphaned objects", err)
	}
	fmt.Printf("Removed %d orphaned objects, %d left\n", removed, len(left))
}
