package cli

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/vietddude/tourdesk/internal/control"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the health and metrics server",
	Run:   runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) {
	cfg := setup()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	app, err := control.NewApp(ctx, cfg, control.Options{Migrate: true})
	if err != nil {
		slog.Error("Failed to initialize tourdesk", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	done := make(chan error, 1)
	go func() { done <- app.Start(ctx) }()

	slog.Info("Tourdesk started", "config", cfgPath)

	select {
	case sig := <-sigChan:
		slog.Info("Received signal, shutting down...", "signal", sig)
	case err := <-done:
		if err != nil {
			slog.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	if err := app.Stop(shutdownCtx); err != nil {
		slog.Error("Error during shutdown", "error", err)
		os.Exit(1)
	}
	slog.Info("Tourdesk stopped gracefully")
}
