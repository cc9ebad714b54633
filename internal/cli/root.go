package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"
	"github.com/spf13/cobra"
	"github.com/vietddude/stylelog"

	"github.com/vietddude/tourdesk/internal/cascade"
	"github.com/vietddude/tourdesk/internal/control"
	"github.com/vietddude/tourdesk/internal/core/config"
	"github.com/vietddude/tourdesk/internal/infra/resilience"
	"github.com/vietddude/tourdesk/internal/upload"
)

var (
	cfgPath string
	isDebug bool
)

var rootCmd = &cobra.Command{
	Use:   "tourdesk",
	Short: "Tourdesk trip back office",
	Long:  `Tourdesk manages trips, their assets and everything booked against them, retrying transient backend failures along the way.`,
	Run:   runServe,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "config.yaml", "config file (default is config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&isDebug, "debug", false, "enable debug logging")
}

// setup loads .env and the config file and installs the process logger.
func setup() *config.AppConfig {
	_ = godotenv.Load()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		stylelog.InitDefault()
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}

	slogLevel := slog.LevelInfo
	if isDebug || cfg.Logging.Level == "debug" {
		slogLevel = slog.LevelDebug
	}
	stylelog.InitDefault(&tint.Options{
		Level:      slogLevel,
		TimeFormat: time.RFC3339,
	})
	return cfg
}

// openApp builds the App for a one-shot command, restoring the saved token.
func openApp(ctx context.Context, cfg *config.AppConfig) *control.App {
	token, err := readToken(cfg.Auth.TokenFile)
	if err != nil {
		slog.Warn("Failed to read token file", "path", cfg.Auth.TokenFile, "error", err)
	}

	app, err := control.NewApp(ctx, cfg, control.Options{Token: token})
	if err != nil {
		slog.Error("Failed to initialize tourdesk", "error", err)
		os.Exit(1)
	}
	app.Auth.OnTokenChange(func(token string) error {
		return writeToken(cfg.Auth.TokenFile, token)
	})
	return app
}

// fail logs err and prints the user-facing explanation before exiting.
func fail(app *control.App, msg string, err error) {
	slog.Debug(msg, "error", err)
	fmt.Fprintf(os.Stderr, "%s: %s\n", msg, userMessage(err))
	if app != nil {
		_ = app.Close()
	}
	os.Exit(1)
}

func userMessage(err error) string {
	var upErr *upload.Error
	if errors.As(err, &upErr) {
		return upErr.Error()
	}
	var stepErr *cascade.StepError
	if errors.As(err, &stepErr) {
		msg := fmt.Sprintf("Deleting the %s of %s %s failed.", stepErr.Step, stepErr.Aggregate, stepErr.AggregateID)
		if len(stepErr.Completed) > 0 {
			msg += fmt.Sprintf(" Already deleted: %s.", strings.Join(stepErr.Completed, ", "))
		}
		return msg + " " + resilience.UserMessage(stepErr.Err)
	}
	return resilience.UserMessage(err)
}

func readToken(path string) (string, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

func writeToken(path, token string) error {
	if token == "" {
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return err
		}
		return nil
	}
	return os.WriteFile(path, []byte(token+"\n"), 0o600)
}
