// Package cli holds the start-up steps shared by the binaries under cmd/.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"finanzas/internal/amqp"
	"finanzas/internal/config"
	applog "finanzas/internal/log"
	"finanzas/internal/services"
	"finanzas/internal/sheets"
	gsheet "finanzas/internal/sheets/google"
	"finanzas/internal/sheets/memory"
	"finanzas/internal/storage"
)

// LoadEnvFile loads .env for local development. A missing file is fine.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// SetupLogger builds the process logger from LOG_LEVEL and makes it the
// slog default.
func SetupLogger(cfg *config.Config, component string) *applog.Logger {
	logger := applog.New(applog.Config{
		Level:     applog.ParseLevel(cfg.LogLevel),
		Component: component,
	})
	applog.SetDefault(logger)
	return logger
}

// LoadAndValidateConfig loads configuration and exits on validation failure.
func LoadAndValidateConfig() *config.Config {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, "configuration validation failed:", err)
		os.Exit(1)
	}
	return cfg
}

// OpenStore opens the SQLite store and applies SEED_FILE when one is set.
func OpenStore(ctx context.Context, cfg *config.Config, logger *applog.Logger) (*storage.SQLiteRepository, error) {
	repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
	if err != nil {
		return nil, fmt.Errorf("open store %s: %w", cfg.SQLiteDBPath, err)
	}
	if cfg.SeedFile == "" {
		return repo, nil
	}
	data, err := storage.LoadSeedFile(cfg.SeedFile)
	if err != nil {
		repo.Close()
		return nil, err
	}
	badges, groups, err := repo.Seed(ctx, data)
	if err != nil {
		repo.Close()
		return nil, fmt.Errorf("seed store: %w", err)
	}
	logger.Info("Seed applied", "file", cfg.SeedFile, "badges", badges, "groups", groups)
	return repo, nil
}

// OpenPublisher connects to the broker when AMQP_URL is set. It returns a nil
// Publisher (not a typed nil) when events are disabled or the broker is
// unreachable, so movements are still written.
func OpenPublisher(cfg *config.Config, logger *applog.Logger) (services.Publisher, func()) {
	if cfg.AMQPURL == "" {
		logger.Info("AMQP disabled, movement events will not be published")
		return nil, func() {}
	}
	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		applog.LogError(context.Background(), "AMQP unavailable, continuing without events", err,
			applog.ComponentAMQP, applog.OpStartup, applog.ErrorTypeNetwork, nil)
		return nil, func() {}
	}
	logger.Info("AMQP publisher ready", "exchange", cfg.AMQPExchange)
	return client, func() { _ = client.Close() }
}

// OpenMirror returns the Google Sheets mirror when a spreadsheet is
// configured and an in-process store otherwise.
func OpenMirror(ctx context.Context, cfg *config.Config, logger *applog.Logger) (sheets.MovementMirror, error) {
	if !cfg.SheetsEnabled() {
		logger.Info("Sheets mirror disabled, keeping rows in memory")
		return memory.New(), nil
	}
	client, err := gsheet.New(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	logger.Info("Sheets mirror ready", "spreadsheet_id", cfg.GoogleSpreadsheetID, "sheet", cfg.GoogleSheetName)
	return client, nil
}

// SignalContext is cancelled on SIGINT or SIGTERM.
func SignalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}
