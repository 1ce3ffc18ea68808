package main

import (
	"context"
	"errors"
	"os"

	"finanzas/internal/amqp"
	"finanzas/internal/cli"
	applog "finanzas/internal/log"
	"finanzas/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	cfg := cli.LoadAndValidateConfig()
	logger := cli.SetupLogger(cfg, applog.ComponentWorker)

	if cfg.AMQPURL == "" {
		logger.Error("AMQP_URL is required for the sheets worker")
		os.Exit(1)
	}

	ctx, stop := cli.SignalContext()
	defer stop()

	repo, err := cli.OpenStore(ctx, cfg, logger)
	if err != nil {
		logger.Error("Failed to open store", "error", err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer repo.Close()

	mirror, err := cli.OpenMirror(ctx, cfg, logger)
	if err != nil {
		logger.Error("Failed to open sheets mirror", "error", err)
		os.Exit(1)
	}

	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", "error", err)
		os.Exit(1)
	}
	defer client.Close()

	w := worker.NewMirrorWorker(repo, mirror, logger)

	// Catch up on anything written while the worker was down.
	if n, err := w.SyncAll(ctx); err != nil {
		logger.Error("Startup resync failed", "error", err)
	} else {
		logger.Info("Startup resync complete", "rows", n)
	}

	logger.Info("Consuming movement events", "queue", cfg.AMQPQueue)
	if err := client.ConsumeMovementEvents(ctx, w.HandleMovementEvent); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Message consumption failed", "error", err)
		os.Exit(1)
	}
	logger.Info("Sheets worker stopped")
}
