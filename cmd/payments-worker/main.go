package main

import (
	"os"

	"finanzas/internal/cli"
	applog "finanzas/internal/log"
	"finanzas/internal/services"
	"finanzas/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	cfg := cli.LoadAndValidateConfig()
	logger := cli.SetupLogger(cfg, applog.ComponentPayments)

	ctx, stop := cli.SignalContext()
	defer stop()

	repo, err := cli.OpenStore(ctx, cfg, logger)
	if err != nil {
		logger.Error("Failed to open store", "error", err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer repo.Close()

	// Materialized movements are published so the sheets worker mirrors them.
	publisher, closePublisher := cli.OpenPublisher(cfg, logger)
	defer closePublisher()

	movements := services.NewMovementService(repo, publisher, logger)
	processor := services.NewPaymentProcessor(repo, movements, logger)
	scheduler := worker.NewPaymentScheduler(processor, cfg.PaymentsCron, logger)

	if err := scheduler.Run(ctx); err != nil {
		logger.Error("Payment scheduler failed", "error", err)
		os.Exit(1)
	}
}
