package main

import (
	"context"
	"errors"
	"os"
	"time"

	"cashflow/internal/amqp"
	"cashflow/internal/cli"
	"cashflow/internal/services"
	"cashflow/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"))
	logger.Info("Starting ledger-worker")

	cfg := cli.LoadAndValidateConfig(logger)

	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	defer repo.Close()

	auditWorker := worker.NewAuditWorker(services.NewAuditService(repo, cfg.AuditConcurrency), cfg.AuditInterval)

	var amqpClient *amqp.Client
	if cfg.EventsEnabled() {
		var err error
		amqpClient, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Error("Failed to initialize AMQP client", "error", err)
			os.Exit(1)
		}
	} else {
		logger.Info("Ledger events disabled - running periodic audits only")
	}

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(context.Context) {
		if amqpClient != nil {
			if err := amqpClient.Close(); err != nil {
				logger.Warn("Failed to close AMQP client", "error", err)
			}
		}
	})

	if amqpClient != nil {
		go func() {
			err := amqpClient.ConsumeLedgerEvents(ctx, auditWorker.HandleLedgerEvent)
			if err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("Ledger event consumption failed", "error", err)
			}
		}()
	}

	go auditWorker.RunPeriodic(ctx)

	cli.WaitForShutdown(ctx, done)
	logger.Info("Worker stopped")
}
