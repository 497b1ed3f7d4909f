package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"cashflow/internal/amqp"
	"cashflow/internal/cache"
	"cashflow/internal/cli"
	"cashflow/internal/core"
	apphttp "cashflow/internal/http"
	applog "cashflow/internal/log"
	"cashflow/internal/middleware/security"
	"cashflow/internal/scope"
	"cashflow/internal/services"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"))
	cfg := cli.LoadAndValidateConfig(logger)

	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	defer repo.Close()

	statsCache := cache.NewLRUCache[core.Stats](256, cfg.StatsCacheTTL)
	cacheManager := cache.NewManager()
	cacheManager.Register(statsCache)
	cleanupEvery := cfg.StatsCacheTTL
	if cleanupEvery <= 0 {
		cleanupEvery = time.Minute
	}
	cacheManager.StartCleanup(cleanupEvery)

	stats := services.NewStatsService(repo, cfg.DefaultCurrency, statsCache)

	ledgerOpts := []services.LedgerOption{services.WithChangeListener(stats.Invalidate)}
	var amqpClient *amqp.Client
	if cfg.EventsEnabled() {
		var err error
		amqpClient, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Error("Failed to initialize AMQP client", "error", err)
			os.Exit(1)
		}
		ledgerOpts = append(ledgerOpts, services.WithEventPublisher(amqpClient))
		logger.Info("Ledger events enabled", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
	} else {
		logger.Info("Ledger events disabled - no AMQP_URL provided")
	}

	detector, err := security.NewDetector(cfg.TrustedProxies...)
	if err != nil {
		logger.Error("Invalid trusted proxy configuration", "error", err)
		os.Exit(1)
	}

	level, _ := applog.ParseLevel(cfg.LogLevel)
	srv := apphttp.NewServer(":"+cfg.Port, apphttp.Services{
		Ledger:  services.NewLedgerService(repo, ledgerOpts...),
		Wallets: services.NewWalletService(repo, stats.Invalidate),
		Stats:   stats,
		Auditor: services.NewAuditService(repo, cfg.AuditConcurrency),
		Catalog: repo,
	}, apphttp.Options{
		Resolver:           scope.NewResolver(cfg.ProfileHeader, cfg.DefaultProfileID),
		Detector:           detector,
		CORSAllowOrigin:    cfg.CORSAllowOrigin,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		Logger: applog.New(applog.Config{
			Level:     level,
			Component: applog.ComponentHTTP,
			Output:    os.Stdout,
		}),
	})

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(shutdownCtx context.Context) {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
		cacheManager.Stop()
		if amqpClient != nil {
			if err := amqpClient.Close(); err != nil {
				logger.Warn("Failed to close AMQP client", "error", err)
			}
		}
	})

	logger.Info("Starting cashflow server",
		"port", cfg.Port,
		"db_path", cfg.SQLiteDBPath,
		"default_profile", cfg.DefaultProfileID,
		"profile_header", cfg.ProfileHeader)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", "error", err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}
