package main

import (
	"context"
	"os"
	"time"

	"assetinsight/internal/amqp"
	"assetinsight/internal/cli"
	apphttp "assetinsight/internal/http"
	applog "assetinsight/internal/log"
	"assetinsight/internal/services"
)

func main() {
	cli.LoadEnvFile()

	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"), applog.ComponentApp)
	cfg := cli.LoadAndValidateConfig(logger)

	startCtx := context.Background()
	factory, bcfg, store := cli.InitStore(startCtx, logger, cfg)

	// The publisher stays a nil interface when AMQP is off so the service skips publishing.
	var publisher services.Publisher
	var amqpClient *amqp.Client
	if cfg.AMQPEnabled() {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Warn("Failed to initialize AMQP client, report mirroring disabled", "error", err)
		} else {
			amqpClient = client
			publisher = client
			logger.Info("AMQP client initialized", "exchange", cfg.AMQPExchange)
		}
	} else {
		logger.Info("AMQP disabled - the report sheet will not be refreshed")
	}

	assets := services.NewAssetService(store.Store, publisher)
	seeded, err := assets.EnsureDefaultCategories(startCtx)
	if err != nil {
		logger.Error("Failed to seed default categories", "error", err)
		os.Exit(1)
	}
	if seeded {
		logger.Info("Initialized empty category registry")
	}

	dashboard := services.NewDashboardService(store.Store, cfg.ValuationFanout)

	var scheduler *services.BackupScheduler
	channel, err := factory.CreateBackupChannel(startCtx, bcfg)
	if err != nil {
		logger.Error("Failed to initialize backup channel", "error", err)
		os.Exit(1)
	}
	if channel != nil {
		scheduler = services.NewBackupScheduler(assets.Exchange(), channel, services.BackupSchedulerConfig{
			Interval: cfg.BackupInterval,
			Keep:     cfg.BackupKeep,
		})
	} else {
		logger.Info("Scheduled backups disabled - set BACKUP_DIR or S3_BUCKET")
	}

	srv := apphttp.NewServer(":"+cfg.Port, assets, dashboard, apphttp.Options{
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		RateLimitBurst:     cfg.RateLimitBurst,
		Logger:             logger,
	})

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
		if scheduler != nil {
			if err := scheduler.Stop(ctx); err != nil {
				logger.Error("Backup scheduler shutdown error", "error", err)
			}
		}
		if amqpClient != nil {
			if err := amqpClient.Close(); err != nil {
				logger.Warn("Failed to close AMQP client", "error", err)
			}
		}
		if store.Cleanup != nil {
			if err := store.Cleanup(); err != nil {
				logger.Error("Failed to close store", "error", err)
			}
		}
	})

	if scheduler != nil {
		if err := scheduler.Start(ctx); err != nil {
			logger.Error("Failed to start backup scheduler", "error", err)
			os.Exit(1)
		}
	}

	logger.Info("Starting assetinsight server",
		"port", cfg.Port,
		"backend", cfg.DataBackend,
		"amqp", amqpClient != nil,
		"backups", scheduler != nil)
	if err := srv.Start(); err != nil {
		logger.Error("Server error", "error", err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}
