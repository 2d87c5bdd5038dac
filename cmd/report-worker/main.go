package main

import (
	"context"
	"errors"
	"os"
	"time"

	"assetinsight/internal/amqp"
	"assetinsight/internal/backend"
	"assetinsight/internal/cache"
	"assetinsight/internal/cli"
	applog "assetinsight/internal/log"
	gsheet "assetinsight/internal/sheets/google"
	"assetinsight/internal/worker"
)

func main() {
	cli.LoadEnvFile()

	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"), applog.ComponentWorker)
	logger.Info("Starting report-worker")

	cfg := cli.LoadAndValidateConfig(logger)
	if !cfg.AMQPEnabled() {
		logger.Error("report-worker needs AMQP_URL to receive change events")
		os.Exit(1)
	}
	if cfg.GoogleSpreadsheetID == "" {
		logger.Error("report-worker needs GOOGLE_SPREADSHEET_ID to mirror the report")
		os.Exit(1)
	}
	if backend.BackendType(cfg.DataBackend) != backend.SQLiteBackend {
		logger.Error("report-worker reads the shared SQLite database; set DATA_BACKEND=sqlite",
			"backend", cfg.DataBackend)
		os.Exit(1)
	}

	startCtx := context.Background()
	_, _, store := cli.InitStore(startCtx, logger, cfg)

	sheetsClient, err := gsheet.New(startCtx, cfg.GoogleSpreadsheetID, cfg.GoogleReportSheetName)
	if err != nil {
		logger.Error("Failed to initialize Google Sheets client", "error", err)
		os.Exit(1)
	}
	logger.Info("Google Sheets client initialized",
		"spreadsheet_id", cfg.GoogleSpreadsheetID,
		"sheet", cfg.GoogleReportSheetName)

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", "error", err)
		os.Exit(1)
	}

	reportWorker := worker.NewReportWorker(store.Store, cfg.ValuationFanout, sheetsClient, cfg.ReportDedupeTTL)

	caches := cache.NewManager()
	caches.Register(reportWorker.DedupeCache())
	caches.StartCleanup(cfg.ReportDedupeTTL)

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(context.Context) {
		caches.Stop()
		if err := amqpClient.Close(); err != nil {
			logger.Warn("Failed to close AMQP client", "error", err)
		}
		if store.Cleanup != nil {
			if err := store.Cleanup(); err != nil {
				logger.Error("Failed to close store", "error", err)
			}
		}
	})

	// A failed startup rebuild is retried by the next event or the daily refresh.
	if err := reportWorker.StartupRebuild(ctx); err != nil {
		logger.Error("Failed startup rebuild", "error", err)
	}

	go func() {
		err := amqpClient.Consume(ctx, reportWorker.HandleChangeEvent)
		if err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("Message consumption failed", "error", err)
		}
	}()

	// Month ends roll over without any write, so the report is also refreshed daily.
	go func() {
		ticker := time.NewTicker(24 * time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := reportWorker.Rebuild(ctx); err != nil {
					logger.Error("Daily report refresh failed", "error", err)
				}
			}
		}
	}()

	cli.WaitForShutdown(ctx, done)
	logger.Info("Report worker stopped")
}
