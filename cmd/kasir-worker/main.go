package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"time"
	_ "time/tzdata"

	"kasir/internal/amqp"
	"kasir/internal/backend"
	"kasir/internal/cli"
	applog "kasir/internal/log"
	"kasir/internal/metrics"
	"kasir/internal/services"
	gsheet "kasir/internal/sheets/google"
	"kasir/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	cfg := cli.LoadAndValidateConfig()
	logger := cli.SetupLogger(cfg, applog.ComponentWorker)
	logger.Info("Starting kasir-worker")

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", "error", err)
		os.Exit(1)
	}
	result, err := backend.NewFactory(logger.WithComponent(applog.ComponentBackend).Logger).
		CreateBackend(context.Background(), backendCfg)
	if err != nil {
		logger.Error("Failed to initialize backend", "error", err, "backend", cfg.DataBackend)
		os.Exit(1)
	}
	b := result.Backend

	m := metrics.New()
	var metricsSrv *http.Server
	if cfg.WorkerMetricsPort != "" {
		mux := http.NewServeMux()
		mux.Handle("GET /metrics", m.Handler())
		metricsSrv = &http.Server{
			Addr:              net.JoinHostPort("", cfg.WorkerMetricsPort),
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("Metrics listener failed", "error", err)
			}
		}()
	}

	ledger := services.NewLedgerService(b.Cash, services.WithLedgerMetrics(m))
	notifications := services.NewNotificationService(b.Notifications, b.Feed)
	summary := services.NewSummaryJob(b.Transactions, ledger, notifications)

	var consumer *amqp.Client
	if cfg.SheetsEnabled() && cfg.AMQPURL != "" {
		consumer, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Error("Failed to initialize AMQP client", "error", err)
			os.Exit(1)
		}
	}

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func() {
		summary.Stop()
		if consumer != nil {
			if err := consumer.Close(); err != nil {
				logger.Error("AMQP close error", "error", err)
			}
		}
		if metricsSrv != nil {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = metricsSrv.Shutdown(shutdownCtx)
		}
		if result.Cleanup != nil {
			if err := result.Cleanup(); err != nil {
				logger.Error("Backend cleanup error", "error", err)
			}
		}
	})

	if err := summary.Start(ctx, cfg.SummaryAt, cfg.Location()); err != nil {
		logger.Error("Failed to schedule daily summary", "error", err)
		os.Exit(1)
	}
	logger.Info("Daily summary scheduled", "at", cfg.SummaryAt, "timezone", cfg.Timezone)

	var syncWorker *worker.SyncWorker
	if cfg.SheetsEnabled() {
		mirror, err := gsheet.NewClient(ctx, gsheet.Config{
			SpreadsheetID:     cfg.GoogleSpreadsheetID,
			CashSheet:         cfg.GoogleCashSheetName,
			TransactionsSheet: cfg.GoogleTransactionsSheetName,
			Location:          cfg.Location(),
		})
		if err != nil {
			logger.Error("Failed to initialize Google Sheets client", "error", err)
			os.Exit(1)
		}
		logger.Info("Google Sheets client initialized", "spreadsheet_id", cfg.GoogleSpreadsheetID)
		syncWorker = worker.NewSyncWorker(mirror, b.Cash, b.Transactions, m, cfg.BackfillLimit, cfg.Location())

		// Catch up on anything posted while the worker was down.
		logger.Info("Performing startup sync check...")
		if err := syncWorker.StartupSyncCheck(ctx); err != nil {
			logger.Error("Failed startup sync check", "error", err)
		}
	} else {
		logger.Info("Google Sheets disabled - no GOOGLE_SPREADSHEET_ID provided")
	}

	switch {
	case syncWorker == nil:
		logger.Info("Skipping AMQP consumption - no mirror configured")
	case consumer == nil:
		logger.Warn("AMQP_URL not set, mirror runs only at startup")
	default:
		go func() {
			err := consumer.ConsumeLedgerEvents(ctx, syncWorker.HandleLedgerEvent)
			if err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("Ledger event consumption failed", "error", err)
			}
		}()
		logger.Info("Consuming ledger events", "queue", cfg.AMQPQueue)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Worker stopped")
}
