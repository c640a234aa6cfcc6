package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"time"
	_ "time/tzdata"

	"kasir/internal/backend"
	"kasir/internal/cache"
	"kasir/internal/cli"
	apphttp "kasir/internal/http"
	applog "kasir/internal/log"
	"kasir/internal/metrics"
	"kasir/internal/services"
)

func main() {
	cli.LoadEnvFile()
	cfg := cli.LoadAndValidateConfig()
	logger := cli.SetupLogger(cfg, applog.ComponentApp)

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", "error", err)
		os.Exit(1)
	}
	factory := backend.NewFactory(logger.WithComponent(applog.ComponentBackend).Logger)
	result, err := factory.CreateBackend(context.Background(), backendCfg)
	if err != nil {
		logger.Error("Failed to initialize backend", "error", err, "backend", cfg.DataBackend)
		os.Exit(1)
	}
	b := result.Backend
	logger.Info("Initialized backend", "backend", cfg.DataBackend)

	m := metrics.New()

	ledger := services.NewLedgerService(b.Cash,
		services.WithLedgerGuard(cfg.LedgerGuard),
		services.WithLedgerPublisher(b.Publisher),
		services.WithLedgerMetrics(m))
	products := services.NewProductService(b.Products, b.Roles, cfg.ProductCacheTTL)
	notifications := services.NewNotificationService(b.Notifications, b.Feed)
	carts := services.NewCartRegistry()
	svc := apphttp.Services{
		Ledger:        ledger,
		Transactions:  services.NewTransactionService(b.Transactions, ledger, b.Publisher, m),
		Checkout:      services.NewCheckoutService(carts, b.Orders, b.Transactions, ledger, b.Publisher, m),
		Carts:         carts,
		Products:      products,
		Notifications: notifications,
		PushTokens:    services.NewPushTokenService(b.PushTokens),
		Home:          services.NewHomeService(ledger, products, notifications),
	}

	caches := cache.NewManager()
	caches.Register(products.Cache())
	caches.StartCleanup(context.Background(), time.Minute)

	srv := apphttp.NewServer(net.JoinHostPort("", cfg.Port), svc, apphttp.Options{
		Logger:             logger.WithComponent(applog.ComponentHTTP),
		Metrics:            m,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		Ready:              b.Ping,
	})

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 25*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
		caches.Stop()
		if result.Cleanup != nil {
			if err := result.Cleanup(); err != nil {
				logger.Error("Backend cleanup error", "error", err)
			}
		}
	})

	logger.Info("Starting kasir server", "port", cfg.Port, "backend", cfg.DataBackend)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", "error", err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}
