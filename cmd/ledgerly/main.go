package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/ledgerly-in/ledgerly/internal/app"
	"github.com/ledgerly-in/ledgerly/internal/billing"
	"github.com/ledgerly-in/ledgerly/internal/customers"
	"github.com/ledgerly-in/ledgerly/internal/observability"
	"github.com/ledgerly-in/ledgerly/internal/payments"
	"github.com/ledgerly-in/ledgerly/internal/platform/cache"
	"github.com/ledgerly-in/ledgerly/internal/platform/db"
	"github.com/ledgerly-in/ledgerly/internal/reports"
	"github.com/ledgerly-in/ledgerly/internal/shared"
	"github.com/ledgerly-in/ledgerly/internal/tenant"
	"github.com/ledgerly-in/ledgerly/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	metrics := observability.NewMetrics()

	tenantRepo := tenant.NewRepository(pool)
	tenantService := tenant.NewService(tenantRepo)
	tenantHandler := tenant.NewHandler(logger, tenantService)
	tenantMiddleware := tenant.NewMiddleware(logger, tenantService)

	customersRepo := customers.NewRepository(pool)
	customersHandler := customers.NewHandler(logger, customersRepo)

	reportCache := reports.NewCache(redisClient, cfg.ReportCacheTTL)
	reportsRepo := reports.NewRepository(pool)
	reportsService := reports.NewService(reportsRepo, reportCache)
	reportsHandler := reports.NewHandler(logger, reportsService)

	queueClient, err := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	if err != nil {
		logger.Error("init queue client", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := queueClient.Close(); err != nil {
			logger.Warn("queue client close", slog.Any("error", err))
		}
	}()

	billingRepo := billing.NewRepository(pool)
	billingService := billing.NewService(logger, billingRepo, queueClient, reportCache, metrics)
	billingHandler := billing.NewHandler(logger, billingService)

	idempotencyStore := shared.NewIdempotencyStore(pool)
	paymentsRepo := payments.NewRepository(pool)
	paymentLinks := payments.NewHostedLinkGenerator(cfg.PaymentLinkBaseURL)
	paymentsService := payments.NewService(logger, paymentsRepo, billingService, idempotencyStore, paymentLinks)
	paymentsHandler := payments.NewHandler(logger, paymentsService)

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobHandler := jobs.NewHandler(inspector, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:           logger,
		Config:           cfg,
		TenantHandler:    tenantHandler,
		TenantMiddleware: tenantMiddleware,
		CustomersHandler: customersHandler,
		BillingHandler:   billingHandler,
		PaymentsHandler:  paymentsHandler,
		ReportsHandler:   reportsHandler,
		JobHandler:       jobHandler,
		Metrics:          metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
