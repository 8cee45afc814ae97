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
	"github.com/joho/godotenv"

	"github.com/meridian-books/meridian/internal/ap"
	"github.com/meridian-books/meridian/internal/app"
	"github.com/meridian-books/meridian/internal/ar"
	"github.com/meridian-books/meridian/internal/banking"
	"github.com/meridian-books/meridian/internal/integration"
	"github.com/meridian-books/meridian/internal/ledger"
	"github.com/meridian-books/meridian/internal/ledger/reports"
	"github.com/meridian-books/meridian/internal/masterdata/customers"
	"github.com/meridian-books/meridian/internal/masterdata/vendors"
	"github.com/meridian-books/meridian/internal/observability"
	"github.com/meridian-books/meridian/internal/platform/cache"
	"github.com/meridian-books/meridian/internal/platform/db"
	"github.com/meridian-books/meridian/internal/shared"
	"github.com/meridian-books/meridian/internal/tax"
	"github.com/meridian-books/meridian/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	_ = godotenv.Load()

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
		logger.Warn("redis unavailable, report cache disabled", slog.Any("error", err))
	}
	defer func() {
		if redisClient == nil {
			return
		}
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	metrics := observability.NewMetrics()
	auditLogger := shared.NewAuditLogger(pool)
	idempotencyStore := shared.NewIdempotencyStore(pool)

	ledgerRepo := ledger.NewRepository(pool)
	ledgerService := ledger.NewService(ledgerRepo, auditLogger)

	reportsRepo := reports.NewRepository(pool)
	reportsCache := reports.NewCache(redisClient, cfg.ReportCacheTTL)
	reportsService := reports.NewService(reportsRepo, reportsCache)
	ledgerService.WithInvalidator(reportsService)

	hooks := integration.NewHooks(logger, ledgerService, ledgerRepo, ledgerRepo).
		WithMetrics(metrics).
		WithJournalLookup(ledgerRepo)

	taxRepo := tax.NewRepository(pool)
	taxService := tax.NewService(taxRepo, reportsRepo)

	bankingRepo := banking.NewRepository(pool)
	bankingService := banking.NewService(logger, bankingRepo, hooks).WithMetrics(metrics)

	arService := ar.NewService(logger, ar.NewRepository(pool), hooks, auditLogger).WithIdempotency(idempotencyStore)
	apService := ap.NewService(logger, ap.NewRepository(pool), hooks, auditLogger).WithIdempotency(idempotencyStore)

	customersService := customers.NewService(customers.NewRepository(pool))
	vendorsService := vendors.NewService(vendors.NewRepository(pool))

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()

	jobsClient, err := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	if err != nil {
		logger.Error("init jobs client", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := jobsClient.Close(); err != nil {
			logger.Warn("jobs client close", slog.Any("error", err))
		}
	}()

	router := app.NewRouter(app.RouterParams{
		Logger:           logger,
		Config:           cfg,
		Pool:             pool,
		LedgerHandler:    ledger.NewHandler(logger, ledgerService, ledgerRepo),
		ReportsHandler:   reports.NewHandler(logger, reportsService),
		TaxHandler:       tax.NewHandler(logger, taxService),
		BankingHandler:   banking.NewHandler(logger, bankingService).WithStatementLimit(cfg.StatementMaxBytes),
		ARHandler:        ar.NewHandler(logger, arService),
		APHandler:        ap.NewHandler(logger, apService),
		CustomersHandler: customers.NewHandler(logger, customersService),
		VendorsHandler:   vendors.NewHandler(logger, vendorsService),
		JobsHandler:      jobs.NewHandler(inspector, logger).WithClient(jobsClient),
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
