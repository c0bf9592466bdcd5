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

	"github.com/himanshudhami/InvoiceX-sub001/internal/accounting"
	"github.com/himanshudhami/InvoiceX-sub001/internal/app"
	audithttp "github.com/himanshudhami/InvoiceX-sub001/internal/audit/http"
	"github.com/himanshudhami/InvoiceX-sub001/internal/integration"
	"github.com/himanshudhami/InvoiceX-sub001/internal/observability"
	"github.com/himanshudhami/InvoiceX-sub001/internal/platform/cache"
	"github.com/himanshudhami/InvoiceX-sub001/internal/platform/db"
	"github.com/himanshudhami/InvoiceX-sub001/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping server startup")
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

	if cfg.AutoMigrate {
		if err := db.Migrate(cfg.PGDSN, true, logger); err != nil {
			logger.Error("migrate", slog.Any("error", err))
			os.Exit(1)
		}
	}

	pool, err := db.New(ctx, cfg.PGDSN, cfg.PGMaxConns)
	if err != nil {
		logger.Error("connect database", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.Redis())
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
	ledger := app.NewLedger(app.LedgerDeps{
		Pool:    pool,
		Redis:   redisClient,
		Config:  cfg,
		Logger:  logger,
		Metrics: metrics,
	})

	jobClient := jobs.NewClient(cfg.Redis().Asynq())
	defer jobClient.Close()
	inspector := asynq.NewInspector(cfg.Redis().Asynq())
	defer inspector.Close()

	router := app.NewRouter(app.RouterParams{
		Logger:        logger,
		Config:        cfg,
		LedgerHandler: accounting.NewHandler(logger, ledger.Services),
		EventsHandler: integration.NewHandler(ledger.Hooks, logger),
		AuditHandler:  audithttp.NewHandler(logger, ledger.Audit),
		JobHandler:    jobs.NewHandler(inspector, jobClient, logger),
		Metrics:       metrics,
		Readiness: map[string]app.Pinger{
			"postgres": pool,
			"redis":    cache.Probe{Client: redisClient},
		},
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}
	if err := app.Serve(ctx, server, logger, 10*time.Second); err != nil {
		logger.Error("http server", slog.Any("error", err))
		os.Exit(1)
	}
}
