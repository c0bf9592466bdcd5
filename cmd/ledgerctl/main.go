package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/hibiken/asynq"

	"github.com/himanshudhami/InvoiceX-sub001/cmd/ledgerctl/cli"
	"github.com/himanshudhami/InvoiceX-sub001/internal/app"
	"github.com/himanshudhami/InvoiceX-sub001/internal/platform/cache"
	"github.com/himanshudhami/InvoiceX-sub001/internal/platform/db"
	"github.com/himanshudhami/InvoiceX-sub001/jobs"
)

func main() {
	if err := cli.NewRootCommand(open).Execute(); err != nil {
		os.Exit(1)
	}
}

// open connects to Postgres and, when reachable, Redis. Commands that only touch the
// database still work while Redis is down.
func open(ctx context.Context) (cli.Deps, func(), error) {
	cfg, err := app.LoadConfig()
	if err != nil {
		return cli.Deps{}, nil, err
	}
	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN, 2)
	if err != nil {
		return cli.Deps{}, nil, err
	}
	closers := []func(){pool.Close}

	redisClient, err := cache.New(ctx, cfg.Redis())
	if err != nil {
		logger.Warn("redis unavailable, cache and jobs disabled", slog.Any("error", err))
		redisClient = nil
	} else {
		closers = append(closers, func() { _ = redisClient.Close() })
	}

	ledger := app.NewLedger(app.LedgerDeps{Pool: pool, Redis: redisClient, Config: cfg, Logger: logger})
	deps := cli.Deps{
		Rules:    ledger.Services.Rules,
		Accounts: ledger.Services.Accounts,
		Reports:  ledger.Services.Reports,
		Migrate: func(up bool) error {
			return db.Migrate(cfg.PGDSN, up, logger)
		},
	}
	if redisClient != nil {
		client := jobs.NewClient(cfg.Redis().Asynq())
		inspector := asynq.NewInspector(cfg.Redis().Asynq())
		closers = append(closers, func() {
			_ = client.Close()
			_ = inspector.Close()
		})
		deps.Queue = cli.NewJobsCLI(client, inspector)
	}

	return deps, func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}, nil
}
