package app

import (
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/himanshudhami/InvoiceX-sub001/internal/accounting"
	"github.com/himanshudhami/InvoiceX-sub001/internal/accounting/accounts"
	"github.com/himanshudhami/InvoiceX-sub001/internal/accounting/journals"
	"github.com/himanshudhami/InvoiceX-sub001/internal/accounting/periods"
	"github.com/himanshudhami/InvoiceX-sub001/internal/accounting/posting"
	"github.com/himanshudhami/InvoiceX-sub001/internal/accounting/reports"
	"github.com/himanshudhami/InvoiceX-sub001/internal/accounting/rules"
	"github.com/himanshudhami/InvoiceX-sub001/internal/audit"
	"github.com/himanshudhami/InvoiceX-sub001/internal/integration"
	"github.com/himanshudhami/InvoiceX-sub001/internal/shared"
)

// LedgerDeps are the process-level resources the ledger is built from.
type LedgerDeps struct {
	Pool    *pgxpool.Pool
	Redis   *redis.Client
	Config  *Config
	Logger  *slog.Logger
	Metrics posting.MetricsPort
}

// Ledger is the wired set of ledger services shared by every binary.
type Ledger struct {
	Services accounting.Services
	Cache    *reports.Cache
	Hooks    *integration.Hooks
	Audit    *audit.Service
	Calendar periods.Calendar
}

// NewLedger builds repositories and services over deps.
func NewLedger(deps LedgerDeps) *Ledger {
	cfg := deps.Config
	if cfg == nil {
		cfg = &Config{LedgerBaseCurrency: "INR", LedgerFiscalStartMonth: 4}
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	calendar := periods.NewCalendar(cfg.LedgerFiscalStartMonth)
	cache := reports.NewCache(deps.Redis, cfg.ReportCacheTTL)

	accountService := accounts.NewService(accounts.NewRepository(deps.Pool), logger.With(slog.String("component", "accounts")))
	journalService := journals.NewService(journals.NewRepository(deps.Pool))
	rulesRepo := rules.NewRepository(deps.Pool)
	rulesService := rules.NewService(rulesRepo, accountService, rules.DefaultSchema, logger.With(slog.String("component", "rules")))
	periodsRepo := periods.NewRepository(deps.Pool)
	periodService := periods.NewService(periodsRepo, calendar)

	postingService := posting.NewService(
		posting.NewRepository(deps.Pool),
		rules.NewMatcher(rulesRepo),
		periods.NewGuard(periodsRepo, calendar),
		shared.NewAuditLogger(deps.Pool),
		posting.Config{BaseCurrency: cfg.LedgerBaseCurrency, Calendar: calendar},
		logger.With(slog.String("component", "posting")),
	)
	postingService.WithCache(cache)
	if deps.Metrics != nil {
		postingService.WithMetrics(deps.Metrics)
	}

	reportService := reports.NewService(reports.NewRepository(deps.Pool), cache, calendar, logger.With(slog.String("component", "reports")))

	return &Ledger{
		Services: accounting.Services{
			Accounts: accountService,
			Journals: journalService,
			Rules:    rulesService,
			Periods:  periodService,
			Posting:  postingService,
			Reports:  reportService,
		},
		Cache:    cache,
		Hooks:    integration.NewHooks(postingService, logger.With(slog.String("component", "integration"))),
		Audit:    audit.NewService(audit.NewRepository(deps.Pool)),
		Calendar: calendar,
	}
}
