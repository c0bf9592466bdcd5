package reports

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/himanshudhami/InvoiceX-sub001/internal/accounting/periods"
)

// Service coordinates report queries with the cache layer.
type Service struct {
	repo     Repository
	cache    *Cache
	calendar periods.Calendar
	logger   *slog.Logger
	now      func() time.Time
}

// NewService wires a Repository with a Cache helper. cache may be nil.
func NewService(repo Repository, cache *Cache, calendar periods.Calendar, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, cache: cache, calendar: calendar, logger: logger, now: time.Now}
}

// WithNow overrides the clock used to stamp recalculated rows.
func (s *Service) WithNow(fn func() time.Time) *Service {
	if fn != nil {
		s.now = fn
	}
	return s
}

func dateToken(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Format("2006-01-02")
}

// TrialBalance returns the grouped trial balance for [from, to].
func (s *Service) TrialBalance(ctx context.Context, companyID int64, from, to time.Time) (TrialBalance, error) {
	var out TrialBalance
	key, err := s.cache.BuildKey(ctx, companyID, "tb", dateToken(from), dateToken(to))
	if err != nil {
		return out, err
	}
	err = s.cache.FetchJSON(ctx, key, &out, func(ctx context.Context) (interface{}, error) {
		list, err := s.repo.Balances(ctx, companyID, from, to)
		if err != nil {
			return nil, err
		}
		return BuildTrialBalance(list), nil
	})
	return out, err
}

// IncomeStatement returns revenue and expense movement for [from, to].
func (s *Service) IncomeStatement(ctx context.Context, companyID int64, from, to time.Time) (ProfitAndLoss, error) {
	var out ProfitAndLoss
	key, err := s.cache.BuildKey(ctx, companyID, "pl", dateToken(from), dateToken(to))
	if err != nil {
		return out, err
	}
	err = s.cache.FetchJSON(ctx, key, &out, func(ctx context.Context) (interface{}, error) {
		list, err := s.repo.Balances(ctx, companyID, from, to)
		if err != nil {
			return nil, err
		}
		return BuildProfitAndLoss(list), nil
	})
	return out, err
}

// BalanceSheet returns closing positions as of asOf.
func (s *Service) BalanceSheet(ctx context.Context, companyID int64, asOf time.Time) (BalanceSheet, error) {
	var out BalanceSheet
	key, err := s.cache.BuildKey(ctx, companyID, "bs", dateToken(asOf))
	if err != nil {
		return out, err
	}
	err = s.cache.FetchJSON(ctx, key, &out, func(ctx context.Context) (interface{}, error) {
		list, err := s.repo.Balances(ctx, companyID, time.Time{}, asOf)
		if err != nil {
			return nil, err
		}
		return BuildBalanceSheet(list), nil
	})
	return out, err
}

// AccountLedger lists one account's posted lines with a running balance.
func (s *Service) AccountLedger(ctx context.Context, companyID, accountID int64, from, to time.Time) (AccountLedger, error) {
	var out AccountLedger
	key, err := s.cache.BuildKey(ctx, companyID, "ledger", strconv.FormatInt(accountID, 10), dateToken(from), dateToken(to))
	if err != nil {
		return out, err
	}
	err = s.cache.FetchJSON(ctx, key, &out, func(ctx context.Context) (interface{}, error) {
		var (
			acc   AccountBalance
			lines []LedgerLine
		)
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			var err error
			acc, err = s.repo.AccountBalance(gctx, companyID, accountID, from, to)
			return err
		})
		g.Go(func() error {
			var err error
			lines, err = s.repo.LedgerLines(gctx, companyID, accountID, from, to)
			return err
		})
		if err := g.Wait(); err != nil {
			return nil, err
		}
		return BuildAccountLedger(acc, lines), nil
	})
	return out, err
}

// Subledgers returns per-party balances derived from posted lines. An empty
// kind returns every kind.
func (s *Service) Subledgers(ctx context.Context, companyID int64, kind string) ([]SubledgerBalance, error) {
	var out []SubledgerBalance
	key, err := s.cache.BuildKey(ctx, companyID, "subledger", kind)
	if err != nil {
		return nil, err
	}
	err = s.cache.FetchJSON(ctx, key, &out, func(ctx context.Context) (interface{}, error) {
		facts, err := s.repo.SubledgerFacts(ctx, companyID, kind)
		if err != nil {
			return nil, err
		}
		return BuildSubledgerBalances(facts), nil
	})
	return out, err
}

// PeriodBalances returns the stored period rows for a company.
func (s *Service) PeriodBalances(ctx context.Context, companyID int64) ([]PeriodBalance, error) {
	return s.repo.StoredPeriods(ctx, companyID)
}

// Recalculate rebuilds account_period_balances from journal lines. A
// companyID of zero rebuilds every company.
func (s *Service) Recalculate(ctx context.Context, companyID int64) (int, error) {
	started := s.now()
	written, err := s.repo.RebuildPeriods(ctx, companyID, func(bases map[int64]AccountBasis, moves []PeriodMovement) []PeriodBalance {
		return RecalculatePeriodBalances(s.calendar, bases, moves, started)
	})
	if err != nil {
		return 0, fmt.Errorf("reports: recalculate company %d: %w", companyID, err)
	}
	if err := s.cache.Invalidate(ctx, companyID); err != nil {
		s.logger.Warn("report cache invalidation failed", slog.Int64("company_id", companyID), slog.Any("error", err))
	}
	s.logger.Info("period balances recalculated",
		slog.Int64("company_id", companyID),
		slog.Int("rows", written),
		slog.Duration("elapsed", s.now().Sub(started)))
	return written, nil
}

// CheckIntegrity compares cached running balances, subledger rows and period
// rows with what the posted lines imply. Running balances and subledgers are
// checked ledger-wide since global accounts aggregate every company; period
// rows are checked for companyID, or all companies when it is zero.
func (s *Service) CheckIntegrity(ctx context.Context, companyID int64) (IntegrityReport, error) {
	var (
		states  []AccountState
		stored  []SubledgerBalance
		facts   []SubledgerFact
		periods []PeriodBalance
		bases   map[int64]AccountBasis
		moves   []PeriodMovement
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) { states, err = s.repo.AccountStates(gctx); return })
	g.Go(func() (err error) { stored, err = s.repo.StoredSubledgers(gctx, 0); return })
	g.Go(func() (err error) { facts, err = s.repo.SubledgerFacts(gctx, 0, ""); return })
	g.Go(func() (err error) { periods, err = s.repo.StoredPeriods(gctx, companyID); return })
	g.Go(func() (err error) { bases, err = s.repo.Bases(gctx); return })
	g.Go(func() (err error) { moves, err = s.repo.Movements(gctx, companyID); return })
	if err := g.Wait(); err != nil {
		return IntegrityReport{}, fmt.Errorf("reports: integrity facts: %w", err)
	}

	checkedAt := s.now()
	drifts := CheckIntegrity(IntegrityFacts{
		Accounts:         states,
		StoredSubledgers: stored,
		DerivedSubledger: BuildSubledgerBalances(facts),
		StoredPeriods:    periods,
		DerivedPeriods:   RecalculatePeriodBalances(s.calendar, bases, moves, checkedAt),
	})
	report := IntegrityReport{CompanyID: companyID, CheckedAt: checkedAt, Drifts: drifts}
	if !report.OK() {
		s.logger.Warn("ledger drift detected", slog.Int64("company_id", companyID), slog.Int("drifts", len(drifts)))
	}
	return report, nil
}
