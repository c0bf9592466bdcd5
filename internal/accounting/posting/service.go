package posting

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/himanshudhami/InvoiceX-sub001/internal/accounting/accounts"
	"github.com/himanshudhami/InvoiceX-sub001/internal/accounting/journals"
	"github.com/himanshudhami/InvoiceX-sub001/internal/accounting/periods"
	"github.com/himanshudhami/InvoiceX-sub001/internal/accounting/rules"
	"github.com/himanshudhami/InvoiceX-sub001/internal/accounting/shared"
	internalShared "github.com/himanshudhami/InvoiceX-sub001/internal/shared"
)

// Config carries ledger-wide settings.
type Config struct {
	BaseCurrency string
	Calendar     periods.Calendar
}

// Service turns business events into posted journal entries and maintains
// the derived balances in the same unit of work.
type Service struct {
	repo     Repository
	matcher  RuleMatcher
	guard    PeriodGuard
	audit    AuditPort
	cache    CacheInvalidator
	metrics  MetricsPort
	cfg      Config
	logger   *slog.Logger
	validate *validator.Validate
	now      func() time.Time
}

// NewService constructs the posting engine.
func NewService(repo Repository, matcher RuleMatcher, guard PeriodGuard, audit AuditPort, cfg Config, logger *slog.Logger) *Service {
	if cfg.BaseCurrency == "" {
		cfg.BaseCurrency = shared.DefaultCurrency
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		repo:     repo,
		matcher:  matcher,
		guard:    guard,
		audit:    audit,
		cfg:      cfg,
		logger:   logger,
		validate: validator.New(),
		now:      time.Now,
	}
}

// WithNow overrides the clock for testing.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// WithCache registers the report cache to invalidate after each posting.
func (s *Service) WithCache(cache CacheInvalidator) { s.cache = cache }

// WithMetrics registers the posting metrics sink.
func (s *Service) WithMetrics(m MetricsPort) { s.metrics = m }

// Post applies the matching rule to req and records the resulting entry. A key
// that was already posted returns the stored entry with Created set to false.
func (s *Service) Post(ctx context.Context, req Request) (Result, error) {
	started := s.now()
	res, err := s.post(ctx, req)
	outcome := OutcomePosted
	switch {
	case err != nil:
		outcome = OutcomeFailed
		if s.metrics != nil {
			s.metrics.ObserveFailure(string(shared.Classify(err)))
		}
	case !res.Created:
		outcome = OutcomeDuplicate
	}
	if s.metrics != nil {
		s.metrics.ObservePosting(req.SourceType, outcome, s.now().Sub(started))
	}
	return res, err
}

func (s *Service) post(ctx context.Context, req Request) (Result, error) {
	if err := s.validate.Struct(req); err != nil {
		return Result{}, fmt.Errorf("%w: %v", shared.ErrInvalidRequest, err)
	}
	key := req.Key()
	if existing, ok, err := s.repo.FindByKey(ctx, req.CompanyID, key); err != nil {
		return Result{}, err
	} else if ok {
		return Result{Entry: existing}, nil
	}

	fields := req.fields()
	fiscalYear := s.cfg.Calendar.FiscalYear(req.EventDate)
	rule, err := s.matcher.Select(ctx, rules.Query{
		CompanyID:    req.CompanyID,
		SourceType:   req.SourceType,
		TriggerEvent: req.TriggerEvent,
		EventDate:    req.EventDate,
		FiscalYear:   fiscalYear,
		Fields:       fields,
	})
	if err != nil {
		s.logger.Warn("posting rule selection failed", slog.String("key", key.String()),
			slog.Int64("company_id", req.CompanyID), slog.Any("error", err))
		return Result{}, err
	}

	rendered, err := rules.Render(rule.Template, fields, rules.RenderOptions{RuleID: rule.ID, BaseCurrency: s.cfg.BaseCurrency})
	if err != nil {
		s.recordFailure(ctx, rule, req, err)
		return Result{}, err
	}

	var (
		entry   journals.JournalEntry
		created bool
	)
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if err := tx.LockKey(ctx, req.CompanyID, key); err != nil {
			return err
		}
		found, ok, err := tx.FindByKey(ctx, req.CompanyID, key)
		if err != nil {
			return err
		}
		if ok {
			entry = found
			return nil
		}

		lines := make([]journals.JournalLine, 0, len(rendered))
		for _, rl := range rendered {
			lines = append(lines, rl.JournalLine())
		}
		chart, err := lockChart(ctx, tx, req.CompanyID, lines)
		if err != nil {
			return err
		}
		if err := resolveLines(chart, req.CompanyID, rule.ID, lines); err != nil {
			return err
		}
		if err := s.ensureOpen(ctx, req.CompanyID, req.EventDate); err != nil {
			return err
		}
		debit, credit, err := journals.ValidateLines(lines)
		if err != nil {
			return err
		}
		number, err := tx.NextEntryNumber(ctx, req.CompanyID, fiscalYear)
		if err != nil {
			return err
		}

		postedAt := s.now()
		ruleID := rule.ID
		inserted, err := tx.InsertEntry(ctx, journals.JournalEntry{
			CompanyID:       req.CompanyID,
			Number:          number,
			Date:            req.EventDate,
			FiscalYear:      fiscalYear,
			Status:          journals.JournalStatusPosted,
			SourceType:      req.SourceType,
			SourceID:        req.SourceID,
			SourceNumber:    req.SourceNumber,
			TriggerEvent:    req.TriggerEvent,
			TotalDebit:      debit,
			TotalCredit:     credit,
			RuleID:          &ruleID,
			RulePackVersion: rule.PackVersion,
			Description:     entryDescription(rule, req, fields),
			CreatedBy:       req.ActorID,
			PostedAt:        &postedAt,
		})
		if err != nil {
			return err
		}
		if err := tx.InsertLines(ctx, inserted.ID, lines); err != nil {
			return err
		}
		if err := applyBalances(ctx, tx, s.cfg.Calendar, req.CompanyID, req.EventDate, lines, chart); err != nil {
			return err
		}
		usage, err := rules.NewUsageLog(rule, req.CompanyID, req.SourceType, req.SourceID, req.TriggerEvent, &inserted.ID, nil)
		if err != nil {
			return err
		}
		if err := tx.InsertUsageLog(ctx, usage); err != nil {
			return err
		}
		for i := range lines {
			lines[i].EntryID = inserted.ID
		}
		inserted.Lines = lines
		entry = inserted
		created = true
		return nil
	})

	var conflict *shared.ConcurrentPostingConflict
	if errors.As(err, &conflict) {
		found, ok, ferr := s.repo.FindByKey(ctx, req.CompanyID, key)
		if ferr == nil && ok {
			return Result{Entry: found}, nil
		}
		return Result{}, err
	}
	if err != nil {
		s.recordFailure(ctx, rule, req, err)
		return Result{}, err
	}
	if !created {
		return Result{Entry: entry}, nil
	}

	s.afterCommit(ctx, entry, req.ActorID, "journal.post", map[string]any{
		"number":        entry.Number,
		"source_type":   req.SourceType,
		"source_id":     req.SourceID,
		"trigger_event": req.TriggerEvent,
		"rule_id":       rule.ID,
	})
	s.logger.Info("journal posted", slog.Int64("entry_id", entry.ID), slog.String("number", entry.Number),
		slog.String("key", key.String()), slog.Int64("rule_id", rule.ID))
	return Result{Entry: entry, Created: true}, nil
}

// Reverse posts a mirror entry for a posted entry and links the two. Repeating a
// reversal returns the existing reversing entry with Created unset.
func (s *Service) Reverse(ctx context.Context, in journals.ReverseInput) (Result, error) {
	started := s.now()
	res, err := s.reverse(ctx, in)
	if s.metrics != nil {
		outcome := OutcomeReversed
		switch {
		case err != nil:
			outcome = OutcomeFailed
			s.metrics.ObserveFailure(string(shared.Classify(err)))
		case !res.Created:
			outcome = OutcomeDuplicate
		}
		s.metrics.ObservePosting("reversal", outcome, s.now().Sub(started))
	}
	return res, err
}

func (s *Service) reverse(ctx context.Context, in journals.ReverseInput) (Result, error) {
	if err := s.validate.Struct(in); err != nil {
		return Result{}, fmt.Errorf("%w: %v", shared.ErrInvalidRequest, err)
	}
	original, err := s.repo.Get(ctx, in.EntryID)
	if err != nil {
		return Result{}, err
	}
	key := journals.ReversalKey(original.ID)
	if existing, ok, err := s.repo.FindByKey(ctx, original.CompanyID, key); err != nil {
		return Result{}, err
	} else if ok {
		return Result{Entry: existing}, nil
	}

	date := s.now()
	if in.Date != nil {
		date = *in.Date
	}
	fiscalYear := s.cfg.Calendar.FiscalYear(date)

	var (
		entry   journals.JournalEntry
		created bool
	)
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if err := tx.LockKey(ctx, original.CompanyID, key); err != nil {
			return err
		}
		found, ok, err := tx.FindByKey(ctx, original.CompanyID, key)
		if err != nil {
			return err
		}
		if ok {
			entry = found
			return nil
		}
		current, err := tx.GetEntryForUpdate(ctx, original.ID)
		if err != nil {
			return err
		}
		if current.Status != journals.JournalStatusPosted || current.IsReversed {
			return fmt.Errorf("reverse %s in status %s: %w", current.Number, current.Status, shared.ErrInvalidStatus)
		}
		if err := s.ensureOpen(ctx, current.CompanyID, date); err != nil {
			return err
		}

		lines := journals.ReversedLines(current.Lines)
		ids := make([]int64, 0, len(lines))
		for _, l := range lines {
			ids = append(ids, l.AccountID)
		}
		locked, err := tx.LockAccountsByID(ctx, uniqueIDs(ids))
		if err != nil {
			return err
		}
		chart := accounts.NewChart(locked)
		for _, l := range lines {
			acc, ok := chart.ByID(l.AccountID)
			if !ok {
				return &shared.AccountNotFoundError{CompanyID: current.CompanyID, Code: l.AccountCode}
			}
			if err := accounts.CheckSubledger(acc, string(l.Subledger.Kind())); err != nil {
				return err
			}
		}
		number, err := tx.NextEntryNumber(ctx, current.CompanyID, fiscalYear)
		if err != nil {
			return err
		}

		postedAt := s.now()
		originalID := current.ID
		inserted, err := tx.InsertEntry(ctx, journals.JournalEntry{
			CompanyID:    current.CompanyID,
			Number:       number,
			Date:         date,
			FiscalYear:   fiscalYear,
			Status:       journals.JournalStatusPosted,
			SourceType:   key.SourceType,
			SourceID:     key.SourceID,
			SourceNumber: current.Number,
			TriggerEvent: key.TriggerEvent,
			TotalDebit:   current.TotalCredit,
			TotalCredit:  current.TotalDebit,
			ReversalOfID: &originalID,
			Description:  journals.ReversalDescription(in.Reason, current.Number),
			CreatedBy:    in.ActorID,
			PostedAt:     &postedAt,
		})
		if err != nil {
			return err
		}
		if err := tx.InsertLines(ctx, inserted.ID, lines); err != nil {
			return err
		}
		if err := applyBalances(ctx, tx, s.cfg.Calendar, current.CompanyID, date, lines, chart); err != nil {
			return err
		}
		if err := tx.MarkReversed(ctx, current.ID, inserted.ID); err != nil {
			return err
		}
		for i := range lines {
			lines[i].EntryID = inserted.ID
		}
		inserted.Lines = lines
		entry = inserted
		created = true
		return nil
	})

	var conflict *shared.ConcurrentPostingConflict
	if errors.As(err, &conflict) {
		found, ok, ferr := s.repo.FindByKey(ctx, original.CompanyID, key)
		if ferr == nil && ok {
			return Result{Entry: found}, nil
		}
		return Result{}, err
	}
	if err != nil {
		return Result{}, err
	}
	if created {
		s.afterCommit(ctx, entry, in.ActorID, "journal.reverse", map[string]any{
			"number":      entry.Number,
			"reversal_of": original.ID,
			"reason":      in.Reason,
		})
		s.logger.Info("journal reversed", slog.Int64("entry_id", original.ID), slog.Int64("reversal_id", entry.ID))
	}
	return Result{Entry: entry, Created: created}, nil
}

func (s *Service) ensureOpen(ctx context.Context, companyID int64, date time.Time) error {
	if s.guard == nil {
		return nil
	}
	return s.guard.EnsureOpen(ctx, companyID, date)
}

// recordFailure writes a failed usage-log row. It runs outside the rolled back
// unit so the failure survives.
func (s *Service) recordFailure(ctx context.Context, rule rules.Rule, req Request, cause error) {
	usage, err := rules.NewUsageLog(rule, req.CompanyID, req.SourceType, req.SourceID, req.TriggerEvent, nil, cause)
	if err == nil {
		err = s.repo.RecordUsage(ctx, usage)
	}
	if err != nil {
		s.logger.Warn("record rule usage failed", slog.Int64("rule_id", rule.ID), slog.Any("error", err))
	}
	s.logger.Warn("posting failed", slog.String("key", req.Key().String()), slog.Int64("rule_id", rule.ID),
		slog.String("class", string(shared.Classify(cause))), slog.Any("error", cause))
}

func (s *Service) afterCommit(ctx context.Context, entry journals.JournalEntry, actorID int64, action string, meta map[string]any) {
	if s.cache != nil {
		if err := s.cache.Invalidate(ctx, entry.CompanyID); err != nil {
			s.logger.Warn("report cache invalidation failed", slog.Int64("company_id", entry.CompanyID), slog.Any("error", err))
		}
	}
	if s.audit != nil {
		err := s.audit.Record(ctx, internalShared.AuditLog{
			ActorID:  actorID,
			Action:   action,
			Entity:   "journal_entry",
			EntityID: fmt.Sprintf("%d", entry.ID),
			Meta:     meta,
			At:       s.now(),
		})
		if err != nil {
			s.logger.Warn("audit record failed", slog.Int64("entry_id", entry.ID), slog.String("action", action),
				slog.Any("error", err))
		}
	}
}

func entryDescription(rule rules.Rule, req Request, fields rules.Fields) string {
	if rule.Template.Description != "" {
		return rules.Interpolate(rule.Template.Description, fields)
	}
	ref := req.SourceNumber
	if ref == "" {
		ref = req.SourceID
	}
	return fmt.Sprintf("%s %s", req.SourceType, ref)
}

func lockChart(ctx context.Context, tx TxRepository, companyID int64, lines []journals.JournalLine) (accounts.Chart, error) {
	seen := make(map[string]struct{}, len(lines))
	codes := make([]string, 0, len(lines))
	for _, l := range lines {
		if _, ok := seen[l.AccountCode]; ok {
			continue
		}
		seen[l.AccountCode] = struct{}{}
		codes = append(codes, l.AccountCode)
	}
	sort.Strings(codes)
	locked, err := tx.LockAccounts(ctx, companyID, codes)
	if err != nil {
		return accounts.Chart{}, err
	}
	return accounts.NewChart(locked), nil
}

// resolveLines fills account ids and enforces the active and control account rules.
func resolveLines(chart accounts.Chart, companyID, ruleID int64, lines []journals.JournalLine) error {
	for i := range lines {
		acc, ok := chart.Lookup(lines[i].AccountCode)
		if !ok {
			return &shared.AccountNotFoundError{CompanyID: companyID, Code: lines[i].AccountCode, RuleID: ruleID}
		}
		if !acc.IsActive {
			return &shared.AccountNotFoundError{CompanyID: companyID, Code: lines[i].AccountCode, RuleID: ruleID, Inactive: true}
		}
		if err := accounts.CheckSubledger(acc, string(lines[i].Subledger.Kind())); err != nil {
			return fmt.Errorf("line %d: %w", lines[i].LineNo, err)
		}
		lines[i].AccountID = acc.ID
	}
	return nil
}

func uniqueIDs(ids []int64) []int64 {
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	out := ids[:0]
	for i, id := range ids {
		if i > 0 && id == ids[i-1] {
			continue
		}
		out = append(out, id)
	}
	return out
}

type accountMovement struct {
	account accounts.Account
	debit   decimal.Decimal
	credit  decimal.Decimal
	count   int
}

// applyBalances moves the account, subledger and period balances for lines.
// Accounts are touched in ascending id order.
func applyBalances(ctx context.Context, tx TxRepository, cal periods.Calendar, companyID int64, date time.Time, lines []journals.JournalLine, chart accounts.Chart) error {
	moves := make(map[int64]*accountMovement, len(lines))
	for _, l := range lines {
		acc, ok := chart.ByID(l.AccountID)
		if !ok {
			return &shared.AccountNotFoundError{CompanyID: companyID, Code: l.AccountCode}
		}
		m, ok := moves[acc.ID]
		if !ok {
			m = &accountMovement{account: acc, debit: decimal.Zero, credit: decimal.Zero}
			moves[acc.ID] = m
		}
		m.debit = m.debit.Add(l.Debit)
		m.credit = m.credit.Add(l.Credit)
		m.count++
	}
	ids := make([]int64, 0, len(moves))
	for id := range moves {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	periodStart := cal.PeriodStart(date)
	fiscalYear := cal.FiscalYear(date)
	for _, id := range ids {
		m := moves[id]
		delta := m.account.Delta(m.debit, m.credit)
		if err := tx.AddAccountBalance(ctx, id, delta); err != nil {
			return err
		}
		if err := tx.ApplyPeriodDelta(ctx, PeriodDelta{
			AccountID:   id,
			CompanyID:   companyID,
			PeriodStart: periodStart,
			FiscalYear:  fiscalYear,
			BaseOpening: OwnOpening(m.account, companyID),
			Debit:       m.debit,
			Credit:      m.credit,
			Delta:       delta,
			Count:       m.count,
		}); err != nil {
			return err
		}
	}

	for _, l := range lines {
		if l.Subledger.IsNone() {
			continue
		}
		acc, _ := chart.ByID(l.AccountID)
		if err := tx.UpsertSubledgerBalance(ctx, SubledgerDelta{
			AccountID: acc.ID,
			CompanyID: companyID,
			Subledger: l.Subledger,
			Debit:     l.Debit,
			Credit:    l.Credit,
			Balance:   acc.Delta(l.Debit, l.Credit),
		}); err != nil {
			return err
		}
	}
	return nil
}

// OwnOpening returns the account's opening balance when companyID owns it.
// Global accounts start every company at zero.
func OwnOpening(a accounts.Account, companyID int64) decimal.Decimal {
	if a.CompanyID != nil && *a.CompanyID == companyID {
		return a.OpeningBalance
	}
	return decimal.Zero
}
