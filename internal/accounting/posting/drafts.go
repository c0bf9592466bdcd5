package posting

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/himanshudhami/InvoiceX-sub001/internal/accounting/accounts"
	"github.com/himanshudhami/InvoiceX-sub001/internal/accounting/journals"
	"github.com/himanshudhami/InvoiceX-sub001/internal/accounting/shared"
)

// CreateDraft stores a manual entry without touching balances. Drafts may be
// unbalanced until they are submitted or posted.
func (s *Service) CreateDraft(ctx context.Context, in journals.DraftInput) (journals.JournalEntry, error) {
	lines, debit, credit, err := s.draftLines(in)
	if err != nil {
		return journals.JournalEntry{}, err
	}
	var entry journals.JournalEntry
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		chart, err := lockChart(ctx, tx, in.CompanyID, lines)
		if err != nil {
			return err
		}
		if err := resolveLines(chart, in.CompanyID, 0, lines); err != nil {
			return err
		}
		inserted, err := tx.InsertEntry(ctx, journals.JournalEntry{
			CompanyID:   in.CompanyID,
			Date:        in.Date,
			FiscalYear:  s.cfg.Calendar.FiscalYear(in.Date),
			Status:      journals.JournalStatusDraft,
			TotalDebit:  debit,
			TotalCredit: credit,
			Description: in.Description,
			CreatedBy:   in.ActorID,
		})
		if err != nil {
			return err
		}
		if err := tx.InsertLines(ctx, inserted.ID, lines); err != nil {
			return err
		}
		inserted.Lines = lines
		entry = inserted
		return nil
	})
	if err != nil {
		return journals.JournalEntry{}, err
	}
	s.afterDraft(ctx, entry, in.ActorID, "journal.draft.create")
	return entry, nil
}

// UpdateDraft replaces the header and lines of a draft entry.
func (s *Service) UpdateDraft(ctx context.Context, id int64, in journals.DraftInput) (journals.JournalEntry, error) {
	lines, debit, credit, err := s.draftLines(in)
	if err != nil {
		return journals.JournalEntry{}, err
	}
	var entry journals.JournalEntry
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		current, err := tx.GetEntryForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if current.CompanyID != in.CompanyID {
			return shared.ErrJournalNotFound
		}
		if !current.Status.Editable() {
			return fmt.Errorf("entry %d in status %s: %w", id, current.Status, shared.ErrPostedEntryImmutable)
		}
		chart, err := lockChart(ctx, tx, in.CompanyID, lines)
		if err != nil {
			return err
		}
		if err := resolveLines(chart, in.CompanyID, 0, lines); err != nil {
			return err
		}
		current.Date = in.Date
		current.FiscalYear = s.cfg.Calendar.FiscalYear(in.Date)
		current.Description = in.Description
		current.TotalDebit = debit
		current.TotalCredit = credit
		if err := tx.UpdateDraftHeader(ctx, current); err != nil {
			return err
		}
		if err := tx.DeleteLines(ctx, id); err != nil {
			return err
		}
		if err := tx.InsertLines(ctx, id, lines); err != nil {
			return err
		}
		current.Lines = lines
		entry = current
		return nil
	})
	if err != nil {
		return journals.JournalEntry{}, err
	}
	s.afterDraft(ctx, entry, in.ActorID, "journal.draft.update")
	return entry, nil
}

// SubmitDraft moves a balanced draft to pending approval.
func (s *Service) SubmitDraft(ctx context.Context, id, actorID int64) (journals.JournalEntry, error) {
	var entry journals.JournalEntry
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		current, err := tx.GetEntryForUpdate(ctx, id)
		if err != nil {
			return err
		}
		switch current.Status {
		case journals.JournalStatusDraft:
		case journals.JournalStatusPosted, journals.JournalStatusReversed:
			return fmt.Errorf("entry %d in status %s: %w", id, current.Status, shared.ErrPostedEntryImmutable)
		default:
			return fmt.Errorf("submit entry %d in status %s: %w", id, current.Status, shared.ErrInvalidStatus)
		}
		if _, _, err := journals.ValidateLines(current.Lines); err != nil {
			return err
		}
		if err := tx.SetStatus(ctx, id, journals.JournalStatusPendingApproval); err != nil {
			return err
		}
		current.Status = journals.JournalStatusPendingApproval
		entry = current
		return nil
	})
	if err != nil {
		return journals.JournalEntry{}, err
	}
	s.afterDraft(ctx, entry, actorID, "journal.draft.submit")
	return entry, nil
}

// PostDraft numbers a draft or pending entry, posts it and applies its balances.
func (s *Service) PostDraft(ctx context.Context, id, actorID int64) (journals.JournalEntry, error) {
	var entry journals.JournalEntry
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		current, err := tx.GetEntryForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if current.Status != journals.JournalStatusDraft && current.Status != journals.JournalStatusPendingApproval {
			return fmt.Errorf("post entry %d in status %s: %w", id, current.Status, shared.ErrInvalidStatus)
		}
		debit, credit, err := journals.ValidateLines(current.Lines)
		if err != nil {
			return err
		}
		ids := make([]int64, 0, len(current.Lines))
		for _, l := range current.Lines {
			ids = append(ids, l.AccountID)
		}
		locked, err := tx.LockAccountsByID(ctx, uniqueIDs(ids))
		if err != nil {
			return err
		}
		chart := accounts.NewChart(locked)
		for _, l := range current.Lines {
			acc, ok := chart.ByID(l.AccountID)
			if !ok || !acc.IsActive {
				return &shared.AccountNotFoundError{CompanyID: current.CompanyID, Code: l.AccountCode, Inactive: ok}
			}
			if err := accounts.CheckSubledger(acc, string(l.Subledger.Kind())); err != nil {
				return fmt.Errorf("line %d: %w", l.LineNo, err)
			}
		}
		if err := s.ensureOpen(ctx, current.CompanyID, current.Date); err != nil {
			return err
		}
		number, err := tx.NextEntryNumber(ctx, current.CompanyID, current.FiscalYear)
		if err != nil {
			return err
		}
		postedAt := s.now()
		current.Number = number
		current.Status = journals.JournalStatusPosted
		current.TotalDebit = debit
		current.TotalCredit = credit
		current.PostedAt = &postedAt
		if err := tx.MarkPosted(ctx, current); err != nil {
			return err
		}
		if err := applyBalances(ctx, tx, s.cfg.Calendar, current.CompanyID, current.Date, current.Lines, chart); err != nil {
			return err
		}
		entry = current
		return nil
	})
	if err != nil {
		return journals.JournalEntry{}, err
	}
	s.afterCommit(ctx, entry, actorID, "journal.post", map[string]any{"number": entry.Number, "manual": true})
	s.logger.Info("manual journal posted", slog.Int64("entry_id", entry.ID), slog.String("number", entry.Number))
	return entry, nil
}

func (s *Service) draftLines(in journals.DraftInput) ([]journals.JournalLine, decimal.Decimal, decimal.Decimal, error) {
	if err := s.validate.Struct(in); err != nil {
		return nil, decimal.Zero, decimal.Zero, fmt.Errorf("%w: %v", shared.ErrInvalidRequest, err)
	}
	lines, err := in.ToLines(s.cfg.BaseCurrency)
	if err != nil {
		return nil, decimal.Zero, decimal.Zero, fmt.Errorf("%w: %v", shared.ErrInvalidRequest, err)
	}
	debit, credit, err := journals.ValidateLines(lines)
	if err != nil && !errors.Is(err, shared.ErrUnbalanced) {
		return nil, decimal.Zero, decimal.Zero, err
	}
	return lines, debit, credit, nil
}

func (s *Service) afterDraft(ctx context.Context, entry journals.JournalEntry, actorID int64, action string) {
	s.afterCommit(ctx, entry, actorID, action, map[string]any{"status": string(entry.Status)})
}
