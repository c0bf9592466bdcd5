package posting

import (
	"context"
	"encoding/binary"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/himanshudhami/InvoiceX-sub001/internal/accounting/accounts"
	"github.com/himanshudhami/InvoiceX-sub001/internal/accounting/journals"
	"github.com/himanshudhami/InvoiceX-sub001/internal/accounting/rules"
	"github.com/himanshudhami/InvoiceX-sub001/internal/accounting/shared"
	"github.com/himanshudhami/InvoiceX-sub001/internal/platform/db"
)

// advisoryNamespace scopes the advisory lock keys derived for postings.
var advisoryNamespace = uuid.MustParse("6f1c1f0e-4a53-5b61-9c59-3b1f6e0d2a41")

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository returns the PostgreSQL implementation of Repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

func (r *repository) FindByKey(ctx context.Context, companyID int64, key journals.Key) (journals.JournalEntry, bool, error) {
	return journals.FindByKey(ctx, r.pool, companyID, key)
}

func (r *repository) Get(ctx context.Context, id int64) (journals.JournalEntry, error) {
	return journals.GetWithLines(ctx, r.pool, id, false)
}

func (r *repository) RecordUsage(ctx context.Context, log rules.UsageLog) error {
	return rules.InsertUsageLog(ctx, r.pool, log)
}

func (r *repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, pgx.ReadCommitted, func(tx pgx.Tx) error {
		return fn(ctx, &txRepository{tx: tx})
	})
}

type txRepository struct {
	tx pgx.Tx
}

// AdvisoryKey derives the 64-bit advisory lock key for an idempotency key.
func AdvisoryKey(companyID int64, key journals.Key) int64 {
	u := uuid.NewSHA1(advisoryNamespace, []byte(fmt.Sprintf("%d|%s", companyID, key)))
	return int64(binary.BigEndian.Uint64(u[:8]))
}

func (t *txRepository) LockKey(ctx context.Context, companyID int64, key journals.Key) error {
	_, err := t.tx.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, AdvisoryKey(companyID, key))
	return err
}

func (t *txRepository) FindByKey(ctx context.Context, companyID int64, key journals.Key) (journals.JournalEntry, bool, error) {
	return journals.FindByKey(ctx, t.tx, companyID, key)
}

func (t *txRepository) LockAccounts(ctx context.Context, companyID int64, codes []string) ([]accounts.Account, error) {
	return t.lockAccounts(ctx, `SELECT `+accounts.Columns()+` FROM accounts
WHERE (company_id = $1 OR company_id IS NULL) AND code = ANY($2) ORDER BY id FOR UPDATE`, companyID, codes)
}

func (t *txRepository) LockAccountsByID(ctx context.Context, ids []int64) ([]accounts.Account, error) {
	return t.lockAccounts(ctx, `SELECT `+accounts.Columns()+` FROM accounts WHERE id = ANY($1) ORDER BY id FOR UPDATE`, ids)
}

func (t *txRepository) lockAccounts(ctx context.Context, query string, args ...any) ([]accounts.Account, error) {
	rows, err := t.tx.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []accounts.Account
	for rows.Next() {
		a, err := accounts.ScanAccount(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, a)
	}
	return list, rows.Err()
}

func (t *txRepository) NextEntryNumber(ctx context.Context, companyID int64, fiscalYear string) (string, error) {
	var seq int64
	err := t.tx.QueryRow(ctx, `INSERT INTO journal_sequences (company_id, fiscal_year, last_value) VALUES ($1, $2, 1)
ON CONFLICT (company_id, fiscal_year) DO UPDATE SET last_value = journal_sequences.last_value + 1
RETURNING last_value`, companyID, fiscalYear).Scan(&seq)
	if err != nil {
		return "", fmt.Errorf("posting: next entry number: %w", err)
	}
	return journals.FormatNumber(fiscalYear, seq), nil
}

func (t *txRepository) InsertEntry(ctx context.Context, e journals.JournalEntry) (journals.JournalEntry, error) {
	err := t.tx.QueryRow(ctx, `INSERT INTO journal_entries (company_id, entry_number, entry_date, fiscal_year, status,
source_type, source_id, source_number, trigger_event, total_debit, total_credit, reversal_of_id, rule_id,
rule_pack_version, description, created_by, posted_at)
VALUES ($1, NULLIF($2, ''), $3, $4, $5, NULLIF($6, ''), NULLIF($7, ''), $8, NULLIF($9, ''), $10, $11, $12, $13, $14, $15, $16, $17)
RETURNING id, created_at, updated_at`,
		e.CompanyID, e.Number, e.Date, e.FiscalYear, e.Status, e.SourceType, e.SourceID, e.SourceNumber, e.TriggerEvent,
		e.TotalDebit, e.TotalCredit, e.ReversalOfID, e.RuleID, e.RulePackVersion, e.Description, e.CreatedBy, e.PostedAt,
	).Scan(&e.ID, &e.CreatedAt, &e.UpdatedAt)
	if db.IsUniqueViolation(err, "uq_journal_source_key") {
		return journals.JournalEntry{}, &shared.ConcurrentPostingConflict{SourceType: e.SourceType, SourceID: e.SourceID, TriggerEvent: e.TriggerEvent}
	}
	if err != nil {
		return journals.JournalEntry{}, fmt.Errorf("posting: insert entry: %w", err)
	}
	return e, nil
}

func (t *txRepository) InsertLines(ctx context.Context, entryID int64, lines []journals.JournalLine) error {
	batch := &pgx.Batch{}
	for _, l := range lines {
		kind, party := l.Subledger.Columns()
		batch.Queue(`INSERT INTO journal_lines (entry_id, line_no, account_id, account_code, debit, credit, currency,
exchange_rate, foreign_amount, subledger_kind, subledger_id, description)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
			entryID, l.LineNo, l.AccountID, l.AccountCode, l.Debit, l.Credit, l.Currency, l.ExchangeRate, l.ForeignAmount,
			kind, party, l.Description)
	}
	br := t.tx.SendBatch(ctx, batch)
	for range lines {
		if _, err := br.Exec(); err != nil {
			_ = br.Close()
			return fmt.Errorf("posting: insert line: %w", err)
		}
	}
	return br.Close()
}

func (t *txRepository) DeleteLines(ctx context.Context, entryID int64) error {
	_, err := t.tx.Exec(ctx, `DELETE FROM journal_lines WHERE entry_id = $1`, entryID)
	return err
}

func (t *txRepository) GetEntryForUpdate(ctx context.Context, id int64) (journals.JournalEntry, error) {
	return journals.GetWithLines(ctx, t.tx, id, true)
}

func (t *txRepository) UpdateDraftHeader(ctx context.Context, e journals.JournalEntry) error {
	_, err := t.tx.Exec(ctx, `UPDATE journal_entries SET entry_date = $2, fiscal_year = $3, description = $4,
total_debit = $5, total_credit = $6, updated_at = NOW() WHERE id = $1 AND status = 'draft'`,
		e.ID, e.Date, e.FiscalYear, e.Description, e.TotalDebit, e.TotalCredit)
	return err
}

func (t *txRepository) SetStatus(ctx context.Context, id int64, status journals.JournalStatus) error {
	_, err := t.tx.Exec(ctx, `UPDATE journal_entries SET status = $2, updated_at = NOW() WHERE id = $1`, id, status)
	return err
}

func (t *txRepository) MarkPosted(ctx context.Context, e journals.JournalEntry) error {
	_, err := t.tx.Exec(ctx, `UPDATE journal_entries SET status = 'posted', entry_number = $2, total_debit = $3,
total_credit = $4, posted_at = $5, updated_at = NOW() WHERE id = $1`,
		e.ID, e.Number, e.TotalDebit, e.TotalCredit, e.PostedAt)
	return err
}

func (t *txRepository) MarkReversed(ctx context.Context, originalID, reversalID int64) error {
	tag, err := t.tx.Exec(ctx, `UPDATE journal_entries SET status = 'reversed', is_reversed = TRUE, reversed_by_id = $2,
updated_at = NOW() WHERE id = $1 AND status = 'posted'`, originalID, reversalID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrInvalidStatus
	}
	return nil
}

func (t *txRepository) AddAccountBalance(ctx context.Context, accountID int64, delta decimal.Decimal) error {
	_, err := t.tx.Exec(ctx, `UPDATE accounts SET current_balance = current_balance + $2, updated_at = NOW() WHERE id = $1`,
		accountID, delta)
	return err
}

func (t *txRepository) UpsertSubledgerBalance(ctx context.Context, d SubledgerDelta) error {
	_, err := t.tx.Exec(ctx, `INSERT INTO subledger_balances (account_id, company_id, subledger_kind, party_id,
debit_total, credit_total, balance, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
ON CONFLICT (account_id, company_id, subledger_kind, party_id) DO UPDATE SET
debit_total = subledger_balances.debit_total + EXCLUDED.debit_total,
credit_total = subledger_balances.credit_total + EXCLUDED.credit_total,
balance = subledger_balances.balance + EXCLUDED.balance,
updated_at = NOW()`,
		d.AccountID, d.CompanyID, string(d.Subledger.Kind()), d.Subledger.ID(), d.Debit, d.Credit, d.Balance)
	return err
}

// ApplyPeriodDelta adds the movement to its period row, creating it from the
// previous closing when missing, then carries the delta into later periods.
func (t *txRepository) ApplyPeriodDelta(ctx context.Context, d PeriodDelta) error {
	_, err := t.tx.Exec(ctx, `WITH prev AS (
    SELECT COALESCE((SELECT closing FROM account_period_balances
        WHERE account_id = $1 AND company_id = $2 AND period_start < $3
        ORDER BY period_start DESC LIMIT 1), $5::numeric) AS opening
)
INSERT INTO account_period_balances (account_id, company_id, period_start, fiscal_year, opening, period_debit,
    period_credit, closing, txn_count, computed_at)
SELECT $1, $2, $3, $4, prev.opening, $6, $7, prev.opening + $8, $9, NOW() FROM prev
ON CONFLICT (account_id, company_id, period_start) DO UPDATE SET
    period_debit = account_period_balances.period_debit + EXCLUDED.period_debit,
    period_credit = account_period_balances.period_credit + EXCLUDED.period_credit,
    closing = account_period_balances.closing + $8,
    txn_count = account_period_balances.txn_count + EXCLUDED.txn_count,
    computed_at = NOW()`,
		d.AccountID, d.CompanyID, d.PeriodStart, d.FiscalYear, d.BaseOpening, d.Debit, d.Credit, d.Delta, d.Count)
	if err != nil {
		return fmt.Errorf("posting: period balance: %w", err)
	}
	_, err = t.tx.Exec(ctx, `UPDATE account_period_balances SET opening = opening + $4, closing = closing + $4, computed_at = NOW()
WHERE account_id = $1 AND company_id = $2 AND period_start > $3`, d.AccountID, d.CompanyID, d.PeriodStart, d.Delta)
	if err != nil {
		return fmt.Errorf("posting: carry period balance: %w", err)
	}
	return nil
}

func (t *txRepository) InsertUsageLog(ctx context.Context, log rules.UsageLog) error {
	return rules.InsertUsageLog(ctx, t.tx, log)
}
