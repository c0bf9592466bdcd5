package reports

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/himanshudhami/InvoiceX-sub001/internal/accounting/accounts"
	"github.com/himanshudhami/InvoiceX-sub001/internal/accounting/journals"
	"github.com/himanshudhami/InvoiceX-sub001/internal/platform/db"
)

// Rebuilder derives period rows from account bases and monthly movements.
type Rebuilder func(bases map[int64]AccountBasis, moves []PeriodMovement) []PeriodBalance

// Repository reads posted-line facts and maintains derived period rows.
// A companyID of zero means every company where the method allows it.
type Repository interface {
	Balances(ctx context.Context, companyID int64, from, to time.Time) ([]AccountBalance, error)
	AccountBalance(ctx context.Context, companyID, accountID int64, from, to time.Time) (AccountBalance, error)
	LedgerLines(ctx context.Context, companyID, accountID int64, from, to time.Time) ([]LedgerLine, error)
	SubledgerFacts(ctx context.Context, companyID int64, kind string) ([]SubledgerFact, error)
	StoredSubledgers(ctx context.Context, companyID int64) ([]SubledgerBalance, error)
	AccountStates(ctx context.Context) ([]AccountState, error)
	Bases(ctx context.Context) (map[int64]AccountBasis, error)
	Movements(ctx context.Context, companyID int64) ([]PeriodMovement, error)
	StoredPeriods(ctx context.Context, companyID int64) ([]PeriodBalance, error)
	RebuildPeriods(ctx context.Context, companyID int64, build Rebuilder) (int, error)
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository returns the Postgres-backed report repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

var (
	minDate = time.Date(1, 1, 1, 0, 0, 0, 0, time.UTC)
	maxDate = time.Date(9999, 12, 31, 0, 0, 0, 0, time.UTC)
)

const postedStatuses = `('posted', 'reversed')`

const balancesQuery = `SELECT a.id, a.code, a.name, a.type, a.normal_balance,
    CASE WHEN a.company_id = $1 THEN a.opening_balance ELSE 0 END,
    COALESCE(SUM(l.debit) FILTER (WHERE e.entry_date < $2), 0),
    COALESCE(SUM(l.credit) FILTER (WHERE e.entry_date < $2), 0),
    COALESCE(SUM(l.debit) FILTER (WHERE e.entry_date >= $2), 0),
    COALESCE(SUM(l.credit) FILTER (WHERE e.entry_date >= $2), 0)
FROM accounts a
LEFT JOIN (journal_lines l JOIN journal_entries e ON e.id = l.entry_id
    AND e.company_id = $1 AND e.status IN ` + postedStatuses + ` AND e.entry_date <= $3)
    ON l.account_id = a.id
WHERE (a.company_id = $1 OR a.company_id IS NULL) AND ($4::bigint = 0 OR a.id = $4)
GROUP BY a.id
ORDER BY a.code, a.id`

func (r *repository) balances(ctx context.Context, companyID, accountID int64, from, to time.Time) ([]AccountBalance, error) {
	if from.IsZero() {
		from = minDate
	}
	if to.IsZero() {
		to = maxDate
	}
	rows, err := r.pool.Query(ctx, balancesQuery, companyID, from, to, accountID)
	if err != nil {
		return nil, fmt.Errorf("reports: balances: %w", err)
	}
	defer rows.Close()
	out := make([]AccountBalance, 0)
	for rows.Next() {
		var (
			ab                  AccountBalance
			preDebit, preCredit decimal.Decimal
		)
		if err := rows.Scan(&ab.AccountID, &ab.Code, &ab.Name, &ab.Type, &ab.NormalBalance, &ab.Opening,
			&preDebit, &preCredit, &ab.Debit, &ab.Credit); err != nil {
			return nil, err
		}
		ab.Opening = ab.Opening.Add(accounts.SignedDelta(ab.NormalBalance, preDebit, preCredit))
		out = append(out, ab)
	}
	return out, rows.Err()
}

func (r *repository) Balances(ctx context.Context, companyID int64, from, to time.Time) ([]AccountBalance, error) {
	return r.balances(ctx, companyID, 0, from, to)
}

func (r *repository) AccountBalance(ctx context.Context, companyID, accountID int64, from, to time.Time) (AccountBalance, error) {
	list, err := r.balances(ctx, companyID, accountID, from, to)
	if err != nil {
		return AccountBalance{}, err
	}
	if len(list) == 0 {
		return AccountBalance{}, accounts.ErrNotFound
	}
	return list[0], nil
}

func (r *repository) LedgerLines(ctx context.Context, companyID, accountID int64, from, to time.Time) ([]LedgerLine, error) {
	if from.IsZero() {
		from = minDate
	}
	if to.IsZero() {
		to = maxDate
	}
	rows, err := r.pool.Query(ctx, `SELECT e.id, COALESCE(e.entry_number, ''), e.entry_date,
    COALESCE(NULLIF(l.description, ''), e.description), COALESCE(l.subledger_kind, ''), COALESCE(l.subledger_id, ''),
    l.debit, l.credit, l.line_no
FROM journal_lines l JOIN journal_entries e ON e.id = l.entry_id
WHERE e.company_id = $1 AND l.account_id = $2 AND e.status IN `+postedStatuses+`
    AND e.entry_date BETWEEN $3 AND $4
ORDER BY e.entry_date, e.id, l.line_no`, companyID, accountID, from, to)
	if err != nil {
		return nil, fmt.Errorf("reports: ledger lines: %w", err)
	}
	defer rows.Close()
	out := make([]LedgerLine, 0)
	for rows.Next() {
		var l LedgerLine
		if err := rows.Scan(&l.EntryID, &l.EntryNumber, &l.Date, &l.Description, &l.SubledgerKind, &l.SubledgerID,
			&l.Debit, &l.Credit, &l.LineNo); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

func (r *repository) SubledgerFacts(ctx context.Context, companyID int64, kind string) ([]SubledgerFact, error) {
	rows, err := r.pool.Query(ctx, `SELECT l.account_id, a.code, a.normal_balance, e.company_id,
    l.subledger_kind, l.subledger_id, SUM(l.debit), SUM(l.credit)
FROM journal_lines l
JOIN journal_entries e ON e.id = l.entry_id
JOIN accounts a ON a.id = l.account_id
WHERE e.status IN `+postedStatuses+` AND l.subledger_kind IS NOT NULL
    AND ($1::bigint = 0 OR e.company_id = $1) AND ($2::text = '' OR l.subledger_kind = $2)
GROUP BY l.account_id, a.code, a.normal_balance, e.company_id, l.subledger_kind, l.subledger_id`, companyID, kind)
	if err != nil {
		return nil, fmt.Errorf("reports: subledger facts: %w", err)
	}
	defer rows.Close()
	out := make([]SubledgerFact, 0)
	for rows.Next() {
		var f SubledgerFact
		if err := rows.Scan(&f.AccountID, &f.AccountCode, &f.NormalBalance, &f.CompanyID, &f.Kind, &f.PartyID,
			&f.Debit, &f.Credit); err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

func (r *repository) StoredSubledgers(ctx context.Context, companyID int64) ([]SubledgerBalance, error) {
	rows, err := r.pool.Query(ctx, `SELECT s.account_id, a.code, s.company_id, s.subledger_kind, s.party_id,
    s.debit_total, s.credit_total, s.balance
FROM subledger_balances s JOIN accounts a ON a.id = s.account_id
WHERE ($1::bigint = 0 OR s.company_id = $1)
ORDER BY a.code, s.company_id, s.subledger_kind, s.party_id`, companyID)
	if err != nil {
		return nil, fmt.Errorf("reports: stored subledgers: %w", err)
	}
	defer rows.Close()
	out := make([]SubledgerBalance, 0)
	for rows.Next() {
		var s SubledgerBalance
		if err := rows.Scan(&s.AccountID, &s.AccountCode, &s.CompanyID, &s.Kind, &s.PartyID,
			&s.Debit, &s.Credit, &s.Balance); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *repository) AccountStates(ctx context.Context) ([]AccountState, error) {
	rows, err := r.pool.Query(ctx, `SELECT a.id, a.code, a.normal_balance, a.is_control, a.opening_balance,
    a.current_balance, COALESCE(SUM(l.debit), 0), COALESCE(SUM(l.credit), 0)
FROM accounts a
LEFT JOIN (journal_lines l JOIN journal_entries e ON e.id = l.entry_id AND e.status IN `+postedStatuses+`)
    ON l.account_id = a.id
GROUP BY a.id
ORDER BY a.id`)
	if err != nil {
		return nil, fmt.Errorf("reports: account states: %w", err)
	}
	defer rows.Close()
	out := make([]AccountState, 0)
	for rows.Next() {
		var s AccountState
		if err := rows.Scan(&s.AccountID, &s.Code, &s.NormalBalance, &s.IsControl, &s.OpeningBalance,
			&s.CurrentBalance, &s.Debit, &s.Credit); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *repository) Bases(ctx context.Context) (map[int64]AccountBasis, error) {
	return loadBases(ctx, r.pool)
}

func (r *repository) Movements(ctx context.Context, companyID int64) ([]PeriodMovement, error) {
	return loadMovements(ctx, r.pool, companyID)
}

func (r *repository) StoredPeriods(ctx context.Context, companyID int64) ([]PeriodBalance, error) {
	rows, err := r.pool.Query(ctx, `SELECT account_id, company_id, period_start, fiscal_year, opening, period_debit,
    period_credit, closing, txn_count, computed_at
FROM account_period_balances
WHERE ($1::bigint = 0 OR company_id = $1)
ORDER BY account_id, company_id, period_start`, companyID)
	if err != nil {
		return nil, fmt.Errorf("reports: stored periods: %w", err)
	}
	defer rows.Close()
	out := make([]PeriodBalance, 0)
	for rows.Next() {
		var p PeriodBalance
		if err := rows.Scan(&p.AccountID, &p.CompanyID, &p.PeriodStart, &p.FiscalYear, &p.Opening, &p.Debit,
			&p.Credit, &p.Closing, &p.TxnCount, &p.ComputedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// RebuildPeriods replaces the company's period rows in one transaction. The
// account rows are locked in id order first, the same order posting uses, so
// no posting can interleave with the rebuild.
func (r *repository) RebuildPeriods(ctx context.Context, companyID int64, build Rebuilder) (int, error) {
	if build == nil {
		return 0, errors.New("reports: rebuilder required")
	}
	var written int
	err := db.WithTx(ctx, r.pool, pgx.ReadCommitted, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `SELECT id FROM accounts
WHERE $1::bigint = 0 OR company_id = $1 OR company_id IS NULL ORDER BY id FOR UPDATE`, companyID); err != nil {
			return fmt.Errorf("reports: lock accounts: %w", err)
		}
		bases, err := loadBases(ctx, tx)
		if err != nil {
			return err
		}
		moves, err := loadMovements(ctx, tx, companyID)
		if err != nil {
			return err
		}
		rows := build(bases, moves)
		if _, err := tx.Exec(ctx, `DELETE FROM account_period_balances WHERE $1::bigint = 0 OR company_id = $1`, companyID); err != nil {
			return fmt.Errorf("reports: clear periods: %w", err)
		}
		if len(rows) == 0 {
			return nil
		}
		batch := &pgx.Batch{}
		for _, p := range rows {
			batch.Queue(`INSERT INTO account_period_balances (account_id, company_id, period_start, fiscal_year, opening,
    period_debit, period_credit, closing, txn_count, computed_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
				p.AccountID, p.CompanyID, p.PeriodStart, p.FiscalYear, p.Opening, p.Debit, p.Credit, p.Closing,
				p.TxnCount, p.ComputedAt)
		}
		br := tx.SendBatch(ctx, batch)
		for range rows {
			if _, err := br.Exec(); err != nil {
				_ = br.Close()
				return fmt.Errorf("reports: insert period: %w", err)
			}
		}
		written = len(rows)
		return br.Close()
	})
	if err != nil {
		return 0, err
	}
	return written, nil
}

func loadBases(ctx context.Context, q journals.Querier) (map[int64]AccountBasis, error) {
	rows, err := q.Query(ctx, `SELECT id, company_id, normal_balance, opening_balance FROM accounts`)
	if err != nil {
		return nil, fmt.Errorf("reports: account bases: %w", err)
	}
	defer rows.Close()
	out := make(map[int64]AccountBasis)
	for rows.Next() {
		var (
			id int64
			b  AccountBasis
		)
		if err := rows.Scan(&id, &b.CompanyID, &b.NormalBalance, &b.OpeningBalance); err != nil {
			return nil, err
		}
		out[id] = b
	}
	return out, rows.Err()
}

func loadMovements(ctx context.Context, q journals.Querier, companyID int64) ([]PeriodMovement, error) {
	rows, err := q.Query(ctx, `SELECT l.account_id, e.company_id, date_trunc('month', e.entry_date)::date,
    SUM(l.debit), SUM(l.credit), COUNT(*)
FROM journal_lines l JOIN journal_entries e ON e.id = l.entry_id
WHERE e.status IN `+postedStatuses+` AND ($1::bigint = 0 OR e.company_id = $1)
GROUP BY 1, 2, 3
ORDER BY 1, 2, 3`, companyID)
	if err != nil {
		return nil, fmt.Errorf("reports: movements: %w", err)
	}
	defer rows.Close()
	out := make([]PeriodMovement, 0)
	for rows.Next() {
		var m PeriodMovement
		if err := rows.Scan(&m.AccountID, &m.CompanyID, &m.PeriodStart, &m.Debit, &m.Credit, &m.Count); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
