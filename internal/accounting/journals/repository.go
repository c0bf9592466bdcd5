package journals

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/himanshudhami/InvoiceX-sub001/internal/accounting/shared"
)

// Querier is satisfied by both *pgxpool.Pool and pgx.Tx.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Repository encapsulates read access to journals.
type Repository interface {
	List(ctx context.Context, filter Filter) ([]JournalEntry, error)
	Get(ctx context.Context, id int64) (JournalEntry, error)
	FindByKey(ctx context.Context, companyID int64, key Key) (JournalEntry, bool, error)
}

type repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

// EntryColumns is the projection read by ScanEntry.
const EntryColumns = `id, company_id, COALESCE(entry_number, ''), entry_date, fiscal_year, status,
COALESCE(source_type, ''), COALESCE(source_id, ''), source_number, COALESCE(trigger_event, ''),
total_debit, total_credit, reversal_of_id, reversed_by_id, is_reversed, rule_id, rule_pack_version,
description, created_by, posted_at, created_at, updated_at`

func (r *repository) List(ctx context.Context, filter Filter) ([]JournalEntry, error) {
	var (
		where = []string{"company_id = $1"}
		args  = []any{filter.CompanyID}
	)
	if filter.FiscalYear != "" {
		args = append(args, filter.FiscalYear)
		where = append(where, fmt.Sprintf("fiscal_year = $%d", len(args)))
	}
	if filter.From != nil {
		args = append(args, *filter.From)
		where = append(where, fmt.Sprintf("entry_date >= $%d", len(args)))
	}
	if filter.To != nil {
		args = append(args, *filter.To)
		where = append(where, fmt.Sprintf("entry_date <= $%d", len(args)))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}
	limit := filter.Limit
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	args = append(args, limit)
	query := fmt.Sprintf(`SELECT %s FROM journal_entries WHERE %s ORDER BY entry_date DESC, id DESC LIMIT $%d`,
		EntryColumns, strings.Join(where, " AND "), len(args))
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var entries []JournalEntry
	for rows.Next() {
		e, err := ScanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (r *repository) Get(ctx context.Context, id int64) (JournalEntry, error) {
	return GetWithLines(ctx, r.db, id, false)
}

func (r *repository) FindByKey(ctx context.Context, companyID int64, key Key) (JournalEntry, bool, error) {
	return FindByKey(ctx, r.db, companyID, key)
}

// GetWithLines loads an entry and its lines, optionally locking the header row.
func GetWithLines(ctx context.Context, q Querier, id int64, forUpdate bool) (JournalEntry, error) {
	query := `SELECT ` + EntryColumns + ` FROM journal_entries WHERE id = $1`
	if forUpdate {
		query += ` FOR UPDATE`
	}
	entry, err := ScanEntry(q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return JournalEntry{}, shared.ErrJournalNotFound
		}
		return JournalEntry{}, err
	}
	lines, err := LoadLines(ctx, q, id)
	if err != nil {
		return JournalEntry{}, err
	}
	entry.Lines = lines
	return entry, nil
}

// FindByKey looks an entry up by its idempotency key.
func FindByKey(ctx context.Context, q Querier, companyID int64, key Key) (JournalEntry, bool, error) {
	var id int64
	err := q.QueryRow(ctx, `SELECT id FROM journal_entries
WHERE company_id = $1 AND source_type = $2 AND source_id = $3 AND trigger_event = $4`,
		companyID, key.SourceType, key.SourceID, key.TriggerEvent).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return JournalEntry{}, false, nil
	}
	if err != nil {
		return JournalEntry{}, false, err
	}
	entry, err := GetWithLines(ctx, q, id, false)
	if err != nil {
		return JournalEntry{}, false, err
	}
	return entry, true, nil
}

// LoadLines returns the lines of an entry in line order.
func LoadLines(ctx context.Context, q Querier, entryID int64) ([]JournalLine, error) {
	rows, err := q.Query(ctx, `SELECT id, entry_id, line_no, account_id, account_code, debit, credit, currency,
exchange_rate, foreign_amount, COALESCE(subledger_kind, ''), COALESCE(subledger_id, ''), description
FROM journal_lines WHERE entry_id = $1 ORDER BY line_no`, entryID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var lines []JournalLine
	for rows.Next() {
		var (
			line      JournalLine
			kind, pid string
		)
		if err := rows.Scan(&line.ID, &line.EntryID, &line.LineNo, &line.AccountID, &line.AccountCode, &line.Debit,
			&line.Credit, &line.Currency, &line.ExchangeRate, &line.ForeignAmount, &kind, &pid, &line.Description); err != nil {
			return nil, err
		}
		sub, err := NewSubledger(SubledgerKind(kind), pid)
		if err != nil {
			return nil, err
		}
		line.Subledger = sub
		lines = append(lines, line)
	}
	return lines, rows.Err()
}

// ScanEntry reads one row in EntryColumns order.
func ScanEntry(row pgx.Row) (JournalEntry, error) {
	var e JournalEntry
	err := row.Scan(&e.ID, &e.CompanyID, &e.Number, &e.Date, &e.FiscalYear, &e.Status, &e.SourceType, &e.SourceID,
		&e.SourceNumber, &e.TriggerEvent, &e.TotalDebit, &e.TotalCredit, &e.ReversalOfID, &e.ReversedByID, &e.IsReversed,
		&e.RuleID, &e.RulePackVersion, &e.Description, &e.CreatedBy, &e.PostedAt, &e.CreatedAt, &e.UpdatedAt)
	return e, err
}
