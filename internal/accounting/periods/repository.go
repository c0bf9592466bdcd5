package periods

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Repository interface {
	// FindByDate returns the period row covering date; ok is false when none exists.
	FindByDate(ctx context.Context, companyID int64, date time.Time) (Period, bool, error)
	List(ctx context.Context, companyID int64, fiscalYear string) ([]Period, error)
	Upsert(ctx context.Context, p Period) (Period, error)
}

type repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

const periodColumns = `id, company_id, period_start, period_end, fiscal_year, status, closed_at, created_at`

func scanPeriod(row pgx.Row) (Period, error) {
	var p Period
	err := row.Scan(&p.ID, &p.CompanyID, &p.PeriodStart, &p.PeriodEnd, &p.FiscalYear, &p.Status, &p.ClosedAt, &p.CreatedAt)
	return p, err
}

func (r *repository) FindByDate(ctx context.Context, companyID int64, date time.Time) (Period, bool, error) {
	p, err := scanPeriod(r.db.QueryRow(ctx, `SELECT `+periodColumns+` FROM fiscal_periods
WHERE company_id = $1 AND $2 BETWEEN period_start AND period_end ORDER BY period_start LIMIT 1`, companyID, date))
	if errors.Is(err, pgx.ErrNoRows) {
		return Period{}, false, nil
	}
	if err != nil {
		return Period{}, false, err
	}
	return p, true, nil
}

func (r *repository) List(ctx context.Context, companyID int64, fiscalYear string) ([]Period, error) {
	rows, err := r.db.Query(ctx, `SELECT `+periodColumns+` FROM fiscal_periods
WHERE company_id = $1 AND ($2 = '' OR fiscal_year = $2) ORDER BY period_start`, companyID, fiscalYear)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Period
	for rows.Next() {
		p, err := scanPeriod(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *repository) Upsert(ctx context.Context, p Period) (Period, error) {
	return scanPeriod(r.db.QueryRow(ctx, `INSERT INTO fiscal_periods (company_id, period_start, period_end, fiscal_year, status, closed_at)
VALUES ($1, $2, $3, $4, $5, CASE WHEN $5 = 'OPEN' THEN NULL ELSE NOW() END)
ON CONFLICT (company_id, period_start) DO UPDATE SET status = EXCLUDED.status, closed_at = EXCLUDED.closed_at
RETURNING `+periodColumns, p.CompanyID, p.PeriodStart, p.PeriodEnd, p.FiscalYear, p.Status))
}
