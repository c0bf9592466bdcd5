package accounts

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/himanshudhami/InvoiceX-sub001/internal/platform/db"
)

// ErrNotFound indicates a missing account.
var ErrNotFound = errors.New("accounts: account not found")

// ErrDuplicateCode indicates the code is already used within the company.
var ErrDuplicateCode = errors.New("accounts: code already exists")

type Repository interface {
	List(ctx context.Context, companyID int64) ([]Account, error)
	Get(ctx context.Context, id int64) (Account, error)
	Insert(ctx context.Context, a Account) (int64, error)
	SetActive(ctx context.Context, id int64, active bool) error
}

type repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

const accountColumns = `id, company_id, code, name, type, normal_balance, parent_id, is_control, control_type,
opening_balance, current_balance, is_active, created_at, updated_at`

// List returns the company's accounts plus the global chart, ordered by code.
func (r *repository) List(ctx context.Context, companyID int64) ([]Account, error) {
	rows, err := r.db.Query(ctx, `SELECT `+accountColumns+` FROM accounts
WHERE company_id = $1 OR company_id IS NULL ORDER BY code, company_id NULLS LAST`, companyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var accounts []Account
	for rows.Next() {
		a, err := ScanAccount(rows)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}

func (r *repository) Get(ctx context.Context, id int64) (Account, error) {
	a, err := ScanAccount(r.db.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Account{}, ErrNotFound
	}
	return a, err
}

func (r *repository) Insert(ctx context.Context, a Account) (int64, error) {
	var id int64
	err := r.db.QueryRow(ctx, `INSERT INTO accounts (company_id, code, name, type, normal_balance, parent_id, is_control,
control_type, opening_balance, current_balance, is_active)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $9, TRUE) RETURNING id`,
		a.CompanyID, a.Code, a.Name, a.Type, a.NormalBalance, a.ParentID, a.IsControl, a.ControlType, a.OpeningBalance).Scan(&id)
	if db.IsUniqueViolation(err, "uq_accounts_company_code") {
		return 0, fmt.Errorf("%s: %w", a.Code, ErrDuplicateCode)
	}
	return id, err
}

func (r *repository) SetActive(ctx context.Context, id int64, active bool) error {
	tag, err := r.db.Exec(ctx, `UPDATE accounts SET is_active = $2, updated_at = NOW() WHERE id = $1`, id, active)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ScanAccount reads one account row in accountColumns order.
func ScanAccount(row pgx.Row) (Account, error) {
	var a Account
	err := row.Scan(&a.ID, &a.CompanyID, &a.Code, &a.Name, &a.Type, &a.NormalBalance, &a.ParentID, &a.IsControl,
		&a.ControlType, &a.OpeningBalance, &a.CurrentBalance, &a.IsActive, &a.CreatedAt, &a.UpdatedAt)
	return a, err
}

// Columns exposes the column list used by ScanAccount for other repositories.
func Columns() string { return accountColumns }
