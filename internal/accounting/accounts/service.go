package accounts

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/go-playground/validator/v10"

	"github.com/himanshudhami/InvoiceX-sub001/internal/accounting/shared"
)

// ErrControlOpeningBalance indicates an opening balance on a control account.
// Control balances are built only from tagged lines so they reconcile to their subledgers.
var ErrControlOpeningBalance = errors.New("accounts: control accounts open at zero")

type Service struct {
	repo     Repository
	validate *validator.Validate
	logger   *slog.Logger
}

func NewService(repo Repository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, validate: validator.New(), logger: logger}
}

func (s *Service) List(ctx context.Context, companyID int64) ([]Account, error) {
	return s.repo.List(ctx, companyID)
}

func (s *Service) Get(ctx context.Context, id int64) (Account, error) {
	return s.repo.Get(ctx, id)
}

// Chart returns the lookup index for a company.
func (s *Service) Chart(ctx context.Context, companyID int64) (Chart, error) {
	list, err := s.repo.List(ctx, companyID)
	if err != nil {
		return Chart{}, err
	}
	return NewChart(list), nil
}

// Create opens an account after checking it against its parent.
func (s *Service) Create(ctx context.Context, in CreateInput) (Account, error) {
	if err := s.validate.Struct(in); err != nil {
		return Account{}, fmt.Errorf("%w: %v", shared.ErrInvalidRequest, err)
	}
	companyID := int64(0)
	if in.CompanyID != nil {
		companyID = *in.CompanyID
	}
	existing, err := s.repo.List(ctx, companyID)
	if err != nil {
		return Account{}, err
	}
	acc, err := build(in, NewChart(existing))
	if err != nil {
		return Account{}, err
	}
	id, err := s.repo.Insert(ctx, acc)
	if err != nil {
		return Account{}, err
	}
	acc.ID = id
	acc.IsActive = true
	acc.CurrentBalance = acc.OpeningBalance
	s.logger.Info("account created", slog.String("code", acc.Code), slog.Int64("id", id))
	return acc, nil
}

// Deactivate soft-disables an account; accounts are never deleted once referenced.
func (s *Service) Deactivate(ctx context.Context, id int64) error {
	return s.repo.SetActive(ctx, id, false)
}

// SeedDefaults installs the embedded chart for a company, or globally when companyID is nil.
// Codes already present are skipped.
func (s *Service) SeedDefaults(ctx context.Context, companyID *int64) (int, error) {
	inputs, err := DefaultChart()
	if err != nil {
		return 0, err
	}
	created := 0
	for _, in := range inputs {
		in.CompanyID = companyID
		if _, err := s.Create(ctx, in); err != nil {
			if errors.Is(err, ErrDuplicateCode) {
				continue
			}
			return created, err
		}
		created++
	}
	return created, nil
}

func build(in CreateInput, chart Chart) (Account, error) {
	acc := Account{
		CompanyID:      in.CompanyID,
		Code:           in.Code,
		Name:           in.Name,
		Type:           in.Type,
		NormalBalance:  in.NormalBalance,
		IsControl:      in.IsControl,
		ControlType:    in.ControlType,
		OpeningBalance: in.OpeningBalance,
	}
	if acc.NormalBalance == "" {
		acc.NormalBalance = DefaultNormalBalance(acc.Type)
	}
	if acc.IsControl != (acc.ControlType != ControlNone) {
		return Account{}, fmt.Errorf("%w: %s: control flag and control type must be set together", shared.ErrInvalidRequest, in.Code)
	}
	if acc.IsControl && !acc.OpeningBalance.IsZero() {
		return Account{}, fmt.Errorf("%s: %w", in.Code, ErrControlOpeningBalance)
	}
	if in.ParentCode != "" {
		parent, ok := chart.Lookup(in.ParentCode)
		if !ok {
			return Account{}, fmt.Errorf("accounts: parent %s: %w", in.ParentCode, ErrNotFound)
		}
		pid := parent.ID
		acc.ParentID = &pid
		if parent.Type != acc.Type {
			return Account{}, fmt.Errorf("account %s under %s: %w", acc.Code, parent.Code, shared.ErrAccountHierarchy)
		}
	}
	return acc, nil
}
