package rules

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/himanshudhami/InvoiceX-sub001/internal/accounting/accounts"
)

// ChartPort resolves the chart of accounts used to check rule templates.
type ChartPort interface {
	Chart(ctx context.Context, companyID int64) (accounts.Chart, error)
}

// Service manages the rule catalog.
type Service struct {
	repo   Repository
	charts ChartPort
	schema Schema
	logger *slog.Logger
}

func NewService(repo Repository, charts ChartPort, schema Schema, logger *slog.Logger) *Service {
	if schema == nil {
		schema = DefaultSchema
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, charts: charts, schema: schema, logger: logger}
}

func (s *Service) List(ctx context.Context, companyID *int64) ([]Rule, error) {
	return s.repo.List(ctx, companyID)
}

func (s *Service) Get(ctx context.Context, id int64) (Rule, error) {
	return s.repo.Get(ctx, id)
}

// Check runs every validation pass over the supplied rules together with the
// rules already stored for the same scope.
func (s *Service) Check(ctx context.Context, incoming []Rule) error {
	var companyID *int64
	for _, r := range incoming {
		if err := Validate(r, s.schema); err != nil {
			return fmt.Errorf("%s: %w", r.Code, err)
		}
		if r.CompanyID != nil {
			companyID = r.CompanyID
		}
	}
	existing, err := s.repo.List(ctx, companyID)
	if err != nil {
		return err
	}
	if err := ValidateCatalog(merge(existing, incoming)); err != nil {
		return err
	}
	if s.charts == nil {
		return nil
	}
	chartCompany := int64(0)
	if companyID != nil {
		chartCompany = *companyID
	}
	chart, err := s.charts.Chart(ctx, chartCompany)
	if err != nil {
		return err
	}
	for _, r := range incoming {
		if err := ValidateAgainstChart(r, chart); err != nil {
			return fmt.Errorf("%s: %w", r.Code, err)
		}
	}
	return nil
}

// Create validates and stores a single rule.
func (s *Service) Create(ctx context.Context, r Rule) (Rule, error) {
	if err := s.Check(ctx, []Rule{r}); err != nil {
		return Rule{}, err
	}
	id, err := s.repo.Insert(ctx, r)
	if err != nil {
		return Rule{}, err
	}
	r.ID = id
	s.logger.Info("posting rule created", slog.String("code", r.Code), slog.Int64("id", id))
	return r, nil
}

// Import validates and stores a catalog, skipping codes that already exist.
func (s *Service) Import(ctx context.Context, cat Catalog) (int, error) {
	if err := s.Check(ctx, cat.Rules); err != nil {
		return 0, err
	}
	n, err := s.repo.Import(ctx, cat.Rules)
	if err != nil {
		return n, err
	}
	s.logger.Info("rule catalog imported", slog.String("pack_version", cat.PackVersion), slog.Int("inserted", n))
	return n, nil
}

// Retire closes a rule's effective window. Rules are versioned by window and never
// rewritten once they may have been applied.
func (s *Service) Retire(ctx context.Context, id int64, effectiveTo time.Time) error {
	return s.repo.Retire(ctx, id, effectiveTo)
}

func (s *Service) UsageLogs(ctx context.Context, ruleID int64, limit int) ([]UsageLog, error) {
	return s.repo.UsageLogs(ctx, ruleID, limit)
}

// merge overlays incoming rules on existing ones; incoming rules with an existing
// code in the same scope replace the stored copy for validation purposes.
func merge(existing, incoming []Rule) []Rule {
	key := func(r Rule) string {
		scope := "g"
		if r.CompanyID != nil {
			scope = fmt.Sprintf("%d", *r.CompanyID)
		}
		return scope + "|" + r.FiscalYear + "|" + r.Code
	}
	seen := make(map[string]bool, len(incoming))
	out := make([]Rule, 0, len(existing)+len(incoming))
	for _, r := range incoming {
		seen[key(r)] = true
		out = append(out, r)
	}
	for _, r := range existing {
		if !seen[key(r)] {
			out = append(out, r)
		}
	}
	return out
}
