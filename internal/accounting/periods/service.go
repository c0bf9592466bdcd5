package periods

import (
	"context"
	"fmt"
	"time"

	"github.com/himanshudhami/InvoiceX-sub001/internal/accounting/shared"
)

// Guard rejects postings into closed or locked periods. A date without a
// period row is treated as open.
type Guard struct {
	repo     Repository
	calendar Calendar
}

func NewGuard(repo Repository, calendar Calendar) *Guard {
	return &Guard{repo: repo, calendar: calendar}
}

// EnsureOpen returns shared.ErrPeriodLocked or shared.ErrInvalidPeriod when date
// falls into a period that no longer accepts postings.
func (g *Guard) EnsureOpen(ctx context.Context, companyID int64, date time.Time) error {
	if g == nil || g.repo == nil {
		return nil
	}
	period, ok, err := g.repo.FindByDate(ctx, companyID, date)
	if err != nil {
		return fmt.Errorf("periods: lookup: %w", err)
	}
	if !ok {
		return nil
	}
	switch period.Status {
	case PeriodStatusOpen:
		return nil
	case PeriodStatusLocked:
		return fmt.Errorf("%s: %w", period.PeriodStart.Format("2006-01"), shared.ErrPeriodLocked)
	default:
		return fmt.Errorf("%s: %w", period.PeriodStart.Format("2006-01"), shared.ErrInvalidPeriod)
	}
}

// Service manages fiscal period rows.
type Service struct {
	repo     Repository
	calendar Calendar
}

func NewService(repo Repository, calendar Calendar) *Service {
	return &Service{repo: repo, calendar: calendar}
}

func (s *Service) Calendar() Calendar { return s.calendar }

func (s *Service) List(ctx context.Context, companyID int64, fiscalYear string) ([]Period, error) {
	return s.repo.List(ctx, companyID, fiscalYear)
}

// SetStatus opens, closes or locks the month containing date.
func (s *Service) SetStatus(ctx context.Context, companyID int64, date time.Time, status PeriodStatus) (Period, error) {
	switch status {
	case PeriodStatusOpen, PeriodStatusClosed, PeriodStatusLocked:
	default:
		return Period{}, fmt.Errorf("periods: unknown status %q", status)
	}
	return s.repo.Upsert(ctx, Period{
		CompanyID:   companyID,
		PeriodStart: s.calendar.PeriodStart(date),
		PeriodEnd:   s.calendar.PeriodEnd(date),
		FiscalYear:  s.calendar.FiscalYear(date),
		Status:      status,
	})
}
