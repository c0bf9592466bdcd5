package periods

import (
	"fmt"
	"time"
)

// PeriodStatus enumerates valid period states.
type PeriodStatus string

const (
	PeriodStatusOpen   PeriodStatus = "OPEN"
	PeriodStatusClosed PeriodStatus = "CLOSED"
	PeriodStatusLocked PeriodStatus = "LOCKED"
)

// Period represents a monthly fiscal period window for a company.
type Period struct {
	ID          int64        `json:"id"`
	CompanyID   int64        `json:"company_id"`
	PeriodStart time.Time    `json:"period_start"`
	PeriodEnd   time.Time    `json:"period_end"`
	FiscalYear  string       `json:"fiscal_year"`
	Status      PeriodStatus `json:"status"`
	ClosedAt    *time.Time   `json:"closed_at,omitempty"`
	CreatedAt   time.Time    `json:"created_at"`
}

// Calendar derives fiscal years and monthly periods from dates.
type Calendar struct {
	StartMonth time.Month
}

// NewCalendar returns a calendar whose fiscal year starts in startMonth.
// Out-of-range months fall back to April.
func NewCalendar(startMonth int) Calendar {
	if startMonth < 1 || startMonth > 12 {
		startMonth = int(time.April)
	}
	return Calendar{StartMonth: time.Month(startMonth)}
}

func (c Calendar) startMonth() time.Month {
	if c.StartMonth == 0 {
		return time.April
	}
	return c.StartMonth
}

// FiscalYearStart returns the first day of the fiscal year containing date.
func (c Calendar) FiscalYearStart(date time.Time) time.Time {
	year := date.Year()
	if date.Month() < c.startMonth() {
		year--
	}
	return time.Date(year, c.startMonth(), 1, 0, 0, 0, 0, time.UTC)
}

// FiscalYear labels the fiscal year containing date, e.g. "2024-25".
// Calendar-year fiscal years are labelled by the single year.
func (c Calendar) FiscalYear(date time.Time) string {
	start := c.FiscalYearStart(date)
	if c.startMonth() == time.January {
		return fmt.Sprintf("%d", start.Year())
	}
	return fmt.Sprintf("%d-%02d", start.Year(), (start.Year()+1)%100)
}

// PeriodStart returns the first day of the month containing date.
func (c Calendar) PeriodStart(date time.Time) time.Time {
	return time.Date(date.Year(), date.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// PeriodEnd returns the last day of the month containing date.
func (c Calendar) PeriodEnd(date time.Time) time.Time {
	return c.PeriodStart(date).AddDate(0, 1, -1)
}

// Months lists the twelve period starts of the fiscal year containing date.
func (c Calendar) Months(date time.Time) []time.Time {
	start := c.FiscalYearStart(date)
	out := make([]time.Time, 12)
	for i := range out {
		out[i] = start.AddDate(0, i, 0)
	}
	return out
}
