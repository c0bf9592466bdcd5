package reports

import "time"

// TrialBalanceView is the JSON payload for the trial balance endpoint.
type TrialBalanceView struct {
	CompanyID   int64        `json:"company_id"`
	PeriodLabel string       `json:"period_label"`
	Balanced    bool         `json:"balanced"`
	Report      TrialBalance `json:"report"`
}

// ProfitAndLossView is the JSON payload for the income statement endpoint.
type ProfitAndLossView struct {
	CompanyID   int64         `json:"company_id"`
	PeriodLabel string        `json:"period_label"`
	Report      ProfitAndLoss `json:"report"`
}

// BalanceSheetView is the JSON payload for the balance sheet endpoint.
type BalanceSheetView struct {
	CompanyID   int64        `json:"company_id"`
	PeriodLabel string       `json:"period_label"`
	Balanced    bool         `json:"balanced"`
	Report      BalanceSheet `json:"report"`
}

// PeriodLabel renders a human readable range such as "2024-04-01 to 2024-06-30".
func PeriodLabel(from, to time.Time) string {
	switch {
	case from.IsZero() && to.IsZero():
		return "all time"
	case from.IsZero():
		return "as of " + to.Format("2006-01-02")
	case to.IsZero():
		return "from " + from.Format("2006-01-02")
	}
	return from.Format("2006-01-02") + " to " + to.Format("2006-01-02")
}
