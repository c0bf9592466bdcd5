package reports

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/himanshudhami/InvoiceX-sub001/internal/accounting/accounts"
	"github.com/himanshudhami/InvoiceX-sub001/internal/accounting/periods"
)

// AccountBasis is what a period rebuild needs to know about an account.
type AccountBasis struct {
	CompanyID      *int64
	NormalBalance  accounts.NormalBalance
	OpeningBalance decimal.Decimal
}

// OpeningFor returns the opening a company's first period starts from. Only
// the owning company inherits the account's opening balance.
func (b AccountBasis) OpeningFor(companyID int64) decimal.Decimal {
	if b.CompanyID != nil && *b.CompanyID == companyID {
		return b.OpeningBalance
	}
	return decimal.Zero
}

// PeriodMovement is the posted movement of one account in one month.
type PeriodMovement struct {
	AccountID   int64
	CompanyID   int64
	PeriodStart time.Time
	Debit       decimal.Decimal
	Credit      decimal.Decimal
	Count       int
}

// PeriodBalance is a row of account_period_balances.
type PeriodBalance struct {
	AccountID   int64           `json:"account_id"`
	CompanyID   int64           `json:"company_id"`
	PeriodStart time.Time       `json:"period_start"`
	FiscalYear  string          `json:"fiscal_year"`
	Opening     decimal.Decimal `json:"opening"`
	Debit       decimal.Decimal `json:"debit"`
	Credit      decimal.Decimal `json:"credit"`
	Closing     decimal.Decimal `json:"closing"`
	TxnCount    int             `json:"txn_count"`
	ComputedAt  time.Time       `json:"computed_at"`
}

// RecalculatePeriodBalances derives period rows from monthly movements. Each
// account's first row opens at the company's own opening and every later row opens at
// the previous closing. Movements for unknown accounts open at zero.
func RecalculatePeriodBalances(cal periods.Calendar, bases map[int64]AccountBasis, moves []PeriodMovement, computedAt time.Time) []PeriodBalance {
	type groupKey struct{ account, company int64 }
	grouped := make(map[groupKey][]PeriodMovement)
	keys := make([]groupKey, 0)
	for _, m := range moves {
		m.PeriodStart = cal.PeriodStart(m.PeriodStart)
		k := groupKey{account: m.AccountID, company: m.CompanyID}
		if _, ok := grouped[k]; !ok {
			keys = append(keys, k)
		}
		grouped[k] = append(grouped[k], m)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].account != keys[j].account {
			return keys[i].account < keys[j].account
		}
		return keys[i].company < keys[j].company
	})

	out := make([]PeriodBalance, 0, len(moves))
	for _, k := range keys {
		list := grouped[k]
		sort.SliceStable(list, func(i, j int) bool { return list[i].PeriodStart.Before(list[j].PeriodStart) })
		basis, ok := bases[k.account]
		if !ok {
			basis = AccountBasis{NormalBalance: accounts.NormalDebit}
		}
		opening := basis.OpeningFor(k.company)
		var current *PeriodBalance
		for _, m := range list {
			if current == nil || !current.PeriodStart.Equal(m.PeriodStart) {
				if current != nil {
					out = append(out, *current)
					opening = current.Closing
				}
				current = &PeriodBalance{
					AccountID:   k.account,
					CompanyID:   k.company,
					PeriodStart: m.PeriodStart,
					FiscalYear:  cal.FiscalYear(m.PeriodStart),
					Opening:     opening,
					Debit:       decimal.Zero,
					Credit:      decimal.Zero,
					Closing:     opening,
					ComputedAt:  computedAt,
				}
			}
			current.Debit = current.Debit.Add(m.Debit)
			current.Credit = current.Credit.Add(m.Credit)
			current.Closing = current.Closing.Add(accounts.SignedDelta(basis.NormalBalance, m.Debit, m.Credit))
			current.TxnCount += m.Count
		}
		if current != nil {
			out = append(out, *current)
		}
	}
	return out
}
