package reports

import (
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/himanshudhami/InvoiceX-sub001/internal/accounting/accounts"
	"github.com/himanshudhami/InvoiceX-sub001/internal/accounting/shared"
)

// AccountBalance models a general ledger account with aggregated balances.
// Opening and closing are in the account's normal-balance sign.
type AccountBalance struct {
	AccountID     int64                  `json:"account_id"`
	Code          string                 `json:"code"`
	Name          string                 `json:"name"`
	Type          accounts.AccountType   `json:"type"`
	NormalBalance accounts.NormalBalance `json:"normal_balance"`
	Opening       decimal.Decimal        `json:"opening"`
	Debit         decimal.Decimal        `json:"debit"`
	Credit        decimal.Decimal        `json:"credit"`
}

// Closing computes the closing balance for the account.
func (a AccountBalance) Closing() decimal.Decimal {
	return a.Opening.Add(accounts.SignedDelta(a.NormalBalance, a.Debit, a.Credit))
}

// GroupKey returns a key used for grouping trial balance rows.
func (a AccountBalance) GroupKey() string {
	if idx := strings.Index(a.Code, "."); idx > 0 {
		return a.Code[:idx]
	}
	if len(a.Code) >= 2 {
		return a.Code[:2]
	}
	return a.Code
}

// sides splits a normal-sign balance into debit and credit columns.
func sides(normal accounts.NormalBalance, balance decimal.Decimal) (debit, credit decimal.Decimal) {
	debit, credit = decimal.Zero, decimal.Zero
	if normal == accounts.NormalCredit {
		balance = balance.Neg()
	}
	if balance.IsNegative() {
		return debit, balance.Neg()
	}
	return balance, credit
}

// TrialBalanceAccount represents a row inside a trial balance group.
type TrialBalanceAccount struct {
	Code          string          `json:"code"`
	Name          string          `json:"name"`
	Opening       decimal.Decimal `json:"opening"`
	Debit         decimal.Decimal `json:"debit"`
	Credit        decimal.Decimal `json:"credit"`
	Closing       decimal.Decimal `json:"closing"`
	ClosingDebit  decimal.Decimal `json:"closing_debit"`
	ClosingCredit decimal.Decimal `json:"closing_credit"`
}

// TrialBalanceGroup aggregates accounts for presentation.
type TrialBalanceGroup struct {
	Key           string                `json:"key"`
	Accounts      []TrialBalanceAccount `json:"accounts"`
	Debit         decimal.Decimal       `json:"debit"`
	Credit        decimal.Decimal       `json:"credit"`
	ClosingDebit  decimal.Decimal       `json:"closing_debit"`
	ClosingCredit decimal.Decimal       `json:"closing_credit"`
}

// TrialBalance is the grouped trial balance.
type TrialBalance struct {
	Groups             []TrialBalanceGroup `json:"groups"`
	TotalDebit         decimal.Decimal     `json:"total_debit"`
	TotalCredit        decimal.Decimal     `json:"total_credit"`
	TotalClosingDebit  decimal.Decimal     `json:"total_closing_debit"`
	TotalClosingCredit decimal.Decimal     `json:"total_closing_credit"`
}

// Balanced reports whether period movements and closing columns agree.
func (tb TrialBalance) Balanced() bool {
	return shared.Balanced(tb.TotalDebit, tb.TotalCredit) && shared.Balanced(tb.TotalClosingDebit, tb.TotalClosingCredit)
}

// BuildTrialBalance converts account balances into grouped trial balance data.
// Accounts without opening or movement are omitted.
func BuildTrialBalance(list []AccountBalance) TrialBalance {
	groups := make(map[string]*TrialBalanceGroup)
	keys := make([]string, 0)
	for _, acc := range list {
		if acc.Opening.IsZero() && acc.Debit.IsZero() && acc.Credit.IsZero() {
			continue
		}
		key := acc.GroupKey()
		grp, ok := groups[key]
		if !ok {
			grp = &TrialBalanceGroup{Key: key, Debit: decimal.Zero, Credit: decimal.Zero, ClosingDebit: decimal.Zero, ClosingCredit: decimal.Zero}
			groups[key] = grp
			keys = append(keys, key)
		}
		closing := acc.Closing()
		cd, cc := sides(acc.NormalBalance, closing)
		row := TrialBalanceAccount{
			Code:          acc.Code,
			Name:          acc.Name,
			Opening:       acc.Opening,
			Debit:         acc.Debit,
			Credit:        acc.Credit,
			Closing:       closing,
			ClosingDebit:  cd,
			ClosingCredit: cc,
		}
		grp.Accounts = append(grp.Accounts, row)
		grp.Debit = grp.Debit.Add(row.Debit)
		grp.Credit = grp.Credit.Add(row.Credit)
		grp.ClosingDebit = grp.ClosingDebit.Add(cd)
		grp.ClosingCredit = grp.ClosingCredit.Add(cc)
	}

	sort.Strings(keys)
	result := TrialBalance{
		TotalDebit:         decimal.Zero,
		TotalCredit:        decimal.Zero,
		TotalClosingDebit:  decimal.Zero,
		TotalClosingCredit: decimal.Zero,
	}
	for _, key := range keys {
		grp := groups[key]
		sort.Slice(grp.Accounts, func(i, j int) bool {
			return grp.Accounts[i].Code < grp.Accounts[j].Code
		})
		result.Groups = append(result.Groups, *grp)
		result.TotalDebit = result.TotalDebit.Add(grp.Debit)
		result.TotalCredit = result.TotalCredit.Add(grp.Credit)
		result.TotalClosingDebit = result.TotalClosingDebit.Add(grp.ClosingDebit)
		result.TotalClosingCredit = result.TotalClosingCredit.Add(grp.ClosingCredit)
	}
	return result
}
