package reports

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/himanshudhami/InvoiceX-sub001/internal/accounting/accounts"
)

// SubledgerFact is an aggregated or single movement tagged with a party.
type SubledgerFact struct {
	AccountID     int64
	AccountCode   string
	NormalBalance accounts.NormalBalance
	CompanyID     int64
	Kind          string
	PartyID       string
	Debit         decimal.Decimal
	Credit        decimal.Decimal
}

// SubledgerBalance is the per-party balance under a control account.
type SubledgerBalance struct {
	AccountID   int64           `json:"account_id"`
	AccountCode string          `json:"account_code"`
	CompanyID   int64           `json:"company_id"`
	Kind        string          `json:"kind"`
	PartyID     string          `json:"party_id"`
	Debit       decimal.Decimal `json:"debit"`
	Credit      decimal.Decimal `json:"credit"`
	Balance     decimal.Decimal `json:"balance"`
}

type subledgerKey struct {
	accountID int64
	companyID int64
	kind      string
	party     string
}

// BuildSubledgerBalances folds party-tagged facts into one balance per
// account, company, kind and party, sorted by account code then party.
func BuildSubledgerBalances(facts []SubledgerFact) []SubledgerBalance {
	index := make(map[subledgerKey]int)
	out := make([]SubledgerBalance, 0)
	for _, f := range facts {
		if f.Kind == "" {
			continue
		}
		key := subledgerKey{accountID: f.AccountID, companyID: f.CompanyID, kind: f.Kind, party: f.PartyID}
		idx, ok := index[key]
		if !ok {
			idx = len(out)
			index[key] = idx
			out = append(out, SubledgerBalance{
				AccountID:   f.AccountID,
				AccountCode: f.AccountCode,
				CompanyID:   f.CompanyID,
				Kind:        f.Kind,
				PartyID:     f.PartyID,
				Debit:       decimal.Zero,
				Credit:      decimal.Zero,
				Balance:     decimal.Zero,
			})
		}
		row := &out[idx]
		row.Debit = row.Debit.Add(f.Debit)
		row.Credit = row.Credit.Add(f.Credit)
		row.Balance = row.Balance.Add(accounts.SignedDelta(f.NormalBalance, f.Debit, f.Credit))
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.AccountCode != b.AccountCode {
			return a.AccountCode < b.AccountCode
		}
		if a.CompanyID != b.CompanyID {
			return a.CompanyID < b.CompanyID
		}
		if a.Kind != b.Kind {
			return a.Kind < b.Kind
		}
		return a.PartyID < b.PartyID
	})
	return out
}

// SumByAccount totals subledger balances per control account.
func SumByAccount(list []SubledgerBalance) map[int64]decimal.Decimal {
	out := make(map[int64]decimal.Decimal)
	for _, row := range list {
		out[row.AccountID] = out[row.AccountID].Add(row.Balance)
	}
	return out
}
