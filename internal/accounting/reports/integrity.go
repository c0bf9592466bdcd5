package reports

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/himanshudhami/InvoiceX-sub001/internal/accounting/accounts"
)

// Drift scopes.
const (
	DriftAccount   = "account_balance"
	DriftSubledger = "subledger"
	DriftPeriod    = "period_balance"
)

// AccountState pairs an account's cached running balance with its posted totals
// across every company.
type AccountState struct {
	AccountID      int64
	Code           string
	NormalBalance  accounts.NormalBalance
	IsControl      bool
	OpeningBalance decimal.Decimal
	CurrentBalance decimal.Decimal
	Debit          decimal.Decimal
	Credit         decimal.Decimal
}

// Expected is the running balance implied by the posted lines.
func (s AccountState) Expected() decimal.Decimal {
	return s.OpeningBalance.Add(accounts.SignedDelta(s.NormalBalance, s.Debit, s.Credit))
}

// Drift records one mismatch between a cached figure and its derivation.
type Drift struct {
	Scope       string          `json:"scope"`
	AccountID   int64           `json:"account_id"`
	AccountCode string          `json:"account_code,omitempty"`
	Key         string          `json:"key,omitempty"`
	Expected    decimal.Decimal `json:"expected"`
	Actual      decimal.Decimal `json:"actual"`
}

// IntegrityFacts is everything CheckIntegrity compares.
type IntegrityFacts struct {
	Accounts         []AccountState
	StoredSubledgers []SubledgerBalance
	DerivedSubledger []SubledgerBalance
	StoredPeriods    []PeriodBalance
	DerivedPeriods   []PeriodBalance
}

// IntegrityReport lists drift found by CheckIntegrity.
type IntegrityReport struct {
	CompanyID int64     `json:"company_id"`
	CheckedAt time.Time `json:"checked_at"`
	Drifts    []Drift   `json:"drifts"`
}

// OK reports whether no drift was found.
func (r IntegrityReport) OK() bool { return len(r.Drifts) == 0 }

// CheckIntegrity compares running balances, subledger rows and period rows
// with what the posted lines imply.
func CheckIntegrity(facts IntegrityFacts) []Drift {
	drifts := make([]Drift, 0)
	codes := make(map[int64]string, len(facts.Accounts))

	stored := SumByAccount(facts.StoredSubledgers)
	for _, acc := range facts.Accounts {
		codes[acc.AccountID] = acc.Code
		if expected := acc.Expected(); !expected.Equal(acc.CurrentBalance) {
			drifts = append(drifts, Drift{Scope: DriftAccount, AccountID: acc.AccountID, AccountCode: acc.Code, Expected: expected, Actual: acc.CurrentBalance})
		}
		if acc.IsControl {
			sum := stored[acc.AccountID]
			if !sum.Equal(acc.CurrentBalance) {
				drifts = append(drifts, Drift{Scope: DriftSubledger, AccountID: acc.AccountID, AccountCode: acc.Code, Key: "total", Expected: acc.CurrentBalance, Actual: sum})
			}
		}
	}

	drifts = append(drifts, compareSubledgers(facts.DerivedSubledger, facts.StoredSubledgers, codes)...)
	drifts = append(drifts, comparePeriods(facts.DerivedPeriods, facts.StoredPeriods, codes)...)
	return drifts
}

func compareSubledgers(derived, stored []SubledgerBalance, codes map[int64]string) []Drift {
	key := func(s SubledgerBalance) string {
		return fmt.Sprintf("%d/%s:%s", s.CompanyID, s.Kind, s.PartyID)
	}
	type id struct {
		account int64
		key     string
	}
	actual := make(map[id]decimal.Decimal, len(stored))
	for _, s := range stored {
		actual[id{s.AccountID, key(s)}] = s.Balance
	}
	out := make([]Drift, 0)
	seen := make(map[id]bool, len(derived))
	for _, d := range derived {
		k := id{d.AccountID, key(d)}
		seen[k] = true
		if got := actual[k]; !got.Equal(d.Balance) {
			out = append(out, Drift{Scope: DriftSubledger, AccountID: d.AccountID, AccountCode: codes[d.AccountID], Key: k.key, Expected: d.Balance, Actual: got})
		}
	}
	for _, s := range stored {
		k := id{s.AccountID, key(s)}
		if !seen[k] && !s.Balance.IsZero() {
			out = append(out, Drift{Scope: DriftSubledger, AccountID: s.AccountID, AccountCode: codes[s.AccountID], Key: k.key, Expected: decimal.Zero, Actual: s.Balance})
		}
	}
	sortDrifts(out)
	return out
}

func comparePeriods(derived, stored []PeriodBalance, codes map[int64]string) []Drift {
	type id struct {
		account int64
		company int64
		start   string
	}
	key := func(p PeriodBalance) id {
		return id{p.AccountID, p.CompanyID, p.PeriodStart.Format("2006-01-02")}
	}
	actual := make(map[id]PeriodBalance, len(stored))
	for _, p := range stored {
		actual[key(p)] = p
	}
	out := make([]Drift, 0)
	seen := make(map[id]bool, len(derived))
	for _, want := range derived {
		k := key(want)
		seen[k] = true
		label := fmt.Sprintf("%d/%s", k.company, k.start)
		got, ok := actual[k]
		if !ok {
			out = append(out, Drift{Scope: DriftPeriod, AccountID: want.AccountID, AccountCode: codes[want.AccountID], Key: label + ":missing", Expected: want.Closing, Actual: decimal.Zero})
			continue
		}
		if !got.Opening.Equal(want.Opening) {
			out = append(out, Drift{Scope: DriftPeriod, AccountID: want.AccountID, AccountCode: codes[want.AccountID], Key: label + ":opening", Expected: want.Opening, Actual: got.Opening})
		}
		if !got.Closing.Equal(want.Closing) {
			out = append(out, Drift{Scope: DriftPeriod, AccountID: want.AccountID, AccountCode: codes[want.AccountID], Key: label + ":closing", Expected: want.Closing, Actual: got.Closing})
		}
		if got.TxnCount != want.TxnCount {
			out = append(out, Drift{Scope: DriftPeriod, AccountID: want.AccountID, AccountCode: codes[want.AccountID], Key: label + ":txn_count", Expected: decimal.NewFromInt(int64(want.TxnCount)), Actual: decimal.NewFromInt(int64(got.TxnCount))})
		}
	}
	for _, p := range stored {
		k := key(p)
		if seen[k] {
			continue
		}
		if p.TxnCount != 0 || !p.Debit.IsZero() || !p.Credit.IsZero() {
			label := fmt.Sprintf("%d/%s:orphan", k.company, k.start)
			out = append(out, Drift{Scope: DriftPeriod, AccountID: p.AccountID, AccountCode: codes[p.AccountID], Key: label, Expected: decimal.Zero, Actual: p.Closing})
		}
	}
	sortDrifts(out)
	return out
}

func sortDrifts(list []Drift) {
	sort.SliceStable(list, func(i, j int) bool {
		if list[i].AccountID != list[j].AccountID {
			return list[i].AccountID < list[j].AccountID
		}
		return list[i].Key < list[j].Key
	})
}
