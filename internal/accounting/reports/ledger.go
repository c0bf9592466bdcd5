package reports

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/himanshudhami/InvoiceX-sub001/internal/accounting/accounts"
)

// LedgerLine is a posted line fact for a single account.
type LedgerLine struct {
	EntryID       int64           `json:"entry_id"`
	EntryNumber   string          `json:"entry_number"`
	Date          time.Time       `json:"date"`
	Description   string          `json:"description"`
	SubledgerKind string          `json:"subledger_kind,omitempty"`
	SubledgerID   string          `json:"subledger_id,omitempty"`
	Debit         decimal.Decimal `json:"debit"`
	Credit        decimal.Decimal `json:"credit"`
	LineNo        int             `json:"line_no"`
}

// LedgerRow is a ledger line with the running balance after it.
type LedgerRow struct {
	LedgerLine
	Balance decimal.Decimal `json:"balance"`
}

// AccountLedger lists an account's movements in date order.
type AccountLedger struct {
	AccountID   int64           `json:"account_id"`
	Code        string          `json:"code"`
	Name        string          `json:"name"`
	Opening     decimal.Decimal `json:"opening"`
	Rows        []LedgerRow     `json:"rows"`
	TotalDebit  decimal.Decimal `json:"total_debit"`
	TotalCredit decimal.Decimal `json:"total_credit"`
	Closing     decimal.Decimal `json:"closing"`
}

// BuildAccountLedger orders lines by date, entry and line number and carries
// the running balance from opening in the account's normal sign.
func BuildAccountLedger(acc AccountBalance, lines []LedgerLine) AccountLedger {
	sorted := append([]LedgerLine(nil), lines...)
	sort.SliceStable(sorted, func(i, j int) bool {
		if !sorted[i].Date.Equal(sorted[j].Date) {
			return sorted[i].Date.Before(sorted[j].Date)
		}
		if sorted[i].EntryID != sorted[j].EntryID {
			return sorted[i].EntryID < sorted[j].EntryID
		}
		return sorted[i].LineNo < sorted[j].LineNo
	})

	out := AccountLedger{
		AccountID:   acc.AccountID,
		Code:        acc.Code,
		Name:        acc.Name,
		Opening:     acc.Opening,
		Rows:        make([]LedgerRow, 0, len(sorted)),
		TotalDebit:  decimal.Zero,
		TotalCredit: decimal.Zero,
	}
	running := acc.Opening
	for _, l := range sorted {
		running = running.Add(accounts.SignedDelta(acc.NormalBalance, l.Debit, l.Credit))
		out.Rows = append(out.Rows, LedgerRow{LedgerLine: l, Balance: running})
		out.TotalDebit = out.TotalDebit.Add(l.Debit)
		out.TotalCredit = out.TotalCredit.Add(l.Credit)
	}
	out.Closing = running
	return out
}
