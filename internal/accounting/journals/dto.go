package journals

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/himanshudhami/InvoiceX-sub001/internal/accounting/shared"
)

// LineInput describes a manually keyed journal line.
type LineInput struct {
	AccountCode   string          `json:"account_code" validate:"required"`
	Debit         decimal.Decimal `json:"debit"`
	Credit        decimal.Decimal `json:"credit"`
	Currency      string          `json:"currency" validate:"omitempty,len=3"`
	SubledgerKind SubledgerKind   `json:"subledger_type" validate:"omitempty,oneof=customer vendor employee bank_account"`
	SubledgerID   string          `json:"subledger_id"`
	Description   string          `json:"description" validate:"max=512"`
}

// DraftInput groups fields required to create or update a manual entry.
type DraftInput struct {
	CompanyID   int64       `json:"company_id" validate:"required,gt=0"`
	Date        time.Time   `json:"date" validate:"required"`
	Description string      `json:"description" validate:"max=512"`
	ActorID     int64       `json:"actor_id"`
	Lines       []LineInput `json:"lines" validate:"required,min=2,dive"`
}

// ToLines converts keyed input into journal lines in the base currency.
func (in DraftInput) ToLines(baseCurrency string) ([]JournalLine, error) {
	out := make([]JournalLine, 0, len(in.Lines))
	for idx, l := range in.Lines {
		sub, err := NewSubledger(l.SubledgerKind, l.SubledgerID)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", idx+1, err)
		}
		currency := l.Currency
		if currency == "" {
			currency = baseCurrency
		}
		out = append(out, JournalLine{
			LineNo:       idx + 1,
			AccountCode:  l.AccountCode,
			Debit:        shared.RoundTo(l.Debit, baseCurrency),
			Credit:       shared.RoundTo(l.Credit, baseCurrency),
			Currency:     currency,
			ExchangeRate: decimal.NewFromInt(1),
			Subledger:    sub,
			Description:  l.Description,
		})
	}
	return out, nil
}

// ValidateLines checks the structural invariants every entry must satisfy before it
// can be posted: at least two lines, one positive side per line, balanced totals.
func ValidateLines(lines []JournalLine) (debit, credit decimal.Decimal, err error) {
	if len(lines) < 2 {
		return decimal.Zero, decimal.Zero, shared.ErrTooFewLines
	}
	for idx, line := range lines {
		if line.Debit.IsNegative() || line.Credit.IsNegative() {
			return decimal.Zero, decimal.Zero, fmt.Errorf("line %d negative amount: %w", idx+1, shared.ErrInvalidLine)
		}
		if line.Debit.IsPositive() == line.Credit.IsPositive() {
			return decimal.Zero, decimal.Zero, fmt.Errorf("line %d: %w", idx+1, shared.ErrInvalidLine)
		}
		if line.AccountCode == "" && line.AccountID == 0 {
			return decimal.Zero, decimal.Zero, fmt.Errorf("line %d missing account: %w", idx+1, shared.ErrInvalidLine)
		}
		debit = debit.Add(line.Debit)
		credit = credit.Add(line.Credit)
	}
	if !shared.Balanced(debit, credit) {
		return debit, credit, shared.ErrUnbalanced
	}
	return debit, credit, nil
}

// ReverseInput wraps parameters for reversal.
type ReverseInput struct {
	EntryID int64      `json:"-" validate:"required,gt=0"`
	ActorID int64      `json:"actor_id"`
	Reason  string     `json:"reason" validate:"max=512"`
	Date    *time.Time `json:"date"`
}

// ReversedLines swaps every line of an entry.
func ReversedLines(lines []JournalLine) []JournalLine {
	out := make([]JournalLine, 0, len(lines))
	for _, line := range lines {
		out = append(out, line.Swapped())
	}
	return out
}

// ReversalDescription builds the narration for a reversing entry.
func ReversalDescription(reason, number string) string {
	if reason != "" {
		return fmt.Sprintf("Reversal of %s: %s", number, reason)
	}
	return fmt.Sprintf("Reversal of %s", number)
}
