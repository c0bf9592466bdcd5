package journals

import (
	"time"

	"github.com/shopspring/decimal"
)

// PostedEntry is the outbound record handed to collaborators.
type PostedEntry struct {
	JournalEntryID int64        `json:"journal_entry_id"`
	EntryNumber    string       `json:"entry_number"`
	Status         string       `json:"status"`
	EntryDate      string       `json:"entry_date"`
	SourceType     string       `json:"source_type,omitempty"`
	SourceID       string       `json:"source_id,omitempty"`
	TriggerEvent   string       `json:"trigger_event,omitempty"`
	ReversalOfID   *int64       `json:"reversal_of_id,omitempty"`
	ReversedByID   *int64       `json:"reversed_by_id,omitempty"`
	RuleID         *int64       `json:"rule_id,omitempty"`
	TotalDebit     string       `json:"total_debit"`
	TotalCredit    string       `json:"total_credit"`
	Lines          []PostedLine `json:"lines"`
	PostedAt       *time.Time   `json:"posted_at,omitempty"`
}

// PostedLine is one line of a PostedEntry.
type PostedLine struct {
	AccountCode   string  `json:"account_code"`
	Side          Side    `json:"side"`
	Amount        string  `json:"amount"`
	Currency      string  `json:"currency"`
	ExchangeRate  string  `json:"exchange_rate,omitempty"`
	ForeignAmount *string `json:"foreign_amount,omitempty"`
	SubledgerType string  `json:"subledger_type,omitempty"`
	SubledgerID   string  `json:"subledger_id,omitempty"`
	Description   string  `json:"description,omitempty"`
}

// ToRecord converts an entry into its outbound shape.
func ToRecord(e JournalEntry) PostedEntry {
	rec := PostedEntry{
		JournalEntryID: e.ID,
		EntryNumber:    e.Number,
		Status:         string(e.Status),
		EntryDate:      e.Date.Format("2006-01-02"),
		SourceType:     e.SourceType,
		SourceID:       e.SourceID,
		TriggerEvent:   e.TriggerEvent,
		ReversalOfID:   e.ReversalOfID,
		ReversedByID:   e.ReversedByID,
		RuleID:         e.RuleID,
		TotalDebit:     e.TotalDebit.StringFixed(2),
		TotalCredit:    e.TotalCredit.StringFixed(2),
		PostedAt:       e.PostedAt,
		Lines:          make([]PostedLine, 0, len(e.Lines)),
	}
	for _, l := range e.Lines {
		pl := PostedLine{
			AccountCode:   l.AccountCode,
			Side:          l.Side(),
			Amount:        l.Amount().StringFixed(2),
			Currency:      l.Currency,
			SubledgerType: string(l.Subledger.Kind()),
			SubledgerID:   l.Subledger.ID(),
			Description:   l.Description,
		}
		if !l.ExchangeRate.IsZero() && !l.ExchangeRate.Equal(decimal.NewFromInt(1)) {
			pl.ExchangeRate = l.ExchangeRate.String()
		}
		if l.ForeignAmount != nil {
			v := l.ForeignAmount.String()
			pl.ForeignAmount = &v
		}
		rec.Lines = append(rec.Lines, pl)
	}
	return rec
}
