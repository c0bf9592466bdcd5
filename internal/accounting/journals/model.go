package journals

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// JournalStatus enumerates journal lifecycle values.
type JournalStatus string

const (
	JournalStatusDraft           JournalStatus = "draft"
	JournalStatusPendingApproval JournalStatus = "pending_approval"
	JournalStatusPosted          JournalStatus = "posted"
	JournalStatusReversed        JournalStatus = "reversed"
)

// Editable reports whether entries in this status may still change.
func (s JournalStatus) Editable() bool {
	return s == JournalStatusDraft
}

// Side names the column a line amount sits in.
type Side string

const (
	SideDebit  Side = "debit"
	SideCredit Side = "credit"
)

// SubledgerKind names the party type a line is tagged with.
type SubledgerKind string

const (
	SubledgerNone        SubledgerKind = ""
	SubledgerCustomer    SubledgerKind = "customer"
	SubledgerVendor      SubledgerKind = "vendor"
	SubledgerEmployee    SubledgerKind = "employee"
	SubledgerBankAccount SubledgerKind = "bank_account"
)

// Valid reports whether k is a known party kind.
func (k SubledgerKind) Valid() bool {
	switch k {
	case SubledgerCustomer, SubledgerVendor, SubledgerEmployee, SubledgerBankAccount:
		return true
	}
	return false
}

// Subledger is a party reference. The zero value is None; kind and id are only
// ever set together through the constructors.
type Subledger struct {
	kind SubledgerKind
	id   string
}

func Customer(id string) Subledger    { return Subledger{kind: SubledgerCustomer, id: id} }
func Vendor(id string) Subledger      { return Subledger{kind: SubledgerVendor, id: id} }
func Employee(id string) Subledger    { return Subledger{kind: SubledgerEmployee, id: id} }
func BankAccount(id string) Subledger { return Subledger{kind: SubledgerBankAccount, id: id} }

// NewSubledger builds a reference from stored columns. Empty kind and id give None.
func NewSubledger(kind SubledgerKind, id string) (Subledger, error) {
	if kind == SubledgerNone && id == "" {
		return Subledger{}, nil
	}
	if !kind.Valid() {
		return Subledger{}, fmt.Errorf("journals: unknown subledger kind %q", kind)
	}
	if id == "" {
		return Subledger{}, fmt.Errorf("journals: subledger %s requires an id", kind)
	}
	return Subledger{kind: kind, id: id}, nil
}

func (s Subledger) Kind() SubledgerKind { return s.kind }
func (s Subledger) ID() string          { return s.id }
func (s Subledger) IsNone() bool        { return s.kind == SubledgerNone }

func (s Subledger) String() string {
	if s.IsNone() {
		return ""
	}
	return string(s.kind) + ":" + s.id
}

// Columns returns nullable values for persistence.
func (s Subledger) Columns() (kind, id *string) {
	if s.IsNone() {
		return nil, nil
	}
	k, v := string(s.kind), s.id
	return &k, &v
}

// JournalEntry captures posting metadata.
type JournalEntry struct {
	ID              int64
	CompanyID       int64
	Number          string
	Date            time.Time
	FiscalYear      string
	Status          JournalStatus
	SourceType      string
	SourceID        string
	SourceNumber    string
	TriggerEvent    string
	TotalDebit      decimal.Decimal
	TotalCredit     decimal.Decimal
	ReversalOfID    *int64
	ReversedByID    *int64
	IsReversed      bool
	RuleID          *int64
	RulePackVersion string
	Description     string
	CreatedBy       int64
	PostedAt        *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
	Lines           []JournalLine
}

// JournalLine stores debit or credit amount for an account.
type JournalLine struct {
	ID            int64
	EntryID       int64
	LineNo        int
	AccountID     int64
	AccountCode   string
	Debit         decimal.Decimal
	Credit        decimal.Decimal
	Currency      string
	ExchangeRate  decimal.Decimal
	ForeignAmount *decimal.Decimal
	Subledger     Subledger
	Description   string
}

// Side returns the column the line's amount sits in.
func (l JournalLine) Side() Side {
	if l.Debit.IsPositive() {
		return SideDebit
	}
	return SideCredit
}

// Amount returns the non-zero side.
func (l JournalLine) Amount() decimal.Decimal {
	if l.Debit.IsPositive() {
		return l.Debit
	}
	return l.Credit
}

// Swapped returns the line with debit and credit exchanged.
func (l JournalLine) Swapped() JournalLine {
	out := l
	out.ID = 0
	out.EntryID = 0
	out.Debit, out.Credit = l.Credit, l.Debit
	return out
}

// Key identifies a posting for idempotency within a company.
type Key struct {
	SourceType   string
	SourceID     string
	TriggerEvent string
}

func (k Key) String() string {
	return k.SourceType + "/" + k.SourceID + "/" + k.TriggerEvent
}

// ReversalKey is the idempotency key used for reversing entryID.
func ReversalKey(entryID int64) Key {
	return Key{SourceType: "reversal", SourceID: fmt.Sprintf("%d", entryID), TriggerEvent: "on_reverse"}
}

// FormatNumber renders an entry number from its fiscal year and sequence.
func FormatNumber(fiscalYear string, seq int64) string {
	return fmt.Sprintf("JE/%s/%06d", fiscalYear, seq)
}

// Filter narrows list and report queries.
type Filter struct {
	CompanyID  int64
	FiscalYear string
	From       *time.Time
	To         *time.Time
	Status     JournalStatus
	Limit      int
}
