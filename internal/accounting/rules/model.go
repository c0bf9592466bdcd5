package rules

import (
	"time"

	"github.com/himanshudhami/InvoiceX-sub001/internal/accounting/journals"
)

// Rule maps a business event to a journal template.
type Rule struct {
	ID            int64       `json:"id"`
	CompanyID     *int64      `json:"company_id,omitempty"`
	Code          string      `json:"code" validate:"required,max=64"`
	Name          string      `json:"name" validate:"required,max=128"`
	SourceType    string      `json:"source_type" validate:"required"`
	TriggerEvent  string      `json:"trigger_event" validate:"required"`
	Priority      int         `json:"priority" validate:"gte=0"`
	IsActive      bool        `json:"is_active"`
	IsDefault     bool        `json:"is_default"`
	Conditions    []Condition `json:"conditions"`
	Template      Template    `json:"template"`
	EffectiveFrom time.Time   `json:"effective_from" validate:"required"`
	EffectiveTo   *time.Time  `json:"effective_to,omitempty"`
	FiscalYear    string      `json:"fiscal_year,omitempty"`
	PackVersion   string      `json:"pack_version,omitempty"`
	Description   string      `json:"description,omitempty"`
	CreatedAt     time.Time   `json:"-"`
	UpdatedAt     time.Time   `json:"-"`
}

// IsGlobal reports whether the rule applies to every company.
func (r Rule) IsGlobal() bool { return r.CompanyID == nil }

// EffectiveOn reports whether date lies within the rule's window. Both ends are inclusive.
func (r Rule) EffectiveOn(date time.Time) bool {
	day := truncateDay(date)
	if day.Before(truncateDay(r.EffectiveFrom)) {
		return false
	}
	return r.EffectiveTo == nil || !day.After(truncateDay(*r.EffectiveTo))
}

// Overlaps reports whether two rules' effective windows intersect.
func (r Rule) Overlaps(o Rule) bool {
	if r.EffectiveTo != nil && truncateDay(*r.EffectiveTo).Before(truncateDay(o.EffectiveFrom)) {
		return false
	}
	if o.EffectiveTo != nil && truncateDay(*o.EffectiveTo).Before(truncateDay(r.EffectiveFrom)) {
		return false
	}
	return true
}

func truncateDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// Template is the ordered list of lines a rule produces.
type Template struct {
	Description string         `json:"description,omitempty" yaml:"description"`
	Lines       []LineTemplate `json:"lines" yaml:"lines"`
}

// LineTemplate describes how one journal line is generated from event fields.
type LineTemplate struct {
	Account     AccountRef     `json:"account" yaml:"account"`
	Side        journals.Side  `json:"side" yaml:"side"`
	AmountField string         `json:"amount_field" yaml:"amount_field"`
	Description string         `json:"description,omitempty" yaml:"description"`
	SkipIfZero  bool           `json:"skip_if_zero,omitempty" yaml:"skip_if_zero"`
	Subledger   *SubledgerSpec `json:"subledger,omitempty" yaml:"subledger"`
}

// AccountRef resolves to an account code: the value of CodeField when present,
// then Fallback, then the literal Code.
type AccountRef struct {
	Code      string `json:"code,omitempty" yaml:"code"`
	CodeField string `json:"code_field,omitempty" yaml:"code_field"`
	Fallback  string `json:"fallback,omitempty" yaml:"fallback"`
}

// SubledgerSpec tags a line with the party named by an event field.
type SubledgerSpec struct {
	Kind    journals.SubledgerKind `json:"kind" yaml:"kind"`
	IDField string                 `json:"id_field" yaml:"id_field"`
}

// UsageLog is an immutable record of one rule application.
type UsageLog struct {
	ID             int64
	RuleID         int64
	JournalEntryID *int64
	CompanyID      int64
	SourceType     string
	SourceID       string
	TriggerEvent   string
	Snapshot       []byte
	Digest         string
	Success        bool
	ErrorMessage   string
	CreatedAt      time.Time
}
