package shared

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrUnbalanced indicates debit != credit.
	ErrUnbalanced = errors.New("accounting: journal lines must balance")
	// ErrTooFewLines indicates less than two lines.
	ErrTooFewLines = errors.New("accounting: journal requires at least two lines")
	// ErrInvalidLine indicates a line carrying both or neither side.
	ErrInvalidLine = errors.New("accounting: line must carry exactly one of debit or credit")
	// ErrInvalidPeriod indicates missing or closed fiscal period.
	ErrInvalidPeriod = errors.New("accounting: period is not open")
	// ErrPeriodLocked indicates locked period.
	ErrPeriodLocked = errors.New("accounting: period locked")
	// ErrJournalNotFound indicates missing entry.
	ErrJournalNotFound = errors.New("accounting: journal entry not found")
	// ErrInvalidStatus indicates action can't proceed.
	ErrInvalidStatus = errors.New("accounting: invalid status transition")
	// ErrPostedEntryImmutable indicates an attempted edit of a non-draft entry.
	ErrPostedEntryImmutable = errors.New("accounting: posted entries cannot be edited")
	// ErrControlAccountWithoutSubledger indicates a control account line missing its party tag.
	ErrControlAccountWithoutSubledger = errors.New("accounting: control account requires a subledger reference")
	// ErrSubledgerKindMismatch indicates a party of the wrong kind for the control account.
	ErrSubledgerKindMismatch = errors.New("accounting: subledger kind does not match control account")
	// ErrAccountHierarchy indicates a child account whose type differs from its parent.
	ErrAccountHierarchy = errors.New("accounting: account type must match parent type")
	// ErrSourceConflict indicates the idempotency key already exists.
	ErrSourceConflict = errors.New("accounting: source link conflict")
	// ErrRuleNotFound indicates a missing rule id.
	ErrRuleNotFound = errors.New("accounting: posting rule not found")
	// ErrInvalidRequest indicates a request failing field validation.
	ErrInvalidRequest = errors.New("accounting: invalid request")
)

// ErrorClass groups failures by how callers should react.
type ErrorClass string

const (
	ClassConfiguration ErrorClass = "configuration"
	ClassConcurrency   ErrorClass = "concurrency"
	ClassData          ErrorClass = "data"
	ClassIntegrity     ErrorClass = "integrity"
	ClassTransient     ErrorClass = "transient"
)

// NoMatchingRuleError reports a configuration gap: no active rule covers the event.
type NoMatchingRuleError struct {
	CompanyID    int64
	SourceType   string
	TriggerEvent string
	EventDate    time.Time
}

func (e *NoMatchingRuleError) Error() string {
	return fmt.Sprintf("accounting: no posting rule for company %d source %q trigger %q on %s",
		e.CompanyID, e.SourceType, e.TriggerEvent, e.EventDate.Format("2006-01-02"))
}

// FieldResolutionError reports an event field a template needed but could not use.
type FieldResolutionError struct {
	RuleID int64
	Line   int
	Field  string
	Reason string
}

func (e *FieldResolutionError) Error() string {
	return fmt.Sprintf("accounting: rule %d line %d field %q: %s", e.RuleID, e.Line, e.Field, e.Reason)
}

// UnbalancedTemplateError reports rendered lines whose sides do not agree.
type UnbalancedTemplateError struct {
	RuleID int64
	Debit  string
	Credit string
}

func (e *UnbalancedTemplateError) Error() string {
	return fmt.Sprintf("accounting: rule %d rendered debit %s != credit %s", e.RuleID, e.Debit, e.Credit)
}

func (e *UnbalancedTemplateError) Unwrap() error { return ErrUnbalanced }

// AccountNotFoundError reports a template account code that is missing or inactive.
type AccountNotFoundError struct {
	CompanyID int64
	Code      string
	RuleID    int64
	Inactive  bool
}

func (e *AccountNotFoundError) Error() string {
	state := "not found"
	if e.Inactive {
		state = "inactive"
	}
	return fmt.Sprintf("accounting: account %q %s for company %d (rule %d)", e.Code, state, e.CompanyID, e.RuleID)
}

// ConcurrentPostingConflict reports a lost race on the idempotency key.
type ConcurrentPostingConflict struct {
	SourceType   string
	SourceID     string
	TriggerEvent string
}

func (e *ConcurrentPostingConflict) Error() string {
	return fmt.Sprintf("accounting: concurrent posting for %s/%s/%s", e.SourceType, e.SourceID, e.TriggerEvent)
}

func (e *ConcurrentPostingConflict) Unwrap() error { return ErrSourceConflict }

// Classify maps an error onto the ledger error taxonomy.
func Classify(err error) ErrorClass {
	var (
		noRule     *NoMatchingRuleError
		unbalanced *UnbalancedTemplateError
		missing    *AccountNotFoundError
		field      *FieldResolutionError
		conflict   *ConcurrentPostingConflict
	)
	switch {
	case err == nil:
		return ""
	case errors.As(err, &noRule), errors.As(err, &unbalanced), errors.As(err, &missing):
		return ClassConfiguration
	case errors.As(err, &conflict), errors.Is(err, ErrSourceConflict):
		return ClassConcurrency
	case errors.As(err, &field), errors.Is(err, ErrTooFewLines), errors.Is(err, ErrInvalidLine), errors.Is(err, ErrUnbalanced),
		errors.Is(err, ErrInvalidRequest):
		return ClassData
	case errors.Is(err, ErrControlAccountWithoutSubledger), errors.Is(err, ErrSubledgerKindMismatch),
		errors.Is(err, ErrPostedEntryImmutable), errors.Is(err, ErrInvalidStatus),
		errors.Is(err, ErrPeriodLocked), errors.Is(err, ErrInvalidPeriod), errors.Is(err, ErrAccountHierarchy):
		return ClassIntegrity
	default:
		return ClassTransient
	}
}
