package rules

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/himanshudhami/InvoiceX-sub001/internal/accounting/journals"
	"github.com/himanshudhami/InvoiceX-sub001/internal/accounting/shared"
)

// Event fields with reserved meaning during rendering.
const (
	FieldCurrency     = "currency"
	FieldExchangeRate = "exchange_rate"
)

var placeholder = regexp.MustCompile(`\{([A-Za-z0-9_.]+)\}`)

// RenderOptions configures Render.
type RenderOptions struct {
	RuleID       int64
	BaseCurrency string
}

// RenderedLine is a template line resolved against event fields.
type RenderedLine struct {
	LineNo        int
	AccountCode   string
	Side          journals.Side
	Amount        decimal.Decimal
	Currency      string
	ExchangeRate  decimal.Decimal
	ForeignAmount *decimal.Decimal
	Subledger     journals.Subledger
	Description   string
}

// JournalLine converts the rendered line for persistence. The account id is
// filled in by the caller once the code is resolved.
func (l RenderedLine) JournalLine() journals.JournalLine {
	out := journals.JournalLine{
		LineNo:        l.LineNo,
		AccountCode:   l.AccountCode,
		Debit:         decimal.Zero,
		Credit:        decimal.Zero,
		Currency:      l.Currency,
		ExchangeRate:  l.ExchangeRate,
		ForeignAmount: l.ForeignAmount,
		Subledger:     l.Subledger,
		Description:   l.Description,
	}
	if l.Side == journals.SideDebit {
		out.Debit = l.Amount
	} else {
		out.Credit = l.Amount
	}
	return out
}

type conversion struct {
	currency string
	rate     decimal.Decimal
	foreign  bool
}

// Render produces balanced lines from a template.
func Render(tmpl Template, fields Fields, opts RenderOptions) ([]RenderedLine, error) {
	base := strings.ToUpper(opts.BaseCurrency)
	if base == "" {
		base = shared.DefaultCurrency
	}
	conv, err := resolveConversion(fields, base, opts.RuleID)
	if err != nil {
		return nil, err
	}

	out := make([]RenderedLine, 0, len(tmpl.Lines))
	debit, credit := decimal.Zero, decimal.Zero
	for idx, lt := range tmpl.Lines {
		lineNo := idx + 1
		fail := func(field, reason string) error {
			return &shared.FieldResolutionError{RuleID: opts.RuleID, Line: lineNo, Field: field, Reason: reason}
		}
		if lt.Side != journals.SideDebit && lt.Side != journals.SideCredit {
			return nil, fail("side", "must be debit or credit")
		}

		amount, present, err := fields.Decimal(lt.AmountField)
		if err != nil {
			return nil, fail(lt.AmountField, err.Error())
		}
		if !present {
			if lt.SkipIfZero {
				continue
			}
			return nil, fail(lt.AmountField, "missing")
		}
		if amount.IsNegative() {
			return nil, fail(lt.AmountField, "negative amount")
		}

		line := RenderedLine{Side: lt.Side, Currency: base, ExchangeRate: decimal.NewFromInt(1)}
		if conv.foreign {
			foreign := shared.RoundTo(amount, conv.currency)
			line.Currency = conv.currency
			line.ExchangeRate = conv.rate
			line.ForeignAmount = &foreign
			amount = foreign.Mul(conv.rate)
		}
		amount = shared.RoundTo(amount, base)
		if amount.IsZero() {
			if lt.SkipIfZero {
				continue
			}
			return nil, fail(lt.AmountField, "zero amount")
		}
		line.Amount = amount

		code, ok := resolveAccount(lt.Account, fields)
		if !ok {
			field := lt.Account.CodeField
			if field == "" {
				field = "account"
			}
			return nil, fail(field, "no account code resolved")
		}
		line.AccountCode = code

		if lt.Subledger != nil {
			id, ok := fields.String(lt.Subledger.IDField)
			if !ok || strings.TrimSpace(id) == "" {
				return nil, fail(lt.Subledger.IDField, "missing subledger party id")
			}
			sub, err := journals.NewSubledger(lt.Subledger.Kind, strings.TrimSpace(id))
			if err != nil {
				return nil, fail(lt.Subledger.IDField, err.Error())
			}
			line.Subledger = sub
		}

		line.Description = Interpolate(lt.Description, fields)
		line.LineNo = len(out) + 1
		if line.Side == journals.SideDebit {
			debit = debit.Add(amount)
		} else {
			credit = credit.Add(amount)
		}
		out = append(out, line)
	}

	if len(out) == 0 || !shared.Balanced(debit, credit) {
		return nil, &shared.UnbalancedTemplateError{RuleID: opts.RuleID, Debit: debit.StringFixed(2), Credit: credit.StringFixed(2)}
	}
	return out, nil
}

func resolveConversion(fields Fields, base string, ruleID int64) (conversion, error) {
	cur, ok := fields.String(FieldCurrency)
	cur = strings.ToUpper(strings.TrimSpace(cur))
	if !ok || cur == "" || cur == base {
		return conversion{currency: base}, nil
	}
	if !shared.ValidCurrency(cur) {
		return conversion{}, &shared.FieldResolutionError{RuleID: ruleID, Field: FieldCurrency, Reason: "unknown currency " + cur}
	}
	rate, present, err := fields.Decimal(FieldExchangeRate)
	if err != nil {
		return conversion{}, &shared.FieldResolutionError{RuleID: ruleID, Field: FieldExchangeRate, Reason: err.Error()}
	}
	if !present || !rate.IsPositive() {
		return conversion{}, &shared.FieldResolutionError{RuleID: ruleID, Field: FieldExchangeRate, Reason: "foreign currency requires a positive exchange rate"}
	}
	return conversion{currency: cur, rate: rate, foreign: true}, nil
}

func resolveAccount(ref AccountRef, fields Fields) (string, bool) {
	if ref.CodeField != "" {
		if v, ok := fields.String(ref.CodeField); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v), true
		}
	}
	if ref.Fallback != "" {
		return ref.Fallback, true
	}
	if ref.Code != "" {
		return ref.Code, true
	}
	return "", false
}

// Interpolate replaces {field} placeholders with event values. Unknown
// placeholders are left as written.
func Interpolate(text string, fields Fields) string {
	if !strings.Contains(text, "{") {
		return text
	}
	return placeholder.ReplaceAllStringFunc(text, func(m string) string {
		name := m[1 : len(m)-1]
		if v, ok := fields.String(name); ok {
			return v
		}
		return m
	})
}
