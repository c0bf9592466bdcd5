package integration

import (
	"github.com/shopspring/decimal"

	"github.com/himanshudhami/InvoiceX-sub001/internal/accounting/rules"
)

// eventFields accumulates the flat field map a posting rule reads.
type eventFields map[string]any

func (f eventFields) amount(name string, v decimal.Decimal) eventFields {
	f[name] = v
	return f
}

func (f eventFields) text(name, v string) eventFields {
	if v != "" {
		f[name] = v
	}
	return f
}

func (f eventFields) flag(name string, v bool) eventFields {
	f[name] = v
	return f
}

// currency records a foreign currency and its rate; base-currency events omit both.
func (f eventFields) currency(code string, rate decimal.Decimal) eventFields {
	if code == "" {
		return f
	}
	f[rules.FieldCurrency] = code
	if !rate.IsZero() {
		f[rules.FieldExchangeRate] = rate
	}
	return f
}

func sum(values ...decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, v := range values {
		total = total.Add(v)
	}
	return total
}
