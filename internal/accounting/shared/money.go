package shared

import (
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
)

// DefaultCurrency is the ledger base currency when none is configured.
const DefaultCurrency = "INR"

// Epsilon is the tolerance used when comparing debit and credit totals.
var Epsilon = decimal.New(1, -2)

// MinorUnits returns the number of decimal places used by the currency.
// Unknown codes fall back to two places.
func MinorUnits(code string) int32 {
	unit, err := currency.ParseISO(strings.ToUpper(strings.TrimSpace(code)))
	if err != nil {
		return 2
	}
	scale, _ := currency.Standard.Rounding(unit)
	return int32(scale)
}

// ValidCurrency reports whether code is a recognised ISO 4217 code.
func ValidCurrency(code string) bool {
	_, err := currency.ParseISO(strings.ToUpper(strings.TrimSpace(code)))
	return err == nil
}

// RoundTo rounds an amount to the minor unit of the currency.
func RoundTo(amount decimal.Decimal, code string) decimal.Decimal {
	return amount.Round(MinorUnits(code))
}

// Balanced reports whether debit and credit agree within Epsilon.
func Balanced(debit, credit decimal.Decimal) bool {
	return debit.Sub(credit).Abs().LessThanOrEqual(Epsilon)
}
