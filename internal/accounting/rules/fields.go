package rules

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// Fields are the event values a template or condition may reference.
type Fields map[string]any

// Has reports whether name is present with a non-nil value.
func (f Fields) Has(name string) bool {
	v, ok := f[name]
	return ok && v != nil
}

// Decimal returns a numeric field. ok is false when the field is absent.
func (f Fields) Decimal(name string) (decimal.Decimal, bool, error) {
	raw, ok := f[name]
	if !ok || raw == nil {
		return decimal.Zero, false, nil
	}
	d, err := toDecimal(raw)
	if err != nil {
		return decimal.Zero, true, fmt.Errorf("field %q: %w", name, err)
	}
	return d, true, nil
}

// String returns a field rendered as text. ok is false when the field is absent.
func (f Fields) String(name string) (string, bool) {
	raw, ok := f[name]
	if !ok || raw == nil {
		return "", false
	}
	return toString(raw), true
}

// Bool returns a boolean field, accepting "true"/"false" strings.
func (f Fields) Bool(name string) (bool, bool) {
	raw, ok := f[name]
	if !ok || raw == nil {
		return false, false
	}
	switch t := raw.(type) {
	case bool:
		return t, true
	case string:
		b, err := strconv.ParseBool(strings.TrimSpace(t))
		if err != nil {
			return false, false
		}
		return b, true
	}
	return false, false
}

func toDecimal(raw any) (decimal.Decimal, error) {
	switch t := raw.(type) {
	case decimal.Decimal:
		return t, nil
	case *decimal.Decimal:
		if t == nil {
			return decimal.Zero, fmt.Errorf("nil decimal")
		}
		return *t, nil
	case json.Number:
		return decimal.NewFromString(t.String())
	case string:
		return decimal.NewFromString(strings.TrimSpace(t))
	case float64:
		return decimal.NewFromFloat(t), nil
	case float32:
		return decimal.NewFromFloat32(t), nil
	case int:
		return decimal.NewFromInt(int64(t)), nil
	case int32:
		return decimal.NewFromInt32(t), nil
	case int64:
		return decimal.NewFromInt(t), nil
	}
	return decimal.Zero, fmt.Errorf("not numeric (%T)", raw)
}

func toString(raw any) string {
	switch t := raw.(type) {
	case string:
		return t
	case decimal.Decimal:
		return t.String()
	case *decimal.Decimal:
		if t == nil {
			return ""
		}
		return t.String()
	case json.Number:
		return t.String()
	case fmt.Stringer:
		return t.String()
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	}
	return fmt.Sprint(raw)
}
