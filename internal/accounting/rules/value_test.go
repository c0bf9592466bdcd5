package rules

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValueAccessors(t *testing.T) {
	cases := []struct {
		name string
		v    Value
		kind ValueKind
		text string
	}{
		{"none", Value{}, KindNone, ""},
		{"string", StringValue("KA"), KindString, "KA"},
		{"number", NumberValue(dec("900.50")), KindNumber, "900.5"},
		{"bool", BoolValue(true), KindBool, "true"},
		{"list", ListValue(StringValue("KA"), NumberValue(dec("29"))), KindList, "[KA, 29]"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.kind, tc.v.Kind())
			assert.Equal(t, tc.text, tc.v.String())
			assert.Equal(t, tc.kind == KindNone, tc.v.IsNone())
		})
	}

	n := NumberValue(dec("12"))
	assert.Empty(t, n.Str())
	assert.False(t, n.Bool())
	assert.Nil(t, n.Items())
	assert.True(t, StringValue("x").Number().IsZero())
	assert.Len(t, ListValue(BoolValue(false)).Items(), 1)
}
