package rules

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// ValueKind tags the variant held by a Value.
type ValueKind uint8

const (
	KindNone ValueKind = iota
	KindString
	KindNumber
	KindBool
	KindList
)

// Value is a condition operand: a string, decimal number, bool or list of those.
type Value struct {
	kind ValueKind
	str  string
	num  decimal.Decimal
	b    bool
	list []Value
}

// StringValue wraps s.
func StringValue(s string) Value {
	return Value{kind: KindString, str: s}
}

// NumberValue wraps n.
func NumberValue(n decimal.Decimal) Value {
	return Value{kind: KindNumber, num: n}
}

// BoolValue wraps b.
func BoolValue(b bool) Value {
	return Value{kind: KindBool, b: b}
}

// ListValue wraps items as a list operand for the in operator.
func ListValue(items ...Value) Value {
	return Value{kind: KindList, list: items}
}

// Kind returns the variant held by v.
func (v Value) Kind() ValueKind { return v.kind }

// Str returns the string variant, or "" when v holds another kind.
func (v Value) Str() string { return v.str }

// Number returns the numeric variant, or zero when v holds another kind.
func (v Value) Number() decimal.Decimal { return v.num }

// Bool returns the bool variant.
func (v Value) Bool() bool { return v.b }

// Items returns the list variant.
func (v Value) Items() []Value { return v.list }

// IsNone reports whether v holds no value.
func (v Value) IsNone() bool { return v.kind == KindNone }

func (v Value) String() string {
	switch v.kind {
	case KindString:
		return v.str
	case KindNumber:
		return v.num.String()
	case KindBool:
		return fmt.Sprintf("%t", v.b)
	case KindList:
		parts := make([]string, len(v.list))
		for i, item := range v.list {
			parts[i] = item.String()
		}
		return "[" + strings.Join(parts, ", ") + "]"
	}
	return ""
}

// MarshalJSON writes the value as its natural JSON form. Numbers are emitted as
// JSON numbers with exact decimal digits.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindString:
		return json.Marshal(v.str)
	case KindNumber:
		return []byte(v.num.String()), nil
	case KindBool:
		return json.Marshal(v.b)
	case KindList:
		return json.Marshal(v.list)
	}
	return []byte("null"), nil
}

func (v *Value) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw any
	if err := dec.Decode(&raw); err != nil {
		return err
	}
	out, err := valueOf(raw)
	if err != nil {
		return err
	}
	*v = out
	return nil
}

func (v *Value) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.SequenceNode:
		items := make([]Value, 0, len(node.Content))
		for _, child := range node.Content {
			var item Value
			if err := item.UnmarshalYAML(child); err != nil {
				return err
			}
			items = append(items, item)
		}
		*v = ListValue(items...)
		return nil
	case yaml.ScalarNode:
		switch node.Tag {
		case "!!null":
			*v = Value{}
		case "!!bool":
			var b bool
			if err := node.Decode(&b); err != nil {
				return err
			}
			*v = BoolValue(b)
		case "!!int", "!!float":
			n, err := decimal.NewFromString(node.Value)
			if err != nil {
				return fmt.Errorf("rules: numeric value %q: %w", node.Value, err)
			}
			*v = NumberValue(n)
		default:
			*v = StringValue(node.Value)
		}
		return nil
	}
	return fmt.Errorf("rules: unsupported condition value at line %d", node.Line)
}

func valueOf(raw any) (Value, error) {
	switch t := raw.(type) {
	case nil:
		return Value{}, nil
	case string:
		return StringValue(t), nil
	case bool:
		return BoolValue(t), nil
	case json.Number:
		n, err := decimal.NewFromString(t.String())
		if err != nil {
			return Value{}, err
		}
		return NumberValue(n), nil
	case []any:
		items := make([]Value, 0, len(t))
		for _, item := range t {
			v, err := valueOf(item)
			if err != nil {
				return Value{}, err
			}
			items = append(items, v)
		}
		return ListValue(items...), nil
	}
	return Value{}, fmt.Errorf("rules: unsupported condition value %T", raw)
}
