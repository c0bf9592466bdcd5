package rules

import "fmt"

// Op is a condition operator.
type Op string

const (
	OpEq        Op = "eq"
	OpNe        Op = "ne"
	OpGt        Op = "gt"
	OpGte       Op = "gte"
	OpLt        Op = "lt"
	OpLte       Op = "lte"
	OpIn        Op = "in"
	OpExists    Op = "exists"
	OpNotExists Op = "not_exists"
)

// Condition is a typed predicate over one event field.
type Condition struct {
	Field string `json:"field" yaml:"field"`
	Op    Op     `json:"op" yaml:"op"`
	Value Value  `json:"value" yaml:"value"`
}

// Check reports whether the condition is well formed.
func (c Condition) Check() error {
	if c.Field == "" {
		return fmt.Errorf("condition: field required")
	}
	switch c.Op {
	case OpExists, OpNotExists:
		if !c.Value.IsNone() {
			return fmt.Errorf("condition %s %s: takes no value", c.Field, c.Op)
		}
	case OpIn:
		if c.Value.Kind() != KindList || len(c.Value.Items()) == 0 {
			return fmt.Errorf("condition %s in: value must be a non-empty list", c.Field)
		}
	case OpGt, OpGte, OpLt, OpLte:
		if c.Value.Kind() != KindNumber {
			return fmt.Errorf("condition %s %s: value must be numeric", c.Field, c.Op)
		}
	case OpEq, OpNe:
		if c.Value.IsNone() || c.Value.Kind() == KindList {
			return fmt.Errorf("condition %s %s: value must be a scalar", c.Field, c.Op)
		}
	default:
		return fmt.Errorf("condition %s: unknown operator %q", c.Field, c.Op)
	}
	return nil
}

// Eval evaluates the condition. A condition on an absent field is false,
// except not_exists.
func (c Condition) Eval(fields Fields) bool {
	present := fields.Has(c.Field)
	switch c.Op {
	case OpExists:
		return present
	case OpNotExists:
		return !present
	}
	if !present {
		return false
	}
	switch c.Op {
	case OpEq:
		return equals(fields, c.Field, c.Value)
	case OpNe:
		return !equals(fields, c.Field, c.Value)
	case OpIn:
		for _, item := range c.Value.Items() {
			if equals(fields, c.Field, item) {
				return true
			}
		}
		return false
	case OpGt, OpGte, OpLt, OpLte:
		got, _, err := fields.Decimal(c.Field)
		if err != nil || c.Value.Kind() != KindNumber {
			return false
		}
		cmp := got.Cmp(c.Value.Number())
		switch c.Op {
		case OpGt:
			return cmp > 0
		case OpGte:
			return cmp >= 0
		case OpLt:
			return cmp < 0
		default:
			return cmp <= 0
		}
	}
	return false
}

func equals(fields Fields, name string, want Value) bool {
	switch want.Kind() {
	case KindNumber:
		got, _, err := fields.Decimal(name)
		return err == nil && got.Equal(want.Number())
	case KindBool:
		got, ok := fields.Bool(name)
		return ok && got == want.Bool()
	case KindString:
		got, _ := fields.String(name)
		return got == want.Str()
	}
	return false
}

// MatchAll reports whether every condition holds. No conditions always match.
func MatchAll(conds []Condition, fields Fields) bool {
	for _, c := range conds {
		if !c.Eval(fields) {
			return false
		}
	}
	return true
}
