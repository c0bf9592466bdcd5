package rules

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/himanshudhami/InvoiceX-sub001/internal/accounting/accounts"
	"github.com/himanshudhami/InvoiceX-sub001/internal/accounting/journals"
)

// ErrInvalidRule wraps every rule validation failure.
var ErrInvalidRule = errors.New("rules: invalid rule")

// ValidationError lists the problems found in a rule or catalog.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return "rules: invalid rule: " + strings.Join(e.Problems, "; ")
}

func (e *ValidationError) Unwrap() error { return ErrInvalidRule }

type problems []string

func (p *problems) addf(format string, args ...any) { *p = append(*p, fmt.Sprintf(format, args...)) }

func (p problems) err() error {
	if len(p) == 0 {
		return nil
	}
	return &ValidationError{Problems: p}
}

var validate = validator.New()

// Validate checks a single rule for structural errors and for field references
// outside the schema of its source type.
func Validate(r Rule, schema Schema) error {
	var p problems
	if err := validate.Struct(r); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			for _, fe := range verrs {
				p.addf("%s: failed %s", fe.Field(), fe.Tag())
			}
		} else {
			p.addf("%v", err)
		}
	}
	if schema != nil && r.SourceType != "" && !schema.Knows(r.SourceType) {
		p.addf("unknown source type %q", r.SourceType)
	}
	checkField := func(where, field string) {
		if schema == nil || !schema.Knows(r.SourceType) {
			return
		}
		if !schema.Allows(r.SourceType, field) {
			p.addf("%s references field %q not available on %s", where, field, r.SourceType)
		}
	}
	if r.EffectiveTo != nil && r.EffectiveTo.Before(r.EffectiveFrom) {
		p.addf("effective_to precedes effective_from")
	}
	if r.IsDefault && len(r.Conditions) > 0 {
		p.addf("default rule must not carry conditions")
	}
	for i, c := range r.Conditions {
		if err := c.Check(); err != nil {
			p.addf("condition %d: %v", i+1, err)
			continue
		}
		checkField(fmt.Sprintf("condition %d", i+1), c.Field)
	}

	if len(r.Template.Lines) < 2 {
		p.addf("template requires at least two lines")
	}
	for _, m := range placeholder.FindAllStringSubmatch(r.Template.Description, -1) {
		checkField("template description", m[1])
	}
	var debits, credits int
	for i, lt := range r.Template.Lines {
		where := fmt.Sprintf("line %d", i+1)
		switch lt.Side {
		case journals.SideDebit:
			debits++
		case journals.SideCredit:
			credits++
		default:
			p.addf("%s: side must be debit or credit", where)
		}
		if lt.AmountField == "" {
			p.addf("%s: amount_field required", where)
		} else {
			checkField(where, lt.AmountField)
		}
		if lt.Account.Code == "" && lt.Account.CodeField == "" && lt.Account.Fallback == "" {
			p.addf("%s: account code, code_field or fallback required", where)
		}
		if lt.Account.CodeField != "" {
			checkField(where, lt.Account.CodeField)
			if lt.Account.Fallback == "" && lt.Account.Code == "" {
				p.addf("%s: code_field %q needs a fallback", where, lt.Account.CodeField)
			}
		}
		if lt.Subledger != nil {
			if !lt.Subledger.Kind.Valid() {
				p.addf("%s: unknown subledger kind %q", where, lt.Subledger.Kind)
			}
			if lt.Subledger.IDField == "" {
				p.addf("%s: subledger id_field required", where)
			} else {
				checkField(where, lt.Subledger.IDField)
			}
		}
		for _, m := range placeholder.FindAllStringSubmatch(lt.Description, -1) {
			checkField(where+" description", m[1])
		}
	}
	if len(r.Template.Lines) >= 2 && (debits == 0 || credits == 0) {
		p.addf("template needs at least one debit and one credit line")
	}
	return p.err()
}

type groupKey struct {
	company int64
	global  bool
	source  string
	trigger string
}

func (g groupKey) String() string {
	scope := "global"
	if !g.global {
		scope = fmt.Sprintf("company %d", g.company)
	}
	return fmt.Sprintf("%s %s/%s", scope, g.source, g.trigger)
}

func keyOf(r Rule) groupKey {
	if r.CompanyID == nil {
		return groupKey{global: true, source: r.SourceType, trigger: r.TriggerEvent}
	}
	return groupKey{company: *r.CompanyID, source: r.SourceType, trigger: r.TriggerEvent}
}

// ValidateCatalog enforces the cross-rule invariants of a rule set: codes unique per
// company and fiscal year, no two active rules sharing a priority over overlapping
// windows, at most one default per event and a fallback for every conditional event.
func ValidateCatalog(list []Rule) error {
	var p problems
	codes := map[string]bool{}
	groups := map[groupKey][]Rule{}
	for _, r := range list {
		scope := "global"
		if r.CompanyID != nil {
			scope = fmt.Sprintf("%d", *r.CompanyID)
		}
		ck := scope + "|" + r.FiscalYear + "|" + r.Code
		if codes[ck] {
			p.addf("duplicate rule code %s (scope %s, fiscal year %q)", r.Code, scope, r.FiscalYear)
		}
		codes[ck] = true
		if r.IsActive {
			groups[keyOf(r)] = append(groups[keyOf(r)], r)
		}
	}

	keys := make([]groupKey, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].String() < keys[j].String() })

	for _, k := range keys {
		rs := groups[k]
		defaults := 0
		for i := range rs {
			if rs[i].IsDefault {
				defaults++
			}
			for j := i + 1; j < len(rs); j++ {
				if rs[i].Priority == rs[j].Priority && rs[i].Overlaps(rs[j]) {
					p.addf("%s: rules %s and %s share priority %d over overlapping windows", k, rs[i].Code, rs[j].Code, rs[i].Priority)
				}
			}
		}
		if defaults > 1 {
			p.addf("%s: %d default rules, at most one allowed", k, defaults)
		}
		if defaults == 0 && !hasUnconditional(rs) && !hasGlobalFallback(k, groups) {
			p.addf("%s: no default or unconditional fallback rule", k)
		}
	}
	return p.err()
}

func hasUnconditional(rs []Rule) bool {
	for _, r := range rs {
		if r.IsDefault || len(r.Conditions) == 0 {
			return true
		}
	}
	return false
}

func hasGlobalFallback(k groupKey, groups map[groupKey][]Rule) bool {
	if k.global {
		return false
	}
	return hasUnconditional(groups[groupKey{global: true, source: k.source, trigger: k.trigger}])
}

// ValidateAgainstChart checks that every statically known account in the template
// exists, is active and that control accounts are only reached through lines that
// carry a compatible subledger.
func ValidateAgainstChart(r Rule, chart accounts.Chart) error {
	var p problems
	for i, lt := range r.Template.Lines {
		where := fmt.Sprintf("line %d", i+1)
		for _, code := range []string{lt.Account.Fallback, lt.Account.Code} {
			if code == "" {
				continue
			}
			acc, ok := chart.Lookup(code)
			if !ok {
				p.addf("%s: account %s not found", where, code)
				continue
			}
			if !acc.IsActive {
				p.addf("%s: account %s is inactive", where, code)
			}
			kind := ""
			if lt.Subledger != nil {
				kind = string(lt.Subledger.Kind)
			}
			if err := accounts.CheckSubledger(acc, kind); err != nil {
				p.addf("%s: %v", where, err)
			}
		}
	}
	return p.err()
}
