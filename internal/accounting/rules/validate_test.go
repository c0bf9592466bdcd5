package rules

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/himanshudhami/InvoiceX-sub001/internal/accounting/accounts"
	"github.com/himanshudhami/InvoiceX-sub001/internal/accounting/journals"
)

func defaultChart(t *testing.T) accounts.Chart {
	t.Helper()
	inputs, err := accounts.DefaultChart()
	require.NoError(t, err)
	chart, err := accounts.BuildChart(inputs)
	require.NoError(t, err)
	return chart
}

func TestDefaultCatalogIsValid(t *testing.T) {
	cat, err := DefaultCatalog()
	require.NoError(t, err)
	require.NotEmpty(t, cat.Rules)
	assert.Equal(t, "2024.1", cat.PackVersion)

	chart := defaultChart(t)
	for _, r := range cat.Rules {
		assert.NoError(t, Validate(r, DefaultSchema), r.Code)
		assert.NoError(t, ValidateAgainstChart(r, chart), r.Code)
		assert.Equal(t, "2024.1", r.PackVersion)
	}
	assert.NoError(t, ValidateCatalog(cat.Rules))

	sources := map[string]bool{}
	for _, r := range cat.Rules {
		sources[r.SourceType] = true
	}
	for _, s := range DefaultSchema.SourceTypes() {
		assert.True(t, sources[s], "no rule for %s", s)
	}
}

func TestParseCatalogConditions(t *testing.T) {
	doc := `
pack_version: "x"
company_id: 4
rules:
  - code: BIG
    name: big invoices
    source_type: sales_invoice
    trigger_event: on_finalize
    priority: 1
    effective_from: "2024-04-01"
    effective_to: "2025-03-31"
    conditions:
      - {field: total, op: gte, value: 500000}
      - {field: place_of_supply, op: in, value: [KA, "29"]}
      - {field: is_export, op: not_exists}
    template:
      lines:
        - {account: {code: "1300"}, side: debit, amount_field: total, subledger: {kind: customer, id_field: customer_id}}
        - {account: {code: "4100"}, side: credit, amount_field: total}
`
	cat, err := ParseCatalog([]byte(doc))
	require.NoError(t, err)
	require.Len(t, cat.Rules, 1)
	r := cat.Rules[0]
	require.NotNil(t, r.CompanyID)
	assert.Equal(t, int64(4), *r.CompanyID)
	require.NotNil(t, r.EffectiveTo)
	require.Len(t, r.Conditions, 3)
	assert.Equal(t, KindNumber, r.Conditions[0].Value.Kind())
	assert.Equal(t, KindList, r.Conditions[1].Value.Kind())
	assert.Equal(t, KindString, r.Conditions[1].Value.Items()[1].Kind())
	assert.True(t, r.Conditions[2].Value.IsNone())
	assert.NoError(t, Validate(r, DefaultSchema))

	assert.True(t, MatchAll(r.Conditions, Fields{"total": "600000", "place_of_supply": "29"}))
	assert.False(t, MatchAll(r.Conditions, Fields{"total": "600000", "place_of_supply": "29", "is_export": true}))
}

func TestRuleJSONRoundTripKeepsTypedValues(t *testing.T) {
	r := baseRule(5, "R", 1)
	r.Conditions = []Condition{
		{Field: "total", Op: OpGt, Value: NumberValue(dec("1000.50"))},
		{Field: "is_interstate", Op: OpEq, Value: BoolValue(true)},
		{Field: "place_of_supply", Op: OpIn, Value: ListValue(StringValue("KA"), NumberValue(dec("29")))},
	}
	raw, err := json.Marshal(r)
	require.NoError(t, err)
	var back Rule
	require.NoError(t, json.Unmarshal(raw, &back))
	require.Len(t, back.Conditions, 3)
	assert.True(t, back.Conditions[0].Value.Number().Equal(dec("1000.5")))
	assert.True(t, back.Conditions[1].Value.Bool())
	assert.Equal(t, KindNumber, back.Conditions[2].Value.Items()[1].Kind())
	assert.Equal(t, r.Template, back.Template)
}

func TestValidateReportsProblems(t *testing.T) {
	r := baseRule(1, "BAD", 1)
	r.IsDefault = true
	r.Conditions = []Condition{{Field: "unknown_field", Op: OpEq, Value: StringValue("x")}, {Field: "total", Op: "like"}}
	r.Template.Lines = append(r.Template.Lines, LineTemplate{Account: AccountRef{}, Side: "both", AmountField: "bogus"})

	err := Validate(r, DefaultSchema)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidRule))
	msg := err.Error()
	for _, want := range []string{"default rule must not carry conditions", "unknown_field", "unknown operator", "side must be", "bogus", "account code"} {
		assert.True(t, strings.Contains(msg, want), "missing %q in %s", want, msg)
	}
}

func TestValidateRequiresBothSides(t *testing.T) {
	r := baseRule(1, "ONE_SIDED", 1)
	r.Template.Lines = []LineTemplate{
		{Account: AccountRef{Code: "5100"}, Side: journals.SideDebit, AmountField: "subtotal"},
		{Account: AccountRef{Code: "5200"}, Side: journals.SideDebit, AmountField: "total"},
	}
	err := Validate(r, DefaultSchema)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "one debit and one credit")
}

func TestValidateCatalogInvariants(t *testing.T) {
	a := baseRule(1, "A", 10)
	b := baseRule(2, "B", 10)
	fallback := baseRule(3, "F", 100)
	fallback.IsDefault = true

	err := ValidateCatalog([]Rule{a, b, fallback})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "share priority 10")

	end := day(2020, 12, 31)
	a.EffectiveTo = &end
	b.EffectiveFrom = day(2021, 1, 1)
	assert.NoError(t, ValidateCatalog([]Rule{a, b, fallback}), "disjoint windows may share a priority")

	dup := baseRule(4, "A", 11)
	err = ValidateCatalog([]Rule{a, b, fallback, dup})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate rule code A")

	second := baseRule(5, "F2", 200)
	second.IsDefault = true
	err = ValidateCatalog([]Rule{a, b, fallback, second})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "2 default rules")
}

func TestValidateCatalogFallbackCompleteness(t *testing.T) {
	cond := baseRule(1, "COND", 10)
	cond.Conditions = []Condition{{Field: "is_export", Op: OpEq, Value: BoolValue(true)}}
	err := ValidateCatalog([]Rule{cond})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no default or unconditional fallback")

	companyCond := cond
	companyCond.ID = 2
	companyCond.CompanyID = companyPtr(8)
	global := baseRule(3, "GLOBAL_DEFAULT", 100)
	global.IsDefault = true
	assert.NoError(t, ValidateCatalog([]Rule{companyCond, global}), "company rules may fall back to the global pack")

	fyScoped := baseRule(4, "A", 1)
	fyScoped.FiscalYear = "2023-24"
	fyScoped2 := baseRule(5, "A", 2)
	fyScoped2.FiscalYear = "2024-25"
	assert.NoError(t, ValidateCatalog([]Rule{fyScoped, fyScoped2}), "codes are unique per fiscal year")
}

func TestValidateAgainstChart(t *testing.T) {
	chart := defaultChart(t)
	r := baseRule(1, "R", 1)
	r.Template.Lines[0].Subledger = nil
	err := ValidateAgainstChart(r, chart)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "control account requires a subledger")

	r = baseRule(1, "R", 1)
	r.Template.Lines[1].Account.Fallback = "9999"
	err = ValidateAgainstChart(r, chart)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "9999 not found")
}

func TestSnapshotDigestIsStable(t *testing.T) {
	r := baseRule(1, "R", 1)
	payload, digest, err := Snapshot(r)
	require.NoError(t, err)
	assert.Len(t, digest, 64)
	_, again, err := Snapshot(r)
	require.NoError(t, err)
	assert.Equal(t, digest, again)

	r.Priority = 2
	_, changed, err := Snapshot(r)
	require.NoError(t, err)
	assert.NotEqual(t, digest, changed)

	log, err := NewUsageLog(r, 1, SourceSalesInvoice, "INV-1", "on_finalize", nil, errors.New("boom"))
	require.NoError(t, err)
	assert.False(t, log.Success)
	assert.Equal(t, "boom", log.ErrorMessage)
	assert.NotEmpty(t, payload)
}
