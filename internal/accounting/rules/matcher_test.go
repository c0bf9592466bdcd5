package rules

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/himanshudhami/InvoiceX-sub001/internal/accounting/shared"
)

func day(y int, m time.Month, d int) time.Time { return time.Date(y, m, d, 0, 0, 0, 0, time.UTC) }

func companyPtr(id int64) *int64 { return &id }

func baseRule(id int64, code string, priority int) Rule {
	return Rule{
		ID:            id,
		Code:          code,
		Name:          code,
		SourceType:    SourceSalesInvoice,
		TriggerEvent:  "on_finalize",
		Priority:      priority,
		IsActive:      true,
		EffectiveFrom: day(2017, 7, 1),
		Template:      invoiceTemplate(),
	}
}

func query(fields Fields) Query {
	return Query{
		CompanyID:    1,
		SourceType:   SourceSalesInvoice,
		TriggerEvent: "on_finalize",
		EventDate:    day(2024, 6, 15),
		FiscalYear:   "2024-25",
		Fields:       fields,
	}
}

func TestSelectRulePriorityAndDeterminism(t *testing.T) {
	a := baseRule(2, "B", 10)
	b := baseRule(1, "A", 10)
	c := baseRule(3, "C", 5)
	candidates := []Rule{a, b, c}

	got, err := SelectRule(candidates, query(nil))
	require.NoError(t, err)
	assert.Equal(t, "C", got.Code)

	c.IsActive = false
	for i := 0; i < 5; i++ {
		got, err = SelectRule([]Rule{a, c, b}, query(nil))
		require.NoError(t, err)
		assert.Equal(t, int64(1), got.ID, "ties break on id")
	}
}

func TestSelectRuleCompanyOverGlobal(t *testing.T) {
	global := baseRule(1, "GLOBAL", 1)
	company := baseRule(2, "COMPANY", 50)
	company.CompanyID = companyPtr(1)
	other := baseRule(3, "OTHER", 0)
	other.CompanyID = companyPtr(2)

	got, err := SelectRule([]Rule{global, company, other}, query(nil))
	require.NoError(t, err)
	assert.Equal(t, "COMPANY", got.Code)

	q := query(nil)
	q.CompanyID = 9
	got, err = SelectRule([]Rule{global, company, other}, q)
	require.NoError(t, err)
	assert.Equal(t, "GLOBAL", got.Code)
}

func TestSelectRuleConditionsAndFallback(t *testing.T) {
	intra := baseRule(1, "INTRA", 10)
	intra.Conditions = []Condition{{Field: "is_interstate", Op: OpEq, Value: BoolValue(false)}}
	inter := baseRule(2, "INTER", 20)
	inter.Conditions = []Condition{{Field: "is_interstate", Op: OpEq, Value: BoolValue(true)}}
	fallback := baseRule(3, "DEFAULT", 1)
	fallback.IsDefault = true
	rules := []Rule{fallback, inter, intra}

	got, err := SelectRule(rules, query(Fields{"is_interstate": true}))
	require.NoError(t, err)
	assert.Equal(t, "INTER", got.Code)

	got, err = SelectRule(rules, query(Fields{"is_interstate": "false"}))
	require.NoError(t, err)
	assert.Equal(t, "INTRA", got.Code)

	got, err = SelectRule(rules, query(Fields{}))
	require.NoError(t, err)
	assert.Equal(t, "DEFAULT", got.Code, "absent field fails both conditions")
}

func TestSelectRuleEffectiveWindowAndFiscalYear(t *testing.T) {
	old := baseRule(1, "OLD", 10)
	end := day(2024, 3, 31)
	old.EffectiveTo = &end
	current := baseRule(2, "NEW", 10)
	current.EffectiveFrom = day(2024, 4, 1)
	scoped := baseRule(3, "FY23", 1)
	scoped.FiscalYear = "2023-24"

	q := query(nil)
	q.EventDate = day(2024, 3, 31)
	q.FiscalYear = "2023-24"
	got, err := SelectRule([]Rule{old, current, scoped}, q)
	require.NoError(t, err)
	assert.Equal(t, "FY23", got.Code)

	q.EventDate = day(2024, 4, 1)
	q.FiscalYear = "2024-25"
	got, err = SelectRule([]Rule{old, current, scoped}, q)
	require.NoError(t, err)
	assert.Equal(t, "NEW", got.Code)
}

func TestSelectRuleNoMatch(t *testing.T) {
	r := baseRule(1, "A", 1)
	r.TriggerEvent = "on_create"
	_, err := SelectRule([]Rule{r}, query(nil))
	var nm *shared.NoMatchingRuleError
	require.True(t, errors.As(err, &nm))
	assert.Equal(t, SourceSalesInvoice, nm.SourceType)
	assert.Equal(t, shared.ClassConfiguration, shared.Classify(err))
}

func TestConditionOperators(t *testing.T) {
	fields := Fields{"amount": "250000", "state": "KA", "flag": true}
	tests := []struct {
		cond Condition
		want bool
	}{
		{Condition{Field: "amount", Op: OpGt, Value: NumberValue(dec("249999.99"))}, true},
		{Condition{Field: "amount", Op: OpGte, Value: NumberValue(dec("250000"))}, true},
		{Condition{Field: "amount", Op: OpLt, Value: NumberValue(dec("250000"))}, false},
		{Condition{Field: "amount", Op: OpLte, Value: NumberValue(dec("250000.00"))}, true},
		{Condition{Field: "amount", Op: OpEq, Value: NumberValue(dec("250000.0"))}, true},
		{Condition{Field: "state", Op: OpNe, Value: StringValue("MH")}, true},
		{Condition{Field: "state", Op: OpIn, Value: ListValue(StringValue("MH"), StringValue("KA"))}, true},
		{Condition{Field: "state", Op: OpIn, Value: ListValue(StringValue("TN"))}, false},
		{Condition{Field: "flag", Op: OpEq, Value: BoolValue(true)}, true},
		{Condition{Field: "missing", Op: OpNe, Value: StringValue("x")}, false},
		{Condition{Field: "missing", Op: OpExists}, false},
		{Condition{Field: "missing", Op: OpNotExists}, true},
		{Condition{Field: "state", Op: OpExists}, true},
		{Condition{Field: "state", Op: OpGt, Value: NumberValue(dec("1"))}, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.cond.Eval(fields), "%s %s %s", tt.cond.Field, tt.cond.Op, tt.cond.Value)
	}
}

type countingLoader struct {
	calls   atomic.Int32
	release chan struct{}
	rules   []Rule
}

func (l *countingLoader) Candidates(context.Context, int64, string, string) ([]Rule, error) {
	l.calls.Add(1)
	<-l.release
	return l.rules, nil
}

func TestMatcherCollapsesConcurrentLoads(t *testing.T) {
	loader := &countingLoader{release: make(chan struct{}), rules: []Rule{baseRule(1, "A", 1)}}
	m := NewMatcher(loader)

	var wg sync.WaitGroup
	results := make([]string, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			r, err := m.Select(context.Background(), query(nil))
			if err == nil {
				results[i] = r.Code
			}
		}(i)
	}
	time.Sleep(50 * time.Millisecond)
	close(loader.release)
	wg.Wait()

	for _, code := range results {
		assert.Equal(t, "A", code)
	}
	assert.LessOrEqual(t, loader.calls.Load(), int32(8))
	assert.GreaterOrEqual(t, loader.calls.Load(), int32(1))
}

func TestMatcherHonoursContext(t *testing.T) {
	loader := &countingLoader{release: make(chan struct{})}
	defer close(loader.release)
	m := NewMatcher(loader)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := m.Select(ctx, query(nil))
	assert.ErrorIs(t, err, context.Canceled)
}

type ctxLoader struct {
	started chan struct{}
	release chan struct{}
	once    sync.Once
	rules   []Rule
}

func (l *ctxLoader) Candidates(ctx context.Context, _ int64, _ string, _ string) ([]Rule, error) {
	l.once.Do(func() { close(l.started) })
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-l.release:
		return l.rules, nil
	}
}

func TestMatcherSharedLoadSurvivesCancelledCaller(t *testing.T) {
	loader := &ctxLoader{
		started: make(chan struct{}),
		release: make(chan struct{}),
		rules:   []Rule{baseRule(1, "A", 1)},
	}
	m := NewMatcher(loader)

	ctx, cancel := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := m.Select(ctx, query(nil))
		firstErr <- err
	}()
	<-loader.started

	type outcome struct {
		rule Rule
		err  error
	}
	second := make(chan outcome, 1)
	go func() {
		r, err := m.Select(context.Background(), query(nil))
		second <- outcome{r, err}
	}()
	time.Sleep(20 * time.Millisecond)

	cancel()
	assert.ErrorIs(t, <-firstErr, context.Canceled)
	time.Sleep(20 * time.Millisecond)
	close(loader.release)

	select {
	case got := <-second:
		require.NoError(t, got.err)
		assert.Equal(t, "A", got.rule.Code)
	case <-time.After(2 * time.Second):
		t.Fatalf("second caller did not return")
	}
}
