package journals

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/himanshudhami/InvoiceX-sub001/internal/accounting/shared"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestValidateLines(t *testing.T) {
	tests := []struct {
		name    string
		lines   []JournalLine
		wantErr error
	}{
		{
			name: "balanced",
			lines: []JournalLine{
				{AccountCode: "1300", Debit: d("100"), Subledger: Customer("c-1")},
				{AccountCode: "4100", Credit: d("100")},
			},
		},
		{
			name:    "single line",
			lines:   []JournalLine{{AccountCode: "1300", Debit: d("100")}},
			wantErr: shared.ErrTooFewLines,
		},
		{
			name: "both sides",
			lines: []JournalLine{
				{AccountCode: "1300", Debit: d("100"), Credit: d("1")},
				{AccountCode: "4100", Credit: d("99")},
			},
			wantErr: shared.ErrInvalidLine,
		},
		{
			name: "zero line",
			lines: []JournalLine{
				{AccountCode: "1300", Debit: d("100")},
				{AccountCode: "4100"},
			},
			wantErr: shared.ErrInvalidLine,
		},
		{
			name: "negative",
			lines: []JournalLine{
				{AccountCode: "1300", Debit: d("-100")},
				{AccountCode: "4100", Credit: d("-100")},
			},
			wantErr: shared.ErrInvalidLine,
		},
		{
			name: "unbalanced",
			lines: []JournalLine{
				{AccountCode: "1300", Debit: d("100")},
				{AccountCode: "4100", Credit: d("99.98")},
			},
			wantErr: shared.ErrUnbalanced,
		},
		{
			name: "within tolerance",
			lines: []JournalLine{
				{AccountCode: "1300", Debit: d("100")},
				{AccountCode: "4100", Credit: d("99.99")},
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := ValidateLines(tt.lines)
			if tt.wantErr == nil {
				require.NoError(t, err)
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestSubledgerUnion(t *testing.T) {
	var none Subledger
	assert.True(t, none.IsNone())
	kind, id := none.Columns()
	assert.Nil(t, kind)
	assert.Nil(t, id)

	v := Vendor("v-9")
	kind, id = v.Columns()
	require.NotNil(t, kind)
	assert.Equal(t, "vendor", *kind)
	assert.Equal(t, "v-9", *id)

	_, err := NewSubledger(SubledgerCustomer, "")
	assert.Error(t, err)
	_, err = NewSubledger("", "orphan")
	assert.Error(t, err)
	got, err := NewSubledger(SubledgerEmployee, "e-1")
	require.NoError(t, err)
	assert.Equal(t, Employee("e-1"), got)
}

func TestReversedLinesSwapSides(t *testing.T) {
	foreign := d("100")
	lines := []JournalLine{
		{ID: 1, EntryID: 5, LineNo: 1, AccountCode: "1300", Debit: d("8300"), Currency: "USD", ExchangeRate: d("83"), ForeignAmount: &foreign, Subledger: Customer("c-1")},
		{ID: 2, EntryID: 5, LineNo: 2, AccountCode: "4100", Credit: d("8300"), Currency: "USD", ExchangeRate: d("83"), ForeignAmount: &foreign},
	}
	rev := ReversedLines(lines)
	require.Len(t, rev, 2)
	assert.True(t, rev[0].Credit.Equal(d("8300")))
	assert.True(t, rev[0].Debit.IsZero())
	assert.Equal(t, Customer("c-1"), rev[0].Subledger)
	assert.Equal(t, "USD", rev[0].Currency)
	assert.Zero(t, rev[0].ID)
	assert.Equal(t, SideDebit, rev[1].Side())
}

func TestFormatNumber(t *testing.T) {
	assert.Equal(t, "JE/2024-25/000042", FormatNumber("2024-25", 42))
}

func TestDraftInputToLines(t *testing.T) {
	in := DraftInput{
		CompanyID: 1,
		Date:      time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
		Lines: []LineInput{
			{AccountCode: "5900", Debit: d("10.005")},
			{AccountCode: "2100", Credit: d("10.005"), SubledgerKind: SubledgerVendor, SubledgerID: "v-1"},
		},
	}
	lines, err := in.ToLines("INR")
	require.NoError(t, err)
	assert.Equal(t, "INR", lines[0].Currency)
	assert.Equal(t, 2, lines[1].LineNo)
	assert.Equal(t, Vendor("v-1"), lines[1].Subledger)
	assert.True(t, lines[0].Debit.Equal(d("10.01")))

	in.Lines[1].SubledgerID = ""
	_, err = in.ToLines("INR")
	assert.Error(t, err)
}

func TestToRecord(t *testing.T) {
	entry := JournalEntry{
		ID:     9,
		Number: "JE/2024-25/000001",
		Status: JournalStatusPosted,
		Date:   time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
		Lines: []JournalLine{
			{AccountCode: "1300", Debit: d("11800"), ExchangeRate: d("1"), Subledger: Customer("c-1")},
			{AccountCode: "4100", Credit: d("11800"), ExchangeRate: d("1")},
		},
	}
	rec := ToRecord(entry)
	assert.Equal(t, "posted", rec.Status)
	require.Len(t, rec.Lines, 2)
	assert.Equal(t, SideDebit, rec.Lines[0].Side)
	assert.Equal(t, "11800.00", rec.Lines[0].Amount)
	assert.Equal(t, "customer", rec.Lines[0].SubledgerType)
	assert.Empty(t, rec.Lines[1].SubledgerType)
	assert.Empty(t, rec.Lines[0].ExchangeRate)
}
