package accounting

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/himanshudhami/InvoiceX-sub001/internal/accounting/journals"
	"github.com/himanshudhami/InvoiceX-sub001/internal/accounting/posting"
)

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	r := chi.NewRouter()
	NewHandler(nil, Services{}).MountRoutes(r)
	return r
}

// fakeEngine reverses each entry once and replays the reversal afterwards.
type fakeEngine struct {
	reversals map[int64]journals.JournalEntry
}

func (e *fakeEngine) Post(context.Context, posting.Request) (posting.Result, error) {
	return posting.Result{}, nil
}

func (e *fakeEngine) Reverse(_ context.Context, in journals.ReverseInput) (posting.Result, error) {
	if existing, ok := e.reversals[in.EntryID]; ok {
		return posting.Result{Entry: existing}, nil
	}
	original := in.EntryID
	entry := journals.JournalEntry{
		ID:           100 + in.EntryID,
		Number:       "JE/2024-25/000002",
		Status:       journals.JournalStatusPosted,
		Date:         time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC),
		ReversalOfID: &original,
		TotalDebit:   decimal.Zero,
		TotalCredit:  decimal.Zero,
	}
	e.reversals[in.EntryID] = entry
	return posting.Result{Entry: entry, Created: true}, nil
}

func (e *fakeEngine) CreateDraft(context.Context, journals.DraftInput) (journals.JournalEntry, error) {
	return journals.JournalEntry{}, nil
}

func (e *fakeEngine) UpdateDraft(context.Context, int64, journals.DraftInput) (journals.JournalEntry, error) {
	return journals.JournalEntry{}, nil
}

func (e *fakeEngine) SubmitDraft(context.Context, int64, int64) (journals.JournalEntry, error) {
	return journals.JournalEntry{}, nil
}

func (e *fakeEngine) PostDraft(context.Context, int64, int64) (journals.JournalEntry, error) {
	return journals.JournalEntry{}, nil
}

func TestReverseAnswersOKOnRepeat(t *testing.T) {
	r := chi.NewRouter()
	NewHandler(nil, Services{Posting: &fakeEngine{reversals: map[int64]journals.JournalEntry{}}}).MountRoutes(r)

	reverse := func() (int, journals.PostedEntry) {
		req := httptest.NewRequest(http.MethodPost, "/ledger/journals/7/reverse", nil)
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		var body journals.PostedEntry
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		return rec.Code, body
	}

	code, first := reverse()
	assert.Equal(t, http.StatusCreated, code)
	require.NotNil(t, first.ReversalOfID)
	assert.Equal(t, int64(7), *first.ReversalOfID)

	code, again := reverse()
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, first.JournalEntryID, again.JournalEntryID)
}

func TestPostingRejectsMalformedPayload(t *testing.T) {
	router := newTestRouter(t)

	cases := map[string]string{
		"unknown field": `{"company_id":1,"unexpected":true}`,
		"bad date":      `{"company_id":1,"event_date":"15/06/2024"}`,
		"not json":      `{`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/ledger/postings", strings.NewReader(body))
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))
		})
	}
}

func TestReportsRequireCompany(t *testing.T) {
	router := newTestRouter(t)
	for _, path := range []string{
		"/ledger/reports/trial-balance",
		"/ledger/reports/income-statement",
		"/ledger/reports/balance-sheet",
		"/ledger/subledgers",
		"/ledger/accounts/7/ledger",
	} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code, path)
	}
}

func TestReverseRejectsBadID(t *testing.T) {
	router := newTestRouter(t)
	req := httptest.NewRequest(http.MethodPost, "/ledger/journals/abc/reverse", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSetPeriodStatusValidatesPayload(t *testing.T) {
	router := newTestRouter(t)
	req := httptest.NewRequest(http.MethodPut, "/ledger/periods", strings.NewReader(`{"company_id":1,"date":"2024-06-01","status":"FROZEN"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestParseDate(t *testing.T) {
	d, err := parseDate("2024-06-15")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, time.June, 15, 0, 0, 0, 0, time.UTC), d)

	ts, err := parseDate("2024-06-15T10:30:00Z")
	require.NoError(t, err)
	assert.Equal(t, 10, ts.Hour())

	zero, err := parseDate("")
	require.NoError(t, err)
	assert.True(t, zero.IsZero())

	_, err = parseDate("June 15")
	assert.Error(t, err)
}
