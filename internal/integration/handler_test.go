package integration

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/himanshudhami/InvoiceX-sub001/internal/accounting/rules"
	"github.com/himanshudhami/InvoiceX-sub001/internal/accounting/shared"
)

func eventsRouter(poster *fakePoster) http.Handler {
	r := chi.NewRouter()
	r.Route("/events", NewHandler(NewHooks(poster, nil), nil).MountRoutes)
	return r
}

func TestHandlerPostsDecodedEvent(t *testing.T) {
	poster := &fakePoster{created: true}
	body := `{"company_id":1,"invoice_id":"inv-1","invoice_number":"INV-001","customer_id":"c-9",
		"date":"2024-06-15T00:00:00Z","subtotal":"10000","cgst":900,"sgst":900,"total":"11800"}`
	rr := httptest.NewRecorder()
	eventsRouter(poster).ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/events/invoice-finalized", strings.NewReader(body)))

	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	require.Len(t, poster.requests, 1)
	assert.Equal(t, rules.SourceSalesInvoice, poster.requests[0].SourceType)
	_, lines := renderBalanced(t, poster.requests[0])
	assert.Len(t, lines, 4)
}

func TestHandlerReplayAnswers200(t *testing.T) {
	poster := &fakePoster{created: false}
	body := `{"company_id":1,"payment_id":"p-1","payment_number":"P-1","vendor_id":"v-1",
		"date":"2024-06-15T00:00:00Z","amount":"50","bank_account_id":"hdfc-01"}`
	rr := httptest.NewRecorder()
	eventsRouter(poster).ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/events/vendor-payment-made", strings.NewReader(body)))
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestHandlerErrors(t *testing.T) {
	poster := &fakePoster{created: true}
	router := eventsRouter(poster)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/events/payroll-approved", strings.NewReader(`{"bogus":1}`)))
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/events/payroll-approved", strings.NewReader(`{"company_id":1}`)))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), `"class":"data"`)
	assert.Empty(t, poster.requests)

	poster.err = &shared.NoMatchingRuleError{CompanyID: 1, SourceType: rules.SourceExpenseClaim}
	body := `{"company_id":1,"claim_id":"cl-1","claim_number":"EC-1","employee_id":"e-1",
		"date":"2024-06-15T00:00:00Z","amount":"100"}`
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/events/expense-claim-approved", strings.NewReader(body)))
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	assert.Contains(t, rr.Body.String(), `"class":"configuration"`)
}
