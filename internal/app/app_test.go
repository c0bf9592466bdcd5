package app

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/himanshudhami/InvoiceX-sub001/internal/accounting"
	audithttp "github.com/himanshudhami/InvoiceX-sub001/internal/audit/http"
	"github.com/himanshudhami/InvoiceX-sub001/internal/integration"
	"github.com/himanshudhami/InvoiceX-sub001/internal/observability"
	"github.com/himanshudhami/InvoiceX-sub001/jobs"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("LEDGER_BASE_CURRENCY", "usd")
	t.Setenv("LEDGER_FISCAL_START_MONTH", "1")
	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "USD", cfg.LedgerBaseCurrency)
	assert.Equal(t, 1, cfg.LedgerFiscalStartMonth)
	assert.Equal(t, ":8080", cfg.AppAddr)
	assert.False(t, cfg.IsProduction())
}

func TestConfigValidate(t *testing.T) {
	cfg := Config{PGDSN: "postgres://x", LedgerBaseCurrency: "rupee", LedgerFiscalStartMonth: 4}
	assert.Error(t, cfg.Validate())

	cfg.LedgerBaseCurrency = "INR"
	cfg.LedgerFiscalStartMonth = 13
	assert.Error(t, cfg.Validate())

	cfg.LedgerFiscalStartMonth = 4
	cfg.PGDSN = ""
	assert.Error(t, cfg.Validate())

	cfg.PGDSN = "postgres://x"
	assert.NoError(t, cfg.Validate())
}

func TestLoggerFormatAndLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&Config{LogFormat: "json", LogLevel: "warn"}, &buf)
	logger.Info("hidden")
	logger.Warn("shown", slog.String("k", "v"))

	out := strings.TrimSpace(buf.String())
	require.NotEmpty(t, out)
	assert.NotContains(t, out, "hidden")
	var line map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &line))
	assert.Equal(t, "shown", line["msg"])
	assert.Equal(t, "v", line["k"])
}

type stubPinger struct{ err error }

func (s stubPinger) Ping(context.Context) error { return s.err }

func testRouter(t *testing.T, readiness map[string]Pinger) http.Handler {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	cfg := &Config{LedgerBaseCurrency: "INR", LedgerFiscalStartMonth: 4}
	metrics := observability.NewMetrics()
	ledger := NewLedger(LedgerDeps{Config: cfg, Logger: logger, Metrics: metrics})
	return NewRouter(RouterParams{
		Logger:        logger,
		Config:        cfg,
		LedgerHandler: accounting.NewHandler(logger, ledger.Services),
		EventsHandler: integration.NewHandler(ledger.Hooks, logger),
		AuditHandler:  audithttp.NewHandler(logger, ledger.Audit),
		JobHandler:    jobs.NewHandler(nil, nil, logger),
		Metrics:       metrics,
		Readiness:     readiness,
	})
}

func TestRouterHealthAndReadiness(t *testing.T) {
	router := testRouter(t, map[string]Pinger{"postgres": stubPinger{}, "redis": stubPinger{err: errors.New("refused")}})

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "nosniff", rr.Header().Get("X-Content-Type-Options"))

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
	var body readiness
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, "degraded", body.Status)
	assert.Equal(t, "up", body.Components["postgres"])
	assert.Equal(t, "down", body.Components["redis"])
}

func TestRouterMountsLedgerJobsAndMetrics(t *testing.T) {
	router := testRouter(t, nil)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/ledger/reports/trial-balance", nil))
	assert.Equal(t, http.StatusBadRequest, rr.Code, "company_id is required")

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/events/payment-received", strings.NewReader(`{}`)))
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/audit/?page=-1", nil))
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/jobs/health", nil))
	assert.Equal(t, http.StatusOK, rr.Code)

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "ledger_http_requests_total")
}
