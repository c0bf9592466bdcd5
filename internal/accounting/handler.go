package accounting

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"
	"github.com/go-playground/validator/v10"

	"github.com/himanshudhami/InvoiceX-sub001/internal/accounting/accounts"
	"github.com/himanshudhami/InvoiceX-sub001/internal/accounting/journals"
	"github.com/himanshudhami/InvoiceX-sub001/internal/accounting/periods"
	"github.com/himanshudhami/InvoiceX-sub001/internal/accounting/posting"
	"github.com/himanshudhami/InvoiceX-sub001/internal/accounting/reports"
	"github.com/himanshudhami/InvoiceX-sub001/internal/accounting/rules"
	"github.com/himanshudhami/InvoiceX-sub001/internal/accounting/shared"
	"github.com/himanshudhami/InvoiceX-sub001/internal/platform/httpx"
)

const (
	postingRateLimit = 300
	reportRateLimit  = 30
	rateWindow       = time.Minute
)

// PostingEngine is the write side of the ledger as used by the HTTP layer.
// *posting.Service satisfies it.
type PostingEngine interface {
	Post(ctx context.Context, req posting.Request) (posting.Result, error)
	Reverse(ctx context.Context, in journals.ReverseInput) (posting.Result, error)
	CreateDraft(ctx context.Context, in journals.DraftInput) (journals.JournalEntry, error)
	UpdateDraft(ctx context.Context, id int64, in journals.DraftInput) (journals.JournalEntry, error)
	SubmitDraft(ctx context.Context, id, actorID int64) (journals.JournalEntry, error)
	PostDraft(ctx context.Context, id, actorID int64) (journals.JournalEntry, error)
}

var _ PostingEngine = (*posting.Service)(nil)

// Services bundles the ledger components exposed over HTTP.
type Services struct {
	Accounts *accounts.Service
	Journals *journals.Service
	Rules    *rules.Service
	Periods  *periods.Service
	Posting  PostingEngine
	Reports  *reports.Service
}

// Handler wires ledger endpoints.
type Handler struct {
	logger   *slog.Logger
	svc      Services
	accounts *accounts.Handler
	journals *journals.Handler
	validate *validator.Validate
}

// NewHandler builds a Handler instance.
func NewHandler(logger *slog.Logger, svc Services) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		logger:   logger,
		svc:      svc,
		accounts: accounts.NewHandler(logger, svc.Accounts),
		journals: journals.NewHandler(logger, svc.Journals),
		validate: validator.New(),
	}
}

// MountRoutes registers HTTP routes for the ledger module.
func (h *Handler) MountRoutes(r chi.Router) {
	postLimiter := httprate.Limit(postingRateLimit, rateWindow, httprate.WithKeyFuncs(httprate.KeyByIP))
	reportLimiter := httprate.Limit(reportRateLimit, rateWindow, httprate.WithKeyFuncs(rateLimitKey))

	r.Route("/ledger", func(r chi.Router) {
		r.With(postLimiter).Post("/postings", h.handlePost)

		r.Route("/journals", func(r chi.Router) {
			r.Get("/", h.journals.List)
			r.Get("/{id}", h.journals.Get)
			r.Post("/", h.handleCreateDraft)
			r.Put("/{id}", h.handleUpdateDraft)
			r.Post("/{id}/submit", h.handleSubmitDraft)
			r.Post("/{id}/post", h.handlePostDraft)
			r.Post("/{id}/reverse", h.handleReverse)
		})

		r.Route("/accounts", func(r chi.Router) {
			h.accounts.MountRoutes(r)
			r.Get("/{id}/ledger", h.handleAccountLedger)
		})

		r.Group(func(gr chi.Router) {
			gr.Use(reportLimiter)
			gr.Get("/reports/trial-balance", h.handleTrialBalance)
			gr.Get("/reports/income-statement", h.handleIncomeStatement)
			gr.Get("/reports/balance-sheet", h.handleBalanceSheet)
			gr.Get("/subledgers", h.handleSubledgers)
			gr.Get("/period-balances", h.handlePeriodBalances)
			gr.Get("/integrity", h.handleIntegrity)
			gr.Post("/period-balances/recalculate", h.handleRecalculate)
		})

		r.Get("/periods", h.handleListPeriods)
		r.Put("/periods", h.handleSetPeriodStatus)

		r.Get("/rules", h.handleListRules)
		r.Get("/rules/{id}/usage", h.handleRuleUsage)
	})
}

func rateLimitKey(r *http.Request) (string, error) {
	if company := strings.TrimSpace(r.URL.Query().Get("company_id")); company != "" {
		return "company:" + company, nil
	}
	key, err := httprate.KeyByIP(r)
	if err != nil {
		return "", err
	}
	return "ip:" + key, nil
}

// writeError renders err as a problem document classified by the ledger taxonomy.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := shared.HTTPStatus(err)
	detail := err.Error()
	if status == http.StatusInternalServerError {
		h.logger.Error("ledger request failed", slog.String("path", r.URL.Path), slog.Any("error", err))
		detail = ""
	} else {
		h.logger.Warn("ledger request rejected", slog.String("path", r.URL.Path), slog.Int("status", status), slog.Any("error", err))
	}
	httpx.WriteProblem(w, httpx.ProblemDetail{
		Title:  http.StatusText(status),
		Status: status,
		Detail: detail,
		Class:  string(shared.Classify(err)),
	})
}

func badRequest(w http.ResponseWriter, detail string) {
	httpx.Problem(w, http.StatusBadRequest, "Validation Failed", detail)
}

// parseDate accepts a calendar date or an RFC 3339 timestamp.
func parseDate(v string) (time.Time, error) {
	if v == "" {
		return time.Time{}, nil
	}
	if d, err := time.Parse("2006-01-02", v); err == nil {
		return d, nil
	}
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q", v)
	}
	return t, nil
}

func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, errors.New("invalid id")
	}
	return id, nil
}

func companyParam(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(r.URL.Query().Get("company_id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, errors.New("company_id is required")
	}
	return id, nil
}

func rangeParams(r *http.Request) (from, to time.Time, err error) {
	if from, err = parseDate(r.URL.Query().Get("from")); err != nil {
		return
	}
	to, err = parseDate(r.URL.Query().Get("to"))
	return
}
