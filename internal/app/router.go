package app

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/himanshudhami/InvoiceX-sub001/internal/accounting"
	audithttp "github.com/himanshudhami/InvoiceX-sub001/internal/audit/http"
	"github.com/himanshudhami/InvoiceX-sub001/internal/integration"
	"github.com/himanshudhami/InvoiceX-sub001/internal/observability"
	"github.com/himanshudhami/InvoiceX-sub001/internal/platform/httpx"
	"github.com/himanshudhami/InvoiceX-sub001/jobs"
)

// Pinger reports whether a backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger        *slog.Logger
	Config        *Config
	LedgerHandler *accounting.Handler
	EventsHandler *integration.Handler
	AuditHandler  *audithttp.Handler
	JobHandler    *jobs.Handler
	Metrics       *observability.Metrics
	// Readiness probes keyed by component name.
	Readiness map[string]Pinger
}

type readiness struct {
	Status     string            `json:"status"`
	Components map[string]string `json:"components,omitempty"`
}

// NewRouter constructs the chi.Router with ledger defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		httpx.JSON(w, http.StatusOK, readiness{Status: "ok"})
	})
	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		out := readiness{Status: "ok", Components: make(map[string]string, len(params.Readiness))}
		status := http.StatusOK
		for name, p := range params.Readiness {
			if err := p.Ping(ctx); err != nil {
				params.Logger.Warn("readiness probe failed", slog.String("component", name), slog.Any("error", err))
				out.Components[name] = "down"
				out.Status = "degraded"
				status = http.StatusServiceUnavailable
				continue
			}
			out.Components[name] = "up"
		}
		httpx.JSON(w, status, out)
	})

	if params.LedgerHandler != nil {
		params.LedgerHandler.MountRoutes(r)
	}
	if params.EventsHandler != nil {
		r.Route("/events", params.EventsHandler.MountRoutes)
	}
	if params.AuditHandler != nil {
		r.Route("/audit", params.AuditHandler.MountRoutes)
	}
	if params.JobHandler != nil {
		r.Route("/jobs", params.JobHandler.MountRoutes)
	}
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}
	return r
}
