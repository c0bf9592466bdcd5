package integration

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/himanshudhami/InvoiceX-sub001/internal/accounting/journals"
	"github.com/himanshudhami/InvoiceX-sub001/internal/accounting/posting"
	"github.com/himanshudhami/InvoiceX-sub001/internal/accounting/shared"
	"github.com/himanshudhami/InvoiceX-sub001/internal/platform/httpx"
)

// Handler accepts typed business events over HTTP.
type Handler struct {
	hooks  *Hooks
	logger *slog.Logger
}

// NewHandler builds an event handler.
func NewHandler(hooks *Hooks, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{hooks: hooks, logger: logger}
}

// MountRoutes registers one endpoint per event type.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/invoice-finalized", handle(h, h.hooks.HandleInvoiceFinalized))
	r.Post("/vendor-bill-approved", handle(h, h.hooks.HandleVendorBillApproved))
	r.Post("/payment-received", handle(h, h.hooks.HandlePaymentReceived))
	r.Post("/vendor-payment-made", handle(h, h.hooks.HandleVendorPaymentMade))
	r.Post("/payroll-approved", handle(h, h.hooks.HandlePayrollApproved))
	r.Post("/expense-claim-approved", handle(h, h.hooks.HandleExpenseClaimApproved))
	r.Post("/contractor-payment-made", handle(h, h.hooks.HandleContractorPaymentMade))
}

func handle[E any](h *Handler, fn func(context.Context, E) (posting.Result, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var evt E
		if err := httpx.DecodeJSON(r, &evt); err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
			return
		}
		res, err := fn(r.Context(), evt)
		if err != nil {
			status := shared.HTTPStatus(err)
			detail := err.Error()
			if status == http.StatusInternalServerError {
				h.logger.Error("event posting failed", slog.String("path", r.URL.Path), slog.Any("error", err))
				detail = ""
			}
			httpx.WriteProblem(w, httpx.ProblemDetail{
				Title:  http.StatusText(status),
				Status: status,
				Detail: detail,
				Class:  string(shared.Classify(err)),
			})
			return
		}
		status := http.StatusCreated
		if !res.Created {
			status = http.StatusOK
		}
		httpx.JSON(w, status, journals.ToRecord(res.Entry))
	}
}
