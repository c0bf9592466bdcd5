package journals

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/himanshudhami/InvoiceX-sub001/internal/accounting/shared"
	"github.com/himanshudhami/InvoiceX-sub001/internal/platform/httpx"
)

type Handler struct {
	service *Service
	logger  *slog.Logger
}

func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	companyID, err := strconv.ParseInt(r.URL.Query().Get("company_id"), 10, 64)
	if err != nil || companyID <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "company_id is required")
		return
	}
	filter := Filter{
		CompanyID:  companyID,
		FiscalYear: r.URL.Query().Get("fiscal_year"),
		Status:     JournalStatus(r.URL.Query().Get("status")),
	}
	if v := r.URL.Query().Get("from"); v != "" {
		if d, err := time.Parse("2006-01-02", v); err == nil {
			filter.From = &d
		}
	}
	if v := r.URL.Query().Get("to"); v != "" {
		if d, err := time.Parse("2006-01-02", v); err == nil {
			filter.To = &d
		}
	}
	if v, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil {
		filter.Limit = v
	}
	entries, err := h.service.List(r.Context(), filter)
	if err != nil {
		h.logger.Error("list journals", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	out := make([]PostedEntry, 0, len(entries))
	for _, e := range entries {
		out = append(out, ToRecord(e))
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid journal id")
		return
	}
	entry, err := h.service.Get(r.Context(), id)
	if errors.Is(err, shared.ErrJournalNotFound) {
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
		return
	}
	if err != nil {
		h.logger.Error("get journal", slog.Int64("id", id), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, ToRecord(entry))
}
