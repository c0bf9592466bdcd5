package accounts

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

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

// MountRoutes registers chart of accounts endpoints. The account ledger route
// under /{id}/ledger is owned by the reporting handler.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Get("/{id}", h.Get)
	r.Post("/{id}/deactivate", h.Deactivate)
}

// AccountRecord is the JSON shape of an account.
type AccountRecord struct {
	ID             int64  `json:"id"`
	CompanyID      *int64 `json:"company_id,omitempty"`
	Code           string `json:"code"`
	Name           string `json:"name"`
	Type           string `json:"type"`
	NormalBalance  string `json:"normal_balance"`
	ParentID       *int64 `json:"parent_id,omitempty"`
	IsControl      bool   `json:"is_control"`
	ControlType    string `json:"control_type,omitempty"`
	OpeningBalance string `json:"opening_balance"`
	CurrentBalance string `json:"current_balance"`
	IsActive       bool   `json:"is_active"`
}

func toRecord(a Account) AccountRecord {
	return AccountRecord{
		ID:             a.ID,
		CompanyID:      a.CompanyID,
		Code:           a.Code,
		Name:           a.Name,
		Type:           string(a.Type),
		NormalBalance:  string(a.NormalBalance),
		ParentID:       a.ParentID,
		IsControl:      a.IsControl,
		ControlType:    string(a.ControlType),
		OpeningBalance: a.OpeningBalance.StringFixed(2),
		CurrentBalance: a.CurrentBalance.StringFixed(2),
		IsActive:       a.IsActive,
	}
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	companyID, _ := strconv.ParseInt(r.URL.Query().Get("company_id"), 10, 64)
	accounts, err := h.service.List(r.Context(), companyID)
	if err != nil {
		h.logger.Error("list accounts", slog.Any("error", err))
		h.fail(w, err)
		return
	}
	out := make([]AccountRecord, 0, len(accounts))
	for _, a := range accounts {
		out = append(out, toRecord(a))
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid account id")
		return
	}
	acc, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.fail(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toRecord(acc))
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var in CreateInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	acc, err := h.service.Create(r.Context(), in)
	if err != nil {
		h.logger.Warn("create account", slog.String("code", in.Code), slog.Any("error", err))
		h.fail(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toRecord(acc))
}

func (h *Handler) Deactivate(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid account id")
		return
	}
	if err := h.service.Deactivate(r.Context(), id); err != nil {
		h.fail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) fail(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, ErrControlOpeningBalance):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	default:
		status := shared.HTTPStatus(err)
		detail := err.Error()
		if status == http.StatusInternalServerError {
			detail = ""
		}
		httpx.WriteProblem(w, httpx.ProblemDetail{
			Title:  http.StatusText(status),
			Status: status,
			Detail: detail,
			Class:  string(shared.Classify(err)),
		})
	}
}
