package accounting

import (
	"net/http"
	"strconv"
	"time"

	"github.com/himanshudhami/InvoiceX-sub001/internal/accounting/periods"
	"github.com/himanshudhami/InvoiceX-sub001/internal/accounting/reports"
	"github.com/himanshudhami/InvoiceX-sub001/internal/platform/httpx"
)

func (h *Handler) handleTrialBalance(w http.ResponseWriter, r *http.Request) {
	companyID, err := companyParam(r)
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	from, to, err := rangeParams(r)
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	tb, err := h.svc.Reports.TrialBalance(r.Context(), companyID, from, to)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, reports.TrialBalanceView{
		CompanyID:   companyID,
		PeriodLabel: reports.PeriodLabel(from, to),
		Balanced:    tb.Balanced(),
		Report:      tb,
	})
}

func (h *Handler) handleIncomeStatement(w http.ResponseWriter, r *http.Request) {
	companyID, err := companyParam(r)
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	from, to, err := rangeParams(r)
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	pl, err := h.svc.Reports.IncomeStatement(r.Context(), companyID, from, to)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, reports.ProfitAndLossView{
		CompanyID:   companyID,
		PeriodLabel: reports.PeriodLabel(from, to),
		Report:      pl,
	})
}

func (h *Handler) handleBalanceSheet(w http.ResponseWriter, r *http.Request) {
	companyID, err := companyParam(r)
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	asOf, err := parseDate(r.URL.Query().Get("as_of"))
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	bs, err := h.svc.Reports.BalanceSheet(r.Context(), companyID, asOf)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, reports.BalanceSheetView{
		CompanyID:   companyID,
		PeriodLabel: reports.PeriodLabel(time.Time{}, asOf),
		Balanced:    bs.Balanced(),
		Report:      bs,
	})
}

func (h *Handler) handleAccountLedger(w http.ResponseWriter, r *http.Request) {
	accountID, err := pathID(r)
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	companyID, err := companyParam(r)
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	from, to, err := rangeParams(r)
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	ledger, err := h.svc.Reports.AccountLedger(r.Context(), companyID, accountID, from, to)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, ledger)
}

func (h *Handler) handleSubledgers(w http.ResponseWriter, r *http.Request) {
	companyID, err := companyParam(r)
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	list, err := h.svc.Reports.Subledgers(r.Context(), companyID, r.URL.Query().Get("kind"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, list)
}

func (h *Handler) handlePeriodBalances(w http.ResponseWriter, r *http.Request) {
	companyID, err := companyParam(r)
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	list, err := h.svc.Reports.PeriodBalances(r.Context(), companyID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, list)
}

func (h *Handler) handleRecalculate(w http.ResponseWriter, r *http.Request) {
	companyID, err := companyParam(r)
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	written, err := h.svc.Reports.Recalculate(r.Context(), companyID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"company_id": companyID, "rows": written})
}

func (h *Handler) handleIntegrity(w http.ResponseWriter, r *http.Request) {
	companyID, err := companyParam(r)
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	report, err := h.svc.Reports.CheckIntegrity(r.Context(), companyID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, report)
}

type periodPayload struct {
	CompanyID int64  `json:"company_id" validate:"required,gt=0"`
	Date      string `json:"date" validate:"required,datetime=2006-01-02"`
	Status    string `json:"status" validate:"required,oneof=OPEN CLOSED LOCKED"`
}

func (h *Handler) handleListPeriods(w http.ResponseWriter, r *http.Request) {
	companyID, err := companyParam(r)
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	list, err := h.svc.Periods.List(r.Context(), companyID, r.URL.Query().Get("fiscal_year"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, list)
}

func (h *Handler) handleSetPeriodStatus(w http.ResponseWriter, r *http.Request) {
	var payload periodPayload
	if err := httpx.DecodeJSON(r, &payload); err != nil {
		badRequest(w, err.Error())
		return
	}
	if err := h.validate.Struct(payload); err != nil {
		badRequest(w, err.Error())
		return
	}
	date, _ := time.Parse("2006-01-02", payload.Date)
	p, err := h.svc.Periods.SetStatus(r.Context(), payload.CompanyID, date, periods.PeriodStatus(payload.Status))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, p)
}

func (h *Handler) handleListRules(w http.ResponseWriter, r *http.Request) {
	var companyID *int64
	if v := r.URL.Query().Get("company_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			badRequest(w, "invalid company_id")
			return
		}
		companyID = &id
	}
	list, err := h.svc.Rules.List(r.Context(), companyID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, list)
}

type usageRecord struct {
	ID             int64     `json:"id"`
	JournalEntryID *int64    `json:"journal_entry_id,omitempty"`
	CompanyID      int64     `json:"company_id"`
	SourceType     string    `json:"source_type"`
	SourceID       string    `json:"source_id"`
	TriggerEvent   string    `json:"trigger_event"`
	Digest         string    `json:"snapshot_digest"`
	Success        bool      `json:"success"`
	ErrorMessage   string    `json:"error_message,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

func (h *Handler) handleRuleUsage(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	logs, err := h.svc.Rules.UsageLogs(r.Context(), id, limit)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	out := make([]usageRecord, 0, len(logs))
	for _, l := range logs {
		out = append(out, usageRecord{
			ID:             l.ID,
			JournalEntryID: l.JournalEntryID,
			CompanyID:      l.CompanyID,
			SourceType:     l.SourceType,
			SourceID:       l.SourceID,
			TriggerEvent:   l.TriggerEvent,
			Digest:         l.Digest,
			Success:        l.Success,
			ErrorMessage:   l.ErrorMessage,
			CreatedAt:      l.CreatedAt,
		})
	}
	httpx.JSON(w, http.StatusOK, out)
}
