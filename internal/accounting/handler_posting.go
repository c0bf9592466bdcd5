package accounting

import (
	"net/http"

	"github.com/himanshudhami/InvoiceX-sub001/internal/accounting/journals"
	"github.com/himanshudhami/InvoiceX-sub001/internal/accounting/posting"
	"github.com/himanshudhami/InvoiceX-sub001/internal/platform/httpx"
)

type postingPayload struct {
	CompanyID    int64          `json:"company_id"`
	SourceType   string         `json:"source_type"`
	SourceID     string         `json:"source_id"`
	SourceNumber string         `json:"source_number"`
	TriggerEvent string         `json:"trigger_event"`
	EventDate    string         `json:"event_date"`
	EventFields  map[string]any `json:"event_fields"`
	ActorID      int64          `json:"actor_id"`
}

// handlePost answers 201 for a new entry and 200 with the existing entry when
// the source key was already posted.
func (h *Handler) handlePost(w http.ResponseWriter, r *http.Request) {
	var payload postingPayload
	if err := httpx.DecodeJSON(r, &payload); err != nil {
		badRequest(w, err.Error())
		return
	}
	date, err := parseDate(payload.EventDate)
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	res, err := h.svc.Posting.Post(r.Context(), posting.Request{
		CompanyID:    payload.CompanyID,
		SourceType:   payload.SourceType,
		SourceID:     payload.SourceID,
		SourceNumber: payload.SourceNumber,
		TriggerEvent: payload.TriggerEvent,
		EventDate:    date,
		EventFields:  payload.EventFields,
		ActorID:      payload.ActorID,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	status := http.StatusCreated
	if !res.Created {
		status = http.StatusOK
	}
	httpx.JSON(w, status, journals.ToRecord(res.Entry))
}

type draftPayload struct {
	CompanyID   int64                `json:"company_id"`
	Date        string               `json:"date"`
	Description string               `json:"description"`
	ActorID     int64                `json:"actor_id"`
	Lines       []journals.LineInput `json:"lines"`
}

func (p draftPayload) input() (journals.DraftInput, error) {
	date, err := parseDate(p.Date)
	if err != nil {
		return journals.DraftInput{}, err
	}
	return journals.DraftInput{
		CompanyID:   p.CompanyID,
		Date:        date,
		Description: p.Description,
		ActorID:     p.ActorID,
		Lines:       p.Lines,
	}, nil
}

func (h *Handler) decodeDraft(w http.ResponseWriter, r *http.Request) (journals.DraftInput, bool) {
	var payload draftPayload
	if err := httpx.DecodeJSON(r, &payload); err != nil {
		badRequest(w, err.Error())
		return journals.DraftInput{}, false
	}
	in, err := payload.input()
	if err != nil {
		badRequest(w, err.Error())
		return journals.DraftInput{}, false
	}
	return in, true
}

func (h *Handler) handleCreateDraft(w http.ResponseWriter, r *http.Request) {
	in, ok := h.decodeDraft(w, r)
	if !ok {
		return
	}
	entry, err := h.svc.Posting.CreateDraft(r.Context(), in)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, journals.ToRecord(entry))
}

func (h *Handler) handleUpdateDraft(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	in, ok := h.decodeDraft(w, r)
	if !ok {
		return
	}
	entry, err := h.svc.Posting.UpdateDraft(r.Context(), id, in)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, journals.ToRecord(entry))
}

type actorPayload struct {
	ActorID int64 `json:"actor_id"`
}

func (h *Handler) draftTransition(w http.ResponseWriter, r *http.Request, apply func(id, actorID int64) (journals.JournalEntry, error)) {
	id, err := pathID(r)
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	var payload actorPayload
	if r.ContentLength != 0 {
		if err := httpx.DecodeJSON(r, &payload); err != nil {
			badRequest(w, err.Error())
			return
		}
	}
	entry, err := apply(id, payload.ActorID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, journals.ToRecord(entry))
}

func (h *Handler) handleSubmitDraft(w http.ResponseWriter, r *http.Request) {
	h.draftTransition(w, r, func(id, actorID int64) (journals.JournalEntry, error) {
		return h.svc.Posting.SubmitDraft(r.Context(), id, actorID)
	})
}

func (h *Handler) handlePostDraft(w http.ResponseWriter, r *http.Request) {
	h.draftTransition(w, r, func(id, actorID int64) (journals.JournalEntry, error) {
		return h.svc.Posting.PostDraft(r.Context(), id, actorID)
	})
}

type reversePayload struct {
	ActorID int64  `json:"actor_id"`
	Reason  string `json:"reason"`
	Date    string `json:"date"`
}

func (h *Handler) handleReverse(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	var payload reversePayload
	if r.ContentLength != 0 {
		if err := httpx.DecodeJSON(r, &payload); err != nil {
			badRequest(w, err.Error())
			return
		}
	}
	in := journals.ReverseInput{EntryID: id, ActorID: payload.ActorID, Reason: payload.Reason}
	if payload.Date != "" {
		date, err := parseDate(payload.Date)
		if err != nil {
			badRequest(w, err.Error())
			return
		}
		in.Date = &date
	}
	res, err := h.svc.Posting.Reverse(r.Context(), in)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	status := http.StatusCreated
	if !res.Created {
		status = http.StatusOK
	}
	httpx.JSON(w, status, journals.ToRecord(res.Entry))
}
