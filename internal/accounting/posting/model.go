package posting

import (
	"time"

	"github.com/himanshudhami/InvoiceX-sub001/internal/accounting/journals"
	"github.com/himanshudhami/InvoiceX-sub001/internal/accounting/rules"
)

// Request is an inbound business event to be posted.
type Request struct {
	CompanyID    int64          `json:"company_id" validate:"required,gt=0"`
	SourceType   string         `json:"source_type" validate:"required,max=64"`
	SourceID     string         `json:"source_id" validate:"required,max=128"`
	SourceNumber string         `json:"source_number" validate:"max=128"`
	TriggerEvent string         `json:"trigger_event" validate:"required,max=64"`
	EventDate    time.Time      `json:"event_date" validate:"required"`
	EventFields  map[string]any `json:"event_fields"`
	ActorID      int64          `json:"actor_id"`
}

// Key returns the idempotency key of the request.
func (r Request) Key() journals.Key {
	return journals.Key{SourceType: r.SourceType, SourceID: r.SourceID, TriggerEvent: r.TriggerEvent}
}

func (r Request) fields() rules.Fields {
	return rules.Fields(r.EventFields)
}

// Result is the outcome of Post. Created is false when the key had already been posted.
type Result struct {
	Entry   journals.JournalEntry
	Created bool
}

// Outcome labels for metrics and logs.
const (
	OutcomePosted    = "posted"
	OutcomeDuplicate = "duplicate"
	OutcomeFailed    = "failed"
	OutcomeReversed  = "reversed"
)
