package realtime

import (
	"time"

	"github.com/google/uuid"
)

const (
	EventContactCreated    = "contact.created"
	EventTicketCreated     = "ticket.created"
	EventMessageCreated    = "message.created"
	EventLeadAllocated     = "lead.allocated"
	EventMediaJobCompleted = "media_job.completed"
	EventMediaJobFailed    = "media_job.failed"
)

// Event is one engine notification published to external consumers
// (dashboards, inbox frontends). Payload carries entity ids and small
// denormalized fields, never full rows.
type Event struct {
	Type     string                 `json:"type"`
	TenantID uuid.UUID              `json:"tenant_id"`
	Payload  map[string]interface{} `json:"payload,omitempty"`
	At       time.Time              `json:"at"`
}
