package engagement

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	TicketStatusOpen     = "OPEN"
	TicketStatusPending  = "PENDING"
	TicketStatusAssigned = "ASSIGNED"
	TicketStatusClosed   = "CLOSED"
)

// TicketOpenStatuses is the open family: a contact may own at most one
// ticket in any of these states at a time.
var TicketOpenStatuses = []string{TicketStatusOpen, TicketStatusPending, TicketStatusAssigned}

// Queue is a named routing bucket for tickets, provisioned idempotently
// per (tenant, name).
type Queue struct {
	ID        uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	TenantID  uuid.UUID `gorm:"type:uuid;not null;index" json:"tenant_id"`
	Name      string    `gorm:"column:name;not null" json:"name"`
	Channel   string    `gorm:"column:channel" json:"channel"`
	Color     string    `gorm:"column:color" json:"color"`
	CreatedAt time.Time `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:now()" json:"updated_at"`
}

func (Queue) TableName() string { return "queue" }

// Ticket is one conversation thread. Closed via status transition, never
// deleted. Metadata carries the provider chat identifier, the source
// instance, and the per-direction timeline bounds (see TicketTimeline).
type Ticket struct {
	ID                 uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	TenantID           uuid.UUID      `gorm:"type:uuid;not null;index" json:"tenant_id"`
	ContactID          uuid.UUID      `gorm:"type:uuid;not null;index" json:"contact_id"`
	Contact            *Contact       `gorm:"constraint:OnDelete:CASCADE;foreignKey:ContactID;references:ID" json:"contact,omitempty"`
	QueueID            *uuid.UUID     `gorm:"type:uuid;index" json:"queue_id,omitempty"`
	Queue              *Queue         `gorm:"constraint:OnDelete:SET NULL;foreignKey:QueueID;references:ID" json:"queue,omitempty"`
	Status             string         `gorm:"column:status;not null;default:'OPEN';index" json:"status"`
	Channel            string         `gorm:"column:channel" json:"channel"`
	Metadata           datatypes.JSON `gorm:"column:metadata;type:jsonb" json:"metadata"`
	LastMessageAt      *time.Time     `gorm:"column:last_message_at;index" json:"last_message_at,omitempty"`
	LastMessagePreview string         `gorm:"column:last_message_preview" json:"last_message_preview"`
	CreatedAt          time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt          time.Time      `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt          gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Ticket) TableName() string { return "ticket" }

// IsOpenStatus reports whether status belongs to the open family.
func IsOpenStatus(status string) bool {
	for _, s := range TicketOpenStatuses {
		if s == status {
			return true
		}
	}
	return false
}
