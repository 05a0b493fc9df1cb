package engagement

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// MessageType is the closed storage classification for message payloads.
type MessageType string

const (
	MessageTypeText     MessageType = "TEXT"
	MessageTypeImage    MessageType = "IMAGE"
	MessageTypeVideo    MessageType = "VIDEO"
	MessageTypeAudio    MessageType = "AUDIO"
	MessageTypeDocument MessageType = "DOCUMENT"
)

const (
	DirectionInbound  = "INBOUND"
	DirectionOutbound = "OUTBOUND"
)

const (
	MessageStatusPending   = "PENDING"
	MessageStatusSent      = "SENT"
	MessageStatusDelivered = "DELIVERED"
	MessageStatusRead      = "READ"
	MessageStatusFailed    = "FAILED"
)

// Message is one inbound/outbound event inside a ticket. external_id is the
// provider-assigned dedup key: (tenant_id, external_id) is unique whenever
// it is non-empty, so a re-delivered event updates in place.
type Message struct {
	ID             uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	TenantID       uuid.UUID      `gorm:"type:uuid;not null;index" json:"tenant_id"`
	TicketID       uuid.UUID      `gorm:"type:uuid;not null;index" json:"ticket_id"`
	Ticket         *Ticket        `gorm:"constraint:OnDelete:CASCADE;foreignKey:TicketID;references:ID" json:"ticket,omitempty"`
	ContactID      uuid.UUID      `gorm:"type:uuid;not null;index" json:"contact_id"`
	Direction      string         `gorm:"column:direction;not null;index" json:"direction"`
	Type           MessageType    `gorm:"column:type;not null;default:'TEXT'" json:"type"`
	Content        string         `gorm:"column:content" json:"content"`
	Caption        string         `gorm:"column:caption" json:"caption"`
	MediaURL       string         `gorm:"column:media_url" json:"media_url"`
	MediaMimeType  string         `gorm:"column:media_mime_type" json:"media_mime_type"`
	MediaFileName  string         `gorm:"column:media_file_name" json:"media_file_name"`
	MediaSizeBytes int64          `gorm:"column:media_size_bytes" json:"media_size_bytes"`
	Status         string         `gorm:"column:status;not null;default:'PENDING'" json:"status"`
	ExternalID     string         `gorm:"column:external_id;index" json:"external_id"`
	InstanceID     string         `gorm:"column:instance_id" json:"instance_id"`
	IdempotencyKey string         `gorm:"column:idempotency_key" json:"idempotency_key"`
	Metadata       datatypes.JSON `gorm:"column:metadata;type:jsonb" json:"metadata"`
	CreatedAt      time.Time      `gorm:"not null;default:now();index" json:"created_at"`
	UpdatedAt      time.Time      `gorm:"not null;default:now()" json:"updated_at"`
}

func (Message) TableName() string { return "message" }

// HasMedia reports whether the stored type implies a media descriptor.
func (m *Message) HasMedia() bool {
	switch m.Type {
	case MessageTypeImage, MessageTypeVideo, MessageTypeAudio, MessageTypeDocument:
		return true
	}
	return false
}

// TicketTimeline is the typed shape of the "timeline" sub-object inside
// ticket metadata: the earliest and latest message timestamp per direction.
// Bounds are monotone regardless of arrival order: first only moves earlier,
// last only moves later.
type TicketTimeline struct {
	FirstInboundAt  *time.Time `json:"first_inbound_at,omitempty"`
	LastInboundAt   *time.Time `json:"last_inbound_at,omitempty"`
	FirstOutboundAt *time.Time `json:"first_outbound_at,omitempty"`
	LastOutboundAt  *time.Time `json:"last_outbound_at,omitempty"`
}

// Observe folds one message timestamp into the bounds for its direction.
func (t *TicketTimeline) Observe(direction string, at time.Time) {
	first, last := &t.FirstInboundAt, &t.LastInboundAt
	if direction == DirectionOutbound {
		first, last = &t.FirstOutboundAt, &t.LastOutboundAt
	}
	if *first == nil || at.Before(**first) {
		v := at
		*first = &v
	}
	if *last == nil || !at.Before(**last) {
		v := at
		*last = &v
	}
}
