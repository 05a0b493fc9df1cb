package jobs

import (
	"time"

	"github.com/google/uuid"
)

const (
	MediaJobStatusPending    = "PENDING"
	MediaJobStatusProcessing = "PROCESSING"
	MediaJobStatusCompleted  = "COMPLETED"
	MediaJobStatusFailed     = "FAILED"
)

// InboundMediaJob tracks asynchronous media fetch work for one message.
// message_id is unique: at most one live job per message, and re-enqueueing
// resets the existing row to PENDING instead of adding another.
//
// PENDING → PROCESSING (claim) → {COMPLETED | PENDING (reschedule) | FAILED}.
type InboundMediaJob struct {
	ID          uuid.UUID  `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	TenantID    uuid.UUID  `gorm:"type:uuid;not null;index" json:"tenant_id"`
	MessageID   uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex" json:"message_id"`
	MediaURL    string     `gorm:"column:media_url" json:"media_url"`
	MimeType    string     `gorm:"column:mime_type" json:"mime_type"`
	Status      string     `gorm:"column:status;not null;default:'PENDING';index" json:"status"`
	Attempts    int        `gorm:"column:attempts;not null;default:0" json:"attempts"`
	NextRetryAt *time.Time `gorm:"column:next_retry_at;index" json:"next_retry_at,omitempty"`
	LastError   string     `gorm:"column:last_error" json:"last_error"`
	CreatedAt   time.Time  `gorm:"not null;default:now();index" json:"created_at"`
	UpdatedAt   time.Time  `gorm:"not null;default:now()" json:"updated_at"`
}

func (InboundMediaJob) TableName() string { return "inbound_media_job" }
