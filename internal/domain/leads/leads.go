package leads

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

const (
	CampaignStatusDraft  = "DRAFT"
	CampaignStatusActive = "ACTIVE"
	CampaignStatusPaused = "PAUSED"
	CampaignStatusEnded  = "ENDED"
)

// Campaign groups allocations and outbound drip state. When broker leads
// arrive without an explicit campaign, a fallback campaign named
// "fallback:<instance_id>" is provisioned per instance.
type Campaign struct {
	ID         uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	TenantID   uuid.UUID      `gorm:"type:uuid;not null;index" json:"tenant_id"`
	Name       string         `gorm:"column:name;not null" json:"name"`
	InstanceID string         `gorm:"column:instance_id" json:"instance_id"`
	Status     string         `gorm:"column:status;not null;default:'DRAFT'" json:"status"`
	Metadata   datatypes.JSON `gorm:"column:metadata;type:jsonb" json:"metadata"`
	CreatedAt  time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt  time.Time      `gorm:"not null;default:now()" json:"updated_at"`
}

func (Campaign) TableName() string { return "campaign" }

// BrokerLead is one deduplicated external-lead identity. document is
// digits-only; (tenant_id, document) is unique and denormalized fields are
// refreshed on every delivery, whether or not a new allocation is made.
type BrokerLead struct {
	ID            uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	TenantID      uuid.UUID      `gorm:"type:uuid;not null;index" json:"tenant_id"`
	Document      string         `gorm:"column:document;not null;index" json:"document"`
	FullName      string         `gorm:"column:full_name" json:"full_name"`
	AgreementID   string         `gorm:"column:agreement_id" json:"agreement_id"`
	Matricula     string         `gorm:"column:matricula" json:"matricula"`
	Phone         string         `gorm:"column:phone" json:"phone"`
	Registrations datatypes.JSON `gorm:"column:registrations;type:jsonb" json:"registrations"`
	Tags          datatypes.JSON `gorm:"column:tags;type:jsonb" json:"tags"`
	Margin        float64        `gorm:"column:margin" json:"margin"`
	NetMargin     float64        `gorm:"column:net_margin" json:"net_margin"`
	Score         float64        `gorm:"column:score" json:"score"`
	RawPayload    datatypes.JSON `gorm:"column:raw_payload;type:jsonb" json:"raw_payload"`
	CreatedAt     time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt     time.Time      `gorm:"not null;default:now()" json:"updated_at"`
}

func (BrokerLead) TableName() string { return "broker_lead" }

const (
	AllocationStatusAllocated = "allocated"
	AllocationStatusContacted = "contacted"
	AllocationStatusWon       = "won"
	AllocationStatusLost      = "lost"
)

// LeadAllocation assigns a lead to a campaign with a lifecycle
// allocated → contacted → {won | lost}. (tenant_id, lead_id, campaign_id)
// is unique; a repeat delivery inside the 24h window from received_at is
// treated as a duplicate and skipped, not re-created.
type LeadAllocation struct {
	ID         uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	TenantID   uuid.UUID      `gorm:"type:uuid;not null;index" json:"tenant_id"`
	LeadID     uuid.UUID      `gorm:"type:uuid;not null;index" json:"lead_id"`
	Lead       *BrokerLead    `gorm:"constraint:OnDelete:CASCADE;foreignKey:LeadID;references:ID" json:"lead,omitempty"`
	CampaignID uuid.UUID      `gorm:"type:uuid;not null;index" json:"campaign_id"`
	Campaign   *Campaign      `gorm:"constraint:OnDelete:CASCADE;foreignKey:CampaignID;references:ID" json:"campaign,omitempty"`
	Status     string         `gorm:"column:status;not null;default:'allocated';index" json:"status"`
	Notes      string         `gorm:"column:notes" json:"notes"`
	Payload    datatypes.JSON `gorm:"column:payload;type:jsonb" json:"payload"`
	ReceivedAt time.Time      `gorm:"column:received_at;not null;index" json:"received_at"`
	CreatedAt  time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt  time.Time      `gorm:"not null;default:now()" json:"updated_at"`
}

func (LeadAllocation) TableName() string { return "lead_allocation" }
