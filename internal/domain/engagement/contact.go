package engagement

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Contact is the canonical identity for one external person within a tenant.
// (tenant_id, primary_phone) is the find-or-create key for inbound traffic;
// the unique index on it is the arbiter when two deliveries race.
type Contact struct {
	ID                uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	TenantID          uuid.UUID      `gorm:"type:uuid;not null;index" json:"tenant_id"`
	DisplayName       string         `gorm:"column:display_name" json:"display_name"`
	PrimaryPhone      string         `gorm:"column:primary_phone;index" json:"primary_phone"`
	PrimaryEmail      string         `gorm:"column:primary_email" json:"primary_email"`
	CustomFields      datatypes.JSON `gorm:"column:custom_fields;type:jsonb" json:"custom_fields"`
	Metadata          datatypes.JSON `gorm:"column:metadata;type:jsonb" json:"metadata"`
	LastInteractionAt *time.Time     `gorm:"column:last_interaction_at;index" json:"last_interaction_at,omitempty"`
	CreatedAt         time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt         time.Time      `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt         gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Contact) TableName() string { return "contact" }

// ContactPhone is one phone sub-record. At most one row per contact carries
// is_primary = true; the resolver enforces that, not the store.
type ContactPhone struct {
	ID        uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	ContactID uuid.UUID `gorm:"type:uuid;not null;index" json:"contact_id"`
	Contact   *Contact  `gorm:"constraint:OnDelete:CASCADE;foreignKey:ContactID;references:ID" json:"contact,omitempty"`
	Number    string    `gorm:"column:number;not null" json:"number"`
	Type      string    `gorm:"column:type;not null;default:'mobile'" json:"type"`
	IsPrimary bool      `gorm:"column:is_primary;not null;default:false" json:"is_primary"`
	CreatedAt time.Time `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:now()" json:"updated_at"`
}

func (ContactPhone) TableName() string { return "contact_phone" }

type ContactEmail struct {
	ID        uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	ContactID uuid.UUID `gorm:"type:uuid;not null;index" json:"contact_id"`
	Contact   *Contact  `gorm:"constraint:OnDelete:CASCADE;foreignKey:ContactID;references:ID" json:"contact,omitempty"`
	Address   string    `gorm:"column:address;not null" json:"address"`
	Type      string    `gorm:"column:type;not null;default:'personal'" json:"type"`
	IsPrimary bool      `gorm:"column:is_primary;not null;default:false" json:"is_primary"`
	CreatedAt time.Time `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:now()" json:"updated_at"`
}

func (ContactEmail) TableName() string { return "contact_email" }

// Tag is a tenant-scoped label. Provenance tags ("channel:whatsapp",
// "ingested") are attached by the contact resolver on first creation.
type Tag struct {
	ID        uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	TenantID  uuid.UUID `gorm:"type:uuid;not null;index" json:"tenant_id"`
	Name      string    `gorm:"column:name;not null" json:"name"`
	Color     string    `gorm:"column:color" json:"color"`
	CreatedAt time.Time `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:now()" json:"updated_at"`
}

func (Tag) TableName() string { return "tag" }

type ContactTag struct {
	ID        uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	ContactID uuid.UUID `gorm:"type:uuid;not null;index" json:"contact_id"`
	Contact   *Contact  `gorm:"constraint:OnDelete:CASCADE;foreignKey:ContactID;references:ID" json:"contact,omitempty"`
	TagID     uuid.UUID `gorm:"type:uuid;not null;index" json:"tag_id"`
	Tag       *Tag      `gorm:"constraint:OnDelete:CASCADE;foreignKey:TagID;references:ID" json:"tag,omitempty"`
	CreatedAt time.Time `gorm:"not null;default:now()" json:"created_at"`
}

func (ContactTag) TableName() string { return "contact_tag" }
