package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	types "github.com/atendoteam/atendo-backend/internal/domain"
)

func SeedContact(tb testing.TB, ctx context.Context, tx *gorm.DB, tenantID uuid.UUID, phone string) *types.Contact {
	tb.Helper()
	c := &types.Contact{
		ID:           uuid.New(),
		TenantID:     tenantID,
		DisplayName:  "Contact " + phone,
		PrimaryPhone: phone,
		CustomFields: datatypes.JSON([]byte("{}")),
		Metadata:     datatypes.JSON([]byte("{}")),
	}
	if err := tx.WithContext(ctx).Create(c).Error; err != nil {
		tb.Fatalf("seed contact: %v", err)
	}
	return c
}

func SeedQueue(tb testing.TB, ctx context.Context, tx *gorm.DB, tenantID uuid.UUID, name string) *types.Queue {
	tb.Helper()
	q := &types.Queue{
		ID:       uuid.New(),
		TenantID: tenantID,
		Name:     name,
		Channel:  "whatsapp",
	}
	if err := tx.WithContext(ctx).Create(q).Error; err != nil {
		tb.Fatalf("seed queue: %v", err)
	}
	return q
}

func SeedTicket(tb testing.TB, ctx context.Context, tx *gorm.DB, tenantID, contactID uuid.UUID, status string) *types.Ticket {
	tb.Helper()
	t := &types.Ticket{
		ID:        uuid.New(),
		TenantID:  tenantID,
		ContactID: contactID,
		Status:    status,
		Channel:   "whatsapp",
		Metadata:  datatypes.JSON([]byte("{}")),
	}
	if err := tx.WithContext(ctx).Create(t).Error; err != nil {
		tb.Fatalf("seed ticket: %v", err)
	}
	return t
}

func SeedMessage(tb testing.TB, ctx context.Context, tx *gorm.DB, tenantID, ticketID, contactID uuid.UUID, externalID string, createdAt time.Time) *types.Message {
	tb.Helper()
	m := &types.Message{
		ID:         uuid.New(),
		TenantID:   tenantID,
		TicketID:   ticketID,
		ContactID:  contactID,
		Direction:  types.DirectionInbound,
		Type:       types.MessageTypeText,
		Content:    "seeded",
		Status:     types.MessageStatusPending,
		ExternalID: externalID,
		Metadata:   datatypes.JSON([]byte("{}")),
		CreatedAt:  createdAt,
		UpdatedAt:  createdAt,
	}
	if err := tx.WithContext(ctx).Create(m).Error; err != nil {
		tb.Fatalf("seed message: %v", err)
	}
	return m
}

func SeedCampaign(tb testing.TB, ctx context.Context, tx *gorm.DB, tenantID uuid.UUID, name string) *types.Campaign {
	tb.Helper()
	c := &types.Campaign{
		ID:       uuid.New(),
		TenantID: tenantID,
		Name:     name,
		Status:   types.CampaignStatusActive,
		Metadata: datatypes.JSON([]byte("{}")),
	}
	if err := tx.WithContext(ctx).Create(c).Error; err != nil {
		tb.Fatalf("seed campaign: %v", err)
	}
	return c
}

func SeedBrokerLead(tb testing.TB, ctx context.Context, tx *gorm.DB, tenantID uuid.UUID, document string) *types.BrokerLead {
	tb.Helper()
	l := &types.BrokerLead{
		ID:            uuid.New(),
		TenantID:      tenantID,
		Document:      document,
		FullName:      "Lead " + document,
		Phone:         "+5511999990000",
		Registrations: datatypes.JSON([]byte("[]")),
		Tags:          datatypes.JSON([]byte("[]")),
		RawPayload:    datatypes.JSON([]byte("{}")),
	}
	if err := tx.WithContext(ctx).Create(l).Error; err != nil {
		tb.Fatalf("seed broker lead: %v", err)
	}
	return l
}

func SeedAllocation(tb testing.TB, ctx context.Context, tx *gorm.DB, tenantID, leadID, campaignID uuid.UUID, status string, receivedAt time.Time) *types.LeadAllocation {
	tb.Helper()
	a := &types.LeadAllocation{
		ID:         uuid.New(),
		TenantID:   tenantID,
		LeadID:     leadID,
		CampaignID: campaignID,
		Status:     status,
		Payload:    datatypes.JSON([]byte("{}")),
		ReceivedAt: receivedAt,
	}
	if err := tx.WithContext(ctx).Create(a).Error; err != nil {
		tb.Fatalf("seed allocation: %v", err)
	}
	return a
}

func SeedMediaJob(tb testing.TB, ctx context.Context, tx *gorm.DB, tenantID, messageID uuid.UUID, status string, createdAt time.Time) *types.InboundMediaJob {
	tb.Helper()
	j := &types.InboundMediaJob{
		ID:        uuid.New(),
		TenantID:  tenantID,
		MessageID: messageID,
		Status:    status,
		CreatedAt: createdAt,
		UpdatedAt: createdAt,
	}
	if err := tx.WithContext(ctx).Create(j).Error; err != nil {
		tb.Fatalf("seed media job: %v", err)
	}
	return j
}

func PtrTime(v time.Time) *time.Time { return &v }

// CleanupTenant deletes every row the tenant owns when the test finishes.
// Concurrency tests commit real rows through separate sessions, so the usual
// rollback Tx cannot contain them.
func CleanupTenant(tb testing.TB, db *gorm.DB, tenantID uuid.UUID) {
	tb.Helper()
	tb.Cleanup(func() {
		statements := []string{
			`DELETE FROM contact_tag WHERE contact_id IN (SELECT id FROM contact WHERE tenant_id = ?)`,
			`DELETE FROM contact_phone WHERE contact_id IN (SELECT id FROM contact WHERE tenant_id = ?)`,
			`DELETE FROM contact_email WHERE contact_id IN (SELECT id FROM contact WHERE tenant_id = ?)`,
			`DELETE FROM inbound_media_job WHERE tenant_id = ?`,
			`DELETE FROM message WHERE tenant_id = ?`,
			`DELETE FROM ticket WHERE tenant_id = ?`,
			`DELETE FROM queue WHERE tenant_id = ?`,
			`DELETE FROM tag WHERE tenant_id = ?`,
			`DELETE FROM lead_allocation WHERE tenant_id = ?`,
			`DELETE FROM broker_lead WHERE tenant_id = ?`,
			`DELETE FROM campaign WHERE tenant_id = ?`,
			`DELETE FROM contact WHERE tenant_id = ?`,
		}
		for _, stmt := range statements {
			if err := db.Exec(stmt, tenantID).Error; err != nil {
				tb.Errorf("cleanup tenant %s: %v", tenantID, err)
			}
		}
	})
}
