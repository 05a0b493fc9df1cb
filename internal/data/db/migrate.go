package db

import (
	"fmt"

	"gorm.io/gorm"

	types "github.com/atendoteam/atendo-backend/internal/domain"
)

func AutoMigrateAll(db *gorm.DB) error {
	return db.AutoMigrate(

		// =========================
		// Contacts
		// =========================
		&types.Contact{},
		&types.ContactPhone{},
		&types.ContactEmail{},
		&types.Tag{},
		&types.ContactTag{},

		// =========================
		// Conversations
		// =========================
		&types.Queue{},
		&types.Ticket{},
		&types.Message{},

		// =========================
		// Broker leads + campaigns
		// =========================
		&types.Campaign{},
		&types.BrokerLead{},
		&types.LeadAllocation{},

		// =========================
		// Media fetch queue
		// =========================
		&types.InboundMediaJob{},
	)
}

// EnsureReconciliationIndexes creates the partial unique indexes that act as
// the ultimate arbiter for concurrent find-or-create races. A transaction
// that loses a create race catches the 23505 and re-reads.
func EnsureReconciliationIndexes(db *gorm.DB) error {
	if err := db.Exec(`CREATE EXTENSION IF NOT EXISTS "uuid-ossp";`).Error; err != nil {
		return fmt.Errorf("enable uuid-ossp: %w", err)
	}

	// One canonical contact per phone per tenant.
	if err := db.Exec(`
		CREATE UNIQUE INDEX IF NOT EXISTS idx_contact_tenant_primary_phone
		ON contact (tenant_id, primary_phone)
		WHERE deleted_at IS NULL AND primary_phone <> '';
	`).Error; err != nil {
		return fmt.Errorf("create idx_contact_tenant_primary_phone: %w", err)
	}

	// Single open-family ticket per contact.
	if err := db.Exec(`
		CREATE UNIQUE INDEX IF NOT EXISTS idx_ticket_tenant_contact_open
		ON ticket (tenant_id, contact_id)
		WHERE deleted_at IS NULL AND status IN ('OPEN', 'PENDING', 'ASSIGNED');
	`).Error; err != nil {
		return fmt.Errorf("create idx_ticket_tenant_contact_open: %w", err)
	}

	// Provider-event dedup key.
	if err := db.Exec(`
		CREATE UNIQUE INDEX IF NOT EXISTS idx_message_tenant_external_id
		ON message (tenant_id, external_id)
		WHERE external_id <> '';
	`).Error; err != nil {
		return fmt.Errorf("create idx_message_tenant_external_id: %w", err)
	}

	// Fast ticket timeline reads.
	if err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_message_ticket_created_at
		ON message (ticket_id, created_at DESC);
	`).Error; err != nil {
		return fmt.Errorf("create idx_message_ticket_created_at: %w", err)
	}

	// Idempotent queue/campaign provisioning by name.
	if err := db.Exec(`
		CREATE UNIQUE INDEX IF NOT EXISTS idx_queue_tenant_name
		ON queue (tenant_id, name);
	`).Error; err != nil {
		return fmt.Errorf("create idx_queue_tenant_name: %w", err)
	}
	if err := db.Exec(`
		CREATE UNIQUE INDEX IF NOT EXISTS idx_campaign_tenant_name
		ON campaign (tenant_id, name);
	`).Error; err != nil {
		return fmt.Errorf("create idx_campaign_tenant_name: %w", err)
	}
	if err := db.Exec(`
		CREATE UNIQUE INDEX IF NOT EXISTS idx_tag_tenant_name
		ON tag (tenant_id, name);
	`).Error; err != nil {
		return fmt.Errorf("create idx_tag_tenant_name: %w", err)
	}

	// Broker-lead identity and allocation dedup keys.
	if err := db.Exec(`
		CREATE UNIQUE INDEX IF NOT EXISTS idx_broker_lead_tenant_document
		ON broker_lead (tenant_id, document);
	`).Error; err != nil {
		return fmt.Errorf("create idx_broker_lead_tenant_document: %w", err)
	}
	if err := db.Exec(`
		CREATE UNIQUE INDEX IF NOT EXISTS idx_allocation_tenant_lead_campaign
		ON lead_allocation (tenant_id, lead_id, campaign_id);
	`).Error; err != nil {
		return fmt.Errorf("create idx_allocation_tenant_lead_campaign: %w", err)
	}
	if err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_allocation_campaign_received_at
		ON lead_allocation (tenant_id, campaign_id, received_at DESC);
	`).Error; err != nil {
		return fmt.Errorf("create idx_allocation_campaign_received_at: %w", err)
	}

	return nil
}

func (s *PostgresService) AutoMigrateAll() error {
	s.log.Info("Auto migrating postgres tables...")
	if err := AutoMigrateAll(s.db); err != nil {
		s.log.Error("Auto migration failed", "error", err)
		return err
	}
	if err := EnsureReconciliationIndexes(s.db); err != nil {
		s.log.Error("Reconciliation index migration failed", "error", err)
		return err
	}
	return nil
}
