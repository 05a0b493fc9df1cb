package engagement

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/atendoteam/atendo-backend/internal/data/repos/testutil"
	types "github.com/atendoteam/atendo-backend/internal/domain"
)

func TestMessageGetByExternalID(t *testing.T) {
	db := testutil.DB(t)
	log := testutil.Logger(t)
	tx := testutil.Tx(t, db)
	ctx := context.Background()
	repo := NewMessageRepo(db, log)

	tenantID := uuid.New()
	contact := testutil.SeedContact(t, ctx, tx, tenantID, "+5511999990001")
	ticket := testutil.SeedTicket(t, ctx, tx, tenantID, contact.ID, types.TicketStatusOpen)
	seeded := testutil.SeedMessage(t, ctx, tx, tenantID, ticket.ID, contact.ID, "prov-abc", time.Now().UTC())

	got, err := repo.GetByExternalID(ctx, tx, tenantID, "prov-abc")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if got == nil || got.ID != seeded.ID {
		t.Fatalf("got %+v, want seeded message", got)
	}

	// Another tenant never sees the row.
	got, err = repo.GetByExternalID(ctx, tx, uuid.New(), "prov-abc")
	if err != nil {
		t.Fatalf("cross-tenant lookup: %v", err)
	}
	if got != nil {
		t.Fatalf("cross-tenant lookup leaked a row")
	}

	// Empty external ids are not deduplicable.
	got, err = repo.GetByExternalID(ctx, tx, tenantID, "")
	if err != nil {
		t.Fatalf("empty lookup: %v", err)
	}
	if got != nil {
		t.Fatalf("empty external id matched a row")
	}
}

func TestMessageExternalIDUniquePerTenant(t *testing.T) {
	db := testutil.DB(t)
	log := testutil.Logger(t)
	tx := testutil.Tx(t, db)
	ctx := context.Background()
	repo := NewMessageRepo(db, log)

	tenantID := uuid.New()
	contact := testutil.SeedContact(t, ctx, tx, tenantID, "+5511999990002")
	ticket := testutil.SeedTicket(t, ctx, tx, tenantID, contact.ID, types.TicketStatusOpen)
	testutil.SeedMessage(t, ctx, tx, tenantID, ticket.ID, contact.ID, "prov-dup", time.Now().UTC())

	dupe := &types.Message{
		ID:         uuid.New(),
		TenantID:   tenantID,
		TicketID:   ticket.ID,
		ContactID:  contact.ID,
		Direction:  types.DirectionInbound,
		Type:       types.MessageTypeText,
		Content:    "second delivery",
		Status:     types.MessageStatusPending,
		ExternalID: "prov-dup",
	}
	if _, err := repo.Create(ctx, tx, []*types.Message{dupe}); err == nil {
		t.Fatalf("expected unique violation on duplicate external id")
	}
}

func TestMessageListAndCountByTicket(t *testing.T) {
	db := testutil.DB(t)
	log := testutil.Logger(t)
	tx := testutil.Tx(t, db)
	ctx := context.Background()
	repo := NewMessageRepo(db, log)

	tenantID := uuid.New()
	contact := testutil.SeedContact(t, ctx, tx, tenantID, "+5511999990003")
	ticket := testutil.SeedTicket(t, ctx, tx, tenantID, contact.ID, types.TicketStatusOpen)
	base := time.Now().UTC().Add(-time.Hour)
	testutil.SeedMessage(t, ctx, tx, tenantID, ticket.ID, contact.ID, "m-1", base)
	testutil.SeedMessage(t, ctx, tx, tenantID, ticket.ID, contact.ID, "m-2", base.Add(time.Minute))
	testutil.SeedMessage(t, ctx, tx, tenantID, ticket.ID, contact.ID, "m-3", base.Add(2*time.Minute))

	listed, err := repo.ListByTicket(ctx, tx, tenantID, ticket.ID, 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(listed) != 3 {
		t.Fatalf("listed %d messages, want 3", len(listed))
	}
	if listed[0].ExternalID != "m-1" || listed[2].ExternalID != "m-3" {
		t.Fatalf("list order wrong: %s .. %s", listed[0].ExternalID, listed[2].ExternalID)
	}

	limited, err := repo.ListByTicket(ctx, tx, tenantID, ticket.ID, 2)
	if err != nil {
		t.Fatalf("limited list: %v", err)
	}
	if len(limited) != 2 {
		t.Fatalf("limited list %d, want 2", len(limited))
	}

	count, err := repo.CountByTicket(ctx, tx, tenantID, ticket.ID)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 3 {
		t.Fatalf("count = %d, want 3", count)
	}
}
