package engagement

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/atendoteam/atendo-backend/internal/data/repos/testutil"
	types "github.com/atendoteam/atendo-backend/internal/domain"
)

func TestGetLatestOpenByContact(t *testing.T) {
	db := testutil.DB(t)
	log := testutil.Logger(t)
	tx := testutil.Tx(t, db)
	ctx := context.Background()
	repo := NewTicketRepo(db, log)

	tenantID := uuid.New()
	contact := testutil.SeedContact(t, ctx, tx, tenantID, "+5511999990010")

	got, err := repo.GetLatestOpenByContact(ctx, tx, tenantID, contact.ID)
	if err != nil {
		t.Fatalf("lookup with no tickets: %v", err)
	}
	if got != nil {
		t.Fatalf("expected nil without tickets, got %+v", got)
	}

	closed := testutil.SeedTicket(t, ctx, tx, tenantID, contact.ID, types.TicketStatusClosed)
	open := testutil.SeedTicket(t, ctx, tx, tenantID, contact.ID, types.TicketStatusPending)

	got, err = repo.GetLatestOpenByContact(ctx, tx, tenantID, contact.ID)
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if got == nil || got.ID != open.ID {
		t.Fatalf("got %+v, want open ticket %s", got, open.ID)
	}
	if got.ID == closed.ID {
		t.Fatalf("closed ticket returned as open")
	}
}

func TestOpenTicketUniquePerContact(t *testing.T) {
	db := testutil.DB(t)
	log := testutil.Logger(t)
	tx := testutil.Tx(t, db)
	ctx := context.Background()
	repo := NewTicketRepo(db, log)

	tenantID := uuid.New()
	contact := testutil.SeedContact(t, ctx, tx, tenantID, "+5511999990011")
	testutil.SeedTicket(t, ctx, tx, tenantID, contact.ID, types.TicketStatusOpen)

	second := &types.Ticket{
		ID:        uuid.New(),
		TenantID:  tenantID,
		ContactID: contact.ID,
		Status:    types.TicketStatusAssigned,
		Channel:   "whatsapp",
	}
	if _, err := repo.Create(ctx, tx, []*types.Ticket{second}); err == nil {
		t.Fatalf("expected unique violation on second open-family ticket")
	}
}

func TestClosedTicketDoesNotBlockNewOpen(t *testing.T) {
	db := testutil.DB(t)
	log := testutil.Logger(t)
	tx := testutil.Tx(t, db)
	ctx := context.Background()
	repo := NewTicketRepo(db, log)

	tenantID := uuid.New()
	contact := testutil.SeedContact(t, ctx, tx, tenantID, "+5511999990012")
	testutil.SeedTicket(t, ctx, tx, tenantID, contact.ID, types.TicketStatusClosed)

	fresh := &types.Ticket{
		ID:        uuid.New(),
		TenantID:  tenantID,
		ContactID: contact.ID,
		Status:    types.TicketStatusOpen,
		Channel:   "whatsapp",
	}
	if _, err := repo.Create(ctx, tx, []*types.Ticket{fresh}); err != nil {
		t.Fatalf("create after close: %v", err)
	}
}

func TestTicketUpdateFields(t *testing.T) {
	db := testutil.DB(t)
	log := testutil.Logger(t)
	tx := testutil.Tx(t, db)
	ctx := context.Background()
	repo := NewTicketRepo(db, log)

	tenantID := uuid.New()
	contact := testutil.SeedContact(t, ctx, tx, tenantID, "+5511999990013")
	ticket := testutil.SeedTicket(t, ctx, tx, tenantID, contact.ID, types.TicketStatusOpen)

	at := time.Now().UTC().Truncate(time.Millisecond)
	err := repo.UpdateFields(ctx, tx, ticket.ID, map[string]interface{}{
		"last_message_at":      at,
		"last_message_preview": "hello there",
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}

	got, err := repo.GetByID(ctx, tx, tenantID, ticket.ID)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if got.LastMessageAt == nil || !got.LastMessageAt.Equal(at) {
		t.Fatalf("last_message_at = %v, want %v", got.LastMessageAt, at)
	}
	if got.LastMessagePreview != "hello there" {
		t.Fatalf("preview = %q", got.LastMessagePreview)
	}
}
