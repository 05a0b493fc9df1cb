package services

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/atendoteam/atendo-backend/internal/data/repos"
	"github.com/atendoteam/atendo-backend/internal/data/repos/testutil"
	types "github.com/atendoteam/atendo-backend/internal/domain"
)

// These tests drive two real sessions against the shared database. The first
// session holds its INSERT uncommitted while the second runs the same
// find-or-create, so the second blocks on the unique index, eats the 23505
// when the first commits, and must recover inside its own still-open
// transaction.

type raceStack struct {
	db       *gorm.DB
	contacts ContactResolver
	tickets  TicketResolver
}

func newRaceStack(t *testing.T, tenantID uuid.UUID) *raceStack {
	t.Helper()
	db := testutil.DB(t)
	log := testutil.Logger(t)
	testutil.CleanupTenant(t, db, tenantID)

	contactRepo := repos.NewContactRepo(db, log)
	phoneRepo := repos.NewContactPhoneRepo(db, log)
	emailRepo := repos.NewContactEmailRepo(db, log)
	tagRepo := repos.NewTagRepo(db, log)
	ticketRepo := repos.NewTicketRepo(db, log)
	queueRepo := repos.NewQueueRepo(db, log)

	return &raceStack{
		db:       db,
		contacts: NewContactResolver(db, log, contactRepo, phoneRepo, emailRepo, tagRepo, nil),
		tickets:  NewTicketResolver(db, log, ticketRepo, queueRepo, nil),
	}
}

func TestResolveOpenConcurrentFirstContact(t *testing.T) {
	tenantID := uuid.New()
	s := newRaceStack(t, tenantID)
	ctx := context.Background()

	contact, err := s.contacts.Resolve(ctx, nil, tenantID, "5511888880001@c.us", "", "")
	if err != nil {
		t.Fatalf("seed contact: %v", err)
	}

	tx := s.db.Begin()
	if tx.Error != nil {
		t.Fatalf("begin: %v", tx.Error)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback().Error
		}
	}()

	winner, created, err := s.tickets.ResolveOpen(ctx, tx, tenantID, contact, "whatsapp", "inst-race")
	if err != nil || !created {
		t.Fatalf("first resolve: created=%v err=%v", created, err)
	}

	type outcome struct {
		ticket  *types.Ticket
		created bool
		err     error
	}
	done := make(chan outcome, 1)
	go func() {
		ticket, wasCreated, err := s.tickets.ResolveOpen(ctx, nil, tenantID, contact, "whatsapp", "inst-race")
		done <- outcome{ticket, wasCreated, err}
	}()

	// Let the second session reach the blocked INSERT before the first
	// session's row becomes visible.
	time.Sleep(300 * time.Millisecond)
	if err := tx.Commit().Error; err != nil {
		t.Fatalf("commit winner: %v", err)
	}
	committed = true

	var res outcome
	select {
	case res = <-done:
	case <-time.After(10 * time.Second):
		t.Fatalf("second resolve never returned")
	}
	if res.err != nil {
		t.Fatalf("losing resolve must converge on the winner, got: %v", res.err)
	}
	if res.created {
		t.Fatalf("losing resolve reported created=true")
	}
	if res.ticket.ID != winner.ID {
		t.Fatalf("loser got ticket %s, want winner %s", res.ticket.ID, winner.ID)
	}

	var count int64
	if err := s.db.Model(&types.Ticket{}).
		Where("tenant_id = ? AND contact_id = ? AND status IN ?", tenantID, contact.ID, types.TicketOpenStatuses).
		Count(&count).Error; err != nil {
		t.Fatalf("count open tickets: %v", err)
	}
	if count != 1 {
		t.Fatalf("open tickets = %d, want 1", count)
	}
}

func TestResolveContactConcurrentCreate(t *testing.T) {
	tenantID := uuid.New()
	s := newRaceStack(t, tenantID)
	ctx := context.Background()

	tx := s.db.Begin()
	if tx.Error != nil {
		t.Fatalf("begin: %v", tx.Error)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback().Error
		}
	}()

	winner, err := s.contacts.Resolve(ctx, tx, tenantID, "5511888880002@c.us", "Primeira", "")
	if err != nil {
		t.Fatalf("first resolve: %v", err)
	}

	type outcome struct {
		contact *types.Contact
		err     error
	}
	done := make(chan outcome, 1)
	go func() {
		contact, err := s.contacts.Resolve(ctx, nil, tenantID, "5511888880002@c.us", "Segunda", "")
		done <- outcome{contact, err}
	}()

	time.Sleep(300 * time.Millisecond)
	if err := tx.Commit().Error; err != nil {
		t.Fatalf("commit winner: %v", err)
	}
	committed = true

	var res outcome
	select {
	case res = <-done:
	case <-time.After(10 * time.Second):
		t.Fatalf("second resolve never returned")
	}
	if res.err != nil {
		t.Fatalf("losing resolve must converge on the winner, got: %v", res.err)
	}
	if res.contact.ID != winner.ID {
		t.Fatalf("loser got contact %s, want winner %s", res.contact.ID, winner.ID)
	}
	if res.contact.DisplayName != "Primeira" {
		t.Fatalf("display name = %q, the loser's hint must not overwrite", res.contact.DisplayName)
	}

	var count int64
	if err := s.db.Model(&types.Contact{}).
		Where("tenant_id = ? AND primary_phone = ?", tenantID, "+5511888880002").
		Count(&count).Error; err != nil {
		t.Fatalf("count contacts: %v", err)
	}
	if count != 1 {
		t.Fatalf("contacts = %d, want 1", count)
	}
}
