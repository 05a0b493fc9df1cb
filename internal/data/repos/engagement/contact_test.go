package engagement

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/atendoteam/atendo-backend/internal/data/repos/testutil"
	types "github.com/atendoteam/atendo-backend/internal/domain"
)

func TestContactGetByPrimaryPhone(t *testing.T) {
	db := testutil.DB(t)
	log := testutil.Logger(t)
	tx := testutil.Tx(t, db)
	ctx := context.Background()
	repo := NewContactRepo(db, log)

	tenantID := uuid.New()
	seeded := testutil.SeedContact(t, ctx, tx, tenantID, "+5511999990020")

	got, err := repo.GetByPrimaryPhone(ctx, tx, tenantID, "+5511999990020")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if got == nil || got.ID != seeded.ID {
		t.Fatalf("got %+v, want seeded contact", got)
	}

	got, err = repo.GetByPrimaryPhone(ctx, tx, uuid.New(), "+5511999990020")
	if err != nil {
		t.Fatalf("cross-tenant lookup: %v", err)
	}
	if got != nil {
		t.Fatalf("cross-tenant lookup leaked a row")
	}

	got, err = repo.GetByPrimaryPhone(ctx, tx, tenantID, "")
	if err != nil {
		t.Fatalf("empty lookup: %v", err)
	}
	if got != nil {
		t.Fatalf("empty phone matched a row")
	}
}

func TestContactPrimaryPhoneUniquePerTenant(t *testing.T) {
	db := testutil.DB(t)
	log := testutil.Logger(t)
	tx := testutil.Tx(t, db)
	ctx := context.Background()
	repo := NewContactRepo(db, log)

	tenantID := uuid.New()
	testutil.SeedContact(t, ctx, tx, tenantID, "+5511999990021")

	dupe := &types.Contact{
		ID:           uuid.New(),
		TenantID:     tenantID,
		DisplayName:  "Second",
		PrimaryPhone: "+5511999990021",
	}
	if _, err := repo.Create(ctx, tx, []*types.Contact{dupe}); err == nil {
		t.Fatalf("expected unique violation on duplicate primary phone")
	}

	// The same phone under another tenant is a different identity.
	otherTenant := &types.Contact{
		ID:           uuid.New(),
		TenantID:     uuid.New(),
		DisplayName:  "Other tenant",
		PrimaryPhone: "+5511999990021",
	}
	if _, err := repo.Create(ctx, tx, []*types.Contact{otherTenant}); err != nil {
		t.Fatalf("cross-tenant create: %v", err)
	}
}

func TestTagFindOrCreateAndAttach(t *testing.T) {
	db := testutil.DB(t)
	log := testutil.Logger(t)
	tx := testutil.Tx(t, db)
	ctx := context.Background()
	tags := NewTagRepo(db, log)

	tenantID := uuid.New()
	contact := testutil.SeedContact(t, ctx, tx, tenantID, "+5511999990022")

	first, err := tags.FindOrCreate(ctx, tx, tenantID, "vip")
	if err != nil {
		t.Fatalf("first find-or-create: %v", err)
	}
	second, err := tags.FindOrCreate(ctx, tx, tenantID, "vip")
	if err != nil {
		t.Fatalf("second find-or-create: %v", err)
	}
	if second.ID != first.ID {
		t.Fatalf("find-or-create not idempotent")
	}

	if err := tags.Attach(ctx, tx, contact.ID, first.ID); err != nil {
		t.Fatalf("attach: %v", err)
	}
	if err := tags.Attach(ctx, tx, contact.ID, first.ID); err != nil {
		t.Fatalf("re-attach: %v", err)
	}

	attached, err := tags.GetByContactID(ctx, tx, contact.ID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(attached) != 1 || attached[0].Name != "vip" {
		t.Fatalf("attached = %+v", attached)
	}
}
