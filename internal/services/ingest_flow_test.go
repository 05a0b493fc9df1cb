package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/atendoteam/atendo-backend/internal/data/repos"
	"github.com/atendoteam/atendo-backend/internal/data/repos/testutil"
	types "github.com/atendoteam/atendo-backend/internal/domain"
	apperrors "github.com/atendoteam/atendo-backend/internal/pkg/errors"
	"github.com/atendoteam/atendo-backend/internal/pkg/jsonmap"
)

// ingestStack wires the full resolver chain against one rollback
// transaction. The tx doubles as the service db handle so internal
// transactions become savepoints and nothing leaks past cleanup.
type ingestStack struct {
	tx       *gorm.DB
	contacts ContactResolver
	tickets  TicketResolver
	messages MessageIngest
	media    MediaQueue

	contactRepo repos.ContactRepo
	phoneRepo   repos.ContactPhoneRepo
	emailRepo   repos.ContactEmailRepo
	ticketRepo  repos.TicketRepo
	messageRepo repos.MessageRepo
	jobRepo     repos.MediaJobRepo
}

func newIngestStack(t *testing.T) *ingestStack {
	t.Helper()
	db := testutil.DB(t)
	log := testutil.Logger(t)
	tx := testutil.Tx(t, db)

	contactRepo := repos.NewContactRepo(tx, log)
	phoneRepo := repos.NewContactPhoneRepo(tx, log)
	emailRepo := repos.NewContactEmailRepo(tx, log)
	tagRepo := repos.NewTagRepo(tx, log)
	queueRepo := repos.NewQueueRepo(tx, log)
	ticketRepo := repos.NewTicketRepo(tx, log)
	messageRepo := repos.NewMessageRepo(tx, log)
	jobRepo := repos.NewMediaJobRepo(tx, log)

	return &ingestStack{
		tx:          tx,
		contacts:    NewContactResolver(tx, log, contactRepo, phoneRepo, emailRepo, tagRepo, nil),
		tickets:     NewTicketResolver(tx, log, ticketRepo, queueRepo, nil),
		messages:    NewMessageIngest(tx, log, messageRepo, ticketRepo, nil),
		media:       NewMediaQueue(tx, log, jobRepo, nil),
		contactRepo: contactRepo,
		phoneRepo:   phoneRepo,
		emailRepo:   emailRepo,
		ticketRepo:  ticketRepo,
		messageRepo: messageRepo,
		jobRepo:     jobRepo,
	}
}

func TestUpsertMessageIdempotent(t *testing.T) {
	s := newIngestStack(t)
	ctx := context.Background()
	tenantID := uuid.New()

	contact, err := s.contacts.Resolve(ctx, s.tx, tenantID, "5511999991001@c.us", "Maria", "")
	if err != nil {
		t.Fatalf("resolve contact: %v", err)
	}
	ticket, created, err := s.tickets.ResolveOpen(ctx, s.tx, tenantID, contact, "whatsapp", "inst-1")
	if err != nil {
		t.Fatalf("resolve ticket: %v", err)
	}
	if !created {
		t.Fatalf("first resolve should create the ticket")
	}

	in := InboundMessage{
		TenantID:   tenantID,
		TicketID:   ticket.ID,
		ChatID:     "5511999991001@c.us",
		Direction:  types.DirectionInbound,
		ExternalID: "prov-100",
		Payload:    InboundPayload{Body: "first delivery", Timestamp: "1700000000"},
	}
	msg, wasCreated, err := s.messages.Upsert(ctx, s.tx, in)
	if err != nil {
		t.Fatalf("first upsert: %v", err)
	}
	if !wasCreated {
		t.Fatalf("first upsert should create")
	}

	in.Payload.Body = "second delivery"
	again, wasCreated, err := s.messages.Upsert(ctx, s.tx, in)
	if err != nil {
		t.Fatalf("second upsert: %v", err)
	}
	if wasCreated {
		t.Fatalf("second upsert should update in place")
	}
	if again.ID != msg.ID {
		t.Fatalf("second upsert produced a different row")
	}
	if again.Content != "second delivery" {
		t.Fatalf("content not refreshed: %q", again.Content)
	}

	count, err := s.messageRepo.CountByTicket(ctx, s.tx, tenantID, ticket.ID)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 1 {
		t.Fatalf("count = %d, want 1", count)
	}
}

func TestUpsertMessageUpdatesTicketAggregates(t *testing.T) {
	s := newIngestStack(t)
	ctx := context.Background()
	tenantID := uuid.New()

	contact, err := s.contacts.Resolve(ctx, s.tx, tenantID, "5511999991002@c.us", "", "")
	if err != nil {
		t.Fatalf("resolve contact: %v", err)
	}
	ticket, _, err := s.tickets.ResolveOpen(ctx, s.tx, tenantID, contact, "whatsapp", "inst-1")
	if err != nil {
		t.Fatalf("resolve ticket: %v", err)
	}

	late := "1700000600"
	early := "1700000000"
	for i, tc := range []struct {
		external  string
		timestamp string
		body      string
	}{
		{"prov-201", late, "later message"},
		{"prov-202", early, "earlier message"},
	} {
		_, _, err := s.messages.Upsert(ctx, s.tx, InboundMessage{
			TenantID:   tenantID,
			TicketID:   ticket.ID,
			ChatID:     "5511999991002@c.us",
			Direction:  types.DirectionInbound,
			ExternalID: tc.external,
			Payload:    InboundPayload{Body: tc.body, Timestamp: tc.timestamp},
		})
		if err != nil {
			t.Fatalf("upsert %d: %v", i, err)
		}
	}

	reloaded, err := s.ticketRepo.GetByID(ctx, s.tx, tenantID, ticket.ID)
	if err != nil {
		t.Fatalf("reload ticket: %v", err)
	}
	wantLast := time.Unix(1700000600, 0).UTC()
	if reloaded.LastMessageAt == nil || !reloaded.LastMessageAt.Equal(wantLast) {
		t.Fatalf("last_message_at = %v, want %v (out-of-order arrival must not move it back)", reloaded.LastMessageAt, wantLast)
	}
	if reloaded.LastMessagePreview != "later message" {
		t.Fatalf("preview = %q", reloaded.LastMessagePreview)
	}

	meta := jsonmap.Decode(reloaded.Metadata)
	timeline, ok := meta["timeline"].(map[string]interface{})
	if !ok {
		t.Fatalf("ticket metadata has no timeline: %v", meta)
	}
	first, _ := timeline["first_inbound_at"].(string)
	last, _ := timeline["last_inbound_at"].(string)
	firstAt, err := time.Parse(time.RFC3339Nano, first)
	if err != nil {
		t.Fatalf("parse first bound %q: %v", first, err)
	}
	lastAt, err := time.Parse(time.RFC3339Nano, last)
	if err != nil {
		t.Fatalf("parse last bound %q: %v", last, err)
	}
	if !firstAt.Equal(time.Unix(1700000000, 0).UTC()) || !lastAt.Equal(wantLast) {
		t.Fatalf("timeline bounds [%v, %v]", firstAt, lastAt)
	}
}

func TestUpsertMediaMessageEnqueuesSingleJob(t *testing.T) {
	s := newIngestStack(t)
	ctx := context.Background()
	tenantID := uuid.New()

	contact, err := s.contacts.Resolve(ctx, s.tx, tenantID, "5511999991003@c.us", "", "")
	if err != nil {
		t.Fatalf("resolve contact: %v", err)
	}
	ticket, _, err := s.tickets.ResolveOpen(ctx, s.tx, tenantID, contact, "whatsapp", "inst-1")
	if err != nil {
		t.Fatalf("resolve ticket: %v", err)
	}

	msg, _, err := s.messages.Upsert(ctx, s.tx, InboundMessage{
		TenantID:   tenantID,
		TicketID:   ticket.ID,
		ChatID:     "5511999991003@c.us",
		Direction:  types.DirectionInbound,
		ExternalID: "prov-300",
		Payload: InboundPayload{
			Media:     &MediaDescriptor{Kind: "image", URL: "https://cdn/img-1", MimeType: "image/jpeg"},
			Timestamp: "1700000000",
		},
	})
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if msg.Type != types.MessageTypeImage || !msg.HasMedia() {
		t.Fatalf("message type = %v", msg.Type)
	}

	job, err := s.media.Enqueue(ctx, s.tx, msg)
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	if job.Status != types.MediaJobStatusPending || job.MediaURL != "https://cdn/img-1" {
		t.Fatalf("job = %+v", job)
	}

	// Redelivery re-enqueues onto the same job row, resetting state.
	if err := s.jobRepo.UpdateFields(ctx, s.tx, job.ID, map[string]interface{}{
		"status":     types.MediaJobStatusFailed,
		"last_error": "boom",
	}); err != nil {
		t.Fatalf("mark failed: %v", err)
	}
	again, err := s.media.Enqueue(ctx, s.tx, msg)
	if err != nil {
		t.Fatalf("re-enqueue: %v", err)
	}
	if again.ID != job.ID {
		t.Fatalf("re-enqueue created a second job")
	}
	if again.Status != types.MediaJobStatusPending || again.LastError != "" {
		t.Fatalf("re-enqueue did not reset: %+v", again)
	}
}

func TestResolveOpenReusesTicket(t *testing.T) {
	s := newIngestStack(t)
	ctx := context.Background()
	tenantID := uuid.New()

	contact, err := s.contacts.Resolve(ctx, s.tx, tenantID, "5511999991004@c.us", "", "")
	if err != nil {
		t.Fatalf("resolve contact: %v", err)
	}
	first, created, err := s.tickets.ResolveOpen(ctx, s.tx, tenantID, contact, "whatsapp", "inst-1")
	if err != nil || !created {
		t.Fatalf("first resolve: created=%v err=%v", created, err)
	}
	second, created, err := s.tickets.ResolveOpen(ctx, s.tx, tenantID, contact, "whatsapp", "inst-1")
	if err != nil {
		t.Fatalf("second resolve: %v", err)
	}
	if created || second.ID != first.ID {
		t.Fatalf("second resolve should reuse: created=%v id=%s want %s", created, second.ID, first.ID)
	}

	// Closing frees the slot for a fresh ticket.
	if err := s.ticketRepo.UpdateFields(ctx, s.tx, first.ID, map[string]interface{}{
		"status": types.TicketStatusClosed,
	}); err != nil {
		t.Fatalf("close ticket: %v", err)
	}
	third, created, err := s.tickets.ResolveOpen(ctx, s.tx, tenantID, contact, "whatsapp", "inst-1")
	if err != nil {
		t.Fatalf("third resolve: %v", err)
	}
	if !created || third.ID == first.ID {
		t.Fatalf("after close a new ticket should be created")
	}
}

func TestResolveContactIdempotent(t *testing.T) {
	s := newIngestStack(t)
	ctx := context.Background()
	tenantID := uuid.New()

	first, err := s.contacts.Resolve(ctx, s.tx, tenantID, "5511999991005@c.us", "Ana", "")
	if err != nil {
		t.Fatalf("first resolve: %v", err)
	}
	second, err := s.contacts.Resolve(ctx, s.tx, tenantID, "5511999991005@c.us", "Ana Maria", "")
	if err != nil {
		t.Fatalf("second resolve: %v", err)
	}
	if second.ID != first.ID {
		t.Fatalf("second resolve created a new contact")
	}
	// A hint never overwrites an already-set display name.
	if second.DisplayName != "Ana" {
		t.Fatalf("display name = %q, want %q", second.DisplayName, "Ana")
	}
	if second.PrimaryPhone != "+5511999991005" {
		t.Fatalf("primary phone = %q", second.PrimaryPhone)
	}
}

func TestSetPrimaryEmailKeepsSinglePrimary(t *testing.T) {
	s := newIngestStack(t)
	ctx := context.Background()
	tenantID := uuid.New()

	contact, err := s.contacts.Resolve(ctx, s.tx, tenantID, "5511999991006@c.us", "", "")
	if err != nil {
		t.Fatalf("resolve contact: %v", err)
	}

	first, err := s.contacts.SetPrimaryEmail(ctx, s.tx, tenantID, contact.ID, " Ana@Example.com ")
	if err != nil {
		t.Fatalf("set first email: %v", err)
	}
	if first.Address != "ana@example.com" || !first.IsPrimary {
		t.Fatalf("first email = %+v", first)
	}

	second, err := s.contacts.SetPrimaryEmail(ctx, s.tx, tenantID, contact.ID, "work@example.com")
	if err != nil {
		t.Fatalf("set second email: %v", err)
	}

	rows, err := s.emailRepo.GetByContactID(ctx, s.tx, contact.ID)
	if err != nil {
		t.Fatalf("list emails: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("email rows = %d, want 2", len(rows))
	}
	primaries := 0
	for _, row := range rows {
		if row.IsPrimary {
			primaries++
			if row.ID != second.ID {
				t.Fatalf("primary is %s, want %s", row.ID, second.ID)
			}
		}
	}
	if primaries != 1 {
		t.Fatalf("primaries = %d, want 1", primaries)
	}

	// Promoting an address already on file reuses the row.
	again, err := s.contacts.SetPrimaryEmail(ctx, s.tx, tenantID, contact.ID, "ANA@example.com")
	if err != nil {
		t.Fatalf("re-promote: %v", err)
	}
	if again.ID != first.ID {
		t.Fatalf("re-promote created a new row")
	}

	reloaded, err := s.contactRepo.GetByID(ctx, s.tx, tenantID, contact.ID)
	if err != nil {
		t.Fatalf("reload contact: %v", err)
	}
	if reloaded.PrimaryEmail != "ana@example.com" {
		t.Fatalf("primary_email = %q", reloaded.PrimaryEmail)
	}
}

func TestSetPrimaryPhonePromotesAndRejectsTakenNumber(t *testing.T) {
	s := newIngestStack(t)
	ctx := context.Background()
	tenantID := uuid.New()

	contact, err := s.contacts.Resolve(ctx, s.tx, tenantID, "5511999991007@c.us", "", "")
	if err != nil {
		t.Fatalf("resolve contact: %v", err)
	}
	other, err := s.contacts.Resolve(ctx, s.tx, tenantID, "5511999991008@c.us", "", "")
	if err != nil {
		t.Fatalf("resolve other contact: %v", err)
	}

	promoted, err := s.contacts.SetPrimaryPhone(ctx, s.tx, tenantID, contact.ID, "55 11 98888-0000")
	if err != nil {
		t.Fatalf("set primary phone: %v", err)
	}
	if promoted.Number != "+5511988880000" || !promoted.IsPrimary {
		t.Fatalf("promoted = %+v", promoted)
	}

	rows, err := s.phoneRepo.GetByContactID(ctx, s.tx, contact.ID)
	if err != nil {
		t.Fatalf("list phones: %v", err)
	}
	primaries := 0
	for _, row := range rows {
		if row.IsPrimary {
			primaries++
		}
	}
	if len(rows) != 2 || primaries != 1 {
		t.Fatalf("rows = %d primaries = %d", len(rows), primaries)
	}

	reloaded, err := s.contactRepo.GetByID(ctx, s.tx, tenantID, contact.ID)
	if err != nil {
		t.Fatalf("reload contact: %v", err)
	}
	if reloaded.PrimaryPhone != "+5511988880000" {
		t.Fatalf("primary_phone = %q", reloaded.PrimaryPhone)
	}

	// A number owned by another contact is a conflict, and the failed
	// update must not poison the surrounding transaction.
	if _, err := s.contacts.SetPrimaryPhone(ctx, s.tx, tenantID, contact.ID, other.PrimaryPhone); !errors.Is(err, apperrors.ErrConflict) {
		t.Fatalf("err = %v, want ErrConflict", err)
	}
	reloaded, err = s.contactRepo.GetByID(ctx, s.tx, tenantID, contact.ID)
	if err != nil {
		t.Fatalf("reload after conflict: %v", err)
	}
	if reloaded.PrimaryPhone != "+5511988880000" {
		t.Fatalf("primary_phone after conflict = %q", reloaded.PrimaryPhone)
	}
}
