package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/atendoteam/atendo-backend/internal/data/repos"
	types "github.com/atendoteam/atendo-backend/internal/domain"
	"github.com/atendoteam/atendo-backend/internal/pkg/dbutil"
	apperrors "github.com/atendoteam/atendo-backend/internal/pkg/errors"
	"github.com/atendoteam/atendo-backend/internal/pkg/jsonmap"
	"github.com/atendoteam/atendo-backend/internal/pkg/logger"
	"github.com/atendoteam/atendo-backend/internal/realtime"
	"github.com/atendoteam/atendo-backend/internal/realtime/bus"
)

type TicketResolver interface {
	ResolveOpen(ctx context.Context, tx *gorm.DB, tenantID uuid.UUID, contact *types.Contact, channel, instanceID string) (*types.Ticket, bool, error)
}

type ticketResolver struct {
	db       *gorm.DB
	log      *logger.Logger
	tickets  repos.TicketRepo
	queues   repos.QueueRepo
	notifier bus.Notifier
}

func NewTicketResolver(
	db *gorm.DB,
	baseLog *logger.Logger,
	tickets repos.TicketRepo,
	queues repos.QueueRepo,
	notifier bus.Notifier,
) TicketResolver {
	if notifier == nil {
		notifier = bus.NoopNotifier{}
	}
	return &ticketResolver{
		db:       db,
		log:      baseLog.With("service", "TicketResolver"),
		tickets:  tickets,
		queues:   queues,
		notifier: notifier,
	}
}

// ResolveOpen reuses the contact's newest open-family ticket or creates one.
// Reuse-or-create runs inside one transaction and the partial unique index
// on (tenant_id, contact_id) over open statuses arbitrates concurrent
// first-contacts: the loser of a create race re-reads the winner's ticket.
func (s *ticketResolver) ResolveOpen(ctx context.Context, tx *gorm.DB, tenantID uuid.UUID, contact *types.Contact, channel, instanceID string) (*types.Ticket, bool, error) {
	if tx != nil {
		return s.resolveOpen(ctx, tx, tenantID, contact, channel, instanceID)
	}
	var (
		out     *types.Ticket
		created bool
	)
	err := s.db.WithContext(ctx).Transaction(func(txx *gorm.DB) error {
		ticket, wasCreated, err := s.resolveOpen(ctx, txx, tenantID, contact, channel, instanceID)
		out, created = ticket, wasCreated
		return err
	})
	return out, created, err
}

func (s *ticketResolver) resolveOpen(ctx context.Context, tx *gorm.DB, tenantID uuid.UUID, contact *types.Contact, channel, instanceID string) (*types.Ticket, bool, error) {
	if tenantID == uuid.Nil || contact == nil || contact.ID == uuid.Nil {
		return nil, false, fmt.Errorf("resolve ticket: %w: tenant and contact required", apperrors.ErrInvalidArgument)
	}
	if channel == "" {
		channel = "chat"
	}

	existing, err := s.tickets.GetLatestOpenByContact(ctx, tx, tenantID, contact.ID)
	if err != nil {
		return nil, false, fmt.Errorf("resolve ticket: lookup open: %w", err)
	}
	if existing != nil {
		if err := s.patchReused(ctx, tx, existing, contact, instanceID); err != nil {
			return nil, false, err
		}
		return existing, false, nil
	}

	queue, err := s.queues.FindOrCreate(ctx, tx, tenantID, channel+"-default", channel)
	if err != nil {
		return nil, false, fmt.Errorf("resolve ticket: provision queue: %w", err)
	}

	now := time.Now().UTC()
	metadata := map[string]interface{}{
		"chat_id": contact.PrimaryPhone,
	}
	if instanceID != "" {
		metadata["instance_id"] = instanceID
	}
	ticket := &types.Ticket{
		ID:        uuid.New(),
		TenantID:  tenantID,
		ContactID: contact.ID,
		Status:    types.TicketStatusOpen,
		Channel:   channel,
		Metadata:  jsonmap.Encode(metadata),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if queue != nil {
		ticket.QueueID = &queue.ID
	}
	createErr := dbutil.RunGuarded(tx, func(tx *gorm.DB) error {
		_, err := s.tickets.Create(ctx, tx, []*types.Ticket{ticket})
		return err
	})
	if createErr != nil {
		if dbutil.IsUniqueViolation(createErr) {
			s.log.Debug("Lost open-ticket create race, re-reading", "tenant_id", tenantID, "contact_id", contact.ID)
			winner, lookupErr := s.tickets.GetLatestOpenByContact(ctx, tx, tenantID, contact.ID)
			if lookupErr != nil {
				return nil, false, fmt.Errorf("resolve ticket: re-read after conflict: %w", lookupErr)
			}
			if winner == nil {
				return nil, false, fmt.Errorf("resolve ticket: conflict but no open ticket for contact %s", contact.ID)
			}
			if err := s.patchReused(ctx, tx, winner, contact, instanceID); err != nil {
				return nil, false, err
			}
			return winner, false, nil
		}
		return nil, false, fmt.Errorf("resolve ticket: create: %w", createErr)
	}

	s.log.Info("Ticket opened", "tenant_id", tenantID, "ticket_id", ticket.ID, "contact_id", contact.ID, "channel", channel)
	if err := s.notifier.Publish(ctx, realtime.Event{
		Type:     realtime.EventTicketCreated,
		TenantID: tenantID,
		Payload:  map[string]interface{}{"ticket_id": ticket.ID.String(), "contact_id": contact.ID.String()},
		At:       now,
	}); err != nil {
		s.log.Warn("Ticket created event publish failed", "error", err)
	}
	return ticket, true, nil
}

// patchReused backfills the chat identifier and instance hint on a reused
// ticket. An identifier already present is never overwritten.
func (s *ticketResolver) patchReused(ctx context.Context, tx *gorm.DB, ticket *types.Ticket, contact *types.Contact, instanceID string) error {
	meta := jsonmap.Decode(ticket.Metadata)
	changed := false
	if _, ok := meta["chat_id"]; !ok && contact.PrimaryPhone != "" {
		meta["chat_id"] = contact.PrimaryPhone
		changed = true
	}
	if _, ok := meta["instance_id"]; !ok && instanceID != "" {
		meta["instance_id"] = instanceID
		changed = true
	}
	if !changed {
		return nil
	}
	ticket.Metadata = jsonmap.Encode(meta)
	if err := s.tickets.UpdateFields(ctx, tx, ticket.ID, map[string]interface{}{
		"metadata": ticket.Metadata,
	}); err != nil {
		return fmt.Errorf("resolve ticket: patch reused: %w", err)
	}
	return nil
}
