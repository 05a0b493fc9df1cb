package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/atendoteam/atendo-backend/internal/data/repos"
	types "github.com/atendoteam/atendo-backend/internal/domain"
	"github.com/atendoteam/atendo-backend/internal/normalization"
	"github.com/atendoteam/atendo-backend/internal/pkg/dbutil"
	apperrors "github.com/atendoteam/atendo-backend/internal/pkg/errors"
	"github.com/atendoteam/atendo-backend/internal/pkg/jsonmap"
	"github.com/atendoteam/atendo-backend/internal/pkg/logger"
	"github.com/atendoteam/atendo-backend/internal/realtime"
	"github.com/atendoteam/atendo-backend/internal/realtime/bus"
)

// previewLimit bounds the ticket's last_message_preview.
const previewLimit = 280

// InboundMessage is one provider event addressed to an already-resolved
// ticket.
type InboundMessage struct {
	TenantID   uuid.UUID
	TicketID   uuid.UUID
	ChatID     string
	Direction  string
	ExternalID string
	Payload    InboundPayload
}

type MessageIngest interface {
	Upsert(ctx context.Context, tx *gorm.DB, in InboundMessage) (*types.Message, bool, error)
}

type messageIngest struct {
	db       *gorm.DB
	log      *logger.Logger
	messages repos.MessageRepo
	tickets  repos.TicketRepo
	notifier bus.Notifier
}

func NewMessageIngest(
	db *gorm.DB,
	baseLog *logger.Logger,
	messages repos.MessageRepo,
	tickets repos.TicketRepo,
	notifier bus.Notifier,
) MessageIngest {
	if notifier == nil {
		notifier = bus.NoopNotifier{}
	}
	return &messageIngest{
		db:       db,
		log:      baseLog.With("service", "MessageIngest"),
		messages: messages,
		tickets:  tickets,
		notifier: notifier,
	}
}

// Upsert idempotently records one provider event. (tenant_id, external_id)
// is the dedup key: a re-delivered event updates the stored row in place
// and reports wasCreated=false. Creates also refresh the owning ticket's
// preview and timeline bounds inside the same transaction.
func (s *messageIngest) Upsert(ctx context.Context, tx *gorm.DB, in InboundMessage) (*types.Message, bool, error) {
	if tx != nil {
		return s.upsert(ctx, tx, in)
	}
	var (
		out     *types.Message
		created bool
	)
	err := s.db.WithContext(ctx).Transaction(func(txx *gorm.DB) error {
		msg, wasCreated, err := s.upsert(ctx, txx, in)
		out, created = msg, wasCreated
		return err
	})
	return out, created, err
}

func (s *messageIngest) upsert(ctx context.Context, tx *gorm.DB, in InboundMessage) (*types.Message, bool, error) {
	if in.TenantID == uuid.Nil {
		return nil, false, fmt.Errorf("upsert message: %w: tenant id required", apperrors.ErrInvalidArgument)
	}
	direction := in.Direction
	if direction != types.DirectionOutbound {
		direction = types.DirectionInbound
	}
	externalID := strings.TrimSpace(in.ExternalID)

	class := classifyPayload(in.Payload)
	msgType := messageTypeFor(class, in.Payload.Media)
	content := contentFor(class, in.Payload)
	eventTime := normalization.ResolveEventTime(in.Payload.Timestamp, time.Now())

	if externalID != "" {
		existing, err := s.messages.GetByExternalID(ctx, tx, in.TenantID, externalID)
		if err != nil {
			return nil, false, fmt.Errorf("upsert message: lookup external id: %w", err)
		}
		if existing != nil {
			updated, err := s.updateInPlace(ctx, tx, existing, in, direction, msgType, content, eventTime)
			return updated, false, err
		}
	}

	msg, err := s.create(ctx, tx, in, direction, externalID, class, msgType, content, eventTime)
	if err != nil {
		if dbutil.IsUniqueViolation(err) && externalID != "" {
			// A concurrent delivery created the row first; converge on it.
			s.log.Debug("Lost message create race, updating winner", "tenant_id", in.TenantID, "external_id", externalID)
			winner, lookupErr := s.messages.GetByExternalID(ctx, tx, in.TenantID, externalID)
			if lookupErr != nil {
				return nil, false, fmt.Errorf("upsert message: re-read after conflict: %w", lookupErr)
			}
			if winner == nil {
				return nil, false, fmt.Errorf("upsert message: conflict but no row for external id %s", externalID)
			}
			updated, updateErr := s.updateInPlace(ctx, tx, winner, in, direction, msgType, content, eventTime)
			return updated, false, updateErr
		}
		return nil, false, err
	}
	return msg, true, nil
}

func (s *messageIngest) create(ctx context.Context, tx *gorm.DB, in InboundMessage, direction, externalID string, class payloadClass, msgType types.MessageType, content string, eventTime time.Time) (*types.Message, error) {
	ticket, err := s.tickets.GetByID(ctx, tx, in.TenantID, in.TicketID)
	if err != nil {
		return nil, fmt.Errorf("upsert message: load ticket: %w", err)
	}
	if ticket == nil {
		// Fatal precondition: a message is never persisted without its
		// ticket, so the contact_id always matches the ticket's.
		return nil, fmt.Errorf("upsert message: ticket %s: %w", in.TicketID, apperrors.ErrTicketMissing)
	}

	status := types.MessageStatusPending
	if direction == types.DirectionInbound {
		status = types.MessageStatusDelivered
	}
	msg := &types.Message{
		ID:         uuid.New(),
		TenantID:   in.TenantID,
		TicketID:   ticket.ID,
		ContactID:  ticket.ContactID,
		Direction:  direction,
		Type:       msgType,
		Content:    content,
		Caption:    strings.TrimSpace(in.Payload.Caption),
		Status:     status,
		ExternalID: externalID,
		InstanceID: in.Payload.InstanceID,
		Metadata:   jsonmap.Encode(s.buildMetadata(nil, in, class, eventTime)),
		CreatedAt:  eventTime,
		UpdatedAt:  eventTime,
	}
	applyMedia(msg, in.Payload.Media)

	if err := dbutil.RunGuarded(tx, func(tx *gorm.DB) error {
		_, err := s.messages.Create(ctx, tx, []*types.Message{msg})
		return err
	}); err != nil {
		return nil, err
	}
	if err := s.refreshTicketAggregates(ctx, tx, ticket, msg, eventTime); err != nil {
		return nil, err
	}

	s.log.Info("Message recorded",
		"tenant_id", in.TenantID, "ticket_id", ticket.ID, "message_id", msg.ID,
		"type", msg.Type, "direction", direction, "external_id", externalID,
	)
	if err := s.notifier.Publish(ctx, realtime.Event{
		Type:     realtime.EventMessageCreated,
		TenantID: in.TenantID,
		Payload: map[string]interface{}{
			"message_id": msg.ID.String(),
			"ticket_id":  ticket.ID.String(),
			"type":       string(msg.Type),
		},
		At: eventTime,
	}); err != nil {
		s.log.Warn("Message created event publish failed", "error", err)
	}
	return msg, nil
}

// updateInPlace refreshes a re-delivered message. Metadata merges rather
// than replaces, and instance_id only changes when the new event names one.
func (s *messageIngest) updateInPlace(ctx context.Context, tx *gorm.DB, existing *types.Message, in InboundMessage, direction string, msgType types.MessageType, content string, eventTime time.Time) (*types.Message, error) {
	class := classifyPayload(in.Payload)
	merged := jsonmap.Encode(s.buildMetadata(jsonmap.Decode(existing.Metadata), in, class, eventTime))

	updates := map[string]interface{}{
		"direction":  direction,
		"type":       msgType,
		"content":    content,
		"caption":    strings.TrimSpace(in.Payload.Caption),
		"metadata":   merged,
		"updated_at": eventTime,
	}
	if media := in.Payload.Media; media != nil {
		updates["media_url"] = media.URL
		updates["media_mime_type"] = media.MimeType
		updates["media_file_name"] = media.FileName
		updates["media_size_bytes"] = media.SizeBytes
	}
	if in.Payload.InstanceID != "" {
		updates["instance_id"] = in.Payload.InstanceID
		existing.InstanceID = in.Payload.InstanceID
	}
	if err := s.messages.UpdateFields(ctx, tx, existing.ID, updates); err != nil {
		return nil, fmt.Errorf("upsert message: update in place: %w", err)
	}

	existing.Direction = direction
	existing.Type = msgType
	existing.Content = content
	existing.Caption = strings.TrimSpace(in.Payload.Caption)
	existing.Metadata = merged
	existing.UpdatedAt = eventTime
	applyMedia(existing, in.Payload.Media)
	return existing, nil
}

// buildMetadata merges provider passthrough fields over the existing map
// and embeds the provider-agnostic normalized view under "normalized".
func (s *messageIngest) buildMetadata(existing map[string]interface{}, in InboundMessage, class payloadClass, eventTime time.Time) map[string]interface{} {
	normalized := map[string]interface{}{
		"chat_id":      in.ChatID,
		"body":         in.Payload.Body,
		"caption":      in.Payload.Caption,
		"timestamp_ms": eventTime.UnixMilli(),
	}
	if in.Payload.Media != nil {
		normalized["media"] = map[string]interface{}{
			"kind":       in.Payload.Media.Kind,
			"url":        in.Payload.Media.URL,
			"mime_type":  in.Payload.Media.MimeType,
			"file_name":  in.Payload.Media.FileName,
			"size_bytes": in.Payload.Media.SizeBytes,
		}
	}
	if class == payloadUnknown {
		normalized["unsupported"] = true
	}
	incoming := map[string]interface{}{}
	for k, v := range in.Payload.Extra {
		incoming[k] = v
	}
	incoming["normalized"] = normalized
	return jsonmap.Merge(existing, incoming)
}

// refreshTicketAggregates maintains the ticket's last-message denorms and
// the per-direction timeline bounds. Bounds are monotone: first only moves
// earlier, last only moves later, so arrival order does not matter.
func (s *messageIngest) refreshTicketAggregates(ctx context.Context, tx *gorm.DB, ticket *types.Ticket, msg *types.Message, eventTime time.Time) error {
	meta := jsonmap.Decode(ticket.Metadata)

	var timeline types.TicketTimeline
	if raw, ok := meta["timeline"].(map[string]interface{}); ok {
		decodeTimeline(raw, &timeline)
	}
	timeline.Observe(msg.Direction, eventTime)
	meta["timeline"] = encodeTimeline(timeline)

	updates := map[string]interface{}{
		"metadata":   jsonmap.Encode(meta),
		"updated_at": eventTime,
	}
	if ticket.LastMessageAt == nil || !eventTime.Before(*ticket.LastMessageAt) {
		preview := msg.Content
		if preview == "" {
			preview = msg.Caption
		}
		updates["last_message_at"] = eventTime
		updates["last_message_preview"] = truncateRunes(preview, previewLimit)
	}
	if err := s.tickets.UpdateFields(ctx, tx, ticket.ID, updates); err != nil {
		return fmt.Errorf("upsert message: refresh ticket aggregates: %w", err)
	}
	return nil
}

func applyMedia(msg *types.Message, media *MediaDescriptor) {
	if media == nil {
		return
	}
	msg.MediaURL = media.URL
	msg.MediaMimeType = media.MimeType
	msg.MediaFileName = media.FileName
	msg.MediaSizeBytes = media.SizeBytes
}

func encodeTimeline(t types.TicketTimeline) map[string]interface{} {
	out := map[string]interface{}{}
	put := func(key string, v *time.Time) {
		if v != nil {
			out[key] = v.UTC().Format(time.RFC3339Nano)
		}
	}
	put("first_inbound_at", t.FirstInboundAt)
	put("last_inbound_at", t.LastInboundAt)
	put("first_outbound_at", t.FirstOutboundAt)
	put("last_outbound_at", t.LastOutboundAt)
	return out
}

func decodeTimeline(raw map[string]interface{}, into *types.TicketTimeline) {
	get := func(key string) *time.Time {
		s, ok := raw[key].(string)
		if !ok {
			return nil
		}
		t, err := time.Parse(time.RFC3339Nano, s)
		if err != nil {
			return nil
		}
		t = t.UTC()
		return &t
	}
	into.FirstInboundAt = get("first_inbound_at")
	into.LastInboundAt = get("last_inbound_at")
	into.FirstOutboundAt = get("first_outbound_at")
	into.LastOutboundAt = get("last_outbound_at")
}
