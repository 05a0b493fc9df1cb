package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/atendoteam/atendo-backend/internal/domain"
	"github.com/atendoteam/atendo-backend/internal/http/response"
	"github.com/atendoteam/atendo-backend/internal/pkg/logger"
	"github.com/atendoteam/atendo-backend/internal/services"
)

type inboundMediaBody struct {
	Kind      string `json:"kind"`
	URL       string `json:"url"`
	MimeType  string `json:"mime_type"`
	FileName  string `json:"file_name"`
	SizeBytes int64  `json:"size_bytes"`
}

type inboundEventBody struct {
	TenantID    string                 `json:"tenant_id" binding:"required"`
	ChatID      string                 `json:"chat_id" binding:"required"`
	Direction   string                 `json:"direction"`
	ExternalID  string                 `json:"external_id"`
	DisplayName string                 `json:"display_name"`
	Phone       string                 `json:"phone"`
	Channel     string                 `json:"channel"`
	InstanceID  string                 `json:"instance_id"`
	Body        string                 `json:"body"`
	Caption     string                 `json:"caption"`
	Timestamp   string                 `json:"timestamp"`
	Media       *inboundMediaBody      `json:"media,omitempty"`
	Extra       map[string]interface{} `json:"extra,omitempty"`
}

// InboundHandler runs the full reconciliation chain for one provider event:
// contact, then open ticket, then idempotent message, then media job when
// the message carries media. The chain shares one transaction so a failure
// anywhere leaves no partial rows.
type InboundHandler struct {
	log *logger.Logger
	db  *gorm.DB

	contacts services.ContactResolver
	tickets  services.TicketResolver
	messages services.MessageIngest
	media    services.MediaQueue
}

func NewInboundHandler(
	log *logger.Logger,
	db *gorm.DB,
	contacts services.ContactResolver,
	tickets services.TicketResolver,
	messages services.MessageIngest,
	media services.MediaQueue,
) *InboundHandler {
	return &InboundHandler{
		log:      log.With("handler", "InboundHandler"),
		db:       db,
		contacts: contacts,
		tickets:  tickets,
		messages: messages,
		media:    media,
	}
}

// POST /api/webhooks/inbound
func (h *InboundHandler) ReceiveEvent(c *gin.Context) {
	var body inboundEventBody
	if err := c.ShouldBindJSON(&body); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	tenantID, err := uuid.Parse(body.TenantID)
	if err != nil || tenantID == uuid.Nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_tenant_id", err)
		return
	}
	channel := body.Channel
	if channel == "" {
		channel = "whatsapp"
	}

	payload := services.InboundPayload{
		Body:       body.Body,
		Caption:    body.Caption,
		Timestamp:  body.Timestamp,
		InstanceID: body.InstanceID,
		Extra:      body.Extra,
	}
	if body.Media != nil {
		payload.Media = &services.MediaDescriptor{
			Kind:      body.Media.Kind,
			URL:       body.Media.URL,
			MimeType:  body.Media.MimeType,
			FileName:  body.Media.FileName,
			SizeBytes: body.Media.SizeBytes,
		}
	}

	var (
		msg        *types.Message
		ticket     *types.Ticket
		wasCreated bool
	)
	err = h.db.WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
		ctx := c.Request.Context()
		contact, err := h.contacts.Resolve(ctx, tx, tenantID, body.ChatID, body.DisplayName, body.Phone)
		if err != nil {
			return err
		}
		ticket, _, err = h.tickets.ResolveOpen(ctx, tx, tenantID, contact, channel, body.InstanceID)
		if err != nil {
			return err
		}
		msg, wasCreated, err = h.messages.Upsert(ctx, tx, services.InboundMessage{
			TenantID:   tenantID,
			TicketID:   ticket.ID,
			ChatID:     body.ChatID,
			Direction:  body.Direction,
			ExternalID: body.ExternalID,
			Payload:    payload,
		})
		if err != nil {
			return err
		}
		if msg.HasMedia() && msg.MediaURL != "" {
			if _, err := h.media.Enqueue(ctx, tx, msg); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		h.log.Error("ReceiveEvent failed", "error", err, "tenant_id", tenantID, "chat_id", body.ChatID)
		response.RespondError(c, http.StatusInternalServerError, "ingest_failed", err)
		return
	}

	response.RespondOK(c, gin.H{
		"message_id": msg.ID,
		"ticket_id":  ticket.ID,
		"contact_id": msg.ContactID,
		"created":    wasCreated,
	})
}
