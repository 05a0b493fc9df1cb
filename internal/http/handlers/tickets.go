package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/atendoteam/atendo-backend/internal/data/repos"
	"github.com/atendoteam/atendo-backend/internal/http/response"
	"github.com/atendoteam/atendo-backend/internal/pkg/logger"
)

type TicketsHandler struct {
	log      *logger.Logger
	tickets  repos.TicketRepo
	messages repos.MessageRepo
}

func NewTicketsHandler(log *logger.Logger, tickets repos.TicketRepo, messages repos.MessageRepo) *TicketsHandler {
	return &TicketsHandler{
		log:      log.With("handler", "TicketsHandler"),
		tickets:  tickets,
		messages: messages,
	}
}

// GET /api/tickets/:id/messages?tenant_id=...&limit=...
func (h *TicketsHandler) ListMessages(c *gin.Context) {
	ticketID, err := uuid.Parse(c.Param("id"))
	if err != nil || ticketID == uuid.Nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_ticket_id", err)
		return
	}
	tenantID, err := uuid.Parse(c.Query("tenant_id"))
	if err != nil || tenantID == uuid.Nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_tenant_id", err)
		return
	}
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		limit, err = strconv.Atoi(raw)
		if err != nil || limit < 0 {
			response.RespondError(c, http.StatusBadRequest, "invalid_limit", err)
			return
		}
	}

	ticket, err := h.tickets.GetByID(c.Request.Context(), nil, tenantID, ticketID)
	if err != nil {
		h.log.Error("ListMessages failed (load ticket)", "error", err, "ticket_id", ticketID)
		response.RespondError(c, http.StatusInternalServerError, "load_ticket_failed", err)
		return
	}
	if ticket == nil {
		response.RespondError(c, http.StatusNotFound, "ticket_not_found", nil)
		return
	}

	messages, err := h.messages.ListByTicket(c.Request.Context(), nil, tenantID, ticketID, limit)
	if err != nil {
		h.log.Error("ListMessages failed (list)", "error", err, "ticket_id", ticketID)
		response.RespondError(c, http.StatusInternalServerError, "list_messages_failed", err)
		return
	}
	total, err := h.messages.CountByTicket(c.Request.Context(), nil, tenantID, ticketID)
	if err != nil {
		h.log.Error("ListMessages failed (count)", "error", err, "ticket_id", ticketID)
		response.RespondError(c, http.StatusInternalServerError, "count_messages_failed", err)
		return
	}

	response.RespondOK(c, gin.H{
		"ticket":   ticket,
		"messages": messages,
		"total":    total,
	})
}
