package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/atendoteam/atendo-backend/internal/data/repos"
	"github.com/atendoteam/atendo-backend/internal/http/response"
	"github.com/atendoteam/atendo-backend/internal/pkg/logger"
	"github.com/atendoteam/atendo-backend/internal/services"
)

type MediaHandler struct {
	log      *logger.Logger
	messages repos.MessageRepo
	jobs     repos.MediaJobRepo
	queue    services.MediaQueue
}

func NewMediaHandler(log *logger.Logger, messages repos.MessageRepo, jobs repos.MediaJobRepo, queue services.MediaQueue) *MediaHandler {
	return &MediaHandler{
		log:      log.With("handler", "MediaHandler"),
		messages: messages,
		jobs:     jobs,
		queue:    queue,
	}
}

// GET /api/messages/:id/media-job?tenant_id=...
func (h *MediaHandler) GetJob(c *gin.Context) {
	messageID, tenantID, ok := h.messageScope(c)
	if !ok {
		return
	}
	msg, err := h.messages.GetByID(c.Request.Context(), nil, tenantID, messageID)
	if err != nil {
		h.log.Error("GetJob failed (load message)", "error", err, "message_id", messageID)
		response.RespondError(c, http.StatusInternalServerError, "load_message_failed", err)
		return
	}
	if msg == nil {
		response.RespondError(c, http.StatusNotFound, "message_not_found", nil)
		return
	}
	job, err := h.jobs.GetByMessageID(c.Request.Context(), nil, messageID)
	if err != nil {
		h.log.Error("GetJob failed (load job)", "error", err, "message_id", messageID)
		response.RespondError(c, http.StatusInternalServerError, "load_job_failed", err)
		return
	}
	if job == nil {
		response.RespondError(c, http.StatusNotFound, "media_job_not_found", nil)
		return
	}
	response.RespondOK(c, job)
}

// POST /api/messages/:id/media-job/retry?tenant_id=...
//
// Resets the message's media job to PENDING so a worker picks it up again.
func (h *MediaHandler) RetryJob(c *gin.Context) {
	messageID, tenantID, ok := h.messageScope(c)
	if !ok {
		return
	}
	msg, err := h.messages.GetByID(c.Request.Context(), nil, tenantID, messageID)
	if err != nil {
		h.log.Error("RetryJob failed (load message)", "error", err, "message_id", messageID)
		response.RespondError(c, http.StatusInternalServerError, "load_message_failed", err)
		return
	}
	if msg == nil {
		response.RespondError(c, http.StatusNotFound, "message_not_found", nil)
		return
	}
	if !msg.HasMedia() || msg.MediaURL == "" {
		response.RespondError(c, http.StatusUnprocessableEntity, "message_has_no_media", nil)
		return
	}
	job, err := h.queue.Enqueue(c.Request.Context(), nil, msg)
	if err != nil {
		h.log.Error("RetryJob failed (enqueue)", "error", err, "message_id", messageID)
		response.RespondError(c, http.StatusInternalServerError, "enqueue_failed", err)
		return
	}
	response.RespondOK(c, job)
}

func (h *MediaHandler) messageScope(c *gin.Context) (uuid.UUID, uuid.UUID, bool) {
	messageID, err := uuid.Parse(c.Param("id"))
	if err != nil || messageID == uuid.Nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_message_id", err)
		return uuid.Nil, uuid.Nil, false
	}
	tenantID, err := uuid.Parse(c.Query("tenant_id"))
	if err != nil || tenantID == uuid.Nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_tenant_id", err)
		return uuid.Nil, uuid.Nil, false
	}
	return messageID, tenantID, true
}
