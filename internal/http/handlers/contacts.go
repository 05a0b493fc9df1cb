package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/atendoteam/atendo-backend/internal/http/response"
	apperrors "github.com/atendoteam/atendo-backend/internal/pkg/errors"
	"github.com/atendoteam/atendo-backend/internal/pkg/logger"
	"github.com/atendoteam/atendo-backend/internal/services"
)

type primaryPhoneBody struct {
	TenantID string `json:"tenant_id" binding:"required"`
	Phone    string `json:"phone" binding:"required"`
}

type primaryEmailBody struct {
	TenantID string `json:"tenant_id" binding:"required"`
	Email    string `json:"email" binding:"required"`
}

type ContactsHandler struct {
	log      *logger.Logger
	contacts services.ContactResolver
}

func NewContactsHandler(log *logger.Logger, contacts services.ContactResolver) *ContactsHandler {
	return &ContactsHandler{
		log:      log.With("handler", "ContactsHandler"),
		contacts: contacts,
	}
}

// PUT /api/contacts/:id/primary-phone
func (h *ContactsHandler) SetPrimaryPhone(c *gin.Context) {
	contactID, err := uuid.Parse(c.Param("id"))
	if err != nil || contactID == uuid.Nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_contact_id", err)
		return
	}
	var body primaryPhoneBody
	if err := c.ShouldBindJSON(&body); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	tenantID, err := uuid.Parse(body.TenantID)
	if err != nil || tenantID == uuid.Nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_tenant_id", err)
		return
	}

	phone, err := h.contacts.SetPrimaryPhone(c.Request.Context(), nil, tenantID, contactID, body.Phone)
	if err != nil {
		switch {
		case errors.Is(err, apperrors.ErrInvalidArgument):
			response.RespondError(c, http.StatusBadRequest, "invalid_phone", err)
		case errors.Is(err, apperrors.ErrNotFound):
			response.RespondError(c, http.StatusNotFound, "contact_not_found", err)
		case errors.Is(err, apperrors.ErrConflict):
			response.RespondError(c, http.StatusConflict, "phone_taken", err)
		default:
			h.log.Error("SetPrimaryPhone failed", "error", err, "contact_id", contactID)
			response.RespondError(c, http.StatusInternalServerError, "set_primary_phone_failed", err)
		}
		return
	}
	response.RespondOK(c, phone)
}

// PUT /api/contacts/:id/primary-email
func (h *ContactsHandler) SetPrimaryEmail(c *gin.Context) {
	contactID, err := uuid.Parse(c.Param("id"))
	if err != nil || contactID == uuid.Nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_contact_id", err)
		return
	}
	var body primaryEmailBody
	if err := c.ShouldBindJSON(&body); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	tenantID, err := uuid.Parse(body.TenantID)
	if err != nil || tenantID == uuid.Nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_tenant_id", err)
		return
	}

	email, err := h.contacts.SetPrimaryEmail(c.Request.Context(), nil, tenantID, contactID, body.Email)
	if err != nil {
		switch {
		case errors.Is(err, apperrors.ErrInvalidArgument):
			response.RespondError(c, http.StatusBadRequest, "invalid_email", err)
		case errors.Is(err, apperrors.ErrNotFound):
			response.RespondError(c, http.StatusNotFound, "contact_not_found", err)
		default:
			h.log.Error("SetPrimaryEmail failed", "error", err, "contact_id", contactID)
			response.RespondError(c, http.StatusInternalServerError, "set_primary_email_failed", err)
		}
		return
	}
	response.RespondOK(c, email)
}
