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

type brokerLeadBody struct {
	Document      string                 `json:"document" binding:"required"`
	FullName      string                 `json:"full_name"`
	Phone         string                 `json:"phone"`
	AgreementID   string                 `json:"agreement_id"`
	Matricula     string                 `json:"matricula"`
	Registrations []string               `json:"registrations"`
	Tags          []string               `json:"tags"`
	Margin        float64                `json:"margin"`
	NetMargin     float64                `json:"net_margin"`
	Score         float64                `json:"score"`
	Raw           map[string]interface{} `json:"raw,omitempty"`
}

type leadBatchBody struct {
	TenantID   string           `json:"tenant_id" binding:"required"`
	CampaignID string           `json:"campaign_id"`
	InstanceID string           `json:"instance_id"`
	Leads      []brokerLeadBody `json:"leads" binding:"required"`
}

type allocationStatusBody struct {
	TenantID string `json:"tenant_id" binding:"required"`
	Status   string `json:"status" binding:"required"`
	Notes    string `json:"notes"`
}

type LeadsHandler struct {
	log       *logger.Logger
	allocator services.LeadAllocator
	reporter  services.CampaignReporter
}

func NewLeadsHandler(log *logger.Logger, allocator services.LeadAllocator, reporter services.CampaignReporter) *LeadsHandler {
	return &LeadsHandler{
		log:       log.With("handler", "LeadsHandler"),
		allocator: allocator,
		reporter:  reporter,
	}
}

// POST /api/leads/batch
func (h *LeadsHandler) AllocateBatch(c *gin.Context) {
	var body leadBatchBody
	if err := c.ShouldBindJSON(&body); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	tenantID, err := uuid.Parse(body.TenantID)
	if err != nil || tenantID == uuid.Nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_tenant_id", err)
		return
	}
	var campaignID *uuid.UUID
	if body.CampaignID != "" {
		id, err := uuid.Parse(body.CampaignID)
		if err != nil || id == uuid.Nil {
			response.RespondError(c, http.StatusBadRequest, "invalid_campaign_id", err)
			return
		}
		campaignID = &id
	}

	inputs := make([]services.BrokerLeadInput, 0, len(body.Leads))
	for _, lead := range body.Leads {
		inputs = append(inputs, services.BrokerLeadInput{
			Document:      lead.Document,
			FullName:      lead.FullName,
			Phone:         lead.Phone,
			AgreementID:   lead.AgreementID,
			Matricula:     lead.Matricula,
			Registrations: lead.Registrations,
			Tags:          lead.Tags,
			Margin:        lead.Margin,
			NetMargin:     lead.NetMargin,
			Score:         lead.Score,
			Raw:           lead.Raw,
		})
	}

	created, summary, err := h.allocator.AllocateBatch(c.Request.Context(), tenantID, campaignID, body.InstanceID, inputs)
	if err != nil {
		switch {
		case errors.Is(err, apperrors.ErrInvalidArgument):
			response.RespondError(c, http.StatusBadRequest, "invalid_batch", err)
		case errors.Is(err, apperrors.ErrNotFound):
			response.RespondError(c, http.StatusNotFound, "campaign_not_found", err)
		default:
			h.log.Error("AllocateBatch failed", "error", err, "tenant_id", tenantID)
			response.RespondError(c, http.StatusInternalServerError, "allocate_failed", err)
		}
		return
	}
	response.RespondOK(c, gin.H{
		"allocations": created,
		"summary":     summary,
	})
}

// PATCH /api/allocations/:id
func (h *LeadsHandler) UpdateAllocationStatus(c *gin.Context) {
	allocationID, err := uuid.Parse(c.Param("id"))
	if err != nil || allocationID == uuid.Nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_allocation_id", err)
		return
	}
	var body allocationStatusBody
	if err := c.ShouldBindJSON(&body); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	tenantID, err := uuid.Parse(body.TenantID)
	if err != nil || tenantID == uuid.Nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_tenant_id", err)
		return
	}

	err = h.allocator.UpdateAllocationStatus(c.Request.Context(), tenantID, allocationID, body.Status, body.Notes)
	if err != nil {
		switch {
		case errors.Is(err, apperrors.ErrInvalidArgument):
			response.RespondError(c, http.StatusBadRequest, "invalid_status", err)
		case errors.Is(err, apperrors.ErrNotFound):
			response.RespondError(c, http.StatusNotFound, "allocation_not_found", err)
		default:
			h.log.Error("UpdateAllocationStatus failed", "error", err, "allocation_id", allocationID)
			response.RespondError(c, http.StatusInternalServerError, "update_status_failed", err)
		}
		return
	}
	response.RespondOK(c, gin.H{"allocation_id": allocationID, "status": body.Status})
}

// GET /api/campaigns/:id/metrics?tenant_id=...
func (h *LeadsHandler) CampaignMetrics(c *gin.Context) {
	campaignID, err := uuid.Parse(c.Param("id"))
	if err != nil || campaignID == uuid.Nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_campaign_id", err)
		return
	}
	tenantID, err := uuid.Parse(c.Query("tenant_id"))
	if err != nil || tenantID == uuid.Nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_tenant_id", err)
		return
	}

	metrics, err := h.reporter.Metrics(c.Request.Context(), tenantID, campaignID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			response.RespondError(c, http.StatusNotFound, "campaign_not_found", err)
			return
		}
		h.log.Error("CampaignMetrics failed", "error", err, "campaign_id", campaignID)
		response.RespondError(c, http.StatusInternalServerError, "metrics_failed", err)
		return
	}
	response.RespondOK(c, metrics)
}
