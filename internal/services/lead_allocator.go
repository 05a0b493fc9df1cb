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
	apperrors "github.com/atendoteam/atendo-backend/internal/pkg/errors"
	"github.com/atendoteam/atendo-backend/internal/pkg/jsonmap"
	"github.com/atendoteam/atendo-backend/internal/pkg/logger"
	"github.com/atendoteam/atendo-backend/internal/realtime"
	"github.com/atendoteam/atendo-backend/internal/realtime/bus"
)

// dedupWindow is how long a repeat delivery of the same document into the
// same campaign counts as a duplicate rather than a fresh allocation.
const dedupWindow = 24 * time.Hour

// BrokerLeadInput is one lead as delivered by an external broker batch,
// before normalization.
type BrokerLeadInput struct {
	Document      string
	FullName      string
	Phone         string
	AgreementID   string
	Matricula     string
	Registrations []string
	Tags          []string
	Margin        float64
	NetMargin     float64
	Score         float64
	Raw           map[string]interface{}
}

// AllocationSummary reports what one batch did. Statuses is the campaign's
// allocation count per lifecycle status after the batch landed.
type AllocationSummary struct {
	Created    int              `json:"created"`
	Duplicates int              `json:"duplicates"`
	Skipped    int              `json:"skipped"`
	Statuses   map[string]int64 `json:"statuses,omitempty"`
}

type LeadAllocator interface {
	AllocateBatch(ctx context.Context, tenantID uuid.UUID, campaignID *uuid.UUID, instanceID string, inputs []BrokerLeadInput) ([]*types.LeadAllocation, *AllocationSummary, error)
	UpdateAllocationStatus(ctx context.Context, tenantID, allocationID uuid.UUID, status, notes string) error
}

type leadAllocator struct {
	db          *gorm.DB
	log         *logger.Logger
	campaigns   repos.CampaignRepo
	leads       repos.BrokerLeadRepo
	allocations repos.AllocationRepo
	notifier    bus.Notifier
	now         func() time.Time
}

func NewLeadAllocator(
	db *gorm.DB,
	baseLog *logger.Logger,
	campaigns repos.CampaignRepo,
	leads repos.BrokerLeadRepo,
	allocations repos.AllocationRepo,
	notifier bus.Notifier,
) LeadAllocator {
	if notifier == nil {
		notifier = bus.NoopNotifier{}
	}
	return &leadAllocator{
		db:          db,
		log:         baseLog.With("service", "LeadAllocator"),
		campaigns:   campaigns,
		leads:       leads,
		allocations: allocations,
		notifier:    notifier,
		now:         time.Now,
	}
}

// AllocateBatch ingests one broker delivery in a single transaction. Each
// lead is normalized, upserted by (tenant, document) with its denormalized
// fields refreshed, and allocated to the campaign unless the same document
// was already allocated there inside the dedup window. Unusable leads (no
// document after normalization) are counted and skipped, never fatal.
func (s *leadAllocator) AllocateBatch(ctx context.Context, tenantID uuid.UUID, campaignID *uuid.UUID, instanceID string, inputs []BrokerLeadInput) ([]*types.LeadAllocation, *AllocationSummary, error) {
	if tenantID == uuid.Nil {
		return nil, nil, fmt.Errorf("allocate batch: %w: tenant id required", apperrors.ErrInvalidArgument)
	}
	if campaignID == nil && instanceID == "" {
		return nil, nil, fmt.Errorf("allocate batch: %w: campaign id or instance id required", apperrors.ErrInvalidArgument)
	}

	now := s.now()
	summary := &AllocationSummary{}
	var created []*types.LeadAllocation

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		campaign, err := s.resolveCampaign(ctx, tx, tenantID, campaignID, instanceID)
		if err != nil {
			return err
		}
		for _, in := range inputs {
			allocation, outcome, err := s.allocateOne(ctx, tx, tenantID, campaign, in, now)
			if err != nil {
				return err
			}
			switch outcome {
			case outcomeCreated:
				summary.Created++
				created = append(created, allocation)
			case outcomeDuplicate:
				summary.Duplicates++
			case outcomeSkipped:
				summary.Skipped++
			}
		}
		statuses, err := s.allocations.CountByStatus(ctx, tx, tenantID, campaign.ID)
		if err != nil {
			return fmt.Errorf("allocate batch: count statuses: %w", err)
		}
		summary.Statuses = statuses
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	s.log.Info("Broker batch allocated",
		"tenant_id", tenantID, "instance_id", instanceID,
		"created", summary.Created, "duplicates", summary.Duplicates, "skipped", summary.Skipped,
	)
	for _, allocation := range created {
		if pubErr := s.notifier.Publish(ctx, realtime.Event{
			Type:     realtime.EventLeadAllocated,
			TenantID: tenantID,
			Payload: map[string]interface{}{
				"allocation_id": allocation.ID.String(),
				"lead_id":       allocation.LeadID.String(),
				"campaign_id":   allocation.CampaignID.String(),
			},
			At: now,
		}); pubErr != nil {
			s.log.Warn("Lead allocated event publish failed", "allocation_id", allocation.ID, "error", pubErr)
		}
	}
	return created, summary, nil
}

type allocationOutcome int

const (
	outcomeCreated allocationOutcome = iota
	outcomeDuplicate
	outcomeSkipped
)

func (s *leadAllocator) resolveCampaign(ctx context.Context, tx *gorm.DB, tenantID uuid.UUID, campaignID *uuid.UUID, instanceID string) (*types.Campaign, error) {
	if campaignID != nil {
		campaign, err := s.campaigns.GetByID(ctx, tx, tenantID, *campaignID)
		if err != nil {
			return nil, fmt.Errorf("allocate batch: load campaign: %w", err)
		}
		if campaign == nil {
			return nil, fmt.Errorf("allocate batch: campaign %s: %w", campaignID, apperrors.ErrNotFound)
		}
		return campaign, nil
	}
	campaign, err := s.campaigns.FindOrCreateByName(ctx, tx, tenantID, "fallback:"+instanceID, instanceID, types.CampaignStatusActive)
	if err != nil {
		return nil, fmt.Errorf("allocate batch: provision fallback campaign: %w", err)
	}
	return campaign, nil
}

func (s *leadAllocator) allocateOne(ctx context.Context, tx *gorm.DB, tenantID uuid.UUID, campaign *types.Campaign, in BrokerLeadInput, now time.Time) (*types.LeadAllocation, allocationOutcome, error) {
	document := normalization.Document(in.Document)
	if document == "" {
		s.log.Debug("Skipping lead without usable document", "tenant_id", tenantID, "full_name", in.FullName)
		return nil, outcomeSkipped, nil
	}
	phone := normalization.Phone(in.Phone)

	recent, err := s.allocations.ExistsRecentForDocument(ctx, tx, tenantID, campaign.ID, document, now.Add(-dedupWindow))
	if err != nil {
		return nil, 0, fmt.Errorf("allocate batch: dedup check: %w", err)
	}
	if recent {
		return nil, outcomeDuplicate, nil
	}

	lead := &types.BrokerLead{
		ID:            uuid.New(),
		TenantID:      tenantID,
		Document:      document,
		FullName:      strings.TrimSpace(in.FullName),
		AgreementID:   in.AgreementID,
		Matricula:     in.Matricula,
		Phone:         phone,
		Registrations: jsonmap.EncodeList(in.Registrations),
		Tags:          jsonmap.EncodeList(in.Tags),
		Margin:        in.Margin,
		NetMargin:     in.NetMargin,
		Score:         in.Score,
		RawPayload:    jsonmap.Encode(in.Raw),
	}
	lead, leadCreated, err := s.leads.CreateOrGet(ctx, tx, lead)
	if err != nil {
		return nil, 0, fmt.Errorf("allocate batch: upsert lead: %w", err)
	}
	if !leadCreated {
		// Every delivery refreshes the denormalized lead fields.
		if err := s.leads.UpdateFields(ctx, tx, lead.ID, map[string]interface{}{
			"full_name":     strings.TrimSpace(in.FullName),
			"agreement_id":  in.AgreementID,
			"matricula":     in.Matricula,
			"phone":         phone,
			"registrations": jsonmap.EncodeList(in.Registrations),
			"tags":          jsonmap.EncodeList(in.Tags),
			"margin":        in.Margin,
			"net_margin":    in.NetMargin,
			"score":         in.Score,
			"raw_payload":   jsonmap.Encode(in.Raw),
		}); err != nil {
			return nil, 0, fmt.Errorf("allocate batch: refresh lead: %w", err)
		}
	}

	allocation := &types.LeadAllocation{
		ID:         uuid.New(),
		TenantID:   tenantID,
		LeadID:     lead.ID,
		CampaignID: campaign.ID,
		Status:     types.AllocationStatusAllocated,
		Payload:    jsonmap.Encode(in.Raw),
		ReceivedAt: now,
	}
	allocation, allocCreated, err := s.allocations.CreateIfAbsent(ctx, tx, allocation)
	if err != nil {
		return nil, 0, fmt.Errorf("allocate batch: create allocation: %w", err)
	}
	if !allocCreated {
		return allocation, outcomeDuplicate, nil
	}
	return allocation, outcomeCreated, nil
}

// UpdateAllocationStatus moves one allocation through its lifecycle.
func (s *leadAllocator) UpdateAllocationStatus(ctx context.Context, tenantID, allocationID uuid.UUID, status, notes string) error {
	switch status {
	case types.AllocationStatusAllocated, types.AllocationStatusContacted, types.AllocationStatusWon, types.AllocationStatusLost:
	default:
		return fmt.Errorf("update allocation status: %w: unknown status %q", apperrors.ErrInvalidArgument, status)
	}
	ok, err := s.allocations.UpdateStatus(ctx, nil, tenantID, allocationID, status, notes)
	if err != nil {
		return fmt.Errorf("update allocation status: %w", err)
	}
	if !ok {
		return fmt.Errorf("update allocation status: allocation %s: %w", allocationID, apperrors.ErrNotFound)
	}
	return nil
}
