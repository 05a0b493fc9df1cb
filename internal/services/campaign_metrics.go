package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/atendoteam/atendo-backend/internal/data/repos"
	types "github.com/atendoteam/atendo-backend/internal/domain"
	apperrors "github.com/atendoteam/atendo-backend/internal/pkg/errors"
	"github.com/atendoteam/atendo-backend/internal/pkg/logger"
)

// CampaignMetrics is the aggregate view over one campaign's allocations.
// AverageResponseSeconds is nil when no allocation has progressed past
// "allocated"; absence of data and an average of zero are different answers.
type CampaignMetrics struct {
	Total                  int64            `json:"total"`
	Allocated              int64            `json:"allocated"`
	Contacted              int64            `json:"contacted"`
	Won                    int64            `json:"won"`
	Lost                   int64            `json:"lost"`
	StatusCounts           map[string]int64 `json:"status_counts"`
	AverageResponseSeconds *float64         `json:"average_response_seconds,omitempty"`
}

type CampaignReporter interface {
	Metrics(ctx context.Context, tenantID, campaignID uuid.UUID) (*CampaignMetrics, error)
}

type campaignReporter struct {
	db          *gorm.DB
	log         *logger.Logger
	campaigns   repos.CampaignRepo
	allocations repos.AllocationRepo
}

func NewCampaignReporter(db *gorm.DB, baseLog *logger.Logger, campaigns repos.CampaignRepo, allocations repos.AllocationRepo) CampaignReporter {
	return &campaignReporter{
		db:          db,
		log:         baseLog.With("service", "CampaignReporter"),
		campaigns:   campaigns,
		allocations: allocations,
	}
}

func (s *campaignReporter) Metrics(ctx context.Context, tenantID, campaignID uuid.UUID) (*CampaignMetrics, error) {
	campaign, err := s.campaigns.GetByID(ctx, nil, tenantID, campaignID)
	if err != nil {
		return nil, fmt.Errorf("campaign metrics: load campaign: %w", err)
	}
	if campaign == nil {
		return nil, fmt.Errorf("campaign metrics: campaign %s: %w", campaignID, apperrors.ErrNotFound)
	}
	allocations, err := s.allocations.ListByCampaign(ctx, nil, tenantID, campaignID)
	if err != nil {
		return nil, fmt.Errorf("campaign metrics: list allocations: %w", err)
	}
	return computeCampaignMetrics(allocations), nil
}

// computeCampaignMetrics folds allocation rows into counts plus the average
// response time. Response time is updated_at minus received_at for rows that
// left "allocated"; negative deltas from clock drift are excluded from the
// average rather than pulling it down.
func computeCampaignMetrics(allocations []*types.LeadAllocation) *CampaignMetrics {
	m := &CampaignMetrics{
		StatusCounts: map[string]int64{},
	}
	var (
		responded int64
		totalSecs float64
	)
	for _, allocation := range allocations {
		m.Total++
		m.StatusCounts[allocation.Status]++
		switch allocation.Status {
		case types.AllocationStatusAllocated:
			m.Allocated++
			continue
		case types.AllocationStatusContacted:
			m.Contacted++
		case types.AllocationStatusWon:
			m.Won++
		case types.AllocationStatusLost:
			m.Lost++
		}
		delta := allocation.UpdatedAt.Sub(allocation.ReceivedAt).Seconds()
		if delta < 0 {
			continue
		}
		responded++
		totalSecs += delta
	}
	if responded > 0 {
		avg := totalSecs / float64(responded)
		m.AverageResponseSeconds = &avg
	}
	return m
}
