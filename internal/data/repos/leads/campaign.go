package leads

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/atendoteam/atendo-backend/internal/domain"
	"github.com/atendoteam/atendo-backend/internal/pkg/dbutil"
	"github.com/atendoteam/atendo-backend/internal/pkg/logger"
)

type CampaignRepo interface {
	Create(ctx context.Context, tx *gorm.DB, campaigns []*types.Campaign) ([]*types.Campaign, error)
	GetByID(ctx context.Context, tx *gorm.DB, tenantID, id uuid.UUID) (*types.Campaign, error)
	FindOrCreateByName(ctx context.Context, tx *gorm.DB, tenantID uuid.UUID, name, instanceID, status string) (*types.Campaign, error)
}

type campaignRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewCampaignRepo(db *gorm.DB, baseLog *logger.Logger) CampaignRepo {
	return &campaignRepo{
		db:  db,
		log: baseLog.With("repo", "CampaignRepo"),
	}
}

func (r *campaignRepo) Create(ctx context.Context, tx *gorm.DB, campaigns []*types.Campaign) ([]*types.Campaign, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if len(campaigns) == 0 {
		return []*types.Campaign{}, nil
	}
	if err := transaction.WithContext(ctx).Create(&campaigns).Error; err != nil {
		return nil, err
	}
	return campaigns, nil
}

func (r *campaignRepo) GetByID(ctx context.Context, tx *gorm.DB, tenantID, id uuid.UUID) (*types.Campaign, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if tenantID == uuid.Nil || id == uuid.Nil {
		return nil, nil
	}
	var campaign types.Campaign
	err := transaction.WithContext(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		Limit(1).
		Find(&campaign).Error
	if err != nil {
		return nil, err
	}
	if campaign.ID == uuid.Nil {
		return nil, nil
	}
	return &campaign, nil
}

// FindOrCreateByName makes fallback-campaign provisioning idempotent per
// (tenant_id, name). A lost create race re-reads the winner's row.
func (r *campaignRepo) FindOrCreateByName(ctx context.Context, tx *gorm.DB, tenantID uuid.UUID, name, instanceID, status string) (*types.Campaign, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if tenantID == uuid.Nil || name == "" {
		return nil, nil
	}
	lookup := func() (*types.Campaign, error) {
		var campaign types.Campaign
		err := transaction.WithContext(ctx).
			Where("tenant_id = ? AND name = ?", tenantID, name).
			Limit(1).
			Find(&campaign).Error
		if err != nil {
			return nil, err
		}
		if campaign.ID == uuid.Nil {
			return nil, nil
		}
		return &campaign, nil
	}
	if campaign, err := lookup(); err != nil || campaign != nil {
		return campaign, err
	}
	campaign := &types.Campaign{
		ID:         uuid.New(),
		TenantID:   tenantID,
		Name:       name,
		InstanceID: instanceID,
		Status:     status,
	}
	createErr := dbutil.RunGuarded(transaction.WithContext(ctx), func(tx *gorm.DB) error {
		return tx.Create(campaign).Error
	})
	if createErr != nil {
		if dbutil.IsUniqueViolation(createErr) {
			return lookup()
		}
		return nil, createErr
	}
	return campaign, nil
}
