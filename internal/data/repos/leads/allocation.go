package leads

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/atendoteam/atendo-backend/internal/domain"
	"github.com/atendoteam/atendo-backend/internal/pkg/dbutil"
	"github.com/atendoteam/atendo-backend/internal/pkg/logger"
)

type AllocationRepo interface {
	CreateIfAbsent(ctx context.Context, tx *gorm.DB, allocation *types.LeadAllocation) (*types.LeadAllocation, bool, error)
	GetByLeadAndCampaign(ctx context.Context, tx *gorm.DB, tenantID, leadID, campaignID uuid.UUID) (*types.LeadAllocation, error)
	ExistsRecentForDocument(ctx context.Context, tx *gorm.DB, tenantID, campaignID uuid.UUID, document string, since time.Time) (bool, error)
	ListByCampaign(ctx context.Context, tx *gorm.DB, tenantID, campaignID uuid.UUID) ([]*types.LeadAllocation, error)
	CountByStatus(ctx context.Context, tx *gorm.DB, tenantID, campaignID uuid.UUID) (map[string]int64, error)
	UpdateStatus(ctx context.Context, tx *gorm.DB, tenantID, id uuid.UUID, status, notes string) (bool, error)
}

type allocationRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewAllocationRepo(db *gorm.DB, baseLog *logger.Logger) AllocationRepo {
	return &allocationRepo{
		db:  db,
		log: baseLog.With("repo", "AllocationRepo"),
	}
}

func (r *allocationRepo) GetByLeadAndCampaign(ctx context.Context, tx *gorm.DB, tenantID, leadID, campaignID uuid.UUID) (*types.LeadAllocation, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if tenantID == uuid.Nil || leadID == uuid.Nil || campaignID == uuid.Nil {
		return nil, nil
	}
	var allocation types.LeadAllocation
	err := transaction.WithContext(ctx).
		Where("tenant_id = ? AND lead_id = ? AND campaign_id = ?", tenantID, leadID, campaignID).
		Limit(1).
		Find(&allocation).Error
	if err != nil {
		return nil, err
	}
	if allocation.ID == uuid.Nil {
		return nil, nil
	}
	return &allocation, nil
}

// CreateIfAbsent inserts the allocation unless one already exists for
// (tenant_id, lead_id, campaign_id). The unique index is the arbiter: a
// lost race resolves to the existing row with created=false.
func (r *allocationRepo) CreateIfAbsent(ctx context.Context, tx *gorm.DB, allocation *types.LeadAllocation) (*types.LeadAllocation, bool, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if allocation == nil || allocation.TenantID == uuid.Nil || allocation.LeadID == uuid.Nil || allocation.CampaignID == uuid.Nil {
		return nil, false, nil
	}
	existing, err := r.GetByLeadAndCampaign(ctx, tx, allocation.TenantID, allocation.LeadID, allocation.CampaignID)
	if err != nil {
		return nil, false, err
	}
	if existing != nil {
		return existing, false, nil
	}
	createErr := dbutil.RunGuarded(transaction.WithContext(ctx), func(tx *gorm.DB) error {
		return tx.Create(allocation).Error
	})
	if createErr != nil {
		if dbutil.IsUniqueViolation(createErr) {
			existing, lookupErr := r.GetByLeadAndCampaign(ctx, tx, allocation.TenantID, allocation.LeadID, allocation.CampaignID)
			if lookupErr != nil {
				return nil, false, lookupErr
			}
			return existing, false, nil
		}
		return nil, false, createErr
	}
	return allocation, true, nil
}

// ExistsRecentForDocument is the 24h business dedup: any allocation in the
// campaign whose lead carries this document and whose received_at is at or
// after the cutoff counts as a duplicate delivery.
func (r *allocationRepo) ExistsRecentForDocument(ctx context.Context, tx *gorm.DB, tenantID, campaignID uuid.UUID, document string, since time.Time) (bool, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if tenantID == uuid.Nil || campaignID == uuid.Nil || document == "" {
		return false, nil
	}
	var count int64
	err := transaction.WithContext(ctx).
		Model(&types.LeadAllocation{}).
		Joins("JOIN broker_lead ON broker_lead.id = lead_allocation.lead_id").
		Where("lead_allocation.tenant_id = ? AND lead_allocation.campaign_id = ? AND broker_lead.document = ? AND lead_allocation.received_at >= ?",
			tenantID, campaignID, document, since,
		).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *allocationRepo) ListByCampaign(ctx context.Context, tx *gorm.DB, tenantID, campaignID uuid.UUID) ([]*types.LeadAllocation, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.LeadAllocation
	if tenantID == uuid.Nil || campaignID == uuid.Nil {
		return out, nil
	}
	if err := transaction.WithContext(ctx).
		Where("tenant_id = ? AND campaign_id = ?", tenantID, campaignID).
		Order("received_at ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// CountByStatus groups the campaign's allocations by lifecycle status.
func (r *allocationRepo) CountByStatus(ctx context.Context, tx *gorm.DB, tenantID, campaignID uuid.UUID) (map[string]int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	out := map[string]int64{}
	if tenantID == uuid.Nil || campaignID == uuid.Nil {
		return out, nil
	}
	var rows []struct {
		Status string
		Total  int64
	}
	if err := transaction.WithContext(ctx).
		Model(&types.LeadAllocation{}).
		Select("status, COUNT(*) AS total").
		Where("tenant_id = ? AND campaign_id = ?", tenantID, campaignID).
		Group("status").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	for _, row := range rows {
		out[row.Status] = row.Total
	}
	return out, nil
}

func (r *allocationRepo) UpdateStatus(ctx context.Context, tx *gorm.DB, tenantID, id uuid.UUID, status, notes string) (bool, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if tenantID == uuid.Nil || id == uuid.Nil {
		return false, nil
	}
	updates := map[string]interface{}{
		"status":     status,
		"updated_at": time.Now(),
	}
	if notes != "" {
		updates["notes"] = notes
	}
	res := transaction.WithContext(ctx).
		Model(&types.LeadAllocation{}).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
