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

type BrokerLeadRepo interface {
	GetByDocument(ctx context.Context, tx *gorm.DB, tenantID uuid.UUID, document string) (*types.BrokerLead, error)
	CreateOrGet(ctx context.Context, tx *gorm.DB, lead *types.BrokerLead) (*types.BrokerLead, bool, error)
	UpdateFields(ctx context.Context, tx *gorm.DB, id uuid.UUID, updates map[string]interface{}) error
}

type brokerLeadRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewBrokerLeadRepo(db *gorm.DB, baseLog *logger.Logger) BrokerLeadRepo {
	return &brokerLeadRepo{
		db:  db,
		log: baseLog.With("repo", "BrokerLeadRepo"),
	}
}

func (r *brokerLeadRepo) GetByDocument(ctx context.Context, tx *gorm.DB, tenantID uuid.UUID, document string) (*types.BrokerLead, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if tenantID == uuid.Nil || document == "" {
		return nil, nil
	}
	var lead types.BrokerLead
	err := transaction.WithContext(ctx).
		Where("tenant_id = ? AND document = ?", tenantID, document).
		Limit(1).
		Find(&lead).Error
	if err != nil {
		return nil, err
	}
	if lead.ID == uuid.Nil {
		return nil, nil
	}
	return &lead, nil
}

// CreateOrGet inserts the lead, falling back to the existing row keyed by
// (tenant_id, document) when a concurrent delivery won the create race.
// The bool reports whether this call created the row.
func (r *brokerLeadRepo) CreateOrGet(ctx context.Context, tx *gorm.DB, lead *types.BrokerLead) (*types.BrokerLead, bool, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if lead == nil || lead.TenantID == uuid.Nil || lead.Document == "" {
		return nil, false, nil
	}
	createErr := dbutil.RunGuarded(transaction.WithContext(ctx), func(tx *gorm.DB) error {
		return tx.Create(lead).Error
	})
	if createErr != nil {
		if dbutil.IsUniqueViolation(createErr) {
			existing, lookupErr := r.GetByDocument(ctx, tx, lead.TenantID, lead.Document)
			if lookupErr != nil {
				return nil, false, lookupErr
			}
			return existing, false, nil
		}
		return nil, false, createErr
	}
	return lead, true, nil
}

func (r *brokerLeadRepo) UpdateFields(ctx context.Context, tx *gorm.DB, id uuid.UUID, updates map[string]interface{}) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil {
		return nil
	}
	if updates == nil {
		updates = map[string]interface{}{}
	}
	if _, ok := updates["updated_at"]; !ok {
		updates["updated_at"] = time.Now()
	}
	return transaction.WithContext(ctx).
		Model(&types.BrokerLead{}).
		Where("id = ?", id).
		Updates(updates).Error
}
