package engagement

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/atendoteam/atendo-backend/internal/domain"
	"github.com/atendoteam/atendo-backend/internal/pkg/logger"
)

type MessageRepo interface {
	Create(ctx context.Context, tx *gorm.DB, messages []*types.Message) ([]*types.Message, error)
	GetByID(ctx context.Context, tx *gorm.DB, tenantID, id uuid.UUID) (*types.Message, error)
	GetByExternalID(ctx context.Context, tx *gorm.DB, tenantID uuid.UUID, externalID string) (*types.Message, error)
	ListByTicket(ctx context.Context, tx *gorm.DB, tenantID, ticketID uuid.UUID, limit int) ([]*types.Message, error)
	CountByTicket(ctx context.Context, tx *gorm.DB, tenantID, ticketID uuid.UUID) (int64, error)
	UpdateFields(ctx context.Context, tx *gorm.DB, id uuid.UUID, updates map[string]interface{}) error
}

type messageRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewMessageRepo(db *gorm.DB, baseLog *logger.Logger) MessageRepo {
	return &messageRepo{
		db:  db,
		log: baseLog.With("repo", "MessageRepo"),
	}
}

func (r *messageRepo) Create(ctx context.Context, tx *gorm.DB, messages []*types.Message) ([]*types.Message, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if len(messages) == 0 {
		return []*types.Message{}, nil
	}
	if err := transaction.WithContext(ctx).Create(&messages).Error; err != nil {
		return nil, err
	}
	return messages, nil
}

func (r *messageRepo) GetByID(ctx context.Context, tx *gorm.DB, tenantID, id uuid.UUID) (*types.Message, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if tenantID == uuid.Nil || id == uuid.Nil {
		return nil, nil
	}
	var msg types.Message
	err := transaction.WithContext(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		Limit(1).
		Find(&msg).Error
	if err != nil {
		return nil, err
	}
	if msg.ID == uuid.Nil {
		return nil, nil
	}
	return &msg, nil
}

// GetByExternalID is the redelivery dedup lookup. An empty externalID never
// matches: messages without a provider id are not deduplicable.
func (r *messageRepo) GetByExternalID(ctx context.Context, tx *gorm.DB, tenantID uuid.UUID, externalID string) (*types.Message, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if tenantID == uuid.Nil || externalID == "" {
		return nil, nil
	}
	var msg types.Message
	err := transaction.WithContext(ctx).
		Where("tenant_id = ? AND external_id = ?", tenantID, externalID).
		Limit(1).
		Find(&msg).Error
	if err != nil {
		return nil, err
	}
	if msg.ID == uuid.Nil {
		return nil, nil
	}
	return &msg, nil
}

func (r *messageRepo) ListByTicket(ctx context.Context, tx *gorm.DB, tenantID, ticketID uuid.UUID, limit int) ([]*types.Message, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.Message
	if tenantID == uuid.Nil || ticketID == uuid.Nil {
		return out, nil
	}
	q := transaction.WithContext(ctx).
		Where("tenant_id = ? AND ticket_id = ?", tenantID, ticketID).
		Order("created_at ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *messageRepo) CountByTicket(ctx context.Context, tx *gorm.DB, tenantID, ticketID uuid.UUID) (int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if tenantID == uuid.Nil || ticketID == uuid.Nil {
		return 0, nil
	}
	var count int64
	err := transaction.WithContext(ctx).
		Model(&types.Message{}).
		Where("tenant_id = ? AND ticket_id = ?", tenantID, ticketID).
		Count(&count).Error
	return count, err
}

func (r *messageRepo) UpdateFields(ctx context.Context, tx *gorm.DB, id uuid.UUID, updates map[string]interface{}) error {
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
		Model(&types.Message{}).
		Where("id = ?", id).
		Updates(updates).Error
}
