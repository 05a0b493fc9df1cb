package engagement

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/atendoteam/atendo-backend/internal/domain"
	"github.com/atendoteam/atendo-backend/internal/pkg/dbutil"
	"github.com/atendoteam/atendo-backend/internal/pkg/logger"
)

type QueueRepo interface {
	FindOrCreate(ctx context.Context, tx *gorm.DB, tenantID uuid.UUID, name, channel string) (*types.Queue, error)
	GetByID(ctx context.Context, tx *gorm.DB, tenantID, id uuid.UUID) (*types.Queue, error)
}

type queueRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewQueueRepo(db *gorm.DB, baseLog *logger.Logger) QueueRepo {
	return &queueRepo{
		db:  db,
		log: baseLog.With("repo", "QueueRepo"),
	}
}

func (r *queueRepo) FindOrCreate(ctx context.Context, tx *gorm.DB, tenantID uuid.UUID, name, channel string) (*types.Queue, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if tenantID == uuid.Nil || name == "" {
		return nil, nil
	}
	lookup := func() (*types.Queue, error) {
		var queue types.Queue
		err := transaction.WithContext(ctx).
			Where("tenant_id = ? AND name = ?", tenantID, name).
			Limit(1).
			Find(&queue).Error
		if err != nil {
			return nil, err
		}
		if queue.ID == uuid.Nil {
			return nil, nil
		}
		return &queue, nil
	}
	if queue, err := lookup(); err != nil || queue != nil {
		return queue, err
	}
	queue := &types.Queue{ID: uuid.New(), TenantID: tenantID, Name: name, Channel: channel}
	createErr := dbutil.RunGuarded(transaction.WithContext(ctx), func(tx *gorm.DB) error {
		return tx.Create(queue).Error
	})
	if createErr != nil {
		if dbutil.IsUniqueViolation(createErr) {
			return lookup()
		}
		return nil, createErr
	}
	return queue, nil
}

func (r *queueRepo) GetByID(ctx context.Context, tx *gorm.DB, tenantID, id uuid.UUID) (*types.Queue, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if tenantID == uuid.Nil || id == uuid.Nil {
		return nil, nil
	}
	var queue types.Queue
	err := transaction.WithContext(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		Limit(1).
		Find(&queue).Error
	if err != nil {
		return nil, err
	}
	if queue.ID == uuid.Nil {
		return nil, nil
	}
	return &queue, nil
}
