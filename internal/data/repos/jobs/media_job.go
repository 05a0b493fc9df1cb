package jobs

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/atendoteam/atendo-backend/internal/domain"
	"github.com/atendoteam/atendo-backend/internal/pkg/logger"
)

type MediaJobRepo interface {
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.InboundMediaJob, error)
	GetByMessageID(ctx context.Context, tx *gorm.DB, messageID uuid.UUID) (*types.InboundMediaJob, error)
	Create(ctx context.Context, tx *gorm.DB, job *types.InboundMediaJob) (*types.InboundMediaJob, error)
	UpdateFields(ctx context.Context, tx *gorm.DB, id uuid.UUID, updates map[string]interface{}) error
	ClaimNext(ctx context.Context, tx *gorm.DB, limit int, now time.Time) ([]*types.InboundMediaJob, error)
	UpdateFieldsIfStatus(ctx context.Context, tx *gorm.DB, id uuid.UUID, requiredStatus string, updates map[string]interface{}) (bool, error)
}

type mediaJobRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewMediaJobRepo(db *gorm.DB, baseLog *logger.Logger) MediaJobRepo {
	return &mediaJobRepo{
		db:  db,
		log: baseLog.With("repo", "MediaJobRepo"),
	}
}

func (r *mediaJobRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.InboundMediaJob, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil {
		return nil, nil
	}
	var job types.InboundMediaJob
	err := transaction.WithContext(ctx).
		Where("id = ?", id).
		Limit(1).
		Find(&job).Error
	if err != nil {
		return nil, err
	}
	if job.ID == uuid.Nil {
		return nil, nil
	}
	return &job, nil
}

func (r *mediaJobRepo) GetByMessageID(ctx context.Context, tx *gorm.DB, messageID uuid.UUID) (*types.InboundMediaJob, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if messageID == uuid.Nil {
		return nil, nil
	}
	var job types.InboundMediaJob
	err := transaction.WithContext(ctx).
		Where("message_id = ?", messageID).
		Limit(1).
		Find(&job).Error
	if err != nil {
		return nil, err
	}
	if job.ID == uuid.Nil {
		return nil, nil
	}
	return &job, nil
}

func (r *mediaJobRepo) Create(ctx context.Context, tx *gorm.DB, job *types.InboundMediaJob) (*types.InboundMediaJob, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if job == nil {
		return nil, nil
	}
	if err := transaction.WithContext(ctx).Create(job).Error; err != nil {
		return nil, err
	}
	return job, nil
}

func (r *mediaJobRepo) UpdateFields(ctx context.Context, tx *gorm.DB, id uuid.UUID, updates map[string]interface{}) error {
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
		Model(&types.InboundMediaJob{}).
		Where("id = ?", id).
		Updates(updates).Error
}

// ClaimNext selects up to limit PENDING jobs whose next_retry_at is null or
// due, oldest first, and atomically flips them to PROCESSING with attempts
// incremented. FOR UPDATE SKIP LOCKED plus the status guard on the update
// is the compare-and-swap that keeps two workers from claiming one job.
func (r *mediaJobRepo) ClaimNext(ctx context.Context, tx *gorm.DB, limit int, now time.Time) ([]*types.InboundMediaJob, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if limit <= 0 {
		return []*types.InboundMediaJob{}, nil
	}
	var claimed []*types.InboundMediaJob
	err := transaction.WithContext(ctx).Transaction(func(txx *gorm.DB) error {
		var candidates []*types.InboundMediaJob
		if err := txx.
			Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"}).
			Where("status = ? AND (next_retry_at IS NULL OR next_retry_at <= ?)", types.MediaJobStatusPending, now).
			Order("created_at ASC").
			Limit(limit).
			Find(&candidates).Error; err != nil {
			return err
		}
		for _, job := range candidates {
			res := txx.Model(&types.InboundMediaJob{}).
				Where("id = ? AND status = ?", job.ID, types.MediaJobStatusPending).
				Updates(map[string]interface{}{
					"status":     types.MediaJobStatusProcessing,
					"attempts":   gorm.Expr("attempts + 1"),
					"updated_at": now,
				})
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				continue
			}
			job.Status = types.MediaJobStatusProcessing
			job.Attempts++
			job.UpdatedAt = now
			claimed = append(claimed, job)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return claimed, nil
}

// UpdateFieldsIfStatus applies updates only while the job still holds
// requiredStatus; terminal and retry transitions out of PROCESSING use this
// so a stale worker cannot clobber a row it no longer owns.
func (r *mediaJobRepo) UpdateFieldsIfStatus(ctx context.Context, tx *gorm.DB, id uuid.UUID, requiredStatus string, updates map[string]interface{}) (bool, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil {
		return false, nil
	}
	if updates == nil {
		updates = map[string]interface{}{}
	}
	if _, ok := updates["updated_at"]; !ok {
		updates["updated_at"] = time.Now()
	}
	res := transaction.WithContext(ctx).
		Model(&types.InboundMediaJob{}).
		Where("id = ? AND status = ?", id, requiredStatus).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
