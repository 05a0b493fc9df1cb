package engagement

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/atendoteam/atendo-backend/internal/domain"
	"github.com/atendoteam/atendo-backend/internal/pkg/dbutil"
	"github.com/atendoteam/atendo-backend/internal/pkg/logger"
)

type TagRepo interface {
	FindOrCreate(ctx context.Context, tx *gorm.DB, tenantID uuid.UUID, name string) (*types.Tag, error)
	Attach(ctx context.Context, tx *gorm.DB, contactID, tagID uuid.UUID) error
	GetByContactID(ctx context.Context, tx *gorm.DB, contactID uuid.UUID) ([]*types.Tag, error)
}

type tagRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewTagRepo(db *gorm.DB, baseLog *logger.Logger) TagRepo {
	return &tagRepo{
		db:  db,
		log: baseLog.With("repo", "TagRepo"),
	}
}

// FindOrCreate resolves a tag by (tenant_id, name), creating it when absent.
// Losing the create race to a concurrent caller falls back to a re-read.
func (r *tagRepo) FindOrCreate(ctx context.Context, tx *gorm.DB, tenantID uuid.UUID, name string) (*types.Tag, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if tenantID == uuid.Nil || name == "" {
		return nil, nil
	}
	lookup := func() (*types.Tag, error) {
		var tag types.Tag
		err := transaction.WithContext(ctx).
			Where("tenant_id = ? AND name = ?", tenantID, name).
			Limit(1).
			Find(&tag).Error
		if err != nil {
			return nil, err
		}
		if tag.ID == uuid.Nil {
			return nil, nil
		}
		return &tag, nil
	}
	if tag, err := lookup(); err != nil || tag != nil {
		return tag, err
	}
	tag := &types.Tag{ID: uuid.New(), TenantID: tenantID, Name: name}
	createErr := dbutil.RunGuarded(transaction.WithContext(ctx), func(tx *gorm.DB) error {
		return tx.Create(tag).Error
	})
	if createErr != nil {
		if dbutil.IsUniqueViolation(createErr) {
			return lookup()
		}
		return nil, createErr
	}
	return tag, nil
}

func (r *tagRepo) Attach(ctx context.Context, tx *gorm.DB, contactID, tagID uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if contactID == uuid.Nil || tagID == uuid.Nil {
		return nil
	}
	var count int64
	if err := transaction.WithContext(ctx).
		Model(&types.ContactTag{}).
		Where("contact_id = ? AND tag_id = ?", contactID, tagID).
		Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}
	return transaction.WithContext(ctx).
		Create(&types.ContactTag{ID: uuid.New(), ContactID: contactID, TagID: tagID}).Error
}

func (r *tagRepo) GetByContactID(ctx context.Context, tx *gorm.DB, contactID uuid.UUID) ([]*types.Tag, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.Tag
	if contactID == uuid.Nil {
		return out, nil
	}
	err := transaction.WithContext(ctx).
		Model(&types.Tag{}).
		Joins("JOIN contact_tag ON contact_tag.tag_id = tag.id").
		Where("contact_tag.contact_id = ?", contactID).
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}
