package engagement

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/atendoteam/atendo-backend/internal/domain"
	"github.com/atendoteam/atendo-backend/internal/pkg/logger"
)

type ContactPhoneRepo interface {
	Create(ctx context.Context, tx *gorm.DB, phones []*types.ContactPhone) ([]*types.ContactPhone, error)
	GetByContactID(ctx context.Context, tx *gorm.DB, contactID uuid.UUID) ([]*types.ContactPhone, error)
	ClearPrimary(ctx context.Context, tx *gorm.DB, contactID uuid.UUID) error
	MarkPrimary(ctx context.Context, tx *gorm.DB, id uuid.UUID) error
}

type contactPhoneRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewContactPhoneRepo(db *gorm.DB, baseLog *logger.Logger) ContactPhoneRepo {
	return &contactPhoneRepo{
		db:  db,
		log: baseLog.With("repo", "ContactPhoneRepo"),
	}
}

func (r *contactPhoneRepo) Create(ctx context.Context, tx *gorm.DB, phones []*types.ContactPhone) ([]*types.ContactPhone, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if len(phones) == 0 {
		return []*types.ContactPhone{}, nil
	}
	if err := transaction.WithContext(ctx).Create(&phones).Error; err != nil {
		return nil, err
	}
	return phones, nil
}

func (r *contactPhoneRepo) GetByContactID(ctx context.Context, tx *gorm.DB, contactID uuid.UUID) ([]*types.ContactPhone, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.ContactPhone
	if contactID == uuid.Nil {
		return out, nil
	}
	if err := transaction.WithContext(ctx).
		Where("contact_id = ?", contactID).
		Order("created_at ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// ClearPrimary demotes every phone of the contact so a single new primary
// can be promoted. Runs inside the resolver's transaction.
func (r *contactPhoneRepo) ClearPrimary(ctx context.Context, tx *gorm.DB, contactID uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if contactID == uuid.Nil {
		return nil
	}
	return transaction.WithContext(ctx).
		Model(&types.ContactPhone{}).
		Where("contact_id = ? AND is_primary = true", contactID).
		Update("is_primary", false).Error
}

func (r *contactPhoneRepo) MarkPrimary(ctx context.Context, tx *gorm.DB, id uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil {
		return nil
	}
	return transaction.WithContext(ctx).
		Model(&types.ContactPhone{}).
		Where("id = ?", id).
		Update("is_primary", true).Error
}

type ContactEmailRepo interface {
	Create(ctx context.Context, tx *gorm.DB, emails []*types.ContactEmail) ([]*types.ContactEmail, error)
	GetByContactID(ctx context.Context, tx *gorm.DB, contactID uuid.UUID) ([]*types.ContactEmail, error)
	ClearPrimary(ctx context.Context, tx *gorm.DB, contactID uuid.UUID) error
	MarkPrimary(ctx context.Context, tx *gorm.DB, id uuid.UUID) error
}

type contactEmailRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewContactEmailRepo(db *gorm.DB, baseLog *logger.Logger) ContactEmailRepo {
	return &contactEmailRepo{
		db:  db,
		log: baseLog.With("repo", "ContactEmailRepo"),
	}
}

func (r *contactEmailRepo) Create(ctx context.Context, tx *gorm.DB, emails []*types.ContactEmail) ([]*types.ContactEmail, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if len(emails) == 0 {
		return []*types.ContactEmail{}, nil
	}
	if err := transaction.WithContext(ctx).Create(&emails).Error; err != nil {
		return nil, err
	}
	return emails, nil
}

func (r *contactEmailRepo) GetByContactID(ctx context.Context, tx *gorm.DB, contactID uuid.UUID) ([]*types.ContactEmail, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.ContactEmail
	if contactID == uuid.Nil {
		return out, nil
	}
	if err := transaction.WithContext(ctx).
		Where("contact_id = ?", contactID).
		Order("created_at ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *contactEmailRepo) ClearPrimary(ctx context.Context, tx *gorm.DB, contactID uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if contactID == uuid.Nil {
		return nil
	}
	return transaction.WithContext(ctx).
		Model(&types.ContactEmail{}).
		Where("contact_id = ? AND is_primary = true", contactID).
		Update("is_primary", false).Error
}

func (r *contactEmailRepo) MarkPrimary(ctx context.Context, tx *gorm.DB, id uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil {
		return nil
	}
	return transaction.WithContext(ctx).
		Model(&types.ContactEmail{}).
		Where("id = ?", id).
		Update("is_primary", true).Error
}
