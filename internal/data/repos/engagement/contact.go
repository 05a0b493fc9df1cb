package engagement

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/atendoteam/atendo-backend/internal/domain"
	"github.com/atendoteam/atendo-backend/internal/pkg/logger"
)

type ContactRepo interface {
	Create(ctx context.Context, tx *gorm.DB, contacts []*types.Contact) ([]*types.Contact, error)
	GetByID(ctx context.Context, tx *gorm.DB, tenantID, id uuid.UUID) (*types.Contact, error)
	GetByPrimaryPhone(ctx context.Context, tx *gorm.DB, tenantID uuid.UUID, phone string) (*types.Contact, error)
	UpdateFields(ctx context.Context, tx *gorm.DB, id uuid.UUID, updates map[string]interface{}) error
}

type contactRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewContactRepo(db *gorm.DB, baseLog *logger.Logger) ContactRepo {
	return &contactRepo{
		db:  db,
		log: baseLog.With("repo", "ContactRepo"),
	}
}

func (r *contactRepo) Create(ctx context.Context, tx *gorm.DB, contacts []*types.Contact) ([]*types.Contact, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if len(contacts) == 0 {
		return []*types.Contact{}, nil
	}
	if err := transaction.WithContext(ctx).Create(&contacts).Error; err != nil {
		return nil, err
	}
	return contacts, nil
}

func (r *contactRepo) GetByID(ctx context.Context, tx *gorm.DB, tenantID, id uuid.UUID) (*types.Contact, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if tenantID == uuid.Nil || id == uuid.Nil {
		return nil, nil
	}
	var contact types.Contact
	err := transaction.WithContext(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		Limit(1).
		Find(&contact).Error
	if err != nil {
		return nil, err
	}
	if contact.ID == uuid.Nil {
		return nil, nil
	}
	return &contact, nil
}

func (r *contactRepo) GetByPrimaryPhone(ctx context.Context, tx *gorm.DB, tenantID uuid.UUID, phone string) (*types.Contact, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if tenantID == uuid.Nil || phone == "" {
		return nil, nil
	}
	var contact types.Contact
	err := transaction.WithContext(ctx).
		Where("tenant_id = ? AND primary_phone = ?", tenantID, phone).
		Limit(1).
		Find(&contact).Error
	if err != nil {
		return nil, err
	}
	if contact.ID == uuid.Nil {
		return nil, nil
	}
	return &contact, nil
}

func (r *contactRepo) UpdateFields(ctx context.Context, tx *gorm.DB, id uuid.UUID, updates map[string]interface{}) error {
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
		Model(&types.Contact{}).
		Where("id = ?", id).
		Updates(updates).Error
}
