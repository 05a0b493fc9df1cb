package engagement

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/atendoteam/atendo-backend/internal/domain"
	"github.com/atendoteam/atendo-backend/internal/pkg/logger"
)

type TicketRepo interface {
	Create(ctx context.Context, tx *gorm.DB, tickets []*types.Ticket) ([]*types.Ticket, error)
	GetByID(ctx context.Context, tx *gorm.DB, tenantID, id uuid.UUID) (*types.Ticket, error)
	GetLatestOpenByContact(ctx context.Context, tx *gorm.DB, tenantID, contactID uuid.UUID) (*types.Ticket, error)
	UpdateFields(ctx context.Context, tx *gorm.DB, id uuid.UUID, updates map[string]interface{}) error
}

type ticketRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewTicketRepo(db *gorm.DB, baseLog *logger.Logger) TicketRepo {
	return &ticketRepo{
		db:  db,
		log: baseLog.With("repo", "TicketRepo"),
	}
}

func (r *ticketRepo) Create(ctx context.Context, tx *gorm.DB, tickets []*types.Ticket) ([]*types.Ticket, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if len(tickets) == 0 {
		return []*types.Ticket{}, nil
	}
	if err := transaction.WithContext(ctx).Create(&tickets).Error; err != nil {
		return nil, err
	}
	return tickets, nil
}

func (r *ticketRepo) GetByID(ctx context.Context, tx *gorm.DB, tenantID, id uuid.UUID) (*types.Ticket, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if tenantID == uuid.Nil || id == uuid.Nil {
		return nil, nil
	}
	var ticket types.Ticket
	err := transaction.WithContext(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		Limit(1).
		Find(&ticket).Error
	if err != nil {
		return nil, err
	}
	if ticket.ID == uuid.Nil {
		return nil, nil
	}
	return &ticket, nil
}

// GetLatestOpenByContact returns the most-recently-updated ticket of the
// contact whose status is in the open family, or nil when none exists.
func (r *ticketRepo) GetLatestOpenByContact(ctx context.Context, tx *gorm.DB, tenantID, contactID uuid.UUID) (*types.Ticket, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if tenantID == uuid.Nil || contactID == uuid.Nil {
		return nil, nil
	}
	var ticket types.Ticket
	err := transaction.WithContext(ctx).
		Where("tenant_id = ? AND contact_id = ? AND status IN ?", tenantID, contactID, types.TicketOpenStatuses).
		Order("updated_at DESC").
		Limit(1).
		Find(&ticket).Error
	if err != nil {
		return nil, err
	}
	if ticket.ID == uuid.Nil {
		return nil, nil
	}
	return &ticket, nil
}

func (r *ticketRepo) UpdateFields(ctx context.Context, tx *gorm.DB, id uuid.UUID, updates map[string]interface{}) error {
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
		Model(&types.Ticket{}).
		Where("id = ?", id).
		Updates(updates).Error
}
