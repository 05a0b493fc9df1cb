package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/atendoteam/atendo-backend/internal/data/repos"
	types "github.com/atendoteam/atendo-backend/internal/domain"
	"github.com/atendoteam/atendo-backend/internal/normalization"
	"github.com/atendoteam/atendo-backend/internal/pkg/dbutil"
	apperrors "github.com/atendoteam/atendo-backend/internal/pkg/errors"
	"github.com/atendoteam/atendo-backend/internal/pkg/logger"
	"github.com/atendoteam/atendo-backend/internal/realtime"
	"github.com/atendoteam/atendo-backend/internal/realtime/bus"
)

// provenanceTags are attached to every contact the resolver creates, so the
// inbox UI can tell resolver-created contacts from manually entered ones.
var provenanceTags = []string{"channel", "ingested"}

type ContactResolver interface {
	Resolve(ctx context.Context, tx *gorm.DB, tenantID uuid.UUID, chatHandle, displayNameHint, phoneHint string) (*types.Contact, error)
	SetPrimaryPhone(ctx context.Context, tx *gorm.DB, tenantID, contactID uuid.UUID, number string) (*types.ContactPhone, error)
	SetPrimaryEmail(ctx context.Context, tx *gorm.DB, tenantID, contactID uuid.UUID, address string) (*types.ContactEmail, error)
}

type contactResolver struct {
	db       *gorm.DB
	log      *logger.Logger
	contacts repos.ContactRepo
	phones   repos.ContactPhoneRepo
	emails   repos.ContactEmailRepo
	tags     repos.TagRepo
	notifier bus.Notifier
}

func NewContactResolver(
	db *gorm.DB,
	baseLog *logger.Logger,
	contacts repos.ContactRepo,
	phones repos.ContactPhoneRepo,
	emails repos.ContactEmailRepo,
	tags repos.TagRepo,
	notifier bus.Notifier,
) ContactResolver {
	if notifier == nil {
		notifier = bus.NoopNotifier{}
	}
	return &contactResolver{
		db:       db,
		log:      baseLog.With("service", "ContactResolver"),
		contacts: contacts,
		phones:   phones,
		emails:   emails,
		tags:     tags,
		notifier: notifier,
	}
}

// Resolve finds or creates the canonical contact for an external chat
// identity. The (tenant_id, primary_phone) unique index arbitrates create
// races: losing the race falls back to the winner's row. Every call,
// created or not, bumps last_interaction_at.
func (s *contactResolver) Resolve(ctx context.Context, tx *gorm.DB, tenantID uuid.UUID, chatHandle, displayNameHint, phoneHint string) (*types.Contact, error) {
	if tx != nil {
		return s.resolve(ctx, tx, tenantID, chatHandle, displayNameHint, phoneHint)
	}
	var out *types.Contact
	err := s.db.WithContext(ctx).Transaction(func(txx *gorm.DB) error {
		contact, err := s.resolve(ctx, txx, tenantID, chatHandle, displayNameHint, phoneHint)
		out = contact
		return err
	})
	return out, err
}

func (s *contactResolver) resolve(ctx context.Context, tx *gorm.DB, tenantID uuid.UUID, chatHandle, displayNameHint, phoneHint string) (*types.Contact, error) {
	if tenantID == uuid.Nil {
		return nil, fmt.Errorf("resolve contact: %w: tenant id required", apperrors.ErrInvalidArgument)
	}
	phone := normalization.Phone(phoneHint)
	if phone == "" {
		phone = normalization.ChatHandle(chatHandle)
	}
	if phone == "" {
		return nil, fmt.Errorf("resolve contact: %w: no usable phone in handle %q", apperrors.ErrInvalidArgument, chatHandle)
	}

	displayName := strings.TrimSpace(displayNameHint)
	if displayName == "" {
		// Missing display name is not an error: the handle stands in.
		displayName = strings.TrimSpace(chatHandle)
	}
	now := time.Now().UTC()

	existing, err := s.contacts.GetByPrimaryPhone(ctx, tx, tenantID, phone)
	if err != nil {
		return nil, fmt.Errorf("resolve contact: lookup by phone: %w", err)
	}
	if existing != nil {
		return s.touch(ctx, tx, existing, displayNameHint, now)
	}

	contact := &types.Contact{
		ID:                uuid.New(),
		TenantID:          tenantID,
		DisplayName:       displayName,
		PrimaryPhone:      phone,
		CustomFields:      datatypes.JSON([]byte("{}")),
		Metadata:          datatypes.JSON([]byte("{}")),
		LastInteractionAt: &now,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	createErr := dbutil.RunGuarded(tx, func(tx *gorm.DB) error {
		_, err := s.contacts.Create(ctx, tx, []*types.Contact{contact})
		return err
	})
	if createErr != nil {
		if dbutil.IsUniqueViolation(createErr) {
			s.log.Debug("Lost contact create race, re-reading", "tenant_id", tenantID, "phone", phone)
			winner, lookupErr := s.contacts.GetByPrimaryPhone(ctx, tx, tenantID, phone)
			if lookupErr != nil {
				return nil, fmt.Errorf("resolve contact: re-read after conflict: %w", lookupErr)
			}
			if winner == nil {
				return nil, fmt.Errorf("resolve contact: conflict but no row for phone %s", phone)
			}
			return s.touch(ctx, tx, winner, displayNameHint, now)
		}
		return nil, fmt.Errorf("resolve contact: create: %w", createErr)
	}

	if _, err := s.phones.Create(ctx, tx, []*types.ContactPhone{{
		ID:        uuid.New(),
		ContactID: contact.ID,
		Number:    phone,
		Type:      "mobile",
		IsPrimary: true,
	}}); err != nil {
		return nil, fmt.Errorf("resolve contact: seed primary phone: %w", err)
	}
	for _, name := range provenanceTags {
		tag, err := s.tags.FindOrCreate(ctx, tx, tenantID, name)
		if err != nil {
			return nil, fmt.Errorf("resolve contact: tag %q: %w", name, err)
		}
		if tag == nil {
			continue
		}
		if err := s.tags.Attach(ctx, tx, contact.ID, tag.ID); err != nil {
			return nil, fmt.Errorf("resolve contact: attach tag %q: %w", name, err)
		}
	}

	s.log.Info("Contact created", "tenant_id", tenantID, "contact_id", contact.ID, "phone", phone)
	if err := s.notifier.Publish(ctx, realtime.Event{
		Type:     realtime.EventContactCreated,
		TenantID: tenantID,
		Payload:  map[string]interface{}{"contact_id": contact.ID.String(), "phone": phone},
		At:       now,
	}); err != nil {
		s.log.Warn("Contact created event publish failed", "error", err)
	}
	return contact, nil
}

// touch refreshes interaction recency on an existing contact and fills an
// empty display name from the hint. Existing names are never overwritten.
func (s *contactResolver) touch(ctx context.Context, tx *gorm.DB, contact *types.Contact, displayNameHint string, now time.Time) (*types.Contact, error) {
	updates := map[string]interface{}{
		"last_interaction_at": now,
		"updated_at":          now,
	}
	hint := strings.TrimSpace(displayNameHint)
	if contact.DisplayName == "" && hint != "" {
		updates["display_name"] = hint
		contact.DisplayName = hint
	}
	if err := s.contacts.UpdateFields(ctx, tx, contact.ID, updates); err != nil {
		return nil, fmt.Errorf("resolve contact: touch: %w", err)
	}
	contact.LastInteractionAt = &now
	contact.UpdatedAt = now
	return contact, nil
}

// SetPrimaryPhone promotes number to the contact's single primary phone.
// Every other phone sub-record is demoted, and the contact's denormalized
// primary_phone column follows. A number already owned by another contact in
// the tenant is a conflict, never a silent merge.
func (s *contactResolver) SetPrimaryPhone(ctx context.Context, tx *gorm.DB, tenantID, contactID uuid.UUID, number string) (*types.ContactPhone, error) {
	if tx != nil {
		return s.setPrimaryPhone(ctx, tx, tenantID, contactID, number)
	}
	var out *types.ContactPhone
	err := s.db.WithContext(ctx).Transaction(func(txx *gorm.DB) error {
		row, err := s.setPrimaryPhone(ctx, txx, tenantID, contactID, number)
		out = row
		return err
	})
	return out, err
}

func (s *contactResolver) setPrimaryPhone(ctx context.Context, tx *gorm.DB, tenantID, contactID uuid.UUID, number string) (*types.ContactPhone, error) {
	phone := normalization.Phone(number)
	if tenantID == uuid.Nil || contactID == uuid.Nil || phone == "" {
		return nil, fmt.Errorf("set primary phone: %w: tenant, contact and a usable phone required", apperrors.ErrInvalidArgument)
	}
	contact, err := s.contacts.GetByID(ctx, tx, tenantID, contactID)
	if err != nil {
		return nil, fmt.Errorf("set primary phone: load contact: %w", err)
	}
	if contact == nil {
		return nil, fmt.Errorf("set primary phone: contact %s: %w", contactID, apperrors.ErrNotFound)
	}

	// The denormalized column moves first: a number owned by another
	// contact trips the unique index here, before any sub-record changes.
	updateErr := dbutil.RunGuarded(tx, func(tx *gorm.DB) error {
		return s.contacts.UpdateFields(ctx, tx, contactID, map[string]interface{}{
			"primary_phone": phone,
		})
	})
	if updateErr != nil {
		if dbutil.IsUniqueViolation(updateErr) {
			return nil, fmt.Errorf("set primary phone: %w: phone %s belongs to another contact", apperrors.ErrConflict, phone)
		}
		return nil, fmt.Errorf("set primary phone: update contact: %w", updateErr)
	}

	rows, err := s.phones.GetByContactID(ctx, tx, contactID)
	if err != nil {
		return nil, fmt.Errorf("set primary phone: list phones: %w", err)
	}
	var target *types.ContactPhone
	for _, row := range rows {
		if row.Number == phone {
			target = row
			break
		}
	}
	if err := s.phones.ClearPrimary(ctx, tx, contactID); err != nil {
		return nil, fmt.Errorf("set primary phone: clear primary: %w", err)
	}
	if target == nil {
		target = &types.ContactPhone{
			ID:        uuid.New(),
			ContactID: contactID,
			Number:    phone,
			Type:      "mobile",
			IsPrimary: true,
		}
		if _, err := s.phones.Create(ctx, tx, []*types.ContactPhone{target}); err != nil {
			return nil, fmt.Errorf("set primary phone: create: %w", err)
		}
	} else {
		if err := s.phones.MarkPrimary(ctx, tx, target.ID); err != nil {
			return nil, fmt.Errorf("set primary phone: mark primary: %w", err)
		}
		target.IsPrimary = true
	}
	s.log.Info("Primary phone set", "tenant_id", tenantID, "contact_id", contactID, "phone", phone)
	return target, nil
}

// SetPrimaryEmail promotes address to the contact's single primary email,
// creating the sub-record when none matches.
func (s *contactResolver) SetPrimaryEmail(ctx context.Context, tx *gorm.DB, tenantID, contactID uuid.UUID, address string) (*types.ContactEmail, error) {
	if tx != nil {
		return s.setPrimaryEmail(ctx, tx, tenantID, contactID, address)
	}
	var out *types.ContactEmail
	err := s.db.WithContext(ctx).Transaction(func(txx *gorm.DB) error {
		row, err := s.setPrimaryEmail(ctx, txx, tenantID, contactID, address)
		out = row
		return err
	})
	return out, err
}

func (s *contactResolver) setPrimaryEmail(ctx context.Context, tx *gorm.DB, tenantID, contactID uuid.UUID, address string) (*types.ContactEmail, error) {
	address = strings.ToLower(strings.TrimSpace(address))
	if tenantID == uuid.Nil || contactID == uuid.Nil || address == "" {
		return nil, fmt.Errorf("set primary email: %w: tenant, contact and address required", apperrors.ErrInvalidArgument)
	}
	contact, err := s.contacts.GetByID(ctx, tx, tenantID, contactID)
	if err != nil {
		return nil, fmt.Errorf("set primary email: load contact: %w", err)
	}
	if contact == nil {
		return nil, fmt.Errorf("set primary email: contact %s: %w", contactID, apperrors.ErrNotFound)
	}

	rows, err := s.emails.GetByContactID(ctx, tx, contactID)
	if err != nil {
		return nil, fmt.Errorf("set primary email: list emails: %w", err)
	}
	var target *types.ContactEmail
	for _, row := range rows {
		if strings.EqualFold(row.Address, address) {
			target = row
			break
		}
	}
	if err := s.emails.ClearPrimary(ctx, tx, contactID); err != nil {
		return nil, fmt.Errorf("set primary email: clear primary: %w", err)
	}
	if target == nil {
		target = &types.ContactEmail{
			ID:        uuid.New(),
			ContactID: contactID,
			Address:   address,
			Type:      "personal",
			IsPrimary: true,
		}
		if _, err := s.emails.Create(ctx, tx, []*types.ContactEmail{target}); err != nil {
			return nil, fmt.Errorf("set primary email: create: %w", err)
		}
	} else {
		if err := s.emails.MarkPrimary(ctx, tx, target.ID); err != nil {
			return nil, fmt.Errorf("set primary email: mark primary: %w", err)
		}
		target.IsPrimary = true
	}

	if err := s.contacts.UpdateFields(ctx, tx, contactID, map[string]interface{}{
		"primary_email": address,
	}); err != nil {
		return nil, fmt.Errorf("set primary email: update contact: %w", err)
	}
	s.log.Info("Primary email set", "tenant_id", tenantID, "contact_id", contactID, "email", address)
	return target, nil
}
