package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/atendoteam/atendo-backend/internal/data/repos"
	types "github.com/atendoteam/atendo-backend/internal/domain"
	"github.com/atendoteam/atendo-backend/internal/pkg/dbutil"
	apperrors "github.com/atendoteam/atendo-backend/internal/pkg/errors"
	"github.com/atendoteam/atendo-backend/internal/pkg/logger"
	"github.com/atendoteam/atendo-backend/internal/realtime"
	"github.com/atendoteam/atendo-backend/internal/realtime/bus"
)

// lastErrorLimit bounds the stored failure text per attempt.
const lastErrorLimit = 1000

type MediaQueue interface {
	Enqueue(ctx context.Context, tx *gorm.DB, msg *types.Message) (*types.InboundMediaJob, error)
	ClaimNext(ctx context.Context, limit int, now time.Time) ([]*types.InboundMediaJob, error)
	Complete(ctx context.Context, jobID uuid.UUID) (bool, error)
	Reschedule(ctx context.Context, jobID uuid.UUID, retryAt time.Time, cause error) (bool, error)
	Fail(ctx context.Context, jobID uuid.UUID, cause error) (bool, error)
}

type mediaQueue struct {
	db       *gorm.DB
	log      *logger.Logger
	jobs     repos.MediaJobRepo
	notifier bus.Notifier
}

func NewMediaQueue(db *gorm.DB, baseLog *logger.Logger, jobs repos.MediaJobRepo, notifier bus.Notifier) MediaQueue {
	if notifier == nil {
		notifier = bus.NoopNotifier{}
	}
	return &mediaQueue{
		db:       db,
		log:      baseLog.With("service", "MediaQueue"),
		jobs:     jobs,
		notifier: notifier,
	}
}

// Enqueue registers media fetch work for a message. At most one job exists
// per message: re-enqueueing resets the existing row to PENDING with the
// message's current media fields and a cleared error, without touching
// attempts.
func (s *mediaQueue) Enqueue(ctx context.Context, tx *gorm.DB, msg *types.Message) (*types.InboundMediaJob, error) {
	if msg == nil || msg.ID == uuid.Nil {
		return nil, fmt.Errorf("enqueue media job: %w: message required", apperrors.ErrInvalidArgument)
	}
	transaction := tx
	if transaction == nil {
		transaction = s.db
	}

	existing, err := s.jobs.GetByMessageID(ctx, transaction, msg.ID)
	if err != nil {
		return nil, fmt.Errorf("enqueue media job: lookup: %w", err)
	}
	if existing != nil {
		return s.reset(ctx, transaction, existing, msg)
	}

	job := &types.InboundMediaJob{
		ID:        uuid.New(),
		TenantID:  msg.TenantID,
		MessageID: msg.ID,
		MediaURL:  msg.MediaURL,
		MimeType:  msg.MediaMimeType,
		Status:    types.MediaJobStatusPending,
	}
	createErr := dbutil.RunGuarded(transaction, func(tx *gorm.DB) error {
		_, err := s.jobs.Create(ctx, tx, job)
		return err
	})
	if createErr != nil {
		if dbutil.IsUniqueViolation(createErr) {
			winner, lookupErr := s.jobs.GetByMessageID(ctx, transaction, msg.ID)
			if lookupErr != nil {
				return nil, fmt.Errorf("enqueue media job: re-read after conflict: %w", lookupErr)
			}
			if winner == nil {
				return nil, fmt.Errorf("enqueue media job: conflict but no row for message %s", msg.ID)
			}
			return s.reset(ctx, transaction, winner, msg)
		}
		return nil, fmt.Errorf("enqueue media job: create: %w", createErr)
	}
	s.log.Info("Media job enqueued", "tenant_id", msg.TenantID, "message_id", msg.ID, "job_id", job.ID)
	return job, nil
}

func (s *mediaQueue) reset(ctx context.Context, tx *gorm.DB, job *types.InboundMediaJob, msg *types.Message) (*types.InboundMediaJob, error) {
	updates := map[string]interface{}{
		"status":        types.MediaJobStatusPending,
		"media_url":     msg.MediaURL,
		"mime_type":     msg.MediaMimeType,
		"next_retry_at": nil,
		"last_error":    "",
	}
	if err := s.jobs.UpdateFields(ctx, tx, job.ID, updates); err != nil {
		return nil, fmt.Errorf("enqueue media job: reset: %w", err)
	}
	job.Status = types.MediaJobStatusPending
	job.MediaURL = msg.MediaURL
	job.MimeType = msg.MediaMimeType
	job.NextRetryAt = nil
	job.LastError = ""
	s.log.Debug("Media job re-enqueued", "message_id", msg.ID, "job_id", job.ID)
	return job, nil
}

func (s *mediaQueue) ClaimNext(ctx context.Context, limit int, now time.Time) ([]*types.InboundMediaJob, error) {
	return s.jobs.ClaimNext(ctx, nil, limit, now)
}

// Complete transitions a PROCESSING job to COMPLETED. Returns false when the
// job is no longer PROCESSING, which means another actor moved it first.
func (s *mediaQueue) Complete(ctx context.Context, jobID uuid.UUID) (bool, error) {
	ok, err := s.jobs.UpdateFieldsIfStatus(ctx, nil, jobID, types.MediaJobStatusProcessing, map[string]interface{}{
		"status":     types.MediaJobStatusCompleted,
		"last_error": "",
	})
	if err != nil || !ok {
		return ok, err
	}
	if pubErr := s.notifier.Publish(ctx, realtime.Event{
		Type:    realtime.EventMediaJobCompleted,
		Payload: map[string]interface{}{"job_id": jobID.String()},
		At:      time.Now(),
	}); pubErr != nil {
		s.log.Warn("Media job completed event publish failed", "job_id", jobID, "error", pubErr)
	}
	return true, nil
}

// Reschedule sends a PROCESSING job back to PENDING with a retry horizon.
func (s *mediaQueue) Reschedule(ctx context.Context, jobID uuid.UUID, retryAt time.Time, cause error) (bool, error) {
	return s.jobs.UpdateFieldsIfStatus(ctx, nil, jobID, types.MediaJobStatusProcessing, map[string]interface{}{
		"status":        types.MediaJobStatusPending,
		"next_retry_at": retryAt,
		"last_error":    truncateRunes(errorText(cause), lastErrorLimit),
	})
}

// Fail terminally marks a PROCESSING job FAILED.
func (s *mediaQueue) Fail(ctx context.Context, jobID uuid.UUID, cause error) (bool, error) {
	ok, err := s.jobs.UpdateFieldsIfStatus(ctx, nil, jobID, types.MediaJobStatusProcessing, map[string]interface{}{
		"status":     types.MediaJobStatusFailed,
		"last_error": truncateRunes(errorText(cause), lastErrorLimit),
	})
	if err != nil || !ok {
		return ok, err
	}
	s.log.Warn("Media job failed terminally", "job_id", jobID, "error", errorText(cause))
	if pubErr := s.notifier.Publish(ctx, realtime.Event{
		Type:    realtime.EventMediaJobFailed,
		Payload: map[string]interface{}{"job_id": jobID.String(), "error": truncateRunes(errorText(cause), lastErrorLimit)},
		At:      time.Now(),
	}); pubErr != nil {
		s.log.Warn("Media job failed event publish failed", "job_id", jobID, "error", pubErr)
	}
	return true, nil
}

func errorText(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
