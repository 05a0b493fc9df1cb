package jobs

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/atendoteam/atendo-backend/internal/data/repos/testutil"
	types "github.com/atendoteam/atendo-backend/internal/domain"
)

func TestClaimNextFlipsStatusAndCountsAttempt(t *testing.T) {
	db := testutil.DB(t)
	log := testutil.Logger(t)
	tx := testutil.Tx(t, db)
	ctx := context.Background()
	repo := NewMediaJobRepo(db, log)

	tenantID := uuid.New()
	now := time.Now().UTC()
	seeded := testutil.SeedMediaJob(t, ctx, tx, tenantID, uuid.New(), types.MediaJobStatusPending, now.Add(-time.Minute))

	claimed, err := repo.ClaimNext(ctx, tx, 10, now)
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	if len(claimed) != 1 || claimed[0].ID != seeded.ID {
		t.Fatalf("claimed %d jobs, want the seeded one", len(claimed))
	}
	if claimed[0].Status != types.MediaJobStatusProcessing || claimed[0].Attempts != 1 {
		t.Fatalf("claimed job state: status=%s attempts=%d", claimed[0].Status, claimed[0].Attempts)
	}

	// Already claimed: a second pass finds nothing.
	claimed, err = repo.ClaimNext(ctx, tx, 10, now)
	if err != nil {
		t.Fatalf("re-claim: %v", err)
	}
	if len(claimed) != 0 {
		t.Fatalf("re-claim returned %d jobs, want 0", len(claimed))
	}
}

func TestClaimNextHonorsRetryHorizon(t *testing.T) {
	db := testutil.DB(t)
	log := testutil.Logger(t)
	tx := testutil.Tx(t, db)
	ctx := context.Background()
	repo := NewMediaJobRepo(db, log)

	tenantID := uuid.New()
	now := time.Now().UTC()

	future := testutil.SeedMediaJob(t, ctx, tx, tenantID, uuid.New(), types.MediaJobStatusPending, now.Add(-time.Hour))
	if err := repo.UpdateFields(ctx, tx, future.ID, map[string]interface{}{
		"next_retry_at": now.Add(time.Hour),
	}); err != nil {
		t.Fatalf("set retry horizon: %v", err)
	}
	due := testutil.SeedMediaJob(t, ctx, tx, tenantID, uuid.New(), types.MediaJobStatusPending, now.Add(-time.Hour))
	if err := repo.UpdateFields(ctx, tx, due.ID, map[string]interface{}{
		"next_retry_at": now.Add(-time.Minute),
	}); err != nil {
		t.Fatalf("set due horizon: %v", err)
	}

	claimed, err := repo.ClaimNext(ctx, tx, 10, now)
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	if len(claimed) != 1 || claimed[0].ID != due.ID {
		t.Fatalf("claimed wrong jobs: %d", len(claimed))
	}
}

func TestClaimNextOldestFirstWithLimit(t *testing.T) {
	db := testutil.DB(t)
	log := testutil.Logger(t)
	tx := testutil.Tx(t, db)
	ctx := context.Background()
	repo := NewMediaJobRepo(db, log)

	tenantID := uuid.New()
	now := time.Now().UTC()
	oldest := testutil.SeedMediaJob(t, ctx, tx, tenantID, uuid.New(), types.MediaJobStatusPending, now.Add(-3*time.Minute))
	testutil.SeedMediaJob(t, ctx, tx, tenantID, uuid.New(), types.MediaJobStatusPending, now.Add(-2*time.Minute))
	testutil.SeedMediaJob(t, ctx, tx, tenantID, uuid.New(), types.MediaJobStatusPending, now.Add(-time.Minute))

	claimed, err := repo.ClaimNext(ctx, tx, 1, now)
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	if len(claimed) != 1 || claimed[0].ID != oldest.ID {
		t.Fatalf("claimed %d, want only the oldest", len(claimed))
	}
}

func TestUpdateFieldsIfStatusGuards(t *testing.T) {
	db := testutil.DB(t)
	log := testutil.Logger(t)
	tx := testutil.Tx(t, db)
	ctx := context.Background()
	repo := NewMediaJobRepo(db, log)

	tenantID := uuid.New()
	job := testutil.SeedMediaJob(t, ctx, tx, tenantID, uuid.New(), types.MediaJobStatusProcessing, time.Now().UTC())

	ok, err := repo.UpdateFieldsIfStatus(ctx, tx, job.ID, types.MediaJobStatusProcessing, map[string]interface{}{
		"status": types.MediaJobStatusCompleted,
	})
	if err != nil {
		t.Fatalf("transition: %v", err)
	}
	if !ok {
		t.Fatalf("expected transition to apply")
	}

	// Stale actor: the job already left PROCESSING.
	ok, err = repo.UpdateFieldsIfStatus(ctx, tx, job.ID, types.MediaJobStatusProcessing, map[string]interface{}{
		"status": types.MediaJobStatusFailed,
	})
	if err != nil {
		t.Fatalf("stale transition: %v", err)
	}
	if ok {
		t.Fatalf("stale transition applied")
	}

	got, err := repo.GetByID(ctx, tx, job.ID)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if got.Status != types.MediaJobStatusCompleted {
		t.Fatalf("status = %s, want COMPLETED", got.Status)
	}
}

func TestClaimNextSkipsRowsLockedByOtherSession(t *testing.T) {
	db := testutil.DB(t)
	log := testutil.Logger(t)
	ctx := context.Background()
	repo := NewMediaJobRepo(db, log)

	tenantID := uuid.New()
	testutil.CleanupTenant(t, db, tenantID)
	now := time.Now().UTC()
	seeded := testutil.SeedMediaJob(t, ctx, db, tenantID, uuid.New(), types.MediaJobStatusPending, now.Add(-time.Minute))

	holder := db.Begin()
	if holder.Error != nil {
		t.Fatalf("begin: %v", holder.Error)
	}
	committed := false
	defer func() {
		if !committed {
			_ = holder.Rollback().Error
		}
	}()

	claimed, err := repo.ClaimNext(ctx, holder, 10, now)
	if err != nil {
		t.Fatalf("first claim: %v", err)
	}
	if len(claimed) != 1 || claimed[0].ID != seeded.ID {
		t.Fatalf("first claim got %d jobs", len(claimed))
	}

	// A second session must skip the locked row instead of blocking or
	// double-claiming it.
	other, err := repo.ClaimNext(ctx, nil, 10, now)
	if err != nil {
		t.Fatalf("second claim: %v", err)
	}
	if len(other) != 0 {
		t.Fatalf("second claim got %d jobs, want 0", len(other))
	}

	if err := holder.Commit().Error; err != nil {
		t.Fatalf("commit: %v", err)
	}
	committed = true

	// After commit the row is PROCESSING, so it still cannot be claimed.
	other, err = repo.ClaimNext(ctx, nil, 10, now)
	if err != nil {
		t.Fatalf("post-commit claim: %v", err)
	}
	if len(other) != 0 {
		t.Fatalf("post-commit claim got %d jobs, want 0", len(other))
	}
}

func TestClaimNextConcurrentWorkersSingleClaim(t *testing.T) {
	db := testutil.DB(t)
	log := testutil.Logger(t)
	ctx := context.Background()
	repo := NewMediaJobRepo(db, log)

	tenantID := uuid.New()
	testutil.CleanupTenant(t, db, tenantID)
	now := time.Now().UTC()
	seeded := testutil.SeedMediaJob(t, ctx, db, tenantID, uuid.New(), types.MediaJobStatusPending, now.Add(-time.Minute))

	type outcome struct {
		jobs []*types.InboundMediaJob
		err  error
	}
	done := make(chan outcome, 2)
	for i := 0; i < 2; i++ {
		go func() {
			jobs, err := repo.ClaimNext(ctx, nil, 10, now)
			done <- outcome{jobs, err}
		}()
	}

	total := 0
	for i := 0; i < 2; i++ {
		var res outcome
		select {
		case res = <-done:
		case <-time.After(10 * time.Second):
			t.Fatalf("claim %d never returned", i)
		}
		if res.err != nil {
			t.Fatalf("claim %d: %v", i, res.err)
		}
		total += len(res.jobs)
	}
	if total != 1 {
		t.Fatalf("claims across workers = %d, want exactly 1", total)
	}

	got, err := repo.GetByID(ctx, nil, seeded.ID)
	if err != nil || got == nil {
		t.Fatalf("reload: %v", err)
	}
	if got.Status != types.MediaJobStatusProcessing || got.Attempts != 1 {
		t.Fatalf("job status=%s attempts=%d", got.Status, got.Attempts)
	}
}

func TestMediaJobUniquePerMessage(t *testing.T) {
	db := testutil.DB(t)
	log := testutil.Logger(t)
	tx := testutil.Tx(t, db)
	ctx := context.Background()
	repo := NewMediaJobRepo(db, log)

	tenantID := uuid.New()
	messageID := uuid.New()
	testutil.SeedMediaJob(t, ctx, tx, tenantID, messageID, types.MediaJobStatusPending, time.Now().UTC())

	dupe := &types.InboundMediaJob{
		ID:        uuid.New(),
		TenantID:  tenantID,
		MessageID: messageID,
		Status:    types.MediaJobStatusPending,
	}
	if _, err := repo.Create(ctx, tx, dupe); err == nil {
		t.Fatalf("expected unique violation on second job for message")
	}
}
