package mediaworker

import (
	"context"
	"errors"
	"time"

	"golang.org/x/sync/errgroup"

	types "github.com/atendoteam/atendo-backend/internal/domain"
	"github.com/atendoteam/atendo-backend/internal/pkg/logger"
	"github.com/atendoteam/atendo-backend/internal/services"
)

// ErrPermanent wraps fetch failures that retrying cannot fix (bad URL,
// gone media). The worker fails the job immediately instead of backing off.
var ErrPermanent = errors.New("permanent media failure")

// MediaFetcher downloads and stores one job's media. Implementations are
// provider-specific; the worker only cares about success, retryable error,
// or ErrPermanent.
type MediaFetcher interface {
	Fetch(ctx context.Context, job *types.InboundMediaJob) error
}

type Config struct {
	PollInterval time.Duration
	BatchSize    int
	MaxAttempts  int
	BackoffBase  time.Duration
	BackoffCap   time.Duration
}

func (c Config) withDefaults() Config {
	if c.PollInterval <= 0 {
		c.PollInterval = 2 * time.Second
	}
	if c.BatchSize <= 0 {
		c.BatchSize = 8
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 5
	}
	if c.BackoffBase <= 0 {
		c.BackoffBase = 30 * time.Second
	}
	if c.BackoffCap <= 0 {
		c.BackoffCap = 30 * time.Minute
	}
	return c
}

// Worker drains the inbound media job queue. Claiming happens through the
// queue's SKIP LOCKED compare-and-swap, so any number of workers can run
// against the same database without double-processing.
type Worker struct {
	log     *logger.Logger
	queue   services.MediaQueue
	fetcher MediaFetcher
	cfg     Config
	cancel  context.CancelFunc
	done    chan struct{}
}

func New(baseLog *logger.Logger, queue services.MediaQueue, fetcher MediaFetcher, cfg Config) *Worker {
	return &Worker{
		log:     baseLog.With("component", "MediaWorker"),
		queue:   queue,
		fetcher: fetcher,
		cfg:     cfg.withDefaults(),
		done:    make(chan struct{}),
	}
}

// Start launches the poll loop. Stop with Close.
func (w *Worker) Start(ctx context.Context) {
	ctx, w.cancel = context.WithCancel(ctx)
	go w.run(ctx)
}

func (w *Worker) Close() {
	if w.cancel == nil {
		return
	}
	w.cancel()
	w.cancel = nil
	<-w.done
}

func (w *Worker) run(ctx context.Context) {
	defer close(w.done)
	ticker := time.NewTicker(w.cfg.PollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := w.drainOnce(ctx); err != nil && !errors.Is(err, context.Canceled) {
				w.log.Error("Media worker pass failed", "error", err)
			}
		}
	}
}

// drainOnce claims one batch and processes it concurrently. A short batch
// means the queue is (momentarily) empty; the next tick picks up new work.
func (w *Worker) drainOnce(ctx context.Context) error {
	jobs, err := w.queue.ClaimNext(ctx, w.cfg.BatchSize, time.Now())
	if err != nil {
		return err
	}
	if len(jobs) == 0 {
		return nil
	}
	g, gctx := errgroup.WithContext(ctx)
	for _, job := range jobs {
		job := job
		g.Go(func() error {
			w.process(gctx, job)
			return nil
		})
	}
	return g.Wait()
}

func (w *Worker) process(ctx context.Context, job *types.InboundMediaJob) {
	err := w.fetcher.Fetch(ctx, job)
	if err == nil {
		if _, completeErr := w.queue.Complete(ctx, job.ID); completeErr != nil {
			w.log.Error("Media job complete transition failed", "job_id", job.ID, "error", completeErr)
		}
		return
	}
	if errors.Is(err, ErrPermanent) || job.Attempts >= w.cfg.MaxAttempts {
		if _, failErr := w.queue.Fail(ctx, job.ID, err); failErr != nil {
			w.log.Error("Media job fail transition failed", "job_id", job.ID, "error", failErr)
		}
		return
	}
	retryAt := time.Now().Add(backoffDelay(job.Attempts, w.cfg.BackoffBase, w.cfg.BackoffCap))
	w.log.Warn("Media fetch failed, rescheduling",
		"job_id", job.ID, "attempts", job.Attempts, "retry_at", retryAt, "error", err,
	)
	if _, reschedErr := w.queue.Reschedule(ctx, job.ID, retryAt, err); reschedErr != nil {
		w.log.Error("Media job reschedule transition failed", "job_id", job.ID, "error", reschedErr)
	}
}

// backoffDelay doubles per attempt starting from base, capped. Attempt 1
// waits base, attempt 2 waits 2*base, and so on.
func backoffDelay(attempts int, base, cap time.Duration) time.Duration {
	if attempts < 1 {
		attempts = 1
	}
	delay := base
	for i := 1; i < attempts; i++ {
		delay *= 2
		if delay >= cap {
			return cap
		}
	}
	if delay > cap {
		return cap
	}
	return delay
}
