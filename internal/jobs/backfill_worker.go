package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/riverqueue/river"
	"golang.org/x/time/rate"

	"github.com/scholarnet/reco/internal/models"
	"github.com/scholarnet/reco/internal/observability"
	"github.com/scholarnet/reco/internal/service"
)

// backfillJobTimeout bounds one batch; a stuck provider must not pin a worker slot.
const backfillJobTimeout = 10 * time.Minute

// Backfiller runs one embedding backfill batch for a content type.
type Backfiller interface {
	BatchBackfill(ctx context.Context, contentType models.ContentType, batchSize int) (service.BackfillStats, error)
}

// BackfillWorkerDeps holds the dependencies for the backfill worker.
type BackfillWorkerDeps struct {
	Store       Backfiller
	RateLimiter *rate.Limiter
	Metrics     observability.EmbeddingMetrics
	Logger      *slog.Logger
}

// BackfillWorker processes embedding backfill jobs: each job embeds one batch
// of items missing an embedding for the active model.
type BackfillWorker struct {
	river.WorkerDefaults[EmbeddingBackfillArgs]
	deps BackfillWorkerDeps
}

// NewBackfillWorker creates a backfill worker with the given dependencies.
func NewBackfillWorker(deps BackfillWorkerDeps) *BackfillWorker {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}

	return &BackfillWorker{deps: deps}
}

// Timeout bounds a single backfill job run.
func (w *BackfillWorker) Timeout(*river.Job[EmbeddingBackfillArgs]) time.Duration {
	return backfillJobTimeout
}

// Work runs one backfill batch. Per-item provider failures are absorbed by the
// store and reported in stats; only batch-level failures (bad args, listing
// errors) reach River's retry machinery.
func (w *BackfillWorker) Work(ctx context.Context, job *river.Job[EmbeddingBackfillArgs]) error {
	args := job.Args

	contentType := models.ContentType(args.ContentType)
	if !contentType.Valid() {
		// A bad content type won't be fixed by retrying; complete the job.
		w.deps.Logger.Error("backfill job with unknown content type",
			"job_id", job.ID, "content_type", args.ContentType)

		return nil
	}

	if w.deps.RateLimiter != nil {
		if err := w.deps.RateLimiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limit wait: %w", err)
		}
	}

	stats, err := w.deps.Store.BatchBackfill(ctx, contentType, args.BatchSize)
	if err != nil {
		w.deps.Logger.Error("backfill batch failed",
			"job_id", job.ID, "content_type", contentType, "error", err)

		return err
	}

	if w.deps.Metrics != nil {
		w.deps.Metrics.RecordBackfill(ctx, string(contentType), stats.Processed, stats.Errors)
	}

	w.deps.Logger.Info("backfill batch complete",
		"job_id", job.ID,
		"content_type", contentType,
		"processed", stats.Processed,
		"errors", stats.Errors,
	)

	return nil
}
