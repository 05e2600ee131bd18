package jobs

import (
	"context"
	"errors"
	"testing"

	"github.com/riverqueue/river"
	"github.com/riverqueue/river/rivertype"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scholarnet/reco/internal/models"
	"github.com/scholarnet/reco/internal/service"
)

type mockBackfiller struct {
	backfillFunc func(ctx context.Context, contentType models.ContentType, batchSize int) (service.BackfillStats, error)
}

func (m *mockBackfiller) BatchBackfill(
	ctx context.Context, contentType models.ContentType, batchSize int,
) (service.BackfillStats, error) {
	if m.backfillFunc != nil {
		return m.backfillFunc(ctx, contentType, batchSize)
	}

	return service.BackfillStats{}, nil
}

func backfillJob(contentType string, batchSize int) *river.Job[EmbeddingBackfillArgs] {
	return &river.Job[EmbeddingBackfillArgs]{
		JobRow: &rivertype.JobRow{ID: 1},
		Args:   EmbeddingBackfillArgs{ContentType: contentType, BatchSize: batchSize},
	}
}

func TestBackfillWorker_Work(t *testing.T) {
	ctx := context.Background()

	t.Run("runs one batch for the content type", func(t *testing.T) {
		var (
			gotType models.ContentType
			gotSize int
		)

		store := &mockBackfiller{
			backfillFunc: func(_ context.Context, contentType models.ContentType, batchSize int) (service.BackfillStats, error) {
				gotType, gotSize = contentType, batchSize

				return service.BackfillStats{Processed: 3}, nil
			},
		}
		worker := NewBackfillWorker(BackfillWorkerDeps{Store: store})

		err := worker.Work(ctx, backfillJob("post", 200))
		require.NoError(t, err)
		assert.Equal(t, models.ContentTypePost, gotType)
		assert.Equal(t, 200, gotSize)
	})

	t.Run("unknown content type completes without retrying", func(t *testing.T) {
		called := false
		store := &mockBackfiller{
			backfillFunc: func(_ context.Context, _ models.ContentType, _ int) (service.BackfillStats, error) {
				called = true

				return service.BackfillStats{}, nil
			},
		}
		worker := NewBackfillWorker(BackfillWorkerDeps{Store: store})

		err := worker.Work(ctx, backfillJob("video", 200))
		require.NoError(t, err, "a bad content type is not retryable")
		assert.False(t, called)
	})

	t.Run("batch failure reaches the retry machinery", func(t *testing.T) {
		batchErr := errors.New("listing failed")
		store := &mockBackfiller{
			backfillFunc: func(_ context.Context, _ models.ContentType, _ int) (service.BackfillStats, error) {
				return service.BackfillStats{}, batchErr
			},
		}
		worker := NewBackfillWorker(BackfillWorkerDeps{Store: store})

		err := worker.Work(ctx, backfillJob("paper", 200))
		require.ErrorIs(t, err, batchErr)
	})

	t.Run("job timeout is bounded", func(t *testing.T) {
		worker := NewBackfillWorker(BackfillWorkerDeps{Store: &mockBackfiller{}})
		assert.Equal(t, backfillJobTimeout, worker.Timeout(backfillJob("post", 200)))
	})
}
