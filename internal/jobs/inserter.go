package jobs

import (
	"context"
)

// JobInserter enqueues backfill jobs without exposing River to callers.
type JobInserter interface {
	// InsertBackfillJob enqueues one embedding backfill batch.
	InsertBackfillJob(ctx context.Context, args EmbeddingBackfillArgs) error
}
