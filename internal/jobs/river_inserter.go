package jobs

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/rivertype"
)

// RiverJobInserter implements JobInserter using the River client.
type RiverJobInserter struct {
	client *river.Client[pgx.Tx]
}

// NewRiverJobInserter creates a new River-based job inserter.
func NewRiverJobInserter(client *river.Client[pgx.Tx]) *RiverJobInserter {
	return &RiverJobInserter{client: client}
}

// InsertBackfillJob enqueues a backfill batch, deduplicated by args so repeated
// CLI runs don't stack identical pending batches.
func (r *RiverJobInserter) InsertBackfillJob(ctx context.Context, args EmbeddingBackfillArgs) error {
	_, err := r.client.Insert(ctx, args, &river.InsertOpts{
		Queue: QueueEmbeddings,
		UniqueOpts: river.UniqueOpts{
			ByArgs: true,
			ByState: []rivertype.JobState{
				rivertype.JobStatePending,
				rivertype.JobStateAvailable,
				rivertype.JobStateRunning,
				rivertype.JobStateRetryable,
				rivertype.JobStateScheduled,
			},
		},
	})
	if err != nil {
		return fmt.Errorf("insert backfill job: %w", err)
	}

	return nil
}
