// Package jobs provides River job workers for async embedding work.
package jobs

// QueueEmbeddings is the River queue backfill jobs run on, kept separate from
// the default queue so embedding traffic cannot starve other work.
const QueueEmbeddings = "embeddings"

// EmbeddingBackfillArgs contains the arguments for one embedding backfill batch.
type EmbeddingBackfillArgs struct {
	// ContentType selects the partition to backfill: "post", "paper", or "user_profile".
	ContentType string `json:"content_type"`

	// BatchSize caps how many missing embeddings this run generates.
	BatchSize int `json:"batch_size"`
}

// Kind returns the job type identifier for River.
func (EmbeddingBackfillArgs) Kind() string { return "embedding_backfill" }
