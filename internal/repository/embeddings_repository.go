// Package repository provides pgx data access for embeddings, content, feedback,
// experiment counters, and sessions.
package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/scholarnet/reco/internal/models"
)

// ErrEmbeddingNotFound is returned when no embedding row exists for the given key.
var ErrEmbeddingNotFound = errors.New("embedding not found for content and model")

// EmbeddingsRepository handles data access for the embeddings table.
// One row per (content_type, content_id, model); rows are never updated in place.
type EmbeddingsRepository struct {
	db *pgxpool.Pool
}

// NewEmbeddingsRepository creates a new embeddings repository.
func NewEmbeddingsRepository(db *pgxpool.Pool) *EmbeddingsRepository {
	return &EmbeddingsRepository{db: db}
}

// GetByKey returns the stored vector for the given key.
// Returns ErrEmbeddingNotFound when no row exists.
func (r *EmbeddingsRepository) GetByKey(ctx context.Context, key models.EmbeddingKey) ([]float32, error) {
	var vec pgvector.Vector

	err := r.db.QueryRow(ctx,
		`SELECT embedding FROM embeddings WHERE content_type = $1 AND content_id = $2 AND model = $3`,
		string(key.ContentType), key.ContentID, key.Model,
	).Scan(&vec)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrEmbeddingNotFound
		}

		return nil, fmt.Errorf("get embedding: %w", err)
	}

	return vec.Slice(), nil
}

// Insert persists a new embedding row. A concurrent writer may have inserted the
// same key first; the conflict is a no-op (first writer wins) and Insert reports
// inserted=false so the caller can re-read the winning row.
func (r *EmbeddingsRepository) Insert(ctx context.Context, rec models.EmbeddingRecord) (inserted bool, err error) {
	tag, err := r.db.Exec(ctx, `
		INSERT INTO embeddings (content_type, content_id, model, embedding, source_text_snippet, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (content_type, content_id, model) DO NOTHING`,
		string(rec.Key.ContentType), rec.Key.ContentID, rec.Key.Model,
		pgvector.NewVector(rec.Vector), rec.SourceTextSnippet, time.Now(),
	)
	if err != nil {
		return false, fmt.Errorf("embeddings insert: %w", err)
	}

	return tag.RowsAffected() > 0, nil
}

// ListByPartition returns all stored embeddings for one (content type, model)
// partition. The similarity engine scans these linearly; there is no vector
// index here, which is the documented scaling ceiling of this design.
func (r *EmbeddingsRepository) ListByPartition(
	ctx context.Context, contentType models.ContentType, model string,
) ([]models.StoredEmbedding, error) {
	rows, err := r.db.Query(ctx,
		`SELECT content_id, embedding FROM embeddings WHERE content_type = $1 AND model = $2`,
		string(contentType), model,
	)
	if err != nil {
		return nil, fmt.Errorf("list embeddings: %w", err)
	}
	defer rows.Close()

	var out []models.StoredEmbedding

	for rows.Next() {
		var (
			id  string
			vec pgvector.Vector
		)

		if err := rows.Scan(&id, &vec); err != nil {
			return nil, fmt.Errorf("scan embedding: %w", err)
		}

		out = append(out, models.StoredEmbedding{ContentID: id, Vector: vec.Slice()})
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating embeddings: %w", err)
	}

	return out, nil
}

// PurgeModel deletes all embedding rows for the given model key. Used after a
// model upgrade once no caller reads the old partition anymore.
func (r *EmbeddingsRepository) PurgeModel(ctx context.Context, model string) (int64, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM embeddings WHERE model = $1`, model)
	if err != nil {
		return 0, fmt.Errorf("purge embeddings: %w", err)
	}

	return tag.RowsAffected(), nil
}
