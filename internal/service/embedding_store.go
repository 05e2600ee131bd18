// Package service implements the recommendation engine: embedding store,
// scorer, mixer, recommendation/feedback/experiment services.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/scholarnet/reco/internal/embeddings"
	"github.com/scholarnet/reco/internal/models"
	"github.com/scholarnet/reco/internal/recoerrors"
	"github.com/scholarnet/reco/internal/repository"
)

// snippetMaxChars caps the stored source text snippet.
const snippetMaxChars = 500

// EmbeddingsRepo is the embedding persistence the store needs.
type EmbeddingsRepo interface {
	GetByKey(ctx context.Context, key models.EmbeddingKey) ([]float32, error)
	Insert(ctx context.Context, rec models.EmbeddingRecord) (inserted bool, err error)
}

// MissingEmbeddingLister lists content items lacking an embedding for a model.
type MissingEmbeddingLister interface {
	ListItemsMissingEmbedding(
		ctx context.Context, contentType models.ContentType, model string, limit int,
	) ([]repository.EmbeddableItem, error)
}

// BackfillStats reports a batch backfill run. Per-item failures count into
// Errors; the batch itself never fails on one bad item.
type BackfillStats struct {
	Processed int `json:"processed"`
	Errors    int `json:"errors"`
}

// EmbeddingStore owns embedding records: identity-keyed get-or-create with
// lazy generation through the configured provider. No other component holds
// vectors beyond a query's lifetime.
type EmbeddingStore struct {
	repo     EmbeddingsRepo
	content  MissingEmbeddingLister
	provider embeddings.Client
	model    string
	timeout  time.Duration
	logger   *slog.Logger
}

// EmbeddingStoreParams configures EmbeddingStore. Logger may be nil.
type EmbeddingStoreParams struct {
	Repo     EmbeddingsRepo
	Content  MissingEmbeddingLister
	Provider embeddings.Client
	Model    string
	Timeout  time.Duration
	Logger   *slog.Logger
}

// NewEmbeddingStore creates an EmbeddingStore.
func NewEmbeddingStore(p EmbeddingStoreParams) *EmbeddingStore {
	logger := p.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &EmbeddingStore{
		repo:     p.Repo,
		content:  p.Content,
		provider: p.Provider,
		model:    p.Model,
		timeout:  p.Timeout,
		logger:   logger,
	}
}

// Model returns the embedding model key the store writes under.
func (s *EmbeddingStore) Model() string {
	return s.model
}

// GetOrCreate returns the embedding for (contentType, contentID) under the
// store's model, generating and persisting it on first use.
//
// The cache key is identity, not a content hash: a hit returns the stored
// vector unchanged even when text differs, so callers must purge on meaningful
// content edits. On provider failure nothing is persisted and the error wraps
// recoerrors.ErrEmbeddingGeneration. Two concurrent misses may both call the
// provider; the duplicate insert is a no-op and both callers get the first
// writer's vector.
func (s *EmbeddingStore) GetOrCreate(
	ctx context.Context, contentType models.ContentType, contentID, text string,
) ([]float32, error) {
	key := models.EmbeddingKey{ContentType: contentType, ContentID: contentID, Model: s.model}

	vec, err := s.repo.GetByKey(ctx, key)
	if err == nil {
		return vec, nil
	}

	if !errors.Is(err, repository.ErrEmbeddingNotFound) {
		return nil, fmt.Errorf("embedding lookup: %w", err)
	}

	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	vec, err = s.provider.CreateEmbedding(callCtx, text)
	if err != nil {
		return nil, fmt.Errorf("%w: %s/%s: %w",
			recoerrors.ErrEmbeddingGeneration, contentType, contentID, err)
	}

	inserted, err := s.repo.Insert(ctx, models.EmbeddingRecord{
		Key:               key,
		Vector:            vec,
		SourceTextSnippet: truncateSnippet(text),
	})
	if err != nil {
		return nil, fmt.Errorf("embedding persist: %w", err)
	}

	if !inserted {
		// A concurrent request won the insert race; its vector is canonical.
		winner, err := s.repo.GetByKey(ctx, key)
		if err != nil {
			return nil, fmt.Errorf("embedding re-read after conflict: %w", err)
		}

		return winner, nil
	}

	return vec, nil
}

// BatchBackfill embeds up to batchSize items of the given type that have no
// embedding for the store's model. Per-item failures are counted and logged;
// the batch continues.
func (s *EmbeddingStore) BatchBackfill(
	ctx context.Context, contentType models.ContentType, batchSize int,
) (BackfillStats, error) {
	stats := BackfillStats{}

	items, err := s.content.ListItemsMissingEmbedding(ctx, contentType, s.model, batchSize)
	if err != nil {
		return stats, fmt.Errorf("list items for backfill: %w", err)
	}

	for _, item := range items {
		if _, err := s.GetOrCreate(ctx, contentType, item.ID, item.Text); err != nil {
			stats.Errors++

			s.logger.Warn("backfill: embedding failed",
				"content_type", contentType,
				"content_id", item.ID,
				"error", err,
			)

			continue
		}

		stats.Processed++
	}

	return stats, nil
}

// truncateSnippet caps the stored snippet at snippetMaxChars characters,
// cutting on a rune boundary so the snippet stays valid UTF-8.
func truncateSnippet(text string) string {
	if len(text) <= snippetMaxChars {
		return text
	}

	count := 0

	for i := range text {
		if count == snippetMaxChars {
			return text[:i]
		}

		count++
	}

	return text
}
