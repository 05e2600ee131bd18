package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/scholarnet/reco/internal/models"
	"github.com/scholarnet/reco/internal/repository"
)

// Related item bounds.
const (
	DefaultRelatedLimit = 10
	MaxRelatedLimit     = 50
)

// EmbeddingKeyReader fetches one stored vector by its composite key.
type EmbeddingKeyReader interface {
	GetByKey(ctx context.Context, key models.EmbeddingKey) ([]float32, error)
}

// SimilarSearcher finds the top matches for a query vector within a partition.
type SimilarSearcher interface {
	FindSimilar(ctx context.Context, queryVector []float32, contentType models.ContentType, excludeIDs []string, limit int) ([]models.SimilarityMatch, error)
}

// RelatedService serves "more like this": items of the same type closest to a
// given item's stored embedding, above the engine's similarity floor.
type RelatedService struct {
	embeddings EmbeddingKeyReader
	engine     SimilarSearcher
	model      string
	logger     *slog.Logger
}

// RelatedServiceParams configures RelatedService. Logger may be nil.
type RelatedServiceParams struct {
	Embeddings EmbeddingKeyReader
	Engine     SimilarSearcher
	Model      string
	Logger     *slog.Logger
}

// NewRelatedService creates a RelatedService.
func NewRelatedService(p RelatedServiceParams) *RelatedService {
	logger := p.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &RelatedService{
		embeddings: p.Embeddings,
		engine:     p.Engine,
		model:      p.Model,
		logger:     logger,
	}
}

// Related returns up to limit items of itemType similar to the given item,
// excluding the item itself. An item with no stored embedding yet (never
// surfaced through similarity) yields an empty result, not an error.
func (s *RelatedService) Related(
	ctx context.Context, itemType models.ItemType, itemID string, limit int,
) ([]models.SimilarityMatch, error) {
	if limit <= 0 {
		limit = DefaultRelatedLimit
	}

	if limit > MaxRelatedLimit {
		limit = MaxRelatedLimit
	}

	contentType := itemType.ContentType()

	vec, err := s.embeddings.GetByKey(ctx, models.EmbeddingKey{
		ContentType: contentType,
		ContentID:   itemID,
		Model:       s.model,
	})
	if err != nil {
		if errors.Is(err, repository.ErrEmbeddingNotFound) {
			s.logger.Debug("related: item not embedded yet", "item_type", itemType, "item_id", itemID)

			return nil, nil
		}

		return nil, fmt.Errorf("read %s/%s embedding: %w", contentType, itemID, err)
	}

	matches, err := s.engine.FindSimilar(ctx, vec, contentType, []string{itemID}, limit)
	if err != nil {
		return nil, fmt.Errorf("find related %s/%s: %w", contentType, itemID, err)
	}

	return matches, nil
}
