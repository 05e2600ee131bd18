// Package similarity computes query-time nearest neighbors with a linear scan
// over stored embeddings. O(N) per query by design: there is no vector index,
// which is acceptable at current scale and is the documented scaling ceiling.
package similarity

import (
	"context"
	"fmt"
	"sort"

	"github.com/scholarnet/reco/internal/models"
	"github.com/scholarnet/reco/pkg/vector"
)

// DefaultMinSimilarity is the similarity floor used when the engine is
// configured with an out-of-range value.
const DefaultMinSimilarity = 0.5

// EmbeddingsReader provides the partition scan the engine needs.
type EmbeddingsReader interface {
	ListByPartition(ctx context.Context, contentType models.ContentType, model string) ([]models.StoredEmbedding, error)
}

// Engine ranks stored embeddings by cosine similarity to a query vector.
type Engine struct {
	repo          EmbeddingsReader
	model         string
	minSimilarity float64
}

// NewEngine creates a similarity engine scanning the given model's partitions.
// minSimilarity is the floor applied by FindSimilar; values outside [0, 1]
// fall back to DefaultMinSimilarity.
func NewEngine(repo EmbeddingsReader, model string, minSimilarity float64) *Engine {
	if minSimilarity < 0 || minSimilarity > 1 {
		minSimilarity = DefaultMinSimilarity
	}

	return &Engine{repo: repo, model: model, minSimilarity: minSimilarity}
}

// FindSimilar returns up to limit matches from the contentType partition with
// similarity >= the configured floor, descending, excluding excludeIDs.
// Same-model vectors are same-length by construction; a length mismatch is a
// programming error and surfaces as vector.ErrDimensionMismatch.
func (e *Engine) FindSimilar(
	ctx context.Context,
	queryVector []float32,
	contentType models.ContentType,
	excludeIDs []string,
	limit int,
) ([]models.SimilarityMatch, error) {
	if limit <= 0 {
		return nil, nil
	}

	stored, err := e.repo.ListByPartition(ctx, contentType, e.model)
	if err != nil {
		return nil, fmt.Errorf("scan %s partition: %w", contentType, err)
	}

	excluded := make(map[string]struct{}, len(excludeIDs))
	for _, id := range excludeIDs {
		excluded[id] = struct{}{}
	}

	matches := make([]models.SimilarityMatch, 0, len(stored))

	for _, emb := range stored {
		if _, skip := excluded[emb.ContentID]; skip {
			continue
		}

		sim, err := vector.Cosine(queryVector, emb.Vector)
		if err != nil {
			return nil, fmt.Errorf("content %s/%s: %w", contentType, emb.ContentID, err)
		}

		if sim < e.minSimilarity {
			continue
		}

		matches = append(matches, models.SimilarityMatch{ContentID: emb.ContentID, Similarity: sim})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Similarity > matches[j].Similarity
	})

	if len(matches) > limit {
		matches = matches[:limit]
	}

	return matches, nil
}

// SimilarityFor returns the similarity of each listed content id to the query
// vector. Ids with no stored embedding are simply absent from the result. No
// floor is applied: this is the scoring path, and the scorer treats negative
// similarity as zero interest on its own.
func (e *Engine) SimilarityFor(
	ctx context.Context,
	queryVector []float32,
	contentType models.ContentType,
	contentIDs []string,
) (map[string]float64, error) {
	if len(contentIDs) == 0 {
		return nil, nil
	}

	stored, err := e.repo.ListByPartition(ctx, contentType, e.model)
	if err != nil {
		return nil, fmt.Errorf("scan %s partition: %w", contentType, err)
	}

	wanted := make(map[string]struct{}, len(contentIDs))
	for _, id := range contentIDs {
		wanted[id] = struct{}{}
	}

	out := make(map[string]float64, len(contentIDs))

	for _, emb := range stored {
		if _, ok := wanted[emb.ContentID]; !ok {
			continue
		}

		sim, err := vector.Cosine(queryVector, emb.Vector)
		if err != nil {
			return nil, fmt.Errorf("content %s/%s: %w", contentType, emb.ContentID, err)
		}

		out[emb.ContentID] = sim
	}

	return out, nil
}
