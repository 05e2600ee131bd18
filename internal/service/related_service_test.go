package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scholarnet/reco/internal/models"
	"github.com/scholarnet/reco/internal/repository"
)

type mockKeyReader struct {
	getFunc func(ctx context.Context, key models.EmbeddingKey) ([]float32, error)
}

func (m *mockKeyReader) GetByKey(ctx context.Context, key models.EmbeddingKey) ([]float32, error) {
	if m.getFunc != nil {
		return m.getFunc(ctx, key)
	}

	return nil, repository.ErrEmbeddingNotFound
}

type mockSimilarSearcher struct {
	findFunc func(ctx context.Context, queryVector []float32, contentType models.ContentType, excludeIDs []string, limit int) ([]models.SimilarityMatch, error)
}

func (m *mockSimilarSearcher) FindSimilar(
	ctx context.Context, queryVector []float32, contentType models.ContentType,
	excludeIDs []string, limit int,
) ([]models.SimilarityMatch, error) {
	if m.findFunc != nil {
		return m.findFunc(ctx, queryVector, contentType, excludeIDs, limit)
	}

	return nil, nil
}

func TestRelatedService_Related(t *testing.T) {
	ctx := context.Background()

	t.Run("finds neighbors of the item's stored vector", func(t *testing.T) {
		vec := []float32{0.6, 0.8}

		embeddings := &mockKeyReader{
			getFunc: func(_ context.Context, key models.EmbeddingKey) ([]float32, error) {
				assert.Equal(t, models.EmbeddingKey{
					ContentType: models.ContentTypePaper,
					ContentID:   "paper-1",
					Model:       "local-384",
				}, key)

				return vec, nil
			},
		}
		engine := &mockSimilarSearcher{
			findFunc: func(_ context.Context, queryVector []float32, contentType models.ContentType, excludeIDs []string, limit int) ([]models.SimilarityMatch, error) {
				assert.Equal(t, vec, queryVector)
				assert.Equal(t, models.ContentTypePaper, contentType)
				assert.Equal(t, []string{"paper-1"}, excludeIDs)
				assert.Equal(t, 3, limit)

				return []models.SimilarityMatch{{ContentID: "paper-2", Similarity: 0.92}}, nil
			},
		}
		svc := NewRelatedService(RelatedServiceParams{Embeddings: embeddings, Engine: engine, Model: "local-384"})

		matches, err := svc.Related(ctx, models.ItemTypePaper, "paper-1", 3)
		require.NoError(t, err)
		require.Len(t, matches, 1)
		assert.Equal(t, "paper-2", matches[0].ContentID)
	})

	t.Run("unembedded item yields an empty result", func(t *testing.T) {
		engineCalled := false
		engine := &mockSimilarSearcher{
			findFunc: func(_ context.Context, _ []float32, _ models.ContentType, _ []string, _ int) ([]models.SimilarityMatch, error) {
				engineCalled = true

				return nil, nil
			},
		}
		svc := NewRelatedService(RelatedServiceParams{Embeddings: &mockKeyReader{}, Engine: engine, Model: "local-384"})

		matches, err := svc.Related(ctx, models.ItemTypePost, "never-seen", 5)
		require.NoError(t, err)
		assert.Nil(t, matches)
		assert.False(t, engineCalled)
	})

	t.Run("limit defaults and caps", func(t *testing.T) {
		var gotLimits []int

		embeddings := &mockKeyReader{
			getFunc: func(_ context.Context, _ models.EmbeddingKey) ([]float32, error) {
				return []float32{1, 0}, nil
			},
		}
		engine := &mockSimilarSearcher{
			findFunc: func(_ context.Context, _ []float32, _ models.ContentType, _ []string, limit int) ([]models.SimilarityMatch, error) {
				gotLimits = append(gotLimits, limit)

				return nil, nil
			},
		}
		svc := NewRelatedService(RelatedServiceParams{Embeddings: embeddings, Engine: engine, Model: "local-384"})

		_, err := svc.Related(ctx, models.ItemTypePost, "p1", 0)
		require.NoError(t, err)

		_, err = svc.Related(ctx, models.ItemTypePost, "p1", MaxRelatedLimit+10)
		require.NoError(t, err)

		assert.Equal(t, []int{DefaultRelatedLimit, MaxRelatedLimit}, gotLimits)
	})

	t.Run("embedding read failure surfaces", func(t *testing.T) {
		readErr := errors.New("db down")
		embeddings := &mockKeyReader{
			getFunc: func(_ context.Context, _ models.EmbeddingKey) ([]float32, error) {
				return nil, readErr
			},
		}
		svc := NewRelatedService(RelatedServiceParams{Embeddings: embeddings, Engine: &mockSimilarSearcher{}, Model: "local-384"})

		_, err := svc.Related(ctx, models.ItemTypePost, "p1", 5)
		require.ErrorIs(t, err, readErr)
	})

	t.Run("engine failure surfaces", func(t *testing.T) {
		scanErr := errors.New("scan failed")
		embeddings := &mockKeyReader{
			getFunc: func(_ context.Context, _ models.EmbeddingKey) ([]float32, error) {
				return []float32{1, 0}, nil
			},
		}
		engine := &mockSimilarSearcher{
			findFunc: func(_ context.Context, _ []float32, _ models.ContentType, _ []string, _ int) ([]models.SimilarityMatch, error) {
				return nil, scanErr
			},
		}
		svc := NewRelatedService(RelatedServiceParams{Embeddings: embeddings, Engine: engine, Model: "local-384"})

		_, err := svc.Related(ctx, models.ItemTypePost, "p1", 5)
		require.ErrorIs(t, err, scanErr)
	})
}
