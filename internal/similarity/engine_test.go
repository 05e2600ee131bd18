package similarity

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scholarnet/reco/internal/models"
	"github.com/scholarnet/reco/pkg/vector"
)

type mockEmbeddingsReader struct {
	listFunc func(ctx context.Context, contentType models.ContentType, model string) ([]models.StoredEmbedding, error)
}

func (m *mockEmbeddingsReader) ListByPartition(
	ctx context.Context, contentType models.ContentType, model string,
) ([]models.StoredEmbedding, error) {
	if m.listFunc != nil {
		return m.listFunc(ctx, contentType, model)
	}

	return nil, nil
}

func fixedPartition(stored []models.StoredEmbedding) *mockEmbeddingsReader {
	return &mockEmbeddingsReader{
		listFunc: func(_ context.Context, _ models.ContentType, _ string) ([]models.StoredEmbedding, error) {
			return stored, nil
		},
	}
}

func TestEngine_FindSimilar(t *testing.T) {
	ctx := context.Background()

	stored := []models.StoredEmbedding{
		{ContentID: "aligned", Vector: []float32{1, 0}},
		{ContentID: "close", Vector: []float32{0.9, 0.1}},
		{ContentID: "orthogonal", Vector: []float32{0, 1}},
		{ContentID: "opposite", Vector: []float32{-1, 0}},
	}

	t.Run("ranks by descending similarity", func(t *testing.T) {
		engine := NewEngine(fixedPartition(stored), "local-384", 0)

		matches, err := engine.FindSimilar(ctx, []float32{1, 0}, models.ContentTypePaper, nil, 10)
		require.NoError(t, err)
		require.Len(t, matches, 3)

		assert.Equal(t, "aligned", matches[0].ContentID)
		assert.Equal(t, "close", matches[1].ContentID)
		assert.Equal(t, "orthogonal", matches[2].ContentID)
		assert.InDelta(t, 1.0, matches[0].Similarity, 1e-9)
	})

	t.Run("applies the configured floor", func(t *testing.T) {
		engine := NewEngine(fixedPartition(stored), "local-384", 0.5)

		matches, err := engine.FindSimilar(ctx, []float32{1, 0}, models.ContentTypePaper, nil, 10)
		require.NoError(t, err)
		require.Len(t, matches, 2)

		for _, m := range matches {
			assert.GreaterOrEqual(t, m.Similarity, 0.5)
		}
	})

	t.Run("out-of-range floor falls back to the default", func(t *testing.T) {
		engine := NewEngine(fixedPartition(stored), "local-384", -1)

		matches, err := engine.FindSimilar(ctx, []float32{1, 0}, models.ContentTypePaper, nil, 10)
		require.NoError(t, err)
		require.Len(t, matches, 2)

		for _, m := range matches {
			assert.GreaterOrEqual(t, m.Similarity, DefaultMinSimilarity)
		}
	})

	t.Run("excludes requested ids", func(t *testing.T) {
		engine := NewEngine(fixedPartition(stored), "local-384", 0)

		matches, err := engine.FindSimilar(
			ctx, []float32{1, 0}, models.ContentTypePaper, []string{"aligned", "close"}, 10,
		)
		require.NoError(t, err)
		require.Len(t, matches, 1)
		assert.Equal(t, "orthogonal", matches[0].ContentID)
	})

	t.Run("truncates to limit", func(t *testing.T) {
		engine := NewEngine(fixedPartition(stored), "local-384", 0)

		matches, err := engine.FindSimilar(ctx, []float32{1, 0}, models.ContentTypePaper, nil, 2)
		require.NoError(t, err)
		assert.Len(t, matches, 2)
		assert.Equal(t, "aligned", matches[0].ContentID)
	})

	t.Run("non-positive limit returns nothing without scanning", func(t *testing.T) {
		scanned := false
		reader := &mockEmbeddingsReader{
			listFunc: func(_ context.Context, _ models.ContentType, _ string) ([]models.StoredEmbedding, error) {
				scanned = true

				return stored, nil
			},
		}
		engine := NewEngine(reader, "local-384", 0)

		matches, err := engine.FindSimilar(ctx, []float32{1, 0}, models.ContentTypePaper, nil, 0)
		require.NoError(t, err)
		assert.Nil(t, matches)
		assert.False(t, scanned)
	})

	t.Run("zero query vector matches nothing above floor", func(t *testing.T) {
		engine := NewEngine(fixedPartition(stored), "local-384", 0.01)

		matches, err := engine.FindSimilar(ctx, []float32{0, 0}, models.ContentTypePaper, nil, 10)
		require.NoError(t, err)
		assert.Empty(t, matches)
	})

	t.Run("dimension mismatch surfaces as error", func(t *testing.T) {
		engine := NewEngine(fixedPartition(stored), "local-384", 0)

		_, err := engine.FindSimilar(ctx, []float32{1, 0, 0}, models.ContentTypePaper, nil, 10)
		require.ErrorIs(t, err, vector.ErrDimensionMismatch)
	})

	t.Run("scan error is wrapped", func(t *testing.T) {
		scanErr := errors.New("connection refused")
		reader := &mockEmbeddingsReader{
			listFunc: func(_ context.Context, _ models.ContentType, _ string) ([]models.StoredEmbedding, error) {
				return nil, scanErr
			},
		}
		engine := NewEngine(reader, "local-384", 0)

		_, err := engine.FindSimilar(ctx, []float32{1, 0}, models.ContentTypePaper, nil, 10)
		require.ErrorIs(t, err, scanErr)
	})
}

func TestEngine_SimilarityFor(t *testing.T) {
	ctx := context.Background()

	stored := []models.StoredEmbedding{
		{ContentID: "candidate", Vector: []float32{1, 1}},
		{ContentID: "closer-but-not-asked", Vector: []float32{1, 0}},
		{ContentID: "also-closer", Vector: []float32{0.9, 0.1}},
	}

	t.Run("scores only the requested ids", func(t *testing.T) {
		engine := NewEngine(fixedPartition(stored), "local-384", 0.5)

		sims, err := engine.SimilarityFor(ctx, []float32{1, 0}, models.ContentTypePaper, []string{"candidate"})
		require.NoError(t, err)
		require.Len(t, sims, 1)

		// Closer items outside the requested set must not displace the
		// candidate's own similarity.
		assert.InDelta(t, 1/math.Sqrt2, sims["candidate"], 1e-6)
	})

	t.Run("no floor is applied", func(t *testing.T) {
		engine := NewEngine(fixedPartition([]models.StoredEmbedding{
			{ContentID: "opposite", Vector: []float32{-1, 0}},
		}), "local-384", 0.5)

		sims, err := engine.SimilarityFor(ctx, []float32{1, 0}, models.ContentTypePaper, []string{"opposite"})
		require.NoError(t, err)
		assert.InDelta(t, -1.0, sims["opposite"], 1e-9)
	})

	t.Run("ids without a stored embedding are absent", func(t *testing.T) {
		engine := NewEngine(fixedPartition(stored), "local-384", 0.5)

		sims, err := engine.SimilarityFor(
			ctx, []float32{1, 0}, models.ContentTypePaper, []string{"candidate", "never-embedded"},
		)
		require.NoError(t, err)
		require.Len(t, sims, 1)
		assert.NotContains(t, sims, "never-embedded")
	})

	t.Run("empty id set skips the scan", func(t *testing.T) {
		scanned := false
		reader := &mockEmbeddingsReader{
			listFunc: func(_ context.Context, _ models.ContentType, _ string) ([]models.StoredEmbedding, error) {
				scanned = true

				return stored, nil
			},
		}
		engine := NewEngine(reader, "local-384", 0.5)

		sims, err := engine.SimilarityFor(ctx, []float32{1, 0}, models.ContentTypePaper, nil)
		require.NoError(t, err)
		assert.Nil(t, sims)
		assert.False(t, scanned)
	})

	t.Run("scan error is wrapped", func(t *testing.T) {
		scanErr := errors.New("connection refused")
		reader := &mockEmbeddingsReader{
			listFunc: func(_ context.Context, _ models.ContentType, _ string) ([]models.StoredEmbedding, error) {
				return nil, scanErr
			},
		}
		engine := NewEngine(reader, "local-384", 0.5)

		_, err := engine.SimilarityFor(ctx, []float32{1, 0}, models.ContentTypePaper, []string{"candidate"})
		require.ErrorIs(t, err, scanErr)
	})
}
