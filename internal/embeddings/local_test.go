package embeddings

import (
	"context"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalClient_CreateEmbedding(t *testing.T) {
	ctx := context.Background()

	t.Run("deterministic for identical text", func(t *testing.T) {
		client := NewLocalClient()

		a, err := client.CreateEmbedding(ctx, "transformer architectures for protein folding")
		require.NoError(t, err)

		b, err := client.CreateEmbedding(ctx, "transformer architectures for protein folding")
		require.NoError(t, err)

		assert.Equal(t, a, b)
	})

	t.Run("returns the configured dimension", func(t *testing.T) {
		client := NewLocalClient()

		vec, err := client.CreateEmbedding(ctx, "some abstract")
		require.NoError(t, err)
		assert.Len(t, vec, LocalDimensions)

		small := NewLocalClientWithDimensions(8)

		vec, err = small.CreateEmbedding(ctx, "some abstract")
		require.NoError(t, err)
		assert.Len(t, vec, 8)
	})

	t.Run("output is unit length", func(t *testing.T) {
		client := NewLocalClient()

		vec, err := client.CreateEmbedding(ctx, "graph neural networks")
		require.NoError(t, err)

		var sum float64
		for _, x := range vec {
			sum += float64(x) * float64(x)
		}

		assert.InDelta(t, 1.0, math.Sqrt(sum), 1e-5)
	})

	t.Run("different text yields different vectors", func(t *testing.T) {
		client := NewLocalClient()

		a, err := client.CreateEmbedding(ctx, "quantum error correction")
		require.NoError(t, err)

		b, err := client.CreateEmbedding(ctx, "medieval manuscript dating")
		require.NoError(t, err)

		assert.NotEqual(t, a, b)
	})

	t.Run("input beyond the cap matches its truncation", func(t *testing.T) {
		client := NewLocalClient()
		long := strings.Repeat("a", MaxInputChars+500)

		full, err := client.CreateEmbedding(ctx, long)
		require.NoError(t, err)

		capped, err := client.CreateEmbedding(ctx, long[:MaxInputChars])
		require.NoError(t, err)

		assert.Equal(t, capped, full)
	})

	t.Run("blank input is rejected", func(t *testing.T) {
		client := NewLocalClient()

		_, err := client.CreateEmbedding(ctx, "   ")
		require.ErrorIs(t, err, ErrEmptyInput)
	})
}
