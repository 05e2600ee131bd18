package embeddings

import (
	"context"
	"hash/fnv"
	"math"
	"strings"

	"github.com/scholarnet/reco/pkg/vector"
)

// LocalDimensions is the fixed dimension of the local fallback provider.
const LocalDimensions = 384

// LocalClient is the fallback embedding provider used when no remote provider is
// configured. It derives a fixed-dimension unit vector from a hash of the input
// via a sinusoidal expansion. The output is NOT semantically meaningful:
// similarity-based recommendations become near-random but remain repeatable for
// the same text, which keeps the pipeline exercisable without an API key.
type LocalClient struct {
	dimensions int
}

// NewLocalClient creates the deterministic fallback client (384 dimensions).
func NewLocalClient() *LocalClient {
	return &LocalClient{dimensions: LocalDimensions}
}

// NewLocalClientWithDimensions creates a fallback client with custom dimensions,
// for tests that want short vectors.
func NewLocalClientWithDimensions(dimensions int) *LocalClient {
	return &LocalClient{dimensions: dimensions}
}

// CreateEmbedding returns a deterministic pseudo-embedding for the given text.
// Side-effect free; identical text always yields the identical vector.
func (c *LocalClient) CreateEmbedding(_ context.Context, input string) ([]float32, error) {
	input = strings.TrimSpace(truncateInput(input))
	if input == "" {
		return nil, ErrEmptyInput
	}

	h := fnv.New64a()
	_, _ = h.Write([]byte(input))
	seed := h.Sum64()

	// Map the hash to a phase in [0, 2π) and expand it over harmonics so that
	// different texts spread across the unit sphere.
	phase := float64(seed) / float64(math.MaxUint64) * 2 * math.Pi

	out := make([]float32, c.dimensions)
	for i := range out {
		out[i] = float32(math.Sin(phase * float64(i+1)))
	}

	vector.NormalizeL2(out)

	return out, nil
}

var _ Client = (*LocalClient)(nil)
