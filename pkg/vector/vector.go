// Package vector provides shared vector math for embeddings (cosine similarity, L2 normalization).
package vector

import (
	"errors"
	"fmt"
	"math"
)

// ErrDimensionMismatch is returned when two vectors of different lengths are compared.
// Same-model embeddings are same-length by construction, so hitting this is a
// programming error (wrong model key), not a data condition.
var ErrDimensionMismatch = errors.New("vector: dimension mismatch")

// Cosine returns the cosine similarity of a and b, accumulating in float64.
// The similarity of a zero-magnitude vector against anything is 0 (never NaN).
func Cosine(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("%w: got %d and %d", ErrDimensionMismatch, len(a), len(b))
	}

	var dot, normA, normB float64

	for i := range a {
		av := float64(a[i])
		bv := float64(b[i])
		dot += av * bv
		normA += av * av
		normB += bv * bv
	}

	if normA == 0 || normB == 0 {
		return 0, nil
	}

	return dot / (math.Sqrt(normA) * math.Sqrt(normB)), nil
}

// NormalizeL2 normalizes v to unit length in place. A zero vector is left unchanged.
func NormalizeL2(v []float32) {
	var sumSquares float64

	for _, x := range v {
		sumSquares += float64(x) * float64(x)
	}

	if sumSquares == 0 {
		return
	}

	magnitude := math.Sqrt(sumSquares)
	for i := range v {
		v[i] = float32(float64(v[i]) / magnitude)
	}
}
