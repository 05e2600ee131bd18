// Package embeddings provides the embedding provider adapter: a Client interface
// with remote (OpenAI, Gemini) and deterministic local fallback implementations,
// selected by configuration at startup.
package embeddings

import (
	"context"
	"errors"
)

// MaxInputChars is the input cap applied before any provider call.
// Providers limit input size; longer text is truncated, not rejected.
const MaxInputChars = 8000

// ErrNotImplemented is returned by the custom provider stub, a deliberate
// extension point for self-hosted embedding backends.
var ErrNotImplemented = errors.New("embeddings: custom provider not implemented")

// Client generates embedding vectors for text.
// Implemented by provider-specific clients (OpenAI, Google Gemini, local fallback).
type Client interface {
	CreateEmbedding(ctx context.Context, input string) ([]float32, error)
}

// truncateInput caps input at MaxInputChars characters. The cut lands on a rune
// boundary so providers never see a split UTF-8 sequence.
func truncateInput(input string) string {
	if len(input) <= MaxInputChars {
		return input
	}

	count := 0

	for i := range input {
		if count == MaxInputChars {
			return input[:i]
		}

		count++
	}

	return input
}
