package embeddings

import "context"

// CustomClient is the extension point for self-hosted embedding backends.
// Selecting EMBEDDING_PROVIDER=custom is explicitly unsupported until a backend
// is plugged in; every call returns ErrNotImplemented.
type CustomClient struct{}

// NewCustomClient creates the unimplemented custom provider stub.
func NewCustomClient() *CustomClient {
	return &CustomClient{}
}

// CreateEmbedding always returns ErrNotImplemented.
func (c *CustomClient) CreateEmbedding(_ context.Context, _ string) ([]float32, error) {
	return nil, ErrNotImplemented
}

var _ Client = (*CustomClient)(nil)
