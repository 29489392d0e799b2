package port

import (
	"context"

	"ragbench/internal/domain"
)

// Embedder generates vector embeddings for text.
type Embedder interface {
	// Embed returns one vector per input text, in input order.
	// An empty batch yields an empty result and no error.
	Embed(ctx context.Context, texts []string) ([][]float32, error)

	// Dimension returns the embedding vector dimension.
	Dimension() int

	// Info describes the backing model for diagnostics and persistence.
	Info() domain.ModelInfo
}
