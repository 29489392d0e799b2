package port

import (
	"context"

	"ragbench/internal/domain"
)

// VectorIndex is one named similarity index.
type VectorIndex interface {
	AddDocuments(ctx context.Context, docs []domain.Document) (int, error)

	AddTexts(ctx context.Context, texts []string, metadatas []map[string]any) ([]string, error)

	Search(ctx context.Context, query string, topK int) ([]domain.SearchResult, error)

	Count() int

	Clear() error

	Stats() domain.IndexStats

	// Generation changes whenever the index contents change.
	Generation() uint64
}

// IndexProvider resolves named indices.
type IndexProvider interface {
	Get(name string) (VectorIndex, error)
}
