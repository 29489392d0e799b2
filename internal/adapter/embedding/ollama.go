package embedding

import (
	"context"
	"fmt"
	"time"

	"ragbench/internal/domain"
)

const (
	defaultOllamaModel   = "nomic-embed-text"
	defaultOllamaBaseURL = "http://localhost:11434/v1"
	probeText            = "dimension probe"
)

// NewOllamaEmbedder connects to a local model server through its
// OpenAI-compatible endpoint. The dimension is read from one probe
// embedding, so an unreachable server fails construction.
func NewOllamaEmbedder(ctx context.Context, cfg OpenAIConfig) (*OpenAIEmbedder, error) {
	if cfg.Model == "" {
		cfg.Model = defaultOllamaModel
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultOllamaBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 120 * time.Second
	}

	e := newOpenAICompatible(cfg, "ollama", 0)

	dimension, err := e.probeDimension(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: local model %s at %s: %w", domain.ErrEmbeddingUnavailable, cfg.Model, cfg.BaseURL, err)
	}
	if cfg.Dimension > 0 && cfg.Dimension != dimension {
		return nil, fmt.Errorf("%w: model %s produces %d values, configured %d", domain.ErrDimensionMismatch, cfg.Model, dimension, cfg.Dimension)
	}
	e.dimension = dimension

	return e, nil
}

func (e *OpenAIEmbedder) probeDimension(ctx context.Context) (int, error) {
	// dimension 0 skips the width check in embedBatch
	vecs, err := e.embedBatch(ctx, []string{probeText})
	if err != nil {
		return 0, err
	}
	if len(vecs[0]) == 0 {
		return 0, fmt.Errorf("%w: empty probe embedding", domain.ErrUpstream)
	}
	return len(vecs[0]), nil
}
