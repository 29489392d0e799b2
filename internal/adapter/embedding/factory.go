package embedding

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog"

	"ragbench/config"
	"ragbench/internal/port"
)

// New selects the embedding strategy named by cfg.Provider. The remote
// strategy falls back to the local one, with a warning, when its API key is
// missing. Unknown providers also fall back. A configured local model
// server that cannot be reached is an error.
func New(ctx context.Context, cfg config.EmbeddingConfig, log zerolog.Logger) (port.Embedder, error) {
	provider := strings.ToLower(strings.TrimSpace(cfg.Provider))

	switch provider {
	case "", "local":
		return NewHashingEmbedder(cfg.Model, cfg.Dimension), nil

	case "openai":
		apiKey := os.Getenv(cfg.APIKeyEnv)
		if apiKey == "" {
			log.Warn().
				Str("api_key_env", cfg.APIKeyEnv).
				Msg("remote embedding API key not set, falling back to local embedder")
			return NewHashingEmbedder("", cfg.Dimension), nil
		}
		e, err := NewOpenAIEmbedder(OpenAIConfig{
			APIKey:    apiKey,
			Model:     cfg.Model,
			BaseURL:   cfg.BaseURL,
			Dimension: cfg.Dimension,
			BatchSize: cfg.BatchSize,
			Timeout:   cfg.Timeout,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create remote embedder: %w", err)
		}
		return e, nil

	case "ollama":
		e, err := NewOllamaEmbedder(ctx, OpenAIConfig{
			Model:     cfg.Model,
			BaseURL:   cfg.BaseURL,
			Dimension: cfg.Dimension,
			BatchSize: cfg.BatchSize,
			Timeout:   cfg.Timeout,
		})
		if err != nil {
			return nil, err
		}
		return e, nil

	default:
		log.Warn().
			Str("provider", cfg.Provider).
			Msg("unknown embedding provider, falling back to local embedder")
		return NewHashingEmbedder("", cfg.Dimension), nil
	}
}

// EmbedOne embeds a single text as a batch of one.
func EmbedOne(ctx context.Context, e port.Embedder, text string) ([][]float32, error) {
	return e.Embed(ctx, []string{text})
}
