package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"ragbench/internal/adapter/upstream"
	"ragbench/internal/domain"
)

const (
	defaultOpenAIModel   = "text-embedding-ada-002"
	defaultOpenAIBaseURL = "https://api.openai.com/v1"
	defaultBatchSize     = 1000
)

// openAIDimensions maps known remote models to their output width.
var openAIDimensions = map[string]int{
	"text-embedding-ada-002": 1536,
	"text-embedding-3-small": 1536,
	"text-embedding-3-large": 3072,
}

// OpenAIEmbedder calls an OpenAI-compatible /embeddings endpoint.
type OpenAIEmbedder struct {
	apiKey    string
	model     string
	modelType string
	baseURL   string
	dimension int
	batchSize int
	client    *http.Client
}

type embeddingRequest struct {
	Input []string `json:"input"`
	Model string   `json:"model"`
}

type embeddingResponse struct {
	Data  []embeddingData `json:"data"`
	Usage embeddingUsage  `json:"usage"`
	Error *apiError       `json:"error,omitempty"`
}

type embeddingData struct {
	Embedding []float32 `json:"embedding"`
	Index     int       `json:"index"`
}

type embeddingUsage struct {
	PromptTokens int `json:"prompt_tokens"`
	TotalTokens  int `json:"total_tokens"`
}

type apiError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
}

// OpenAIConfig configures the remote embedder.
type OpenAIConfig struct {
	APIKey    string
	Model     string
	BaseURL   string
	Dimension int // 0 = known dimension of Model
	BatchSize int
	Timeout   time.Duration
}

// NewOpenAIEmbedder builds the remote strategy. The dimension is a known
// constant per model unless cfg.Dimension overrides it.
func NewOpenAIEmbedder(cfg OpenAIConfig) (*OpenAIEmbedder, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: no API key", domain.ErrEmbeddingUnavailable)
	}
	if cfg.Model == "" {
		cfg.Model = defaultOpenAIModel
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultOpenAIBaseURL
	}

	dimension := cfg.Dimension
	if dimension <= 0 {
		known, ok := openAIDimensions[cfg.Model]
		if !ok {
			return nil, fmt.Errorf("%w: unknown dimension for model %s, set embedding.dimension", domain.ErrInvalidInput, cfg.Model)
		}
		dimension = known
	}

	return newOpenAICompatible(cfg, "openai", dimension), nil
}

func newOpenAICompatible(cfg OpenAIConfig, modelType string, dimension int) *OpenAIEmbedder {
	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	return &OpenAIEmbedder{
		apiKey:    cfg.APIKey,
		model:     cfg.Model,
		modelType: modelType,
		baseURL:   cfg.BaseURL,
		dimension: dimension,
		batchSize: batchSize,
		client:    upstream.NewClient(cfg.Timeout),
	}
}

// Embed sends texts in batches of at most batchSize and concatenates the
// results in input order. Any failed batch fails the whole call.
func (e *OpenAIEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	allEmbeddings := make([][]float32, 0, len(texts))

	for i := 0; i < len(texts); i += e.batchSize {
		end := i + e.batchSize
		if end > len(texts) {
			end = len(texts)
		}
		batch := texts[i:end]

		embeddings, err := e.embedBatch(ctx, batch)
		if err != nil {
			return nil, fmt.Errorf("batch %d-%d: %w", i, end, err)
		}
		allEmbeddings = append(allEmbeddings, embeddings...)
	}

	return allEmbeddings, nil
}

func (e *OpenAIEmbedder) embedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	reqBody := embeddingRequest{
		Input: texts,
		Model: e.model,
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+"/embeddings", bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	if e.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+e.apiKey)
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, upstream.Classify(e.modelType, err)
	}
	defer resp.Body.Close()

	if err := upstream.CheckStatus(e.modelType, resp); err != nil {
		return nil, err
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, upstream.Classify(e.modelType, err)
	}

	var embResp embeddingResponse
	if err := json.Unmarshal(body, &embResp); err != nil {
		bodyPreview := string(body)
		if len(bodyPreview) > 200 {
			bodyPreview = bodyPreview[:200]
		}
		return nil, fmt.Errorf("failed to parse response (body: %s): %w", bodyPreview, err)
	}

	if embResp.Error != nil {
		return nil, fmt.Errorf("%w: %s API error: %s", domain.ErrUpstream, e.modelType, embResp.Error.Message)
	}

	embeddings := make([][]float32, len(texts))
	for _, data := range embResp.Data {
		if data.Index < 0 || data.Index >= len(embeddings) {
			return nil, fmt.Errorf("%w: embedding index %d out of range", domain.ErrUpstream, data.Index)
		}
		embeddings[data.Index] = data.Embedding
	}

	for i, vec := range embeddings {
		if vec == nil {
			return nil, fmt.Errorf("%w: missing embedding for input %d", domain.ErrUpstream, i)
		}
		if e.dimension > 0 && len(vec) != e.dimension {
			return nil, fmt.Errorf("%w: model %s returned %d values, expected %d", domain.ErrDimensionMismatch, e.model, len(vec), e.dimension)
		}
	}

	return embeddings, nil
}

func (e *OpenAIEmbedder) Dimension() int {
	return e.dimension
}

func (e *OpenAIEmbedder) Info() domain.ModelInfo {
	return domain.ModelInfo{
		ModelType: e.modelType,
		ModelName: e.model,
		Dimension: e.dimension,
	}
}
