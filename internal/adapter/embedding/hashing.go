package embedding

import (
	"context"
	"hash/fnv"
	"math"

	"ragbench/internal/adapter/analyzer"
	"ragbench/internal/domain"
	"ragbench/internal/port"
)

const (
	defaultHashingModel     = "hashing-bow-v1"
	defaultHashingDimension = 384
	bigramWeight            = 0.5
)

// HashingEmbedder is the in-process strategy. It hashes folded terms and
// their bigrams into a fixed number of signed buckets and L2-normalises the
// result, so texts sharing vocabulary land close together.
type HashingEmbedder struct {
	tokenizer port.Tokenizer
	model     string
	dimension int
}

func NewHashingEmbedder(model string, dimension int) *HashingEmbedder {
	if model == "" {
		model = defaultHashingModel
	}
	if dimension <= 0 {
		dimension = defaultHashingDimension
	}
	return &HashingEmbedder{
		tokenizer: analyzer.NewTokenizer(true),
		model:     model,
		dimension: dimension,
	}
}

func (e *HashingEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	embeddings := make([][]float32, len(texts))
	for i, text := range texts {
		embeddings[i] = e.vector(text)
	}
	return embeddings, nil
}

func (e *HashingEmbedder) vector(text string) []float32 {
	vec := make([]float32, e.dimension)

	unigrams, bigrams := e.tokenizer.Terms(text)
	for _, term := range unigrams {
		e.accumulate(vec, term, 1)
	}
	for _, term := range bigrams {
		e.accumulate(vec, term, bigramWeight)
	}

	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if norm == 0 {
		return vec
	}
	scale := float32(1 / math.Sqrt(norm))
	for i := range vec {
		vec[i] *= scale
	}
	return vec
}

func (e *HashingEmbedder) accumulate(vec []float32, term string, weight float32) {
	h := fnv.New64a()
	h.Write([]byte(term))
	sum := h.Sum64()

	bucket := int(sum % uint64(e.dimension))
	if sum>>63 == 1 {
		weight = -weight
	}
	vec[bucket] += weight
}

func (e *HashingEmbedder) Dimension() int {
	return e.dimension
}

func (e *HashingEmbedder) Info() domain.ModelInfo {
	return domain.ModelInfo{
		ModelType: "local",
		ModelName: e.model,
		Dimension: e.dimension,
	}
}
