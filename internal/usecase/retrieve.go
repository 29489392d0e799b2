package usecase

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"ragbench/internal/adapter/cache"
	"ragbench/internal/domain"
	"ragbench/internal/metrics"
	"ragbench/internal/port"
)

// RetrieveUseCase answers similarity queries against named indices.
type RetrieveUseCase struct {
	indices     port.IndexProvider
	cache       *cache.QueryCache
	defaultTopK int
	metrics     *metrics.Metrics
	log         zerolog.Logger
	now         func() time.Time
}

// NewRetrieveUseCase creates a retrieve use case. queryCache may be nil to
// disable caching.
func NewRetrieveUseCase(indices port.IndexProvider, queryCache *cache.QueryCache, defaultTopK int, m *metrics.Metrics, log zerolog.Logger) *RetrieveUseCase {
	if defaultTopK <= 0 {
		defaultTopK = 5
	}
	return &RetrieveUseCase{
		indices:     indices,
		cache:       queryCache,
		defaultTopK: defaultTopK,
		metrics:     m,
		log:         log,
		now:         time.Now,
	}
}

// Query returns the topK chunks most similar to q. A non-positive topK
// means the configured default.
func (u *RetrieveUseCase) Query(ctx context.Context, indexName, q string, topK int) (domain.QueryResponse, error) {
	start := u.now()

	if strings.TrimSpace(q) == "" {
		return domain.QueryResponse{}, domain.ErrEmptyQuery
	}
	if topK <= 0 {
		topK = u.defaultTopK
	}

	index, err := u.indices.Get(indexName)
	if err != nil {
		return domain.QueryResponse{}, err
	}
	total := index.Count()
	if total == 0 {
		return domain.QueryResponse{}, domain.ErrEmptyIndex
	}

	gen := index.Generation()
	results, cached := u.lookup(indexName, q, topK, gen)
	if !cached {
		results, err = index.Search(ctx, q, topK)
		if err != nil {
			return domain.QueryResponse{}, err
		}
		if u.cache != nil {
			u.cache.Put(indexName, q, topK, gen, results)
		}
	}

	elapsed := u.now().Sub(start)
	u.metrics.RecordQuery(cached, elapsed)
	u.log.Debug().
		Str("index", indexName).
		Int("top_k", topK).
		Int("results", len(results)).
		Bool("cached", cached).
		Dur("took", elapsed).
		Msg("query served")

	return domain.QueryResponse{
		Query:       q,
		Results:     results,
		TotalChunks: total,
		TimeTaken:   elapsed.Seconds(),
	}, nil
}

func (u *RetrieveUseCase) lookup(indexName, q string, topK int, gen uint64) ([]domain.SearchResult, bool) {
	if u.cache == nil {
		return nil, false
	}
	return u.cache.Get(indexName, q, topK, gen)
}
