package usecase

import (
	"context"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"ragbench/internal/adapter/chunker"
	"ragbench/internal/adapter/embedding"
	"ragbench/internal/adapter/fs"
	"ragbench/internal/adapter/store"
	"ragbench/internal/adapter/vectorindex"
	"ragbench/internal/domain"
	"ragbench/internal/port"
)

type stubPages struct {
	pages map[string]domain.Page
	err   error
}

func (s *stubPages) Fetch(_ context.Context, url string) (domain.Page, error) {
	if s.err != nil {
		return domain.Page{}, s.err
	}
	page, ok := s.pages[url]
	if !ok {
		return domain.Page{}, domain.ErrNotFound
	}
	return page, nil
}

type stubNews struct {
	articles []domain.NewsArticle
}

func (s *stubNews) Fetch(_ context.Context, _ string, max int) ([]domain.NewsArticle, error) {
	if len(s.articles) > max {
		return s.articles[:max], nil
	}
	return s.articles, nil
}

type stubFinancial struct {
	bundle *domain.FinancialBundle
	err    error
}

func (s *stubFinancial) Fetch(context.Context, string) (*domain.FinancialBundle, error) {
	return s.bundle, s.err
}

type stubWiki struct {
	titles   []string
	articles map[string]domain.Article
	options  map[string][]string
	fetched  []string
}

func (s *stubWiki) Search(_ context.Context, _ string, limit int) ([]string, error) {
	if len(s.titles) > limit {
		return s.titles[:limit], nil
	}
	return s.titles, nil
}

func (s *stubWiki) Article(_ context.Context, title string) (domain.Article, error) {
	s.fetched = append(s.fetched, title)
	if opts, ok := s.options[title]; ok {
		return domain.Article{}, &domain.AmbiguousTitleError{Title: title, Options: opts}
	}
	a, ok := s.articles[title]
	if !ok {
		return domain.Article{}, domain.ErrNotFound
	}
	return a, nil
}

// countingIndex records how often Search reaches the underlying index.
type countingIndex struct {
	port.VectorIndex
	searches atomic.Int32
}

func (c *countingIndex) Search(ctx context.Context, q string, k int) ([]domain.SearchResult, error) {
	c.searches.Add(1)
	return c.VectorIndex.Search(ctx, q, k)
}

type countingProvider struct {
	reg     *vectorindex.Registry
	indices map[string]*countingIndex
}

func (p *countingProvider) Get(name string) (port.VectorIndex, error) {
	if ix, ok := p.indices[name]; ok {
		return ix, nil
	}
	inner, err := p.reg.Get(name)
	if err != nil {
		return nil, err
	}
	ix := &countingIndex{VectorIndex: inner}
	p.indices[name] = ix
	return ix, nil
}

type fixture struct {
	docs      *store.BoltStore
	indices   *countingProvider
	pages     *stubPages
	news      *stubNews
	financial *stubFinancial
	wiki      *stubWiki
	ingest    *IngestUseCase
	retrieve  *RetrieveUseCase
	status    *StatusUseCase
	dir       string
}

func newFixture(t *testing.T, opts IngestOptions) *fixture {
	t.Helper()
	dir := t.TempDir()

	docs, err := store.NewBoltStore(filepath.Join(dir, "processed", "documents.db"))
	require.NoError(t, err)
	t.Cleanup(func() { docs.Close() })

	reg := vectorindex.NewRegistry(vectorindex.Options{
		Dir:      filepath.Join(dir, "vectors"),
		Embedder: embedding.NewHashingEmbedder("", 256),
		Logger:   zerolog.Nop(),
	}, nil)

	f := &fixture{
		docs:      docs,
		indices:   &countingProvider{reg: reg, indices: map[string]*countingIndex{}},
		pages:     &stubPages{pages: map[string]domain.Page{}},
		news:      &stubNews{},
		financial: &stubFinancial{},
		wiki:      &stubWiki{articles: map[string]domain.Article{}, options: map[string][]string{}},
		dir:       dir,
	}

	var tick atomic.Int64
	f.ingest = NewIngestUseCase(IngestDeps{
		Documents: docs,
		Indices:   f.indices,
		Chunker:   chunker.NewTextChunker(200, 40),
		Files:     fs.NewWalker(nil, nil, 0),
		Pages:     f.pages,
		News:      f.news,
		Financial: f.financial,
		Wikipedia: f.wiki,
	}, opts, zerolog.Nop())
	f.ingest.now = func() time.Time {
		return time.Unix(1700000000, tick.Add(1))
	}

	f.retrieve = NewRetrieveUseCase(f.indices, nil, 3, nil, zerolog.Nop())
	f.status = NewStatusUseCase(f.indices, docs, nil, zerolog.Nop())
	return f
}
