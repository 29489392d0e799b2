package cli

import (
	"context"
	"fmt"
	"os"

	"ragbench/config"
	"ragbench/internal/adapter/cache"
	"ragbench/internal/adapter/chunker"
	"ragbench/internal/adapter/embedding"
	"ragbench/internal/adapter/fs"
	"ragbench/internal/adapter/source"
	"ragbench/internal/adapter/store"
	"ragbench/internal/adapter/vectorindex"
	"ragbench/internal/metrics"
	"ragbench/internal/usecase"
)

// maxFileSize bounds files read by the ingestion pipeline.
const maxFileSize = 10 << 20

// app holds the wired service for one command invocation.
type app struct {
	docs     *store.BoltStore
	indices  *vectorindex.Registry
	metrics  *metrics.Metrics
	ingest   *usecase.IngestUseCase
	retrieve *usecase.RetrieveUseCase
	status   *usecase.StatusUseCase
}

func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	if err := cfg.EnsureDirs(); err != nil {
		return nil, err
	}

	docs, err := store.NewBoltStore(cfg.Storage.DocumentsDB)
	if err != nil {
		return nil, fmt.Errorf("failed to open document store: %w", err)
	}

	migration, err := docs.CheckMigration(cfg)
	if err != nil {
		docs.Close()
		return nil, fmt.Errorf("failed to check migration: %w", err)
	}
	if migration.NeedsReindex {
		log.Warn().Str("reason", migration.Reason).Msg("stored vectors were built with different settings, run 'ragbench reindex'")
	}
	if migration.NeedsMigration {
		if err := docs.Migrate(cfg); err != nil {
			docs.Close()
			return nil, fmt.Errorf("migration failed: %w", err)
		}
	}

	embedder, err := embedding.New(ctx, cfg.Embedding, log.Component("embedding"))
	if err != nil {
		docs.Close()
		return nil, err
	}

	indices := vectorindex.NewRegistry(vectorindex.Options{
		Dir:      cfg.Storage.VectorDir,
		Embedder: embedder,
		Logger:   log.Component("vectorindex"),
	}, config.ValidIndexName)

	m := metrics.New()
	src := cfg.Sources

	ingest := usecase.NewIngestUseCase(usecase.IngestDeps{
		Documents: docs,
		Indices:   indices,
		Chunker:   chunker.NewTextChunker(cfg.Chunking.ChunkSize, cfg.Chunking.ChunkOverlap),
		Files:     fs.NewWalker(nil, fs.DefaultExcludes, maxFileSize),
		Pages:     source.NewWebFetcher(src.UserAgent, src.Timeout),
		News: source.NewNewsClient(source.NewsConfig{
			APIKey:        os.Getenv(src.News.APIKeyEnv),
			BaseURL:       src.News.BaseURL,
			DaysBack:      src.News.DaysBack,
			Timeout:       src.Timeout,
			RatePerSecond: src.News.RatePerSecond,
		}, log.Component("news")),
		Financial: source.NewFMPClient(source.FinancialConfig{
			APIKey:        os.Getenv(src.Financial.APIKeyEnv),
			BaseURL:       src.Financial.BaseURL,
			Timeout:       src.Timeout,
			RatePerSecond: src.Financial.RatePerSecond,
		}, log.Component("financial")),
		Wikipedia: source.NewMediaWikiClient(source.WikipediaConfig{
			Language:      src.Wikipedia.Language,
			BaseURL:       src.Wikipedia.BaseURL,
			UserAgent:     src.UserAgent,
			Timeout:       src.Timeout,
			RatePerSecond: src.Wikipedia.RatePerSecond,
		}, log.Component("wikipedia")),
		Metrics: m,
	}, usecase.IngestOptions{
		FileRoot:          cfg.Ingest.FileRoot,
		WikipediaMax:      src.Wikipedia.MaxArticles,
		WikipediaLanguage: src.Wikipedia.Language,
		NewsMax:           src.News.MaxArticles,
	}, log.Component("ingest"))

	queryCache := cache.NewQueryCache(cfg.Retrieve.CacheSize, cfg.Retrieve.CacheTTL)

	return &app{
		docs:     docs,
		indices:  indices,
		metrics:  m,
		ingest:   ingest,
		retrieve: usecase.NewRetrieveUseCase(indices, queryCache, cfg.Retrieve.TopK, m, log.Component("retrieve")),
		status:   usecase.NewStatusUseCase(indices, docs, m, log.Component("status")),
	}, nil
}

func (a *app) Close() error {
	return a.docs.Close()
}
