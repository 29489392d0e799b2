package usecase

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"ragbench/internal/adapter/chunker"
	"ragbench/internal/domain"
	"ragbench/internal/metrics"
	"ragbench/internal/port"
)

// IngestDeps are the collaborators of IngestUseCase. Source collaborators
// may be nil, in which case requests for that source kind fail.
type IngestDeps struct {
	Documents port.DocumentStore
	Indices   port.IndexProvider
	Chunker   port.Chunker
	Files     port.FileWalker
	Pages     port.PageFetcher
	News      port.NewsSource
	Financial port.FinancialSource
	Wikipedia port.EncyclopediaSource
	Metrics   *metrics.Metrics
}

// IngestOptions holds the ingestion settings taken from configuration.
type IngestOptions struct {
	FileRoot          string
	WikipediaMax      int
	WikipediaLanguage string
	NewsMax           int
}

// IngestUseCase turns source material into stored documents and adds them
// to a named index.
type IngestUseCase struct {
	deps IngestDeps
	opts IngestOptions
	log  zerolog.Logger
	now  func() time.Time
}

func NewIngestUseCase(deps IngestDeps, opts IngestOptions, log zerolog.Logger) *IngestUseCase {
	if opts.WikipediaMax <= 0 {
		opts.WikipediaMax = 5
	}
	if opts.NewsMax <= 0 {
		opts.NewsMax = 10
	}
	return &IngestUseCase{
		deps: deps,
		opts: opts,
		log:  log,
		now:  time.Now,
	}
}

// Process cleans and chunks text and persists the resulting document.
func (u *IngestUseCase) Process(ctx context.Context, text, id string, metadata map[string]any) (domain.Document, error) {
	if err := ctx.Err(); err != nil {
		return domain.Document{}, err
	}

	doc := domain.Document{
		ID:          id,
		Chunks:      u.deps.Chunker.Chunk(chunker.Clean(text)),
		Metadata:    metadata,
		ProcessedAt: u.now(),
	}
	if doc.Metadata == nil {
		doc.Metadata = map[string]any{}
	}
	if err := u.deps.Documents.PutDocument(doc); err != nil {
		return domain.Document{}, fmt.Errorf("failed to save document %s: %w", id, err)
	}

	u.log.Debug().Str("doc_id", id).Int("chunks", len(doc.Chunks)).Msg("processed document")
	return doc, nil
}

// FromText ingests raw text. Caller metadata wins over the defaults
// {source: direct_input, type: text}.
func (u *IngestUseCase) FromText(ctx context.Context, text string, meta map[string]any) (domain.Document, error) {
	if strings.TrimSpace(text) == "" {
		return domain.Document{}, fmt.Errorf("%w: text is empty", domain.ErrInvalidInput)
	}

	metadata := merge(meta, map[string]any{
		domain.MetaSource: "direct_input",
		domain.MetaType:   domain.TypeText,
	})
	id := fmt.Sprintf("text_%s_%d", shortHash(prefixRunes(text, 100)), u.now().UnixNano())
	return u.Process(ctx, text, id, metadata)
}

// FromURL fetches a page and ingests its visible text.
func (u *IngestUseCase) FromURL(ctx context.Context, url string, meta map[string]any) (domain.Document, error) {
	if u.deps.Pages == nil {
		return domain.Document{}, errors.New("no page fetcher configured")
	}

	page, err := u.deps.Pages.Fetch(ctx, url)
	if err != nil {
		return domain.Document{}, fmt.Errorf("failed to fetch %s: %w", url, err)
	}

	metadata := merge(map[string]any{
		domain.MetaSource: url,
		"title":           page.Title,
		"url":             url,
		domain.MetaType:   domain.TypeWeb,
	}, meta)
	id := fmt.Sprintf("url_%s_%d", shortHash(url), u.now().UnixNano())
	return u.Process(ctx, page.Text, id, metadata)
}

// FromFile ingests a local UTF-8 text file. When a file root is configured
// the path must resolve inside it.
func (u *IngestUseCase) FromFile(ctx context.Context, path string, meta map[string]any) (domain.Document, error) {
	if u.deps.Files == nil {
		return domain.Document{}, errors.New("no file reader configured")
	}

	abs, err := u.resolvePath(path)
	if err != nil {
		return domain.Document{}, err
	}
	text, err := u.deps.Files.Read(abs)
	if err != nil {
		return domain.Document{}, err
	}

	name := filepath.Base(abs)
	metadata := merge(map[string]any{
		domain.MetaSource: "file",
		"file_name":       name,
		"file_type":       strings.TrimPrefix(filepath.Ext(name), "."),
		"path":            abs,
		domain.MetaType:   domain.TypeFile,
	}, meta)
	id := fmt.Sprintf("file_%s_%d", shortHash(abs), u.now().UnixNano())
	return u.Process(ctx, text, id, metadata)
}

func (u *IngestUseCase) resolvePath(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("%w: bad path %q: %v", domain.ErrInvalidInput, path, err)
	}
	if u.opts.FileRoot == "" {
		return abs, nil
	}

	root, err := filepath.Abs(u.opts.FileRoot)
	if err != nil {
		return "", err
	}
	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		abs = resolved
	}
	if resolvedRoot, err := filepath.EvalSymlinks(root); err == nil {
		root = resolvedRoot
	}

	rel, err := filepath.Rel(root, abs)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s is outside the allowed file root", domain.ErrInvalidInput, path)
	}
	return abs, nil
}

// FromDirectory ingests every file walker finds under root. Files that
// cannot be read are logged and skipped. progress, if set, is called after
// each file.
func (u *IngestUseCase) FromDirectory(ctx context.Context, root string, walker port.FileWalker, meta map[string]any, progress func(done, total int)) ([]domain.Document, error) {
	files, err := walker.Walk(root)
	if err != nil {
		return nil, fmt.Errorf("failed to walk %s: %w", root, err)
	}

	docs := make([]domain.Document, 0, len(files))
	for i, f := range files {
		if err := ctx.Err(); err != nil {
			return docs, err
		}
		doc, err := u.FromFile(ctx, f.Path, meta)
		if err != nil {
			u.log.Warn().Err(err).Str("path", f.Path).Msg("skipping file")
		} else {
			docs = append(docs, doc)
		}
		if progress != nil {
			progress(i+1, len(files))
		}
	}
	return docs, nil
}

// FromWikipedia ingests up to maxArticles articles found for topic. A
// disambiguation page is retried once with its first option; other
// per-article failures are logged and skipped.
func (u *IngestUseCase) FromWikipedia(ctx context.Context, topic string, maxArticles int) ([]domain.Document, error) {
	if u.deps.Wikipedia == nil {
		return nil, errors.New("no wikipedia source configured")
	}
	if maxArticles <= 0 {
		maxArticles = u.opts.WikipediaMax
	}

	titles, err := u.deps.Wikipedia.Search(ctx, topic, maxArticles)
	if err != nil {
		return nil, fmt.Errorf("failed to search wikipedia for %q: %w", topic, err)
	}

	var docs []domain.Document
	for _, title := range titles {
		if err := ctx.Err(); err != nil {
			return docs, err
		}

		article, err := u.deps.Wikipedia.Article(ctx, title)
		originalQuery := ""

		var ambiguous *domain.AmbiguousTitleError
		if errors.As(err, &ambiguous) && len(ambiguous.Options) > 0 {
			u.log.Warn().Str("title", title).Str("alternative", ambiguous.Options[0]).Msg("ambiguous title, trying first option")
			originalQuery = title
			article, err = u.deps.Wikipedia.Article(ctx, ambiguous.Options[0])
		}
		if err != nil {
			u.log.Error().Err(err).Str("title", title).Msg("failed to fetch wikipedia article")
			continue
		}

		metadata := map[string]any{
			domain.MetaSource: "wikipedia",
			"title":           article.Title,
			"url":             article.URL,
			domain.MetaType:   domain.TypeWikipedia,
			"topic":           topic,
		}
		if originalQuery != "" {
			metadata["original_query"] = originalQuery
		}
		if u.opts.WikipediaLanguage != "" {
			metadata["language"] = u.opts.WikipediaLanguage
		}

		id := fmt.Sprintf("wiki_%s_%d", shortHash(article.Title), u.now().UnixNano())
		doc, err := u.Process(ctx, article.Text, id, metadata)
		if err != nil {
			u.log.Error().Err(err).Str("title", article.Title).Msg("failed to process wikipedia article")
			continue
		}
		docs = append(docs, doc)
	}

	if len(docs) == 0 {
		u.log.Warn().Str("topic", topic).Msg("no wikipedia articles were processed")
	}
	return docs, nil
}

// FromNews ingests recent articles about topic. Truncated article content
// is replaced by the text of the article page, or by the description when
// the page cannot be fetched.
func (u *IngestUseCase) FromNews(ctx context.Context, topic string, maxArticles int) ([]domain.Document, error) {
	if u.deps.News == nil {
		return nil, errors.New("no news source configured")
	}
	if maxArticles <= 0 {
		maxArticles = u.opts.NewsMax
	}

	articles, err := u.deps.News.Fetch(ctx, topic, maxArticles)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch news for %q: %w", topic, err)
	}

	var docs []domain.Document
	for _, a := range articles {
		if err := ctx.Err(); err != nil {
			return docs, err
		}

		content := a.Content
		if truncated(content) {
			content = u.fullArticle(ctx, a)
		}

		var b strings.Builder
		fmt.Fprintf(&b, "Title: %s\n\n", a.Title)
		fmt.Fprintf(&b, "Source: %s\n", a.Source)
		fmt.Fprintf(&b, "Author: %s\n", a.Author)
		fmt.Fprintf(&b, "Published: %s\n\n", a.PublishedAt)
		fmt.Fprintf(&b, "Description: %s\n\n", a.Description)
		fmt.Fprintf(&b, "Content:\n%s", content)

		metadata := map[string]any{
			domain.MetaSource: "newsapi",
			"title":           a.Title,
			"url":             a.URL,
			"author":          a.Author,
			"published_at":    a.PublishedAt,
			"source_name":     a.Source,
			domain.MetaType:   domain.TypeNews,
			"topic":           topic,
		}

		id := fmt.Sprintf("news_%s_%d", shortHash(a.Title+a.URL), u.now().UnixNano())
		doc, err := u.Process(ctx, b.String(), id, metadata)
		if err != nil {
			u.log.Error().Err(err).Str("title", a.Title).Msg("failed to process news article")
			continue
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

func truncated(content string) bool {
	return strings.TrimSpace(content) == "" ||
		strings.Contains(content, "...") ||
		strings.Contains(content, "…") ||
		strings.Contains(content, "[+")
}

func (u *IngestUseCase) fullArticle(ctx context.Context, a domain.NewsArticle) string {
	if u.deps.Pages == nil || a.URL == "" {
		return a.Description
	}
	page, err := u.deps.Pages.Fetch(ctx, a.URL)
	if err != nil {
		u.log.Warn().Err(err).Str("url", a.URL).Msg("failed to fetch full article, using description")
		return a.Description
	}
	return page.Text
}

// FromFinancial ingests the financial summary of ticker. An unknown ticker
// or a missing credential produces no documents and no error.
func (u *IngestUseCase) FromFinancial(ctx context.Context, ticker string) ([]domain.Document, error) {
	if u.deps.Financial == nil {
		return nil, errors.New("no financial source configured")
	}

	ticker = strings.ToUpper(strings.TrimSpace(ticker))
	bundle, err := u.deps.Financial.Fetch(ctx, ticker)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch financial data for %s: %w", ticker, err)
	}
	if bundle == nil {
		u.log.Warn().Str("ticker", ticker).Msg("no financial data found")
		return nil, nil
	}

	name := bundle.Profile.CompanyName
	if name == "" {
		name = ticker
	}
	metadata := map[string]any{
		domain.MetaSource: "financialmodelingprep",
		"ticker":          ticker,
		"company_name":    name,
		"sector":          bundle.Profile.Sector,
		"industry":        bundle.Profile.Industry,
		domain.MetaType:   domain.TypeFinancial,
	}

	id := fmt.Sprintf("financial_%s_%d", ticker, u.now().UnixNano())
	doc, err := u.Process(ctx, RenderFinancialSummary(bundle), id, metadata)
	if err != nil {
		return nil, err
	}
	return []domain.Document{doc}, nil
}

// Ingest reads src, stores the resulting documents and adds them to the
// named index.
func (u *IngestUseCase) Ingest(ctx context.Context, indexName string, src domain.IngestSource, meta map[string]any) (domain.IngestResult, error) {
	index, err := u.deps.Indices.Get(indexName)
	if err != nil {
		return domain.IngestResult{}, err
	}

	docs, err := u.collect(ctx, src, meta)
	if err != nil {
		u.deps.Metrics.RecordIngestFailure(string(src.Kind))
		return domain.IngestResult{}, err
	}
	return u.addToIndex(ctx, index, indexName, string(src.Kind), docs)
}

// IngestDirectory is Ingest for every file under root.
func (u *IngestUseCase) IngestDirectory(ctx context.Context, indexName, root string, walker port.FileWalker, meta map[string]any, progress func(done, total int)) (domain.IngestResult, error) {
	index, err := u.deps.Indices.Get(indexName)
	if err != nil {
		return domain.IngestResult{}, err
	}

	docs, err := u.FromDirectory(ctx, root, walker, meta, progress)
	if err != nil {
		u.deps.Metrics.RecordIngestFailure(string(domain.SourceFile))
		return domain.IngestResult{}, err
	}
	return u.addToIndex(ctx, index, indexName, string(domain.SourceFile), docs)
}

func (u *IngestUseCase) collect(ctx context.Context, src domain.IngestSource, meta map[string]any) ([]domain.Document, error) {
	single := func(doc domain.Document, err error) ([]domain.Document, error) {
		if err != nil {
			return nil, err
		}
		return []domain.Document{doc}, nil
	}

	switch src.Kind {
	case domain.SourceText:
		return single(u.FromText(ctx, src.Value, meta))
	case domain.SourceURL:
		return single(u.FromURL(ctx, strings.TrimSpace(src.Value), meta))
	case domain.SourceFile:
		return single(u.FromFile(ctx, strings.TrimSpace(src.Value), meta))
	case domain.SourceWikipedia:
		return u.FromWikipedia(ctx, strings.TrimSpace(src.Value), src.MaxArticles)
	case domain.SourceNews:
		return u.FromNews(ctx, strings.TrimSpace(src.Value), src.MaxArticles)
	case domain.SourceFinancial:
		return u.FromFinancial(ctx, src.Value)
	default:
		return nil, fmt.Errorf("%w: unknown source kind %q", domain.ErrInvalidInput, src.Kind)
	}
}

func (u *IngestUseCase) addToIndex(ctx context.Context, index port.VectorIndex, indexName, source string, docs []domain.Document) (domain.IngestResult, error) {
	result := domain.IngestResult{
		Status:      "no_documents",
		DocumentIDs: []string{},
	}
	if len(docs) == 0 {
		result.VectorStoreSize = index.Count()
		return result, nil
	}

	added, err := index.AddDocuments(ctx, docs)
	if err != nil {
		u.deps.Metrics.RecordIngestFailure(source)
		return domain.IngestResult{}, fmt.Errorf("failed to index documents: %w", err)
	}

	if err := u.deps.Documents.SetLastIngest(u.now()); err != nil {
		u.log.Warn().Err(err).Msg("failed to record last ingest time")
	}

	for _, doc := range docs {
		result.DocumentIDs = append(result.DocumentIDs, doc.ID)
	}
	result.Status = "success"
	result.ChunksIngested = added
	result.VectorStoreSize = index.Count()

	u.deps.Metrics.RecordIngest(source, len(docs), added)
	u.deps.Metrics.SetIndexSize(indexName, result.VectorStoreSize)
	u.log.Info().
		Str("index", indexName).
		Str("source", source).
		Int("documents", len(docs)).
		Int("chunks", added).
		Msg("ingested documents")
	return result, nil
}

// Reindex clears the named index and re-adds every stored document.
// progress, if set, is called after each batch.
func (u *IngestUseCase) Reindex(ctx context.Context, indexName string, progress func(done, total int)) (domain.IngestResult, error) {
	const batchSize = 50

	index, err := u.deps.Indices.Get(indexName)
	if err != nil {
		return domain.IngestResult{}, err
	}
	docs, err := u.deps.Documents.ListDocuments()
	if err != nil {
		return domain.IngestResult{}, fmt.Errorf("failed to list documents: %w", err)
	}
	if err := index.Clear(); err != nil {
		return domain.IngestResult{}, err
	}

	result := domain.IngestResult{Status: "no_documents", DocumentIDs: []string{}}
	for start := 0; start < len(docs); start += batchSize {
		end := min(start+batchSize, len(docs))
		added, err := index.AddDocuments(ctx, docs[start:end])
		if err != nil {
			return result, fmt.Errorf("failed to reindex documents %d-%d: %w", start, end, err)
		}
		result.ChunksIngested += added
		for _, doc := range docs[start:end] {
			result.DocumentIDs = append(result.DocumentIDs, doc.ID)
		}
		if progress != nil {
			progress(end, len(docs))
		}
	}

	if len(docs) > 0 {
		result.Status = "success"
	}
	result.VectorStoreSize = index.Count()
	u.deps.Metrics.SetIndexSize(indexName, result.VectorStoreSize)
	u.log.Info().Str("index", indexName).Int("documents", len(docs)).Int("chunks", result.ChunksIngested).Msg("reindexed")
	return result, nil
}

// merge returns a copy of primary with keys from fallback filled in where
// primary has none.
func merge(primary, fallback map[string]any) map[string]any {
	out := make(map[string]any, len(primary)+len(fallback))
	for k, v := range fallback {
		out[k] = v
	}
	for k, v := range primary {
		out[k] = v
	}
	return out
}

func shortHash(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])[:12]
}

func prefixRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
