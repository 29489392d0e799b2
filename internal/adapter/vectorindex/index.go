package vectorindex

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"ragbench/internal/domain"
	"ragbench/internal/port"
)

// Options configures indices opened by Open or a Registry.
type Options struct {
	Dir      string
	Embedder port.Embedder
	Logger   zerolog.Logger
	Now      func() time.Time
}

// Index is one named similarity index: a FlatL2 structure plus chunk ids
// and metadata kept in lockstep with its insertion order. Writers are
// serialized per index, readers share the lock.
type Index struct {
	name     string
	dir      string
	embedder port.Embedder
	log      zerolog.Logger
	now      func() time.Time

	mu         sync.RWMutex
	flat       *FlatL2
	docIDs     []string
	metadata   []map[string]any
	updatedAt  time.Time
	generation atomic.Uint64
}

// Open creates the named index and loads any persisted state from
// opts.Dir. Load failures leave an empty index, not an error.
func Open(name string, opts Options) (*Index, error) {
	if opts.Embedder == nil {
		return nil, errors.New("vector index requires an embedder")
	}
	if name == "" || strings.ContainsAny(name, `/\`) || name == "." || name == ".." {
		return nil, fmt.Errorf("%w: index name %q", domain.ErrInvalidInput, name)
	}
	if err := os.MkdirAll(opts.Dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create vector dir: %w", err)
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	ix := &Index{
		name:     name,
		dir:      opts.Dir,
		embedder: opts.Embedder,
		log:      opts.Logger.With().Str("index", name).Logger(),
		now:      opts.Now,
		flat:     NewFlatL2(opts.Embedder.Dimension()),
	}
	ix.Load()
	return ix, nil
}

func (ix *Index) Name() string {
	return ix.name
}

func (ix *Index) IndexPath() string {
	return filepath.Join(ix.dir, ix.name+".index")
}

func (ix *Index) MetadataPath() string {
	return filepath.Join(ix.dir, ix.name+".json")
}

// Count returns the number of stored chunks.
func (ix *Index) Count() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return ix.flat.Count()
}

// Generation increases on every successful mutation.
func (ix *Index) Generation() uint64 {
	return ix.generation.Load()
}

// batch is a set of chunks waiting to be appended in one locked step.
type batch struct {
	ids      []string
	metadata []map[string]any
	vectors  [][]float32
}

// AddDocuments embeds each document's chunks in one call and appends them
// as "<doc_id>_<i>". Documents without chunks are skipped. Nothing is
// added unless every document embeds and the result persists.
func (ix *Index) AddDocuments(ctx context.Context, docs []domain.Document) (int, error) {
	var b batch

	for _, doc := range docs {
		if len(doc.Chunks) == 0 {
			ix.log.Warn().Str("doc_id", doc.ID).Msg("document has no chunks, skipping")
			continue
		}

		vecs, err := ix.embedder.Embed(ctx, doc.Chunks)
		if err != nil {
			return 0, fmt.Errorf("failed to embed document %s: %w", doc.ID, err)
		}
		if len(vecs) != len(doc.Chunks) {
			return 0, fmt.Errorf("embedder returned %d vectors for %d chunks of %s", len(vecs), len(doc.Chunks), doc.ID)
		}

		addedAt := ix.timestamp()
		for i, chunk := range doc.Chunks {
			meta, err := normalizeMetadata(doc.Metadata)
			if err != nil {
				return 0, fmt.Errorf("document %s: %w", doc.ID, err)
			}
			meta[domain.MetaDocID] = doc.ID
			meta[domain.MetaChunkIndex] = float64(i)
			meta[domain.MetaChunkText] = chunk
			meta[domain.MetaAddedAt] = addedAt

			b.ids = append(b.ids, fmt.Sprintf("%s_%d", doc.ID, i))
			b.metadata = append(b.metadata, meta)
			b.vectors = append(b.vectors, vecs[i])
		}
	}

	if err := ix.commit(b); err != nil {
		return 0, err
	}
	if len(b.ids) > 0 {
		ix.log.Info().Int("documents", len(docs)).Int("chunks", len(b.ids)).Msg("added documents")
	}
	return len(b.ids), nil
}

// AddTexts appends ad hoc texts as "text_<timestamp>_<i>". metadatas may be
// nil; otherwise it must have one entry per text.
func (ix *Index) AddTexts(ctx context.Context, texts []string, metadatas []map[string]any) ([]string, error) {
	if metadatas != nil && len(metadatas) != len(texts) {
		return nil, fmt.Errorf("%w: %d metadata entries for %d texts", domain.ErrInvalidInput, len(metadatas), len(texts))
	}
	if len(texts) == 0 {
		return []string{}, nil
	}

	vecs, err := ix.embedder.Embed(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("failed to embed texts: %w", err)
	}
	if len(vecs) != len(texts) {
		return nil, fmt.Errorf("embedder returned %d vectors for %d texts", len(vecs), len(texts))
	}

	stamp := ix.now().UnixNano()
	addedAt := ix.timestamp()

	var b batch
	for i, text := range texts {
		var base map[string]any
		if metadatas != nil {
			base = metadatas[i]
		}
		meta, err := normalizeMetadata(base)
		if err != nil {
			return nil, fmt.Errorf("text %d: %w", i, err)
		}
		meta[domain.MetaChunkText] = text
		meta[domain.MetaAddedAt] = addedAt

		b.ids = append(b.ids, fmt.Sprintf("text_%d_%d", stamp, i))
		b.metadata = append(b.metadata, meta)
		b.vectors = append(b.vectors, vecs[i])
	}

	if err := ix.commit(b); err != nil {
		return nil, err
	}
	return b.ids, nil
}

// commit appends b and persists. If persisting fails the append is undone
// so memory never runs ahead of disk.
func (ix *Index) commit(b batch) error {
	if len(b.ids) == 0 {
		return nil
	}

	ix.mu.Lock()
	defer ix.mu.Unlock()

	prev := ix.flat.Count()
	if err := ix.flat.Add(b.vectors); err != nil {
		return err
	}
	ix.docIDs = append(ix.docIDs, b.ids...)
	ix.metadata = append(ix.metadata, b.metadata...)

	if _, _, err := ix.saveLocked(); err != nil {
		ix.flat.Truncate(prev)
		ix.docIDs = ix.docIDs[:prev]
		ix.metadata = ix.metadata[:prev]
		return fmt.Errorf("failed to persist index %s: %w", ix.name, err)
	}

	ix.generation.Add(1)
	return nil
}

// Search embeds query and returns up to topK results by descending score.
// topK is clamped to the number of stored chunks.
func (ix *Index) Search(ctx context.Context, query string, topK int) ([]domain.SearchResult, error) {
	if topK <= 0 {
		return nil, fmt.Errorf("%w: top_k must be positive, got %d", domain.ErrInvalidInput, topK)
	}
	if ix.Count() == 0 {
		return []domain.SearchResult{}, nil
	}

	vecs, err := ix.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}
	if len(vecs) != 1 {
		return nil, fmt.Errorf("embedder returned %d vectors for one query", len(vecs))
	}

	ix.mu.RLock()
	defer ix.mu.RUnlock()

	if n := ix.flat.Count(); topK > n {
		topK = n
	}
	dists, positions, err := ix.flat.Search(vecs[0], topK)
	if err != nil {
		return nil, err
	}

	results := make([]domain.SearchResult, 0, len(positions))
	for i, pos := range positions {
		if pos == NoResult {
			continue
		}

		meta := make(map[string]any, len(ix.metadata[pos]))
		for k, v := range ix.metadata[pos] {
			if k == domain.MetaChunkText {
				continue
			}
			meta[k] = v
		}
		text, _ := ix.metadata[pos][domain.MetaChunkText].(string)

		results = append(results, domain.SearchResult{
			ChunkID:  ix.docIDs[pos],
			Text:     text,
			Metadata: meta,
			Score:    1 / (1 + float64(dists[i])),
		})
	}
	return results, nil
}

// Save writes the vector file and the metadata file.
func (ix *Index) Save() (string, string, error) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	return ix.saveLocked()
}

func (ix *Index) saveLocked() (string, string, error) {
	indexPath, metaPath := ix.IndexPath(), ix.MetadataPath()
	now := ix.now()

	record := metadataRecord{
		Name:           ix.name,
		EmbeddingModel: ix.embedder.Info(),
		DocIDs:         ix.docIDs,
		Metadata:       ix.metadata,
		UpdatedAt:      unixSeconds(now),
	}
	if record.DocIDs == nil {
		record.DocIDs = []string{}
	}
	if record.Metadata == nil {
		record.Metadata = []map[string]any{}
	}

	if err := writeFileAtomic(indexPath, func(w io.Writer) error {
		_, err := ix.flat.WriteTo(w)
		return err
	}); err != nil {
		return "", "", fmt.Errorf("failed to write %s: %w", indexPath, err)
	}
	if err := writeJSONAtomic(metaPath, record); err != nil {
		return "", "", fmt.Errorf("failed to write %s: %w", metaPath, err)
	}

	ix.updatedAt = now
	return indexPath, metaPath, nil
}

// Load replaces the in-memory state with the persisted files. Any failure
// is logged and leaves an empty index; the result reports success.
func (ix *Index) Load() bool {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	err := ix.loadLocked()
	if err == nil {
		ix.log.Info().Int("size", ix.flat.Count()).Msg("loaded index")
		ix.generation.Add(1)
		return true
	}

	ix.resetLocked()
	ix.generation.Add(1)
	if errors.Is(err, os.ErrNotExist) {
		ix.log.Info().Msg("no persisted index, starting empty")
	} else {
		ix.log.Error().Err(err).Msg("failed to load index, starting empty")
	}
	return false
}

func (ix *Index) loadLocked() error {
	indexPath, metaPath := ix.IndexPath(), ix.MetadataPath()

	_, indexErr := os.Stat(indexPath)
	_, metaErr := os.Stat(metaPath)
	switch {
	case errors.Is(indexErr, os.ErrNotExist) && errors.Is(metaErr, os.ErrNotExist):
		return os.ErrNotExist
	case indexErr != nil:
		return fmt.Errorf("vector file unavailable: %v", indexErr)
	case metaErr != nil:
		return fmt.Errorf("metadata file unavailable: %v", metaErr)
	}

	f, err := os.Open(indexPath)
	if err != nil {
		return err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return err
	}
	flat, err := ReadFlatL2(f, info.Size())
	f.Close()
	if err != nil {
		return fmt.Errorf("corrupt vector file: %w", err)
	}

	data, err := os.ReadFile(metaPath)
	if err != nil {
		return err
	}
	var record metadataRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return fmt.Errorf("corrupt metadata file: %w", err)
	}

	if flat.Dimension() != ix.embedder.Dimension() {
		return fmt.Errorf("%w: stored vectors have %d values, embedder produces %d", domain.ErrDimensionMismatch, flat.Dimension(), ix.embedder.Dimension())
	}
	// Saves write the vector file first, so an interrupted save leaves
	// extra trailing vectors next to the previous metadata record.
	if len(record.DocIDs) == len(record.Metadata) && flat.Count() > len(record.DocIDs) {
		ix.log.Warn().
			Int("vectors", flat.Count()).
			Int("records", len(record.DocIDs)).
			Msg("dropping vectors from an interrupted save")
		flat.Truncate(len(record.DocIDs))
	}
	if flat.Count() != len(record.DocIDs) || flat.Count() != len(record.Metadata) {
		return fmt.Errorf("stored counts disagree: %d vectors, %d ids, %d metadata", flat.Count(), len(record.DocIDs), len(record.Metadata))
	}
	if info := ix.embedder.Info(); record.EmbeddingModel.ModelName != "" && record.EmbeddingModel.ModelName != info.ModelName {
		ix.log.Warn().
			Str("stored_model", record.EmbeddingModel.ModelName).
			Str("active_model", info.ModelName).
			Msg("index was built with a different embedding model")
	}

	ix.flat = flat
	ix.docIDs = record.DocIDs
	ix.metadata = record.Metadata
	for i := range ix.metadata {
		if ix.metadata[i] == nil {
			ix.metadata[i] = map[string]any{}
		}
	}
	ix.updatedAt = fromUnixSeconds(record.UpdatedAt)
	return nil
}

// Clear empties the index and persists the empty state.
func (ix *Index) Clear() error {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	flat, ids, meta := ix.flat, ix.docIDs, ix.metadata
	ix.resetLocked()

	if _, _, err := ix.saveLocked(); err != nil {
		ix.flat, ix.docIDs, ix.metadata = flat, ids, meta
		return fmt.Errorf("failed to persist cleared index %s: %w", ix.name, err)
	}

	ix.generation.Add(1)
	ix.log.Info().Msg("cleared index")
	return nil
}

func (ix *Index) resetLocked() {
	ix.flat = NewFlatL2(ix.embedder.Dimension())
	ix.docIDs = nil
	ix.metadata = nil
}

// Stats describes the index for diagnostics.
func (ix *Index) Stats() domain.IndexStats {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	stats := domain.IndexStats{
		Name:           ix.name,
		Size:           ix.flat.Count(),
		EmbeddingModel: ix.embedder.Info(),
	}
	if _, err := os.Stat(ix.IndexPath()); err == nil {
		stats.IndexFile = ix.IndexPath()
	}
	if _, err := os.Stat(ix.MetadataPath()); err == nil {
		stats.MetadataFile = ix.MetadataPath()
	}
	if !ix.updatedAt.IsZero() {
		t := ix.updatedAt
		stats.LastUpdated = &t
	}
	return stats
}

func (ix *Index) timestamp() float64 {
	return unixSeconds(ix.now())
}

// normalizeMetadata deep-copies m through JSON so stored values have the
// same types before and after a save/load cycle.
func normalizeMetadata(m map[string]any) (map[string]any, error) {
	out := map[string]any{}
	if len(m) == 0 {
		return out, nil
	}
	data, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("%w: metadata is not serializable: %v", domain.ErrInvalidInput, err)
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func unixSeconds(t time.Time) float64 {
	return float64(t.UnixNano()) / 1e9
}

func fromUnixSeconds(s float64) time.Time {
	if s == 0 {
		return time.Time{}
	}
	return time.Unix(0, int64(s*1e9))
}
