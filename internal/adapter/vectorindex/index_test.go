package vectorindex

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ragbench/internal/domain"
)

// conceptEmbedder scores texts on fixed keyword groups, one axis per group.
type conceptEmbedder struct {
	groups [][]string
	err    error
}

func newConceptEmbedder() *conceptEmbedder {
	return &conceptEmbedder{groups: [][]string{
		{"apple", "banana", "fruit"},
		{"pie", "bread", "dessert", "recipe"},
		{"car", "engine", "repair"},
	}}
}

func (e *conceptEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	if e.err != nil {
		return nil, e.err
	}
	out := make([][]float32, len(texts))
	for i, text := range texts {
		lower := strings.ToLower(text)
		vec := make([]float32, len(e.groups))
		var norm float64
		for g, words := range e.groups {
			for _, w := range words {
				vec[g] += float32(strings.Count(lower, w))
			}
			norm += float64(vec[g] * vec[g])
		}
		if norm > 0 {
			for g := range vec {
				vec[g] /= float32(math.Sqrt(norm))
			}
		}
		out[i] = vec
	}
	return out, nil
}

func (e *conceptEmbedder) Dimension() int {
	return len(e.groups)
}

func (e *conceptEmbedder) Info() domain.ModelInfo {
	return domain.ModelInfo{ModelType: "test", ModelName: "concept", Dimension: len(e.groups)}
}

func openTestIndex(t *testing.T, dir string, emb *conceptEmbedder) *Index {
	t.Helper()
	ix, err := Open("default", Options{
		Dir:      dir,
		Embedder: emb,
		Logger:   zerolog.Nop(),
		Now:      func() time.Time { return time.Unix(1700000000, 0) },
	})
	require.NoError(t, err)
	return ix
}

func fruitDocs() []domain.Document {
	return []domain.Document{
		{ID: "fruit", Chunks: []string{"apples and bananas are fruit"}, Metadata: map[string]any{"type": "text"}},
		{ID: "dessert", Chunks: []string{"apple pie recipe for dessert"}, Metadata: map[string]any{"type": "text"}},
		{ID: "cars", Chunks: []string{"car engine repair manual"}, Metadata: map[string]any{"type": "web", "source": "http://example.com"}},
	}
}

func TestSearchRanksBySimilarity(t *testing.T) {
	ix := openTestIndex(t, t.TempDir(), newConceptEmbedder())

	added, err := ix.AddDocuments(context.Background(), fruitDocs())
	require.NoError(t, err)
	assert.Equal(t, 3, added)

	results, err := ix.Search(context.Background(), "fruit", 3)
	require.NoError(t, err)
	require.Len(t, results, 3)

	assert.Equal(t, "fruit_0", results[0].ChunkID)
	assert.Equal(t, "apples and bananas are fruit", results[0].Text)
	assert.InDelta(t, 1.0, results[0].Score, 1e-6)
	assert.Equal(t, "dessert_0", results[1].ChunkID)
	assert.Equal(t, "cars_0", results[2].ChunkID)

	for i := 1; i < len(results); i++ {
		assert.GreaterOrEqual(t, results[i-1].Score, results[i].Score)
	}

	meta := results[0].Metadata
	assert.Equal(t, "fruit", meta[domain.MetaDocID])
	assert.Equal(t, float64(0), meta[domain.MetaChunkIndex])
	assert.Equal(t, "text", meta["type"])
	assert.NotContains(t, meta, domain.MetaChunkText)
}

func TestAddTextsFoodAboveCars(t *testing.T) {
	ix := openTestIndex(t, t.TempDir(), newConceptEmbedder())

	_, err := ix.AddTexts(context.Background(), []string{"apple pie recipe", "banana bread recipe", "car engine repair"}, nil)
	require.NoError(t, err)

	results, err := ix.Search(context.Background(), "fruit dessert", 2)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "apple pie recipe", results[0].Text)
	assert.Equal(t, "banana bread recipe", results[1].Text)

	all, err := ix.Search(context.Background(), "fruit dessert", 3)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "car engine repair", all[2].Text)
	assert.Greater(t, all[1].Score, all[2].Score)
}

func TestSearchClampsTopK(t *testing.T) {
	ix := openTestIndex(t, t.TempDir(), newConceptEmbedder())

	_, err := ix.AddTexts(context.Background(), []string{"car repair", "banana bread"}, nil)
	require.NoError(t, err)

	results, err := ix.Search(context.Background(), "engine", 10)
	require.NoError(t, err)
	assert.Len(t, results, 2)

	_, err = ix.Search(context.Background(), "engine", 0)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestSearchEmptyIndex(t *testing.T) {
	ix := openTestIndex(t, t.TempDir(), newConceptEmbedder())

	results, err := ix.Search(context.Background(), "anything", 5)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestAddDocumentsSkipsEmpty(t *testing.T) {
	ix := openTestIndex(t, t.TempDir(), newConceptEmbedder())

	added, err := ix.AddDocuments(context.Background(), []domain.Document{
		{ID: "empty"},
		{ID: "two", Chunks: []string{"apple", "engine"}},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, added)
	assert.Equal(t, 2, ix.Count())

	results, err := ix.Search(context.Background(), "engine", 1)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "two_1", results[0].ChunkID)
}

func TestAddTexts(t *testing.T) {
	ix := openTestIndex(t, t.TempDir(), newConceptEmbedder())

	ids, err := ix.AddTexts(context.Background(), []string{"apple", "car"}, []map[string]any{{"k": "a"}, nil})
	require.NoError(t, err)
	require.Len(t, ids, 2)
	assert.Equal(t, fmt.Sprintf("text_%d_0", time.Unix(1700000000, 0).UnixNano()), ids[0])
	assert.True(t, strings.HasSuffix(ids[1], "_1"))

	_, err = ix.AddTexts(context.Background(), []string{"apple"}, []map[string]any{{}, {}})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.Equal(t, 2, ix.Count())
}

func TestEmbedFailureAddsNothing(t *testing.T) {
	emb := newConceptEmbedder()
	ix := openTestIndex(t, t.TempDir(), emb)

	emb.err = errors.New("provider down")
	_, err := ix.AddDocuments(context.Background(), fruitDocs())
	require.Error(t, err)
	assert.Equal(t, 0, ix.Count())
}

func TestSaveAndReload(t *testing.T) {
	dir := t.TempDir()
	ix := openTestIndex(t, dir, newConceptEmbedder())

	_, err := ix.AddDocuments(context.Background(), fruitDocs())
	require.NoError(t, err)
	before, err := ix.Search(context.Background(), "dessert", 3)
	require.NoError(t, err)

	reloaded := openTestIndex(t, dir, newConceptEmbedder())
	assert.Equal(t, 3, reloaded.Count())

	after, err := reloaded.Search(context.Background(), "dessert", 3)
	require.NoError(t, err)
	assert.Equal(t, before, after)

	stats := reloaded.Stats()
	assert.Equal(t, 3, stats.Size)
	assert.Equal(t, "concept", stats.EmbeddingModel.ModelName)
	assert.Equal(t, reloaded.IndexPath(), stats.IndexFile)
	assert.Equal(t, reloaded.MetadataPath(), stats.MetadataFile)
	require.NotNil(t, stats.LastUpdated)
}

func TestLoadCorruptFileStartsEmpty(t *testing.T) {
	dir := t.TempDir()
	ix := openTestIndex(t, dir, newConceptEmbedder())
	_, err := ix.AddDocuments(context.Background(), fruitDocs())
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(ix.IndexPath(), []byte("not an index"), 0644))

	reloaded := openTestIndex(t, dir, newConceptEmbedder())
	assert.Equal(t, 0, reloaded.Count())

	_, err = reloaded.AddTexts(context.Background(), []string{"apple"}, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, openTestIndex(t, dir, newConceptEmbedder()).Count())
}

func TestLoadMissingCompanionStartsEmpty(t *testing.T) {
	dir := t.TempDir()
	ix := openTestIndex(t, dir, newConceptEmbedder())
	_, err := ix.AddDocuments(context.Background(), fruitDocs())
	require.NoError(t, err)

	require.NoError(t, os.Remove(ix.MetadataPath()))

	assert.Equal(t, 0, openTestIndex(t, dir, newConceptEmbedder()).Count())
}

func TestLoadDimensionMismatchStartsEmpty(t *testing.T) {
	dir := t.TempDir()
	ix := openTestIndex(t, dir, newConceptEmbedder())
	_, err := ix.AddDocuments(context.Background(), fruitDocs())
	require.NoError(t, err)

	wider := newConceptEmbedder()
	wider.groups = append(wider.groups, []string{"music"})

	assert.Equal(t, 0, openTestIndex(t, dir, wider).Count())
}

func TestClearPersists(t *testing.T) {
	dir := t.TempDir()
	ix := openTestIndex(t, dir, newConceptEmbedder())
	_, err := ix.AddDocuments(context.Background(), fruitDocs())
	require.NoError(t, err)

	gen := ix.Generation()
	require.NoError(t, ix.Clear())
	assert.Equal(t, 0, ix.Count())
	assert.Greater(t, ix.Generation(), gen)

	assert.Equal(t, 0, openTestIndex(t, dir, newConceptEmbedder()).Count())
}

func TestFailedSaveRollsBack(t *testing.T) {
	dir := t.TempDir()
	ix := openTestIndex(t, dir, newConceptEmbedder())
	_, err := ix.AddTexts(context.Background(), []string{"apple"}, nil)
	require.NoError(t, err)
	gen := ix.Generation()

	require.NoError(t, os.RemoveAll(dir))

	_, err = ix.AddDocuments(context.Background(), fruitDocs())
	require.Error(t, err)
	assert.Equal(t, 1, ix.Count())
	assert.Equal(t, gen, ix.Generation())

	results, err := ix.Search(context.Background(), "apple", 5)
	require.NoError(t, err)
	assert.Len(t, results, 1)
}

func TestConcurrentAddAndSearch(t *testing.T) {
	ix := openTestIndex(t, t.TempDir(), newConceptEmbedder())

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			doc := domain.Document{ID: fmt.Sprintf("doc%d", i), Chunks: []string{"apple pie", "car engine"}}
			_, err := ix.AddDocuments(context.Background(), []domain.Document{doc})
			assert.NoError(t, err)
		}(i)
		go func() {
			defer wg.Done()
			results, err := ix.Search(context.Background(), "banana", 3)
			assert.NoError(t, err)
			assert.LessOrEqual(t, len(results), 3)
		}()
	}
	wg.Wait()

	assert.Equal(t, 16, ix.Count())
}

func TestRegistry(t *testing.T) {
	reg := NewRegistry(Options{Dir: t.TempDir(), Embedder: newConceptEmbedder(), Logger: zerolog.Nop()}, func(name string) bool {
		return name != "" && !strings.ContainsAny(name, "./ ")
	})

	a, err := reg.Index("alpha")
	require.NoError(t, err)
	again, err := reg.Index("alpha")
	require.NoError(t, err)
	assert.Same(t, a, again)

	_, err = reg.Get("beta")
	require.NoError(t, err)
	assert.Equal(t, []string{"alpha", "beta"}, reg.Names())

	_, err = reg.Get("../etc")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestLoadKeepsStateAfterInterruptedSave(t *testing.T) {
	dir := t.TempDir()
	ix := openTestIndex(t, dir, newConceptEmbedder())

	_, err := ix.AddTexts(context.Background(), []string{"apple pie", "banana bread", "car repair"}, nil)
	require.NoError(t, err)
	previous, err := os.ReadFile(ix.MetadataPath())
	require.NoError(t, err)

	_, err = ix.AddTexts(context.Background(), []string{"engine oil"}, nil)
	require.NoError(t, err)
	require.Equal(t, 4, ix.Count())

	// The vector file of the second add landed, its metadata did not.
	require.NoError(t, os.WriteFile(ix.MetadataPath(), previous, 0644))

	reloaded := openTestIndex(t, dir, newConceptEmbedder())
	assert.Equal(t, 3, reloaded.Count())

	results, err := reloaded.Search(context.Background(), "car", 1)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "car repair", results[0].Text)

	_, err = reloaded.AddTexts(context.Background(), []string{"engine oil"}, nil)
	require.NoError(t, err)
	assert.Equal(t, 4, openTestIndex(t, dir, newConceptEmbedder()).Count())
}
