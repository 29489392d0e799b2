package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ragbench/config"
	"ragbench/internal/adapter/cache"
	"ragbench/internal/adapter/chunker"
	"ragbench/internal/adapter/embedding"
	"ragbench/internal/adapter/fs"
	"ragbench/internal/adapter/store"
	"ragbench/internal/adapter/vectorindex"
	"ragbench/internal/domain"
	"ragbench/internal/logger"
	"ragbench/internal/metrics"
	"ragbench/internal/usecase"
)

func newTestServer(t *testing.T) (*Server, http.Handler) {
	t.Helper()
	dir := t.TempDir()

	docs, err := store.NewBoltStore(filepath.Join(dir, "processed", "documents.db"))
	require.NoError(t, err)
	t.Cleanup(func() { docs.Close() })

	reg := vectorindex.NewRegistry(vectorindex.Options{
		Dir:      filepath.Join(dir, "vectors"),
		Embedder: embedding.NewHashingEmbedder("", 256),
		Logger:   zerolog.Nop(),
	}, config.ValidIndexName)

	m := metrics.New()
	ingest := usecase.NewIngestUseCase(usecase.IngestDeps{
		Documents: docs,
		Indices:   reg,
		Chunker:   chunker.NewTextChunker(200, 40),
		Files:     fs.NewWalker(nil, nil, 0),
		Metrics:   m,
	}, usecase.IngestOptions{}, zerolog.Nop())
	retrieve := usecase.NewRetrieveUseCase(reg, cache.NewQueryCache(16, 0), 3, m, zerolog.Nop())
	status := usecase.NewStatusUseCase(reg, docs, m, zerolog.Nop())

	s := New(Config{Addr: "127.0.0.1:0", CORSOrigins: []string{"*"}}, ingest, retrieve, status, m, logger.Nop())
	return s, s.Handler()
}

func do(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestIngestAndQuery(t *testing.T) {
	_, h := newTestServer(t)

	rec := do(t, h, http.MethodPost, "/ingest", `{"text":"Sourdough bread needs flour, water and time.","metadata":{"topic":"baking"}}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	result := decode[domain.IngestResult](t, rec)
	assert.Equal(t, "success", result.Status)
	assert.Len(t, result.DocumentIDs, 1)
	assert.Equal(t, 1, result.ChunksIngested)
	assert.Equal(t, 1, result.VectorStoreSize)

	rec = do(t, h, http.MethodPost, "/ingest", `{"text":"Change the engine oil every few months."}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, h, http.MethodGet, "/query?q=bread+flour&top_k=1", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	resp := decode[domain.QueryResponse](t, rec)
	assert.Equal(t, "bread flour", resp.Query)
	assert.Equal(t, 2, resp.TotalChunks)
	require.Len(t, resp.Results, 1)
	assert.Contains(t, resp.Results[0].Text, "Sourdough")
	assert.Equal(t, "baking", resp.Results[0].Metadata["topic"])
	assert.NotContains(t, resp.Results[0].Metadata, domain.MetaChunkText)
}

func TestIngestValidation(t *testing.T) {
	_, h := newTestServer(t)

	cases := map[string]string{
		"no source":       `{}`,
		"two sources":     `{"text":"a","url":"https://example.com"}`,
		"malformed json":  `{"text":`,
		"negative max":    `{"news":"ai","max_articles":-1}`,
		"bad index name":  `{"text":"hello","index":"../etc"}`,
		"empty body text": `{"text":"   "}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			rec := do(t, h, http.MethodPost, "/ingest", body)
			assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
			assert.NotEmpty(t, decode[errorBody](t, rec).Detail)
		})
	}
}

func TestQueryErrors(t *testing.T) {
	_, h := newTestServer(t)

	rec := do(t, h, http.MethodGet, "/query", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Query parameter 'q' is required", decode[errorBody](t, rec).Detail)

	rec = do(t, h, http.MethodGet, "/query?q=hello", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Vector store is empty. Ingest some data first.", decode[errorBody](t, rec).Detail)

	rec = do(t, h, http.MethodGet, "/query?q=hello&top_k=abc", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodGet, "/query?q=hello&top_k=0", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestNamedIndices(t *testing.T) {
	_, h := newTestServer(t)

	rec := do(t, h, http.MethodPost, "/ingest", `{"text":"notes about compilers","index":"research"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = do(t, h, http.MethodGet, "/query?q=compilers&index=research", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[domain.QueryResponse](t, rec).Results, 1)

	rec = do(t, h, http.MethodGet, "/query?q=compilers", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestStatusAndClear(t *testing.T) {
	_, h := newTestServer(t)

	rec := do(t, h, http.MethodGet, "/status", "")
	require.Equal(t, http.StatusOK, rec.Code)
	st := decode[statusResponse](t, rec)
	assert.Equal(t, "healthy", st.Status)
	assert.Equal(t, "default", st.Index)
	assert.Zero(t, st.VectorStoreSize)
	assert.Nil(t, st.LastIngest)
	assert.Equal(t, 256, st.EmbeddingModel.Dimension)

	do(t, h, http.MethodPost, "/ingest", `{"text":"first document"}`)

	st = decode[statusResponse](t, do(t, h, http.MethodGet, "/status", ""))
	assert.Equal(t, 1, st.VectorStoreSize)
	assert.Equal(t, 1, st.Documents)
	require.NotNil(t, st.LastIngest)

	rec = do(t, h, http.MethodPost, "/clear", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "success", decode[messageResponse](t, rec).Status)

	st = decode[statusResponse](t, do(t, h, http.MethodGet, "/status", ""))
	assert.Zero(t, st.VectorStoreSize)
}

func TestRoutingAndMiddleware(t *testing.T) {
	_, h := newTestServer(t)

	rec := do(t, h, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get(requestIDHeader))

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(requestIDHeader, "abc-123")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, "abc-123", rec.Header().Get(requestIDHeader))

	rec = do(t, h, http.MethodGet, "/ingest", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)

	req = httptest.NewRequest(http.MethodOptions, "/query", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", "GET")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))

	rec = do(t, h, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "ragbench_http_requests_total")
}

func TestRecoverPanics(t *testing.T) {
	s, _ := newTestServer(t)
	h := requestID(s.recoverPanics(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	})))

	rec := do(t, h, http.MethodGet, "/", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	body := decode[errorBody](t, rec)
	assert.Equal(t, "Internal server error", body.Detail)
	assert.Equal(t, rec.Header().Get(requestIDHeader), body.RequestID)
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, statusFor(domain.ErrInvalidInput))
	assert.Equal(t, http.StatusNotFound, statusFor(domain.ErrNotFound))
	assert.Equal(t, http.StatusBadGateway, statusFor(&domain.UpstreamError{Service: "news", StatusCode: 500}))
	assert.Equal(t, http.StatusGatewayTimeout, statusFor(domain.ErrUpstreamTimeout))
	assert.Equal(t, http.StatusInternalServerError, statusFor(domain.ErrEmbeddingUnavailable))
	assert.Equal(t, http.StatusInternalServerError, statusFor(assert.AnError))
}
