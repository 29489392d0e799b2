package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"ragbench/internal/domain"
)

const maxBodyBytes = 10 << 20

type ingestRequest struct {
	Text        string         `json:"text"`
	URL         string         `json:"url"`
	File        string         `json:"file"`
	Wikipedia   string         `json:"wikipedia"`
	News        string         `json:"news"`
	Financial   string         `json:"financial"`
	Metadata    map[string]any `json:"metadata"`
	Index       string         `json:"index"`
	MaxArticles int            `json:"max_articles"`
}

type statusResponse struct {
	Status          string           `json:"status"`
	Index           string           `json:"index"`
	VectorStoreSize int              `json:"vector_store_size"`
	Documents       int              `json:"documents"`
	LastIngest      *string          `json:"last_ingest"`
	EmbeddingModel  domain.ModelInfo `json:"embedding_model"`
}

type messageResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

func (s *Server) indexParam(name string) string {
	if name = strings.TrimSpace(name); name != "" {
		return name
	}
	return s.cfg.DefaultIndex
}

func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	var req ingestRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(&req); err != nil {
		if errors.Is(err, io.EOF) {
			err = errors.New("request body is empty")
		}
		s.writeError(w, r, fmt.Errorf("%w: invalid JSON body: %v", domain.ErrInvalidInput, err))
		return
	}
	if req.MaxArticles < 0 {
		s.writeError(w, r, fmt.Errorf("%w: max_articles must not be negative", domain.ErrInvalidInput))
		return
	}

	src, err := domain.NewIngestSource(domain.SourceFields{
		Text:      req.Text,
		URL:       req.URL,
		File:      req.File,
		Wikipedia: req.Wikipedia,
		News:      req.News,
		Financial: req.Financial,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	src.MaxArticles = req.MaxArticles

	result, err := s.ingest.Ingest(r.Context(), s.indexParam(req.Index), src, req.Metadata)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	params := r.URL.Query()

	q := params.Get("q")
	if strings.TrimSpace(q) == "" {
		s.writeError(w, r, domain.ErrEmptyQuery)
		return
	}

	topK := 0
	if raw := params.Get("top_k"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			s.writeError(w, r, fmt.Errorf("%w: top_k must be a positive integer, got %q", domain.ErrInvalidInput, raw))
			return
		}
		topK = n
	}

	resp, err := s.retrieve.Query(r.Context(), s.indexParam(params.Get("index")), q, topK)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	report, err := s.status.Status(s.indexParam(r.URL.Query().Get("index")))
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	resp := statusResponse{
		Status:          "healthy",
		Index:           report.Index,
		VectorStoreSize: report.VectorStoreSize,
		Documents:       report.Documents,
		EmbeddingModel:  report.Stats.EmbeddingModel,
	}
	if report.LastIngest != nil {
		ts := report.LastIngest.UTC().Format(time.RFC3339)
		resp.LastIngest = &ts
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleClear(w http.ResponseWriter, r *http.Request) {
	index := s.indexParam(r.URL.Query().Get("index"))
	if err := s.status.Clear(index); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{
		Status:  "success",
		Message: fmt.Sprintf("Vector store %q cleared", index),
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
