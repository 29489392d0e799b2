// Package server exposes the ingestion and retrieval use cases over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"ragbench/internal/logger"
	"ragbench/internal/metrics"
	"ragbench/internal/usecase"
)

// Config holds the HTTP settings of the service.
type Config struct {
	Addr            string
	DefaultIndex    string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	CORSOrigins     []string
	VectorDir       string
}

// Server serves the ingestion and retrieval API.
type Server struct {
	cfg      Config
	ingest   *usecase.IngestUseCase
	retrieve *usecase.RetrieveUseCase
	status   *usecase.StatusUseCase
	metrics  *metrics.Metrics
	log      *logger.Logger
	http     *http.Server
}

func New(cfg Config, ingest *usecase.IngestUseCase, retrieve *usecase.RetrieveUseCase, status *usecase.StatusUseCase, m *metrics.Metrics, log *logger.Logger) *Server {
	if cfg.DefaultIndex == "" {
		cfg.DefaultIndex = "default"
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = 10 * time.Second
	}

	s := &Server{
		cfg:      cfg,
		ingest:   ingest,
		retrieve: retrieve,
		status:   status,
		metrics:  m,
		log:      log,
	}
	s.http = &http.Server{
		Addr:         cfg.Addr,
		Handler:      s.Handler(),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

// Handler returns the routed API wrapped in the middleware chain.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /ingest", s.handleIngest)
	mux.HandleFunc("GET /query", s.handleQuery)
	mux.HandleFunc("GET /status", s.handleStatus)
	mux.HandleFunc("POST /clear", s.handleClear)
	mux.HandleFunc("GET /health", s.handleHealth)
	if s.metrics != nil {
		mux.Handle("GET /metrics", s.metrics.Handler())
	}

	var h http.Handler = mux
	h = s.recoverPanics(h)
	h = s.observe(h)
	h = cors(s.cfg.CORSOrigins, h)
	h = requestID(h)
	return h
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.log.LogServerStart(s.cfg.Addr, s.cfg.VectorDir)
		if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server failed: %w", err)
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.log.LogServerShutdown()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()
	if err := s.http.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown failed: %w", err)
	}
	return <-errCh
}
