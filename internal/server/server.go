// Package server exposes the tutoring pipeline over HTTP.
//
// Endpoints:
//
//	POST /api/ask       →  retrieve + generate, streamed plain-text answer
//	POST /api/search    →  retrieval only, JSON results
//	POST /api/ingest    →  multipart curriculum upload
//	POST /api/backfill  →  embed pending chunks
//	GET  /api/structure →  stored corpus overview
//	POST /api/structure →  ensure or rebuild the ANN index
//	GET  /health        →  liveness probe
//	GET  /ready         →  readiness probe
//
// File structure:
//   - server.go: HTTP server setup and lifecycle
//   - middleware.go: HTTP middleware (logging, recovery)
//   - health.go: health check endpoints
//   - query.go: ask and search endpoints
//   - ingest.go: curriculum upload endpoint
//   - admin.go: backfill and structure endpoints
//   - response.go: JSON response helpers
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lernia/lernia/internal/log"
)

const (
	// DefaultAddr is the default listen address.
	DefaultAddr = "127.0.0.1:8080"

	// ShutdownTimeout bounds graceful shutdown.
	ShutdownTimeout = 10 * time.Second

	// ReadHeaderTimeout guards against slow-header clients.
	ReadHeaderTimeout = 10 * time.Second

	// ReadTimeout is the maximum duration for reading the entire request.
	ReadTimeout = 30 * time.Second

	// WriteTimeout must cover a full streamed generation, which can take
	// well over a minute for long answers.
	WriteTimeout = 5 * time.Minute

	// IdleTimeout applies to keep-alive connections between requests.
	IdleTimeout = 120 * time.Second
)

// Server is the HTTP server for the tutoring API.
type Server struct {
	mux    *http.ServeMux
	logger log.Logger

	health *HealthHandler
	query  *QueryHandler
	ingest *IngestHandler
	admin  *AdminHandler
}

// NewServer wires all route handlers onto one mux.
func NewServer(pool *pgxpool.Pool, retriever Retriever, answerer Answerer, ingestor Ingestor, backfiller Backfiller, corpus CorpusAdmin, logger log.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		mux:    mux,
		logger: logger,
		health: NewHealthHandler(pool, logger),
		query:  NewQueryHandler(retriever, answerer, logger),
		ingest: NewIngestHandler(ingestor, logger),
		admin:  NewAdminHandler(backfiller, corpus, logger),
	}

	s.health.RegisterRoutes(mux)
	s.query.RegisterRoutes(mux)
	s.ingest.RegisterRoutes(mux)
	s.admin.RegisterRoutes(mux)

	return s
}

// Handler returns the HTTP handler with middleware applied.
// Middleware order: recovery → logging → handler
func (s *Server) Handler() http.Handler {
	return chain(s.mux,
		recoveryMiddleware(s.logger),
		loggingMiddleware(s.logger),
	)
}

// Run starts the HTTP server and blocks until the context is cancelled,
// then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	if addr == "" {
		addr = DefaultAddr
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: ReadHeaderTimeout,
		ReadTimeout:       ReadTimeout,
		WriteTimeout:      WriteTimeout,
		IdleTimeout:       IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting HTTP server", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("shutting down HTTP server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	}
}
