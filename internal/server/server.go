// Package server provides the HTTP API for kotae.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/hyperjump/kotae/internal/config"
	"github.com/hyperjump/kotae/internal/extract"
	"github.com/hyperjump/kotae/internal/rag"
	"github.com/hyperjump/kotae/internal/storage"
)

// Server is the HTTP server for the kotae API.
type Server struct {
	pipeline *rag.Pipeline
	parser   extract.Parser
	registry storage.Registry
	config   *config.Config
	logger   *zap.Logger
	server   *http.Server
}

// NewServer creates a server with the given dependencies. registry may be
// nil; the documents listing then reports an empty list.
func NewServer(
	pipeline *rag.Pipeline,
	parser extract.Parser,
	registry storage.Registry,
	cfg *config.Config,
	logger *zap.Logger,
) *Server {
	return &Server{
		pipeline: pipeline,
		parser:   parser,
		registry: registry,
		config:   cfg,
		logger:   logger,
	}
}

// Router builds the chi router with all API routes.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(5 * time.Minute))
	r.Use(middleware.Compress(5))

	r.Post("/api/v1/documents", s.handleIngestDocument)
	r.Get("/api/v1/documents", s.handleListDocuments)
	r.Post("/api/v1/query", s.handleQuery)
	r.Get("/api/v1/chunks", s.handleListChunks)
	r.Delete("/api/v1/chunks", s.handleDeleteChunks)
	r.Post("/api/v1/collection/clear", s.handleClearCollection)
	r.Get("/api/v1/status", s.handleStatus)
	r.Get("/health", s.handleHealth)

	return r
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port)
	s.server = &http.Server{
		Addr:    addr,
		Handler: s.Router(),
	}
	s.logger.Info("Starting server", zap.String("addr", addr))
	return s.server.ListenAndServe()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}
