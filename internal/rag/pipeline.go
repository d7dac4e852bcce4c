// Package rag implements the ingestion and query pipeline: chunking,
// embedding coordination, similarity retrieval, and grounded answer
// synthesis. Failures are converted to result objects at the package
// boundary; no error from a remote service propagates to callers of
// Ingest or Query.
package rag

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/kotae/internal/config"
	"github.com/hyperjump/kotae/internal/embedding"
	"github.com/hyperjump/kotae/internal/llm"
	"github.com/hyperjump/kotae/internal/models"
	"github.com/hyperjump/kotae/internal/storage"
	"github.com/hyperjump/kotae/internal/vectorstore"
)

// Pipeline coordinates the vector store, embedding service, and answer
// generator for one collection. It holds no in-process mutable state;
// concurrent calls are safe as long as the injected services are.
type Pipeline struct {
	store      vectorstore.Store
	embedder   embedding.Embedder
	generator  llm.Generator
	registry   storage.Registry
	collection string
	dimensions int
	cfg        config.RAGConfig
	logger     *zap.Logger

	// sleep waits between generation retries; injectable for tests.
	sleep func(ctx context.Context, d time.Duration) error
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets the pipeline logger.
func WithLogger(logger *zap.Logger) Option {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// WithRegistry attaches a document registry. Registry writes are
// best-effort and never fail an ingestion.
func WithRegistry(reg storage.Registry) Option {
	return func(p *Pipeline) {
		p.registry = reg
	}
}

// WithSleep replaces the retry delay function.
func WithSleep(sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(p *Pipeline) {
		p.sleep = sleep
	}
}

// New creates a Pipeline operating on the named collection. The vector
// dimension is taken from the embedder.
func New(store vectorstore.Store, embedder embedding.Embedder, generator llm.Generator, collection string, cfg config.RAGConfig, opts ...Option) *Pipeline {
	p := &Pipeline{
		store:      store,
		embedder:   embedder,
		generator:  generator,
		collection: collection,
		dimensions: embedder.Dimensions(),
		cfg:        cfg,
		logger:     zap.NewNop(),
		sleep:      sleepContext,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// sleepContext waits for d or until ctx is cancelled.
func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Query answers a question against the knowledge base: retrieve contexts,
// synthesize a grounded answer, and report total processing time. A topK
// of zero or less uses the configured default. Retrieval failure yields a
// fixed advisory answer, never an error.
func (p *Pipeline) Query(ctx context.Context, question string, topK int) models.QueryResult {
	start := time.Now()
	if topK <= 0 {
		topK = p.cfg.TopK
	}

	contexts, err := p.Retrieve(ctx, question, topK)
	if err != nil {
		p.logger.Error("retrieval failed", zap.Error(err))
		return models.QueryResult{
			Answer:           searchFailedMessage,
			ProcessingTimeMs: float64(time.Since(start).Microseconds()) / 1000.0,
		}
	}

	answer := p.Synthesize(ctx, question, contexts)
	return models.QueryResult{
		Answer:           answer,
		Sources:          contexts,
		ProcessingTimeMs: float64(time.Since(start).Microseconds()) / 1000.0,
	}
}
