package rag

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hyperjump/kotae/internal/chunker"
	"github.com/hyperjump/kotae/internal/models"
	"github.com/hyperjump/kotae/internal/vectorstore"
)

// Payload keys for stored vector records.
const (
	payloadContent        = "content"
	payloadSourceDocument = "source_document"
	payloadChunkIndex     = "chunk_index"
	payloadCreatedAt      = "created_at"
)

// Ingest chunks content, embeds the chunks in one batch, and upserts the
// resulting records. Every failure is reported through the IngestResult;
// Ingest never returns an error. Empty or too-short content is a reported
// outcome, not a fault.
func (p *Pipeline) Ingest(ctx context.Context, content, documentName string) models.IngestResult {
	if !p.EnsureCollection(ctx) {
		return ingestFailure("vector store is unavailable")
	}

	chunks := chunker.ChunkText(content, p.cfg.MaxChunkSize, p.cfg.ChunkOverlap)
	if len(chunks) == 0 {
		return models.IngestResult{
			Success: false,
			Message: "document produced no chunks: content is empty or too short",
		}
	}

	embeddings, err := p.embedder.EmbedBatch(ctx, chunks)
	if err != nil {
		p.logger.Error("embedding batch failed", zap.String("document", documentName), zap.Error(err))
		return ingestFailure(fmt.Sprintf("embedding failed: %v", err))
	}
	if len(embeddings) != len(chunks) {
		return ingestFailure(fmt.Sprintf("embedding count mismatch: %d chunks, %d vectors", len(chunks), len(embeddings)))
	}

	createdAt := time.Now().UTC().Format(time.RFC3339)
	records := make([]vectorstore.Record, len(chunks))
	for i, chunk := range chunks {
		if len(embeddings[i]) != p.dimensions {
			return ingestFailure(fmt.Sprintf("embedding dimension mismatch at chunk %d: got %d, expected %d", i, len(embeddings[i]), p.dimensions))
		}
		records[i] = vectorstore.Record{
			ID:     uuid.NewString(),
			Vector: embeddings[i],
			Payload: map[string]any{
				payloadContent:        chunk,
				payloadSourceDocument: documentName,
				payloadChunkIndex:     i,
				payloadCreatedAt:      createdAt,
			},
		}
	}

	if err := p.store.Upsert(ctx, p.collection, records); err != nil {
		p.logger.Error("upsert failed", zap.String("document", documentName), zap.Error(err))
		return ingestFailure(fmt.Sprintf("vector store upsert failed: %v", err))
	}

	p.recordDocument(ctx, documentName, len(chunks))

	p.logger.Info("document ingested",
		zap.String("document", documentName),
		zap.Int("chunks", len(chunks)))
	return models.IngestResult{
		Success:       true,
		Message:       fmt.Sprintf("ingested %d chunks from %s", len(chunks), documentName),
		ChunksCreated: len(chunks),
	}
}

// recordDocument writes a registry entry. Best-effort: a registry failure
// is logged and ignored.
func (p *Pipeline) recordDocument(ctx context.Context, documentName string, chunks int) {
	if p.registry == nil {
		return
	}
	rec := &models.DocumentRecord{
		ID:     uuid.NewString(),
		Name:   documentName,
		Chunks: chunks,
	}
	if err := p.registry.RecordDocument(ctx, rec); err != nil {
		p.logger.Warn("document registry write failed", zap.String("document", documentName), zap.Error(err))
	}
}

func ingestFailure(message string) models.IngestResult {
	return models.IngestResult{Success: false, Message: message}
}
