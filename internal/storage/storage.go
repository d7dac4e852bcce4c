// Package storage provides the document registry backing the knowledge base.
package storage

import (
	"context"

	"github.com/hyperjump/kotae/internal/models"
)

// Registry records which documents have been ingested and how many chunks
// each produced. It is bookkeeping alongside the vector store, not the
// source of retrieval.
type Registry interface {
	// RecordDocument stores the registry entry for a document. Entries are
	// keyed by name: recording an already-known name replaces its entry.
	RecordDocument(ctx context.Context, rec *models.DocumentRecord) error

	// GetDocument returns a document record by ID.
	GetDocument(ctx context.Context, id string) (*models.DocumentRecord, error)

	// ListDocuments returns recorded documents, newest first.
	ListDocuments(ctx context.Context, offset, limit int) ([]*models.DocumentRecord, error)

	// CountDocuments returns the number of recorded documents.
	CountDocuments(ctx context.Context) (int64, error)

	// DeleteDocument removes a document record by ID.
	DeleteDocument(ctx context.Context, id string) error

	// Clear removes all document records.
	Clear(ctx context.Context) error

	// Close releases the underlying resources.
	Close() error
}
