// Package models defines core data structures for documents, queries, and results.
package models

import "time"

// DocumentRecord describes an ingested document as tracked by the registry.
type DocumentRecord struct {
	ID        string    `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	Chunks    int       `json:"chunks" db:"chunks"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// ChunkInfo is a stored-chunk projection returned by the chunk listing,
// with content truncated to a short preview.
type ChunkInfo struct {
	ID             string `json:"id"`
	SourceDocument string `json:"source_document"`
	ContentPreview string `json:"content_preview"`
	ChunkIndex     int    `json:"chunk_index"`
}
