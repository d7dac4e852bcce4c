// Package vectorstore defines vector persistence and similarity search
// against a collection-based store.
package vectorstore

import "context"

// Record is a stored vector with its payload.
type Record struct {
	ID      string
	Vector  []float32
	Payload map[string]any
}

// SearchHit is a single similarity search result.
type SearchHit struct {
	ID      string
	Score   float64
	Payload map[string]any
}

// CollectionInfo reports collection statistics.
type CollectionInfo struct {
	PointsCount int64
}

// Store defines collection lifecycle, vector persistence, and cosine
// similarity search. All collections use cosine distance.
type Store interface {
	ListCollections(ctx context.Context) ([]string, error)
	CreateCollection(ctx context.Context, name string, dimensions int) error
	DeleteCollection(ctx context.Context, name string) error
	CollectionInfo(ctx context.Context, name string) (*CollectionInfo, error)
	Upsert(ctx context.Context, name string, records []Record) error
	// Search returns up to topK hits ordered by descending score; hits below
	// scoreThreshold are excluded by the store.
	Search(ctx context.Context, name string, vector []float32, topK int, scoreThreshold float64) ([]SearchHit, error)
	Scroll(ctx context.Context, name string, limit int) ([]Record, error)
	Delete(ctx context.Context, name string, ids []string) error
}
