// Package embedding provides text embedding via remote services, with caching.
package embedding

import "context"

// Embedder produces vector embeddings for text.
type Embedder interface {
	// Embed returns the embedding for a single text.
	Embed(ctx context.Context, text string) ([]float32, error)
	// EmbedBatch returns one embedding per input text, in input order.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimensions() int
	Close() error
}
