package rag

import (
	"context"
	"fmt"

	"github.com/hyperjump/kotae/internal/models"
)

// unknownSource is the fallback when a stored record's payload lacks a
// source document name.
const unknownSource = "Unknown"

// Retrieve embeds the question, searches the collection, and projects the
// hits into contexts. The store applies the score threshold; hits arrive
// ordered by descending score and are not re-sorted. Missing payload
// fields degrade to defaults rather than failing the query.
func (p *Pipeline) Retrieve(ctx context.Context, question string, topK int) ([]models.RetrievedContext, error) {
	vector, err := p.embedder.Embed(ctx, question)
	if err != nil {
		return nil, fmt.Errorf("embed question: %w", err)
	}

	hits, err := p.store.Search(ctx, p.collection, vector, topK, p.cfg.ScoreThreshold)
	if err != nil {
		return nil, fmt.Errorf("search collection %s: %w", p.collection, err)
	}

	contexts := make([]models.RetrievedContext, 0, len(hits))
	for _, hit := range hits {
		contexts = append(contexts, models.RetrievedContext{
			Content:        payloadString(hit.Payload, payloadContent, ""),
			SourceDocument: payloadString(hit.Payload, payloadSourceDocument, unknownSource),
			Score:          hit.Score,
		})
	}
	return contexts, nil
}

// payloadString reads a string field from a record payload, falling back
// to def when the field is absent or not a string.
func payloadString(payload map[string]any, key, def string) string {
	if payload == nil {
		return def
	}
	if v, ok := payload[key].(string); ok {
		return v
	}
	return def
}

// payloadInt reads an integer field from a record payload. JSON decoding
// yields float64 for numbers, so both forms are accepted.
func payloadInt(payload map[string]any, key string) int {
	if payload == nil {
		return 0
	}
	switch v := payload[key].(type) {
	case int:
		return v
	case float64:
		return int(v)
	default:
		return 0
	}
}
