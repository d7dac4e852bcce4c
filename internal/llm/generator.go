// Package llm provides answer generation via chat completion services.
package llm

import (
	"context"
	"errors"
)

// ErrRateLimited is returned when the service rejects a request because the
// caller exceeded its rate limit. Callers may retry after a backoff.
var ErrRateLimited = errors.New("llm: rate limited")

// Generator produces text from a system instruction and a user prompt.
type Generator interface {
	Generate(ctx context.Context, systemPrompt, userPrompt string) (string, error)
	ModelName() string
	Close() error
}
