package rag

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/kotae/internal/llm"
	"github.com/hyperjump/kotae/internal/models"
)

// Fixed user-visible answers for degraded outcomes.
const (
	noContextMessage = "I could not find any relevant information in the knowledge base to answer your question."

	rateLimitMessage = "The answer service is currently rate limited. Please try again in a few minutes."

	generationErrorMessage = "An error occurred while generating the answer. Please try again."

	searchFailedMessage = "An error occurred while searching the knowledge base. Please try again."
)

const systemPrompt = `You are a helpful assistant that answers questions using only the provided context.
If the context does not contain enough information to answer the question, say so explicitly.
Do not use knowledge outside the provided context.`

// Synthesize builds a grounded prompt from the contexts and calls the
// generator. Empty contexts short-circuit to a fixed message without
// contacting the generator. Rate-limit failures are retried with
// exponential backoff up to the configured attempt cap; any other failure
// is converted once to a fixed error message.
func (p *Pipeline) Synthesize(ctx context.Context, question string, contexts []models.RetrievedContext) string {
	if len(contexts) == 0 {
		return noContextMessage
	}

	userPrompt := buildUserPrompt(question, contexts)

	for attempt := 0; attempt < p.cfg.MaxAttempts; attempt++ {
		answer, err := p.generator.Generate(ctx, systemPrompt, userPrompt)
		if err == nil {
			return answer
		}
		if !errors.Is(err, llm.ErrRateLimited) {
			p.logger.Error("answer generation failed", zap.Error(err))
			return generationErrorMessage
		}
		if attempt == p.cfg.MaxAttempts-1 {
			break
		}
		delay := backoffDelay(attempt, p.cfg.BackoffBaseSeconds)
		p.logger.Warn("generation rate limited, backing off",
			zap.Int("attempt", attempt+1),
			zap.Duration("delay", delay))
		if err := p.sleep(ctx, delay); err != nil {
			// Cancellation aborts remaining retries immediately.
			return rateLimitMessage
		}
	}

	p.logger.Error("answer generation rate limited after all attempts",
		zap.Int("attempts", p.cfg.MaxAttempts))
	return rateLimitMessage
}

// buildUserPrompt concatenates each context as a numbered source block,
// separated by blank lines, followed by the question.
func buildUserPrompt(question string, contexts []models.RetrievedContext) string {
	var b strings.Builder
	b.WriteString("Context:\n\n")
	for i, c := range contexts {
		if i > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "[Source %d]: %s", i+1, c.Content)
	}
	b.WriteString("\n\nQuestion: ")
	b.WriteString(question)
	return b.String()
}

// backoffDelay returns the wait before the next retry after the given
// zero-based attempt: base doubles with each attempt (4s, 8s, 16s, 32s
// with the default base of 4).
func backoffDelay(attempt, baseSeconds int) time.Duration {
	return time.Duration(baseSeconds<<attempt) * time.Second
}
