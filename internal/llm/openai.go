package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Default configuration values.
const (
	DefaultBaseURL     = "https://api.openai.com/v1"
	DefaultModel       = "gpt-4o-mini"
	DefaultTimeout     = 120 * time.Second
	DefaultTemperature = 0.3
)

// OpenAIConfig holds configuration for an OpenAI-compatible chat service.
type OpenAIConfig struct {
	// APIKey is the bearer token; may be empty for local endpoints.
	APIKey string

	// BaseURL is the API base URL (default: https://api.openai.com/v1).
	// Any OpenAI-compatible endpoint works.
	BaseURL string

	// Model is the chat model (default: gpt-4o-mini).
	Model string

	// Temperature controls sampling randomness (default: 0.3).
	Temperature float64

	// MaxTokens caps the completion length when positive.
	MaxTokens int

	// Timeout is the request timeout (default: 120s).
	Timeout time.Duration
}

// OpenAIGenerator generates answers via an OpenAI-compatible /chat/completions
// endpoint. HTTP 429 responses are reported as ErrRateLimited.
type OpenAIGenerator struct {
	client      *http.Client
	baseURL     string
	apiKey      string
	model       string
	temperature float64
	maxTokens   int
}

// chatRequest is the OpenAI /chat/completions request format.
type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature,omitempty"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// chatResponse is the OpenAI /chat/completions response format.
type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

// NewOpenAIGenerator creates a generator for an OpenAI-compatible endpoint.
func NewOpenAIGenerator(cfg OpenAIConfig) *OpenAIGenerator {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Temperature == 0 {
		cfg.Temperature = DefaultTemperature
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	return &OpenAIGenerator{
		client:      &http.Client{Timeout: cfg.Timeout},
		baseURL:     cfg.BaseURL,
		apiKey:      cfg.APIKey,
		model:       cfg.Model,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
	}
}

// Generate sends a system and user message pair and returns the completion.
func (g *OpenAIGenerator) Generate(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	reqBody := chatRequest{
		Model: g.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrompt},
		},
		Temperature: g.temperature,
		MaxTokens:   g.maxTokens,
	}
	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/chat/completions", bytes.NewReader(jsonBody))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if g.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+g.apiKey)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		return "", fmt.Errorf("%w: %s", ErrRateLimited, string(body))
	}

	var chatResp chatResponse
	if err := json.Unmarshal(body, &chatResp); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if chatResp.Error != nil {
		return "", fmt.Errorf("chat error: %s", chatResp.Error.Message)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("chat request failed (status %d): %s", resp.StatusCode, string(body))
	}
	if len(chatResp.Choices) == 0 {
		return "", fmt.Errorf("chat response contained no choices")
	}
	return chatResp.Choices[0].Message.Content, nil
}

// ModelName returns the configured chat model.
func (g *OpenAIGenerator) ModelName() string {
	return g.model
}

// Close is a no-op; the underlying http.Client needs no teardown.
func (g *OpenAIGenerator) Close() error {
	return nil
}
