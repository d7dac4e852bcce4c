package embedding

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
	DefaultBaseURL   = "https://api.openai.com/v1"
	DefaultModel     = "text-embedding-3-small"
	DefaultTimeout   = 30 * time.Second
	DefaultCacheSize = 10000
)

// OpenAIConfig holds configuration for an OpenAI-compatible embedding service.
type OpenAIConfig struct {
	// BaseURL is the API base URL (default: https://api.openai.com/v1).
	// Any OpenAI-compatible endpoint works.
	BaseURL string

	// APIKey is the bearer token; may be empty for local endpoints.
	APIKey string

	// Model is the embedding model (default: text-embedding-3-small).
	Model string

	// Dimensions is the embedding vector size the model produces.
	Dimensions int

	// CacheSize is the LRU cache capacity (0 uses the default, negative disables).
	CacheSize int

	// Timeout is the request timeout (default: 30s).
	Timeout time.Duration
}

// OpenAIEmbedder generates embeddings via an OpenAI-compatible /embeddings
// endpoint. Batch requests are order-preserving; cached texts are not re-sent.
type OpenAIEmbedder struct {
	client     *http.Client
	baseURL    string
	apiKey     string
	model      string
	dimensions int
	cache      *Cache
}

// embeddingsRequest is the OpenAI /embeddings request format.
type embeddingsRequest struct {
	Input []string `json:"input"`
	Model string   `json:"model"`
}

// embeddingsResponse is the OpenAI /embeddings response format.
type embeddingsResponse struct {
	Data []struct {
		Index     int       `json:"index"`
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

// NewOpenAIEmbedder creates an embedder for an OpenAI-compatible endpoint.
func NewOpenAIEmbedder(cfg OpenAIConfig) (*OpenAIEmbedder, error) {
	if cfg.Dimensions <= 0 {
		return nil, fmt.Errorf("embedding dimensions must be positive")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.CacheSize == 0 {
		cfg.CacheSize = DefaultCacheSize
	}
	e := &OpenAIEmbedder{
		client:     &http.Client{Timeout: cfg.Timeout},
		baseURL:    cfg.BaseURL,
		apiKey:     cfg.APIKey,
		model:      cfg.Model,
		dimensions: cfg.Dimensions,
	}
	if cfg.CacheSize > 0 {
		e.cache = NewCache(cfg.CacheSize)
	}
	return e, nil
}

// Embed returns the embedding for a single text.
func (e *OpenAIEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	embeddings, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return embeddings[0], nil
}

// EmbedBatch returns one embedding per text, in input order. Texts already in
// the cache are served from it; only misses are sent to the service, in one
// batched request.
func (e *OpenAIEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	result := make([][]float32, len(texts))
	var misses []string
	var missIdx []int
	for i, text := range texts {
		if e.cache != nil {
			if emb, ok := e.cache.Get(text); ok {
				result[i] = emb
				continue
			}
		}
		misses = append(misses, text)
		missIdx = append(missIdx, i)
	}
	if len(misses) == 0 {
		return result, nil
	}

	embeddings, err := e.requestEmbeddings(ctx, misses)
	if err != nil {
		return nil, err
	}
	for j, emb := range embeddings {
		if e.cache != nil {
			e.cache.Set(misses[j], emb)
		}
		result[missIdx[j]] = emb
	}
	return result, nil
}

func (e *OpenAIEmbedder) requestEmbeddings(ctx context.Context, texts []string) ([][]float32, error) {
	jsonBody, err := json.Marshal(embeddingsRequest{Input: texts, Model: e.model})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+"/embeddings", bytes.NewReader(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if e.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+e.apiKey)
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("embeddings request failed (status %d): %s", resp.StatusCode, string(body))
	}

	var out embeddingsResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if out.Error != nil {
		return nil, fmt.Errorf("embeddings error: %s", out.Error.Message)
	}
	if len(out.Data) != len(texts) {
		return nil, fmt.Errorf("embeddings count mismatch: sent %d texts, got %d vectors", len(texts), len(out.Data))
	}
	embeddings := make([][]float32, len(texts))
	for _, d := range out.Data {
		if d.Index < 0 || d.Index >= len(embeddings) {
			return nil, fmt.Errorf("embeddings index %d out of range", d.Index)
		}
		if len(d.Embedding) != e.dimensions {
			return nil, fmt.Errorf("embedding dimension mismatch: got %d, expected %d", len(d.Embedding), e.dimensions)
		}
		embeddings[d.Index] = d.Embedding
	}
	return embeddings, nil
}

// Dimensions returns the configured embedding dimension.
func (e *OpenAIEmbedder) Dimensions() int {
	return e.dimensions
}

// Close is a no-op; the underlying http.Client needs no teardown.
func (e *OpenAIEmbedder) Close() error {
	return nil
}
