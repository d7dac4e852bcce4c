package vectorstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// QdrantStore is a REST client to Qdrant implementing Store.
// Collections are created with cosine distance.
type QdrantStore struct {
	url    string
	apiKey string
	client *http.Client
}

// QdrantConfig configures the Qdrant client.
type QdrantConfig struct {
	URL     string
	APIKey  string
	Timeout time.Duration
}

// NewQdrantStore creates a Qdrant REST client.
func NewQdrantStore(cfg QdrantConfig) *QdrantStore {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	return &QdrantStore{
		url:    cfg.URL,
		apiKey: cfg.APIKey,
		client: &http.Client{Timeout: timeout},
	}
}

// ListCollections returns the names of all collections.
func (s *QdrantStore) ListCollections(ctx context.Context) ([]string, error) {
	var resp struct {
		Result struct {
			Collections []struct {
				Name string `json:"name"`
			} `json:"collections"`
		} `json:"result"`
	}
	if err := s.doJSON(ctx, http.MethodGet, s.url+"/collections", nil, &resp); err != nil {
		return nil, err
	}
	names := make([]string, 0, len(resp.Result.Collections))
	for _, c := range resp.Result.Collections {
		names = append(names, c.Name)
	}
	return names, nil
}

// CreateCollection creates a collection with the given vector size and cosine distance.
// Qdrant returns 200 for an existing collection with the same schema.
func (s *QdrantStore) CreateCollection(ctx context.Context, name string, dimensions int) error {
	if dimensions <= 0 {
		return fmt.Errorf("invalid dimensions %d", dimensions)
	}
	body := map[string]any{
		"vectors": map[string]any{
			"size":     dimensions,
			"distance": "Cosine",
		},
	}
	return s.doJSON(ctx, http.MethodPut, fmt.Sprintf("%s/collections/%s", s.url, name), body, nil)
}

// DeleteCollection drops the collection.
func (s *QdrantStore) DeleteCollection(ctx context.Context, name string) error {
	return s.doJSON(ctx, http.MethodDelete, fmt.Sprintf("%s/collections/%s", s.url, name), nil, nil)
}

// CollectionInfo returns the stored point count.
func (s *QdrantStore) CollectionInfo(ctx context.Context, name string) (*CollectionInfo, error) {
	var resp struct {
		Result struct {
			PointsCount int64 `json:"points_count"`
		} `json:"result"`
	}
	if err := s.doJSON(ctx, http.MethodGet, fmt.Sprintf("%s/collections/%s", s.url, name), nil, &resp); err != nil {
		return nil, err
	}
	return &CollectionInfo{PointsCount: resp.Result.PointsCount}, nil
}

// Upsert writes records in one batch, waiting for the operation to be applied.
func (s *QdrantStore) Upsert(ctx context.Context, name string, records []Record) error {
	points := make([]map[string]any, len(records))
	for i, r := range records {
		points[i] = map[string]any{
			"id":      r.ID,
			"vector":  r.Vector,
			"payload": r.Payload,
		}
	}
	body := map[string]any{"points": points}
	return s.doJSON(ctx, http.MethodPut, fmt.Sprintf("%s/collections/%s/points?wait=true", s.url, name), body, nil)
}

// Search returns the topK nearest points above scoreThreshold with payloads.
func (s *QdrantStore) Search(ctx context.Context, name string, vector []float32, topK int, scoreThreshold float64) ([]SearchHit, error) {
	if topK <= 0 {
		topK = 5
	}
	body := map[string]any{
		"vector":          vector,
		"limit":           topK,
		"with_payload":    true,
		"score_threshold": scoreThreshold,
	}
	var resp struct {
		Result []struct {
			ID      any            `json:"id"`
			Score   float64        `json:"score"`
			Payload map[string]any `json:"payload"`
		} `json:"result"`
	}
	if err := s.doJSON(ctx, http.MethodPost, fmt.Sprintf("%s/collections/%s/points/search", s.url, name), body, &resp); err != nil {
		return nil, err
	}
	hits := make([]SearchHit, 0, len(resp.Result))
	for _, r := range resp.Result {
		hits = append(hits, SearchHit{ID: idString(r.ID), Score: r.Score, Payload: r.Payload})
	}
	return hits, nil
}

// Scroll reads up to limit records with payloads, without vectors.
func (s *QdrantStore) Scroll(ctx context.Context, name string, limit int) ([]Record, error) {
	body := map[string]any{
		"limit":        limit,
		"with_payload": true,
		"with_vector":  false,
	}
	var resp struct {
		Result struct {
			Points []struct {
				ID      any            `json:"id"`
				Payload map[string]any `json:"payload"`
			} `json:"points"`
		} `json:"result"`
	}
	if err := s.doJSON(ctx, http.MethodPost, fmt.Sprintf("%s/collections/%s/points/scroll", s.url, name), body, &resp); err != nil {
		return nil, err
	}
	records := make([]Record, 0, len(resp.Result.Points))
	for _, p := range resp.Result.Points {
		records = append(records, Record{ID: idString(p.ID), Payload: p.Payload})
	}
	return records, nil
}

// Delete removes points by ID, waiting for the operation to be applied.
func (s *QdrantStore) Delete(ctx context.Context, name string, ids []string) error {
	body := map[string]any{"points": ids}
	return s.doJSON(ctx, http.MethodPost, fmt.Sprintf("%s/collections/%s/points/delete?wait=true", s.url, name), body, nil)
}

// idString renders a Qdrant point ID (UUID string or unsigned integer) as a string.
func idString(id any) string {
	switch v := id.(type) {
	case string:
		return v
	case float64:
		return fmt.Sprintf("%d", int64(v))
	default:
		return fmt.Sprintf("%v", v)
	}
}

func (s *QdrantStore) doJSON(ctx context.Context, method, url string, body any, out any) error {
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if s.apiKey != "" {
		req.Header.Set("api-key", s.apiKey)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("qdrant %s %s failed: %s", method, url, resp.Status)
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}
