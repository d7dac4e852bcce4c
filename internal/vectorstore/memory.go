package vectorstore

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
)

// MemoryStore is an in-memory Store using brute-force cosine search.
// Suitable for tests and small single-process deployments.
type MemoryStore struct {
	mu          sync.RWMutex
	collections map[string]*memoryCollection
}

type memoryCollection struct {
	dimensions int
	records    []Record
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{collections: make(map[string]*memoryCollection)}
}

func (m *MemoryStore) ListCollections(ctx context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	names := make([]string, 0, len(m.collections))
	for name := range m.collections {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

func (m *MemoryStore) CreateCollection(ctx context.Context, name string, dimensions int) error {
	if dimensions <= 0 {
		return fmt.Errorf("dimensions must be positive")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.collections[name]; ok {
		if existing.dimensions != dimensions {
			return fmt.Errorf("collection %s exists with dimensions %d", name, existing.dimensions)
		}
		return nil
	}
	m.collections[name] = &memoryCollection{dimensions: dimensions}
	return nil
}

func (m *MemoryStore) DeleteCollection(ctx context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.collections, name)
	return nil
}

func (m *MemoryStore) CollectionInfo(ctx context.Context, name string) (*CollectionInfo, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.collections[name]
	if !ok {
		return nil, fmt.Errorf("collection %s not found", name)
	}
	return &CollectionInfo{PointsCount: int64(len(c.records))}, nil
}

func (m *MemoryStore) Upsert(ctx context.Context, name string, records []Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.collections[name]
	if !ok {
		return fmt.Errorf("collection %s not found", name)
	}
	for _, r := range records {
		if len(r.Vector) != c.dimensions {
			return fmt.Errorf("vector dimension mismatch: got %d, expected %d", len(r.Vector), c.dimensions)
		}
	}
	for _, r := range records {
		vec := make([]float32, c.dimensions)
		copy(vec, r.Vector)
		r.Vector = vec
		if i := c.indexOf(r.ID); i >= 0 {
			c.records[i] = r
		} else {
			c.records = append(c.records, r)
		}
	}
	return nil
}

func (m *MemoryStore) Search(ctx context.Context, name string, vector []float32, topK int, scoreThreshold float64) ([]SearchHit, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.collections[name]
	if !ok {
		return nil, fmt.Errorf("collection %s not found", name)
	}
	if len(vector) != c.dimensions {
		return nil, fmt.Errorf("query dimension mismatch: got %d, expected %d", len(vector), c.dimensions)
	}
	if topK <= 0 || len(c.records) == 0 {
		return nil, nil
	}
	hits := make([]SearchHit, 0, len(c.records))
	for _, r := range c.records {
		score := cosineSimilarity(vector, r.Vector)
		if score < scoreThreshold {
			continue
		}
		hits = append(hits, SearchHit{ID: r.ID, Score: score, Payload: r.Payload})
	}
	sort.Slice(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })
	if topK < len(hits) {
		hits = hits[:topK]
	}
	return hits, nil
}

func (m *MemoryStore) Scroll(ctx context.Context, name string, limit int) ([]Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.collections[name]
	if !ok {
		return nil, fmt.Errorf("collection %s not found", name)
	}
	n := len(c.records)
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]Record, n)
	copy(out, c.records[:n])
	return out, nil
}

func (m *MemoryStore) Delete(ctx context.Context, name string, ids []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.collections[name]
	if !ok {
		return fmt.Errorf("collection %s not found", name)
	}
	removeSet := make(map[string]bool, len(ids))
	for _, id := range ids {
		removeSet[id] = true
	}
	kept := c.records[:0]
	for _, r := range c.records {
		if !removeSet[r.ID] {
			kept = append(kept, r)
		}
	}
	c.records = kept
	return nil
}

func (c *memoryCollection) indexOf(id string) int {
	for i, r := range c.records {
		if r.ID == id {
			return i
		}
	}
	return -1
}

// cosineSimilarity returns the cosine similarity of two equal-length vectors.
// Zero vectors score 0.
func cosineSimilarity(a, b []float32) float64 {
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
