// Package vector provides an in-memory flat vector index and similarity helpers.
package vector

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Match is a single nearest-neighbor hit. ID is the title of the indexed entry.
type Match struct {
	ID    string
	Score float64 // inner product; cosine similarity for normalized vectors
}

// MemoryIndex is a brute-force inner-product index over normalized vectors.
// A note corpus is hundreds of entries, so flat search is fast enough.
type MemoryIndex struct {
	dimensions int
	ids        []string
	vectors    [][]float32
	mu         sync.RWMutex
}

// NewMemoryIndex creates an index for vectors of the given dimension.
func NewMemoryIndex(dimensions int) (*MemoryIndex, error) {
	if dimensions <= 0 {
		return nil, fmt.Errorf("dimensions must be positive")
	}
	return &MemoryIndex{
		dimensions: dimensions,
		ids:        make([]string, 0),
		vectors:    make([][]float32, 0),
	}, nil
}

// Add appends vectors with the given IDs.
func (m *MemoryIndex) Add(ctx context.Context, ids []string, vectors [][]float32) error {
	if len(ids) != len(vectors) {
		return fmt.Errorf("ids and vectors length mismatch")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, id := range ids {
		if len(vectors[i]) != m.dimensions {
			return fmt.Errorf("vector dimension mismatch: got %d, expected %d", len(vectors[i]), m.dimensions)
		}
		vec := make([]float32, m.dimensions)
		copy(vec, vectors[i])
		m.ids = append(m.ids, id)
		m.vectors = append(m.vectors, vec)
	}
	return nil
}

// Search returns the top-k entries by inner product with query.
func (m *MemoryIndex) Search(ctx context.Context, query []float32, k int) ([]*Match, error) {
	if len(query) != m.dimensions {
		return nil, fmt.Errorf("query dimension mismatch: got %d, expected %d", len(query), m.dimensions)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if k <= 0 || len(m.ids) == 0 {
		return nil, nil
	}
	scores := make([]Match, len(m.ids))
	for i, vec := range m.vectors {
		scores[i] = Match{ID: m.ids[i], Score: InnerProduct(query, vec)}
	}
	sort.Slice(scores, func(i, j int) bool { return scores[i].Score > scores[j].Score })
	if k > len(scores) {
		k = len(scores)
	}
	result := make([]*Match, k)
	for i := 0; i < k; i++ {
		match := scores[i]
		result[i] = &match
	}
	return result, nil
}

// Entries returns copies of the stored IDs and vectors, in insertion order.
func (m *MemoryIndex) Entries() ([]string, [][]float32) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := make([]string, len(m.ids))
	copy(ids, m.ids)
	vectors := make([][]float32, len(m.vectors))
	for i, v := range m.vectors {
		vec := make([]float32, len(v))
		copy(vec, v)
		vectors[i] = vec
	}
	return ids, vectors
}

// Size returns the number of vectors in the index.
func (m *MemoryIndex) Size() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.ids)
}

// Dimensions returns the vector dimension the index was created with.
func (m *MemoryIndex) Dimensions() int {
	return m.dimensions
}
