package kb

import (
	"context"
	"sync"
)

// RecordedQuery captures one Retrieve call made against a MockIndex.
type RecordedQuery struct {
	Query       string
	FilterKey   string
	FilterValue string
	TopK        int
}

// MockIndex is an in-memory DocumentIndex for tests. Chunks are keyed by
// filter value, mirroring the metadata-scoped retrieval of the real index.
type MockIndex struct {
	mu      sync.Mutex
	queries []RecordedQuery

	// ChunksByID maps a filter value (document identifier) to the chunks
	// returned for it. A missing key yields an empty result.
	ChunksByID map[string][]Chunk

	// Err, when set, is returned from every Retrieve call.
	Err error
}

// NewMockIndex creates an empty mock index.
func NewMockIndex() *MockIndex {
	return &MockIndex{ChunksByID: make(map[string][]Chunk)}
}

// Retrieve returns the configured chunks for the filter value, capped at topK.
func (m *MockIndex) Retrieve(ctx context.Context, query, filterKey, filterValue string, topK int) ([]Chunk, error) {
	m.mu.Lock()
	m.queries = append(m.queries, RecordedQuery{
		Query:       query,
		FilterKey:   filterKey,
		FilterValue: filterValue,
		TopK:        topK,
	})
	m.mu.Unlock()

	if m.Err != nil {
		return nil, m.Err
	}
	chunks := m.ChunksByID[filterValue]
	if topK > 0 && len(chunks) > topK {
		chunks = chunks[:topK]
	}
	return chunks, nil
}

// Queries returns a copy of every recorded Retrieve call.
func (m *MockIndex) Queries() []RecordedQuery {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]RecordedQuery, len(m.queries))
	copy(out, m.queries)
	return out
}

// QueryCount returns the number of Retrieve calls made.
func (m *MockIndex) QueryCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.queries)
}
