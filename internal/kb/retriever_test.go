package kb

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func sampleChunks(texts ...string) []Chunk {
	chunks := make([]Chunk, 0, len(texts))
	for i, text := range texts {
		chunks = append(chunks, Chunk{
			Text:  text,
			Score: 1.0 - float64(i)*0.1,
			Source: SourceLocation{
				URI:  "s3://bucket/loan-documents/doc.pdf",
				Page: i + 1,
			},
		})
	}
	return chunks
}

func TestDocumentChunksHappyPath(t *testing.T) {
	index := NewMockIndex()
	index.ChunksByID["booking-123"] = sampleChunks("first chunk", "second chunk")

	r := NewRetriever(index, 15, nil)
	chunks, err := r.DocumentChunks(context.Background(), "booking-123", "loanBookingId", "")
	if err != nil {
		t.Fatalf("DocumentChunks: %v", err)
	}
	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %d", len(chunks))
	}

	queries := index.Queries()
	if len(queries) != 2 {
		t.Fatalf("expected probe + main query, got %d calls", len(queries))
	}
	if queries[0].TopK != 1 {
		t.Errorf("probe topK = %d, want 1", queries[0].TopK)
	}
	if !strings.Contains(queries[0].Query, "booking-123") {
		t.Errorf("probe query %q does not mention document ID", queries[0].Query)
	}
	if queries[1].TopK != 15 {
		t.Errorf("main query topK = %d, want 15", queries[1].TopK)
	}
	if queries[1].Query != "information related to document ID booking-123" {
		t.Errorf("unexpected default query %q", queries[1].Query)
	}
	for _, q := range queries {
		if q.FilterKey != "loanBookingId" || q.FilterValue != "booking-123" {
			t.Errorf("filter not applied: %+v", q)
		}
	}
}

func TestDocumentChunksCustomQuery(t *testing.T) {
	index := NewMockIndex()
	index.ChunksByID["booking-123"] = sampleChunks("chunk")

	r := NewRetriever(index, 5, nil)
	if _, err := r.DocumentChunks(context.Background(), "booking-123", "loanBookingId", "maturity date and interest rate"); err != nil {
		t.Fatalf("DocumentChunks: %v", err)
	}

	queries := index.Queries()
	if got := queries[len(queries)-1].Query; got != "maturity date and interest rate" {
		t.Errorf("caller query not used, got %q", got)
	}
}

func TestDocumentChunksNotIndexed(t *testing.T) {
	r := NewRetriever(NewMockIndex(), 15, nil)
	_, err := r.DocumentChunks(context.Background(), "missing-doc", "loanBookingId", "")
	if !errors.Is(err, ErrNotIndexed) {
		t.Fatalf("expected ErrNotIndexed, got %v", err)
	}
}

func TestDocumentChunksProbeStopsEarly(t *testing.T) {
	index := NewMockIndex()
	r := NewRetriever(index, 15, nil)

	if _, err := r.DocumentChunks(context.Background(), "missing-doc", "loanBookingId", ""); err == nil {
		t.Fatal("expected error for unindexed document")
	}
	if index.QueryCount() != 1 {
		t.Errorf("expected only the probe call, got %d calls", index.QueryCount())
	}
}

func TestDocumentChunksRetrievalError(t *testing.T) {
	index := NewMockIndex()
	index.Err = errors.New("throttled")

	r := NewRetriever(index, 15, nil)
	_, err := r.DocumentChunks(context.Background(), "booking-123", "loanBookingId", "")
	if err == nil {
		t.Fatal("expected error")
	}
	if errors.Is(err, ErrNotIndexed) || errors.Is(err, ErrNoChunks) {
		t.Fatalf("infrastructure error must not map to a sentinel, got %v", err)
	}
}

func TestDocumentChunksMissingArgs(t *testing.T) {
	r := NewRetriever(NewMockIndex(), 15, nil)
	if _, err := r.DocumentChunks(context.Background(), "", "loanBookingId", ""); err == nil {
		t.Error("expected error for empty document ID")
	}
	if _, err := r.DocumentChunks(context.Background(), "booking-123", "", ""); err == nil {
		t.Error("expected error for empty metadata key")
	}
}

func TestNewRetrieverDefaults(t *testing.T) {
	r := NewRetriever(NewMockIndex(), 0, nil)
	if r.numResults != DefaultNumResults {
		t.Errorf("numResults = %d, want %d", r.numResults, DefaultNumResults)
	}
}
