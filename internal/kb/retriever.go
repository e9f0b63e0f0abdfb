package kb

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// DefaultNumResults is the full-width retrieval size when none is configured.
const DefaultNumResults = 15

var (
	// ErrNotIndexed means the existence probe found no chunks for the
	// document: it was never ingested (or ingestion has not completed).
	ErrNotIndexed = errors.New("document not found in knowledge base")

	// ErrNoChunks means the document is indexed but the full-width query
	// returned nothing.
	ErrNoChunks = errors.New("no chunks retrieved for document")
)

// Retriever fetches the set of chunks belonging to a single logical
// document, scoped by an exact-match metadata filter.
type Retriever struct {
	index      DocumentIndex
	numResults int
	logger     *slog.Logger
}

// NewRetriever creates a retriever over the given index.
func NewRetriever(index DocumentIndex, numResults int, logger *slog.Logger) *Retriever {
	if numResults <= 0 {
		numResults = DefaultNumResults
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Retriever{index: index, numResults: numResults, logger: logger}
}

// DocumentChunks retrieves the ranked chunks for one document identifier.
//
// A narrow top-1 existence probe runs first so that a document that was
// never ingested fails fast and is distinguishable in logs from one that is
// ingested but yields no relevant chunks. The main retrieval then uses the
// caller's query text, or a synthesized default when none is given.
func (r *Retriever) DocumentChunks(ctx context.Context, documentID, metadataKey, queryText string) ([]Chunk, error) {
	if documentID == "" {
		return nil, fmt.Errorf("document identifier is missing")
	}
	if metadataKey == "" {
		return nil, fmt.Errorf("metadata key for filtering is missing")
	}

	probeQuery := fmt.Sprintf("Validate document with ID %s", documentID)
	probe, err := r.index.Retrieve(ctx, probeQuery, metadataKey, documentID, 1)
	if err != nil {
		r.logger.Error("existence probe failed", "document_id", documentID, "error", err)
		return nil, fmt.Errorf("existence probe for %s: %w", documentID, err)
	}
	if len(probe) == 0 {
		r.logger.Warn("document not found in knowledge base",
			"document_id", documentID, "metadata_key", metadataKey)
		return nil, ErrNotIndexed
	}

	query := queryText
	if query == "" {
		query = fmt.Sprintf("information related to document ID %s", documentID)
	}
	r.logger.Info("retrieving chunks",
		"document_id", documentID, "metadata_key", metadataKey,
		"num_results", r.numResults, "query", truncate(query, 100))

	chunks, err := r.index.Retrieve(ctx, query, metadataKey, documentID, r.numResults)
	if err != nil {
		r.logger.Error("chunk retrieval failed", "document_id", documentID, "error", err)
		return nil, fmt.Errorf("retrieval for %s: %w", documentID, err)
	}
	if len(chunks) == 0 {
		r.logger.Warn("no chunks retrieved; check index and metadata mapping",
			"document_id", documentID, "metadata_key", metadataKey)
		return nil, ErrNoChunks
	}

	r.logger.Info("retrieved chunks", "document_id", documentID, "count", len(chunks))
	return chunks, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
