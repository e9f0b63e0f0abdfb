// Package kb retrieves document text chunks from the Bedrock Knowledge Base
// and manages data-source ingestion jobs. Chunks are read-only evidence that
// lives only for the duration of one extraction call.
package kb

// SourceLocation identifies where a chunk's text came from.
type SourceLocation struct {
	URI  string `json:"uri,omitempty"`
	Page int    `json:"page,omitempty"`
}

// Chunk is a retrieved span of source-document text with relevance metadata.
// Ordering within a retrieval result is relevance-descending as returned by
// the index.
type Chunk struct {
	Text     string         `json:"text"`
	Score    float64        `json:"score"`
	Source   SourceLocation `json:"source"`
	Metadata map[string]any `json:"metadata,omitempty"`
}
