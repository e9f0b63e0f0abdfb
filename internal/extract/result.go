// Package extract runs the structured extraction pipeline: retrieve a
// document's chunks, prompt the model with a schema, and parse and validate
// the response into a normalized field map.
package extract

import "github.com/codevakure/lonb/internal/kb"

// Status reports whether an extraction produced usable data.
type Status string

const (
	StatusSuccess Status = "success"
	StatusFailure Status = "failure"
)

// Request describes one extraction. Temperature and MaxTokens are scoped to
// this request only; zero MaxTokens and nil Temperature fall back to
// configured defaults.
type Request struct {
	DocumentID     string   `json:"document_identifier"`
	SchemaName     string   `json:"schema_name"`
	RetrievalQuery string   `json:"retrieval_query,omitempty"`
	Temperature    *float64 `json:"temperature,omitempty"`
	MaxTokens      int      `json:"max_tokens,omitempty"`
}

// Result is a completed extraction. ExtractedData holds exactly the schema's
// property names; fields the model could not determine are null.
type Result struct {
	DocumentID    string         `json:"document_identifier"`
	SchemaUsed    string         `json:"schema_used"`
	ExtractedData map[string]any `json:"extracted_data"`
	Status        Status         `json:"extraction_status"`
}

// CitedResult additionally carries the retrieved evidence and, per field,
// the chunks the model cited as support.
type CitedResult struct {
	Result
	Citations      []kb.Chunk            `json:"citations"`
	FieldCitations map[string][]kb.Chunk `json:"field_citations"`
}
