package extract

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/codevakure/lonb/internal/kb"
	"github.com/codevakure/lonb/internal/providers"
	"github.com/codevakure/lonb/internal/schema"
)

// DefaultMetadataKey is the chunk metadata attribute that scopes retrieval
// to one loan booking.
const DefaultMetadataKey = "loanBookingId"

// Extractor wires the pipeline stages together. It holds no per-request
// state; generation parameters travel inside each request, so a single
// Extractor is safe for concurrent use.
type Extractor struct {
	schemas     *schema.Registry
	retriever   *kb.Retriever
	llm         providers.LLMClient
	parser      *Parser
	metadataKey string
	maxTokens   int
	logger      *slog.Logger
}

// ExtractorConfig configures an Extractor.
type ExtractorConfig struct {
	Schemas     *schema.Registry
	Retriever   *kb.Retriever
	LLM         providers.LLMClient
	MetadataKey string
	MaxTokens   int
	Logger      *slog.Logger
}

// NewExtractor creates an extractor.
func NewExtractor(cfg ExtractorConfig) *Extractor {
	if cfg.MetadataKey == "" {
		cfg.MetadataKey = DefaultMetadataKey
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = providers.DefaultMaxTokens
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Extractor{
		schemas:     cfg.Schemas,
		retriever:   cfg.Retriever,
		llm:         cfg.LLM,
		parser:      NewParser(cfg.Logger),
		metadataKey: cfg.MetadataKey,
		maxTokens:   cfg.MaxTokens,
		logger:      cfg.Logger,
	}
}

// Extract runs the plain pipeline for one document and schema.
func (e *Extractor) Extract(ctx context.Context, req Request) (*Result, error) {
	def, chunks, err := e.prepare(ctx, req)
	if err != nil {
		return nil, err
	}

	raw, err := e.generate(ctx, req, def, chunks, false)
	if err != nil {
		return nil, err
	}

	data, err := e.parser.ParseAndValidate(def, raw)
	if err != nil {
		return nil, err
	}

	e.logger.Info("extraction complete",
		"document_id", req.DocumentID, "schema", def.Name, "fields", len(data))
	return &Result{
		DocumentID:    req.DocumentID,
		SchemaUsed:    def.Name,
		ExtractedData: data,
		Status:        StatusSuccess,
	}, nil
}

// ExtractWithCitations runs the citation pipeline. The result carries the
// full retrieved chunk set plus per-field supporting chunks.
func (e *Extractor) ExtractWithCitations(ctx context.Context, req Request) (*CitedResult, error) {
	def, chunks, err := e.prepare(ctx, req)
	if err != nil {
		return nil, err
	}

	raw, err := e.generate(ctx, req, def, chunks, true)
	if err != nil {
		return nil, err
	}

	data, fieldCitations, err := e.parser.ParseWithCitations(def, raw, chunks)
	if err != nil {
		return nil, err
	}

	e.logger.Info("cited extraction complete",
		"document_id", req.DocumentID, "schema", def.Name,
		"fields", len(data), "cited_fields", len(fieldCitations))
	return &CitedResult{
		Result: Result{
			DocumentID:    req.DocumentID,
			SchemaUsed:    def.Name,
			ExtractedData: data,
			Status:        StatusSuccess,
		},
		Citations:      chunks,
		FieldCitations: fieldCitations,
	}, nil
}

// prepare resolves the schema and retrieves the document's chunks. Schema
// resolution runs first so an unknown schema never costs a retrieval call.
func (e *Extractor) prepare(ctx context.Context, req Request) (*schema.Definition, []kb.Chunk, error) {
	def, ok := e.schemas.Get(req.SchemaName)
	if !ok {
		return nil, nil, fmt.Errorf("%w: %s", ErrSchemaNotFound, req.SchemaName)
	}

	chunks, err := e.retriever.DocumentChunks(ctx, req.DocumentID, e.metadataKey, req.RetrievalQuery)
	if err != nil {
		if errors.Is(err, kb.ErrNotIndexed) || errors.Is(err, kb.ErrNoChunks) {
			return nil, nil, fmt.Errorf("%w: %s", ErrNoChunks, req.DocumentID)
		}
		return nil, nil, fmt.Errorf("%w: %v", ErrRetrieval, err)
	}
	return def, chunks, nil
}

// generate builds the prompt and invokes the model with request-scoped
// parameters.
func (e *Extractor) generate(ctx context.Context, req Request, def *schema.Definition, chunks []kb.Chunk, withCitations bool) (string, error) {
	prompt, err := BuildPrompt(def, chunks, withCitations)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrGeneration, err)
	}

	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = e.maxTokens
	}

	genReq := &providers.GenerateRequest{
		Prompt:      prompt,
		MaxTokens:   maxTokens,
		Temperature: req.Temperature,
		RequestID:   uuid.NewString(),
	}
	result, err := e.llm.Invoke(ctx, genReq)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrGeneration, err)
	}
	if !result.Success || result.Text == "" {
		return "", fmt.Errorf("%w: %s", ErrGeneration, result.ErrorMessage)
	}
	return result.Text, nil
}
