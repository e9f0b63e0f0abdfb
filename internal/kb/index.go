package kb

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockagentruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockagentruntime/document"
	"github.com/aws/aws-sdk-go-v2/service/bedrockagentruntime/types"
)

// pageNumberMetadataKey is set by the knowledge base chunker on each chunk.
const pageNumberMetadataKey = "x-amz-bedrock-kb-document-page-number"

// DocumentIndex is the boundary to the semantic retrieval service. The
// equality filter on a metadata key is honored server-side; it is the
// mechanism that scopes the global index down to one logical document and
// must never be dropped or weakened.
type DocumentIndex interface {
	// Retrieve runs a semantic query constrained by an exact-match metadata
	// filter and returns up to topK chunks in relevance order.
	Retrieve(ctx context.Context, query, filterKey, filterValue string, topK int) ([]Chunk, error)
}

// RetrieveAPIClient is the subset of the Bedrock agent runtime client used
// by BedrockIndex.
type RetrieveAPIClient interface {
	Retrieve(ctx context.Context, params *bedrockagentruntime.RetrieveInput, optFns ...func(*bedrockagentruntime.Options)) (*bedrockagentruntime.RetrieveOutput, error)
}

// BedrockIndex implements DocumentIndex against a Bedrock Knowledge Base.
type BedrockIndex struct {
	client RetrieveAPIClient
	kbID   string
	logger *slog.Logger
}

// NewBedrockIndex creates an index client for the given knowledge base.
func NewBedrockIndex(client RetrieveAPIClient, kbID string, logger *slog.Logger) (*BedrockIndex, error) {
	if kbID == "" {
		return nil, fmt.Errorf("knowledge base ID is not configured")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &BedrockIndex{client: client, kbID: kbID, logger: logger}, nil
}

// Retrieve issues a filtered vector search against the knowledge base.
func (b *BedrockIndex) Retrieve(ctx context.Context, query, filterKey, filterValue string, topK int) ([]Chunk, error) {
	out, err := b.client.Retrieve(ctx, &bedrockagentruntime.RetrieveInput{
		KnowledgeBaseId: aws.String(b.kbID),
		RetrievalQuery: &types.KnowledgeBaseQuery{
			Text: aws.String(query),
		},
		RetrievalConfiguration: &types.KnowledgeBaseRetrievalConfiguration{
			VectorSearchConfiguration: &types.KnowledgeBaseVectorSearchConfiguration{
				NumberOfResults: aws.Int32(int32(topK)),
				Filter: &types.RetrievalFilterMemberEquals{
					Value: types.FilterAttribute{
						Key:   aws.String(filterKey),
						Value: document.NewLazyDocument(filterValue),
					},
				},
			},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("knowledge base %s retrieve failed: %w", b.kbID, err)
	}

	chunks := make([]Chunk, 0, len(out.RetrievalResults))
	for _, result := range out.RetrievalResults {
		chunks = append(chunks, convertResult(result))
	}
	return chunks, nil
}

// convertResult maps one knowledge base retrieval result to a Chunk.
func convertResult(result types.KnowledgeBaseRetrievalResult) Chunk {
	chunk := Chunk{}

	if result.Content != nil {
		chunk.Text = aws.ToString(result.Content.Text)
	}
	if result.Score != nil {
		chunk.Score = *result.Score
	}
	if result.Location != nil && result.Location.S3Location != nil {
		chunk.Source.URI = aws.ToString(result.Location.S3Location.Uri)
	}

	if len(result.Metadata) > 0 {
		chunk.Metadata = make(map[string]any, len(result.Metadata))
		for key, doc := range result.Metadata {
			var value any
			if err := doc.UnmarshalSmithyDocument(&value); err != nil {
				continue
			}
			chunk.Metadata[key] = value
		}
		if page, ok := chunk.Metadata[pageNumberMetadataKey].(float64); ok {
			chunk.Source.Page = int(page)
		}
	}

	return chunk
}
