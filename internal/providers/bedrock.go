package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/google/uuid"
)

// DefaultModelID is the model invoked when none is configured.
const DefaultModelID = "anthropic.claude-3-5-sonnet-20240620-v1:0"

// anthropicVersion is required by the Bedrock messages API.
const anthropicVersion = "bedrock-2023-05-31"

// InvokeModelAPIClient is the subset of the Bedrock runtime client used by
// BedrockClient.
type InvokeModelAPIClient interface {
	InvokeModel(ctx context.Context, params *bedrockruntime.InvokeModelInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.InvokeModelOutput, error)
}

// BedrockClient invokes an Anthropic model through Amazon Bedrock.
type BedrockClient struct {
	client  InvokeModelAPIClient
	modelID string
	logger  *slog.Logger
}

// NewBedrockClient creates a client for the given model.
func NewBedrockClient(client InvokeModelAPIClient, modelID string, logger *slog.Logger) *BedrockClient {
	if modelID == "" {
		modelID = DefaultModelID
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &BedrockClient{client: client, modelID: modelID, logger: logger}
}

// Name implements LLMClient.
func (b *BedrockClient) Name() string { return "bedrock" }

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicRequest struct {
	AnthropicVersion string             `json:"anthropic_version"`
	MaxTokens        int                `json:"max_tokens"`
	Temperature      *float64           `json:"temperature,omitempty"`
	Messages         []anthropicMessage `json:"messages"`
}

type anthropicResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	StopReason string `json:"stop_reason"`
	Usage      struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

// buildRequestBody serializes one invocation. Temperature is omitted from
// the wire body when nil so the model applies its own default; an explicit
// zero is sent as 0.
func buildRequestBody(req *GenerateRequest) ([]byte, error) {
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}
	body := anthropicRequest{
		AnthropicVersion: anthropicVersion,
		MaxTokens:        maxTokens,
		Temperature:      req.Temperature,
		Messages: []anthropicMessage{
			{Role: "user", Content: req.Prompt},
		},
	}
	return json.Marshal(body)
}

// Invoke implements LLMClient. All generation parameters come from the
// request; the client itself holds no per-call state.
func (b *BedrockClient) Invoke(ctx context.Context, req *GenerateRequest) (*GenerateResult, error) {
	requestID := req.RequestID
	if requestID == "" {
		requestID = uuid.NewString()
	}

	result := &GenerateResult{
		RequestID: requestID,
		ModelUsed: b.modelID,
	}

	body, err := buildRequestBody(req)
	if err != nil {
		result.ErrorType = "encode_error"
		result.ErrorMessage = err.Error()
		return result, fmt.Errorf("failed to encode model request: %w", err)
	}

	b.logger.Info("invoking model",
		"request_id", requestID,
		"model", b.modelID,
		"prompt_length", len(req.Prompt))

	start := time.Now()
	out, err := b.client.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(b.modelID),
		ContentType: aws.String("application/json"),
		Accept:      aws.String("application/json"),
		Body:        body,
	})
	result.ExecutionTime = time.Since(start).Seconds()
	if err != nil {
		result.ErrorType = "invoke_error"
		result.ErrorMessage = err.Error()
		b.logger.Error("model invocation failed",
			"request_id", requestID, "model", b.modelID, "error", err)
		return result, fmt.Errorf("model invocation failed: %w", err)
	}

	var resp anthropicResponse
	if err := json.Unmarshal(out.Body, &resp); err != nil {
		result.ErrorType = "decode_error"
		result.ErrorMessage = err.Error()
		return result, fmt.Errorf("failed to decode model response: %w", err)
	}

	result.InputTokens = resp.Usage.InputTokens
	result.OutputTokens = resp.Usage.OutputTokens

	for _, block := range resp.Content {
		if block.Type == "text" && block.Text != "" {
			result.Text = block.Text
			break
		}
	}
	if result.Text == "" {
		result.ErrorType = "empty_response"
		result.ErrorMessage = "model returned no text content"
		return result, fmt.Errorf("model returned no text content")
	}

	result.Success = true
	b.logger.Info("model invocation complete",
		"request_id", requestID,
		"model", b.modelID,
		"input_tokens", result.InputTokens,
		"output_tokens", result.OutputTokens,
		"duration_seconds", result.ExecutionTime,
		"stop_reason", resp.StopReason)
	return result, nil
}
