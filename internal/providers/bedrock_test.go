package providers

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
)

func TestBuildRequestBodyTemperature(t *testing.T) {
	tests := []struct {
		name        string
		temperature *float64
		wantField   bool
		wantValue   float64
	}{
		{name: "nil omits temperature", temperature: nil, wantField: false},
		{name: "explicit zero is sent", temperature: Float64(0), wantField: true, wantValue: 0},
		{name: "explicit value is sent", temperature: Float64(0.7), wantField: true, wantValue: 0.7},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			body, err := buildRequestBody(&GenerateRequest{
				Prompt:      "extract the loan data",
				MaxTokens:   500,
				Temperature: tc.temperature,
			})
			if err != nil {
				t.Fatalf("buildRequestBody: %v", err)
			}

			var decoded map[string]any
			if err := json.Unmarshal(body, &decoded); err != nil {
				t.Fatalf("body is not valid JSON: %v", err)
			}

			value, present := decoded["temperature"]
			if present != tc.wantField {
				t.Fatalf("temperature present = %v, want %v", present, tc.wantField)
			}
			if tc.wantField && value.(float64) != tc.wantValue {
				t.Errorf("temperature = %v, want %v", value, tc.wantValue)
			}
		})
	}
}

func TestBuildRequestBodyDefaults(t *testing.T) {
	body, err := buildRequestBody(&GenerateRequest{Prompt: "hello"})
	if err != nil {
		t.Fatalf("buildRequestBody: %v", err)
	}

	var decoded anthropicRequest
	if err := json.Unmarshal(body, &decoded); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decoded.MaxTokens != DefaultMaxTokens {
		t.Errorf("max_tokens = %d, want %d", decoded.MaxTokens, DefaultMaxTokens)
	}
	if decoded.AnthropicVersion != anthropicVersion {
		t.Errorf("anthropic_version = %q", decoded.AnthropicVersion)
	}
	if len(decoded.Messages) != 1 || decoded.Messages[0].Role != "user" {
		t.Errorf("unexpected messages %+v", decoded.Messages)
	}
}

type fakeInvokeClient struct {
	lastInput *bedrockruntime.InvokeModelInput
	response  string
	err       error
}

func (f *fakeInvokeClient) InvokeModel(ctx context.Context, params *bedrockruntime.InvokeModelInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.InvokeModelOutput, error) {
	f.lastInput = params
	if f.err != nil {
		return nil, f.err
	}
	return &bedrockruntime.InvokeModelOutput{Body: []byte(f.response)}, nil
}

func TestBedrockClientInvoke(t *testing.T) {
	fake := &fakeInvokeClient{
		response: `{"content":[{"type":"text","text":"{\"field\":\"value\"}"}],"stop_reason":"end_turn","usage":{"input_tokens":120,"output_tokens":30}}`,
	}
	client := NewBedrockClient(fake, "", nil)

	result, err := client.Invoke(context.Background(), &GenerateRequest{
		Prompt:    "extract",
		MaxTokens: 200,
		RequestID: "req-1",
	})
	if err != nil {
		t.Fatalf("Invoke: %v", err)
	}
	if !result.Success {
		t.Fatalf("expected success, got %+v", result)
	}
	if result.Text != `{"field":"value"}` {
		t.Errorf("unexpected text %q", result.Text)
	}
	if result.InputTokens != 120 || result.OutputTokens != 30 {
		t.Errorf("token counts = %d/%d", result.InputTokens, result.OutputTokens)
	}
	if result.ModelUsed != DefaultModelID {
		t.Errorf("model = %q, want default", result.ModelUsed)
	}
	if aws.ToString(fake.lastInput.ContentType) != "application/json" {
		t.Errorf("content type = %q", aws.ToString(fake.lastInput.ContentType))
	}
	if !strings.Contains(string(fake.lastInput.Body), `"max_tokens":200`) {
		t.Errorf("max_tokens not in body: %s", fake.lastInput.Body)
	}
}

func TestBedrockClientEmptyResponse(t *testing.T) {
	fake := &fakeInvokeClient{response: `{"content":[],"usage":{}}`}
	client := NewBedrockClient(fake, "test-model", nil)

	result, err := client.Invoke(context.Background(), &GenerateRequest{Prompt: "extract"})
	if err == nil {
		t.Fatal("expected error for empty response")
	}
	if result.Success {
		t.Error("result should not be marked successful")
	}
	if result.ErrorType != "empty_response" {
		t.Errorf("error type = %q, want empty_response", result.ErrorType)
	}
}
