package providers

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// MockClient is an in-memory LLMClient for tests.
type MockClient struct {
	// Latency delays each Invoke to simulate model execution time.
	Latency time.Duration

	// ShouldFail makes every Invoke return a failure envelope and error.
	ShouldFail bool

	// ResponseText is returned verbatim when RespondWith is nil.
	ResponseText string

	// RespondWith, when set, computes the response from the request. It lets
	// tests assert that concurrent calls each see their own parameters.
	RespondWith func(req *GenerateRequest) string

	requestCount atomic.Int64

	mu       sync.Mutex
	requests []GenerateRequest
}

// Name implements LLMClient.
func (m *MockClient) Name() string { return "mock" }

// Invoke implements LLMClient.
func (m *MockClient) Invoke(ctx context.Context, req *GenerateRequest) (*GenerateResult, error) {
	m.requestCount.Add(1)
	m.mu.Lock()
	m.requests = append(m.requests, *req)
	m.mu.Unlock()

	if m.Latency > 0 {
		select {
		case <-time.After(m.Latency):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	requestID := req.RequestID
	if requestID == "" {
		requestID = uuid.NewString()
	}

	if m.ShouldFail {
		return &GenerateResult{
			RequestID:    requestID,
			ModelUsed:    "mock",
			ErrorType:    "invoke_error",
			ErrorMessage: "mock failure",
		}, fmt.Errorf("mock invocation failure")
	}

	text := m.ResponseText
	if m.RespondWith != nil {
		text = m.RespondWith(req)
	}
	return &GenerateResult{
		Text:         text,
		RequestID:    requestID,
		ModelUsed:    "mock",
		InputTokens:  len(req.Prompt) / 4,
		OutputTokens: len(text) / 4,
		Success:      true,
	}, nil
}

// RequestCount returns the number of Invoke calls made.
func (m *MockClient) RequestCount() int64 {
	return m.requestCount.Load()
}

// Requests returns a copy of every recorded request.
func (m *MockClient) Requests() []GenerateRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]GenerateRequest, len(m.requests))
	copy(out, m.requests)
	return out
}
