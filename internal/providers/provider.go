// Package providers contains the model invocation boundary. Every request
// carries its own generation parameters so concurrent calls with different
// settings never interfere with each other.
package providers

import "context"

// DefaultMaxTokens bounds completion length when the caller gives none.
const DefaultMaxTokens = 4000

// GenerateRequest is one self-contained model invocation. Temperature is a
// tri-state: nil means the model's own default, a pointer (including to
// zero) is sent explicitly.
type GenerateRequest struct {
	Prompt      string
	MaxTokens   int
	Temperature *float64
	RequestID   string
}

// GenerateResult is the outcome envelope for one invocation. On failure the
// ErrorType and ErrorMessage fields carry the classification; Text is empty.
type GenerateResult struct {
	Text          string
	RequestID     string
	ModelUsed     string
	InputTokens   int
	OutputTokens  int
	ExecutionTime float64
	Success       bool
	ErrorType     string
	ErrorMessage  string
}

// LLMClient is implemented by every model backend.
type LLMClient interface {
	// Invoke runs one generation. The returned error covers transport and
	// infrastructure faults; model-level failures are reported through the
	// result envelope.
	Invoke(ctx context.Context, req *GenerateRequest) (*GenerateResult, error)

	// Name identifies the backend for logs.
	Name() string
}

// Float64 returns a pointer to v, for setting explicit temperatures.
func Float64(v float64) *float64 {
	return &v
}
