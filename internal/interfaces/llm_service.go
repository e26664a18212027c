package interfaces

import (
	"context"
)

// GenerateOptions control a single LLM generation call.
type GenerateOptions struct {
	// Temperature for sampling; discovery uses 0.7, assignment 0.2.
	Temperature float32

	// MaxTokens caps the response length. Zero means provider default.
	MaxTokens int

	// SystemInstruction primes the model before the user prompt.
	SystemInstruction string

	// JSONResponse requests a JSON-typed response where the provider
	// supports it (Gemini response MIME type).
	JSONResponse bool
}

// LLMService defines the interface for language model text generation.
// Implementations wrap a cloud provider (Gemini, Claude); availability is
// determined by configured API keys. All callers must tolerate
// ErrLLMUnavailable and degrade to their deterministic fallback.
type LLMService interface {
	// Generate sends a single prompt and returns the raw response text.
	// Calls are single-flight per service instance; concurrent callers
	// are serialized.
	Generate(ctx context.Context, prompt string, opts GenerateOptions) (string, error)

	// Available reports whether a provider is configured and usable.
	Available() bool

	// Provider returns the active provider name ("gemini", "claude" or
	// "none") for logging and the status endpoint.
	Provider() string

	// Close releases provider resources.
	Close() error
}
