// Package llm defines the Provider interface over external completion
// services.
//
// A provider wraps a remote or local model API (e.g., OpenAI, Anthropic, or a
// local Ollama instance) and exposes a uniform request/response call for the
// dispatch pipeline, without coupling it to any specific SDK. Implementors
// must be safe for concurrent use.
package llm

import "context"

// Usage holds token accounting information returned by the backend.
// Counts are in the model's native token unit and may differ between
// providers for the same textual content.
type Usage struct {
	// PromptTokens is the number of tokens consumed by the input.
	PromptTokens int

	// CompletionTokens is the number of tokens generated in the response.
	CompletionTokens int

	// TotalTokens is PromptTokens + CompletionTokens; some providers return
	// it directly rather than computing it from the parts.
	TotalTokens int
}

// CompletionRequest carries everything the backend needs to produce a reply.
type CompletionRequest struct {
	// History is the prior conversation, one transcript line per element,
	// oldest first. May be empty at the start of a session.
	History []string

	// Message is the player's current message, possibly augmented with
	// contextual facts. Must be non-empty.
	Message string

	// SystemPrompt is an optional high-priority instruction injected before
	// the conversation.
	SystemPrompt string

	// MaxTokens caps the completion length. Zero means provider default.
	MaxTokens int

	// Temperature controls output randomness in [0.0, 2.0]. Zero requests
	// the provider default.
	Temperature float64
}

// CompletionResponse is the backend's reply.
type CompletionResponse struct {
	// Content is the full text of the reply.
	Content string

	// Usage contains token accounting for this request/response pair.
	Usage Usage
}

// Provider is the abstraction over any completion backend.
//
// Complete sends req and waits for the full response. It returns an error on
// network, auth, or malformed-response failures, and must return promptly
// when ctx is cancelled.
type Provider interface {
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)
}

// Factory constructs providers on demand. The dispatch pipeline uses a
// factory in per-player credential mode, where the credential is only known
// at submission time.
type Factory interface {
	// New returns a Provider for the given platform and model, authenticated
	// with apiKey. An empty apiKey is valid for platforms that need none
	// (e.g., a local ollama server).
	New(platform, model, apiKey string) (Provider, error)
}
