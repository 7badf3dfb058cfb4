package llm

import "context"

// Provider defines the interface for language-model completion backends
type Provider interface {
	// Name returns the provider name
	Name() string

	// Complete sends one prompt and returns the raw completion text
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)

	// IsAvailable checks if the provider is properly configured and accessible
	IsAvailable(ctx context.Context) bool
}

// CompletionRequest contains one structured prompt
type CompletionRequest struct {
	// System sets the model's role and output contract
	System string

	// Prompt is the user-turn content. Extraction prompts embed the
	// fetched page text and must constrain the model to it.
	Prompt string

	// Model overrides the configured model (provider-specific)
	Model string

	// MaxTokens limits the response length
	MaxTokens int
}

// CompletionResponse contains the completion and its token cost
type CompletionResponse struct {
	Content    string
	Model      string
	TokensUsed int
}

// Config holds LLM provider configuration
type Config struct {
	// Provider name: "openai", "ollama", ""
	Provider string

	// Model name (provider-specific)
	Model string

	// APIKey for OpenAI-compatible endpoints
	APIKey string

	// BaseURL for custom endpoints (e.g., Ollama, proxies)
	BaseURL string

	// Timeout for API requests, seconds
	Timeout int

	// MaxTokens for response generation
	MaxTokens int

	// Proxy settings
	HTTPProxy  string
	HTTPSProxy string
	NoProxy    string
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		Provider:  "",
		Timeout:   60,
		MaxTokens: 2000,
	}
}
