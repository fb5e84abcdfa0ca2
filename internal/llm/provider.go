package llm

import (
	"context"

	"reviewlens/internal/model"
)

// Provider defines the abstract text-generation capability. Every call
// site must define its own fallback value: numeric results never depend
// on a Generate call succeeding.
type Provider interface {
	// Name returns the provider name
	Name() string

	// Generate produces text for a single prompt
	Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error)

	// IsAvailable checks if the provider is properly configured and accessible
	IsAvailable(ctx context.Context) bool
}

// Embedder produces fixed-length embeddings for a batch of texts.
// Clustering delegates here; it never computes embeddings itself.
type Embedder interface {
	// Name returns the provider name
	Name() string

	// Embed returns one vector per input text, all of equal length
	Embed(ctx context.Context, texts []string) ([][]float64, error)
}

// GenerateRequest contains the input for a text-generation call.
type GenerateRequest struct {
	// Prompt is the user prompt
	Prompt string

	// System is an optional system instruction
	System string

	// Model overrides the configured model (provider-specific)
	Model string

	// MaxTokens limits the response length
	MaxTokens int

	// Temperature controls randomness; analysis prompts run low
	Temperature float32
}

// GenerateResponse contains the generation output.
type GenerateResponse struct {
	// Text is the generated text
	Text string

	// Model is the model that generated the response
	Model string

	// TokensUsed tracks token consumption
	TokensUsed int
}

// Config holds LLM provider configuration
type Config struct {
	// Provider name: "openai", "anthropic", "ollama", ""
	Provider string

	// Model name (provider-specific)
	Model string

	// EmbedModel names the embedding model (provider-specific)
	EmbedModel string

	// APIKey for OpenAI/Anthropic
	APIKey string

	// BaseURL for custom endpoints (e.g., Ollama)
	BaseURL string

	// Timeout for API requests
	Timeout int // seconds

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
		Provider:  "", // Disabled by default
		Model:     "",
		Timeout:   30,
		MaxTokens: 1000,
	}
}

// ConfigFromModel converts model.LLMConfig to llm.Config
func ConfigFromModel(mc model.LLMConfig) Config {
	return Config{
		Provider:   mc.Provider,
		Model:      mc.Model,
		EmbedModel: mc.EmbedModel,
		APIKey:     mc.APIKey,
		BaseURL:    mc.BaseURL,
		Timeout:    mc.Timeout,
		MaxTokens:  mc.MaxTokens,
		HTTPProxy:  mc.HTTPProxy,
		HTTPSProxy: mc.HTTPSProxy,
		NoProxy:    mc.NoProxy,
	}
}
