package llm

import (
	"fmt"

	"go.uber.org/zap"
)

// Providers accepted by NewClient.
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
)

// Config holds configuration for creating an LLM client.
type Config struct {
	Provider string // "openai" (default, covers any OpenAI-compatible endpoint) or "anthropic"
	Endpoint string // Base URL for OpenAI-compatible providers, e.g. "https://api.openai.com/v1"
	Model    string // Model name
	APIKey   string // Optional for local endpoints
}

// NewClient creates a client for the configured provider.
// Returns the Client interface to enable dependency injection of mocks.
func NewClient(cfg *Config, logger *zap.Logger) (Client, error) {
	switch cfg.Provider {
	case ProviderAnthropic:
		return NewAnthropicClient(cfg, logger)
	case ProviderOpenAI, "":
		return NewOpenAIClient(cfg, logger)
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.Provider)
	}
}
