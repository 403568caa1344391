// Package llm provides single-shot completion clients for the engine's
// collaborator calls (theme extraction, disambiguation, narratives).
package llm

import (
	"context"
)

// Client defines the interface for LLM completions.
// Use this interface for dependency injection to enable mocking in tests.
type Client interface {
	// GenerateResponse generates a chat completion response.
	GenerateResponse(ctx context.Context, prompt string, systemMessage string, temperature float64) (string, error)

	// GetModel returns the configured model name.
	GetModel() string

	// GetEndpoint returns the configured endpoint.
	GetEndpoint() string
}
