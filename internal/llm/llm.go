// Package llm wraps the hosted language-model providers behind one text-completion interface.
package llm

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
)

// Provider constants for LLM provider selection.
const (
	ProviderAnthropic = "anthropic"
	ProviderOpenAI    = "openai"
)

// ErrEmptyCompletion is returned when the provider answers without any text.
var ErrEmptyCompletion = errors.New("empty completion")

// Config holds LLM client configuration.
type Config struct {
	Provider string // "anthropic" (default) or "openai"
	APIKey   string
	BaseURL  string // Optional: custom API endpoint
	Model    string
}

// Request is a single-turn completion request.
type Request struct {
	Prompt    string
	MaxTokens int
}

// Response carries the generated text and token usage.
type Response struct {
	Text             string
	PromptTokens     int
	CompletionTokens int
}

// Client produces text completions.
type Client interface {
	Complete(ctx context.Context, req Request) (*Response, error)
	Model() string
}

// New creates a Client for the configured provider.
func New(cfg Config, logger *zap.Logger) (Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("API key is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	switch cfg.Provider {
	case "", ProviderAnthropic:
		return newAnthropicClient(cfg, logger), nil
	case ProviderOpenAI:
		return newOpenAIClient(cfg, logger), nil
	default:
		return nil, fmt.Errorf("unknown LLM provider %q", cfg.Provider)
	}
}
