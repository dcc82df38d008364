// Package llm provides the model-provider transport for staffline.
//
// The pipeline and revision protocol depend only on the Client interface so
// tests can script responses instead of hitting a live API.
package llm

import (
	"context"
	"fmt"
	"time"
)

// Default configuration values.
const (
	defaultAnthropicBaseURL = "https://api.anthropic.com"
	defaultAnthropicModel   = "claude-3-5-sonnet-20241022"
	defaultOpenAIBaseURL    = "https://api.openai.com"
	defaultOpenAIModel      = "gpt-4o"
	defaultMaxTokens        = 4096
	defaultTimeout          = 180 * time.Second
	defaultMaxRetries       = 3
	defaultBaseBackoff      = 1 * time.Second
)

// Rate limiter defaults: 50 requests per minute.
const (
	defaultRateLimit = 50.0 / 60.0
	defaultBurst     = 5
)

// Message roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one turn of a model conversation.
type Message struct {
	Role    string
	Content string
}

// CompletionRequest is a provider-neutral completion call.
type CompletionRequest struct {
	System      string
	Messages    []Message
	MaxTokens   int
	Temperature float64
}

// Client sends completion requests to a model provider.
type Client interface {
	Complete(ctx context.Context, req CompletionRequest) (string, error)
	Available() bool
}

// Config holds provider client configuration.
type Config struct {
	Provider   string
	APIKey     string
	BaseURL    string
	Model      string
	MaxTokens  int
	Timeout    time.Duration
	MaxRetries int
}

// New creates a client for the configured provider.
func New(cfg Config) (Client, error) {
	switch cfg.Provider {
	case "anthropic":
		return newAnthropicClient(cfg)
	case "openai":
		return newOpenAIClient(cfg)
	default:
		return nil, fmt.Errorf("unknown provider: %s", cfg.Provider)
	}
}
