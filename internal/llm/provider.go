package llm

import (
	"context"
	"fmt"
)

// Chat roles understood by every provider
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// DefaultTemperature is used when a request leaves Temperature unset
const DefaultTemperature = 0.7

// Message is one entry of a chat conversation
type Message struct {
	Role    string
	Content string
}

// Request contains chat completion parameters
type Request struct {
	System      string
	Messages    []Message
	// Temperature nil leaves the choice to DefaultTemperature
	Temperature *float64
	MaxTokens   int
}

// Response contains LLM generation result
type Response struct {
	Content    string
	Model      string
	TokensUsed int
	LatencyMs  int64
}

// Provider defines the interface for LLM providers
type Provider interface {
	// Name returns the provider identifier
	Name() string

	// AvailableModels returns list of supported models
	AvailableModels() []string

	// DefaultModel returns the default model
	DefaultModel() string

	// IsConfigured checks if provider has valid credentials
	IsConfigured() bool

	// Complete produces the next assistant message for a conversation
	Complete(ctx context.Context, req Request, model string) (*Response, error)
}

// ProviderFactory creates a new provider instance from ad-hoc settings
type ProviderFactory func(config map[string]any) (Provider, error)

// StatusError reports a non-2xx answer from a provider API
type StatusError struct {
	Provider   string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s returned status %d", e.Provider, e.StatusCode)
}
