package deepseek

import (
	"github.com/Rrens/gladius/internal/llm"
	"github.com/Rrens/gladius/internal/llm/openai"
)

const baseURL = "https://api.deepseek.com/v1"

// Provider implements llm.Provider for DeepSeek over its OpenAI-compatible API
type Provider struct {
	llm.Provider
}

// NewProvider creates a new DeepSeek provider
func NewProvider(apiKey, defaultModel string, opts ...openai.Option) llm.Provider {
	if defaultModel == "" {
		defaultModel = "deepseek-chat"
	}
	opts = append([]openai.Option{openai.WithName("deepseek"), openai.WithBaseURL(baseURL)}, opts...)
	return &Provider{Provider: openai.NewProvider(apiKey, defaultModel, opts...)}
}

// AvailableModels returns list of supported models
func (p *Provider) AvailableModels() []string {
	return []string{
		"deepseek-chat",
		"deepseek-reasoner",
	}
}
