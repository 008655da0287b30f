package intel

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/Rrens/gladius/internal/llm"
)

const summaryInstruction = "Eres un analista de mercado inmobiliario. Responde solo con datos breves y verificables, " +
	"una afirmación por línea, sin introducción."

var summaryTemperature = 0.2

var listMarker = regexp.MustCompile(`^\s*(?:[-*•]\s*|\d+[.)]\s+)`)

// ProviderSource asks a chat-completion provider for a short market summary
type ProviderSource struct {
	provider llm.Provider
	model    string
}

// NewProviderSource creates a Source backed by an LLM provider
func NewProviderSource(provider llm.Provider, model string) *ProviderSource {
	return &ProviderSource{provider: provider, model: model}
}

func (p *ProviderSource) Name() string {
	return p.provider.Name()
}

// Search returns up to limit lines of market facts about query
func (p *ProviderSource) Search(ctx context.Context, query string, limit int) ([]string, error) {
	resp, err := p.provider.Complete(ctx, llm.Request{
		System: summaryInstruction,
		Messages: []llm.Message{{
			Role:    llm.RoleUser,
			Content: fmt.Sprintf("Dame %d datos recientes de mercado sobre: %s", limit, query),
		}},
		Temperature: &summaryTemperature,
		MaxTokens:   512,
	}, p.model)
	if err != nil {
		return nil, err
	}

	var snippets []string
	for _, line := range strings.Split(resp.Content, "\n") {
		line = strings.TrimSpace(listMarker.ReplaceAllString(line, ""))
		if line == "" {
			continue
		}
		snippets = append(snippets, line)
		if limit > 0 && len(snippets) == limit {
			break
		}
	}
	if len(snippets) == 0 {
		return nil, ErrNoResults
	}
	return snippets, nil
}
