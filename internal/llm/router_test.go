package llm_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Rrens/gladius/internal/llm"
)

type stubProvider struct {
	name       string
	configured bool
}

func (s *stubProvider) Name() string              { return s.name }
func (s *stubProvider) AvailableModels() []string { return []string{s.name + "-model"} }
func (s *stubProvider) DefaultModel() string      { return s.name + "-model" }
func (s *stubProvider) IsConfigured() bool        { return s.configured }

func (s *stubProvider) Complete(ctx context.Context, req llm.Request, model string) (*llm.Response, error) {
	return &llm.Response{Content: "ok", Model: model}, nil
}

func TestRouter_GetProvider(t *testing.T) {
	r := llm.NewRouter("openai")
	r.RegisterProvider(&stubProvider{name: "openai", configured: true})
	r.RegisterProvider(&stubProvider{name: "anthropic", configured: false})

	p, err := r.GetProvider("")
	require.NoError(t, err)
	assert.Equal(t, "openai", p.Name())

	_, err = r.GetProvider("anthropic")
	assert.ErrorContains(t, err, "not configured")

	_, err = r.GetProvider("mystery")
	assert.ErrorContains(t, err, "not found")
}

func TestRouter_ListProviders(t *testing.T) {
	r := llm.NewRouter("ollama")
	r.RegisterProvider(&stubProvider{name: "ollama", configured: true})
	r.RegisterProvider(&stubProvider{name: "gemini", configured: true})
	r.RegisterProvider(&stubProvider{name: "deepseek", configured: false})

	assert.Equal(t, []string{"gemini", "ollama"}, r.ListProviders())

	infos := r.GetProvidersInfo()
	require.Len(t, infos, 3)
	assert.Equal(t, "deepseek", infos[0].Name)
	assert.False(t, infos[0].Configured)
	assert.True(t, infos[2].Default)
}

func TestRouter_GetProviderWithConfig(t *testing.T) {
	r := llm.NewRouter("ollama")
	r.RegisterProvider(&stubProvider{name: "ollama", configured: true})
	r.RegisterFactory("ollama", func(config map[string]any) (llm.Provider, error) {
		host, _ := config["host"].(string)
		return &stubProvider{name: "ollama@" + host, configured: true}, nil
	})

	p, err := r.GetProviderWithConfig("ollama", map[string]any{"host": "gpu-box"})
	require.NoError(t, err)
	assert.Equal(t, "ollama@gpu-box", p.Name())

	p, err = r.GetProviderWithConfig("ollama", nil)
	require.NoError(t, err)
	assert.Equal(t, "ollama", p.Name())
}
