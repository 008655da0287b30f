package llm_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Rrens/gladius/internal/llm"
)

func TestWithSystem(t *testing.T) {
	req := llm.Request{
		System:   "Eres GLADIUS",
		Messages: []llm.Message{{Role: llm.RoleUser, Content: "hola"}},
	}

	got := llm.WithSystem(req)
	require.Len(t, got, 2)
	assert.Equal(t, llm.RoleSystem, got[0].Role)
	assert.Equal(t, "Eres GLADIUS", got[0].Content)
	assert.Equal(t, "hola", got[1].Content)

	req.System = "  "
	assert.Len(t, llm.WithSystem(req), 1)
}

func TestSplitLast(t *testing.T) {
	messages := []llm.Message{
		{Role: llm.RoleUser, Content: "one"},
		{Role: llm.RoleAssistant, Content: "two"},
		{Role: llm.RoleUser, Content: "three"},
	}

	history, last, err := llm.SplitLast(messages)
	require.NoError(t, err)
	assert.Len(t, history, 2)
	assert.Equal(t, "three", last.Content)

	_, _, err = llm.SplitLast(messages[:2])
	assert.ErrorIs(t, err, llm.ErrNoUserMessage)

	_, _, err = llm.SplitLast(nil)
	assert.ErrorIs(t, err, llm.ErrNoUserMessage)
}

func TestTemperature(t *testing.T) {
	low, zero := 0.2, 0.0
	assert.Equal(t, llm.DefaultTemperature, llm.Temperature(llm.Request{}))
	assert.Equal(t, 0.2, llm.Temperature(llm.Request{Temperature: &low}))
	assert.Equal(t, 0.0, llm.Temperature(llm.Request{Temperature: &zero}))
}

func TestCleanReply(t *testing.T) {
	tests := []struct {
		name     string
		content  string
		expected string
	}{
		{"plain text", "  Veredicto: COMPRAR  ", "Veredicto: COMPRAR"},
		{"fenced markdown", "```markdown\n## Veredicto\nCOMPRAR\n```", "## Veredicto\nCOMPRAR"},
		{"bare fence", "```\nhola\n```", "hola"},
		{"fence with spaced first line kept", "```Veredicto final\nok```", "Veredicto final\nok"},
		{"inner fence untouched", "texto ```code``` texto", "texto ```code``` texto"},
		{"only fences", "``````", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, llm.CleanReply(tt.content))
		})
	}
}
