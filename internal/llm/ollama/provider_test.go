package ollama_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Rrens/gladius/internal/llm"
	"github.com/Rrens/gladius/internal/llm/ollama"
)

func TestProvider_Complete(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/chat", r.URL.Path)

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, false, body["stream"])
		assert.Len(t, body["messages"], 2)

		_, _ = w.Write([]byte(`{"message":{"role":"assistant","content":"Veredicto: PASAR"},"done":true,
			"prompt_eval_count":7,"eval_count":3}`))
	}))
	defer srv.Close()

	p := ollama.NewProvider(srv.URL+"/", "")
	resp, err := p.Complete(context.Background(), llm.Request{
		System:   "Eres GLADIUS",
		Messages: []llm.Message{{Role: llm.RoleUser, Content: "Analiza"}},
	}, "")
	require.NoError(t, err)

	assert.Equal(t, "Veredicto: PASAR", resp.Content)
	assert.Equal(t, "llama3", resp.Model)
	assert.Equal(t, 10, resp.TokensUsed)
}

func TestProvider_Complete_StatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := ollama.NewProvider(srv.URL, "").Complete(context.Background(), llm.Request{
		Messages: []llm.Message{{Role: llm.RoleUser, Content: "hola"}},
	}, "missing-model")

	var statusErr *llm.StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusNotFound, statusErr.StatusCode)
}
