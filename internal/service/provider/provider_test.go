package provider

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProvidersAndCatalogs(t *testing.T) {
	t.Parallel()

	r := NewRegistry(Options{})

	ids := make([]string, 0)
	for _, p := range r.Providers() {
		ids = append(ids, p.ID)
	}
	assert.Equal(t, []string{GitHubCopilot, OpenAICompatible, LiteLLMCompatible, Ollama}, ids)

	chat := r.ChatModels()
	require.NotEmpty(t, chat)
	var sawSentinel bool
	for _, m := range chat {
		assert.NotNil(t, m.Properties, "model %s", m.ID)
		if m.ID == OpenAICompatibleChatModelID {
			sawSentinel = true
			assert.Equal(t, OpenAICompatible, m.Provider)
			assert.Len(t, m.Properties, 3)
		}
		assert.NotEqual(t, Ollama, m.Provider, "no Ollama models before discovery")
	}
	assert.True(t, sawSentinel)

	inline := r.InlineCompletionModels()
	found := false
	for _, m := range inline {
		if m.ID == LiteLLMCompatibleInlineCompletionModelID {
			found = true
		}
	}
	assert.True(t, found)
}

func TestUpdateOllamaModelList(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		assert.Equal(t, "/api/tags", req.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"models":[
			{"name":"qwen2.5-coder:7b","model":"qwen2.5-coder:7b"},
			{"name":"llama3.2:latest","model":"llama3.2:latest"},
			{"name":"","model":"phi4:latest"},
			{"name":"llama3.2:latest"}
		]}`))
	}))
	defer srv.Close()

	r := NewRegistry(Options{OllamaHost: srv.URL + "/"})
	n, err := r.UpdateOllamaModelList(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	var ollama []string
	for _, m := range r.ChatModels() {
		if m.Provider == Ollama {
			ollama = append(ollama, m.ID)
		}
	}
	assert.Equal(t, []string{"llama3.2:latest", "phi4:latest", "qwen2.5-coder:7b"}, ollama)

	inline := 0
	for _, m := range r.InlineCompletionModels() {
		if m.Provider == Ollama {
			inline++
		}
	}
	assert.Equal(t, 3, inline)
}

func TestUpdateOllamaModelList_Failure(t *testing.T) {
	t.Parallel()

	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		if calls == 1 {
			_, _ = w.Write([]byte(`{"models":[{"name":"llama3"}]}`))
			return
		}
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	r := NewRegistry(Options{OllamaHost: srv.URL})
	_, err := r.UpdateOllamaModelList(context.Background())
	require.NoError(t, err)

	_, err = r.UpdateOllamaModelList(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "request failed with status: 500")

	// previous catalog is kept
	assert.Len(t, r.ollamaCatalog(), 1)
}

func TestUpdateOllamaModelList_Unreachable(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	r := NewRegistry(Options{OllamaHost: url})
	_, err := r.UpdateOllamaModelList(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to reach Ollama")
}
