// Package provider holds the registry of LLM providers and their model catalogs.
package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"slices"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/notebook-intelligence/nbi-settings/internal/telemetry"
	"github.com/notebook-intelligence/nbi-settings/pkg/types"
)

// Provider ids.
const (
	GitHubCopilot     = "github-copilot"
	OpenAICompatible  = "openai-compatible"
	LiteLLMCompatible = "litellm-compatible"
	Ollama            = "ollama"
)

// Sentinel model ids of the providers whose model is typed in by the user.
const (
	OpenAICompatibleChatModelID              = "openai-compatible-chat-model"
	LiteLLMCompatibleChatModelID             = "litellm-compatible-chat-model"
	OpenAICompatibleInlineCompletionModelID  = "openai-compatible-inline-completion-model"
	LiteLLMCompatibleInlineCompletionModelID = "litellm-compatible-inline-completion-model"
)

// DefaultOllamaHost is used when no Ollama host is configured.
const DefaultOllamaHost = "http://localhost:11434"

// Options configures a Registry.
type Options struct {
	OllamaHost string
	HTTPClient *http.Client
	Logger     *zap.Logger
	Metrics    telemetry.CustomMetrics
}

// Registry serves the provider list and the chat and inline completion model catalogs.
// The Ollama catalog is discovered at runtime.
type Registry struct {
	ollamaHost string
	httpClient *http.Client
	logger     *zap.Logger
	metrics    telemetry.CustomMetrics

	mu           sync.RWMutex
	ollamaModels []string
}

// NewRegistry creates a registry with an empty Ollama catalog.
func NewRegistry(opts Options) *Registry {
	r := &Registry{
		ollamaHost: strings.TrimRight(opts.OllamaHost, "/"),
		httpClient: opts.HTTPClient,
		logger:     opts.Logger,
		metrics:    opts.Metrics,
	}
	if r.ollamaHost == "" {
		r.ollamaHost = DefaultOllamaHost
	}
	if r.httpClient == nil {
		r.httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	if r.logger == nil {
		r.logger = zap.NewNop()
	}
	if r.metrics == nil {
		r.metrics = telemetry.NewNoopCustomMetrics()
	}
	return r
}

// Providers returns the built-in providers.
func (r *Registry) Providers() []types.LLMProvider {
	return []types.LLMProvider{
		{ID: GitHubCopilot, Name: "GitHub Copilot"},
		{ID: OpenAICompatible, Name: "OpenAI Compatible"},
		{ID: LiteLLMCompatible, Name: "LiteLLM Compatible"},
		{ID: Ollama, Name: "Ollama"},
	}
}

// ChatModels returns the chat model catalog of every provider.
func (r *Registry) ChatModels() []types.Model {
	models := []types.Model{
		{ID: "gpt-4.1", Name: "GPT-4.1", Provider: GitHubCopilot, Properties: []types.ModelProperty{}},
		{ID: "gpt-4o", Name: "GPT-4o", Provider: GitHubCopilot, Properties: []types.ModelProperty{}},
		{ID: "claude-sonnet-4", Name: "Claude Sonnet 4", Provider: GitHubCopilot, Properties: []types.ModelProperty{}},
		{ID: "gemini-2.5-pro", Name: "Gemini 2.5 Pro", Provider: GitHubCopilot, Properties: []types.ModelProperty{}},
		{
			ID:         OpenAICompatibleChatModelID,
			Name:       "OpenAI Compatible Chat Model",
			Provider:   OpenAICompatible,
			Properties: openAICompatibleProperties(),
		},
		{
			ID:         LiteLLMCompatibleChatModelID,
			Name:       "LiteLLM Compatible Chat Model",
			Provider:   LiteLLMCompatible,
			Properties: liteLLMCompatibleProperties(),
		},
	}
	return append(models, r.ollamaCatalog()...)
}

// InlineCompletionModels returns the inline completion model catalog of every provider.
func (r *Registry) InlineCompletionModels() []types.Model {
	models := []types.Model{
		{ID: "gpt-4o-copilot", Name: "GPT-4o Copilot", Provider: GitHubCopilot, Properties: []types.ModelProperty{}},
		{
			ID:         OpenAICompatibleInlineCompletionModelID,
			Name:       "OpenAI Compatible Inline Completion Model",
			Provider:   OpenAICompatible,
			Properties: openAICompatibleProperties(),
		},
		{
			ID:         LiteLLMCompatibleInlineCompletionModelID,
			Name:       "LiteLLM Compatible Inline Completion Model",
			Provider:   LiteLLMCompatible,
			Properties: liteLLMCompatibleProperties(),
		},
	}
	return append(models, r.ollamaCatalog()...)
}

func openAICompatibleProperties() []types.ModelProperty {
	return []types.ModelProperty{
		{ID: "api_key", Name: "API key", Description: "API key"},
		{ID: "model_id", Name: "Model", Description: "Model ID"},
		{ID: "base_url", Name: "Base URL", Description: "Base URL", Optional: true},
	}
}

func liteLLMCompatibleProperties() []types.ModelProperty {
	return []types.ModelProperty{
		{ID: "model_id", Name: "Model", Description: "Model ID"},
		{ID: "base_url", Name: "Base URL", Description: "Base URL"},
		{ID: "api_key", Name: "API key", Description: "API key", Optional: true},
	}
}

func (r *Registry) ollamaCatalog() []types.Model {
	r.mu.RLock()
	defer r.mu.RUnlock()

	models := make([]types.Model, len(r.ollamaModels))
	for i, name := range r.ollamaModels {
		models[i] = types.Model{
			ID:         name,
			Name:       name,
			Provider:   Ollama,
			Properties: []types.ModelProperty{},
		}
	}
	return models
}

type ollamaTagsResponse struct {
	Models []struct {
		Name  string `json:"name"`
		Model string `json:"model"`
	} `json:"models"`
}

// UpdateOllamaModelList queries the local Ollama server for downloaded models and
// replaces the Ollama catalog. On failure the previous catalog is kept.
func (r *Registry) UpdateOllamaModelList(ctx context.Context) (int, error) {
	names, err := r.fetchOllamaModels(ctx)
	if err != nil {
		r.metrics.RecordOllamaModelListUpdate(ctx, telemetry.OutcomeError, 0)
		return 0, err
	}

	r.mu.Lock()
	r.ollamaModels = names
	r.mu.Unlock()

	r.metrics.RecordOllamaModelListUpdate(ctx, telemetry.OutcomeSuccess, len(names))
	r.logger.Info("updated Ollama model list", zap.Int("models", len(names)))
	return len(names), nil
}

func (r *Registry) fetchOllamaModels(ctx context.Context) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.ollamaHost+"/api/tags", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to reach Ollama at %s: %w", r.ollamaHost, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("request failed with status: %d, message: %s", resp.StatusCode, body)
	}

	var tags ollamaTagsResponse
	if err := json.NewDecoder(resp.Body).Decode(&tags); err != nil {
		return nil, fmt.Errorf("failed to decode Ollama model list: %w", err)
	}

	names := make([]string, 0, len(tags.Models))
	for _, m := range tags.Models {
		name := m.Name
		if name == "" {
			name = m.Model
		}
		if name == "" || slices.Contains(names, name) {
			continue
		}
		names = append(names, name)
	}
	slices.Sort(names)
	return names, nil
}
