// Package modelselect holds the state of the general settings form: provider and
// model choice for chat and inline completion, the model property values and the
// visibility rules of the model pickers.
//
// All transitions are pure and return new values, so the form logic is testable
// without any rendering.
package modelselect

import (
	"slices"

	"github.com/notebook-intelligence/nbi-settings/pkg/types"
)

// Kind identifies which model a Selection configures.
type Kind string

const (
	KindChat             Kind = "chat"
	KindInlineCompletion Kind = "inline-completion"
)

// Well-known provider ids.
const (
	ProviderNone              = "none"
	ProviderOpenAICompatible  = "openai-compatible"
	ProviderLiteLLMCompatible = "litellm-compatible"
	ProviderGitHubCopilot     = "github-copilot"
	ProviderOllama            = "ollama"
)

// Sentinel model ids used by providers whose model is typed in by the user.
const (
	OpenAICompatibleChatModelID              = "openai-compatible-chat-model"
	LiteLLMCompatibleChatModelID             = "litellm-compatible-chat-model"
	OpenAICompatibleInlineCompletionModelID  = "openai-compatible-inline-completion-model"
	LiteLLMCompatibleInlineCompletionModelID = "litellm-compatible-inline-completion-model"
)

// IsCompatibleSentinel reports whether id is the free-text sentinel model of the given kind.
func IsCompatibleSentinel(kind Kind, id string) bool {
	switch kind {
	case KindChat:
		return id == OpenAICompatibleChatModelID || id == LiteLLMCompatibleChatModelID
	case KindInlineCompletion:
		return id == OpenAICompatibleInlineCompletionModelID || id == LiteLLMCompatibleInlineCompletionModelID
	default:
		return false
	}
}

// hidesModelPicker reports whether the provider never shows a model picker.
func hidesModelPicker(provider string) bool {
	return provider == ProviderOpenAICompatible ||
		provider == ProviderLiteLLMCompatible ||
		provider == ProviderNone
}

// Selection is the provider/model/property choice for one model kind.
type Selection struct {
	Kind     Kind
	Provider string
	Model    string

	// Models is the catalog filtered down to Provider.
	Models []types.Model

	// Properties is replaced wholesale whenever the selected model changes.
	Properties []types.ModelProperty
}

// NewSelection builds the selection shown when the form opens, starting from the saved config.
// An empty provider is treated as "none".
func NewSelection(kind Kind, catalog []types.Model, saved types.ModelConfig) Selection {
	provider := saved.Provider
	if provider == "" {
		provider = ProviderNone
	}
	s := Selection{Kind: kind, Model: saved.Model}
	return s.SelectProvider(catalog, provider)
}

// SelectProvider switches to a provider.
// The model list is reset to the catalog entries of that provider. The current model is
// kept if the provider offers it, otherwise the first model is picked, or none when the
// list is empty. The properties are reset to the templates of the picked model.
func (s Selection) SelectProvider(catalog []types.Model, provider string) Selection {
	next := Selection{Kind: s.Kind, Provider: provider}
	for _, m := range catalog {
		if m.Provider == provider {
			next.Models = append(next.Models, m)
		}
	}

	idx := slices.IndexFunc(next.Models, func(m types.Model) bool { return m.ID == s.Model })
	if idx < 0 && len(next.Models) > 0 {
		idx = 0
	}
	if idx < 0 {
		next.Properties = []types.ModelProperty{}
		return next
	}

	next.Model = next.Models[idx].ID
	next.Properties = slices.Clone(next.Models[idx].Properties)
	if next.Properties == nil {
		next.Properties = []types.ModelProperty{}
	}
	return next
}

// SelectModel picks a model of the current provider and replaces the property list
// with that model's templates. Unknown ids leave the selection unchanged.
func (s Selection) SelectModel(id string) Selection {
	idx := slices.IndexFunc(s.Models, func(m types.Model) bool { return m.ID == id })
	if idx < 0 {
		return s
	}
	next := s
	next.Model = id
	next.Properties = slices.Clone(s.Models[idx].Properties)
	if next.Properties == nil {
		next.Properties = []types.ModelProperty{}
	}
	return next
}

// SetProperty updates the value of the property with the given id only.
func (s Selection) SetProperty(id, value string) Selection {
	next := s
	next.Properties = make([]types.ModelProperty, len(s.Properties))
	for i, p := range s.Properties {
		if p.ID == id {
			p.Value = value
		}
		next.Properties[i] = p
	}
	return next
}

// Property returns the property with the given id.
func (s Selection) Property(id string) (types.ModelProperty, bool) {
	for _, p := range s.Properties {
		if p.ID == id {
			return p, true
		}
	}
	return types.ModelProperty{}, false
}

// ModelConfig returns the persisted form of the selection.
func (s Selection) ModelConfig() types.ModelConfig {
	props := slices.Clone(s.Properties)
	if props == nil {
		props = []types.ModelProperty{}
	}
	return types.ModelConfig{
		Provider:   s.Provider,
		Model:      s.Model,
		Properties: props,
	}
}

// Visibility describes which parts of a model picker are rendered.
type Visibility struct {
	// ModelColumn is the "Model" column container.
	ModelColumn bool
	// ModelDropdown is the model list inside the column.
	ModelDropdown bool
	// ModelIDRow is the free-text model id row shown in place of the dropdown.
	ModelIDRow bool
	// OllamaWarning is the "no Ollama models found" notice.
	OllamaWarning bool
}

// Visibility evaluates the picker visibility rules:
//
//	provider in {openai-compatible, litellm-compatible, none}: nothing shown
//	other provider, models non-empty, sentinel model selected: column + id row
//	other provider, models non-empty, normal model selected:   column + dropdown
func (s Selection) Visibility() Visibility {
	v := Visibility{
		OllamaWarning: s.Provider == ProviderOllama && len(s.Models) == 0,
	}
	if hidesModelPicker(s.Provider) || len(s.Models) == 0 {
		return v
	}
	v.ModelColumn = true
	if IsCompatibleSentinel(s.Kind, s.Model) {
		v.ModelIDRow = true
	} else {
		v.ModelDropdown = true
	}
	return v
}
