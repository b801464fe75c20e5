package types

// Chat modes accepted for DefaultChatMode.
const (
	ChatModeAsk   = "ask"
	ChatModeAgent = "agent"
)

// LLMProvider is a named source of language models.
type LLMProvider struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// ModelProperty is a user-editable property of a model, e.g. an API key or a base URL.
// A model's declared properties act as templates: their Value is the default.
type ModelProperty struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Optional    bool   `json:"optional"`
	Value       string `json:"value"`
}

// Model is an entry of a provider's model catalog.
type Model struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	Provider   string          `json:"provider"`
	Properties []ModelProperty `json:"properties"`
}

// ModelConfig is the persisted choice of provider, model and property values.
type ModelConfig struct {
	Provider   string          `json:"provider"`
	Model      string          `json:"model"`
	Properties []ModelProperty `json:"properties"`
}

// Config is a full snapshot of the configuration service's state.
// Consumers re-read it whenever a ConfigChangedEvent arrives.
type Config struct {
	// Revision increases with every write to the configuration service.
	Revision uint64 `json:"revision"`

	DefaultChatMode        string      `json:"default_chat_mode"`
	ChatModel              ModelConfig `json:"chat_model"`
	InlineCompletionModel  ModelConfig `json:"inline_completion_model"`
	StoreGitHubAccessToken bool        `json:"store_github_access_token"`

	LLMProviders           []LLMProvider `json:"llm_providers"`
	ChatModels             []Model       `json:"chat_models"`
	InlineCompletionModels []Model       `json:"inline_completion_models"`

	McpServers        []McpServer       `json:"mcp_servers"`
	McpServerSettings McpServerSettings `json:"mcp_server_settings"`

	UserConfigDir string `json:"user_config_dir"`
}

// FindMcpServer returns the catalog entry with the given id.
func (c *Config) FindMcpServer(id string) (*McpServer, bool) {
	for i := range c.McpServers {
		if c.McpServers[i].ID == id {
			return &c.McpServers[i], true
		}
	}
	return nil, false
}

// ConfigUpdate is a partial configuration accepted by the configuration service.
// Nil fields are left untouched.
type ConfigUpdate struct {
	DefaultChatMode        *string           `json:"default_chat_mode,omitempty"`
	ChatModel              *ModelConfig      `json:"chat_model,omitempty"`
	InlineCompletionModel  *ModelConfig      `json:"inline_completion_model,omitempty"`
	StoreGitHubAccessToken *bool             `json:"store_github_access_token,omitempty"`
	McpServerSettings      McpServerSettings `json:"mcp_server_settings,omitempty"`
}

// IsEmpty reports whether the update carries no field at all.
func (u *ConfigUpdate) IsEmpty() bool {
	return u.DefaultChatMode == nil &&
		u.ChatModel == nil &&
		u.InlineCompletionModel == nil &&
		u.StoreGitHubAccessToken == nil &&
		u.McpServerSettings == nil
}

// Keys returns the names of the fields present in the update.
func (u *ConfigUpdate) Keys() []string {
	var keys []string
	if u.DefaultChatMode != nil {
		keys = append(keys, "default_chat_mode")
	}
	if u.ChatModel != nil {
		keys = append(keys, "chat_model")
	}
	if u.InlineCompletionModel != nil {
		keys = append(keys, "inline_completion_model")
	}
	if u.StoreGitHubAccessToken != nil {
		keys = append(keys, "store_github_access_token")
	}
	if u.McpServerSettings != nil {
		keys = append(keys, "mcp_server_settings")
	}
	return keys
}

// SetConfigResult is returned by the configuration service after a write.
type SetConfigResult struct {
	Revision uint64 `json:"revision"`
}

// ConfigChangedReason tells subscribers what triggered a change notification.
// It is informational only: subscribers must always re-read the full config.
type ConfigChangedReason string

const (
	ReasonSetConfig        ConfigChangedReason = "set_config"
	ReasonMcpReload        ConfigChangedReason = "mcp_reload"
	ReasonOllamaModelList  ConfigChangedReason = "ollama_model_list"
	ReasonMcpServerListing ConfigChangedReason = "mcp_server_list"
)

// ConfigChangedEventType is the only event type pushed on the change feed.
const ConfigChangedEventType = "config_changed"

// ConfigChangedEvent is pushed to subscribers whenever the configuration changes.
type ConfigChangedEvent struct {
	Type     string              `json:"type"`
	Revision uint64              `json:"revision"`
	Reason   ConfigChangedReason `json:"reason,omitempty"`
}
