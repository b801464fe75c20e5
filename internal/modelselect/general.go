package modelselect

import (
	"reflect"

	"github.com/notebook-intelligence/nbi-settings/pkg/types"
)

// GeneralSettings is the state of the general settings form.
type GeneralSettings struct {
	DefaultChatMode        string
	Chat                   Selection
	InlineCompletion       Selection
	StoreGitHubAccessToken bool
}

// NewGeneralSettings initializes the form from a config snapshot.
func NewGeneralSettings(cfg *types.Config) GeneralSettings {
	mode := cfg.DefaultChatMode
	if mode == "" {
		mode = types.ChatModeAsk
	}
	return GeneralSettings{
		DefaultChatMode:        mode,
		Chat:                   NewSelection(KindChat, cfg.ChatModels, cfg.ChatModel),
		InlineCompletion:       NewSelection(KindInlineCompletion, cfg.InlineCompletionModels, cfg.InlineCompletionModel),
		StoreGitHubAccessToken: cfg.StoreGitHubAccessToken,
	}
}

// Refresh re-runs provider selection against the catalogs of a newer snapshot,
// e.g. after the Ollama model list was updated. Current choices are kept where possible.
func (g GeneralSettings) Refresh(cfg *types.Config) GeneralSettings {
	next := g
	chat := g.Chat.SelectProvider(cfg.ChatModels, g.Chat.Provider)
	if chat.Model == g.Chat.Model {
		chat.Properties = g.Chat.Properties
	}
	inline := g.InlineCompletion.SelectProvider(cfg.InlineCompletionModels, g.InlineCompletion.Provider)
	if inline.Model == g.InlineCompletion.Model {
		inline.Properties = g.InlineCompletion.Properties
	}
	next.Chat = chat
	next.InlineCompletion = inline
	return next
}

// Selection returns the selection of the given kind.
func (g GeneralSettings) Selection(kind Kind) Selection {
	if kind == KindInlineCompletion {
		return g.InlineCompletion
	}
	return g.Chat
}

// WithSelection returns a copy with the selection of s.Kind replaced by s.
func (g GeneralSettings) WithSelection(s Selection) GeneralSettings {
	next := g
	if s.Kind == KindInlineCompletion {
		next.InlineCompletion = s
	} else {
		next.Chat = s
	}
	return next
}

// ShowGitHubSection reports whether either model uses the GitHub Copilot provider.
func (g GeneralSettings) ShowGitHubSection() bool {
	return g.Chat.Provider == ProviderGitHubCopilot || g.InlineCompletion.Provider == ProviderGitHubCopilot
}

// ToConfigUpdate builds the partial config submitted on save.
// store_github_access_token is only included while the GitHub section is shown.
func (g GeneralSettings) ToConfigUpdate() *types.ConfigUpdate {
	mode := g.DefaultChatMode
	chat := g.Chat.ModelConfig()
	inline := g.InlineCompletion.ModelConfig()
	u := &types.ConfigUpdate{
		DefaultChatMode:       &mode,
		ChatModel:             &chat,
		InlineCompletionModel: &inline,
	}
	if g.ShowGitHubSection() {
		store := g.StoreGitHubAccessToken
		u.StoreGitHubAccessToken = &store
	}
	return u
}

// SaveMode decides when the form submits its state.
type SaveMode int

const (
	// SaveOnChange submits after every field change.
	SaveOnChange SaveMode = iota
	// SaveExplicit submits only when Save is called.
	SaveExplicit
)

func (m SaveMode) String() string {
	switch m {
	case SaveOnChange:
		return "on-change"
	case SaveExplicit:
		return "explicit"
	default:
		return "unknown"
	}
}

// Form wraps GeneralSettings with a save policy.
type Form struct {
	Mode     SaveMode
	Settings GeneralSettings

	// Dirty is set when the settings differ from the last loaded or submitted state.
	Dirty bool

	// baseline is the update matching the last loaded or submitted state.
	baseline *types.ConfigUpdate
}

// NewForm creates a clean form.
func NewForm(mode SaveMode, settings GeneralSettings) Form {
	return Form{Mode: mode, Settings: settings, baseline: settings.ToConfigUpdate()}
}

// Apply replaces the form settings. In SaveOnChange mode a changed form yields the
// update to submit right away; in SaveExplicit mode the form is marked dirty unless
// the edit returned it to its baseline.
func (f Form) Apply(next GeneralSettings) (Form, *types.ConfigUpdate) {
	update := next.ToConfigUpdate()
	if reflect.DeepEqual(f.Settings.ToConfigUpdate(), update) {
		f.Settings = next
		return f, nil
	}
	f.Settings = next
	if f.Mode == SaveOnChange {
		f.Dirty = false
		f.baseline = update
		return f, update
	}
	f.Dirty = !f.matchesBaseline(update)
	return f, nil
}

// Save returns the update for an explicit save. A clean form has nothing to submit.
func (f Form) Save() (Form, *types.ConfigUpdate) {
	if !f.Dirty {
		return f, nil
	}
	update := f.Settings.ToConfigUpdate()
	f.Dirty = false
	f.baseline = update
	return f, update
}

// Refresh picks up the model catalogs of a newer snapshot while keeping unsaved edits.
func (f Form) Refresh(cfg *types.Config) Form {
	f.Settings = f.Settings.Refresh(cfg)
	f.Dirty = !f.matchesBaseline(f.Settings.ToConfigUpdate())
	return f
}

// matchesBaseline reports whether update equals the last loaded or submitted state.
// A form built without NewForm has no baseline and never matches.
func (f Form) matchesBaseline(update *types.ConfigUpdate) bool {
	return f.baseline != nil && reflect.DeepEqual(f.baseline, update)
}

// Reset discards unsaved edits and reloads the form from a snapshot.
func (f Form) Reset(cfg *types.Config) Form {
	return NewForm(f.Mode, NewGeneralSettings(cfg))
}

// SelectProvider is a convenience transition for the provider dropdowns.
func (f Form) SelectProvider(cfg *types.Config, kind Kind, provider string) (Form, *types.ConfigUpdate) {
	catalog := cfg.ChatModels
	if kind == KindInlineCompletion {
		catalog = cfg.InlineCompletionModels
	}
	return f.Apply(f.Settings.WithSelection(f.Settings.Selection(kind).SelectProvider(catalog, provider)))
}

// SelectModel is a convenience transition for the model dropdowns.
func (f Form) SelectModel(kind Kind, id string) (Form, *types.ConfigUpdate) {
	return f.Apply(f.Settings.WithSelection(f.Settings.Selection(kind).SelectModel(id)))
}

// SetProperty is a convenience transition for the property inputs.
func (f Form) SetProperty(kind Kind, id, value string) (Form, *types.ConfigUpdate) {
	return f.Apply(f.Settings.WithSelection(f.Settings.Selection(kind).SetProperty(id, value)))
}

// SetDefaultChatMode changes the default chat mode.
func (f Form) SetDefaultChatMode(mode string) (Form, *types.ConfigUpdate) {
	next := f.Settings
	next.DefaultChatMode = mode
	return f.Apply(next)
}

// SetStoreGitHubAccessToken toggles remembering the GitHub access token.
func (f Form) SetStoreGitHubAccessToken(store bool) (Form, *types.ConfigUpdate) {
	next := f.Settings
	next.StoreGitHubAccessToken = store
	return f.Apply(next)
}
