package ui

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/notebook-intelligence/nbi-settings/internal/modelselect"
	"github.com/notebook-intelligence/nbi-settings/internal/ui/style"
	"github.com/notebook-intelligence/nbi-settings/pkg/types"
)

// OllamaWarningMessage is shown when the Ollama provider is selected but no model was found.
const OllamaWarningMessage = "No Ollama models found! Make sure Ollama is running and models are downloaded to your computer. Try again once ready."

// ConfigFileName is the settings file shown in the config file path section.
const ConfigFileName = "config.json"

// GeneralFieldKind identifies what a focusable row of the general tab edits.
type GeneralFieldKind int

const (
	FieldChatMode GeneralFieldKind = iota
	FieldProvider
	FieldModel
	FieldProperty
	FieldStoreGitHubAccessToken
)

// GeneralField is a focusable row of the general tab.
type GeneralField struct {
	Kind GeneralFieldKind
	// Selection is the picker the row belongs to, for provider, model and property rows.
	Selection  modelselect.Kind
	PropertyID string
}

// GeneralFields lists the focusable rows in render order.
func GeneralFields(form modelselect.Form) []GeneralField {
	fields := []GeneralField{{Kind: FieldChatMode}}
	for _, kind := range []modelselect.Kind{modelselect.KindChat, modelselect.KindInlineCompletion} {
		sel := form.Settings.Selection(kind)
		fields = append(fields, GeneralField{Kind: FieldProvider, Selection: kind})
		if sel.Visibility().ModelDropdown {
			fields = append(fields, GeneralField{Kind: FieldModel, Selection: kind})
		}
		for _, p := range sel.Properties {
			fields = append(fields, GeneralField{Kind: FieldProperty, Selection: kind, PropertyID: p.ID})
		}
	}
	if form.Settings.ShowGitHubSection() {
		fields = append(fields, GeneralField{Kind: FieldStoreGitHubAccessToken})
	}
	return fields
}

// GeneralViewState is the transient state of the general tab.
type GeneralViewState struct {
	Focus int
	// Editor replaces the value of the focused property row while it is being edited.
	Editor string
}

// ProviderOptions returns the provider choices offered for a picker, "none" last.
func ProviderOptions(cfg *types.Config) []types.LLMProvider {
	opts := make([]types.LLMProvider, 0, len(cfg.LLMProviders)+1)
	opts = append(opts, cfg.LLMProviders...)
	return append(opts, types.LLMProvider{ID: modelselect.ProviderNone, Name: "None"})
}

// providerName resolves the display name of a provider; unknown providers show as None.
func providerName(cfg *types.Config, id string) string {
	for _, p := range cfg.LLMProviders {
		if p.ID == id {
			return p.Name
		}
	}
	return "None"
}

func modelName(sel modelselect.Selection) string {
	for _, m := range sel.Models {
		if m.ID == sel.Model {
			return m.Name
		}
	}
	return sel.Model
}

// RenderGeneralSettings renders the general tab of the settings panel.
func RenderGeneralSettings(form modelselect.Form, cfg *types.Config, vs GeneralViewState) string {
	if cfg == nil {
		return style.MutedStyle.Render("Loading...")
	}

	fields := GeneralFields(form)
	focused := func(f GeneralField) bool {
		return vs.Focus >= 0 && vs.Focus < len(fields) && fields[vs.Focus] == f
	}

	var b strings.Builder
	section := func(title string) {
		b.WriteString(style.SectionHeaderStyle.Render(title) + "\n")
	}

	section("Default chat mode")
	mode := "Ask"
	if form.Settings.DefaultChatMode == types.ChatModeAgent {
		mode = "Agent"
	}
	b.WriteString(choiceRow("", mode, focused(GeneralField{Kind: FieldChatMode})) + "\n")

	for _, kind := range []modelselect.Kind{modelselect.KindChat, modelselect.KindInlineCompletion} {
		title := "Chat model"
		if kind == modelselect.KindInlineCompletion {
			title = "Auto-complete model"
		}
		section(title)

		sel := form.Settings.Selection(kind)
		vis := sel.Visibility()
		b.WriteString(choiceRow("Provider", providerName(cfg, sel.Provider), focused(GeneralField{Kind: FieldProvider, Selection: kind})) + "\n")
		switch {
		case vis.ModelDropdown:
			b.WriteString(choiceRow("Model", modelName(sel), focused(GeneralField{Kind: FieldModel, Selection: kind})) + "\n")
		case vis.ModelIDRow:
			b.WriteString("  " + fieldLabel("Model") + style.MutedStyle.Render("set by the model id below") + "\n")
		}
		if vis.OllamaWarning {
			b.WriteString("  " + style.WarningStyle.Render(OllamaWarningMessage) + "\n")
		}
		for _, p := range sel.Properties {
			f := GeneralField{Kind: FieldProperty, Selection: kind, PropertyID: p.ID}
			label := p.Name
			if p.Optional {
				label += " (optional)"
			}
			value := p.Value
			if value == "" {
				value = style.MutedStyle.Render(p.Description)
			}
			if focused(f) && vs.Editor != "" {
				value = vs.Editor
			}
			b.WriteString(textRow(label, value, focused(f)) + "\n")
		}
	}

	if form.Settings.ShowGitHubSection() {
		section("GitHub Copilot login")
		box := CheckBoxItem{
			Label:   "Remember my GitHub Copilot access token",
			Checked: form.Settings.StoreGitHubAccessToken,
			Focused: focused(GeneralField{Kind: FieldStoreGitHubAccessToken}),
		}
		b.WriteString(box.Render() + "\n")
	}

	section("Config file path")
	b.WriteString("  " + filepath.Join(cfg.UserConfigDir, ConfigFileName) + "\n")

	if form.Mode == modelselect.SaveExplicit && form.Dirty {
		b.WriteString(style.FooterStyle.Render("Unsaved changes") + "\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func fieldLabel(label string) string {
	if label == "" {
		return ""
	}
	return style.MutedStyle.Render(fmt.Sprintf("%-10s", label)) + " "
}

func choiceRow(label, value string, focused bool) string {
	if focused {
		return cursor(true) + fieldLabel(label) + style.FocusStyle.Render("‹ "+value+" ›")
	}
	return cursor(false) + fieldLabel(label) + value
}

func textRow(label, value string, focused bool) string {
	head := cursor(false) + style.MutedStyle.Render(label)
	if focused {
		head = style.FocusStyle.Render(cursor(true) + label)
	}
	return head + "\n    " + value
}
