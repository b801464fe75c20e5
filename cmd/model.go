package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/notebook-intelligence/nbi-settings/internal/modelselect"
	"github.com/notebook-intelligence/nbi-settings/internal/ui"
	"github.com/notebook-intelligence/nbi-settings/pkg/types"
)

var modelCmd = &cobra.Command{
	Use:   "model",
	Short: "Choose the chat and auto-complete models",
	Annotations: map[string]string{
		"group": string(subCommandGroupBasic),
		"order": "4",
	},
}

var modelProvidersCmd = &cobra.Command{
	Use:   "providers",
	Short: "List the model providers and their models",
	Args:  cobra.NoArgs,
	RunE:  runModelProviders,
}

var modelSetCmd = &cobra.Command{
	Use:   "set <chat|inline-completion>",
	Short: "Set the provider, model and model properties",
	Long: "Set the provider and model used for chat or for inline completion (auto-complete).\n" +
		"Model properties such as API keys or base URLs are given as --property id=value.\n\n" +
		"Examples:\n" +
		"  nbi-settings model set chat --provider github-copilot --model gpt-4o\n" +
		"  nbi-settings model set inline-completion --provider openai-compatible --property api_key=sk-...",
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{string(modelselect.KindChat), string(modelselect.KindInlineCompletion)},
	RunE:      runModelSet,
}

var modelChatModeCmd = &cobra.Command{
	Use:       "chat-mode <ask|agent>",
	Short:     "Set the default chat mode",
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{types.ChatModeAsk, types.ChatModeAgent},
	RunE:      runModelChatMode,
}

var modelRefreshOllamaCmd = &cobra.Command{
	Use:   "refresh-ollama",
	Short: "Refresh the list of models served by Ollama",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		sync, err := loadSynchronizer(cmd)
		if err != nil {
			return err
		}
		defer sync.Close()
		if err := sync.RefreshOllamaModels(cmd.Context()); err != nil {
			return err
		}
		n := 0
		for _, m := range sync.View().Config.ChatModels {
			if m.Provider == modelselect.ProviderOllama {
				n++
			}
		}
		if n == 0 {
			cmd.Println(ui.OllamaWarningMessage)
			return nil
		}
		cmd.Printf("Found %d Ollama models\n", n)
		return nil
	},
}

var (
	modelSetCmdProvider   string
	modelSetCmdModel      string
	modelSetCmdProperties []string
)

func init() {
	modelSetCmd.Flags().StringVar(&modelSetCmdProvider, "provider", "", "provider id, see 'model providers'")
	modelSetCmd.Flags().StringVar(&modelSetCmdModel, "model", "", "model id of the provider")
	modelSetCmd.Flags().StringArrayVar(
		&modelSetCmdProperties,
		"property",
		nil,
		"model property as id=value, can be repeated",
	)

	modelCmd.AddCommand(modelProvidersCmd)
	modelCmd.AddCommand(modelSetCmd)
	modelCmd.AddCommand(modelChatModeCmd)
	modelCmd.AddCommand(modelRefreshOllamaCmd)

	rootCmd.AddCommand(modelCmd)
}

func runModelProviders(cmd *cobra.Command, args []string) error {
	cfg, err := apiClient.GetConfig(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to get config: %w", err)
	}
	for _, p := range cfg.LLMProviders {
		cmd.Printf("%s (%s)\n", p.Name, p.ID)
		printModels(cmd, "chat", cfg.ChatModels, p.ID)
		printModels(cmd, "inline-completion", cfg.InlineCompletionModels, p.ID)
	}
	return nil
}

func printModels(cmd *cobra.Command, kind string, catalog []types.Model, provider string) {
	for _, m := range catalog {
		if m.Provider != provider {
			continue
		}
		cmd.Printf("    %-18s %s (%s)\n", kind, m.Name, m.ID)
		for _, prop := range m.Properties {
			opt := ""
			if prop.Optional {
				opt = ", optional"
			}
			cmd.Printf("        --property %s=...   %s%s\n", prop.ID, prop.Name, opt)
		}
	}
}

func parseKind(s string) (modelselect.Kind, error) {
	switch s {
	case string(modelselect.KindChat):
		return modelselect.KindChat, nil
	case string(modelselect.KindInlineCompletion), "auto-complete":
		return modelselect.KindInlineCompletion, nil
	default:
		return "", fmt.Errorf("unknown model kind '%s', expected 'chat' or 'inline-completion'", s)
	}
}

// parseProperty splits an id=value flag.
func parseProperty(s string) (string, string, error) {
	id, value, ok := strings.Cut(s, "=")
	id = strings.TrimSpace(id)
	if !ok || id == "" {
		return "", "", fmt.Errorf("invalid property '%s', expected id=value", s)
	}
	return id, value, nil
}

// applyModelChoice runs the requested changes through an explicit-save form and
// returns the update to submit, or nil when nothing changed.
func applyModelChoice(
	cfg *types.Config,
	kind modelselect.Kind,
	provider, model string,
	properties []string,
) (*types.ConfigUpdate, error) {
	form := modelselect.NewForm(modelselect.SaveExplicit, modelselect.NewGeneralSettings(cfg))

	if provider != "" {
		known := false
		for _, p := range ui.ProviderOptions(cfg) {
			if p.ID == provider {
				known = true
				break
			}
		}
		if !known {
			return nil, fmt.Errorf("unknown provider '%s'", provider)
		}
		form, _ = form.SelectProvider(cfg, kind, provider)
	}

	if model != "" {
		sel := form.Settings.Selection(kind)
		found := false
		for _, m := range sel.Models {
			if m.ID == model {
				found = true
				break
			}
		}
		if !found {
			return nil, fmt.Errorf("provider '%s' has no %s model '%s'", sel.Provider, kind, model)
		}
		form, _ = form.SelectModel(kind, model)
	}

	for _, p := range properties {
		id, value, err := parseProperty(p)
		if err != nil {
			return nil, err
		}
		if _, ok := form.Settings.Selection(kind).Property(id); !ok {
			return nil, fmt.Errorf("the selected model has no property '%s'", id)
		}
		form, _ = form.SetProperty(kind, id, value)
	}

	_, update := form.Save()
	return update, nil
}

func runModelSet(cmd *cobra.Command, args []string) error {
	kind, err := parseKind(args[0])
	if err != nil {
		return err
	}
	if modelSetCmdProvider == "" && modelSetCmdModel == "" && len(modelSetCmdProperties) == 0 {
		return fmt.Errorf("nothing to set, use --provider, --model or --property")
	}

	sync, err := loadSynchronizer(cmd)
	if err != nil {
		return err
	}
	defer sync.Close()

	update, err := applyModelChoice(sync.View().Config, kind, modelSetCmdProvider, modelSetCmdModel, modelSetCmdProperties)
	if err != nil {
		return err
	}
	if update == nil {
		cmd.Println("Nothing changed")
		return nil
	}
	if err := sync.SaveGeneral(cmd.Context(), update); err != nil {
		return err
	}

	mc := update.ChatModel
	if kind == modelselect.KindInlineCompletion {
		mc = update.InlineCompletionModel
	}
	cmd.Printf("%s model set to %s\n", kind, formatModelConfig(*mc))
	return nil
}

func runModelChatMode(cmd *cobra.Command, args []string) error {
	mode := args[0]
	if mode != types.ChatModeAsk && mode != types.ChatModeAgent {
		return fmt.Errorf("invalid chat mode '%s', expected 'ask' or 'agent'", mode)
	}
	sync, err := loadSynchronizer(cmd)
	if err != nil {
		return err
	}
	defer sync.Close()

	form := modelselect.NewForm(modelselect.SaveOnChange, modelselect.NewGeneralSettings(sync.View().Config))
	_, update := form.SetDefaultChatMode(mode)
	if update == nil {
		cmd.Printf("Default chat mode is already %s\n", mode)
		return nil
	}
	if err := sync.SaveGeneral(cmd.Context(), update); err != nil {
		return err
	}
	cmd.Printf("Default chat mode set to %s\n", mode)
	return nil
}
