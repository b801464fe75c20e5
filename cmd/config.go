package cmd

import (
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/notebook-intelligence/nbi-settings/internal/settingsync"
	"github.com/notebook-intelligence/nbi-settings/internal/ui"
	"github.com/notebook-intelligence/nbi-settings/pkg/types"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect the configuration",
	Annotations: map[string]string{
		"group": string(subCommandGroupBasic),
		"order": "2",
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the current configuration",
	Long: "Show the configuration held by the nbi-settings server: default chat mode, the chat and\n" +
		"auto-complete models and the MCP servers.\n" +
		"Use --json to print the complete snapshot, including the model catalogs.",
	Args: cobra.NoArgs,
	RunE: runConfigShow,
}

var configShowCmdJSON bool

func init() {
	configShowCmd.Flags().BoolVar(&configShowCmdJSON, "json", false, "print the full configuration as JSON")

	configCmd.AddCommand(configShowCmd)
	rootCmd.AddCommand(configCmd)
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, err := apiClient.GetConfig(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to get config: %w", err)
	}

	if configShowCmdJSON {
		out, err := json.MarshalIndent(cfg, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to encode config: %w", err)
		}
		cmd.Println(string(out))
		return nil
	}

	cmd.Printf("Revision:            %d\n", cfg.Revision)
	cmd.Printf("Default chat mode:   %s\n", cfg.DefaultChatMode)
	cmd.Printf("Chat model:          %s\n", formatModelConfig(cfg.ChatModel))
	cmd.Printf("Auto-complete model: %s\n", formatModelConfig(cfg.InlineCompletionModel))
	cmd.Printf("Config file:         %s\n", filepath.Join(cfg.UserConfigDir, ui.ConfigFileName))

	cmd.Println()
	printMcpServers(cmd, settingsync.View{Config: cfg, State: stateOf(cfg)}, false)
	return nil
}

func formatModelConfig(m types.ModelConfig) string {
	if m.Provider == "" || m.Provider == "none" {
		return "none"
	}
	if m.Model == "" {
		return m.Provider
	}
	return m.Provider + " / " + m.Model
}
