package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/notebook-intelligence/nbi-settings/internal/mcpstate"
	"github.com/notebook-intelligence/nbi-settings/internal/settingsync"
	"github.com/notebook-intelligence/nbi-settings/internal/ui"
	"github.com/notebook-intelligence/nbi-settings/pkg/types"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Manage MCP servers and their tools",
	Annotations: map[string]string{
		"group": string(subCommandGroupBasic),
		"order": "3",
	},
}

var mcpListCmd = &cobra.Command{
	Use:   "list",
	Short: "List MCP servers, their status and their tools",
	Args:  cobra.NoArgs,
	RunE:  runMcpList,
}

var mcpEnableCmd = &cobra.Command{
	Use:   "enable <server> [tool...]",
	Short: "Enable an MCP server or some of its tools",
	Long: "Enable an MCP server for the assistant.\n" +
		"If tool names are given, only those tools are enabled. The server must already be enabled.\n" +
		"Enabling a server turns all of its tools on.",
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runMcpToggle(cmd, args, true)
	},
}

var mcpDisableCmd = &cobra.Command{
	Use:   "disable <server> [tool...]",
	Short: "Disable an MCP server or some of its tools",
	Long: "Disable an MCP server for the assistant.\n" +
		"If tool names are given, only those tools are disabled and the server stays enabled.",
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runMcpToggle(cmd, args, false)
	},
}

var mcpReloadCmd = &cobra.Command{
	Use:   "reload",
	Short: "Reconnect to all MCP servers and refresh their tools",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		sync, err := loadSynchronizer(cmd)
		if err != nil {
			return err
		}
		defer sync.Close()
		if err := sync.ReloadServers(cmd.Context()); err != nil {
			return err
		}
		printMcpServers(cmd, sync.View(), true)
		return nil
	},
}

var mcpReloadListCmd = &cobra.Command{
	Use:   "reload-list",
	Short: "Re-read mcp.json without connecting to the servers",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		sync, err := loadSynchronizer(cmd)
		if err != nil {
			return err
		}
		defer sync.Close()
		if err := sync.ReloadServerList(cmd.Context()); err != nil {
			return err
		}
		printMcpServers(cmd, sync.View(), true)
		return nil
	},
}

func init() {
	mcpCmd.AddCommand(mcpListCmd)
	mcpCmd.AddCommand(mcpEnableCmd)
	mcpCmd.AddCommand(mcpDisableCmd)
	mcpCmd.AddCommand(mcpReloadCmd)
	mcpCmd.AddCommand(mcpReloadListCmd)

	rootCmd.AddCommand(mcpCmd)
}

// loadSynchronizer creates a Synchronizer over the API client and loads the config.
// Error notices are printed to stderr.
func loadSynchronizer(cmd *cobra.Command) (*settingsync.Synchronizer, error) {
	sync := settingsync.New(settingsync.Options{
		Service: apiClient,
		Logger:  logger,
		Notifier: settingsync.NotifierFunc(func(n settingsync.Notice) {
			if n.Level == settingsync.LevelError {
				cmd.PrintErrln(n.Message)
			}
		}),
	})
	if err := sync.Load(cmd.Context()); err != nil {
		sync.Close()
		return nil, err
	}
	return sync, nil
}

func stateOf(cfg *types.Config) mcpstate.EnabledState {
	return mcpstate.ToEnabledState(cfg.McpServers, cfg.McpServerSettings)
}

func runMcpList(cmd *cobra.Command, args []string) error {
	sync, err := loadSynchronizer(cmd)
	if err != nil {
		return err
	}
	defer sync.Close()
	printMcpServers(cmd, sync.View(), true)
	return nil
}

func printMcpServers(cmd *cobra.Command, v settingsync.View, withTools bool) {
	if len(v.Config.McpServers) == 0 {
		cmd.Println(ui.NoMCPServersMessage)
		return
	}
	for _, s := range v.Config.McpServers {
		enabled := v.State.IsServerEnabled(s.ID)
		cmd.Printf("%s %s (%s)\n", checkbox(enabled), s.ID, s.Status)
		if !withTools || !enabled {
			continue
		}
		for _, t := range s.Tools {
			cmd.Printf("    %s %s\n", checkbox(v.State.IsToolEnabled(s.ID, t.Name)), t.Name)
		}
		for _, p := range s.Prompts {
			cmd.Printf("    %s %s (prompt)\n", checkbox(true), p.Name)
		}
	}
}

func checkbox(on bool) string {
	if on {
		return "[x]"
	}
	return "[ ]"
}

func runMcpToggle(cmd *cobra.Command, args []string, enabled bool) error {
	sync, err := loadSynchronizer(cmd)
	if err != nil {
		return err
	}
	defer sync.Close()

	id, tools := args[0], args[1:]
	server, ok := sync.View().Config.FindMcpServer(id)
	if !ok {
		return fmt.Errorf("MCP server '%s' not found", id)
	}

	if len(tools) == 0 {
		if err := sync.SetServerEnabled(cmd.Context(), id, enabled); err != nil {
			return err
		}
		logger.Info("updated MCP server", zap.String("server", id), zap.Bool("enabled", enabled))
		cmd.Printf("MCP server '%s' %s\n", id, enabledWord(enabled))
		return nil
	}

	for _, tool := range tools {
		if !server.HasTool(tool) {
			return fmt.Errorf("MCP server '%s' has no tool '%s'", id, tool)
		}
		err := sync.SetToolEnabled(cmd.Context(), id, tool, enabled)
		if errors.Is(err, mcpstate.ErrServerDisabled) {
			return fmt.Errorf("MCP server '%s' is disabled, enable it first", id)
		}
		if err != nil {
			return err
		}
		cmd.Printf("Tool '%s' of MCP server '%s' %s\n", tool, id, enabledWord(enabled))
	}
	return nil
}

func enabledWord(enabled bool) string {
	if enabled {
		return "enabled"
	}
	return "disabled"
}
