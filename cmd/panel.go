package cmd

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/notebook-intelligence/nbi-settings/internal/modelselect"
	"github.com/notebook-intelligence/nbi-settings/internal/settingsync"
	"github.com/notebook-intelligence/nbi-settings/internal/ui"
)

var panelCmd = &cobra.Command{
	Use:   "panel",
	Short: "Open the interactive settings panel",
	Long: "Open the settings panel in the terminal.\n" +
		"The panel follows changes made elsewhere (e.g. in JupyterLab) through the server's change feed.\n" +
		"By default every change is saved right away; with --explicit-save changes are kept until you press 's'.",
	Args: cobra.NoArgs,
	RunE: runPanel,
	Annotations: map[string]string{
		"group": string(subCommandGroupBasic),
		"order": "5",
	},
}

var (
	panelCmdTab          string
	panelCmdExplicitSave bool
)

func init() {
	panelCmd.Flags().StringVar(
		&panelCmdTab,
		"tab",
		string(ui.TabGeneral),
		fmt.Sprintf("tab to open: %s or %s", ui.TabGeneral, ui.TabMCPServers),
	)
	panelCmd.Flags().BoolVar(&panelCmdExplicitSave, "explicit-save", false, "save general settings only on request")

	rootCmd.AddCommand(panelCmd)
}

func runPanel(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	inbox := ui.NewInbox()
	sync := settingsync.New(settingsync.Options{
		Service:  apiClient,
		Notifier: inbox,
		Logger:   logger,
	})
	defer sync.Close()

	events, err := apiClient.Subscribe(ctx)
	if err != nil {
		logger.Warn("live updates are unavailable", zap.Error(err))
	} else {
		go func() {
			_ = sync.Run(ctx, events)
		}()
	}

	mode := modelselect.SaveOnChange
	if panelCmdExplicitSave {
		mode = modelselect.SaveExplicit
	}
	panel := ui.NewSettingsPanel(ui.PanelOptions{
		Sync:    sync,
		Inbox:   inbox,
		Mode:    mode,
		Tab:     ui.Tab(panelCmdTab),
		Context: ctx,
	})

	p := tea.NewProgram(panel, tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil && ctx.Err() == nil {
		return fmt.Errorf("settings panel failed: %w", err)
	}
	return nil
}
