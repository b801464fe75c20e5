package ui

import (
	"context"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/notebook-intelligence/nbi-settings/internal/modelselect"
	"github.com/notebook-intelligence/nbi-settings/internal/settingsync"
	"github.com/notebook-intelligence/nbi-settings/internal/ui/style"
	"github.com/notebook-intelligence/nbi-settings/pkg/types"
)

// Tab is a page of the settings panel.
type Tab string

const (
	TabGeneral    Tab = "general"
	TabMCPServers Tab = "mcp-servers"
)

func (t Tab) title() string {
	if t == TabMCPServers {
		return "MCP Servers"
	}
	return "General"
}

// PanelOptions configures a SettingsPanel.
type PanelOptions struct {
	Sync *settingsync.Synchronizer
	// Inbox must be the notifier the synchronizer was created with.
	Inbox *Inbox
	Mode  modelselect.SaveMode
	Tab   Tab
	// Context bounds the service calls issued by the panel.
	Context context.Context
}

// SettingsPanel is the terminal settings dialog.
type SettingsPanel struct {
	ctx   context.Context
	sync  *settingsync.Synchronizer
	inbox *Inbox

	tab  Tab
	view settingsync.View

	form      modelselect.Form
	formReady bool
	// formRevision is the config revision the form was last loaded from.
	formRevision uint64
	mode         modelselect.SaveMode
	general      GeneralViewState
	editing      bool
	editor       textinput.Model

	mcpFocus int
	width    int

	notice *settingsync.Notice
}

// NewSettingsPanel creates the panel and subscribes it to the synchronizer's views.
func NewSettingsPanel(opts PanelOptions) SettingsPanel {
	ctx := opts.Context
	if ctx == nil {
		ctx = context.Background()
	}
	tab := opts.Tab
	if tab != TabMCPServers {
		tab = TabGeneral
	}
	opts.Sync.OnChange(opts.Inbox.PushView)

	editor := textinput.New()
	editor.Prompt = ""

	return SettingsPanel{
		ctx:    ctx,
		sync:   opts.Sync,
		inbox:  opts.Inbox,
		tab:    tab,
		mode:   opts.Mode,
		editor: editor,
		width:  80,
	}
}

func (p SettingsPanel) Init() tea.Cmd {
	return tea.Batch(p.inbox.wait(), p.run(p.sync.Load))
}

// run executes a synchronizer call off the UI loop. Failures are reported by the
// synchronizer through the inbox.
func (p SettingsPanel) run(call func(context.Context) error) tea.Cmd {
	ctx := p.ctx
	return func() tea.Msg {
		_ = call(ctx)
		return nil
	}
}

func (p SettingsPanel) runWithNotice(call func(context.Context) error, done string) tea.Cmd {
	ctx := p.ctx
	return func() tea.Msg {
		if err := call(ctx); err != nil {
			return nil
		}
		return noticeMsg{Level: settingsync.LevelInfo, Message: done}
	}
}

func (p SettingsPanel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case viewMsg:
		p.applyView(settingsync.View(msg))
		return p, p.inbox.wait()

	case noticeMsg:
		n := settingsync.Notice(msg)
		p.notice = &n
		return p, p.inbox.wait()

	case tea.WindowSizeMsg:
		p.width = msg.Width
		return p, nil

	case tea.KeyMsg:
		if p.editing {
			return p.updateEditor(msg)
		}
		return p.handleKey(msg.String())
	}
	return p, nil
}

// applyView takes a new snapshot. The form is reloaded only from a newer revision.
// A form holding unsaved explicit edits only picks up the new model catalogs.
func (p *SettingsPanel) applyView(v settingsync.View) {
	p.view = v
	if v.Config == nil {
		return
	}
	switch {
	case !p.formReady:
		p.form = modelselect.NewForm(p.mode, modelselect.NewGeneralSettings(v.Config))
		p.formReady = true
		p.formRevision = v.Config.Revision
	case v.Config.Revision == p.formRevision:
	case p.form.Mode == modelselect.SaveExplicit && p.form.Dirty:
		p.form = p.form.Refresh(v.Config)
		p.formRevision = v.Config.Revision
	default:
		p.form = p.form.Reset(v.Config)
		p.formRevision = v.Config.Revision
	}
	p.general.Focus = clamp(p.general.Focus, len(GeneralFields(p.form)))
	p.mcpFocus = clamp(p.mcpFocus, len(MCPItems(v)))
}

func (p SettingsPanel) handleKey(key string) (tea.Model, tea.Cmd) {
	switch key {
	case "q", "ctrl+c":
		return p, tea.Quit
	case "tab", "shift+tab":
		if p.tab == TabGeneral {
			p.tab = TabMCPServers
		} else {
			p.tab = TabGeneral
		}
		return p, nil
	case "up", "k":
		p.moveFocus(-1)
		return p, nil
	case "down", "j":
		p.moveFocus(1)
		return p, nil
	case "r":
		return p, p.runWithNotice(p.sync.ReloadServers, "MCP servers reloaded")
	case "R":
		return p, p.runWithNotice(p.sync.ReloadServerList, "MCP server list reloaded")
	case "o":
		return p, p.runWithNotice(p.sync.RefreshOllamaModels, "Ollama model list updated")
	}

	if p.view.Config == nil {
		return p, nil
	}
	if p.tab == TabMCPServers {
		if key == " " || key == "enter" {
			return p, p.toggleMCPItem()
		}
		return p, nil
	}

	switch key {
	case " ", "enter":
		return p.activateField()
	case "left", "h":
		return p.cycleField(-1)
	case "right", "l":
		return p.cycleField(1)
	case "s":
		var update *types.ConfigUpdate
		p.form, update = p.form.Save()
		return p, p.save(update)
	case "esc":
		p.form = p.form.Reset(p.view.Config)
		p.general.Focus = clamp(p.general.Focus, len(GeneralFields(p.form)))
		return p, nil
	}
	return p, nil
}

func (p *SettingsPanel) moveFocus(delta int) {
	if p.tab == TabMCPServers {
		p.mcpFocus = wrap(p.mcpFocus+delta, len(MCPItems(p.view)))
		return
	}
	if !p.formReady {
		return
	}
	p.general.Focus = wrap(p.general.Focus+delta, len(GeneralFields(p.form)))
}

func (p SettingsPanel) toggleMCPItem() tea.Cmd {
	items := MCPItems(p.view)
	if p.mcpFocus < 0 || p.mcpFocus >= len(items) {
		return nil
	}
	item := items[p.mcpFocus]
	state := p.view.State
	if item.Tool == "" {
		enabled := !state.IsServerEnabled(item.ServerID)
		return p.run(func(ctx context.Context) error {
			return p.sync.SetServerEnabled(ctx, item.ServerID, enabled)
		})
	}
	enabled := !state.IsToolEnabled(item.ServerID, item.Tool)
	return p.run(func(ctx context.Context) error {
		return p.sync.SetToolEnabled(ctx, item.ServerID, item.Tool, enabled)
	})
}

func (p SettingsPanel) focusedField() (GeneralField, bool) {
	if !p.formReady {
		return GeneralField{}, false
	}
	fields := GeneralFields(p.form)
	if p.general.Focus < 0 || p.general.Focus >= len(fields) {
		return GeneralField{}, false
	}
	return fields[p.general.Focus], true
}

func (p SettingsPanel) activateField() (tea.Model, tea.Cmd) {
	f, ok := p.focusedField()
	if !ok {
		return p, nil
	}
	switch f.Kind {
	case FieldProperty:
		prop, _ := p.form.Settings.Selection(f.Selection).Property(f.PropertyID)
		p.editing = true
		p.editor.SetValue(prop.Value)
		p.editor.CursorEnd()
		p.general.Editor = p.editor.View()
		return p, p.editor.Focus()
	case FieldStoreGitHubAccessToken:
		var update *types.ConfigUpdate
		p.form, update = p.form.SetStoreGitHubAccessToken(!p.form.Settings.StoreGitHubAccessToken)
		return p, p.save(update)
	}
	return p.cycleField(1)
}

func (p SettingsPanel) cycleField(delta int) (tea.Model, tea.Cmd) {
	f, ok := p.focusedField()
	if !ok {
		return p, nil
	}
	cfg := p.view.Config
	var update *types.ConfigUpdate

	switch f.Kind {
	case FieldChatMode:
		mode := types.ChatModeAgent
		if p.form.Settings.DefaultChatMode == types.ChatModeAgent {
			mode = types.ChatModeAsk
		}
		p.form, update = p.form.SetDefaultChatMode(mode)
	case FieldProvider:
		opts := ProviderOptions(cfg)
		current := p.form.Settings.Selection(f.Selection).Provider
		idx := 0
		for i, o := range opts {
			if o.ID == current {
				idx = i
				break
			}
		}
		next := opts[wrap(idx+delta, len(opts))]
		p.form, update = p.form.SelectProvider(cfg, f.Selection, next.ID)
	case FieldModel:
		sel := p.form.Settings.Selection(f.Selection)
		if len(sel.Models) == 0 {
			return p, nil
		}
		idx := 0
		for i, m := range sel.Models {
			if m.ID == sel.Model {
				idx = i
				break
			}
		}
		next := sel.Models[wrap(idx+delta, len(sel.Models))]
		p.form, update = p.form.SelectModel(f.Selection, next.ID)
	case FieldStoreGitHubAccessToken:
		p.form, update = p.form.SetStoreGitHubAccessToken(!p.form.Settings.StoreGitHubAccessToken)
	default:
		return p, nil
	}
	p.general.Focus = clamp(p.general.Focus, len(GeneralFields(p.form)))
	return p, p.save(update)
}

func (p SettingsPanel) updateEditor(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		p.editing = false
		p.editor.Blur()
		p.general.Editor = ""
		f, ok := p.focusedField()
		if !ok || f.Kind != FieldProperty {
			return p, nil
		}
		var update *types.ConfigUpdate
		p.form, update = p.form.SetProperty(f.Selection, f.PropertyID, p.editor.Value())
		return p, p.save(update)
	case "esc":
		p.editing = false
		p.editor.Blur()
		p.general.Editor = ""
		return p, nil
	}
	var cmd tea.Cmd
	p.editor, cmd = p.editor.Update(msg)
	p.general.Editor = p.editor.View()
	return p, cmd
}

// save submits a form update; nil updates are skipped.
func (p SettingsPanel) save(update *types.ConfigUpdate) tea.Cmd {
	if update == nil {
		return nil
	}
	return p.run(func(ctx context.Context) error {
		return p.sync.SaveGeneral(ctx, update)
	})
}

func (p SettingsPanel) View() string {
	var b strings.Builder

	tabs := make([]string, 0, 2)
	for _, t := range []Tab{TabGeneral, TabMCPServers} {
		if t == p.tab {
			tabs = append(tabs, style.ActiveTabStyle.Render(t.title()))
		} else {
			tabs = append(tabs, style.TabStyle.Render(t.title()))
		}
	}
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, tabs...) + "\n\n")

	if p.tab == TabMCPServers {
		b.WriteString(RenderMCPServers(p.view, p.mcpFocus, p.width))
	} else {
		b.WriteString(RenderGeneralSettings(p.form, p.view.Config, p.general))
	}
	b.WriteString("\n")

	if p.notice != nil {
		s := style.InfoStyle
		if p.notice.Level == settingsync.LevelError {
			s = style.ErrorStyle
		}
		b.WriteString("\n" + s.Render(p.notice.Message) + "\n")
	}
	b.WriteString("\n" + style.FooterStyle.Render(p.help()))
	return b.String()
}

func (p SettingsPanel) help() string {
	if p.editing {
		return "enter apply • esc cancel"
	}
	if p.tab == TabMCPServers {
		return "tab switch • ↑/↓ move • space toggle • r reload servers • R reload list • q quit"
	}
	keys := "tab switch • ↑/↓ move • ←/→ change • enter edit • o refresh ollama"
	if p.form.Mode == modelselect.SaveExplicit {
		keys += " • s save • esc discard"
	}
	return keys + " • q quit"
}

// Tab returns the active tab.
func (p SettingsPanel) Tab() Tab { return p.tab }

// Form returns the general settings form state.
func (p SettingsPanel) Form() modelselect.Form { return p.form }

// Notice returns the last notice shown, if any.
func (p SettingsPanel) Notice() *settingsync.Notice { return p.notice }

func clamp(i, n int) int {
	if n == 0 || i < 0 {
		return 0
	}
	if i >= n {
		return n - 1
	}
	return i
}

func wrap(i, n int) int {
	if n == 0 {
		return 0
	}
	return ((i % n) + n) % n
}
