package ui

import (
	"strings"

	"github.com/notebook-intelligence/nbi-settings/internal/settingsync"
	"github.com/notebook-intelligence/nbi-settings/internal/ui/style"
)

// NoMCPServersMessage is shown when the catalog is empty.
const NoMCPServersMessage = "No MCP servers found. Add MCP servers in the configuration file."

// MCPItem is a focusable row of the MCP servers tab.
type MCPItem struct {
	ServerID string
	// Tool is empty for the server checkbox itself.
	Tool string
}

// MCPItems lists the toggleable items in render order. Tools of a disabled server
// are hidden and therefore not listed.
func MCPItems(v settingsync.View) []MCPItem {
	if v.Config == nil {
		return nil
	}
	var items []MCPItem
	for _, server := range v.Config.McpServers {
		items = append(items, MCPItem{ServerID: server.ID})
		if !v.State.IsServerEnabled(server.ID) {
			continue
		}
		for _, tool := range server.Tools {
			items = append(items, MCPItem{ServerID: server.ID, Tool: tool.Name})
		}
	}
	return items
}

// RenderMCPServers renders the MCP server list with the item at focus highlighted.
// A negative focus highlights nothing.
func RenderMCPServers(v settingsync.View, focus, width int) string {
	var b strings.Builder
	b.WriteString(style.SectionHeaderStyle.Render("MCP Servers"))
	b.WriteString("\n")

	if v.Config == nil {
		b.WriteString(style.MutedStyle.Render("Loading..."))
		return b.String()
	}
	if len(v.Config.McpServers) == 0 {
		b.WriteString(NoMCPServersMessage)
		return b.String()
	}

	idx := 0
	for _, server := range v.Config.McpServers {
		enabled := v.State.IsServerEnabled(server.ID)
		box := CheckBoxItem{
			Label:   server.ID,
			Checked: enabled,
			Header:  true,
			Focused: idx == focus,
		}
		idx++
		b.WriteString(box.Render() + "  " + StatusIndicator(server.Status) + "\n")
		if !enabled {
			continue
		}

		if len(server.Tools) > 0 {
			pills := make([]string, len(server.Tools))
			for i, tool := range server.Tools {
				pills[i] = PillItem{
					Label:   tool.Name,
					Title:   tool.Description,
					Checked: v.State.IsToolEnabled(server.ID, tool.Name),
					Focused: idx == focus,
				}.Render()
				idx++
			}
			b.WriteString("    " + style.MutedStyle.Render("Tools") + "\n")
			b.WriteString(pillRow(pills, 2, width) + "\n")
		}
		if len(server.Prompts) > 0 {
			pills := make([]string, len(server.Prompts))
			for i, prompt := range server.Prompts {
				// prompts cannot be switched off individually
				pills[i] = PillItem{Label: prompt.Name, Title: prompt.Description, Checked: true}.Render()
			}
			b.WriteString("    " + style.MutedStyle.Render("Prompts") + "\n")
			b.WriteString(pillRow(pills, 2, width) + "\n")
		}
	}
	return strings.TrimRight(b.String(), "\n")
}
