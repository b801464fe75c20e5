// Package ui renders the settings panel, the question dialog and assistant
// markdown for the terminal.
package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/notebook-intelligence/nbi-settings/internal/ui/style"
	"github.com/notebook-intelligence/nbi-settings/pkg/types"
)

// CheckBoxItem is a labelled checkbox. Header items are rendered bold.
type CheckBoxItem struct {
	Label   string
	Title   string
	Checked bool
	Header  bool
	Indent  int
	Focused bool
}

func (c CheckBoxItem) Render() string {
	box := style.CheckboxOff
	if c.Checked {
		box = style.CheckboxOn
	}
	label := c.Label
	if c.Header {
		label = style.HeaderCheckBoxStyle.Render(label)
	}
	line := strings.Repeat("  ", c.Indent) + cursor(c.Focused) + box + " " + label
	if c.Focused {
		line = style.FocusStyle.Render(line)
	}
	if c.Title != "" {
		line += "\n" + strings.Repeat("  ", c.Indent+2) + style.MutedStyle.Render(c.Title)
	}
	return line
}

// PillItem is a compact toggle, used for tools and prompts.
type PillItem struct {
	Label   string
	Title   string
	Checked bool
	Focused bool
}

func (p PillItem) Render() string {
	s := style.PillStyle
	if p.Checked {
		s = style.PillCheckedStyle
	}
	if p.Focused {
		s = s.BorderForeground(style.Accent).Bold(true)
	}
	label := p.Label
	if p.Checked {
		label = style.CheckboxOn + " " + label
	} else {
		label = style.CheckboxOff + " " + label
	}
	return s.Render(label)
}

// StatusIndicator renders the colored dot and label of an MCP server status.
func StatusIndicator(status types.ServerStatus) string {
	dot := lipgloss.NewStyle().Foreground(style.StatusColor(string(status))).Render(style.StatusDot)
	return dot + " " + style.MutedStyle.Render(string(status))
}

// pillRow lays pills out left to right, wrapping at width.
func pillRow(pills []string, indent, width int) string {
	if len(pills) == 0 {
		return ""
	}
	pad := strings.Repeat("  ", indent)
	var (
		rows    []string
		current []string
		used    int
	)
	for _, p := range pills {
		w := lipgloss.Width(p)
		if width > 0 && len(current) > 0 && used+w+1 > width-len(pad) {
			rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top, current...))
			current, used = nil, 0
		}
		if len(current) > 0 {
			current = append(current, " ")
			used++
		}
		current = append(current, p)
		used += w
	}
	rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top, current...))
	return lipgloss.NewStyle().MarginLeft(len(pad)).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

func cursor(focused bool) string {
	if focused {
		return style.Cursor + " "
	}
	return "  "
}
