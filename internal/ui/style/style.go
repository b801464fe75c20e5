package style

import "github.com/charmbracelet/lipgloss"

// Colors
var (
	Accent    = lipgloss.Color("#DA702C")
	MutedGray = lipgloss.Color("245")
	DimGray   = lipgloss.Color("240")
	White     = lipgloss.Color("#FFFFFF")
	Red       = lipgloss.Color("196")
	Green     = lipgloss.Color("#2E8B57")
	Yellow    = lipgloss.Color("#F1C40F")
	Cyan      = lipgloss.Color("86")
)

// Glyphs
var (
	CheckboxOn  = "☑"
	CheckboxOff = "☐"
	StatusDot   = "●"
	Cursor      = "›"
)

// Base Styles
var (
	TextStyle    = lipgloss.NewStyle().Foreground(White)
	MutedStyle   = lipgloss.NewStyle().Foreground(MutedGray)
	ErrorStyle   = lipgloss.NewStyle().Foreground(Red)
	InfoStyle    = lipgloss.NewStyle().Foreground(Cyan)
	WarningStyle = lipgloss.NewStyle().Foreground(Yellow).Bold(true)
	FocusStyle   = lipgloss.NewStyle().Foreground(Accent).Bold(true)
)

// Component Styles
var (
	SectionHeaderStyle = lipgloss.NewStyle().
				Foreground(Accent).
				Bold(true).
				MarginTop(1)

	HeaderCheckBoxStyle = lipgloss.NewStyle().Bold(true)

	PillStyle = lipgloss.NewStyle().
			Foreground(MutedGray).
			Border(lipgloss.RoundedBorder()).
			BorderForeground(DimGray).
			Padding(0, 1)

	PillCheckedStyle = PillStyle.
				Foreground(White).
				BorderForeground(Accent)

	TabStyle       = lipgloss.NewStyle().Foreground(MutedGray).Padding(0, 2)
	ActiveTabStyle = lipgloss.NewStyle().Foreground(Accent).Bold(true).Underline(true).Padding(0, 2)

	ButtonStyle = lipgloss.NewStyle().
			Foreground(White).
			Border(lipgloss.RoundedBorder()).
			BorderForeground(DimGray).
			Padding(0, 2)

	ButtonFocusStyle = ButtonStyle.BorderForeground(Accent).Foreground(Accent)

	BoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(Accent).
			Padding(0, 1)

	TitleStyle = lipgloss.NewStyle().Foreground(Accent).Bold(true)

	CodeHeaderStyle = lipgloss.NewStyle().Foreground(MutedGray).Italic(true)

	FooterStyle = lipgloss.NewStyle().Foreground(MutedGray).MarginTop(1)
)

// StatusColor returns the indicator color of an MCP server status.
func StatusColor(status string) lipgloss.Color {
	switch status {
	case "connected":
		return Green
	case "connecting":
		return Yellow
	case "failed-to-connect":
		return Red
	default:
		return MutedGray
	}
}
