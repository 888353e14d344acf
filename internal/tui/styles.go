package tui

import (
	"github.com/charmbracelet/lipgloss"
)

var (
	// Main application frame
	App = lipgloss.NewStyle().
		Padding(0, 1)

	// Title style for the archive name
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FFFFFF")).
			Background(lipgloss.Color("#4F4FB7")).
			Padding(0, 1)

	// Panel around the entry list and the editor
	PanelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#626262"))

	FocusedPanelStyle = PanelStyle.
				BorderForeground(lipgloss.Color("#7B61FF"))

	// Tabs of open views
	TabStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#959595")).
			Padding(0, 1)

	ActiveTabStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFFFF")).
			Background(lipgloss.Color("#4F4FB7")).
			Padding(0, 1)

	// Preview tabs are shown in italics
	PreviewTabStyle = TabStyle.
			Italic(true)

	// Status style for info messages
	StatusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#959595"))

	// Error style for error messages
	ErrorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF0000"))

	// Success style for success messages
	SuccessStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#00FF00"))

	// Selected table cell
	CellStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#73F59F")).
			Bold(true)

	HelpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#5A9"))
)
