package tui

import "github.com/charmbracelet/lipgloss"

var (
	subtle = lipgloss.Color("#a6adc8")
	border = lipgloss.Color("#45475a")
	accent = lipgloss.Color("#74c7ec")
	green  = lipgloss.Color("#a6e3a1")
	yellow = lipgloss.Color("#f9e2af")
	red    = lipgloss.Color("#f38ba8")

	titleStyle = lipgloss.NewStyle().Foreground(accent).Bold(true)
	mutedStyle = lipgloss.NewStyle().Foreground(subtle)
	barStyle   = lipgloss.NewStyle().Foreground(accent)
	valueStyle = lipgloss.NewStyle().Bold(true)
	errorStyle = lipgloss.NewStyle().Foreground(red)

	paneStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(border).
			Padding(0, 1)

	stateStyles = map[string]lipgloss.Style{
		"open":       lipgloss.NewStyle().Foreground(green).Bold(true),
		"connecting": lipgloss.NewStyle().Foreground(yellow).Bold(true),
		"closed":     lipgloss.NewStyle().Foreground(red).Bold(true),
	}
)
