package ui

import "github.com/charmbracelet/lipgloss"

var (
	accent = lipgloss.Color("#E1306C")

	helpTitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(accent).
			Padding(1, 0)

	helpKeyStyle = lipgloss.NewStyle().
			Foreground(accent).
			Bold(true).
			Width(12)

	helpDescStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#CCCCCC"))

	helpBoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(accent).
			Padding(0, 2)
)
