package views

import (
	"strings"

	"libripal/helpers"

	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("63"))
	headingStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("33"))
	mutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	spinnerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))

	highlightStyle = lipgloss.NewStyle().Bold(true).Background(lipgloss.Color("226")).Foreground(lipgloss.Color("0"))

	userLabelStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("196"))
	botLabelStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("33"))

	chipStyle         = lipgloss.NewStyle().Padding(0, 1).Foreground(lipgloss.Color("252")).Background(lipgloss.Color("236"))
	selectedChipStyle = chipStyle.Bold(true).Foreground(lipgloss.Color("203"))

	cardStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("240")).Padding(0, 1)
)

func urgencyStyle(u helpers.Urgency) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(lipgloss.Color(helpers.UrgencyColor(u)))
}

// rule draws the horizontal separator used under table headers.
func rule(n int) string { return mutedStyle.Render(strings.Repeat("-", n)) }

// banner is the double-line frame around pager headers.
func banner(n int) string { return strings.Repeat("═", n) }
