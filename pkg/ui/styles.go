package ui

import "github.com/charmbracelet/lipgloss"

// Color Palette
var (
	salmonPink  = lipgloss.Color("#FFB3BA")
	coralPink   = lipgloss.Color("#FFCCCB")
	mintGreen   = lipgloss.Color("#A8E6CF")
	mutedGray   = lipgloss.Color("#6B7280")
	brightWhite = lipgloss.Color("#F9FAFB")
	sunYellow   = lipgloss.Color("#FFE08A")
)

// Common Styles
var (
	headerStyle = lipgloss.NewStyle().
			Foreground(salmonPink).
			Bold(true)

	promptStyle = lipgloss.NewStyle().
			Foreground(coralPink).
			Bold(true)

	logStyle = lipgloss.NewStyle().
			Foreground(mutedGray)

	statusStyle = lipgloss.NewStyle().
			Foreground(brightWhite).
			Italic(true)

	warningStyle = lipgloss.NewStyle().
			Foreground(sunYellow).
			Bold(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(salmonPink).
			Bold(true)

	successStyle = lipgloss.NewStyle().
			Foreground(mintGreen)

	detailStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(mutedGray).
			Padding(0, 1)

	diffAddStyle    = lipgloss.NewStyle().Foreground(mintGreen)
	diffRemoveStyle = lipgloss.NewStyle().Foreground(salmonPink)
	diffHunkStyle   = lipgloss.NewStyle().Foreground(mutedGray)
)
