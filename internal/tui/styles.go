package tui

import "github.com/charmbracelet/lipgloss"

var (
	// Colors
	ColorNeonPurple = lipgloss.Color("#bd93f9") // Dracula Purple
	ColorNeonPink   = lipgloss.Color("#ff79c6") // Dracula Pink
	ColorNeonCyan   = lipgloss.Color("#8be9fd") // Dracula Cyan
	ColorGray       = lipgloss.Color("#44475a") // Dracula Selection
	ColorLightGray  = lipgloss.Color("#a9b1d6")
	ColorText       = lipgloss.Color("#f8f8f2") // Dracula Foreground

	// Step states
	ColorStateRunning = lipgloss.Color("#8be9fd")
	ColorStateDone    = lipgloss.Color("#50fa7b") // Dracula Green
	ColorStateError   = lipgloss.Color("#ff5555") // Dracula Red
	ColorStateWarning = lipgloss.Color("#ffb86c") // Dracula Orange

	AppStyle = lipgloss.NewStyle().
			Padding(DefaultPaddingX, 2).
			Foreground(ColorText)

	LogoStyle = lipgloss.NewStyle().
			Foreground(ColorNeonPurple).
			Bold(true)

	// Tabs
	TabStyle = lipgloss.NewStyle().
			Foreground(ColorLightGray).
			Padding(0, 1)

	ActiveTabStyle = lipgloss.NewStyle().
			Foreground(ColorNeonPink).
			Bold(true).
			Underline(true).
			Padding(0, 1)

	// Label/value pairs in the status pane
	StatsLabelStyle = lipgloss.NewStyle().
			Foreground(ColorLightGray).
			Width(12)

	StatsValueStyle = lipgloss.NewStyle().
			Foreground(ColorNeonPink).
			Bold(true)

	// Log lines
	LogLineStyle = lipgloss.NewStyle().
			Foreground(ColorText)

	LogLatestStyle = lipgloss.NewStyle().
			Foreground(ColorNeonCyan).
			Bold(true)

	FooterStyle = lipgloss.NewStyle().
			Foreground(ColorLightGray).
			Padding(0, 1)
)
