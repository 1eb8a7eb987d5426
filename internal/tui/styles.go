package tui

import "github.com/charmbracelet/lipgloss"

// Palette shared by the board and cards.
var (
	ColorNavy   = lipgloss.Color("#1B1F3B")
	ColorWhite  = lipgloss.Color("#F5F5F5")
	ColorGray   = lipgloss.Color("241")
	ColorBlue   = lipgloss.Color("63")
	ColorGold   = lipgloss.Color("#E8B923")
	ColorSilver = lipgloss.Color("#C0C0C0")
	ColorGreen  = lipgloss.Color("#44FF44")
	ColorRed    = lipgloss.Color("#FF4444")
)

var (
	labelStyle  = lipgloss.NewStyle().Foreground(ColorGray)
	goldStyle   = lipgloss.NewStyle().Foreground(ColorGold).Bold(true)
	silverStyle = lipgloss.NewStyle().Foreground(ColorSilver).Bold(true)
	mutedStyle  = lipgloss.NewStyle().Foreground(ColorGray).Italic(true)
	upStyle     = lipgloss.NewStyle().Foreground(ColorGreen)
	downStyle   = lipgloss.NewStyle().Foreground(ColorRed)
	buttonStyle = lipgloss.NewStyle().Foreground(ColorWhite).Background(ColorBlue).Bold(true)
	titleStyle  = lipgloss.NewStyle().Foreground(ColorGold).Background(ColorNavy).Bold(true).Padding(0, 1)
)
