package tui

import "github.com/charmbracelet/lipgloss"

var (
	colorAccent = lipgloss.Color("39")
	colorBorder = lipgloss.Color("240")
	colorMuted  = lipgloss.Color("245")
	colorGood   = lipgloss.Color("42")
	colorBad    = lipgloss.Color("196")

	promptStyle    = lipgloss.NewStyle().Foreground(colorAccent).Bold(true)
	userStyle      = lipgloss.NewStyle().Foreground(colorAccent).Bold(true)
	assistantStyle = lipgloss.NewStyle().Foreground(colorGood).Bold(true)
	errorStyle     = lipgloss.NewStyle().Foreground(colorBad)
	mutedStyle     = lipgloss.NewStyle().Foreground(colorMuted)
	headerStyle    = lipgloss.NewStyle().Bold(true).Foreground(colorAccent).Padding(0, 1)
)
