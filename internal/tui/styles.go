package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/banshee-data/firewatch/internal/sensor"
)

var (
	colorRed    = lipgloss.Color("#FF5555")
	colorBrown  = lipgloss.Color("#C08457")
	colorGreen  = lipgloss.Color("#50FA7B")
	colorCyan   = lipgloss.Color("#8BE9FD")
	colorWhite  = lipgloss.Color("#F8F8F2")
	colorGray   = lipgloss.Color("#6272A4")
	colorYellow = lipgloss.Color("#F1FA8C")

	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorGray).
			Padding(0, 1)

	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	labelStyle = lipgloss.NewStyle().Foreground(colorGray)
	valueStyle = lipgloss.NewStyle().Foreground(colorWhite)
	helpStyle  = lipgloss.NewStyle().Foreground(colorGray)
	warnStyle  = lipgloss.NewStyle().Foreground(colorYellow).Bold(true)

	fireStyle  = lipgloss.NewStyle().Foreground(colorRed).Bold(true)
	smokeStyle = lipgloss.NewStyle().Foreground(colorBrown).Bold(true)
	clearStyle = lipgloss.NewStyle().Foreground(colorGreen)

	fireModalStyle = lipgloss.NewStyle().
			Border(lipgloss.DoubleBorder()).
			BorderForeground(colorRed).
			Foreground(colorRed).
			Bold(true).
			Padding(1, 4)

	smokeModalStyle = fireModalStyle.
			BorderForeground(colorBrown).
			Foreground(colorBrown)
)

func statusStyle(s sensor.Status) lipgloss.Style {
	switch s {
	case sensor.Fire:
		return fireStyle
	case sensor.Smoke:
		return smokeStyle
	default:
		return clearStyle
	}
}
