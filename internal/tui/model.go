// Package tui is the terminal dashboard: live readings, detection counts,
// recent events and a modal for the alert currently presented.
package tui

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/banshee-data/firewatch/internal/alert"
	"github.com/banshee-data/firewatch/internal/charts"
	"github.com/banshee-data/firewatch/internal/device"
	"github.com/banshee-data/firewatch/internal/history"
	"github.com/banshee-data/firewatch/internal/monitor"
	"github.com/banshee-data/firewatch/internal/units"
)

const recentEvents = 5

// Session is the part of monitor.Session the terminal dashboard drives.
type Session interface {
	Snapshot() monitor.State
	Dismiss() bool
	ToggleOutput() device.Output
	ClearHistory()
	Store() *history.Store
}

type tickMsg time.Time

type effectMsg alert.Effect

// Model is the bubbletea model.
type Model struct {
	session  Session
	trend    *charts.Trend
	interval time.Duration
	display  units.Display
	width    int
	height   int

	state        monitor.State
	events       []history.DetectionEvent
	confirmClear bool
	notice       string
}

// NewModel returns a model that refreshes from session every interval. A
// nil trend hides the sparklines.
func NewModel(session Session, trend *charts.Trend, interval time.Duration) Model {
	if interval <= 0 {
		interval = time.Second
	}
	m := Model{session: session, trend: trend, interval: interval}
	m.refresh()
	return m
}

// WithDisplay sets the temperature unit and time zone.
func (m Model) WithDisplay(d units.Display) Model {
	m.display = d
	return m
}

func (m Model) Init() tea.Cmd {
	return tick(m.interval)
}

func tick(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m *Model) refresh() {
	m.state = m.session.Snapshot()
	events := m.session.Store().Events()
	m.events = nil
	for i := len(events) - 1; i >= 0 && len(m.events) < recentEvents; i-- {
		m.events = append(m.events, events[i])
	}
}

// alertShown reports whether the modal is up.
func (m Model) alertShown() bool {
	return m.state.Alert != nil && !m.state.Alert.Dismissed
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.updateKey(msg)
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
	case tickMsg:
		m.refresh()
		return m, tick(m.interval)
	case effectMsg:
		m.refresh()
	}
	return m, nil
}

func (m Model) updateKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()
	if key == "ctrl+c" {
		return m, tea.Quit
	}

	if m.alertShown() {
		switch key {
		case "enter", "esc", "d", " ":
			m.session.Dismiss()
			m.refresh()
		}
		return m, nil
	}

	if m.confirmClear {
		m.confirmClear = false
		if key == "y" || key == "Y" {
			m.session.ClearHistory()
			m.notice = "History cleared"
			m.refresh()
		} else {
			m.notice = "Clear cancelled"
		}
		return m, nil
	}

	switch key {
	case "q":
		return m, tea.Quit
	case "c":
		m.confirmClear = true
		m.notice = ""
	case "o":
		o := m.session.ToggleOutput()
		m.notice = fmt.Sprintf("Stream output: %s", o)
		m.refresh()
	case "r":
		m.refresh()
	}
	return m, nil
}

func (m Model) View() string {
	body := lipgloss.JoinVertical(lipgloss.Left,
		m.viewHeader(),
		lipgloss.JoinHorizontal(lipgloss.Top, m.viewReadings(), m.viewEvents()),
		m.viewTrend(),
		m.viewFooter(),
	)
	if !m.alertShown() {
		return body
	}

	modal := m.viewModal()
	if m.width == 0 || m.height == 0 {
		return body + "\n" + modal
	}
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, modal)
}

func (m Model) viewHeader() string {
	st := m.state
	updated := "No readings yet"
	if st.LastUpdated != nil {
		updated = "Last updated " + m.display.Clock(*st.LastUpdated)
	}
	return titleStyle.Render("FIREWATCH") + "  " +
		statusStyle(st.Status).Render(st.Status.String()) + "  " +
		labelStyle.Render(updated)
}

func (m Model) viewReadings() string {
	var sb strings.Builder
	sb.WriteString(titleStyle.Render("Sensors"))
	sb.WriteString("\n")
	if r := m.state.Reading; r != nil {
		row := func(label, value string) {
			sb.WriteString(labelStyle.Render(fmt.Sprintf("%-12s", label)))
			sb.WriteString(valueStyle.Render(value))
			sb.WriteString("\n")
		}
		row("Temperature", m.display.Temperature(r.Temperature))
		row("Humidity", fmt.Sprintf("%.1f %%", r.Humidity))
		row("Gas level", fmt.Sprintf("%.0f", r.GasLevel))
		if c := m.state.AIConfidence; c != nil {
			row("AI conf.", fmt.Sprintf("%.2f", *c))
		}
	} else {
		sb.WriteString(labelStyle.Render("waiting for the device"))
		sb.WriteString("\n")
	}

	counts := m.state.Counts
	sb.WriteString("\n")
	sb.WriteString(fireStyle.Render(fmt.Sprintf("Fire %d", counts.Fire)))
	sb.WriteString("  ")
	sb.WriteString(smokeStyle.Render(fmt.Sprintf("Smoke %d", counts.Smoke)))
	sb.WriteString("  ")
	sb.WriteString(clearStyle.Render(fmt.Sprintf("Clear %d", counts.Clear)))
	sb.WriteString("\n")
	sb.WriteString(labelStyle.Render(fmt.Sprintf("%d readings, stream %s", m.state.Records, m.state.Output)))
	return panelStyle.Render(sb.String())
}

func (m Model) viewEvents() string {
	var sb strings.Builder
	sb.WriteString(titleStyle.Render("Recent events"))
	if len(m.events) == 0 {
		sb.WriteString("\n")
		sb.WriteString(labelStyle.Render("No events"))
	}
	for _, e := range m.events {
		sb.WriteString("\n")
		sb.WriteString(labelStyle.Render(m.display.Clock(e.Timestamp)))
		sb.WriteString(" ")
		sb.WriteString(statusStyle(e.From).Render(e.From.String()))
		sb.WriteString(" → ")
		sb.WriteString(statusStyle(e.To).Render(e.To.String()))
	}
	return panelStyle.Render(sb.String())
}

func (m Model) viewTrend() string {
	if m.trend == nil || m.trend.Len() == 0 {
		return ""
	}
	points := m.trend.Points()
	var sb strings.Builder
	sb.WriteString(titleStyle.Render(fmt.Sprintf("Trend (%d/%d)", len(points), m.trend.Capacity())))
	for _, s := range charts.AllSeries {
		values := make([]float64, len(points))
		for i, p := range points {
			values[i] = s.Value(p)
		}
		sb.WriteString("\n")
		sb.WriteString(labelStyle.Render(fmt.Sprintf("%-12s", s.Label())))
		sb.WriteString(valueStyle.Render(sparkline(values)))
	}
	return panelStyle.Render(sb.String())
}

func (m Model) viewFooter() string {
	if m.confirmClear {
		return warnStyle.Render("Clear all detection history? [y/N]")
	}
	help := helpStyle.Render("o: switch stream  c: clear history  r: refresh  q: quit")
	if m.notice != "" {
		return valueStyle.Render(m.notice) + "  " + help
	}
	return help
}

func (m Model) viewModal() string {
	a := m.state.Alert
	style := fireModalStyle
	if a.Effect.Kind == alert.ShowSmokeAlert {
		style = smokeModalStyle
	}
	return style.Render(a.Message + "\n\n" + helpStyle.Render("press enter to dismiss"))
}
