package tui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/banshee-data/firewatch/internal/alert"
)

// Sink forwards poller effects into a running program so alerts appear
// without waiting for the next refresh tick.
type Sink struct {
	program *tea.Program
}

func NewSink(p *tea.Program) *Sink {
	return &Sink{program: p}
}

// Apply blocks until the program takes the message or stops.
func (s *Sink) Apply(e alert.Effect) {
	s.program.Send(effectMsg(e))
}

// NewProgram builds the full-screen program for m.
func NewProgram(m Model, opts ...tea.ProgramOption) *tea.Program {
	return tea.NewProgram(m, append([]tea.ProgramOption{tea.WithAltScreen()}, opts...)...)
}
