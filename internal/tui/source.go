package tui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/ppiankov/examguard/internal/session"
)

type attachMsg struct{ d session.Dispatcher }

type detachMsg struct{}

// Source feeds terminal input from a running program into a session.
type Source struct {
	program *tea.Program
}

// NewSource wraps p. The program's model must be a Model.
func NewSource(p *tea.Program) *Source {
	return &Source{program: p}
}

// Subscribe attaches d to the model. Send is a no-op once the program exits.
func (s *Source) Subscribe(d session.Dispatcher) (func(), error) {
	s.program.Send(attachMsg{d: d})
	return func() { s.program.Send(detachMsg{}) }, nil
}
