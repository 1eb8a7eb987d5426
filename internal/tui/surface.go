package tui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/tinytelemetry/goldrates/internal/model"
)

// ProgramSurface delivers renders into a running Bubble Tea program.
// Send blocks until the program reads the message, so callers wrap it in a
// surface.Pump. Renders for widgets no longer on the board are dropped by
// the board.
type ProgramSurface struct {
	program *tea.Program
}

var _ model.SurfaceRenderer = (*ProgramSurface)(nil)

func NewProgramSurface(p *tea.Program) *ProgramSurface {
	return &ProgramSurface{program: p}
}

func (s *ProgramSurface) Render(id model.InstanceID, v model.Visual) {
	s.program.Send(RenderMsg{ID: id, Visual: v})
}
