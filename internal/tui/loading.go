package tui

import (
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
)

var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

func newOverlaySpinner() spinner.Model {
	return spinner.New(
		spinner.WithSpinner(spinner.Spinner{Frames: spinnerFrames, FPS: 120 * time.Millisecond}),
		spinner.WithStyle(mutedStyle),
	)
}

// anyOverlay returns true if any widget shows the loading overlay.
func (m *BoardModel) anyOverlay() bool {
	for _, w := range m.widgets {
		if w.visual.Overlay {
			return true
		}
	}
	return false
}

// startSpinnerIfNeeded starts the tick chain when an overlay appears.
func (m *BoardModel) startSpinnerIfNeeded() tea.Cmd {
	if m.spinning || !m.anyOverlay() {
		return nil
	}
	m.spinning = true
	return m.spinner.Tick
}

// handleSpinnerTick keeps the spinner animating while any overlay is shown.
func (m *BoardModel) handleSpinnerTick(msg spinner.TickMsg) tea.Cmd {
	if !m.anyOverlay() {
		m.spinning = false
		return nil
	}
	var cmd tea.Cmd
	m.spinner, cmd = m.spinner.Update(msg)
	return cmd
}
