package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"

	"github.com/tinytelemetry/goldrates/internal/display"
	"github.com/tinytelemetry/goldrates/internal/model"
)

// BoardPageID is the page id of the widget board.
const BoardPageID = "board"

const headerHeight = 1

// RenderMsg carries one scheduler render into the program.
type RenderMsg struct {
	ID     model.InstanceID
	Visual model.Visual
}

// activatedMsg reports that the initial widgets were handed to the controller.
type activatedMsg struct{}

// BoardModel shows every placed widget as a card and maps keys and clicks
// onto the refresh controller.
type BoardModel struct {
	ctrl      model.RefreshController
	formatter display.Formatter
	keys      KeyMap
	help      help.Model
	spinner   spinner.Model
	spinning  bool

	widgets []*widgetPanel
	focus   int
	width   int
	height  int

	newID func() model.InstanceID
}

var _ Page = (*BoardModel)(nil)

// NewBoardModel creates a board with the given widgets placed. The controller
// may be bound later, but before the program starts.
func NewBoardModel(ctrl model.RefreshController, formatter display.Formatter, ids []model.InstanceID) *BoardModel {
	m := &BoardModel{
		ctrl:      ctrl,
		formatter: formatter,
		keys:      DefaultKeyMap(),
		help:      help.New(),
		spinner:   newOverlaySpinner(),
		newID: func() model.InstanceID {
			return model.InstanceID("w-" + uuid.NewString()[:8])
		},
	}
	for _, id := range ids {
		m.widgets = append(m.widgets, newWidgetPanel(id))
	}
	return m
}

// Bind sets the controller.
func (m *BoardModel) Bind(ctrl model.RefreshController) {
	m.ctrl = ctrl
}

func (m *BoardModel) ID() string { return BoardPageID }

// Init activates every placed widget.
func (m *BoardModel) Init() tea.Cmd {
	ids := m.ids()
	ctrl := m.ctrl
	return func() tea.Msg {
		for _, id := range ids {
			ctrl.Activate(id)
		}
		return activatedMsg{}
	}
}

func (m *BoardModel) Update(msg tea.Msg) (tea.Cmd, *PageNav) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.help.Width = msg.Width
		return nil, nil

	case RenderMsg:
		w := m.widget(msg.ID)
		if w == nil {
			return nil, nil
		}
		w.apply(msg.Visual)
		return m.startSpinnerIfNeeded(), nil

	case spinner.TickMsg:
		return m.handleSpinnerTick(msg), nil

	case tea.KeyMsg:
		return m.handleKey(msg), nil

	case tea.MouseMsg:
		return m.handleMouse(msg), nil
	}
	return nil, nil
}

func (m *BoardModel) handleKey(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, m.keys.Quit), key.Matches(msg, m.keys.ForceQuit):
		return tea.Quit
	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
	case key.Matches(msg, m.keys.Refresh):
		m.refresh(m.focus)
	case key.Matches(msg, m.keys.RefreshAll):
		for i := range m.widgets {
			m.refresh(i)
		}
	case key.Matches(msg, m.keys.Next):
		if n := len(m.widgets); n > 0 {
			m.focus = (m.focus + 1) % n
		}
	case key.Matches(msg, m.keys.Prev):
		if n := len(m.widgets); n > 0 {
			m.focus = (m.focus - 1 + n) % n
		}
	case key.Matches(msg, m.keys.Add):
		m.add(m.newID())
	case key.Matches(msg, m.keys.Remove):
		m.remove(m.focus)
	}
	return nil
}

func (m *BoardModel) handleMouse(msg tea.MouseMsg) tea.Cmd {
	if msg.Action != tea.MouseActionPress || msg.Button != tea.MouseButtonLeft {
		return nil
	}
	idx, onControl, ok := m.hitTest(msg.X, msg.Y)
	if !ok {
		return nil
	}
	m.focus = idx
	if onControl {
		m.refresh(idx)
	}
	return nil
}

// refresh is the user-action trigger. It is ignored while the control is
// replaced by the spinner.
func (m *BoardModel) refresh(idx int) {
	if idx < 0 || idx >= len(m.widgets) {
		return
	}
	w := m.widgets[idx]
	if !w.visual.RefreshEnabled {
		return
	}
	_ = m.ctrl.OnManualRefresh(w.id)
}

func (m *BoardModel) add(id model.InstanceID) {
	if m.widget(id) != nil {
		return
	}
	m.widgets = append(m.widgets, newWidgetPanel(id))
	m.focus = len(m.widgets) - 1
	m.ctrl.Activate(id)
}

func (m *BoardModel) remove(idx int) {
	if idx < 0 || idx >= len(m.widgets) {
		return
	}
	id := m.widgets[idx].id
	m.widgets = append(m.widgets[:idx], m.widgets[idx+1:]...)
	if m.focus >= len(m.widgets) && m.focus > 0 {
		m.focus--
	}
	m.ctrl.Deactivate(id)
}

// hitTest maps a screen cell to a widget card.
func (m *BoardModel) hitTest(x, y int) (idx int, onControl bool, ok bool) {
	y -= headerHeight
	if x < 0 || y < 0 {
		return 0, false, false
	}
	cols := m.columns()
	col, row := x/cardWidth, y/cardHeight
	if col >= cols {
		return 0, false, false
	}
	idx = row*cols + col
	if idx >= len(m.widgets) {
		return 0, false, false
	}
	return idx, y%cardHeight == controlRow, true
}

func (m *BoardModel) columns() int {
	if m.width < cardWidth {
		return 1
	}
	return m.width / cardWidth
}

func (m *BoardModel) View(width, height int) string {
	if width > 0 {
		m.width = width
	}
	if height > 0 {
		m.height = height
	}

	header := titleStyle.Render("Gold & Silver") +
		labelStyle.Render(fmt.Sprintf("  %d widget(s) · auto refresh %s", len(m.widgets), model.RefreshInterval))

	var body string
	if len(m.widgets) == 0 {
		body = mutedStyle.Render("No widgets placed. Press n to add one.")
	} else {
		body = m.renderGrid()
	}

	return lipgloss.JoinVertical(lipgloss.Left, header, body, m.help.View(m.keys))
}

func (m *BoardModel) renderGrid() string {
	cols := m.columns()
	frame := m.spinner.View()

	var rows []string
	for start := 0; start < len(m.widgets); start += cols {
		end := min(start+cols, len(m.widgets))
		cards := make([]string, 0, end-start)
		for i := start; i < end; i++ {
			cards = append(cards, m.widgets[i].render(m.formatter, i == m.focus, frame))
		}
		rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top, cards...))
	}
	return strings.Join(rows, "\n")
}

func (m *BoardModel) widget(id model.InstanceID) *widgetPanel {
	for _, w := range m.widgets {
		if w.id == id {
			return w
		}
	}
	return nil
}

func (m *BoardModel) ids() []model.InstanceID {
	out := make([]model.InstanceID, len(m.widgets))
	for i, w := range m.widgets {
		out[i] = w.id
	}
	return out
}
