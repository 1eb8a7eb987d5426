package surface

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"

	"github.com/tinytelemetry/goldrates/internal/display"
	"github.com/tinytelemetry/goldrates/internal/model"
)

var (
	idStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("63"))
	goldStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("220"))
	silverStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("250"))
	mutedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

// Console is the headless surface: one line per render.
type Console struct {
	w         io.Writer
	formatter display.Formatter

	mu sync.Mutex
}

var _ model.SurfaceRenderer = (*Console)(nil)

func NewConsole(w io.Writer, formatter display.Formatter) *Console {
	return &Console{w: w, formatter: formatter}
}

func (c *Console) Render(id model.InstanceID, v model.Visual) {
	line := c.Line(id, v)
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintln(c.w, line)
}

// Line formats one render.
func (c *Console) Line(id model.InstanceID, v model.Visual) string {
	card := c.formatter.Card(v.State)

	var b strings.Builder
	gold, silver := goldStyle, silverStyle
	if card.Absent {
		gold, silver = mutedStyle, mutedStyle
	}

	b.WriteString(idStyle.Render("[" + string(id) + "]"))
	b.WriteString(" GOLD 995 ")
	b.WriteString(gold.Render(card.Gold))
	b.WriteString("  SILVER FUT ")
	b.WriteString(silver.Render(card.Silver))

	switch {
	case v.Overlay:
		b.WriteString(mutedStyle.Render("  refreshing…"))
	case v.State.Loading:
		b.WriteString(mutedStyle.Render("  updating…"))
	case card.Updated != "":
		b.WriteString(mutedStyle.Render("  updated " + card.Updated))
	}
	return b.String()
}
