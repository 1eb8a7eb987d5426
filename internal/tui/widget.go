package tui

import (
	"strings"

	"github.com/NimbleMarkets/ntcharts/sparkline"
	"github.com/charmbracelet/lipgloss"

	"github.com/tinytelemetry/goldrates/internal/display"
	"github.com/tinytelemetry/goldrates/internal/model"
)

// Card geometry. Outer size includes the border.
const (
	cardWidth  = 32
	cardHeight = 8
	cardInner  = cardWidth - 4 // border plus horizontal padding

	// controlRow is the row, relative to the card's top border, that holds
	// the refresh control.
	controlRow = 6

	maxHistory = 64
)

const refreshLabel = "[ ↻ Refresh ]"

// widgetPanel is the board-side view of one widget. Trend and history live
// only for the session.
type widgetPanel struct {
	id     model.InstanceID
	visual model.Visual

	last        model.RateSnapshot
	hasLast     bool
	goldTrend   display.Trend
	silverTrend display.Trend
	history     []float64
}

func newWidgetPanel(id model.InstanceID) *widgetPanel {
	return &widgetPanel{
		id:     id,
		visual: model.IdleVisual(model.Absent(model.AbsentNotFetched)),
	}
}

// apply records a render. A new snapshot updates trend and history.
func (p *widgetPanel) apply(v model.Visual) {
	p.visual = v
	if !v.State.HasRates() {
		p.goldTrend, p.silverTrend = display.TrendUnknown, display.TrendUnknown
		return
	}
	snap := v.State.Snapshot
	if p.hasLast && snap == p.last {
		return
	}
	if p.hasLast {
		p.goldTrend = display.Compare(p.last.GoldSell, snap.GoldSell)
		p.silverTrend = display.Compare(p.last.SilverSell, snap.SilverSell)
	}
	if d, ok := display.ParsePrice(snap.GoldSell); ok {
		p.history = append(p.history, d.InexactFloat64())
		if len(p.history) > maxHistory {
			p.history = p.history[len(p.history)-maxHistory:]
		}
	}
	p.last = snap
	p.hasLast = true
}

func (p *widgetPanel) render(f display.Formatter, focused bool, spinnerFrame string) string {
	card := f.Card(p.visual.State)

	title := string(p.id)
	if focused {
		title = "● " + title
	}

	gold, silver := goldStyle, silverStyle
	if card.Absent {
		gold, silver = mutedStyle, mutedStyle
	}

	lines := []string{
		lipgloss.NewStyle().Bold(true).Render(truncate(title, cardInner)),
		priceLine("GOLD 995", gold.Render(card.Gold), p.goldTrend),
		priceLine("SILVER FUT", silver.Render(card.Silver), p.silverTrend),
		p.sparkline(),
		p.statusLine(card),
		p.controlLine(spinnerFrame),
	}

	border := ColorGray
	if focused {
		border = ColorBlue
	}
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(border).
		Padding(0, 1).
		Width(cardWidth - 2).
		Height(cardHeight - 2).
		Render(strings.Join(lines, "\n"))
}

func (p *widgetPanel) statusLine(card display.Card) string {
	switch {
	case p.visual.State.Loading && !p.visual.Overlay:
		return mutedStyle.Render("updating…")
	case card.Updated != "":
		return labelStyle.Render("updated " + card.Updated)
	default:
		return ""
	}
}

func (p *widgetPanel) controlLine(spinnerFrame string) string {
	if p.visual.Overlay {
		return mutedStyle.Render(spinnerFrame + " refreshing")
	}
	if !p.visual.RefreshEnabled {
		return ""
	}
	return buttonStyle.Render(refreshLabel)
}

func (p *widgetPanel) sparkline() string {
	if len(p.history) < 2 {
		return ""
	}
	low := p.history[0]
	for _, v := range p.history {
		low = min(low, v)
	}
	sl := sparkline.New(cardInner, 1)
	for _, v := range p.history {
		// Offset so the chart shows movement rather than the absolute level.
		sl.Push(v - low + 1)
	}
	sl.Draw()
	return goldStyle.Render(sl.View())
}

func priceLine(label, value string, trend display.Trend) string {
	arrow := trend.Arrow()
	switch trend {
	case display.TrendUp:
		arrow = upStyle.Render(arrow)
	case display.TrendDown:
		arrow = downStyle.Render(arrow)
	}
	right := value
	if arrow != "" {
		right += " " + arrow
	}
	gap := cardInner - lipgloss.Width(label) - lipgloss.Width(right)
	if gap < 1 {
		gap = 1
	}
	return labelStyle.Render(label) + strings.Repeat(" ", gap) + right
}

func truncate(s string, width int) string {
	if lipgloss.Width(s) <= width {
		return s
	}
	r := []rune(s)
	for len(r) > 0 && lipgloss.Width(string(r))+1 > width {
		r = r[:len(r)-1]
	}
	return string(r) + "…"
}
