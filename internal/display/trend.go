package display

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Trend compares two verbatim price strings.
type Trend int

const (
	TrendUnknown Trend = iota
	TrendFlat
	TrendUp
	TrendDown
)

// Arrow is the glyph shown next to a price.
func (t Trend) Arrow() string {
	switch t {
	case TrendUp:
		return "▲"
	case TrendDown:
		return "▼"
	case TrendFlat:
		return "="
	default:
		return ""
	}
}

// ParsePrice reads an upstream price. Grouping commas are ignored; anything
// else that is not a decimal number is reported as not ok.
func ParsePrice(v string) (decimal.Decimal, bool) {
	v = strings.ReplaceAll(strings.TrimSpace(v), ",", "")
	if v == "" {
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(v)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}

// Compare returns the direction from prev to cur.
func Compare(prev, cur string) Trend {
	p, ok := ParsePrice(prev)
	if !ok {
		return TrendUnknown
	}
	c, ok := ParsePrice(cur)
	if !ok {
		return TrendUnknown
	}
	switch c.Cmp(p) {
	case 1:
		return TrendUp
	case -1:
		return TrendDown
	default:
		return TrendFlat
	}
}
