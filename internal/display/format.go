// Package display turns scheduler display states into widget text.
package display

import (
	"fmt"
	"time"

	"github.com/tinytelemetry/goldrates/internal/model"
)

// TimeLayout is the capture-time format shown on a card.
const TimeLayout = "3:04 PM"

// istOffset is used when the tz database is not available.
const istOffset = 5*60*60 + 30*60

// Card is the rendered text of one widget.
type Card struct {
	Gold    string
	Silver  string
	Updated string
	Absent  bool
}

// Formatter renders prices and capture times.
type Formatter struct {
	Currency string
	Location *time.Location
}

// NewFormatter returns a formatter. Empty values fall back to the defaults.
func NewFormatter(currency string, loc *time.Location) Formatter {
	if currency == "" {
		currency = model.DefaultCurrencySymbol
	}
	if loc == nil {
		loc = time.Local
	}
	return Formatter{Currency: currency, Location: loc}
}

// Card renders a display state. Absent states show the placeholder for both
// prices and no capture time; the absent reason is never shown.
func (f Formatter) Card(state model.DisplayState) Card {
	if !state.HasRates() {
		return Card{Gold: model.Placeholder, Silver: model.Placeholder, Absent: true}
	}
	return Card{
		Gold:    f.Price(state.Snapshot.GoldSell),
		Silver:  f.Price(state.Snapshot.SilverSell),
		Updated: f.Time(state.Snapshot.CapturedAt),
	}
}

// Price prefixes the currency symbol to the upstream value, unchanged.
func (f Formatter) Price(v string) string {
	if v == "" {
		return model.Placeholder
	}
	return f.Currency + v
}

// Time formats t as a 12-hour wall clock time in the formatter's location.
func (f Formatter) Time(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	loc := f.Location
	if loc == nil {
		loc = time.Local
	}
	return t.In(loc).Format(TimeLayout)
}

// LoadLocation resolves a configured timezone name. An empty name or "Local"
// means the host zone; "Asia/Kolkata" and "IST" fall back to a fixed +05:30
// zone when the tz database is missing.
func LoadLocation(name string) (*time.Location, error) {
	switch name {
	case "", "Local":
		return time.Local, nil
	case "IST":
		name = "Asia/Kolkata"
	}
	loc, err := time.LoadLocation(name)
	if err == nil {
		return loc, nil
	}
	if name == "Asia/Kolkata" {
		return time.FixedZone("IST", istOffset), nil
	}
	return nil, fmt.Errorf("load timezone %q: %w", name, err)
}
