package model

import "time"

// Shared defaults used by both the runtime and control binaries.
const (
	// RefreshInterval is the fixed automatic refresh cadence.
	RefreshInterval = 15 * time.Minute

	DefaultFetchTimeout   = 10 * time.Second
	DefaultEndpoint       = "https://goldrate.divyanshbansal.com/api/live"
	DefaultCurrencySymbol = "₹"
	DefaultWidgetID       = InstanceID("main")

	// Placeholder is shown in place of a price that is not available.
	Placeholder = "—"
)
