package model

import (
	"context"
	"time"
)

// RateFetcher performs one upstream price fetch. It never panics on bad input
// and reports every failure through the outcome.
type RateFetcher interface {
	Fetch(ctx context.Context) FetchOutcome
}

// SurfaceRenderer pushes a visual to one widget. Implementations must be
// idempotent and must not block the caller.
type SurfaceRenderer interface {
	Render(id InstanceID, v Visual)
}

// AlarmPort arranges one future wake-up per instance.
type AlarmPort interface {
	Schedule(id InstanceID, at time.Time) ScheduleHandle
	Cancel(h ScheduleHandle)
}

// RefreshController is the trigger boundary: every lifecycle, timer and user
// event maps to exactly one of these calls.
type RefreshController interface {
	Activate(id InstanceID)
	OnManualRefresh(id InstanceID) error
	Deactivate(id InstanceID)
}

// StatusReader provides read-only scheduler projections.
type StatusReader interface {
	Status(id InstanceID) (WidgetStatus, bool)
	List() []WidgetStatus
}

// ControlAPI is the contract served by the HTTP API and the control socket.
type ControlAPI interface {
	StatusReader
	OnManualRefresh(id InstanceID) error
}
