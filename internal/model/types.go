package model

import (
	"fmt"
	"time"
)

// InstanceID identifies one rendered widget. All scheduler state is scoped per instance.
type InstanceID string

// RateSnapshot is the immutable result of one successful price fetch.
type RateSnapshot struct {
	GoldSell   string    `json:"gold_sell"`
	SilverSell string    `json:"silver_sell"`
	CapturedAt time.Time `json:"captured_at"`
}

// FetchOutcome is produced exactly once per fetch attempt.
// Exactly one of Snapshot (OK) or Err/Reason (failure) is meaningful.
type FetchOutcome struct {
	Snapshot RateSnapshot
	Reason   string
	Err      error
	ok       bool
}

// Success wraps a snapshot into a successful outcome.
func Success(s RateSnapshot) FetchOutcome {
	return FetchOutcome{Snapshot: s, ok: true}
}

// Failure wraps a fetch error into a failed outcome.
func Failure(err error) FetchOutcome {
	reason := "unknown error"
	if err != nil {
		reason = err.Error()
	}
	return FetchOutcome{Reason: reason, Err: err}
}

// OK reports whether the fetch produced a snapshot.
func (o FetchOutcome) OK() bool { return o.ok }

// DisplayKind distinguishes the idle payloads of a DisplayState.
type DisplayKind uint8

const (
	DisplayAbsent DisplayKind = iota // no usable snapshot
	DisplayRates                     // last known snapshot
)

// AbsentReason tells why no snapshot is shown. It never reaches the surface text.
type AbsentReason string

const (
	AbsentNotFetched  AbsentReason = "not-fetched"
	AbsentUnavailable AbsentReason = "unavailable"
)

// DisplayState is what the scheduler wants a widget to show.
// Loading marks a fetch cycle in progress; the idle payload is kept so the
// surface can keep showing the last values underneath the overlay.
// It is a comparable value: surfaces compare states with ==.
type DisplayState struct {
	Kind     DisplayKind  `json:"kind"`
	Loading  bool         `json:"loading"`
	Snapshot RateSnapshot `json:"snapshot"`
	Absent   AbsentReason `json:"absent,omitempty"`
}

// Idle returns the idle state for a fresh snapshot.
func Idle(s RateSnapshot) DisplayState {
	return DisplayState{Kind: DisplayRates, Snapshot: s}
}

// Absent returns the idle state without values.
func Absent(reason AbsentReason) DisplayState {
	return DisplayState{Kind: DisplayAbsent, Absent: reason}
}

// WithLoading returns a copy of the state with the loading flag set.
func (d DisplayState) WithLoading(loading bool) DisplayState {
	d.Loading = loading
	return d
}

// HasRates reports whether the state carries a snapshot.
func (d DisplayState) HasRates() bool { return d.Kind == DisplayRates }

// Variant selects how a fetch cycle looks on the surface.
type Variant uint8

const (
	// VariantSilent keeps the refresh control visible and shows no spinner.
	VariantSilent Variant = iota
	// VariantInteractive replaces the refresh control with a spinner overlay.
	VariantInteractive
)

func (v Variant) String() string {
	if v == VariantInteractive {
		return "interactive"
	}
	return "silent"
}

// Visual bundles everything a surface needs to draw one widget.
type Visual struct {
	State          DisplayState `json:"state"`
	Variant        Variant      `json:"variant"`
	Overlay        bool         `json:"overlay"`
	RefreshEnabled bool         `json:"refresh_enabled"`
}

// LoadingVisual is rendered at the start of a fetch cycle.
func LoadingVisual(state DisplayState, variant Variant) Visual {
	interactive := variant == VariantInteractive
	return Visual{
		State:          state.WithLoading(true),
		Variant:        variant,
		Overlay:        interactive,
		RefreshEnabled: !interactive,
	}
}

// IdleVisual is rendered when a fetch cycle completes, whatever its outcome.
func IdleVisual(state DisplayState) Visual {
	return Visual{State: state.WithLoading(false), RefreshEnabled: true}
}

// Phase is the per-instance scheduler state.
type Phase uint8

const (
	PhaseInactive Phase = iota
	PhaseIdle
	PhaseLoading
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseLoading:
		return "loading"
	default:
		return "inactive"
	}
}

// MarshalText lets statuses serialize the phase by name.
func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

func (p *Phase) UnmarshalText(text []byte) error {
	switch string(text) {
	case "idle":
		*p = PhaseIdle
	case "loading":
		*p = PhaseLoading
	case "inactive":
		*p = PhaseInactive
	default:
		return fmt.Errorf("unknown phase %q", text)
	}
	return nil
}

// ScheduleHandle references one pending wake-up. The zero value references nothing.
type ScheduleHandle struct {
	Instance InstanceID
	Seq      uint64
}

// IsZero reports whether the handle was never issued.
func (h ScheduleHandle) IsZero() bool { return h.Seq == 0 }

// WidgetStatus is a read-only projection of one instance for API surfaces.
type WidgetStatus struct {
	ID                  InstanceID   `json:"id" yaml:"id"`
	Phase               Phase        `json:"phase" yaml:"phase"`
	State               DisplayState `json:"state" yaml:"-"`
	GoldSell            string       `json:"gold_sell,omitempty" yaml:"gold_sell,omitempty"`
	SilverSell          string       `json:"silver_sell,omitempty" yaml:"silver_sell,omitempty"`
	InFlight            int          `json:"in_flight" yaml:"in_flight"`
	NextTickAt          time.Time    `json:"next_tick_at" yaml:"next_tick_at"`
	LastSuccessAt       time.Time    `json:"last_success_at" yaml:"last_success_at"`
	LastFailure         string       `json:"last_failure,omitempty" yaml:"last_failure,omitempty"`
	ConsecutiveFailures int          `json:"consecutive_failures" yaml:"consecutive_failures"`
}
