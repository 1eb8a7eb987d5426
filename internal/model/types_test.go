package model

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVisualsForVariants(t *testing.T) {
	t.Parallel()

	state := Idle(RateSnapshot{GoldSell: "6200", SilverSell: "78000"})

	interactive := LoadingVisual(state, VariantInteractive)
	assert.True(t, interactive.Overlay)
	assert.False(t, interactive.RefreshEnabled)
	assert.True(t, interactive.State.Loading)
	assert.True(t, interactive.State.HasRates())

	silent := LoadingVisual(state, VariantSilent)
	assert.False(t, silent.Overlay)
	assert.True(t, silent.RefreshEnabled)
	assert.True(t, silent.State.Loading)

	idle := IdleVisual(interactive.State)
	assert.False(t, idle.Overlay)
	assert.True(t, idle.RefreshEnabled)
	assert.False(t, idle.State.Loading)
	assert.Equal(t, IdleVisual(state), idle)
}

func TestFailureOutcome(t *testing.T) {
	t.Parallel()

	out := Failure(assert.AnError)
	assert.False(t, out.OK())
	assert.Equal(t, assert.AnError.Error(), out.Reason)

	assert.Equal(t, "unknown error", Failure(nil).Reason)
	assert.True(t, Success(RateSnapshot{}).OK())
}

func TestScheduleHandleZero(t *testing.T) {
	t.Parallel()

	assert.True(t, ScheduleHandle{}.IsZero())
	assert.False(t, ScheduleHandle{Instance: "w", Seq: 1}.IsZero())
}

func TestWidgetStatusJSONPhase(t *testing.T) {
	t.Parallel()

	in := WidgetStatus{ID: "main", Phase: PhaseLoading, NextTickAt: time.Date(2024, 3, 1, 9, 15, 0, 0, time.UTC)}
	data, err := json.Marshal(in)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"phase":"loading"`)

	var out WidgetStatus
	require.NoError(t, json.Unmarshal(data, &out))
	assert.Equal(t, in, out)

	var p Phase
	assert.Error(t, p.UnmarshalText([]byte("sleeping")))
}
