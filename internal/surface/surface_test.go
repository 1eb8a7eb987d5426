package surface

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tinytelemetry/goldrates/internal/display"
	"github.com/tinytelemetry/goldrates/internal/model"
)

type recordingSink struct {
	mu        sync.Mutex
	got       []model.Visual
	last      map[model.InstanceID]model.Visual
	forgotten []model.InstanceID

	// entered receives the id of every render before it waits on block.
	entered chan model.InstanceID
	block   chan struct{}
}

func (s *recordingSink) Render(id model.InstanceID, v model.Visual) {
	if s.entered != nil {
		s.entered <- id
	}
	if s.block != nil {
		<-s.block
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.got = append(s.got, v)
	if s.last == nil {
		s.last = make(map[model.InstanceID]model.Visual)
	}
	s.last[id] = v
}

func (s *recordingSink) Forget(id model.InstanceID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.forgotten = append(s.forgotten, id)
}

func (s *recordingSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.got)
}

func (s *recordingSink) lastFor(id model.InstanceID) (model.Visual, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.last[id]
	return v, ok
}

var snap = model.RateSnapshot{
	GoldSell:   "6200",
	SilverSell: "78000",
	CapturedAt: time.Date(2024, 3, 1, 9, 41, 0, 0, time.UTC),
}

func TestDedupeDropsRepeatedVisual(t *testing.T) {
	t.Parallel()

	sink := &recordingSink{}
	d := NewDedupe(sink)

	idle := model.IdleVisual(model.Idle(snap))
	d.Render("w1", idle)
	d.Render("w1", idle)
	d.Render("w2", idle)
	d.Render("w1", model.LoadingVisual(model.Idle(snap), model.VariantInteractive))
	d.Render("w1", idle)

	assert.Equal(t, 4, sink.count())
}

func TestDedupeForgetAllowsRepeat(t *testing.T) {
	t.Parallel()

	sink := &recordingSink{}
	d := NewDedupe(sink)

	absent := model.IdleVisual(model.Absent(model.AbsentNotFetched))
	d.Render("w1", absent)
	d.Forget("w1")
	d.Render("w1", absent)

	assert.Equal(t, 2, sink.count())
	assert.Equal(t, []model.InstanceID{"w1"}, sink.forgotten)
}

func TestPumpDeliversInOrder(t *testing.T) {
	t.Parallel()

	sink := &recordingSink{entered: make(chan model.InstanceID, 8), block: make(chan struct{})}
	p := NewPump(context.Background(), sink, nil)
	p.Start()
	t.Cleanup(p.Stop)

	loading := model.LoadingVisual(model.Absent(model.AbsentNotFetched), model.VariantInteractive)
	idle := model.IdleVisual(model.Idle(snap))

	p.Render("w1", loading)
	require.Equal(t, model.InstanceID("w1"), <-sink.entered)
	p.Render("w1", idle)
	close(sink.block)

	require.Eventually(t, func() bool { return sink.count() == 2 }, time.Second, 5*time.Millisecond)
	sink.mu.Lock()
	defer sink.mu.Unlock()
	assert.Equal(t, []model.Visual{loading, idle}, sink.got)
}

func TestPumpNeverBlocksWhenSinkStalls(t *testing.T) {
	t.Parallel()

	sink := &recordingSink{block: make(chan struct{})}
	p := NewPump(context.Background(), sink, nil)
	p.Start()

	done := make(chan struct{})
	go func() {
		for i := 0; i < 100; i++ {
			p.Render("w1", model.IdleVisual(model.Absent(model.AbsentUnavailable)))
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Render blocked on a stalled sink")
	}

	close(sink.block)
	p.Stop()
}

func TestPumpKeepsLatestVisualPerInstance(t *testing.T) {
	t.Parallel()

	sink := &recordingSink{entered: make(chan model.InstanceID, 64), block: make(chan struct{})}
	p := NewPump(context.Background(), sink, nil)
	p.Start()
	t.Cleanup(p.Stop)

	loading := model.LoadingVisual(model.Idle(snap), model.VariantInteractive)
	idle := model.IdleVisual(model.Idle(snap))

	// The sink is stuck delivering a's loading visual while a finishes and
	// other widgets flood the pump.
	p.Render("a", loading)
	require.Equal(t, model.InstanceID("a"), <-sink.entered)
	p.Render("a", idle)
	for i := 0; i < 50; i++ {
		for _, id := range []model.InstanceID{"b", "c", "d", "e"} {
			p.Render(id, loading)
			p.Render(id, idle)
		}
	}
	close(sink.block)

	for _, id := range []model.InstanceID{"a", "b", "c", "d", "e"} {
		require.Eventually(t, func() bool {
			v, ok := sink.lastFor(id)
			return ok && v == idle
		}, time.Second, 5*time.Millisecond, "widget %s kept its overlay", id)
	}

	p.mu.Lock()
	coalesced := p.coalesced
	p.mu.Unlock()
	assert.Positive(t, coalesced)
}

func TestPumpDedupeRecoversStalledInstance(t *testing.T) {
	t.Parallel()

	sink := &recordingSink{entered: make(chan model.InstanceID, 64), block: make(chan struct{})}
	p := NewPump(context.Background(), sink, nil)
	p.Start()
	t.Cleanup(p.Stop)
	d := NewDedupe(p)

	loading := model.LoadingVisual(model.Absent(model.AbsentNotFetched), model.VariantInteractive)
	idle := model.IdleVisual(model.Idle(snap))

	d.Render("a", loading)
	require.Equal(t, model.InstanceID("a"), <-sink.entered)
	d.Render("a", idle)
	for _, id := range []model.InstanceID{"b", "c", "d", "e"} {
		d.Render(id, idle)
	}
	close(sink.block)

	require.Eventually(t, func() bool {
		v, ok := sink.lastFor("a")
		return ok && !v.Overlay && v.RefreshEnabled
	}, time.Second, 5*time.Millisecond)
}

func TestPumpRenderAfterStopIsNoop(t *testing.T) {
	t.Parallel()

	sink := &recordingSink{}
	p := NewPump(context.Background(), sink, nil)
	p.Start()
	p.Stop()

	assert.NotPanics(t, func() { p.Render("w1", model.Visual{}) })
	assert.Zero(t, sink.count())
}

func TestConsoleLine(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	c := NewConsole(&buf, display.NewFormatter("₹", time.UTC))

	c.Render("main", model.IdleVisual(model.Idle(snap)))
	c.Render("main", model.LoadingVisual(model.Idle(snap), model.VariantInteractive))
	c.Render("main", model.IdleVisual(model.Absent(model.AbsentUnavailable)))

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 3)

	assert.Contains(t, lines[0], "[main]")
	assert.Contains(t, lines[0], "₹6200")
	assert.Contains(t, lines[0], "₹78000")
	assert.Contains(t, lines[0], "updated 9:41 AM")

	assert.Contains(t, lines[1], "refreshing")

	assert.Contains(t, lines[2], "GOLD 995 "+mutedStyle.Render(model.Placeholder))
	assert.NotContains(t, lines[2], "unavailable")
	assert.NotContains(t, lines[2], "updated")
}
