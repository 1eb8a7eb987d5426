// Package scheduler drives the per-widget refresh state machine.
//
// Every trigger (activation, alarm fire, user action) runs the same fetch
// cycle: render the loading visual, fetch off the caller's goroutine, render
// the idle visual whatever the outcome, then re-arm the alarm one
// RefreshInterval from completion.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	cmap "github.com/orcaman/concurrent-map/v2"
	"go.uber.org/zap"

	"github.com/tinytelemetry/goldrates/internal/clock"
	"github.com/tinytelemetry/goldrates/internal/model"
)

// ErrUnknownInstance is returned for triggers aimed at an inactive widget.
var ErrUnknownInstance = errors.New("unknown widget instance")

// Forgetter is implemented by surfaces that keep per-instance memory.
type Forgetter interface {
	Forget(id model.InstanceID)
}

// Trigger names the event that started a fetch cycle.
type Trigger string

const (
	TriggerActivate Trigger = "activate"
	TriggerTick     Trigger = "tick"
	TriggerManual   Trigger = "manual"
)

// Scheduler implements model.RefreshController for any number of instances.
type Scheduler struct {
	fetcher model.RateFetcher
	surface model.SurfaceRenderer
	alarms  model.AlarmPort
	clock   clock.Clock
	logger  *zap.Logger

	instances cmap.ConcurrentMap[string, *instance]

	mu     sync.RWMutex // guards closed against wg.Add during Close
	closed bool
	wg     sync.WaitGroup
}

var (
	_ model.RefreshController = (*Scheduler)(nil)
	_ model.ControlAPI        = (*Scheduler)(nil)
)

// New creates a scheduler. The alarm port must deliver fires to OnAutomaticTick.
func New(fetcher model.RateFetcher, surface model.SurfaceRenderer, alarms model.AlarmPort, clk clock.Clock, logger *zap.Logger) *Scheduler {
	if clk == nil {
		clk = clock.System
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{
		fetcher:   fetcher,
		surface:   surface,
		alarms:    alarms,
		clock:     clk,
		logger:    logger,
		instances: cmap.New[*instance](),
	}
}

// Activate starts managing id: it renders the absent state, runs one
// interactive fetch and arms the automatic tick. Activating a live instance
// runs one interactive cycle and keeps what it currently shows.
func (s *Scheduler) Activate(id model.InstanceID) {
	if s.isClosed() {
		return
	}
	inst, created := s.acquire(id)
	if created {
		inst.mu.Lock()
		inst.phase = model.PhaseIdle
		s.surface.Render(id, model.IdleVisual(inst.display))
		inst.mu.Unlock()
		s.logger.Info("widget activated", zap.String("instance", string(id)))
	}
	s.startCycle(inst, model.VariantInteractive, TriggerActivate)
}

// OnAutomaticTick runs one silent cycle. Ticks for inactive instances are dropped.
func (s *Scheduler) OnAutomaticTick(id model.InstanceID) {
	inst, ok := s.instances.Get(string(id))
	if !ok {
		s.logger.Debug("tick for inactive widget dropped", zap.String("instance", string(id)))
		return
	}
	s.startCycle(inst, model.VariantSilent, TriggerTick)
}

// OnManualRefresh runs one interactive cycle. Completion re-arms the tick a
// full interval from then, which resets the cadence.
func (s *Scheduler) OnManualRefresh(id model.InstanceID) error {
	inst, ok := s.instances.Get(string(id))
	if !ok {
		return fmt.Errorf("refresh %q: %w", id, ErrUnknownInstance)
	}
	s.startCycle(inst, model.VariantInteractive, TriggerManual)
	return nil
}

// Deactivate stops managing id. The pending wake-up is cancelled, the
// in-flight fetch is cancelled, and a completion that still arrives is dropped.
func (s *Scheduler) Deactivate(id model.InstanceID) {
	inst, ok := s.instances.Pop(string(id))
	if !ok {
		return
	}

	inst.mu.Lock()
	inst.removed = true
	inst.phase = model.PhaseInactive
	handle := inst.handle
	inst.handle = model.ScheduleHandle{}
	inst.mu.Unlock()

	inst.cancel()
	s.alarms.Cancel(handle)
	if f, ok := s.surface.(Forgetter); ok {
		f.Forget(id)
	}
	s.logger.Info("widget deactivated", zap.String("instance", string(id)))
}

// Status returns the projection of one active instance.
func (s *Scheduler) Status(id model.InstanceID) (model.WidgetStatus, bool) {
	inst, ok := s.instances.Get(string(id))
	if !ok {
		return model.WidgetStatus{}, false
	}
	return inst.status(), true
}

// List returns every active instance ordered by id.
func (s *Scheduler) List() []model.WidgetStatus {
	items := s.instances.Items()
	out := make([]model.WidgetStatus, 0, len(items))
	for _, inst := range items {
		out = append(out, inst.status())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Wait blocks until every started cycle has completed.
func (s *Scheduler) Wait() {
	s.wg.Wait()
}

// Close deactivates every instance and waits for running cycles to finish.
func (s *Scheduler) Close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()

	for _, key := range s.instances.Keys() {
		s.Deactivate(model.InstanceID(key))
	}
	s.wg.Wait()
}

func (s *Scheduler) isClosed() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.closed
}

func (s *Scheduler) acquire(id model.InstanceID) (*instance, bool) {
	for {
		candidate := newInstance(id)
		if s.instances.SetIfAbsent(string(id), candidate) {
			return candidate, true
		}
		candidate.cancel()
		if existing, ok := s.instances.Get(string(id)); ok {
			return existing, false
		}
	}
}

func (s *Scheduler) startCycle(inst *instance, variant model.Variant, trigger Trigger) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return
	}

	inst.mu.Lock()
	if inst.removed {
		inst.mu.Unlock()
		return
	}
	inst.inFlight++
	inst.phase = model.PhaseLoading
	inst.display = inst.display.WithLoading(true)
	s.surface.Render(inst.id, model.LoadingVisual(inst.display, variant))
	ctx := inst.ctx
	inst.mu.Unlock()

	s.logger.Debug("fetch cycle started",
		zap.String("instance", string(inst.id)),
		zap.String("trigger", string(trigger)),
		zap.Stringer("variant", variant))

	s.wg.Add(1)
	go s.runCycle(ctx, inst, trigger)
}

func (s *Scheduler) runCycle(ctx context.Context, inst *instance, trigger Trigger) {
	defer s.wg.Done()

	var outcome model.FetchOutcome
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("fetch cycle panicked",
				zap.String("instance", string(inst.id)),
				zap.Any("panic", r),
				zap.Stack("stack"))
			outcome = model.Failure(fmt.Errorf("fetch panicked: %v", r))
		}
		s.complete(inst, outcome, trigger)
	}()

	outcome = s.fetcher.Fetch(ctx)
}

func (s *Scheduler) complete(inst *instance, outcome model.FetchOutcome, trigger Trigger) {
	inst.mu.Lock()
	defer inst.mu.Unlock()

	inst.inFlight--
	if inst.removed {
		s.logger.Debug("result for removed widget dropped", zap.String("instance", string(inst.id)))
		return
	}

	now := s.clock.Now()
	if outcome.OK() {
		inst.display = model.Idle(outcome.Snapshot)
		inst.lastSuccessAt = now
		inst.lastFailure = ""
		inst.consecutiveFailures = 0
	} else {
		inst.display = model.Absent(model.AbsentUnavailable)
		inst.lastFailure = outcome.Reason
		inst.consecutiveFailures++
		s.logger.Warn("rate fetch failed",
			zap.String("instance", string(inst.id)),
			zap.String("trigger", string(trigger)),
			zap.Int("consecutive_failures", inst.consecutiveFailures),
			zap.Error(outcome.Err))
	}
	if inst.inFlight == 0 {
		inst.phase = model.PhaseIdle
	}

	s.surface.Render(inst.id, model.IdleVisual(inst.display))

	next := now.Add(model.RefreshInterval)
	inst.handle = s.alarms.Schedule(inst.id, next)
	inst.nextTickAt = next
}

type instance struct {
	id     model.InstanceID
	ctx    context.Context
	cancel context.CancelFunc

	mu                  sync.Mutex
	phase               model.Phase
	display             model.DisplayState
	inFlight            int
	handle              model.ScheduleHandle
	nextTickAt          time.Time
	lastSuccessAt       time.Time
	lastFailure         string
	consecutiveFailures int
	removed             bool
}

func newInstance(id model.InstanceID) *instance {
	ctx, cancel := context.WithCancel(context.Background())
	return &instance{
		id:      id,
		ctx:     ctx,
		cancel:  cancel,
		display: model.Absent(model.AbsentNotFetched),
	}
}

func (i *instance) status() model.WidgetStatus {
	i.mu.Lock()
	defer i.mu.Unlock()
	st := model.WidgetStatus{
		ID:                  i.id,
		Phase:               i.phase,
		State:               i.display,
		InFlight:            i.inFlight,
		NextTickAt:          i.nextTickAt,
		LastSuccessAt:       i.lastSuccessAt,
		LastFailure:         i.lastFailure,
		ConsecutiveFailures: i.consecutiveFailures,
	}
	if i.display.HasRates() {
		st.GoldSell = i.display.Snapshot.GoldSell
		st.SilverSell = i.display.Snapshot.SilverSell
	}
	return st
}
