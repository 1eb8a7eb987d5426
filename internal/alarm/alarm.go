// Package alarm arranges one future wake-up per widget instance.
//
// Delivery is exact when the capability allows it. Otherwise the wake-up is
// rounded up to the next InexactWindow boundary: it may be late, never early.
package alarm

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/tinytelemetry/goldrates/internal/clock"
	"github.com/tinytelemetry/goldrates/internal/model"
)

// InexactWindow is the delivery granularity used when exact alarms are denied.
const InexactWindow = time.Minute

// Capability reports whether exact wake-ups are currently permitted.
type Capability interface {
	CanScheduleExactly() bool
}

// CapabilityFunc adapts a function to Capability.
type CapabilityFunc func() bool

func (f CapabilityFunc) CanScheduleExactly() bool { return f() }

// Exact returns a fixed capability.
func Exact(allowed bool) Capability {
	return CapabilityFunc(func() bool { return allowed })
}

// Handler receives fired wake-ups.
type Handler func(id model.InstanceID)

type entry struct {
	handle model.ScheduleHandle
	at     time.Time
	timer  clock.Timer
}

// Manager implements model.AlarmPort on top of a clock.
type Manager struct {
	clock      clock.Clock
	capability Capability
	logger     *zap.Logger

	mu      sync.Mutex
	handler Handler
	seq     uint64
	pending map[model.InstanceID]*entry
	stopped bool
}

var _ model.AlarmPort = (*Manager)(nil)

// NewManager creates an alarm manager. A nil capability means exact delivery.
func NewManager(clk clock.Clock, capability Capability, logger *zap.Logger) *Manager {
	if clk == nil {
		clk = clock.System
	}
	if capability == nil {
		capability = Exact(true)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		clock:      clk,
		capability: capability,
		logger:     logger,
		pending:    make(map[model.InstanceID]*entry),
	}
}

// Bind sets the fire target. Wake-ups that fire while unbound are dropped.
func (m *Manager) Bind(h Handler) {
	m.mu.Lock()
	m.handler = h
	m.mu.Unlock()
}

// Schedule arms a wake-up for id at the given time, replacing any pending one.
func (m *Manager) Schedule(id model.InstanceID, at time.Time) model.ScheduleHandle {
	deliverAt := at
	if !m.canScheduleExactly() {
		deliverAt = roundUp(at, InexactWindow)
		m.logger.Debug("exact alarm denied, using inexact delivery",
			zap.String("instance", string(id)),
			zap.Time("requested", at),
			zap.Time("deliver_at", deliverAt))
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.stopped {
		return model.ScheduleHandle{}
	}
	if prev, ok := m.pending[id]; ok {
		prev.timer.Stop()
	}

	m.seq++
	h := model.ScheduleHandle{Instance: id, Seq: m.seq}
	delay := deliverAt.Sub(m.clock.Now())
	if delay < 0 {
		delay = 0
	}
	e := &entry{handle: h, at: deliverAt}
	e.timer = m.clock.AfterFunc(delay, func() { m.fire(h) })
	m.pending[id] = e
	return h
}

// Cancel stops the wake-up referenced by h. Stale handles are ignored.
func (m *Manager) Cancel(h model.ScheduleHandle) {
	if h.IsZero() {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.pending[h.Instance]
	if !ok || e.handle != h {
		return
	}
	e.timer.Stop()
	delete(m.pending, h.Instance)
}

// Pending reports when the wake-up for id is due to fire.
func (m *Manager) Pending(id model.InstanceID) (time.Time, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.pending[id]
	if !ok {
		return time.Time{}, false
	}
	return e.at, true
}

// Stop cancels every pending wake-up and refuses new ones.
func (m *Manager) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stopped = true
	for id, e := range m.pending {
		e.timer.Stop()
		delete(m.pending, id)
	}
}

func (m *Manager) fire(h model.ScheduleHandle) {
	m.mu.Lock()
	e, ok := m.pending[h.Instance]
	if !ok || e.handle != h {
		m.mu.Unlock()
		return
	}
	delete(m.pending, h.Instance)
	handler := m.handler
	m.mu.Unlock()

	if handler == nil {
		m.logger.Warn("alarm fired with no handler bound", zap.String("instance", string(h.Instance)))
		return
	}
	handler(h.Instance)
}

// canScheduleExactly treats a failing capability query as a denial.
func (m *Manager) canScheduleExactly() (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			m.logger.Debug("exact alarm capability query failed", zap.Any("panic", r))
			ok = false
		}
	}()
	return m.capability.CanScheduleExactly()
}

func roundUp(t time.Time, window time.Duration) time.Time {
	floor := t.Truncate(window)
	if floor.Equal(t) {
		return t
	}
	return floor.Add(window)
}
