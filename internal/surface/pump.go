// Package surface contains the render plumbing shared by every widget surface.
package surface

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/tinytelemetry/goldrates/internal/model"
)

// Pump decouples Render callers from a sink that may block, such as a
// Bubble Tea program. Renders are delivered on one goroutine. While the sink
// is busy, a newer render for an instance replaces that instance's queued
// one, so the latest visual of every instance is always delivered. Instances
// are delivered in the order they first became pending.
type Pump struct {
	ctx    context.Context
	cancel context.CancelFunc

	sink   model.SurfaceRenderer
	logger *zap.Logger
	wake   chan struct{}

	mu        sync.Mutex
	pending   map[model.InstanceID]model.Visual
	order     []model.InstanceID
	coalesced uint64

	startOnce sync.Once
	stopOnce  sync.Once
	wg        sync.WaitGroup
}

var _ model.SurfaceRenderer = (*Pump)(nil)

func NewPump(parent context.Context, sink model.SurfaceRenderer, logger *zap.Logger) *Pump {
	if logger == nil {
		logger = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(parent)
	return &Pump{
		ctx:     ctx,
		cancel:  cancel,
		sink:    sink,
		logger:  logger,
		wake:    make(chan struct{}, 1),
		pending: make(map[model.InstanceID]model.Visual),
	}
}

func (p *Pump) Start() {
	p.startOnce.Do(func() {
		p.wg.Add(1)
		go p.run()
	})
}

// Stop ends delivery. Pending renders that were not delivered are discarded.
func (p *Pump) Stop() {
	p.stopOnce.Do(func() {
		p.cancel()
		p.wg.Wait()
	})
}

// Render records v as the latest visual for id and returns immediately.
func (p *Pump) Render(id model.InstanceID, v model.Visual) {
	if p.ctx.Err() != nil {
		return
	}

	p.mu.Lock()
	if _, queued := p.pending[id]; queued {
		p.coalesced++
	} else {
		p.order = append(p.order, id)
	}
	p.pending[id] = v
	p.mu.Unlock()

	select {
	case p.wake <- struct{}{}:
	default:
	}
}

// next pops the oldest pending instance with its latest visual.
func (p *Pump) next() (model.InstanceID, model.Visual, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.order) == 0 {
		return "", model.Visual{}, false
	}
	id := p.order[0]
	p.order[0] = ""
	p.order = p.order[1:]
	v := p.pending[id]
	delete(p.pending, id)
	return id, v, true
}

func (p *Pump) run() {
	defer p.wg.Done()
	for {
		select {
		case <-p.ctx.Done():
			p.mu.Lock()
			n := p.coalesced
			p.mu.Unlock()
			if n > 0 {
				p.logger.Debug("render pump stopped", zap.Uint64("coalesced", n))
			}
			return
		case <-p.wake:
		}

		for p.ctx.Err() == nil {
			id, v, ok := p.next()
			if !ok {
				break
			}
			p.sink.Render(id, v)
		}
	}
}
