package surface

import (
	"sync"

	"github.com/tinytelemetry/goldrates/internal/model"
)

// Dedupe drops a render equal to the last one forwarded for the same instance.
type Dedupe struct {
	next model.SurfaceRenderer

	mu   sync.Mutex
	last map[model.InstanceID]model.Visual
}

var _ model.SurfaceRenderer = (*Dedupe)(nil)

func NewDedupe(next model.SurfaceRenderer) *Dedupe {
	return &Dedupe{next: next, last: make(map[model.InstanceID]model.Visual)}
}

// Render forwards v unless it repeats the previous visual. Forwarding happens
// under the lock so the sink sees renders in the order they were accepted.
func (d *Dedupe) Render(id model.InstanceID, v model.Visual) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if prev, ok := d.last[id]; ok && prev == v {
		return
	}
	d.last[id] = v
	d.next.Render(id, v)
}

// Forget clears the memory for id so a re-placed widget renders from scratch.
func (d *Dedupe) Forget(id model.InstanceID) {
	d.mu.Lock()
	delete(d.last, id)
	d.mu.Unlock()
	if f, ok := d.next.(interface{ Forget(model.InstanceID) }); ok {
		f.Forget(id)
	}
}
