package engine

import (
	"github.com/pthm-cable/collide/components"
	"github.com/pthm-cable/collide/events"
	"github.com/pthm-cable/collide/telemetry"
)

// initialQueueCap bounds the up-front queue allocation for large systems.
const initialQueueCap = 1 << 16

// Engine keeps every prediction in a single flat queue.
type Engine struct {
	*core
	queue *events.Queue
}

var _ Stepper = (*Engine)(nil)

// New validates particles, copies them, predicts every future contact and
// records the initial full snapshot at time 0.
func New(particles []components.Particle, width, height float64, opts Options) (*Engine, error) {
	c, err := newCore(particles, width, height, opts)
	if err != nil {
		return nil, err
	}

	n := len(particles)
	e := &Engine{core: c, queue: events.NewQueue(min(n*(n+2)+1, initialQueueCap))}
	if err := e.prime(); err != nil {
		e.Close()
		return nil, err
	}
	return e, nil
}

func (e *Engine) prime() error {
	if e.bounded() {
		e.queue.Push(events.Marker(e.horizon))
	}
	for i := range e.particles {
		if err := e.predict(i, e.queue.Push); err != nil {
			return e.abort(err)
		}
	}
	if err := e.checkCapacity(e.queue.Len()); err != nil {
		return e.abort(err)
	}
	e.log.RecordAll(e.clock, e.particles)
	e.state = StateStepping
	return nil
}

// Step pops events until a valid one is found and processes it.
func (e *Engine) Step() (float64, error) {
	if e.err != nil {
		return e.clock, e.err
	}
	e.startStep()
	defer e.endStep()

	for {
		e.phase(telemetry.PhasePop)
		ev, ok := e.queue.Pop()
		if !ok {
			e.state = StateDrained
			return e.clock, nil
		}
		if !ev.Valid(e.version) {
			e.counters.Stale++
			continue
		}

		if err := e.process(ev, e.repredict); err != nil {
			return e.clock, e.abort(err)
		}
		if err := e.checkCapacity(e.queue.Len()); err != nil {
			return e.clock, e.abort(err)
		}
		return e.clock, nil
	}
}

func (e *Engine) repredict(i int) error {
	return e.predict(i, e.queue.Push)
}

// QueueLength returns the number of queued events, stale ones included.
func (e *Engine) QueueLength() int {
	return e.queue.Len()
}
