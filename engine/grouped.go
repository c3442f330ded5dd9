package engine

import (
	"github.com/pthm-cable/collide/components"
	"github.com/pthm-cable/collide/events"
	"github.com/pthm-cable/collide/telemetry"
)

// Grouped files each particle's predictions in its own sub-queue.
// Re-predicting a particle replaces its whole sub-queue, so most stale
// events leave the queue without ever being popped. Event order and
// physical outcome are identical to Engine.
type Grouped struct {
	*core
	queue  *events.GroupQueue
	buf    []events.Event
	marker int // owner of the horizon marker
}

var _ Stepper = (*Grouped)(nil)

// NewGrouped is the sub-queue counterpart of New.
func NewGrouped(particles []components.Particle, width, height float64, opts Options) (*Grouped, error) {
	c, err := newCore(particles, width, height, opts)
	if err != nil {
		return nil, err
	}

	n := len(particles)
	g := &Grouped{
		core:   c,
		queue:  events.NewGroupQueue(n + 1),
		buf:    make([]events.Event, 0, n+2),
		marker: n,
	}
	if err := g.prime(); err != nil {
		g.Close()
		return nil, err
	}
	return g, nil
}

func (g *Grouped) prime() error {
	if g.bounded() {
		g.queue.Replace(g.marker, []events.Event{events.Marker(g.horizon)})
	}
	for i := range g.particles {
		if err := g.repredict(i); err != nil {
			return g.abort(err)
		}
	}
	if err := g.checkCapacity(g.queue.Len()); err != nil {
		return g.abort(err)
	}
	g.log.RecordAll(g.clock, g.particles)
	g.state = StateStepping
	return nil
}

func (g *Grouped) collect(e events.Event) {
	g.buf = append(g.buf, e)
}

// repredict replaces particle i's sub-queue with fresh predictions.
func (g *Grouped) repredict(i int) error {
	g.buf = g.buf[:0]
	if err := g.predict(i, g.collect); err != nil {
		return err
	}
	g.queue.Replace(i, g.buf)
	return nil
}

// Step pops events until a valid one is found and processes it.
func (g *Grouped) Step() (float64, error) {
	if g.err != nil {
		return g.clock, g.err
	}
	g.startStep()
	defer g.endStep()

	for {
		g.phase(telemetry.PhasePop)
		ev, _, ok := g.queue.Pop()
		if !ok {
			g.state = StateDrained
			return g.clock, nil
		}
		if !ev.Valid(g.version) {
			g.counters.Stale++
			continue
		}

		if err := g.process(ev, g.repredict); err != nil {
			return g.clock, g.abort(err)
		}
		if err := g.checkCapacity(g.queue.Len()); err != nil {
			return g.clock, g.abort(err)
		}
		return g.clock, nil
	}
}

// QueueLength returns the number of queued events across all sub-queues.
func (g *Grouped) QueueLength() int {
	return g.queue.Len()
}

// Groups returns the number of non-empty sub-queues.
func (g *Grouped) Groups() int {
	return g.queue.Groups()
}
