package engine

import (
	"fmt"
	"math"

	"github.com/pthm-cable/collide/components"
	"github.com/pthm-cable/collide/events"
	"github.com/pthm-cable/collide/telemetry"
)

// core is the state and physics shared by the flat and grouped engines.
// The variants differ only in how predictions are queued.
type core struct {
	particles []components.Particle
	width     float64
	height    float64
	horizon   float64
	maxQueue  int

	clock    float64
	state    State
	err      error
	counters telemetry.Counters
	last     events.Event
	hasLast  bool

	log  *telemetry.SnapshotLog
	perf *telemetry.PerfCollector

	// Pair times for the particle being predicted, indexed by partner.
	times     []float64
	pool      *predictPool
	threshold int
}

func newCore(particles []components.Particle, width, height float64, opts Options) (*core, error) {
	if err := Validate(particles, width, height); err != nil {
		return nil, err
	}
	if math.IsNaN(opts.Horizon) || opts.Horizon < 0 {
		return nil, fmt.Errorf("horizon %g must not be negative", opts.Horizon)
	}

	c := &core{
		particles: make([]components.Particle, len(particles)),
		width:     width,
		height:    height,
		horizon:   opts.Limit(),
		maxQueue:  opts.MaxQueue,
		state:     StatePriming,
		log:       telemetry.NewSnapshotLog(),
		perf:      opts.Perf,
		times:     make([]float64, len(particles)),
		threshold: opts.Threshold(),
	}
	copy(c.particles, particles)
	if opts.Workers > 1 && len(particles) >= c.threshold {
		c.pool = newPredictPool(opts.Workers)
	}
	return c, nil
}

func (c *core) version(i int) int {
	return c.particles[i].Version
}

func (c *core) bounded() bool {
	return !math.IsInf(c.horizon, 1)
}

// predict computes every future contact of particle i and passes each
// one that falls within the horizon to emit.
func (c *core) predict(i int, emit func(events.Event)) error {
	c.pairTimes(i)

	p := &c.particles[i]
	for j, dt := range c.times {
		if j == i || math.IsInf(dt, 1) {
			continue
		}
		e := events.Pair(c.clock+dt, i, p.Version, j, c.particles[j].Version)
		if err := c.schedule(e, dt, emit); err != nil {
			return err
		}
	}

	if dt := p.TimeToHitVerticalWall(0, c.width); !math.IsInf(dt, 1) {
		if err := c.schedule(events.VerticalWall(c.clock+dt, i, p.Version), dt, emit); err != nil {
			return err
		}
	}
	if dt := p.TimeToHitHorizontalWall(0, c.height); !math.IsInf(dt, 1) {
		if err := c.schedule(events.HorizontalWall(c.clock+dt, i, p.Version), dt, emit); err != nil {
			return err
		}
	}
	return nil
}

func (c *core) schedule(e events.Event, dt float64, emit func(events.Event)) error {
	if !(dt > 0) {
		return fmt.Errorf("%w: %s predicted dt %g at clock %g", ErrInvariant, e, dt, c.clock)
	}
	if e.Time > c.horizon {
		c.counters.Discarded++
		return nil
	}
	c.counters.Predicted++
	emit(e)
	return nil
}

// pairTimes fills c.times with the time to hit every partner of i.
func (c *core) pairTimes(i int) {
	if c.pool != nil {
		c.pool.run(c, i)
		return
	}
	c.computeChunk(i, 0, len(c.particles))
}

func (c *core) computeChunk(i, start, end int) {
	p := &c.particles[i]
	for j := start; j < end; j++ {
		if j == i {
			c.times[j] = components.Infinity
			continue
		}
		c.times[j] = p.TimeToHit(&c.particles[j])
	}
}

// process applies one valid event: advance, resolve, re-predict, record.
func (c *core) process(e events.Event, repredict func(i int) error) error {
	c.phase(telemetry.PhaseAdvance)
	dt := e.Time - c.clock
	if dt < 0 {
		return fmt.Errorf("%w: %s is %g before clock %g", ErrInvariant, e, -dt, c.clock)
	}
	for i := range c.particles {
		c.particles[i].Move(dt)
	}
	c.clock = e.Time

	c.phase(telemetry.PhaseResolve)
	kind := e.Kind()
	switch kind {
	case events.KindPair:
		c.particles[e.IndexA].BounceOff(&c.particles[e.IndexB])
		c.counters.PairCollisions++
	case events.KindVerticalWall:
		c.particles[e.IndexA].BounceOffVerticalWall()
		c.counters.VerticalWall++
	case events.KindHorizontalWall:
		c.particles[e.IndexB].BounceOffHorizontalWall()
		c.counters.HorizontalWall++
	case events.KindMarker:
		c.counters.Markers++
	}
	c.counters.Events++
	c.last, c.hasLast = e, true

	c.phase(telemetry.PhasePredict)
	participants := e.Participants()
	for _, i := range participants {
		if err := repredict(i); err != nil {
			return err
		}
	}

	c.phase(telemetry.PhaseRecord)
	if kind == events.KindMarker {
		c.log.RecordAll(c.clock, c.particles)
		return nil
	}
	states := make([]telemetry.ParticleState, len(participants))
	for k, i := range participants {
		states[k] = telemetry.StateOf(i, &c.particles[i])
	}
	c.log.Record(c.clock, states...)
	return nil
}

func (c *core) checkCapacity(queued int) error {
	if c.maxQueue > 0 && queued > c.maxQueue {
		return fmt.Errorf("%w: %d events queued, limit %d", ErrQueueCapacity, queued, c.maxQueue)
	}
	return nil
}

// abort moves the engine to StateAborted. Every later Step returns err.
func (c *core) abort(err error) error {
	c.state = StateAborted
	c.err = err
	return err
}

func (c *core) phase(name string) {
	if c.perf != nil {
		c.perf.StartPhase(name)
	}
}

func (c *core) startStep() {
	if c.perf != nil {
		c.perf.StartStep()
	}
}

func (c *core) endStep() {
	if c.perf != nil {
		c.perf.EndStep()
	}
}

// SystemTime returns the simulation clock.
func (c *core) SystemTime() float64 { return c.clock }

// State returns the lifecycle phase.
func (c *core) State() State { return c.state }

// Err returns the error that aborted the engine, if any.
func (c *core) Err() error { return c.err }

// Log returns the snapshot log. Readers must not modify it.
func (c *core) Log() *telemetry.SnapshotLog { return c.log }

// Counters returns the cumulative event tallies.
func (c *core) Counters() telemetry.Counters { return c.counters }

// Len returns the number of particles.
func (c *core) Len() int { return len(c.particles) }

// Particles returns a copy of the current particle states.
func (c *core) Particles() []components.Particle {
	out := make([]components.Particle, len(c.particles))
	copy(out, c.particles)
	return out
}

// LastEvent returns the most recently processed valid event.
func (c *core) LastEvent() (events.Event, bool) { return c.last, c.hasLast }

// SnapshotAll appends a full snapshot at the current clock.
func (c *core) SnapshotAll() {
	c.log.RecordAll(c.clock, c.particles)
}

// Close stops the prediction workers. The engine remains usable and
// falls back to serial prediction.
func (c *core) Close() {
	if c.pool != nil {
		c.pool.stop()
		c.pool = nil
	}
}
