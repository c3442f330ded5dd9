// Package systems contains ECS systems for the simulation.
package systems

import (
	"fmt"
	"math"

	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/collide/components"
	"github.com/pthm-cable/collide/engine"
	"github.com/pthm-cable/collide/events"
	"github.com/pthm-cable/collide/telemetry"
)

// Bounds represents the simulation box.
type Bounds struct {
	Width, Height float64
}

// CollisionSystem is the ECS rendition of the event-driven engine. Each
// particle is an entity with Position, Velocity, Body and Version; events
// refer to particles by their index in entities.
//
// Prediction always runs on the calling goroutine; Options.Workers is ignored.
type CollisionSystem struct {
	world    *ecs.World
	mapper   *ecs.Map4[components.Position, components.Velocity, components.Body, components.Version]
	moving   ecs.Filter2[components.Position, components.Velocity]
	entities []ecs.Entity

	bounds   Bounds
	horizon  float64
	maxQueue int

	queue    *events.Queue
	log      *telemetry.SnapshotLog
	perf     *telemetry.PerfCollector
	clock    float64
	state    engine.State
	err      error
	counters telemetry.Counters
	last     events.Event
	hasLast  bool
}

var _ engine.Stepper = (*CollisionSystem)(nil)

// NewCollisionSystem creates a world holding one entity per particle,
// predicts every future contact and records the initial full snapshot.
func NewCollisionSystem(particles []components.Particle, width, height float64, opts engine.Options) (*CollisionSystem, error) {
	if err := engine.Validate(particles, width, height); err != nil {
		return nil, err
	}
	if math.IsNaN(opts.Horizon) || opts.Horizon < 0 {
		return nil, fmt.Errorf("horizon %g must not be negative", opts.Horizon)
	}

	w := ecs.NewWorld()
	s := &CollisionSystem{
		world:    w,
		mapper:   ecs.NewMap4[components.Position, components.Velocity, components.Body, components.Version](w),
		moving:   *ecs.NewFilter2[components.Position, components.Velocity](w),
		entities: make([]ecs.Entity, len(particles)),
		bounds:   Bounds{Width: width, Height: height},
		horizon:  opts.Limit(),
		maxQueue: opts.MaxQueue,
		queue:    events.NewQueue(len(particles) * 4),
		log:      telemetry.NewSnapshotLog(),
		perf:     opts.Perf,
		state:    engine.StatePriming,
	}

	for i := range particles {
		pos, vel, body, ver := particles[i].Components()
		s.entities[i] = s.mapper.NewEntity(&pos, &vel, &body, &ver)
	}

	if !math.IsInf(s.horizon, 1) {
		s.queue.Push(events.Marker(s.horizon))
	}
	for i := range s.entities {
		if err := s.predict(i); err != nil {
			return nil, s.abort(err)
		}
	}
	if err := s.checkCapacity(); err != nil {
		return nil, s.abort(err)
	}
	s.log.RecordAll(0, s.Particles())
	s.state = engine.StateStepping
	return s, nil
}

// particle extracts the record for index i.
func (s *CollisionSystem) particle(i int) components.Particle {
	pos, vel, body, ver := s.mapper.Get(s.entities[i])
	return components.FromComponents(pos, vel, body, ver)
}

// store writes a resolved record back into its entity.
func (s *CollisionSystem) store(i int, p *components.Particle) {
	pos, vel, _, ver := s.mapper.Get(s.entities[i])
	p.Store(pos, vel, ver)
}

func (s *CollisionSystem) version(i int) int {
	_, _, _, ver := s.mapper.Get(s.entities[i])
	return ver.N
}

func (s *CollisionSystem) predict(i int) error {
	p := s.particle(i)
	for j := range s.entities {
		if j == i {
			continue
		}
		q := s.particle(j)
		if dt := p.TimeToHit(&q); !math.IsInf(dt, 1) {
			if err := s.schedule(events.Pair(s.clock+dt, i, p.Version, j, q.Version), dt); err != nil {
				return err
			}
		}
	}
	if dt := p.TimeToHitVerticalWall(0, s.bounds.Width); !math.IsInf(dt, 1) {
		if err := s.schedule(events.VerticalWall(s.clock+dt, i, p.Version), dt); err != nil {
			return err
		}
	}
	if dt := p.TimeToHitHorizontalWall(0, s.bounds.Height); !math.IsInf(dt, 1) {
		if err := s.schedule(events.HorizontalWall(s.clock+dt, i, p.Version), dt); err != nil {
			return err
		}
	}
	return nil
}

func (s *CollisionSystem) schedule(e events.Event, dt float64) error {
	if !(dt > 0) {
		return fmt.Errorf("%w: %s predicted dt %g at clock %g", engine.ErrInvariant, e, dt, s.clock)
	}
	if e.Time > s.horizon {
		s.counters.Discarded++
		return nil
	}
	s.counters.Predicted++
	s.queue.Push(e)
	return nil
}

// advance moves every entity along its velocity.
func (s *CollisionSystem) advance(dt float64) {
	query := s.moving.Query()
	for query.Next() {
		pos, vel := query.Get()
		pos.X += vel.X * dt
		pos.Y += vel.Y * dt
	}
}

func (s *CollisionSystem) resolve(e events.Event) {
	switch e.Kind() {
	case events.KindPair:
		a, b := s.particle(e.IndexA), s.particle(e.IndexB)
		a.BounceOff(&b)
		s.store(e.IndexA, &a)
		s.store(e.IndexB, &b)
		s.counters.PairCollisions++
	case events.KindVerticalWall:
		a := s.particle(e.IndexA)
		a.BounceOffVerticalWall()
		s.store(e.IndexA, &a)
		s.counters.VerticalWall++
	case events.KindHorizontalWall:
		b := s.particle(e.IndexB)
		b.BounceOffHorizontalWall()
		s.store(e.IndexB, &b)
		s.counters.HorizontalWall++
	case events.KindMarker:
		s.counters.Markers++
	}
}

// Step pops events until a valid one is found and processes it.
func (s *CollisionSystem) Step() (float64, error) {
	if s.err != nil {
		return s.clock, s.err
	}
	s.startStep()
	defer s.endStep()

	for {
		s.phase(telemetry.PhasePop)
		ev, ok := s.queue.Pop()
		if !ok {
			s.state = engine.StateDrained
			return s.clock, nil
		}
		if !ev.Valid(s.version) {
			s.counters.Stale++
			continue
		}

		s.phase(telemetry.PhaseAdvance)
		dt := ev.Time - s.clock
		if dt < 0 {
			return s.clock, s.abort(fmt.Errorf("%w: %s is %g before clock %g", engine.ErrInvariant, ev, -dt, s.clock))
		}
		s.advance(dt)
		s.clock = ev.Time

		s.phase(telemetry.PhaseResolve)
		s.resolve(ev)
		s.counters.Events++
		s.last, s.hasLast = ev, true

		s.phase(telemetry.PhasePredict)
		participants := ev.Participants()
		for _, i := range participants {
			if err := s.predict(i); err != nil {
				return s.clock, s.abort(err)
			}
		}

		s.phase(telemetry.PhaseRecord)
		if ev.Kind() == events.KindMarker {
			s.SnapshotAll()
		} else {
			states := make([]telemetry.ParticleState, len(participants))
			for k, i := range participants {
				p := s.particle(i)
				states[k] = telemetry.StateOf(i, &p)
			}
			s.log.Record(s.clock, states...)
		}

		if err := s.checkCapacity(); err != nil {
			return s.clock, s.abort(err)
		}
		return s.clock, nil
	}
}

func (s *CollisionSystem) checkCapacity() error {
	if s.maxQueue > 0 && s.queue.Len() > s.maxQueue {
		return fmt.Errorf("%w: %d events queued, limit %d", engine.ErrQueueCapacity, s.queue.Len(), s.maxQueue)
	}
	return nil
}

func (s *CollisionSystem) abort(err error) error {
	s.state = engine.StateAborted
	s.err = err
	return err
}

func (s *CollisionSystem) phase(name string) {
	if s.perf != nil {
		s.perf.StartPhase(name)
	}
}

func (s *CollisionSystem) startStep() {
	if s.perf != nil {
		s.perf.StartStep()
	}
}

func (s *CollisionSystem) endStep() {
	if s.perf != nil {
		s.perf.EndStep()
	}
}

// World returns the underlying ECS world.
func (s *CollisionSystem) World() *ecs.World { return s.world }

// Entity returns the entity for particle index i.
func (s *CollisionSystem) Entity(i int) ecs.Entity { return s.entities[i] }

func (s *CollisionSystem) SystemTime() float64 { return s.clock }
func (s *CollisionSystem) QueueLength() int { return s.queue.Len() }
func (s *CollisionSystem) State() engine.State { return s.state }
func (s *CollisionSystem) Log() *telemetry.SnapshotLog { return s.log }
func (s *CollisionSystem) Counters() telemetry.Counters { return s.counters }
func (s *CollisionSystem) LastEvent() (events.Event, bool) { return s.last, s.hasLast }

// Particles extracts every entity into a fresh slice, in index order.
func (s *CollisionSystem) Particles() []components.Particle {
	out := make([]components.Particle, len(s.entities))
	for i := range s.entities {
		out[i] = s.particle(i)
	}
	return out
}

// SnapshotAll appends a full snapshot at the current clock.
func (s *CollisionSystem) SnapshotAll() {
	s.log.RecordAll(s.clock, s.Particles())
}

// Close is a no-op; the system owns no goroutines.
func (s *CollisionSystem) Close() {}
