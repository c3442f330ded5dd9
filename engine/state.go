// Package engine implements event-driven elastic collision simulation.
//
// An engine predicts every future particle-particle and particle-wall
// contact, keeps the predictions in a time-ordered queue, and jumps the
// clock from one contact to the next. Predictions are invalidated lazily:
// each event remembers the version of its participants and is discarded
// at pop time if either has collided since.
package engine

import (
	"math"

	"github.com/pthm-cable/collide/components"
	"github.com/pthm-cable/collide/events"
	"github.com/pthm-cable/collide/telemetry"
)

// State is the engine's lifecycle phase.
type State uint8

const (
	StatePriming State = iota
	StateStepping
	StateDrained
	StateAborted
)

func (s State) String() string {
	switch s {
	case StatePriming:
		return "priming"
	case StateStepping:
		return "stepping"
	case StateDrained:
		return "drained"
	case StateAborted:
		return "aborted"
	default:
		return "unknown"
	}
}

// DefaultParallelThreshold is the particle count below which prediction
// stays on the calling goroutine when Workers > 1.
const DefaultParallelThreshold = 256

// Options tunes an engine. The zero value predicts without a horizon,
// without a queue limit, and on the calling goroutine.
type Options struct {
	// Horizon is the simulated end time. Predictions later than it are
	// dropped and a marker at Horizon records a full snapshot. 0 = none.
	Horizon float64

	// MaxQueue aborts the run when the queue holds more events. 0 = none.
	MaxQueue int

	// Workers > 1 computes pair times on a worker pool.
	Workers int

	// ParallelThreshold is the minimum particle count for the pool.
	// 0 uses DefaultParallelThreshold.
	ParallelThreshold int

	// Perf, when set, times every step by phase.
	Perf *telemetry.PerfCollector
}

// Limit returns the effective horizon, +Inf when none is set.
func (o Options) Limit() float64 {
	if o.Horizon <= 0 {
		return math.Inf(1)
	}
	return o.Horizon
}

// Threshold returns the effective parallel threshold.
func (o Options) Threshold() int {
	if o.ParallelThreshold <= 0 {
		return DefaultParallelThreshold
	}
	return o.ParallelThreshold
}

// Stepper is the contract shared by every engine variant.
// Implementations are single-writer: Step must not be called concurrently.
type Stepper interface {
	// Step processes exactly one valid event and returns the new clock.
	// A drained engine returns the unchanged clock and a nil error.
	// After an abort every call returns the same error.
	Step() (float64, error)

	SystemTime() float64
	QueueLength() int
	State() State
	Log() *telemetry.SnapshotLog

	// Particles returns a copy of the current particle states.
	Particles() []components.Particle
	Counters() telemetry.Counters

	// LastEvent returns the most recently processed valid event.
	LastEvent() (events.Event, bool)

	// SnapshotAll appends a full snapshot at the current clock.
	SnapshotAll()

	// Close releases worker goroutines.
	Close()
}
