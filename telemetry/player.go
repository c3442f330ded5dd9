package telemetry

import (
	"errors"
	"fmt"

	"github.com/pthm-cable/collide/components"
)

// ErrCountMismatch is returned when a frame buffer does not match the number
// of particles in the log.
var ErrCountMismatch = errors.New("particle count mismatch")

// Player walks a snapshot log forward in time at its own cadence, keeping
// the latest update of every particle. It never mutates the log.
type Player struct {
	log     *SnapshotLog
	pos     int // index of the last applied entry
	states  []ParticleState
	updated []float64
}

// NewPlayer creates a player positioned at the log's first entry.
func NewPlayer(log *SnapshotLog) (*Player, error) {
	if log.IsEmpty() || !log.At(0).Full {
		return nil, ErrEmptyLog
	}
	p := &Player{log: log}
	p.Rewind()
	return p, nil
}

// Rewind resets the player to the first entry.
func (p *Player) Rewind() {
	first := p.log.At(0)
	p.pos = 0
	p.states = make([]ParticleState, len(first.Particles))
	p.updated = make([]float64, len(first.Particles))
	p.apply(first)
}

func (p *Player) apply(e Entry) {
	for _, s := range e.Particles {
		p.states[s.Index] = s
		p.updated[s.Index] = e.Time
	}
}

// Seek applies every entry with time at or before t. Seeking backwards rewinds.
func (p *Player) Seek(t float64) {
	if t < p.log.At(p.pos).Time {
		p.Rewind()
	}
	for p.pos+1 < p.log.Len() && p.log.At(p.pos+1).Time <= t {
		p.pos++
		p.apply(p.log.At(p.pos))
	}
}

// Frame seeks to t and writes every particle's extrapolated position into dst.
func (p *Player) Frame(t float64, dst []components.Position) error {
	if len(dst) != len(p.states) {
		return fmt.Errorf("frame buffer has %d slots for %d particles: %w", len(dst), len(p.states), ErrCountMismatch)
	}
	p.Seek(t)
	for i, s := range p.states {
		s = s.At(p.updated[i], t)
		dst[i] = components.Position{X: s.X, Y: s.Y}
	}
	return nil
}

// States returns the extrapolated state of every particle at t.
func (p *Player) States(t float64) []ParticleState {
	p.Seek(t)
	out := make([]ParticleState, len(p.states))
	for i, s := range p.states {
		out[i] = s.At(p.updated[i], t)
	}
	return out
}

// Done reports whether the last entry has been applied.
func (p *Player) Done() bool {
	return p.pos+1 >= p.log.Len()
}

// EndTime returns the time of the last entry.
func (p *Player) EndTime() float64 {
	return p.log.LastTime()
}
