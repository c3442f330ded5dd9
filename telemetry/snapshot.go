// Package telemetry records simulation history and run statistics.
package telemetry

import (
	"errors"
	"fmt"
	"sort"

	"github.com/pthm-cable/collide/components"
)

// ErrEmptyLog is returned when reconstructing state from a log with no full entry.
var ErrEmptyLog = errors.New("snapshot log is empty")

// ParticleState is one particle's kinematic state at an entry's time.
type ParticleState struct {
	Index int
	X, Y  float64
	VX    float64
	VY    float64
}

// StateOf captures particle i.
func StateOf(i int, p *components.Particle) ParticleState {
	return ParticleState{Index: i, X: p.Pos.X, Y: p.Pos.Y, VX: p.Vel.X, VY: p.Vel.Y}
}

// At extrapolates the state from its recorded time t0 to t.
func (s ParticleState) At(t0, t float64) ParticleState {
	dt := t - t0
	s.X += s.VX * dt
	s.Y += s.VY * dt
	return s
}

// Entry is one record of the log. Full entries hold every particle; the
// others hold only the particles whose velocity changed at Time.
type Entry struct {
	Time      float64
	Full      bool
	Particles []ParticleState
}

// SnapshotLog is an append-only, time-ordered history of particle updates.
// The engine is the only writer; players read it without mutating it.
type SnapshotLog struct {
	entries []Entry
	count   int // particles per full entry
}

// NewSnapshotLog creates an empty log.
func NewSnapshotLog() *SnapshotLog {
	return &SnapshotLog{}
}

// Record appends a partial entry. Times must be non-decreasing.
func (l *SnapshotLog) Record(t float64, states ...ParticleState) {
	l.append(Entry{Time: t, Particles: states})
}

// RecordAll appends a full entry covering every particle.
func (l *SnapshotLog) RecordAll(t float64, particles []components.Particle) {
	states := make([]ParticleState, len(particles))
	for i := range particles {
		states[i] = StateOf(i, &particles[i])
	}
	if len(l.entries) == 0 {
		l.count = len(particles)
	}
	l.append(Entry{Time: t, Full: true, Particles: states})
}

func (l *SnapshotLog) append(e Entry) {
	if n := len(l.entries); n > 0 && e.Time < l.entries[n-1].Time {
		panic(fmt.Sprintf("telemetry: snapshot time %g before %g", e.Time, l.entries[n-1].Time))
	}
	l.entries = append(l.entries, e)
}

// Len returns the number of entries.
func (l *SnapshotLog) Len() int {
	return len(l.entries)
}

// At returns entry i. The returned entry must not be modified.
func (l *SnapshotLog) At(i int) Entry {
	return l.entries[i]
}

// Entries returns the backing slice. It must not be modified.
func (l *SnapshotLog) Entries() []Entry {
	return l.entries
}

// Count returns the number of particles in the first full entry.
func (l *SnapshotLog) Count() int {
	return l.count
}

// IsEmpty reports whether nothing has been recorded.
func (l *SnapshotLog) IsEmpty() bool {
	return len(l.entries) == 0
}

// LastTime returns the time of the last entry, or 0 if the log is empty.
func (l *SnapshotLog) LastTime() float64 {
	if len(l.entries) == 0 {
		return 0
	}
	return l.entries[len(l.entries)-1].Time
}

// LastIsFull reports whether the last entry is a full snapshot.
func (l *SnapshotLog) LastIsFull() bool {
	return len(l.entries) > 0 && l.entries[len(l.entries)-1].Full
}

// StateAt reconstructs every particle at time t: for each particle it takes
// the latest update at or before t and extrapolates linearly.
func (l *SnapshotLog) StateAt(t float64) ([]ParticleState, error) {
	if len(l.entries) == 0 || !l.entries[0].Full {
		return nil, ErrEmptyLog
	}

	// Last entry with Time <= t.
	last := sort.Search(len(l.entries), func(i int) bool { return l.entries[i].Time > t }) - 1
	if last < 0 {
		last = 0
	}

	// Walk back to the nearest full entry, then replay forward.
	start := last
	for start > 0 && !l.entries[start].Full {
		start--
	}

	states := make([]ParticleState, l.count)
	updated := make([]float64, l.count)
	for i := start; i <= last; i++ {
		e := &l.entries[i]
		for _, s := range e.Particles {
			states[s.Index] = s
			updated[s.Index] = e.Time
		}
	}
	for i := range states {
		states[i] = states[i].At(updated[i], t)
	}
	return states, nil
}
