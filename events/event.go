// Package events defines predicted collision events and the queues that order them.
package events

import "fmt"

// NoParticle marks an unused participant slot.
const NoParticle = -1

// Kind is the shape of an event, derived from which participant slots are set.
type Kind uint8

const (
	KindMarker         Kind = iota // no participants; horizon marker
	KindPair                       // particle-particle
	KindVerticalWall               // particle A against the left/right wall
	KindHorizontalWall             // particle B against the top/bottom wall
)

func (k Kind) String() string {
	switch k {
	case KindPair:
		return "pair"
	case KindVerticalWall:
		return "vertical_wall"
	case KindHorizontalWall:
		return "horizontal_wall"
	default:
		return "marker"
	}
}

// Event is an immutable prediction. The version fields snapshot the
// participants' mutation counters at prediction time.
type Event struct {
	Time     float64
	IndexA   int
	IndexB   int
	VersionA int
	VersionB int
}

// Pair creates a particle-particle event.
func Pair(t float64, a, versionA, b, versionB int) Event {
	return Event{Time: t, IndexA: a, VersionA: versionA, IndexB: b, VersionB: versionB}
}

// VerticalWall creates a wall event for particle a. Only slot A is set.
func VerticalWall(t float64, a, versionA int) Event {
	return Event{Time: t, IndexA: a, VersionA: versionA, IndexB: NoParticle, VersionB: NoParticle}
}

// HorizontalWall creates a wall event for particle b. Only slot B is set.
func HorizontalWall(t float64, b, versionB int) Event {
	return Event{Time: t, IndexA: NoParticle, VersionA: NoParticle, IndexB: b, VersionB: versionB}
}

// Marker creates an event with no participants.
func Marker(t float64) Event {
	return Event{Time: t, IndexA: NoParticle, VersionA: NoParticle, IndexB: NoParticle, VersionB: NoParticle}
}

// Kind returns the event's shape.
func (e Event) Kind() Kind {
	switch {
	case e.IndexA != NoParticle && e.IndexB != NoParticle:
		return KindPair
	case e.IndexA != NoParticle:
		return KindVerticalWall
	case e.IndexB != NoParticle:
		return KindHorizontalWall
	default:
		return KindMarker
	}
}

// Valid reports whether every referenced participant still has the version
// captured at prediction time. version returns the current counter for an index.
func (e Event) Valid(version func(int) int) bool {
	if e.IndexA != NoParticle && version(e.IndexA) != e.VersionA {
		return false
	}
	if e.IndexB != NoParticle && version(e.IndexB) != e.VersionB {
		return false
	}
	return true
}

// Participants returns the real particle indices, A first.
func (e Event) Participants() []int {
	out := make([]int, 0, 2)
	if e.IndexA != NoParticle {
		out = append(out, e.IndexA)
	}
	if e.IndexB != NoParticle {
		out = append(out, e.IndexB)
	}
	return out
}

func (e Event) String() string {
	return fmt.Sprintf("%s@%g[%d/%d,%d/%d]", e.Kind(), e.Time, e.IndexA, e.VersionA, e.IndexB, e.VersionB)
}
