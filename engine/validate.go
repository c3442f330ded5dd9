package engine

import (
	"fmt"
	"math"

	"github.com/pthm-cable/collide/components"
	"github.com/pthm-cable/collide/events"
)

func finite(vs ...float64) bool {
	for _, v := range vs {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// Validate checks that particles form a legal initial state for a
// width×height box. Touching is allowed; interpenetration is not.
// The returned error is a *StateError.
func Validate(particles []components.Particle, width, height float64) error {
	if !finite(width, height) || width <= 0 || height <= 0 {
		return &StateError{Index: events.NoParticle, Other: events.NoParticle,
			Reason: fmt.Sprintf("dimensions %gx%g must be positive", width, height)}
	}

	for i := range particles {
		p := &particles[i]
		reject := func(format string, args ...any) error {
			return &StateError{Index: i, Other: events.NoParticle, Reason: fmt.Sprintf(format, args...)}
		}
		switch {
		case !finite(p.Radius) || p.Radius <= 0:
			return reject("radius %g must be positive", p.Radius)
		case !finite(p.Mass) || p.Mass <= 0:
			return reject("mass %g must be positive", p.Mass)
		case !finite(p.Pos.X, p.Pos.Y):
			return reject("position (%g, %g) is not finite", p.Pos.X, p.Pos.Y)
		case !finite(p.Vel.X, p.Vel.Y):
			return reject("velocity (%g, %g) is not finite", p.Vel.X, p.Vel.Y)
		case !p.Inside(width, height):
			return reject("disk at (%g, %g) radius %g is outside the box", p.Pos.X, p.Pos.Y, p.Radius)
		}
	}

	for i := range particles {
		for j := i + 1; j < len(particles); j++ {
			if particles[i].Overlaps(&particles[j]) {
				return &StateError{Index: i, Other: j, Reason: fmt.Sprintf("overlap at distance %g",
					particles[i].Distance(&particles[j]))}
			}
		}
	}
	return nil
}
