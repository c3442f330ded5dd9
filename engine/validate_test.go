package engine

import (
	"errors"
	"math"
	"testing"

	"github.com/pthm-cable/collide/components"
	"github.com/pthm-cable/collide/events"
)

func TestValidate(t *testing.T) {
	ok := components.New(5, 5, 1, 0, 1, 1)

	tests := []struct {
		name      string
		particles []components.Particle
		w, h      float64
		index     int
		other     int
	}{
		{"zero width", []components.Particle{ok}, 0, 10, events.NoParticle, events.NoParticle},
		{"nan height", []components.Particle{ok}, 10, math.NaN(), events.NoParticle, events.NoParticle},
		{"zero radius", []components.Particle{ok, components.New(2, 2, 0, 0, 0, 1)}, 10, 10, 1, events.NoParticle},
		{"negative mass", []components.Particle{components.New(2, 2, 0, 0, 1, -1)}, 10, 10, 0, events.NoParticle},
		{"nan position", []components.Particle{components.New(math.NaN(), 2, 0, 0, 1, 1)}, 10, 10, 0, events.NoParticle},
		{"infinite velocity", []components.Particle{components.New(2, 2, math.Inf(1), 0, 1, 1)}, 10, 10, 0, events.NoParticle},
		{"outside right", []components.Particle{components.New(9.5, 5, 0, 0, 1, 1)}, 10, 10, 0, events.NoParticle},
		{"outside top", []components.Particle{components.New(5, 0.5, 0, 0, 1, 1)}, 10, 10, 0, events.NoParticle},
		{"overlap", []components.Particle{
			components.New(2, 2, 0, 0, 1, 1),
			ok,
			components.New(6.5, 5, 0, 0, 1, 1),
		}, 10, 10, 1, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.particles, tt.w, tt.h)
			if !errors.Is(err, ErrMalformedState) {
				t.Fatalf("got %v, want ErrMalformedState", err)
			}
			var se *StateError
			if !errors.As(err, &se) {
				t.Fatalf("got %T, want *StateError", err)
			}
			if se.Index != tt.index || se.Other != tt.other {
				t.Errorf("StateError{Index: %d, Other: %d}, want {%d, %d}", se.Index, se.Other, tt.index, tt.other)
			}
		})
	}
}

func TestValidateAccepts(t *testing.T) {
	tests := []struct {
		name      string
		particles []components.Particle
	}{
		{"empty", nil},
		{"touching walls", []components.Particle{components.New(1, 1, 0, 0, 1, 1), components.New(9, 9, 0, 0, 1, 1)}},
		{"touching each other", []components.Particle{components.New(3, 5, 0, 0, 1, 1), components.New(5, 5, 0, 0, 1, 1)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := Validate(tt.particles, 10, 10); err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestStateErrorMessage(t *testing.T) {
	err := &StateError{Index: 3, Other: 7, Reason: "overlap at distance 1"}
	want := "malformed initial state: particles 3 and 7: overlap at distance 1"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}

func TestStateString(t *testing.T) {
	for s, want := range map[State]string{
		StatePriming:  "priming",
		StateStepping: "stepping",
		StateDrained:  "drained",
		StateAborted:  "aborted",
	} {
		if s.String() != want {
			t.Errorf("%d.String() = %q, want %q", s, s.String(), want)
		}
	}
}
