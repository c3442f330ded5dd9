package engine

import (
	"errors"
	"fmt"
)

var (
	// ErrInvariant means a prediction produced a non-positive time step.
	// The engine aborts; continuing would corrupt the physics.
	ErrInvariant = errors.New("engine invariant violated")

	// ErrQueueCapacity means the event queue grew past Options.MaxQueue.
	ErrQueueCapacity = errors.New("event queue capacity exceeded")

	// ErrMalformedState is matched by every *StateError.
	ErrMalformedState = errors.New("malformed initial state")
)

// StateError describes why an initial state was rejected.
// Other is NoParticle unless the problem involves a pair; Index is
// NoParticle for problems with the box itself.
type StateError struct {
	Index  int
	Other  int
	Reason string
}

func (e *StateError) Error() string {
	switch {
	case e.Index < 0:
		return fmt.Sprintf("%v: box: %s", ErrMalformedState, e.Reason)
	case e.Other < 0:
		return fmt.Sprintf("%v: particle %d: %s", ErrMalformedState, e.Index, e.Reason)
	default:
		return fmt.Sprintf("%v: particles %d and %d: %s", ErrMalformedState, e.Index, e.Other, e.Reason)
	}
}

func (e *StateError) Unwrap() error {
	return ErrMalformedState
}
