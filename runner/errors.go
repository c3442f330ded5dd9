package runner

import (
	"errors"

	"github.com/pthm-cable/collide/telemetry"
)

// Driver-level failures, distinguishable with errors.Is.
var (
	ErrNoParticles = errors.New("could not generate initial particles")
	ErrNotRun      = errors.New("no simulation has been run yet")
	ErrTimeout     = errors.New("simulation timed out")
	ErrCancelled   = errors.New("simulation cancelled")

	// ErrCountMismatch is returned by Frame when the buffer does not match
	// the number of simulated particles.
	ErrCountMismatch = telemetry.ErrCountMismatch
)
