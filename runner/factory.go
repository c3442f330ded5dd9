package runner

import (
	"fmt"

	"github.com/pthm-cable/collide/components"
	"github.com/pthm-cable/collide/config"
	"github.com/pthm-cable/collide/engine"
	"github.com/pthm-cable/collide/systems"
	"github.com/pthm-cable/collide/telemetry"
)

// NewEngine creates the engine variant named by cfg.Engine.Variant over
// particles. The box is taken from cfg.World.
func NewEngine(cfg *config.Config, particles []components.Particle, perf *telemetry.PerfCollector) (engine.Stepper, error) {
	if len(particles) == 0 {
		return nil, ErrNoParticles
	}

	opts := engine.Options{
		Horizon:           cfg.Derived.Horizon,
		MaxQueue:          cfg.Engine.MaxQueue,
		Workers:           cfg.Derived.Workers,
		ParallelThreshold: cfg.Engine.ParallelThreshold,
		Perf:              perf,
	}
	w, h := cfg.World.Width, cfg.World.Height

	switch cfg.Engine.Variant {
	case config.VariantFlat:
		e, err := engine.New(particles, w, h, opts)
		if err != nil {
			return nil, err
		}
		return e, nil
	case config.VariantGrouped:
		g, err := engine.NewGrouped(particles, w, h, opts)
		if err != nil {
			return nil, err
		}
		return g, nil
	case config.VariantECS:
		s, err := systems.NewCollisionSystem(particles, w, h, opts)
		if err != nil {
			return nil, err
		}
		return s, nil
	}
	return nil, fmt.Errorf("unknown engine variant %q", cfg.Engine.Variant)
}
