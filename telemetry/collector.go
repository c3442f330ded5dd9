package telemetry

import "github.com/pthm-cable/collide/components"

// Counters are the cumulative event tallies an engine keeps.
type Counters struct {
	Events         int // processed (valid) events, markers included
	Stale          int // events discarded at pop time
	PairCollisions int
	VerticalWall   int
	HorizontalWall int
	Markers        int
	Predicted      int // events enqueued
	Discarded      int // predictions dropped for falling beyond the horizon
}

// Sub returns the difference c - o.
func (c Counters) Sub(o Counters) Counters {
	return Counters{
		Events:         c.Events - o.Events,
		Stale:          c.Stale - o.Stale,
		PairCollisions: c.PairCollisions - o.PairCollisions,
		VerticalWall:   c.VerticalWall - o.VerticalWall,
		HorizontalWall: c.HorizontalWall - o.HorizontalWall,
		Markers:        c.Markers - o.Markers,
		Predicted:      c.Predicted - o.Predicted,
		Discarded:      c.Discarded - o.Discarded,
	}
}

// Collector turns cumulative counters into per-window WindowStats.
// Windows are measured in simulated time.
type Collector struct {
	window float64

	windowStart float64
	base        Counters
}

// NewCollector creates a new stats collector.
// window: how long each stats window lasts in simulated seconds.
func NewCollector(window float64) *Collector {
	if window <= 0 {
		window = 1
	}
	return &Collector{window: window}
}

// Due reports whether the current window has ended at clock.
func (c *Collector) Due(clock float64) bool {
	return clock-c.windowStart >= c.window
}

// WindowStart returns the simulated time the current window began.
func (c *Collector) WindowStart() float64 {
	return c.windowStart
}

// Flush closes the current window at clock and starts a new one.
func (c *Collector) Flush(clock float64, counters Counters, queueLen int, particles []components.Particle) WindowStats {
	d := counters.Sub(c.base)

	stats := WindowStats{
		WindowStart:    c.windowStart,
		WindowEnd:      clock,
		Events:         d.Events,
		Stale:          d.Stale,
		PairCollisions: d.PairCollisions,
		WallCollisions: d.VerticalWall + d.HorizontalWall,
		QueueLength:    queueLen,
	}
	if total := d.Events + d.Stale; total > 0 {
		stats.StaleRatio = float64(d.Stale) / float64(total)
	}

	stats.KineticEnergy, stats.MomentumX, stats.MomentumY = Energy(particles)
	stats.SpeedMean, stats.SpeedStd, stats.SpeedP10, stats.SpeedP50, stats.SpeedP90 = ComputeSpeedStats(Speeds(particles))

	c.windowStart = clock
	c.base = counters
	return stats
}
