package telemetry

import (
	"log/slog"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/pthm-cable/collide/components"
)

// WindowStats holds aggregated statistics for a window of simulated time.
type WindowStats struct {
	WindowStart float64 `csv:"window_start"`
	WindowEnd   float64 `csv:"window_end"`

	// Events processed during the window
	Events         int     `csv:"events"`
	Stale          int     `csv:"stale"`
	PairCollisions int     `csv:"pair_collisions"`
	WallCollisions int     `csv:"wall_collisions"`
	StaleRatio     float64 `csv:"stale_ratio"`

	// Queue state at window end
	QueueLength int `csv:"queue_length"`

	// Conservation checks (sampled at window end)
	KineticEnergy float64 `csv:"kinetic_energy"`
	MomentumX     float64 `csv:"momentum_x"`
	MomentumY     float64 `csv:"momentum_y"`

	// Speed distribution
	SpeedMean float64 `csv:"speed_mean"`
	SpeedStd  float64 `csv:"speed_std"`
	SpeedP10  float64 `csv:"speed_p10"`
	SpeedP50  float64 `csv:"speed_p50"`
	SpeedP90  float64 `csv:"speed_p90"`
}

// Percentile calculates the p-th percentile of a sorted slice.
// p should be in [0, 1]. Returns 0 if slice is empty.
func Percentile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if p <= 0 {
		return sorted[0]
	}
	if p >= 1 {
		return sorted[n-1]
	}

	// Linear interpolation
	idx := p * float64(n-1)
	lo := int(idx)
	hi := lo + 1
	if hi >= n {
		return sorted[n-1]
	}

	frac := idx - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}

// ComputeSpeedStats calculates mean, std, and percentiles from speed values.
func ComputeSpeedStats(values []float64) (mean, std, p10, p50, p90 float64) {
	n := len(values)
	if n == 0 {
		return 0, 0, 0, 0, 0
	}
	if n == 1 {
		return values[0], 0, values[0], values[0], values[0]
	}

	mean, std = stat.MeanStdDev(values, nil)

	sorted := make([]float64, n)
	copy(sorted, values)
	sort.Float64s(sorted)

	p10 = Percentile(sorted, 0.10)
	p50 = Percentile(sorted, 0.50)
	p90 = Percentile(sorted, 0.90)

	return mean, std, p10, p50, p90
}

// Energy returns the total kinetic energy and momentum of the system.
func Energy(particles []components.Particle) (ke, px, py float64) {
	n := len(particles)
	kes := make([]float64, n)
	pxs := make([]float64, n)
	pys := make([]float64, n)
	for i := range particles {
		kes[i] = particles[i].KineticEnergy()
		pxs[i], pys[i] = particles[i].Momentum()
	}
	return floats.Sum(kes), floats.Sum(pxs), floats.Sum(pys)
}

// Speeds returns |v| for every particle.
func Speeds(particles []components.Particle) []float64 {
	out := make([]float64, len(particles))
	for i := range particles {
		out[i] = particles[i].Speed()
	}
	return out
}

// LogValue implements slog.LogValuer for structured logging.
func (s WindowStats) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Float64("window_start", s.WindowStart),
		slog.Float64("window_end", s.WindowEnd),
		slog.Int("events", s.Events),
		slog.Int("stale", s.Stale),
		slog.Int("pair_collisions", s.PairCollisions),
		slog.Int("wall_collisions", s.WallCollisions),
		slog.Float64("stale_ratio", s.StaleRatio),
		slog.Int("queue_length", s.QueueLength),
		slog.Float64("kinetic_energy", s.KineticEnergy),
		slog.Float64("momentum_x", s.MomentumX),
		slog.Float64("momentum_y", s.MomentumY),
		slog.Float64("speed_mean", s.SpeedMean),
		slog.Float64("speed_p50", s.SpeedP50),
	)
}

// LogStats logs the window stats using slog.
func (s WindowStats) LogStats() {
	slog.Info("stats", "window", s)
}
