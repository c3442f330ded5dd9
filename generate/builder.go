// Package generate builds random non-overlapping initial states.
package generate

import (
	"math"
	"math/rand"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/pthm-cable/collide/components"
)

// Limits applied by Normalize.
const (
	MinCount    = 1
	MaxCount    = 9999
	MinSize     = 0.5
	MinVelocity = 0.01
	MaxMargin   = 0.49

	// minDrawnSize rejects disks too small to matter.
	minDrawnSize = 0.1
)

// Builder draws particles by rejection sampling.
//
// Size is drawn from Normal(Size, SizeDev); a disk has radius 5·size and
// mass size². Positions are uniform inside the box shrunk by Margin (a
// fraction of each dimension) and velocities uniform in ±Velocity·dimension.
type Builder struct {
	Count    int
	Size     float64
	SizeDev  float64
	Velocity float64
	Margin   float64
	Width    float64
	Height   float64

	// MaxAttempts bounds the draws. 0 means Count·10.
	MaxAttempts int
}

// Normalize clamps the parameters into their accepted ranges.
func (b *Builder) Normalize() {
	b.Count = min(max(b.Count, MinCount), MaxCount)
	b.Size = math.Max(b.Size, MinSize)
	b.SizeDev = math.Max(b.SizeDev, 0)
	b.Velocity = math.Max(b.Velocity, MinVelocity)
	b.Margin = math.Min(math.Max(b.Margin, 0), MaxMargin)
}

// Build returns up to Count particles. Fewer are returned when the attempt
// budget runs out first; the result may be empty.
func (b Builder) Build(rng *rand.Rand) []components.Particle {
	b.Normalize()

	attempts := b.MaxAttempts
	if attempts <= 0 {
		attempts = b.Count * 10
	}

	sizes := distuv.Normal{Mu: b.Size, Sigma: b.SizeDev}
	left, right := b.Width*b.Margin, b.Width*(1-b.Margin)
	top, bottom := b.Height*b.Margin, b.Height*(1-b.Margin)
	maxVX, maxVY := b.Width*b.Velocity, b.Height*b.Velocity

	out := make([]components.Particle, 0, b.Count)
	for try := 0; try < attempts && len(out) < b.Count; try++ {
		size := sizes.Quantile(rng.Float64())
		if !(size >= minDrawnSize) {
			continue
		}

		p := components.New(
			left+rng.Float64()*(right-left),
			top+rng.Float64()*(bottom-top),
			(rng.Float64()*2-1)*maxVX,
			(rng.Float64()*2-1)*maxVY,
			size*5,
			size*size,
		)

		if p.Pos.X-p.Radius <= left || p.Pos.X+p.Radius >= right ||
			p.Pos.Y-p.Radius <= top || p.Pos.Y+p.Radius >= bottom {
			continue
		}
		if intersectsAny(&p, out) {
			continue
		}
		out = append(out, p)
	}
	return out
}

func intersectsAny(p *components.Particle, placed []components.Particle) bool {
	for i := range placed {
		if p.Distance(&placed[i]) <= p.Radius+placed[i].Radius {
			return true
		}
	}
	return false
}
