package components

import "math"

// Infinity is the "never" answer of every time-to-hit query.
var Infinity = math.Inf(1)

// Particle is a hard disk moving in a straight line between collisions.
// Identity is positional: the engine refers to particles by index.
type Particle struct {
	Pos     Position
	Vel     Velocity
	Radius  float64
	Mass    float64
	Version int
}

// New creates a particle with version 0.
func New(x, y, vx, vy, radius, mass float64) Particle {
	return Particle{
		Pos:    Position{X: x, Y: y},
		Vel:    Velocity{X: vx, Y: vy},
		Radius: radius,
		Mass:   mass,
	}
}

// Move advances the particle by dt along its velocity.
// The caller guarantees no collision happens during the interval.
func (p *Particle) Move(dt float64) {
	p.Pos.X += p.Vel.X * dt
	p.Pos.Y += p.Vel.Y * dt
}

// TimeToHit returns the time until the boundaries of p and that touch,
// or Infinity if they never will.
func (p *Particle) TimeToHit(that *Particle) float64 {
	dx := that.Pos.X - p.Pos.X
	dy := that.Pos.Y - p.Pos.Y
	dvx := that.Vel.X - p.Vel.X
	dvy := that.Vel.Y - p.Vel.Y

	dvdr := dx*dvx + dy*dvy
	if dvdr >= 0 {
		// Separating, parallel or relatively at rest.
		return Infinity
	}

	dvdv := dvx*dvx + dvy*dvy
	drdr := dx*dx + dy*dy
	sigma := p.Radius + that.Radius

	d := dvdr*dvdr - dvdv*(drdr-sigma*sigma)
	if d < 0 {
		return Infinity
	}
	if d == 0 {
		// Grazing contact.
		return -dvdr / dvdv
	}
	return -(dvdr + math.Sqrt(d)) / dvdv
}

// TimeToHitVerticalWall returns the time until the particle's edge reaches
// the left or right boundary, depending on the direction of travel.
func (p *Particle) TimeToHitVerticalWall(left, right float64) float64 {
	switch {
	case p.Vel.X > 0:
		return (right - p.Pos.X - p.Radius) / p.Vel.X
	case p.Vel.X < 0:
		return (p.Pos.X - left - p.Radius) / -p.Vel.X
	default:
		return Infinity
	}
}

// TimeToHitHorizontalWall returns the time until the particle's edge reaches
// the top or bottom boundary, depending on the direction of travel.
func (p *Particle) TimeToHitHorizontalWall(top, bottom float64) float64 {
	switch {
	case p.Vel.Y > 0:
		return (bottom - p.Pos.Y - p.Radius) / p.Vel.Y
	case p.Vel.Y < 0:
		return (p.Pos.Y - top - p.Radius) / -p.Vel.Y
	default:
		return Infinity
	}
}

// BounceOff resolves an elastic collision between p and that along the line
// of centres. Both particles must be in contact. Increments both versions.
func (p *Particle) BounceOff(that *Particle) {
	dx := that.Pos.X - p.Pos.X
	dy := that.Pos.Y - p.Pos.Y
	dvx := that.Vel.X - p.Vel.X
	dvy := that.Vel.Y - p.Vel.Y
	dvdr := dx*dvx + dy*dvy
	dist := p.Radius + that.Radius

	// Impulse magnitude
	j := 2 * p.Mass * that.Mass * dvdr / ((p.Mass + that.Mass) * dist)
	jx := j * dx / dist
	jy := j * dy / dist

	p.Vel.X += jx / p.Mass
	p.Vel.Y += jy / p.Mass
	that.Vel.X -= jx / that.Mass
	that.Vel.Y -= jy / that.Mass

	p.Version++
	that.Version++
}

// BounceOffVerticalWall reflects the horizontal velocity component.
func (p *Particle) BounceOffVerticalWall() {
	p.Vel.X = -p.Vel.X
	p.Version++
}

// BounceOffHorizontalWall reflects the vertical velocity component.
func (p *Particle) BounceOffHorizontalWall() {
	p.Vel.Y = -p.Vel.Y
	p.Version++
}

// KineticEnergy returns ½·m·|v|².
func (p *Particle) KineticEnergy() float64 {
	return 0.5 * p.Mass * (p.Vel.X*p.Vel.X + p.Vel.Y*p.Vel.Y)
}

// Momentum returns m·v.
func (p *Particle) Momentum() (float64, float64) {
	return p.Mass * p.Vel.X, p.Mass * p.Vel.Y
}

// Speed returns |v|.
func (p *Particle) Speed() float64 {
	return math.Hypot(p.Vel.X, p.Vel.Y)
}

// Distance returns the distance between the two centres.
func (p *Particle) Distance(that *Particle) float64 {
	return math.Hypot(that.Pos.X-p.Pos.X, that.Pos.Y-p.Pos.Y)
}

// Overlaps reports whether the two disks interpenetrate. Touching is not overlap.
func (p *Particle) Overlaps(that *Particle) bool {
	r := p.Radius + that.Radius
	dx := p.Pos.X - that.Pos.X
	dy := p.Pos.Y - that.Pos.Y
	return dx*dx+dy*dy < r*r
}

// Inside reports whether the whole disk lies within [0,width]×[0,height].
func (p *Particle) Inside(width, height float64) bool {
	return p.Pos.X-p.Radius >= 0 && p.Pos.X+p.Radius <= width &&
		p.Pos.Y-p.Radius >= 0 && p.Pos.Y+p.Radius <= height
}
