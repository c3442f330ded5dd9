// Package components defines the particle record and the ECS components it maps onto.
package components

// Position represents a particle's centre.
type Position struct {
	X, Y float64
}

// Velocity represents a particle's velocity.
type Velocity struct {
	X, Y float64
}

// Body holds the immutable physical properties of a particle.
type Body struct {
	Radius float64
	Mass   float64
}

// Version is the mutation counter. It increments every time the velocity changes.
type Version struct {
	N int
}

// FromComponents assembles a particle record from its components.
func FromComponents(pos *Position, vel *Velocity, body *Body, ver *Version) Particle {
	return Particle{
		Pos:     *pos,
		Vel:     *vel,
		Radius:  body.Radius,
		Mass:    body.Mass,
		Version: ver.N,
	}
}

// Components splits a particle record into its components.
func (p *Particle) Components() (Position, Velocity, Body, Version) {
	return p.Pos, p.Vel, Body{Radius: p.Radius, Mass: p.Mass}, Version{N: p.Version}
}

// Store writes the mutable parts of the record back into components.
// Body is not written; radius and mass never change during a run.
func (p *Particle) Store(pos *Position, vel *Velocity, ver *Version) {
	*pos = p.Pos
	*vel = p.Vel
	ver.N = p.Version
}
