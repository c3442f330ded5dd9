// Package state persists a box and its particles in a flat binary format.
//
// Layout, little-endian: width float64, height float64, count int32, then
// count records of x, y, vx, vy, radius, mass float64.
package state

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/pthm-cable/collide/components"
)

// ErrFormat is returned for truncated or inconsistent state data.
var ErrFormat = errors.New("invalid state data")

// maxCount guards allocation against corrupt headers.
const maxCount = 1 << 24

// Box is the simulation box.
type Box struct {
	Width, Height float64
}

type header struct {
	Width, Height float64
	Count         int32
}

type record struct {
	X, Y, VX, VY float64
	Radius, Mass float64
}

// Write encodes box and particles to w. Versions are not persisted.
func Write(w io.Writer, box Box, particles []components.Particle) error {
	if len(particles) > maxCount {
		return fmt.Errorf("%d particles exceeds limit %d", len(particles), maxCount)
	}

	bw := bufio.NewWriter(w)
	h := header{Width: box.Width, Height: box.Height, Count: int32(len(particles))}
	if err := binary.Write(bw, binary.LittleEndian, &h); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	for i := range particles {
		p := &particles[i]
		r := record{X: p.Pos.X, Y: p.Pos.Y, VX: p.Vel.X, VY: p.Vel.Y, Radius: p.Radius, Mass: p.Mass}
		if err := binary.Write(bw, binary.LittleEndian, &r); err != nil {
			return fmt.Errorf("writing particle %d: %w", i, err)
		}
	}
	return bw.Flush()
}

// Read decodes data written by Write. Particles with non-positive radius
// or mass are rejected; everything else is left to engine validation.
func Read(r io.Reader) (Box, []components.Particle, error) {
	br := bufio.NewReader(r)

	var h header
	if err := binary.Read(br, binary.LittleEndian, &h); err != nil {
		return Box{}, nil, fmt.Errorf("%w: header: %v", ErrFormat, err)
	}
	if h.Count < 0 || h.Count > maxCount {
		return Box{}, nil, fmt.Errorf("%w: particle count %d", ErrFormat, h.Count)
	}

	particles := make([]components.Particle, h.Count)
	for i := range particles {
		var rec record
		if err := binary.Read(br, binary.LittleEndian, &rec); err != nil {
			return Box{}, nil, fmt.Errorf("%w: particle %d of %d: %v", ErrFormat, i, h.Count, err)
		}
		if !(rec.Radius > 0) || !(rec.Mass > 0) {
			return Box{}, nil, fmt.Errorf("%w: particle %d has radius %g and mass %g", ErrFormat, i, rec.Radius, rec.Mass)
		}
		particles[i] = components.New(rec.X, rec.Y, rec.VX, rec.VY, rec.Radius, rec.Mass)
	}
	return Box{Width: h.Width, Height: h.Height}, particles, nil
}

// Save writes the state to path, replacing any existing file.
func Save(path string, box Box, particles []components.Particle) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating state file: %w", err)
	}
	if err := Write(f, box, particles); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("closing state file: %w", err)
	}
	return nil
}

// Load reads the state stored at path.
func Load(path string) (Box, []components.Particle, error) {
	f, err := os.Open(path)
	if err != nil {
		return Box{}, nil, fmt.Errorf("opening state file: %w", err)
	}
	defer f.Close()
	return Read(f)
}
