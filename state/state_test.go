package state

import (
	"bytes"
	"encoding/binary"
	"errors"
	"math"
	"path/filepath"
	"testing"

	"github.com/pthm-cable/collide/components"
)

func sample() (Box, []components.Particle) {
	return Box{Width: 20, Height: 10}, []components.Particle{
		components.New(2, 5, 1, 0, 1, 1),
		components.New(12, 5, -1, 0.25, 1.5, 2.25),
	}
}

func TestSaveLoad(t *testing.T) {
	box, particles := sample()
	particles[0].Version = 7

	path := filepath.Join(t.TempDir(), "particles.bin")
	if err := Save(path, box, particles); err != nil {
		t.Fatalf("Save: %v", err)
	}

	gotBox, got, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if gotBox != box {
		t.Errorf("box = %+v, want %+v", gotBox, box)
	}
	if len(got) != len(particles) {
		t.Fatalf("got %d particles, want %d", len(got), len(particles))
	}
	for i := range got {
		want := particles[i]
		want.Version = 0
		if got[i] != want {
			t.Errorf("particle %d = %+v, want %+v", i, got[i], want)
		}
	}
}

func TestLayout(t *testing.T) {
	box, particles := sample()

	var buf bytes.Buffer
	if err := Write(&buf, box, particles); err != nil {
		t.Fatal(err)
	}
	if got, want := buf.Len(), 8+8+4+len(particles)*6*8; got != want {
		t.Fatalf("encoded %d bytes, want %d", got, want)
	}

	data := buf.Bytes()
	if w := math.Float64frombits(binary.LittleEndian.Uint64(data[0:])); w != 20 {
		t.Errorf("width = %v, want 20", w)
	}
	if n := int32(binary.LittleEndian.Uint32(data[16:])); n != 2 {
		t.Errorf("count = %d, want 2", n)
	}
	// Second particle's radius: header, one record, then x, y, vx, vy.
	off := 20 + 48 + 32
	if r := math.Float64frombits(binary.LittleEndian.Uint64(data[off:])); r != 1.5 {
		t.Errorf("radius = %v, want 1.5", r)
	}
}

func TestReadRejects(t *testing.T) {
	box, particles := sample()
	var buf bytes.Buffer
	if err := Write(&buf, box, particles); err != nil {
		t.Fatal(err)
	}
	valid := buf.Bytes()

	withCount := func(n int32) []byte {
		b := append([]byte(nil), valid...)
		binary.LittleEndian.PutUint32(b[16:], uint32(n))
		return b
	}
	withRadius := func(r float64) []byte {
		b := append([]byte(nil), valid...)
		binary.LittleEndian.PutUint64(b[20+32:], math.Float64bits(r))
		return b
	}

	tests := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"short header", valid[:10]},
		{"truncated record", valid[:len(valid)-3]},
		{"negative count", withCount(-1)},
		{"count past data", withCount(3)},
		{"zero radius", withRadius(0)},
		{"nan radius", withRadius(math.NaN())},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := Read(bytes.NewReader(tt.data))
			if !errors.Is(err, ErrFormat) {
				t.Errorf("got %v, want ErrFormat", err)
			}
		})
	}
}

func TestReadEmptySet(t *testing.T) {
	var buf bytes.Buffer
	if err := Write(&buf, Box{Width: 5, Height: 5}, nil); err != nil {
		t.Fatal(err)
	}
	box, particles, err := Read(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if box.Width != 5 || len(particles) != 0 {
		t.Errorf("got %+v with %d particles", box, len(particles))
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, _, err := Load(filepath.Join(t.TempDir(), "missing.bin")); err == nil {
		t.Error("expected error for missing file")
	}
}
