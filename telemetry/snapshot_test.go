package telemetry

import (
	"bytes"
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pthm-cable/collide/components"
)

func twoParticles() []components.Particle {
	return []components.Particle{
		components.New(2, 5, 1, 0, 1, 1),
		components.New(12, 5, -1, 0, 1, 1),
	}
}

// headOnLog records the initial state and the collision at t=4.
func headOnLog() *SnapshotLog {
	l := NewSnapshotLog()
	l.RecordAll(0, twoParticles())
	l.Record(4,
		ParticleState{Index: 0, X: 6, Y: 5, VX: -1, VY: 0},
		ParticleState{Index: 1, X: 8, Y: 5, VX: 1, VY: 0},
	)
	return l
}

func TestSnapshotLog_Record(t *testing.T) {
	l := headOnLog()

	if l.Len() != 2 {
		t.Fatalf("Len = %d, want 2", l.Len())
	}
	if !l.At(0).Full || l.At(1).Full {
		t.Error("only the first entry should be full")
	}
	if l.Count() != 2 {
		t.Errorf("Count = %d, want 2", l.Count())
	}
	if l.LastTime() != 4 {
		t.Errorf("LastTime = %v, want 4", l.LastTime())
	}
	if l.LastIsFull() {
		t.Error("last entry is partial")
	}

	l.RecordAll(10, twoParticles())
	if !l.LastIsFull() {
		t.Error("last entry should be full after RecordAll")
	}
	if len(l.Entries()) != 3 {
		t.Errorf("Entries has %d items, want 3", len(l.Entries()))
	}
}

func TestSnapshotLog_TimeDecreasePanics(t *testing.T) {
	l := headOnLog()

	defer func() {
		if recover() == nil {
			t.Error("expected panic on decreasing time")
		}
	}()
	l.Record(3, ParticleState{Index: 0})
}

func TestSnapshotLog_EqualTimesAllowed(t *testing.T) {
	l := headOnLog()
	l.Record(4, ParticleState{Index: 0, X: 6, Y: 5, VX: -1})
	if l.Len() != 3 {
		t.Errorf("Len = %d, want 3", l.Len())
	}
}

func TestSnapshotLog_StateAt(t *testing.T) {
	l := headOnLog()

	tests := []struct {
		name   string
		t      float64
		x0, x1 float64
	}{
		{"start", 0, 2, 12},
		{"before collision", 2, 4, 10},
		{"at collision", 4, 6, 8},
		{"after collision", 5, 5, 9},
		{"before first entry", -1, 1, 13},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			states, err := l.StateAt(tt.t)
			if err != nil {
				t.Fatalf("StateAt: %v", err)
			}
			if len(states) != 2 {
				t.Fatalf("got %d states, want 2", len(states))
			}
			if math.Abs(states[0].X-tt.x0) > 1e-12 || math.Abs(states[1].X-tt.x1) > 1e-12 {
				t.Errorf("x = (%v, %v), want (%v, %v)", states[0].X, states[1].X, tt.x0, tt.x1)
			}
			if states[0].Index != 0 || states[1].Index != 1 {
				t.Error("states should be ordered by index")
			}
		})
	}
}

func TestSnapshotLog_StateAtStartsFromLatestFull(t *testing.T) {
	l := headOnLog()
	// A later full entry overrides everything before it.
	l.RecordAll(6, []components.Particle{
		components.New(3, 3, 0, 1, 1, 1),
		components.New(9, 3, 0, -1, 1, 1),
	})

	states, err := l.StateAt(7)
	if err != nil {
		t.Fatal(err)
	}
	if states[0].X != 3 || states[0].Y != 4 || states[1].Y != 2 {
		t.Errorf("unexpected states %+v", states)
	}
}

func TestSnapshotLog_Empty(t *testing.T) {
	l := NewSnapshotLog()
	if !l.IsEmpty() {
		t.Error("new log should be empty")
	}
	if _, err := l.StateAt(0); !errors.Is(err, ErrEmptyLog) {
		t.Errorf("StateAt on empty log: got %v, want ErrEmptyLog", err)
	}
	if _, err := NewPlayer(l); !errors.Is(err, ErrEmptyLog) {
		t.Errorf("NewPlayer on empty log: got %v, want ErrEmptyLog", err)
	}
}

func TestPlayer_Frame(t *testing.T) {
	p, err := NewPlayer(headOnLog())
	if err != nil {
		t.Fatal(err)
	}

	frame := make([]components.Position, 2)

	steps := []struct {
		t      float64
		x0, x1 float64
	}{
		{1, 3, 11},
		{3.5, 5.5, 8.5},
		{4.5, 5.5, 8.5},
		{6, 4, 10},
	}
	for _, s := range steps {
		if err := p.Frame(s.t, frame); err != nil {
			t.Fatalf("Frame(%v): %v", s.t, err)
		}
		if math.Abs(frame[0].X-s.x0) > 1e-12 || math.Abs(frame[1].X-s.x1) > 1e-12 {
			t.Errorf("Frame(%v) = (%v, %v), want (%v, %v)", s.t, frame[0].X, frame[1].X, s.x0, s.x1)
		}
		if frame[0].Y != 5 {
			t.Errorf("Frame(%v) y = %v, want 5", s.t, frame[0].Y)
		}
	}
	if !p.Done() {
		t.Error("player should be done after passing the last entry")
	}

	// Seeking backwards rewinds.
	if err := p.Frame(1, frame); err != nil {
		t.Fatal(err)
	}
	if frame[0].X != 3 {
		t.Errorf("after rewind x = %v, want 3", frame[0].X)
	}
	if p.Done() {
		t.Error("player should not be done after rewinding")
	}
	if p.EndTime() != 4 {
		t.Errorf("EndTime = %v, want 4", p.EndTime())
	}
}

func TestPlayer_CountMismatch(t *testing.T) {
	p, err := NewPlayer(headOnLog())
	if err != nil {
		t.Fatal(err)
	}
	if err := p.Frame(1, make([]components.Position, 3)); !errors.Is(err, ErrCountMismatch) {
		t.Errorf("got %v, want ErrCountMismatch", err)
	}
}

func TestPlayer_MatchesStateAt(t *testing.T) {
	l := headOnLog()
	p, err := NewPlayer(l)
	if err != nil {
		t.Fatal(err)
	}
	for _, at := range []float64{0, 0.5, 3.9, 4, 4.1, 8} {
		want, err := l.StateAt(at)
		if err != nil {
			t.Fatal(err)
		}
		got := p.States(at)
		for i := range want {
			if got[i] != want[i] {
				t.Errorf("t=%v particle %d: player %+v, log %+v", at, i, got[i], want[i])
			}
		}
	}
}

func TestSnapshotCSVRoundTrip(t *testing.T) {
	l := headOnLog()

	var buf bytes.Buffer
	if err := WriteSnapshotCSV(&buf, l); err != nil {
		t.Fatalf("WriteSnapshotCSV: %v", err)
	}
	if !strings.HasPrefix(buf.String(), "entry,time,full,index,x,y,vx,vy") {
		t.Errorf("unexpected header: %q", strings.SplitN(buf.String(), "\n", 2)[0])
	}

	got, err := ReadSnapshotCSV(&buf)
	if err != nil {
		t.Fatalf("ReadSnapshotCSV: %v", err)
	}
	if got.Len() != l.Len() || got.Count() != l.Count() {
		t.Fatalf("got %d entries / %d particles, want %d / %d", got.Len(), got.Count(), l.Len(), l.Count())
	}
	for i := 0; i < l.Len(); i++ {
		a, b := l.At(i), got.At(i)
		if a.Time != b.Time || a.Full != b.Full || len(a.Particles) != len(b.Particles) {
			t.Errorf("entry %d differs: %+v vs %+v", i, a, b)
		}
	}
}

func TestFromRowsRejects(t *testing.T) {
	tests := []struct {
		name string
		rows []SnapshotRow
	}{
		{"partial first entry", []SnapshotRow{{Entry: 0, Time: 0, Full: false, Index: 0}}},
		{"time goes backwards", []SnapshotRow{
			{Entry: 0, Time: 2, Full: true, Index: 0},
			{Entry: 1, Time: 1, Index: 0},
		}},
		{"index out of range", []SnapshotRow{
			{Entry: 0, Time: 0, Full: true, Index: 0},
			{Entry: 1, Time: 1, Index: 4},
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := FromRows(tt.rows); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestOutputManager(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "run")

	om, err := NewOutputManager(dir)
	if err != nil {
		t.Fatalf("NewOutputManager: %v", err)
	}

	c := NewCollector(1)
	for i := 1; i <= 3; i++ {
		stats := c.Flush(float64(i), Counters{Events: i * 10}, 4, twoParticles())
		if err := om.WriteStats(stats); err != nil {
			t.Fatalf("WriteStats: %v", err)
		}
	}
	if err := om.WritePerf(PerfStats{}, 3); err != nil {
		t.Fatalf("WritePerf: %v", err)
	}
	if err := om.WriteSnapshots(headOnLog()); err != nil {
		t.Fatalf("WriteSnapshots: %v", err)
	}
	if err := om.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "stats.csv"))
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 4 {
		t.Errorf("stats.csv has %d lines, want header + 3", len(lines))
	}
	if !strings.HasPrefix(lines[0], "window_start,window_end,events") {
		t.Errorf("unexpected stats header %q", lines[0])
	}

	f, err := os.Open(om.Path("snapshots.csv"))
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	l, err := ReadSnapshotCSV(f)
	if err != nil {
		t.Fatal(err)
	}
	if l.Len() != 2 {
		t.Errorf("snapshots.csv has %d entries, want 2", l.Len())
	}
}

func TestOutputManagerDisabled(t *testing.T) {
	om, err := NewOutputManager("")
	if err != nil || om != nil {
		t.Fatalf("got %v, %v; want nil, nil", om, err)
	}
	// Methods are nil-safe.
	if err := om.WriteStats(WindowStats{}); err != nil {
		t.Error(err)
	}
	if err := om.Close(); err != nil {
		t.Error(err)
	}
}
