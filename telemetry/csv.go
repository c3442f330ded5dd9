package telemetry

import (
	"fmt"
	"io"

	"github.com/gocarina/gocsv"
)

// SnapshotRow is the CSV form of one particle state within one entry.
type SnapshotRow struct {
	Entry int     `csv:"entry"`
	Time  float64 `csv:"time"`
	Full  bool    `csv:"full"`
	Index int     `csv:"index"`
	X     float64 `csv:"x"`
	Y     float64 `csv:"y"`
	VX    float64 `csv:"vx"`
	VY    float64 `csv:"vy"`
}

// Rows flattens the log into CSV rows.
func (l *SnapshotLog) Rows() []SnapshotRow {
	rows := make([]SnapshotRow, 0, len(l.entries)*2+l.count)
	for i, e := range l.entries {
		for _, s := range e.Particles {
			rows = append(rows, SnapshotRow{
				Entry: i,
				Time:  e.Time,
				Full:  e.Full,
				Index: s.Index,
				X:     s.X,
				Y:     s.Y,
				VX:    s.VX,
				VY:    s.VY,
			})
		}
	}
	return rows
}

// WriteSnapshotCSV writes the log as CSV, one row per particle state.
func WriteSnapshotCSV(w io.Writer, l *SnapshotLog) error {
	rows := l.Rows()
	if err := gocsv.Marshal(rows, w); err != nil {
		return fmt.Errorf("writing snapshots: %w", err)
	}
	return nil
}

// ReadSnapshotCSV rebuilds a log from CSV written by WriteSnapshotCSV.
func ReadSnapshotCSV(r io.Reader) (*SnapshotLog, error) {
	var rows []SnapshotRow
	if err := gocsv.Unmarshal(r, &rows); err != nil {
		return nil, fmt.Errorf("reading snapshots: %w", err)
	}
	return FromRows(rows)
}

// FromRows groups rows back into entries. Rows must be ordered by entry.
func FromRows(rows []SnapshotRow) (*SnapshotLog, error) {
	l := NewSnapshotLog()
	for i := 0; i < len(rows); {
		j := i
		for j < len(rows) && rows[j].Entry == rows[i].Entry {
			j++
		}
		if n := len(l.entries); n > 0 && rows[i].Time < l.entries[n-1].Time {
			return nil, fmt.Errorf("entry %d at time %g precedes %g", rows[i].Entry, rows[i].Time, l.entries[n-1].Time)
		}

		e := Entry{Time: rows[i].Time, Full: rows[i].Full, Particles: make([]ParticleState, 0, j-i)}
		for _, row := range rows[i:j] {
			e.Particles = append(e.Particles, ParticleState{Index: row.Index, X: row.X, Y: row.Y, VX: row.VX, VY: row.VY})
		}
		if len(l.entries) == 0 {
			if !e.Full {
				return nil, fmt.Errorf("first entry is not a full snapshot")
			}
			l.count = len(e.Particles)
		}
		for _, s := range e.Particles {
			if s.Index < 0 || s.Index >= l.count {
				return nil, fmt.Errorf("entry %d: particle index %d out of range [0,%d)", rows[i].Entry, s.Index, l.count)
			}
		}
		l.entries = append(l.entries, e)
		i = j
	}
	return l, nil
}
