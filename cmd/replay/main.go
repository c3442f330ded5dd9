// Command replay reads a snapshots.csv written by a run and samples particle
// positions at a fixed simulated-time step.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/gocarina/gocsv"

	"github.com/pthm-cable/collide/components"
	"github.com/pthm-cable/collide/telemetry"
)

// frameRow is one particle position in one sampled frame.
type frameRow struct {
	Frame int     `csv:"frame"`
	Time  float64 `csv:"time"`
	Index int     `csv:"index"`
	X     float64 `csv:"x"`
	Y     float64 `csv:"y"`
}

func main() {
	inPath := flag.String("in", "snapshots.csv", "Snapshot CSV written by a run")
	outPath := flag.String("out", "", "Output CSV (empty = stdout)")
	step := flag.Float64("step", 1, "Simulated seconds between frames")
	end := flag.Float64("end", 0, "Last frame time (0 = end of the log)")
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stderr, nil))
	slog.SetDefault(logger)

	if err := replay(*inPath, *outPath, *step, *end); err != nil {
		slog.Error("replay failed", "error", err)
		os.Exit(1)
	}
}

func replay(inPath, outPath string, step, end float64) error {
	if !(step > 0) {
		return fmt.Errorf("step %g must be positive", step)
	}

	in, err := os.Open(inPath)
	if err != nil {
		return err
	}
	defer in.Close()

	log, err := telemetry.ReadSnapshotCSV(bufio.NewReader(in))
	if err != nil {
		return err
	}
	player, err := telemetry.NewPlayer(log)
	if err != nil {
		return err
	}
	if end <= 0 {
		end = player.EndTime()
	}

	out := os.Stdout
	if outPath != "" {
		if out, err = os.Create(outPath); err != nil {
			return err
		}
		defer out.Close()
	}
	w := bufio.NewWriter(out)

	positions := make([]components.Position, log.Count())
	rows := make([]frameRow, 0, len(positions))
	frames := 0
	for t := 0.0; t <= end; t = float64(frames) * step {
		if err := player.Frame(t, positions); err != nil {
			return err
		}
		for i, p := range positions {
			rows = append(rows, frameRow{Frame: frames, Time: t, Index: i, X: p.X, Y: p.Y})
		}
		if frames == 0 {
			err = gocsv.Marshal(rows, w)
		} else {
			err = gocsv.MarshalWithoutHeaders(rows, w)
		}
		if err != nil {
			return fmt.Errorf("writing frame %d: %w", frames, err)
		}
		rows = rows[:0]
		frames++
	}

	slog.Info("replayed",
		"path", inPath,
		"entries", log.Len(),
		"particles", log.Count(),
		"frames", frames,
		"end", end,
	)
	return w.Flush()
}
