package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/pthm-cable/collide/components"
	"github.com/pthm-cable/collide/config"
	"github.com/pthm-cable/collide/generate"
	"github.com/pthm-cable/collide/monitor"
	"github.com/pthm-cable/collide/runner"
	"github.com/pthm-cable/collide/state"
	"github.com/pthm-cable/collide/telemetry"
)

// flags holds command-line overrides.
type flags struct {
	configPath  string
	loadPath    string
	savePath    string
	outputDir   string
	metricsAddr string
	variant     string
	seed        int64
	duration    float64
	workers     int
	statsWindow float64
}

func main() {
	var f flags
	flag.StringVar(&f.configPath, "config", "", "Path to config.yaml (empty = use defaults)")
	flag.StringVar(&f.loadPath, "load", "", "Load the initial particles from a state file instead of generating them")
	flag.StringVar(&f.savePath, "save", "", "Save the final particles to a state file")
	flag.StringVar(&f.outputDir, "output-dir", "", "Output directory for CSV logs and config snapshot")
	flag.StringVar(&f.metricsAddr, "metrics-addr", "", "Serve /progress and /metrics on this address (empty = use config)")
	flag.StringVar(&f.variant, "variant", "", "Engine variant: flat, grouped or ecs (empty = use config)")
	flag.Int64Var(&f.seed, "seed", 0, "RNG seed (0 = time-based)")
	flag.Float64Var(&f.duration, "duration", 0, "Simulated seconds to run (0 = use config)")
	flag.IntVar(&f.workers, "workers", -1, "Prediction workers (0 = GOMAXPROCS, -1 = use config)")
	flag.Float64Var(&f.statsWindow, "stats-window", 0, "Stats window size in simulated seconds (0 = use config)")
	flag.Parse()

	// Set up slog (JSON to stdout for structured logging)
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	if err := run(f); err != nil {
		slog.Error("simulation failed", "error", err)
		os.Exit(1)
	}
}

func run(f flags) error {
	if err := config.Init(f.configPath); err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	cfg := config.Cfg()

	if f.variant != "" {
		cfg.Engine.Variant = f.variant
	}
	if f.duration > 0 {
		cfg.Run.Duration = f.duration
	}
	if f.workers >= 0 {
		cfg.Engine.Workers = f.workers
	}
	if f.statsWindow > 0 {
		cfg.Telemetry.StatsWindow = f.statsWindow
	}
	if f.metricsAddr != "" {
		cfg.Monitor.Addr = f.metricsAddr
	}

	rngSeed := f.seed
	if rngSeed == 0 {
		rngSeed = time.Now().UnixNano()
	}

	particles, err := initialParticles(cfg, f.loadPath, rngSeed)
	if err != nil {
		return err
	}
	if err := cfg.Finalize(); err != nil {
		return err
	}

	runID := uuid.NewString()
	var outputDir string
	if f.outputDir != "" {
		outputDir = filepath.Join(f.outputDir, runID)
	}
	out, err := telemetry.NewOutputManager(outputDir)
	if err != nil {
		return err
	}
	defer out.Close()
	if err := out.WriteConfig(cfg); err != nil {
		return err
	}

	var perf *telemetry.PerfCollector
	if cfg.Telemetry.PerfWindow > 0 {
		perf = telemetry.NewPerfCollector(cfg.Telemetry.PerfWindow)
	}

	eng, err := runner.NewEngine(cfg, particles, perf)
	if err != nil {
		return err
	}
	defer eng.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if cfg.Run.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Run.Timeout)
		defer cancel()
	}

	opts := runner.Options{
		RunID:            runID,
		ProgressInterval: cfg.Run.ProgressInterval,
		StatsWindow:      cfg.Telemetry.StatsWindow,
		Perf:             perf,
		Output:           out,
	}

	// The monitor stops when the run returns.
	serveCtx, stopServe := context.WithCancel(context.Background())
	defer stopServe()
	var g errgroup.Group
	if cfg.Monitor.Addr != "" {
		m := monitor.New()
		opts.Observer = m
		g.Go(func() error {
			return m.Serve(serveCtx, cfg.Monitor.Addr)
		})
	}

	slog.Info("starting simulation",
		"run_id", runID,
		"seed", rngSeed,
		"variant", cfg.Engine.Variant,
		"particles", len(particles),
		"duration", cfg.Run.Duration,
		"horizon", cfg.Derived.Horizon,
		"workers", cfg.Derived.Workers,
		"output_dir", out.Dir(),
	)

	res, runErr := runner.New(eng, opts).Run(ctx, cfg.Run.Duration)

	stopServe()
	if err := g.Wait(); err != nil {
		slog.Error("monitor failed", "error", err)
	}

	if f.savePath != "" {
		box := state.Box{Width: cfg.World.Width, Height: cfg.World.Height}
		if err := state.Save(f.savePath, box, eng.Particles()); err != nil {
			return err
		}
		slog.Info("saved state", "path", f.savePath, "system_time", res.SystemTime)
	}

	return runErr
}

// initialParticles loads the state file at path, or generates a random set
// when path is empty. A loaded file also sets the world size.
func initialParticles(cfg *config.Config, path string, seed int64) ([]components.Particle, error) {
	if path != "" {
		box, particles, err := state.Load(path)
		if err != nil {
			return nil, err
		}
		cfg.World.Width, cfg.World.Height = box.Width, box.Height
		slog.Info("loaded state", "path", path, "particles", len(particles))
		return particles, nil
	}

	gen := cfg.Generator
	b := generate.Builder{
		Count:    gen.Count,
		Size:     gen.Size,
		SizeDev:  gen.SizeDev,
		Velocity: gen.Velocity,
		Margin:   gen.Margin,
		Width:    cfg.World.Width,
		Height:   cfg.World.Height,
	}
	particles := b.Build(rand.New(rand.NewSource(seed)))
	if len(particles) < gen.Count {
		slog.Warn("generator ran out of attempts", "requested", gen.Count, "placed", len(particles))
	}
	return particles, nil
}
