// Package runner drives an engine to a target simulated time, reporting
// progress and writing telemetry along the way.
package runner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/pthm-cable/collide/components"
	"github.com/pthm-cable/collide/engine"
	"github.com/pthm-cable/collide/telemetry"
)

// DefaultProgressInterval is used when Options.ProgressInterval is zero.
const DefaultProgressInterval = time.Second

// progressCheckEvery is how many steps pass between rate limiter checks.
const progressCheckEvery = 64

// Progress is a point-in-time view of a run. It is a value; observers
// never see engine internals.
type Progress struct {
	RunID        string        `json:"run_id"`
	Events       int           `json:"events"`
	Stale        int           `json:"stale"`
	SystemTime   float64       `json:"system_time"`
	Target       float64       `json:"target"`
	QueueLength  int           `json:"queue_length"`
	Particles    int           `json:"particles"`
	State        string        `json:"state"`
	Elapsed      time.Duration `json:"elapsed"`
	EventsPerSec float64       `json:"events_per_sec"`
	Done         bool          `json:"done"`
}

// Observer receives progress reports on a goroutine of its own.
type Observer interface {
	Observe(Progress)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(Progress)

// Observe calls f(p).
func (f ObserverFunc) Observe(p Progress) { f(p) }

// Options configures a Runner. All fields are optional.
type Options struct {
	// RunID tags logs and progress. A random UUID when empty.
	RunID string

	// ProgressInterval is the minimum wall time between progress reports.
	ProgressInterval time.Duration

	// StatsWindow is the simulated time per stats row. 0 disables stats.
	StatsWindow float64

	// Perf is the collector the engine was built with, if any. Its
	// summary is written next to every stats row.
	Perf *telemetry.PerfCollector

	Observer Observer
	Output   *telemetry.OutputManager
}

// Result summarizes a finished run.
type Result struct {
	RunID      string
	Events     int
	Stale      int
	SystemTime float64
	Drained    bool
	Elapsed    time.Duration
	MaxQueue   int
}

// Runner owns an engine for the duration of one or more runs. It is not
// safe for concurrent use.
type Runner struct {
	eng     engine.Stepper
	opts    Options
	logger  *slog.Logger
	limiter *rate.Limiter

	collector *telemetry.Collector
	progress  chan Progress

	ran      bool
	maxQueue int
	player   *telemetry.Player
}

// New creates a runner for eng.
func New(eng engine.Stepper, opts Options) *Runner {
	if opts.RunID == "" {
		opts.RunID = uuid.NewString()
	}
	if opts.ProgressInterval <= 0 {
		opts.ProgressInterval = DefaultProgressInterval
	}

	r := &Runner{
		eng:     eng,
		opts:    opts,
		logger:  slog.Default().With("run_id", opts.RunID),
		limiter: rate.NewLimiter(rate.Every(opts.ProgressInterval), 1),
	}
	if opts.StatsWindow > 0 {
		r.collector = telemetry.NewCollector(opts.StatsWindow)
	}
	return r
}

// RunID returns the identifier used in logs and progress reports.
func (r *Runner) RunID() string {
	return r.opts.RunID
}

// Run steps the engine until its clock reaches target or its queue drains.
// ctx is checked between steps; cancellation returns ErrCancelled and an
// expired deadline ErrTimeout, both wrapping the context error. Engine
// errors are returned as is. The partial Result is valid in every case.
func (r *Runner) Run(ctx context.Context, target float64) (Result, error) {
	r.ran = true
	r.player = nil
	r.progress = make(chan Progress, 1)

	start := time.Now()
	startEvents := r.eng.Counters().Events

	r.logger.Info("run started",
		"target", target,
		"system_time", r.eng.SystemTime(),
		"particles", len(r.eng.Particles()),
		"queue_length", r.eng.QueueLength(),
	)

	var g errgroup.Group
	g.Go(func() error {
		for p := range r.progress {
			if r.opts.Observer != nil {
				r.opts.Observer.Observe(p)
			}
		}
		return nil
	})

	runErr := r.loop(ctx, target, start, startEvents)

	if !r.eng.Log().LastIsFull() {
		r.eng.SnapshotAll()
	}
	if r.collector != nil && r.eng.SystemTime() > r.collector.WindowStart() {
		r.flushTelemetry()
	}
	if err := r.opts.Output.WriteSnapshots(r.eng.Log()); err != nil {
		r.logger.Error("failed to write snapshots", "error", err)
	}

	final := r.snapshot(target, start, startEvents)
	final.Done = true
	r.publish(final)
	close(r.progress)
	_ = g.Wait()

	res := Result{
		RunID:      r.opts.RunID,
		Events:     final.Events,
		Stale:      final.Stale,
		SystemTime: final.SystemTime,
		Drained:    r.eng.State() == engine.StateDrained,
		Elapsed:    final.Elapsed,
		MaxQueue:   r.maxQueue,
	}

	if runErr != nil {
		r.logger.Error("run failed",
			"error", runErr,
			"system_time", res.SystemTime,
			"events", res.Events,
		)
		return res, runErr
	}
	r.logger.Info("run finished",
		"system_time", res.SystemTime,
		"events", res.Events,
		"stale", res.Stale,
		"drained", res.Drained,
		"max_queue", res.MaxQueue,
		"elapsed", res.Elapsed,
		"events_per_sec", final.EventsPerSec,
	)
	return res, nil
}

func (r *Runner) loop(ctx context.Context, target float64, start time.Time, startEvents int) error {
	r.observeQueue()
	for steps := 1; r.eng.SystemTime() < target && r.eng.State() != engine.StateDrained; steps++ {
		if err := ctx.Err(); err != nil {
			return contextError(err)
		}

		if _, err := r.eng.Step(); err != nil {
			return err
		}
		r.observeQueue()

		if r.collector != nil && r.collector.Due(r.eng.SystemTime()) {
			r.flushTelemetry()
		}

		if steps%progressCheckEvery == 0 && r.limiter.Allow() {
			p := r.snapshot(target, start, startEvents)
			r.publish(p)
			r.logger.Info("progress",
				"system_time", p.SystemTime,
				"events", p.Events,
				"queue_length", p.QueueLength,
				"events_per_sec", p.EventsPerSec,
			)
		}
	}
	return nil
}

func contextError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", ErrTimeout, err)
	}
	return fmt.Errorf("%w: %w", ErrCancelled, err)
}

func (r *Runner) observeQueue() {
	r.maxQueue = max(r.maxQueue, r.eng.QueueLength())
}

// publish hands p to the observer goroutine, replacing any report it has
// not picked up yet.
func (r *Runner) publish(p Progress) {
	select {
	case r.progress <- p:
		return
	default:
	}
	select {
	case <-r.progress:
	default:
	}
	r.progress <- p
}

func (r *Runner) snapshot(target float64, start time.Time, startEvents int) Progress {
	c := r.eng.Counters()
	elapsed := time.Since(start)
	p := Progress{
		RunID:       r.opts.RunID,
		Events:      c.Events,
		Stale:       c.Stale,
		SystemTime:  r.eng.SystemTime(),
		Target:      target,
		QueueLength: r.eng.QueueLength(),
		Particles:   len(r.eng.Log().At(0).Particles),
		State:       r.eng.State().String(),
		Elapsed:     elapsed,
	}
	if secs := elapsed.Seconds(); secs > 0 {
		p.EventsPerSec = float64(c.Events-startEvents) / secs
	}
	return p
}

// flushTelemetry closes the current stats window and writes it out.
func (r *Runner) flushTelemetry() {
	clock := r.eng.SystemTime()
	stats := r.collector.Flush(clock, r.eng.Counters(), r.eng.QueueLength(), r.eng.Particles())
	stats.LogStats()

	if err := r.opts.Output.WriteStats(stats); err != nil {
		r.logger.Error("failed to write stats", "error", err)
	}
	if r.opts.Perf == nil {
		return
	}
	perfStats := r.opts.Perf.Stats()
	slog.Debug("perf", "stats", perfStats)
	if err := r.opts.Output.WritePerf(perfStats, clock); err != nil {
		r.logger.Error("failed to write perf", "error", err)
	}
}

// Log returns the snapshot log of the last run.
func (r *Runner) Log() (*telemetry.SnapshotLog, error) {
	if !r.ran {
		return nil, ErrNotRun
	}
	return r.eng.Log(), nil
}

// Frame fills dst with particle positions at simulated time t, replaying
// the log of the last run.
func (r *Runner) Frame(t float64, dst []components.Position) error {
	if r.player == nil {
		log, err := r.Log()
		if err != nil {
			return err
		}
		if r.player, err = telemetry.NewPlayer(log); err != nil {
			return err
		}
	}
	if err := r.player.Frame(t, dst); err != nil {
		return fmt.Errorf("frame at %g: %w", t, err)
	}
	return nil
}
