// Package monitor exposes run progress over HTTP as JSON and Prometheus
// metrics.
package monitor

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/pthm-cable/collide/runner"
)

// Monitor is a runner.Observer that keeps the latest progress report and
// mirrors it into a private Prometheus registry.
type Monitor struct {
	registry *prometheus.Registry

	systemTime  prometheus.Gauge
	queueLength prometheus.Gauge
	particles   prometheus.Gauge
	events      prometheus.Counter
	stale       prometheus.Counter

	mu   sync.RWMutex
	last runner.Progress
	seen bool
}

var _ runner.Observer = (*Monitor)(nil)

// New creates a monitor with its own registry.
func New() *Monitor {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Monitor{
		registry: reg,
		systemTime: factory.NewGauge(prometheus.GaugeOpts{
			Name: "collide_system_time",
			Help: "Simulated time of the engine clock",
		}),
		queueLength: factory.NewGauge(prometheus.GaugeOpts{
			Name: "collide_queue_length",
			Help: "Events waiting in the queue, stale ones included",
		}),
		particles: factory.NewGauge(prometheus.GaugeOpts{
			Name: "collide_particles",
			Help: "Number of simulated particles",
		}),
		events: factory.NewCounter(prometheus.CounterOpts{
			Name: "collide_events_total",
			Help: "Processed events",
		}),
		stale: factory.NewCounter(prometheus.CounterOpts{
			Name: "collide_stale_events_total",
			Help: "Invalidated events discarded at pop time",
		}),
	}
}

// Observe implements runner.Observer.
func (m *Monitor) Observe(p runner.Progress) {
	m.mu.Lock()
	defer m.mu.Unlock()

	// Counters only grow; a report from a new run starts a new baseline.
	prev := m.last
	if !m.seen || p.RunID != prev.RunID {
		prev = runner.Progress{}
	}
	if d := p.Events - prev.Events; d > 0 {
		m.events.Add(float64(d))
	}
	if d := p.Stale - prev.Stale; d > 0 {
		m.stale.Add(float64(d))
	}

	m.systemTime.Set(p.SystemTime)
	m.queueLength.Set(float64(p.QueueLength))
	m.particles.Set(float64(p.Particles))

	m.last = p
	m.seen = true
}

// Last returns the latest report and whether one has arrived.
func (m *Monitor) Last() (runner.Progress, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.last, m.seen
}

// Registry returns the registry the metrics are registered with.
func (m *Monitor) Registry() *prometheus.Registry {
	return m.registry
}

// Router returns the HTTP routes. It starts nothing.
func (m *Monitor) Router() *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
	r.Get("/progress", m.handleProgress)
	r.Handle("/metrics", promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))

	return r
}

func (m *Monitor) handleProgress(w http.ResponseWriter, r *http.Request) {
	p, ok := m.Last()
	if !ok {
		http.Error(w, "no progress reported yet", http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(p); err != nil {
		slog.Error("failed to encode progress", "error", err)
	}
}

// Serve listens on addr until ctx is done, then shuts the server down.
func (m *Monitor) Serve(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           m.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("monitor listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
