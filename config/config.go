// Package config provides configuration loading and access for the simulation.
package config

import (
	_ "embed"
	"fmt"
	"math"
	"os"
	"runtime"
	"time"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// Engine variants.
const (
	VariantFlat    = "flat"
	VariantGrouped = "grouped"
	VariantECS     = "ecs"
)

// Config holds all simulation configuration parameters.
type Config struct {
	World     WorldConfig     `yaml:"world"`
	Generator GeneratorConfig `yaml:"generator"`
	Engine    EngineConfig    `yaml:"engine"`
	Run       RunConfig       `yaml:"run"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	Monitor   MonitorConfig   `yaml:"monitor"`

	// Derived values computed after loading
	Derived DerivedConfig `yaml:"-"`
}

// WorldConfig holds the box dimensions.
type WorldConfig struct {
	Width  float64 `yaml:"width"`
	Height float64 `yaml:"height"`
}

// GeneratorConfig holds random initial state parameters.
type GeneratorConfig struct {
	Count    int     `yaml:"count"`
	Size     float64 `yaml:"size"`     // Mean size; radius = 5*size, mass = size^2
	SizeDev  float64 `yaml:"size_dev"` // Standard deviation of size
	Velocity float64 `yaml:"velocity"` // Max speed per axis as a fraction of the box dimension
	Margin   float64 `yaml:"margin"`   // Empty border as a fraction of each dimension
}

// EngineConfig selects and tunes the collision engine.
type EngineConfig struct {
	Variant           string  `yaml:"variant"`            // flat, grouped or ecs
	Bounded           bool    `yaml:"bounded"`            // Drop predictions past the run duration
	Horizon           float64 `yaml:"horizon"`            // Explicit horizon; 0 = derive from run.duration when bounded
	MaxQueue          int     `yaml:"max_queue"`          // 0 = unlimited
	Workers           int     `yaml:"workers"`            // Prediction workers; 0 = GOMAXPROCS, 1 = serial
	ParallelThreshold int     `yaml:"parallel_threshold"` // Minimum particle count for parallel prediction
}

// RunConfig holds run driver parameters.
type RunConfig struct {
	Duration         float64       `yaml:"duration"`          // Simulated seconds
	ProgressInterval time.Duration `yaml:"progress_interval"` // Minimum wall time between progress reports
	Timeout          time.Duration `yaml:"timeout"`           // Wall clock limit; 0 = none
}

// TelemetryConfig holds statistics collection parameters.
type TelemetryConfig struct {
	StatsWindow float64 `yaml:"stats_window"` // Simulated seconds per stats row
	PerfWindow  int     `yaml:"perf_window"`  // Steps averaged by the perf collector; 0 = disabled
}

// MonitorConfig holds the HTTP monitor settings.
type MonitorConfig struct {
	Addr string `yaml:"addr"` // Listen address; empty = disabled
}

// DerivedConfig holds computed values derived from the loaded config.
type DerivedConfig struct {
	Horizon float64 // Effective engine horizon; 0 = unbounded
	Workers int     // Effective prediction workers
}

// min/max run duration in simulated seconds.
const (
	minDuration = 0.1
	maxDuration = 999
)

// global holds the loaded configuration.
var global *Config

// Init loads configuration from the given path, or uses embedded defaults if path is empty.
// Must be called before Cfg().
func Init(path string) error {
	cfg, err := Load(path)
	if err != nil {
		return err
	}
	global = cfg
	return nil
}

// MustInit is like Init but panics on error.
func MustInit(path string) {
	if err := Init(path); err != nil {
		panic(fmt.Sprintf("config: failed to initialize: %v", err))
	}
}

// Cfg returns the global configuration. Panics if Init was not called.
func Cfg() *Config {
	if global == nil {
		panic("config: Cfg() called before Init()")
	}
	return global
}

// Load loads configuration from a YAML file, merging with embedded defaults.
// If path is empty, only embedded defaults are used.
func Load(path string) (*Config, error) {
	// Start with embedded defaults
	cfg := &Config{}
	if err := yaml.Unmarshal(defaultsYAML, cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded defaults: %w", err)
	}

	// Load user config if provided
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		// Unmarshal into same struct - only overwrites fields present in file
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := cfg.Finalize(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Finalize validates the config and recomputes derived values. Call it
// after changing fields by hand, for example from command-line flags.
func (c *Config) Finalize() error {
	if err := c.validate(); err != nil {
		return err
	}
	c.computeDerived()
	return nil
}

func (c *Config) validate() error {
	if !(c.World.Width > 0) || !(c.World.Height > 0) {
		return fmt.Errorf("world dimensions %gx%g must be positive", c.World.Width, c.World.Height)
	}
	switch c.Engine.Variant {
	case VariantFlat, VariantGrouped, VariantECS:
	default:
		return fmt.Errorf("unknown engine variant %q", c.Engine.Variant)
	}
	if math.IsNaN(c.Engine.Horizon) || c.Engine.Horizon < 0 {
		return fmt.Errorf("engine horizon %g must not be negative", c.Engine.Horizon)
	}
	if c.Engine.MaxQueue < 0 || c.Engine.Workers < 0 {
		return fmt.Errorf("engine max_queue and workers must not be negative")
	}
	return nil
}

// computeDerived calculates values derived from loaded config.
func (c *Config) computeDerived() {
	c.Run.Duration = math.Min(math.Max(c.Run.Duration, minDuration), maxDuration)

	c.Derived.Horizon = c.Engine.Horizon
	if c.Derived.Horizon == 0 && c.Engine.Bounded {
		c.Derived.Horizon = c.Run.Duration
	}

	c.Derived.Workers = c.Engine.Workers
	if c.Derived.Workers == 0 {
		c.Derived.Workers = runtime.GOMAXPROCS(0)
	}
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}
