// Package config provides configuration loading and access for the visualizer.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// Config holds all visualizer configuration parameters.
type Config struct {
	Screen     ScreenConfig     `yaml:"screen"`
	Simulation SimulationConfig `yaml:"simulation"`
	Driver     DriverConfig     `yaml:"driver"`
	Splat      SplatConfig      `yaml:"splat"`
	Shaders    ShadersConfig    `yaml:"shaders"`
	Textures   TexturesConfig   `yaml:"textures"`
	Metadata   MetadataConfig   `yaml:"metadata"`
	Host       HostConfig       `yaml:"host"`
	Telemetry  TelemetryConfig  `yaml:"telemetry"`

	// Derived values computed after loading
	Derived DerivedConfig `yaml:"-"`
}

// ScreenConfig holds display settings.
type ScreenConfig struct {
	Width     int    `yaml:"width"`
	Height    int    `yaml:"height"`
	TargetFPS int    `yaml:"target_fps"`
	Title     string `yaml:"title"`
}

// SimulationConfig holds ink buffer parameters.
type SimulationConfig struct {
	Seeds         int        `yaml:"seeds"`          // Seed slots uploaded per frame
	Scale         float64    `yaml:"scale"`          // Simulation buffer size relative to the window
	Overflow      string     `yaml:"overflow"`       // evict_oldest | backlog
	DecayInterval int        `yaml:"decay_interval"` // Frames between buffer fades
	DecayAmount   float64    `yaml:"decay_amount"`   // Per-channel fade applied on fade frames
	TimeStep      float64    `yaml:"time_step"`      // Shader time advance per frame
	BackgroundB   [3]float64 `yaml:"background_b"`   // Second background color (RGB 0-1)
}

// DriverConfig holds the audio flux trigger parameters.
type DriverConfig struct {
	FloorDB         float64    `yaml:"floor_db"`         // Magnitude that maps to zero loudness
	FluxBuffer      int        `yaml:"flux_buffer"`      // Rolling flux window in frames
	TriggerRatio    float64    `yaml:"trigger_ratio"`    // Splat when flux > avg * this
	PaletteRatio    float64    `yaml:"palette_ratio"`    // Palette change when flux > avg * this
	PaletteCooldown int        `yaml:"palette_cooldown"` // Frames required between palette changes
	PaletteDecay    float64    `yaml:"palette_decay"`    // Per-frame palette multiplier
	PaletteInitial  [3]float64 `yaml:"palette_initial"`  // Starting palette (RGB 0-1)
	BackgroundScale float64    `yaml:"background_scale"` // Background A = palette * this
	VolumeGains     []float64  `yaml:"volume_gains"`     // One splat per gain: flux*gain - avg*offset
	VolumeOffset    float64    `yaml:"volume_offset"`
}

// SplatConfig holds parameters for splats built from a trigger volume.
type SplatConfig struct {
	Duration     int     `yaml:"duration"`      // Lifetime in frames
	SizeScale    float64 `yaml:"size_scale"`    // size = volume * this
	MaxAmount    float64 `yaml:"max_amount"`    // total ink = min(volume, this)
	PositionMin  float64 `yaml:"position_min"`  // Start position lower bound (both axes)
	PositionSpan float64 `yaml:"position_span"` // Start position range (both axes)
	VelocityX    float64 `yaml:"velocity_x"`    // Horizontal velocity range, centered on 0
	VelocityY    float64 `yaml:"velocity_y"`    // Vertical velocity range, centered on 0
	ScatterMin   float64 `yaml:"scatter_min"`
	ScatterSpan  float64 `yaml:"scatter_span"`
}

// ShadersConfig holds GLSL source paths.
type ShadersConfig struct {
	Vertex     string `yaml:"vertex"`
	Simulation string `yaml:"simulation"`
	Display    string `yaml:"display"`
}

// TexturesConfig holds reference texture settings.
type TexturesConfig struct {
	Reference      string  `yaml:"reference"`       // Initial reference image (path, URL or gradient:)
	MaxSize        int     `yaml:"max_size"`        // Longest edge after downscaling
	TimeoutSeconds float64 `yaml:"timeout_seconds"` // HTTP timeout for remote images
}

// MetadataConfig holds album artwork lookup settings.
type MetadataConfig struct {
	Endpoint       string  `yaml:"endpoint"`        // oEmbed endpoint
	AlbumBase      string  `yaml:"album_base"`      // Prefix joined with the album ID for the url parameter
	AlbumPrefix    string  `yaml:"album_prefix"`    // Track URI prefix identifying an album
	CoverSize      string  `yaml:"cover_size"`      // Replaces the "cover" path segment of thumbnails
	TimeoutSeconds float64 `yaml:"timeout_seconds"` // HTTP timeout
}

// HostConfig holds spectrum source settings.
type HostConfig struct {
	Kind         string   `yaml:"kind"`          // synthetic | replay
	Replay       string   `yaml:"replay"`        // CSV recording for the replay host
	Loop         bool     `yaml:"loop"`          // Restart the recording at the end
	Bins         int      `yaml:"bins"`          // Spectrum bins per channel
	FPS          float64  `yaml:"fps"`           // Frames per second assumed by the synthetic host
	BPM          float64  `yaml:"bpm"`           // Kick tempo of the synthetic host
	TrackSeconds float64  `yaml:"track_seconds"` // Seconds between synthetic track changes
	Albums       []string `yaml:"albums"`        // Album URIs cycled by the synthetic host
}

// TelemetryConfig holds telemetry parameters.
type TelemetryConfig struct {
	StatsWindow         float64 `yaml:"stats_window"`          // Seconds per stats window
	PerfCollectorWindow int     `yaml:"perf_collector_window"` // Frames averaged by the perf collector
}

// DerivedConfig holds computed values derived from the loaded config.
type DerivedConfig struct {
	StatsWindowFrames int      // Telemetry.StatsWindow converted to frames at Screen.TargetFPS
	BackgroundB       [3]float32
	DecayAmount32     float32
}

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
	cfg := &Config{}
	if err := yaml.Unmarshal(defaultsYAML, cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded defaults: %w", err)
	}

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

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg.computeDerived()

	return cfg, nil
}

// Validate reports every parameter that would leave the simulation ill-defined.
func (c *Config) Validate() error {
	var errs []error
	check := func(ok bool, format string, args ...any) {
		if !ok {
			errs = append(errs, fmt.Errorf(format, args...))
		}
	}

	check(c.Simulation.Seeds >= 0, "simulation.seeds must be >= 0, got %d", c.Simulation.Seeds)
	check(c.Simulation.Scale > 0 && c.Simulation.Scale <= 1, "simulation.scale must be in (0, 1], got %v", c.Simulation.Scale)
	check(c.Simulation.DecayInterval >= 1, "simulation.decay_interval must be >= 1, got %d", c.Simulation.DecayInterval)
	switch strings.ToLower(c.Simulation.Overflow) {
	case "evict_oldest", "backlog":
	default:
		errs = append(errs, fmt.Errorf("simulation.overflow: unknown policy %q", c.Simulation.Overflow))
	}
	check(c.Driver.FluxBuffer >= 1, "driver.flux_buffer must be >= 1, got %d", c.Driver.FluxBuffer)
	check(c.Driver.FloorDB < 0, "driver.floor_db must be negative, got %v", c.Driver.FloorDB)
	check(c.Splat.Duration >= 1, "splat.duration must be >= 1, got %d", c.Splat.Duration)
	check(c.Textures.MaxSize >= 1, "textures.max_size must be >= 1, got %d", c.Textures.MaxSize)
	check(c.Host.Bins >= 1, "host.bins must be >= 1, got %d", c.Host.Bins)
	check(c.Host.FPS > 0, "host.fps must be > 0, got %v", c.Host.FPS)
	check(c.Screen.TargetFPS >= 1, "screen.target_fps must be >= 1, got %d", c.Screen.TargetFPS)

	return errors.Join(errs...)
}

// computeDerived calculates values derived from loaded config.
func (c *Config) computeDerived() {
	frames := int(c.Telemetry.StatsWindow * float64(c.Screen.TargetFPS))
	if frames < 1 {
		frames = 1
	}
	c.Derived.StatsWindowFrames = frames
	for i, v := range c.Simulation.BackgroundB {
		c.Derived.BackgroundB[i] = float32(v)
	}
	c.Derived.DecayAmount32 = float32(c.Simulation.DecayAmount)
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
