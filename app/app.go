// Package app wires the host, the reactive driver and the GPU pipeline into
// the per-frame loop, with or without a window.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"

	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/inkflux/config"
	"github.com/pthm-cable/inkflux/host"
	"github.com/pthm-cable/inkflux/metadata"
	"github.com/pthm-cable/inkflux/reactive"
	"github.com/pthm-cable/inkflux/renderer"
	"github.com/pthm-cable/inkflux/sim"
	"github.com/pthm-cable/inkflux/telemetry"
	"github.com/pthm-cable/inkflux/ui"
)

// Options configures an App.
type Options struct {
	Host      host.Host // spectrum source; the App closes it
	HostName  string    // shown in the HUD
	Seed      int64
	OutputDir string
	LogStats  bool
	Headless  bool
}

// App holds the complete visualizer state. It is owned by the raylib main thread.
type App struct {
	cfg    *config.Config
	ctx    context.Context
	cancel context.CancelFunc

	host     host.Host
	hostName string
	env      *sim.Environment
	driver   *reactive.Driver
	artwork  *reactive.Artwork
	pipeline *renderer.Pipeline // nil when headless

	perf      *telemetry.PerfCollector
	collector *telemetry.Collector
	bookmarks *telemetry.BookmarkDetector
	output    *telemetry.OutputManager
	logStats  bool

	hud       *ui.HUD
	perfPanel *ui.PerfPanel
	tuning    *ui.TuningPanel

	frame    int
	last     reactive.Reaction
	ended    bool
	paused   bool
	showHUD  bool
	showPerf bool

	width, height int
}

// New creates an App. Unless opts.Headless is set the raylib window must
// already be open.
func New(parent context.Context, cfg *config.Config, opts Options) (*App, error) {
	if opts.Host == nil {
		return nil, errors.New("no host")
	}
	overflow, err := sim.ParseOverflowPolicy(cfg.Simulation.Overflow)
	if err != nil {
		opts.Host.Close()
		return nil, err
	}

	ctx, cancel := context.WithCancel(parent)
	env := sim.NewEnvironment(sim.EnvironmentConfig{
		Seeds:         cfg.Simulation.Seeds,
		Overflow:      overflow,
		DecayInterval: cfg.Simulation.DecayInterval,
		DecayAmount:   cfg.Simulation.DecayAmount,
	})
	bg := cfg.Simulation.BackgroundB
	env.SetBackgroundB(sim.Color{R: bg[0], G: bg[1], B: bg[2]})
	env.SetTextureURL(cfg.Textures.Reference)

	a := &App{
		cfg:       cfg,
		ctx:       ctx,
		cancel:    cancel,
		host:      opts.Host,
		hostName:  opts.HostName,
		env:       env,
		driver:    reactive.NewDriver(cfg.Driver, cfg.Splat, env, rand.New(rand.NewSource(opts.Seed))),
		artwork:   reactive.NewArtwork(ctx, opts.Host, metadata.NewClient(cfg.Metadata), cfg.Metadata.AlbumPrefix),
		perf:      telemetry.NewPerfCollector(cfg.Telemetry.PerfCollectorWindow),
		collector: telemetry.NewCollector(cfg.Derived.StatsWindowFrames, float64(cfg.Screen.TargetFPS)),
		bookmarks: telemetry.NewBookmarkDetector(10),
		logStats:  opts.LogStats,
		showHUD:   true,
	}

	a.output, err = telemetry.NewOutputManager(opts.OutputDir)
	if err != nil {
		a.Unload()
		return nil, err
	}
	if err := a.output.WriteConfig(cfg); err != nil {
		a.Unload()
		return nil, fmt.Errorf("writing config snapshot: %w", err)
	}

	if !opts.Headless {
		a.width, a.height = rl.GetScreenWidth(), rl.GetScreenHeight()
		a.pipeline, err = renderer.NewPipeline(ctx, cfg, env, a.width, a.height)
		if err != nil {
			a.Unload()
			return nil, err
		}
		a.hud = ui.NewHUD()
		a.perfPanel = ui.NewPerfPanel(10, 100)
		a.tuning = ui.NewTuningPanel(int32(a.width)-290, 10, 280, a.driver)
	}

	// Resolve artwork for whatever is already playing.
	a.artwork.Refresh()
	return a, nil
}

// Update handles input, applies finished background work and steps the driver.
func (a *App) Update() {
	a.perf.StartFrame()
	a.perf.StartPhase(telemetry.PhasePoll)
	a.handleInput()
	a.poll()
	if a.paused || a.ended {
		return
	}

	a.perf.StartPhase(telemetry.PhaseDriver)
	a.stepDriver()

	a.perf.StartPhase(telemetry.PhaseTelemetry)
	a.flushTelemetry()
}

// poll drains texture completions, artwork lookups and track changes.
func (a *App) poll() {
	if a.pipeline != nil {
		a.collector.RecordTextureSwaps(a.pipeline.Poll())
	}
	a.artwork.Apply(a.env)
	for {
		select {
		case <-a.host.TrackChanges():
			a.artwork.Refresh()
		default:
			return
		}
	}
}

func (a *App) stepDriver() {
	s, ok := a.host.Next()
	if !ok {
		a.ended = true
		slog.Info("host exhausted", "frame", a.frame)
		return
	}
	a.last = a.driver.Step(s)
	a.collector.RecordReaction(a.last)
	a.collector.RecordLive(a.env.Live())
	a.frame++
}

// Draw runs both GPU passes and the overlays. While paused the last written
// buffer is shown again without simulating.
func (a *App) Draw() {
	if a.pipeline == nil {
		return
	}
	mode := a.pipeline.Mode()
	if !a.paused && !a.ended {
		a.perf.StartPhase(telemetry.PhaseSimulate)
		mode = a.pipeline.Advance()
		a.pipeline.Simulate(mode)
	}

	a.perf.StartPhase(telemetry.PhaseRender)
	rl.BeginDrawing()
	rl.ClearBackground(rl.Black)
	a.pipeline.Render(mode)
	a.drawOverlays()
	rl.EndDrawing()

	a.perf.EndFrame()
	a.perf.RecordPresent()
}

func (a *App) drawOverlays() {
	if a.showHUD {
		a.hud.Draw(ui.HUDData{
			Title:    a.cfg.Screen.Title,
			Track:    a.artwork.Track().URI,
			Frame:    a.frame,
			FPS:      rl.GetFPS(),
			Live:     a.env.Live(),
			Seeds:    a.env.Seeds(),
			Overflow: a.env.Overflow().String(),
			Paused:   a.paused,
			Host:     a.hostName,
		})
		a.hud.DrawControls(int32(a.height), "[Space] pause  [T] tuning  [P] perf  [R] palette  [H] hud  [F11] fullscreen")
	}
	if a.showPerf {
		a.perfPanel.Draw(a.perf.Stats())
	}
	a.tuning.Draw(a.driver, ui.TuningData{
		Reaction:    a.last,
		Palette:     a.driver.Palette(),
		BackgroundA: a.env.BackgroundA(),
		Cooldown:    a.driver.Cooldown(),
		MinCooldown: a.cfg.Driver.PaletteCooldown,
		History:     a.driver.Flux().Values(),
	})
}

// UpdateHeadless runs one frame without a window. The environment is still
// emitted and decayed each frame so splat lifetimes match windowed runs.
func (a *App) UpdateHeadless() {
	a.perf.StartFrame()
	a.perf.StartPhase(telemetry.PhasePoll)
	a.poll()
	if a.ended {
		a.perf.EndFrame()
		return
	}

	a.perf.StartPhase(telemetry.PhaseDriver)
	a.stepDriver()

	a.perf.StartPhase(telemetry.PhaseSimulate)
	a.env.Emit()
	a.env.Decay()

	a.perf.StartPhase(telemetry.PhaseTelemetry)
	a.flushTelemetry()
	a.perf.EndFrame()
}

// Frame returns the number of driver steps taken.
func (a *App) Frame() int { return a.frame }

// Done reports whether the host has run out of frames.
func (a *App) Done() bool { return a.ended }

// Environment returns the shared simulation environment.
func (a *App) Environment() *sim.Environment { return a.env }

// Unload flushes telemetry and releases every resource, including the host.
func (a *App) Unload() {
	a.cancel()
	if a.artwork != nil {
		a.artwork.Close()
	}
	if a.pipeline != nil {
		a.pipeline.Unload()
		a.pipeline = nil
	}
	if err := a.host.Close(); err != nil {
		slog.Warn("closing host", "error", err)
	}
	if err := a.output.Close(); err != nil {
		slog.Error("closing telemetry output", "error", err)
	}
}
