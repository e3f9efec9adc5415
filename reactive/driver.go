// Package reactive turns spectrum frames into splats and palette changes.
package reactive

import (
	"math/rand"

	"gonum.org/v1/gonum/floats"

	"github.com/pthm-cable/inkflux/config"
	"github.com/pthm-cable/inkflux/host"
	"github.com/pthm-cable/inkflux/sim"
)

// Reaction summarizes what one driver step did.
type Reaction struct {
	Loudness       float64
	Flux           float64
	Average        float64
	HasFlux        bool      // false on the first frame
	Volumes        []float64 // one per injected splat, empty when nothing fired
	PaletteChanged bool
}

// Triggered reports whether the step injected splats.
func (r Reaction) Triggered() bool { return len(r.Volumes) > 0 }

// Loudness maps the mean magnitude over both channels to [0, 1], where floor
// dB maps to 0 and 0 dB maps to 1. Empty spectra have loudness 1.
func Loudness(s host.Spectrum, floor float64) float64 {
	n := len(s.Left) + len(s.Right)
	var mean float64
	if n > 0 {
		mean = (floats.Sum(s.Left) + floats.Sum(s.Right)) / float64(n)
	}
	return 1 - mean/floor
}

// Driver owns the per-session audio analysis state.
type Driver struct {
	cfg   config.DriverConfig
	splat config.SplatConfig
	env   *sim.Environment
	rng   *rand.Rand

	flux     *FluxBuffer
	palette  sim.Color
	cooldown int
	previous float64
	primed   bool

	triggerRatio float64
	paletteRatio float64
}

// NewDriver creates a driver that injects splats into env.
func NewDriver(cfg config.DriverConfig, splat config.SplatConfig, env *sim.Environment, rng *rand.Rand) *Driver {
	return &Driver{
		cfg:   cfg,
		splat: splat,
		env:   env,
		rng:   rng,
		flux:  NewFluxBuffer(cfg.FluxBuffer),
		palette: sim.Color{
			R: cfg.PaletteInitial[0],
			G: cfg.PaletteInitial[1],
			B: cfg.PaletteInitial[2],
		},
		triggerRatio: cfg.TriggerRatio,
		paletteRatio: cfg.PaletteRatio,
	}
}

// Step analyzes one spectrum frame.
func (d *Driver) Step(s host.Spectrum) Reaction {
	loudness := Loudness(s, d.cfg.FloorDB)

	// Background follows the palette from before this frame's update
	d.env.SetBackgroundA(d.palette.Scale(d.cfg.BackgroundScale))

	var r Reaction
	if d.primed {
		flux := (loudness - d.previous) * loudness
		d.flux.Push(flux)
		r = d.react(flux, d.flux.Average())
	} else {
		d.fadePalette()
		r.Average = d.flux.Average()
	}
	r.Loudness = loudness

	d.previous = loudness
	d.primed = true
	return r
}

// react applies the trigger and palette rules for one flux value.
func (d *Driver) react(flux, avg float64) Reaction {
	r := Reaction{Flux: flux, Average: avg, HasFlux: true}

	if flux > avg*d.triggerRatio {
		for _, gain := range d.cfg.VolumeGains {
			v := flux*gain - avg*d.cfg.VolumeOffset
			d.env.AddSplat(d.NewSplat(v))
			r.Volumes = append(r.Volumes, v)
		}
	}

	if flux > avg*d.paletteRatio && d.cooldown > d.cfg.PaletteCooldown {
		d.RandomizePalette()
		r.PaletteChanged = true
	} else {
		d.fadePalette()
	}
	return r
}

func (d *Driver) fadePalette() {
	d.palette = d.palette.Scale(d.cfg.PaletteDecay)
	d.cooldown++
}

// RandomizePalette picks a uniform random palette and restarts the cooldown.
func (d *Driver) RandomizePalette() {
	d.palette = sim.Color{R: d.rng.Float64(), G: d.rng.Float64(), B: d.rng.Float64()}
	d.cooldown = 0
}

// NewSplat builds a splat for a trigger volume with a random start, velocity and scatter.
func (d *Driver) NewSplat(volume float64) *sim.Splat {
	c := d.splat
	return sim.NewSplat(sim.SplatParams{
		Start: sim.Vec2{
			X: c.PositionMin + c.PositionSpan*d.rng.Float64(),
			Y: c.PositionMin + c.PositionSpan*d.rng.Float64(),
		},
		Velocity: sim.Vec2{
			X: (d.rng.Float64() - 0.5) * c.VelocityX,
			Y: (d.rng.Float64() - 0.5) * c.VelocityY,
		},
		Scatter:     c.ScatterMin + c.ScatterSpan*d.rng.Float64(),
		Size:        volume * c.SizeScale,
		TotalAmount: min(volume, c.MaxAmount),
		Duration:    c.Duration,
	})
}

// Palette returns the current palette color.
func (d *Driver) Palette() sim.Color { return d.palette }

// Cooldown returns frames since the last palette change.
func (d *Driver) Cooldown() int { return d.cooldown }

// Flux returns the rolling flux buffer.
func (d *Driver) Flux() *FluxBuffer { return d.flux }

func (d *Driver) TriggerRatio() float64 { return d.triggerRatio }

func (d *Driver) PaletteRatio() float64 { return d.paletteRatio }

// SetTriggerRatio changes the splat threshold multiplier at runtime.
func (d *Driver) SetTriggerRatio(v float64) { d.triggerRatio = v }

// SetPaletteRatio changes the palette threshold multiplier at runtime.
func (d *Driver) SetPaletteRatio(v float64) { d.paletteRatio = v }
