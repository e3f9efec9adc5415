package sim

import (
	"fmt"
	"strings"
)

// OverflowPolicy decides what happens when more splats are live than there are seed slots.
type OverflowPolicy int

const (
	// EvictOldest drops the oldest live splat to make room for a new one.
	EvictOldest OverflowPolicy = iota
	// Backlog keeps every splat; splats past the slot count wait without aging.
	Backlog
)

// ParseOverflowPolicy converts a config value into a policy.
func ParseOverflowPolicy(s string) (OverflowPolicy, error) {
	switch strings.ToLower(s) {
	case "", "evict_oldest":
		return EvictOldest, nil
	case "backlog":
		return Backlog, nil
	}
	return EvictOldest, fmt.Errorf("unknown overflow policy %q", s)
}

func (p OverflowPolicy) String() string {
	if p == Backlog {
		return "backlog"
	}
	return "evict_oldest"
}

// Color is an RGB triple in [0, 1].
type Color struct {
	R, G, B float64
}

// Scale returns c * s.
func (c Color) Scale(s float64) Color {
	return Color{R: c.R * s, G: c.G * s, B: c.B * s}
}

// Vec4 returns the color as float32 RGBA with alpha 1.
func (c Color) Vec4() []float32 {
	return []float32{float32(c.R), float32(c.G), float32(c.B), 1}
}

// EnvironmentConfig holds construction parameters for an Environment.
type EnvironmentConfig struct {
	Seeds         int // shader seed slots, fixed for the lifetime of the environment
	Overflow      OverflowPolicy
	DecayInterval int     // frames between fades
	DecayAmount   float64 // fade applied on fade frames
}

// Environment holds the live splats and the per-frame parameters shared with the shaders.
// It is owned by the frame goroutine.
type Environment struct {
	seeds         int
	overflow      OverflowPolicy
	decayInterval int
	decayAmount   float32

	splats  []*Splat
	out     []Seed
	frame   int
	evicted int

	textureURL  string
	backgroundA Color
	backgroundB Color
}

// NewEnvironment creates an environment with a fixed seed capacity.
func NewEnvironment(cfg EnvironmentConfig) *Environment {
	if cfg.Seeds < 0 {
		cfg.Seeds = 0
	}
	if cfg.DecayInterval < 1 {
		cfg.DecayInterval = 1
	}
	return &Environment{
		seeds:         cfg.Seeds,
		overflow:      cfg.Overflow,
		decayInterval: cfg.DecayInterval,
		decayAmount:   float32(cfg.DecayAmount),
		out:           make([]Seed, cfg.Seeds),
	}
}

// AddSplat appends a splat. Under EvictOldest the oldest live splats are
// dropped so that no more than Seeds splats are live afterwards.
func (e *Environment) AddSplat(s *Splat) {
	if s == nil {
		return
	}
	e.splats = append(e.splats, s)
	if e.overflow != EvictOldest {
		return
	}
	e.compact()
	if over := len(e.splats) - e.seeds; over > 0 {
		clear(e.splats[:over])
		e.splats = e.splats[over:]
		e.evicted += over
	}
}

// compact removes finished splats in place, keeping insertion order.
func (e *Environment) compact() {
	live := e.splats[:0]
	for _, s := range e.splats {
		if !s.Finished() {
			live = append(live, s)
		}
	}
	clear(e.splats[len(live):])
	e.splats = live
}

// Emit prunes finished splats, emits one seed from each of the first Seeds
// live splats and zero-fills the remaining slots. The returned slice always
// has exactly Seeds entries and is reused by the next call.
func (e *Environment) Emit() []Seed {
	e.compact()
	clear(e.out)
	n := min(len(e.splats), e.seeds)
	for i := 0; i < n; i++ {
		e.out[i] = e.splats[i].Emit()
	}
	e.frame++
	return e.out
}

// Decay returns the fade to apply this frame: DecayAmount on every
// DecayInterval-th frame, 0 otherwise.
func (e *Environment) Decay() float32 {
	if e.frame%e.decayInterval == 0 {
		return e.decayAmount
	}
	return 0
}

// Seeds returns the fixed seed capacity.
func (e *Environment) Seeds() int { return e.seeds }

// Live returns the number of splats currently held, including any that will
// be pruned on the next Emit.
func (e *Environment) Live() int { return len(e.splats) }

// Evicted returns how many splats the overflow policy has dropped.
func (e *Environment) Evicted() int { return e.evicted }

// Frame returns the number of Emit calls so far.
func (e *Environment) Frame() int { return e.frame }

// Overflow returns the configured overflow policy.
func (e *Environment) Overflow() OverflowPolicy { return e.overflow }

// TextureURL returns the reference texture locator.
func (e *Environment) TextureURL() string { return e.textureURL }

// SetTextureURL changes the reference texture; the renderer reloads it on its next simulate pass.
func (e *Environment) SetTextureURL(url string) { e.textureURL = url }

func (e *Environment) BackgroundA() Color { return e.backgroundA }

func (e *Environment) SetBackgroundA(c Color) { e.backgroundA = c }

func (e *Environment) BackgroundB() Color { return e.backgroundB }

func (e *Environment) SetBackgroundB(c Color) { e.backgroundB = c }
