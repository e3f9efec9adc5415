package ui

import (
	"fmt"

	gui "github.com/gen2brain/raylib-go/raygui"
	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/inkflux/reactive"
	"github.com/pthm-cable/inkflux/sim"
)

// Tunable is the part of the driver the panel adjusts at runtime.
type Tunable interface {
	TriggerRatio() float64
	PaletteRatio() float64
	SetTriggerRatio(v float64)
	SetPaletteRatio(v float64)
	RandomizePalette()
}

// TuningData is the live driver state shown under the sliders.
type TuningData struct {
	Reaction    reactive.Reaction
	Palette     sim.Color
	BackgroundA sim.Color
	Cooldown    int
	MinCooldown int
	History     []float64 // flux buffer slots, in storage order
}

// Slider ranges.
const (
	triggerMin, triggerMax = 1.0, 6.0
	paletteMin, paletteMax = 2.0, 12.0
)

// TuningPanel renders the raygui controls for the trigger heuristic.
type TuningPanel struct {
	renderer *Renderer
	x, y     int32
	width    int32
	visible  bool

	defaultTrigger float64
	defaultPalette float64
}

// NewTuningPanel creates a hidden panel. The current ratios of t become the
// values the reset button restores.
func NewTuningPanel(x, y, width int32, t Tunable) *TuningPanel {
	return &TuningPanel{
		renderer:       NewRenderer(),
		x:              x,
		y:              y,
		width:          width,
		defaultTrigger: t.TriggerRatio(),
		defaultPalette: t.PaletteRatio(),
	}
}

// Toggle switches visibility and returns the new state.
func (p *TuningPanel) Toggle() bool {
	p.visible = !p.visible
	return p.visible
}

// IsVisible reports whether the panel is shown.
func (p *TuningPanel) IsVisible() bool { return p.visible }

// SetPosition moves the panel.
func (p *TuningPanel) SetPosition(x, y int32) {
	p.x, p.y = x, y
}

// Draw renders the panel and applies any slider or button changes to t.
func (p *TuningPanel) Draw(t Tunable, data TuningData) {
	if !p.visible {
		return
	}
	r := p.renderer
	pad := r.Theme.Padding
	inner := p.width - 2*pad
	r.DrawPanel(p.x, p.y, p.width, 330)

	x := p.x + pad
	y := r.DrawSectionHeader(x, p.y+pad, "Trigger")

	y = p.slider(x, y, inner, "Splat ratio", t.TriggerRatio(), triggerMin, triggerMax, t.SetTriggerRatio)
	y = p.slider(x, y, inner, "Palette ratio", t.PaletteRatio(), paletteMin, paletteMax, t.SetPaletteRatio)

	bw := float32(inner-pad) / 2
	if gui.Button(rl.Rectangle{X: float32(x), Y: float32(y), Width: bw, Height: 24}, "New palette") {
		t.RandomizePalette()
	}
	if gui.Button(rl.Rectangle{X: float32(x) + bw + float32(pad), Y: float32(y), Width: bw, Height: 24}, "Reset ratios") {
		t.SetTriggerRatio(p.defaultTrigger)
		t.SetPaletteRatio(p.defaultPalette)
	}
	y += 34

	y = r.DrawSectionHeader(x, y, "Audio")
	react := data.Reaction
	scale := max(react.Average*t.PaletteRatio()*1.5, react.Flux, 1e-6)
	y = r.DrawMeter(x, y, "Loudness", react.Loudness, 0, 1, inner)
	y = r.DrawMeter(x, y, "Flux", react.Flux, react.Average*t.TriggerRatio(), scale, inner)
	y = r.DrawMeter(x, y, "Avg", react.Average, 0, scale, inner)
	y = r.DrawSparkline(x, y, "History", data.History, scale, inner)
	y += 4

	y = r.DrawSectionHeader(x, y, "Palette")
	y = r.DrawColorSwatch(x, y, "Palette", data.Palette)
	y = r.DrawColorSwatch(x, y, "Bg A", data.BackgroundA)
	cooldown := fmt.Sprintf("%d", data.Cooldown)
	if data.Cooldown > data.MinCooldown {
		cooldown += " (armed)"
	}
	r.DrawLabelValue(x, y, "Cooldown", cooldown)
}

func (p *TuningPanel) slider(x, y, width int32, label string, value, lo, hi float64, set func(float64)) int32 {
	r := p.renderer
	rl.DrawText(label, x, y, r.Theme.FontSize, r.Theme.LabelColor)
	y += r.Theme.LineHeight

	bounds := rl.Rectangle{X: float32(x) + 24, Y: float32(y), Width: float32(width - 90), Height: 16}
	got := gui.SliderBar(bounds, fmt.Sprintf("%.0f", lo), fmt.Sprintf("%.0f", hi), float32(value), float32(lo), float32(hi))
	if float64(got) != float64(float32(value)) {
		set(float64(got))
	}
	rl.DrawText(fmt.Sprintf("%.2f", value), x+width-40, y+2, r.Theme.FontSize, r.Theme.ValueColor)
	return y + 26
}
