package ui

import (
	"fmt"
	"time"

	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/inkflux/telemetry"
)

// HUDData holds everything the heads-up display shows.
type HUDData struct {
	Title  string
	Track  string
	Frame  int
	FPS    int32
	Live     int
	Seeds    int
	Overflow string
	Paused   bool
	Host     string
}

// HUD renders the heads-up display.
type HUD struct {
	renderer *Renderer
}

// NewHUD creates a HUD.
func NewHUD() *HUD {
	return &HUD{renderer: NewRenderer()}
}

// Draw renders the HUD in the top-left corner.
func (h *HUD) Draw(data HUDData) {
	rl.DrawText(data.Title, 10, 10, 20, rl.White)
	rl.DrawText(
		fmt.Sprintf("Frame: %d | FPS: %d | Splats: %d/%d (%s) | Host: %s",
			data.Frame, data.FPS, data.Live, data.Seeds, data.Overflow, data.Host),
		10, 35, 16, rl.LightGray,
	)
	track := data.Track
	if track == "" {
		track = "-"
	}
	rl.DrawText("Track: "+track, 10, 55, 16, rl.LightGray)
	if data.Paused {
		rl.DrawText("PAUSED", 10, 75, 16, rl.Yellow)
	}
}

// DrawControls renders the key legend at the bottom of the screen.
func (h *HUD) DrawControls(screenHeight int32, controls string) {
	rl.DrawText(controls, 10, screenHeight-25, 14, rl.Gray)
}

// PerfPanel renders the per-phase frame timings.
type PerfPanel struct {
	renderer *Renderer
	x, y     int32
}

// NewPerfPanel creates a perf panel at x, y.
func NewPerfPanel(x, y int32) *PerfPanel {
	return &PerfPanel{renderer: NewRenderer(), x: x, y: y}
}

// SetPosition moves the panel.
func (p *PerfPanel) SetPosition(x, y int32) {
	p.x, p.y = x, y
}

// Draw renders the panel.
func (p *PerfPanel) Draw(stats telemetry.PerfStats) {
	r := p.renderer
	phases := []string{
		telemetry.PhasePoll, telemetry.PhaseDriver, telemetry.PhaseSimulate,
		telemetry.PhaseRender, telemetry.PhaseTelemetry,
	}
	width := int32(220)
	height := r.Theme.Padding*2 + r.Theme.LineHeight*int32(len(phases)+2)
	r.DrawPanel(p.x, p.y, width, height)

	x := p.x + r.Theme.Padding
	y := r.DrawSectionHeader(x, p.y+r.Theme.Padding, "Frame "+stats.AvgFrame.Round(time.Microsecond).String())
	for _, phase := range phases {
		value := fmt.Sprintf("%6s %4.1f%%", stats.PhaseAvg[phase].Round(time.Microsecond), stats.PhasePct[phase])
		y = r.DrawLabelValue(x, y, phase, value)
	}
}
