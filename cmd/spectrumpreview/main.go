// Spectrum preview tool - runs the synthetic host through the driver with
// sliders for the tempo and trigger ratios, and records sessions for replay.
//
// Usage: go run ./cmd/spectrumpreview
//
//	go run ./cmd/spectrumpreview -record session.csv -frames 3600
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"

	gui "github.com/gen2brain/raylib-go/raygui"
	rl "github.com/gen2brain/raylib-go/raylib"
	"github.com/ncruces/zenity"

	"github.com/pthm-cable/inkflux/config"
	"github.com/pthm-cable/inkflux/host"
	"github.com/pthm-cable/inkflux/reactive"
	"github.com/pthm-cable/inkflux/sim"
)

const (
	windowWidth  = 1000
	windowHeight = 720
	previewSize  = 512
	panelWidth   = windowWidth - previewSize - 30
	historyLen   = previewSize
)

// PreviewParams holds the tunable host and driver parameters.
type PreviewParams struct {
	BPM          float32
	TrackSeconds float32
	TriggerRatio float32
	PaletteRatio float32
	Seed         int64
}

func defaultParams(cfg *config.Config) PreviewParams {
	return PreviewParams{
		BPM:          float32(cfg.Host.BPM),
		TrackSeconds: float32(cfg.Host.TrackSeconds),
		TriggerRatio: float32(cfg.Driver.TriggerRatio),
		PaletteRatio: float32(cfg.Driver.PaletteRatio),
		Seed:         1,
	}
}

func (p PreviewParams) hostConfig(cfg *config.Config) config.HostConfig {
	hc := cfg.Host
	hc.BPM = float64(p.BPM)
	hc.TrackSeconds = float64(p.TrackSeconds)
	return hc
}

// session is one synthetic host feeding a driver.
type session struct {
	src    *host.Synthetic
	env    *sim.Environment
	driver *reactive.Driver

	last     host.Spectrum
	react    reactive.Reaction
	loudness []float32
	flux     []float32
	trigger  []float32

	frames   int
	triggers int
	palettes int
}

func newSession(cfg *config.Config, p PreviewParams) *session {
	env := sim.NewEnvironment(sim.EnvironmentConfig{
		Seeds:         cfg.Simulation.Seeds,
		DecayInterval: cfg.Simulation.DecayInterval,
		DecayAmount:   cfg.Simulation.DecayAmount,
	})
	driver := reactive.NewDriver(cfg.Driver, cfg.Splat, env, rand.New(rand.NewSource(p.Seed)))
	driver.SetTriggerRatio(float64(p.TriggerRatio))
	driver.SetPaletteRatio(float64(p.PaletteRatio))
	return &session{
		src:    host.NewSynthetic(p.hostConfig(cfg), p.Seed),
		env:    env,
		driver: driver,
	}
}

func (s *session) step() {
	spec, _ := s.src.Next()
	s.last = spec
	s.react = s.driver.Step(spec)
	s.env.Emit()
	s.env.Decay()
	s.frames++
	if s.react.Triggered() {
		s.triggers++
	}
	if s.react.PaletteChanged {
		s.palettes++
	}

	s.loudness = pushHistory(s.loudness, float32(s.react.Loudness))
	s.flux = pushHistory(s.flux, float32(max(s.react.Flux, 0)))
	s.trigger = pushHistory(s.trigger, float32(s.react.Average*s.driver.TriggerRatio()))
}

func pushHistory(h []float32, v float32) []float32 {
	if len(h) >= historyLen {
		copy(h, h[1:])
		h = h[:len(h)-1]
	}
	return append(h, v)
}

// record writes n frames of a fresh synthetic session to path.
func record(cfg *config.Config, p PreviewParams, path string, n int) (int, error) {
	f, err := os.Create(path)
	if err != nil {
		return 0, err
	}
	src := host.NewSynthetic(p.hostConfig(cfg), p.Seed)
	written, err := host.Record(context.Background(), src, n, f)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	return written, err
}

func main() {
	configPath := flag.String("config", "", "Path to config.yaml (empty = use defaults)")
	recordPath := flag.String("record", "", "Write a recording to this path and exit")
	frames := flag.Int("frames", 3600, "Frames per recording")
	seed := flag.Int64("seed", 1, "Synthetic host seed")
	flag.Parse()

	if err := config.Init(*configPath); err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	cfg := config.Cfg()

	defaults := defaultParams(cfg)
	defaults.Seed = *seed
	params := defaults

	if *recordPath != "" {
		n, err := record(cfg, params, *recordPath, *frames)
		if err != nil {
			log.Fatalf("recording failed: %v", err)
		}
		fmt.Printf("Recorded %d frames to %s\n", n, *recordPath)
		return
	}

	rl.InitWindow(windowWidth, windowHeight, "Spectrum Preview")
	defer rl.CloseWindow()
	rl.SetTargetFPS(int32(cfg.Host.FPS))

	s := newSession(cfg, params)
	running := true
	status := ""

	for !rl.WindowShouldClose() {
		if running {
			s.step()
		}

		rl.BeginDrawing()
		rl.ClearBackground(rl.RayWhite)

		drawSpectrum(s, 10, 10)
		drawHistory(s, 10, 10+previewSize/2+10)

		statsY := int32(previewSize + 40)
		minutes := float64(s.frames) / cfg.Host.FPS / 60
		if minutes > 0 {
			rl.DrawText(fmt.Sprintf("Triggers: %.1f/min  Palettes: %.1f/min  Live: %d  Evicted: %d",
				float64(s.triggers)/minutes, float64(s.palettes)/minutes, s.env.Live(), s.env.Evicted()),
				15, statsY, 16, rl.DarkGray)
		}
		track, _ := s.src.CurrentTrack(context.Background())
		rl.DrawText(fmt.Sprintf("Frame: %d  Track: %s", s.frames, track.URI), 15, statsY+20, 16, rl.DarkGray)
		rl.DrawText(status, 15, statsY+40, 16, rl.Maroon)

		// Control panel
		panelX := float32(previewSize + 20)
		panelY := float32(10)

		rl.DrawText("Synthetic Host", int32(panelX), int32(panelY), 20, rl.DarkGray)
		panelY += 35

		var rebuild bool
		var v float32

		v, panelY = slider(panelX, panelY, "BPM (kick tempo)", "60", "180", params.BPM, 60, 180, "%.0f")
		if v != params.BPM {
			params.BPM = v
			rebuild = true
		}
		v, panelY = slider(panelX, panelY, "Track seconds (album change interval)", "5", "120", params.TrackSeconds, 5, 120, "%.0f")
		if v != params.TrackSeconds {
			params.TrackSeconds = v
			rebuild = true
		}

		rl.DrawLine(int32(panelX), int32(panelY), int32(panelX)+int32(panelWidth)-20, int32(panelY), rl.LightGray)
		panelY += 15
		rl.DrawText("Driver", int32(panelX), int32(panelY), 16, rl.DarkGray)
		panelY += 25

		v, panelY = slider(panelX, panelY, "Trigger ratio (splat when flux > avg * this)", "1", "6", params.TriggerRatio, 1, 6, "%.2f")
		if v != params.TriggerRatio {
			params.TriggerRatio = v
			s.driver.SetTriggerRatio(float64(v))
		}
		v, panelY = slider(panelX, panelY, "Palette ratio", "2", "12", params.PaletteRatio, 2, 12, "%.2f")
		if v != params.PaletteRatio {
			params.PaletteRatio = v
			s.driver.SetPaletteRatio(float64(v))
		}
		panelY += 10

		// Buttons
		if gui.Button(rl.Rectangle{X: panelX, Y: panelY, Width: 120, Height: 30}, toggleText(running, "Pause", "Run")) {
			running = !running
		}
		if gui.Button(rl.Rectangle{X: panelX + 130, Y: panelY, Width: 120, Height: 30}, "Restart") {
			rebuild = true
		}
		panelY += 45

		if gui.Button(rl.Rectangle{X: panelX, Y: panelY, Width: 120, Height: 30}, "Random Seed") {
			params.Seed = int64(rl.GetRandomValue(0, 99999))
			rebuild = true
		}
		if gui.Button(rl.Rectangle{X: panelX + 130, Y: panelY, Width: 120, Height: 30}, "Reset All") {
			params = defaults
			rebuild = true
		}
		panelY += 45

		if gui.Button(rl.Rectangle{X: panelX, Y: panelY, Width: 250, Height: 30}, fmt.Sprintf("Record %d frames...", *frames)) {
			status = saveRecording(cfg, params, *frames)
		}
		panelY += 55

		// Output YAML
		rl.DrawText("YAML Config:", int32(panelX), int32(panelY), 16, rl.DarkGray)
		panelY += 25
		for _, line := range yamlLines(params) {
			rl.DrawText(line, int32(panelX), int32(panelY), 14, rl.Gray)
			panelY += 16
		}

		rl.DrawText("Press C to copy YAML to clipboard", int32(panelX), int32(windowHeight-30), 12, rl.LightGray)
		if rl.IsKeyPressed(rl.KeyC) {
			var out string
			for _, line := range yamlLines(params) {
				out += line + "\n"
			}
			rl.SetClipboardText(out)
		}

		rl.EndDrawing()

		if rebuild {
			s.src.Close()
			s = newSession(cfg, params)
		}
	}
}

func slider(x, y float32, label, lo, hi string, value, vmin, vmax float32, format string) (float32, float32) {
	rl.DrawText(label, int32(x), int32(y), 14, rl.Gray)
	y += 18
	got := gui.SliderBar(
		rl.Rectangle{X: x, Y: y, Width: float32(panelWidth - 80), Height: 20},
		lo, hi,
		value, vmin, vmax,
	)
	rl.DrawText(fmt.Sprintf(format, value), int32(x+float32(panelWidth-70)), int32(y+2), 16, rl.DarkGray)
	return got, y + 35
}

func saveRecording(cfg *config.Config, p PreviewParams, n int) string {
	path, err := zenity.SelectFileSave(
		zenity.Title("Save Spectrum Recording"),
		zenity.Filename("spectrum.csv"),
		zenity.ConfirmOverwrite(),
		zenity.FileFilters{{
			Name:     "Spectrum recordings",
			Patterns: []string{"*.csv"},
		}},
	)
	if err != nil {
		if errors.Is(err, zenity.ErrCanceled) {
			return ""
		}
		return fmt.Sprintf("save dialog failed: %v", err)
	}
	written, err := record(cfg, p, path, n)
	if err != nil {
		return fmt.Sprintf("recording failed: %v", err)
	}
	return fmt.Sprintf("recorded %d frames to %s", written, path)
}

// drawSpectrum draws both channels as bars, left above right.
func drawSpectrum(s *session, x, y int32) {
	h := int32(previewSize / 4)
	rl.DrawRectangle(x, y, previewSize, 2*h, rl.Black)
	for i, ch := range [][]float64{s.last.Left, s.last.Right} {
		base := y + int32(i+1)*h
		if len(ch) == 0 {
			continue
		}
		w := float32(previewSize) / float32(len(ch))
		for b, db := range ch {
			level := float32((db - host.MinDB) / (host.MaxDB - host.MinDB))
			bh := int32(level * float32(h-2))
			rl.DrawRectangle(x+int32(float32(b)*w), base-bh, max(int32(w), 1), bh, rl.SkyBlue)
		}
	}
	rl.DrawRectangleLines(x, y, previewSize, 2*h, rl.DarkGray)
}

// drawHistory plots loudness, positive flux and the trigger threshold.
func drawHistory(s *session, x, y int32) {
	h := int32(previewSize / 4)
	rl.DrawRectangle(x, y, previewSize, h, rl.Black)

	var peak float32 = 1e-6
	for i := range s.flux {
		peak = max(peak, s.flux[i], s.trigger[i])
	}
	plot := func(values []float32, scale float32, c rl.Color) {
		for i := 1; i < len(values); i++ {
			y0 := y + h - int32(values[i-1]/scale*float32(h-2))
			y1 := y + h - int32(values[i]/scale*float32(h-2))
			rl.DrawLine(x+int32(i-1), y0, x+int32(i), y1, c)
		}
	}
	plot(s.loudness, 1, rl.Gray)
	plot(s.trigger, peak, rl.Orange)
	plot(s.flux, peak, rl.Green)
	rl.DrawRectangleLines(x, y, previewSize, h, rl.DarkGray)

	rl.DrawText("loudness", x+4, y+h+4, 12, rl.Gray)
	rl.DrawText("flux", x+70, y+h+4, 12, rl.Green)
	rl.DrawText("threshold", x+110, y+h+4, 12, rl.Orange)
}

func yamlLines(p PreviewParams) []string {
	return []string{
		"host:",
		fmt.Sprintf("  bpm: %.0f", p.BPM),
		fmt.Sprintf("  track_seconds: %.0f", p.TrackSeconds),
		"driver:",
		fmt.Sprintf("  trigger_ratio: %.2f", p.TriggerRatio),
		fmt.Sprintf("  palette_ratio: %.2f", p.PaletteRatio),
	}
}

func toggleText(cond bool, ifTrue, ifFalse string) string {
	if cond {
		return ifTrue
	}
	return ifFalse
}
