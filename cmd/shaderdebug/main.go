// Shader debug tool - runs the ink pipeline for a fixed number of frames and
// writes the simulation buffer to a PNG file for inspection.
//
// Usage: go run ./cmd/shaderdebug -frames 120 -splats 6 -out debug.png
package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"os"

	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/inkflux/config"
	"github.com/pthm-cable/inkflux/reactive"
	"github.com/pthm-cable/inkflux/renderer"
	"github.com/pthm-cable/inkflux/resource"
	"github.com/pthm-cable/inkflux/sim"
)

func main() {
	configPath := flag.String("config", "", "Path to config.yaml (empty = use defaults)")
	outPath := flag.String("out", "debug.png", "Output PNG path")
	width := flag.Int("width", 512, "Render width")
	height := flag.Int("height", 512, "Render height")
	frames := flag.Int("frames", 120, "Frames to simulate before capture")
	splats := flag.Int("splats", 6, "Splats spawned on the first frame")
	volume := flag.Float64("volume", 0.8, "Loudness used for each splat")
	reference := flag.String("reference", resource.GradientSource, "Reference texture source")
	seed := flag.Int64("seed", 1, "RNG seed")
	flag.Parse()

	if err := config.Init(*configPath); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	cfg := config.Cfg()

	overflow, err := sim.ParseOverflowPolicy(cfg.Simulation.Overflow)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid config: %v\n", err)
		os.Exit(1)
	}
	env := sim.NewEnvironment(sim.EnvironmentConfig{
		Seeds:         cfg.Simulation.Seeds,
		Overflow:      overflow,
		DecayInterval: cfg.Simulation.DecayInterval,
		DecayAmount:   cfg.Simulation.DecayAmount,
	})
	env.SetTextureURL(*reference)
	driver := reactive.NewDriver(cfg.Driver, cfg.Splat, env, rand.New(rand.NewSource(*seed)))

	// Initialize raylib with hidden window
	rl.SetConfigFlags(rl.FlagWindowHidden)
	rl.InitWindow(int32(*width), int32(*height), "Shader Debug")
	defer rl.CloseWindow()

	p, err := renderer.NewPipeline(context.Background(), cfg, env, *width, *height)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to build pipeline: %v\n", err)
		os.Exit(1)
	}
	defer p.Unload()

	for i := 0; i < *splats; i++ {
		env.AddSplat(driver.NewSplat(*volume))
	}

	for i := 0; i < *frames; i++ {
		rl.BeginDrawing()
		p.Step()
		rl.EndDrawing()
	}

	// Get image from texture and flip it (OpenGL convention)
	img := rl.LoadImageFromTexture(p.Output().Texture)
	rl.ImageFlipVertical(img)

	// Export to PNG
	success := rl.ExportImage(*img, *outPath)
	rl.UnloadImage(img)

	if success {
		fmt.Printf("Pipeline rendered to: %s (%d frames, %d evicted, decay %.4f)\n",
			*outPath, p.Frames(), env.Evicted(), p.LastDecay())
	} else {
		fmt.Fprintf(os.Stderr, "Failed to export image\n")
		os.Exit(1)
	}
}
