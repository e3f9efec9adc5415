package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"time"

	rl "github.com/gen2brain/raylib-go/raylib"
	"github.com/ncruces/zenity"

	"github.com/pthm-cable/inkflux/app"
	"github.com/pthm-cable/inkflux/config"
	"github.com/pthm-cable/inkflux/host"
)

func main() {
	configPath := flag.String("config", "", "Path to config.yaml (empty = use defaults)")
	headless := flag.Bool("headless", false, "Run host and driver without a window")
	hostKind := flag.String("host", "", "Spectrum source: synthetic | replay (empty = use config)")
	replayPath := flag.String("replay", "", "CSV recording for the replay host (implies -host replay)")
	pick := flag.Bool("pick", false, "Choose a replay recording with a file dialog")
	loop := flag.Bool("loop", false, "Loop the replay recording")
	logStats := flag.Bool("log-stats", false, "Output stats via slog")
	outputDir := flag.String("output-dir", "", "Output directory for CSV logs and config snapshot")
	seed := flag.Int64("seed", 0, "RNG seed (0 = time-based)")
	maxFrames := flag.Int("max-frames", 0, "Stop after N frames (0 = unlimited)")

	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	if err := config.Init(*configPath); err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	cfg := config.Cfg()

	if *pick {
		path, err := zenity.SelectFile(
			zenity.Title("Open Spectrum Recording"),
			zenity.FileFilters{{
				Name:     "Spectrum recordings",
				Patterns: []string{"*.csv"},
			}},
		)
		if err != nil {
			if errors.Is(err, zenity.ErrCanceled) {
				return
			}
			slog.Error("file dialog failed", "error", err)
			os.Exit(1)
		}
		*replayPath = path
	}
	if *replayPath != "" {
		cfg.Host.Kind = "replay"
		cfg.Host.Replay = *replayPath
	}
	if *hostKind != "" {
		cfg.Host.Kind = *hostKind
	}
	if *loop {
		cfg.Host.Loop = true
	}

	rngSeed := *seed
	if rngSeed == 0 {
		rngSeed = time.Now().UnixNano()
	}

	src, err := host.Open(cfg.Host, rngSeed)
	if err != nil {
		slog.Error("failed to open host", "kind", cfg.Host.Kind, "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	opts := app.Options{
		Host:      src,
		HostName:  cfg.Host.Kind,
		Seed:      rngSeed,
		OutputDir: *outputDir,
		LogStats:  *logStats,
		Headless:  *headless,
	}

	if *headless {
		a, err := app.New(ctx, cfg, opts)
		if err != nil {
			slog.Error("failed to start", "error", err)
			os.Exit(1)
		}
		defer a.Unload()

		slog.Info("starting headless run",
			"seed", rngSeed,
			"host", cfg.Host.Kind,
			"max_frames", *maxFrames,
		)
		for ctx.Err() == nil && !a.Done() {
			a.UpdateHeadless()
			if *maxFrames > 0 && a.Frame() >= *maxFrames {
				slog.Info("max frames reached", "frame", a.Frame())
				return
			}
		}
		return
	}

	rl.SetConfigFlags(rl.FlagWindowResizable | rl.FlagMsaa4xHint)
	rl.InitWindow(int32(cfg.Screen.Width), int32(cfg.Screen.Height), cfg.Screen.Title)
	if !rl.IsWindowReady() {
		src.Close()
		slog.Error("failed to open window")
		os.Exit(1)
	}
	defer rl.CloseWindow()
	rl.SetTargetFPS(int32(cfg.Screen.TargetFPS))

	a, err := app.New(ctx, cfg, opts)
	if err != nil {
		rl.CloseWindow()
		slog.Error("failed to start", "error", err)
		os.Exit(1)
	}
	defer a.Unload()

	for !rl.WindowShouldClose() && ctx.Err() == nil && !a.Done() {
		a.Update()
		a.Draw()

		if *maxFrames > 0 && a.Frame() >= *maxFrames {
			break
		}
	}
}
