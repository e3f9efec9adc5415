package main

import (
	"context"
	"math"
	"math/rand"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/pthm-cable/inkflux/config"
	"github.com/pthm-cable/inkflux/host"
	"github.com/pthm-cable/inkflux/reactive"
	"github.com/pthm-cable/inkflux/sim"
	"github.com/pthm-cable/inkflux/telemetry"
)

// Targets are the event rates a well-tuned driver should produce.
type Targets struct {
	TriggersPerMin float64
	PalettesPerMin float64
	MaxEvictedFrac float64 // evicted splats per injected splat tolerated before penalty
}

// FitnessEvaluator runs headless driver sessions and computes fitness.
type FitnessEvaluator struct {
	params     *ParamVector
	frames     int
	seeds      []int64
	baseConfig *config.Config
	targets    Targets

	mu          sync.Mutex
	bestFitness float64
	bestStats   []telemetry.WindowStats
	lastRates   rates
}

// NewFitnessEvaluator creates a new evaluator.
func NewFitnessEvaluator(params *ParamVector, frames int, seeds []int64, baseCfg *config.Config, targets Targets) *FitnessEvaluator {
	return &FitnessEvaluator{
		params:      params,
		frames:      frames,
		seeds:       seeds,
		baseConfig:  baseCfg,
		targets:     targets,
		bestFitness: math.Inf(1),
	}
}

// rates are per-minute event rates averaged over seeds.
type rates struct {
	Triggers    float64
	Palettes    float64
	EvictedFrac float64
}

// BestStats returns the window stats of the best evaluation's first seed.
func (fe *FitnessEvaluator) BestStats() []telemetry.WindowStats {
	fe.mu.Lock()
	defer fe.mu.Unlock()
	return fe.bestStats
}

// LastRates returns the rates from the most recent Evaluate call.
func (fe *FitnessEvaluator) LastRates() rates {
	fe.mu.Lock()
	defer fe.mu.Unlock()
	return fe.lastRates
}

// runResult holds the results from a single session.
type runResult struct {
	seconds     float64
	triggers    int
	palettes    int
	splats      int
	evicted     int
	windowStats []telemetry.WindowStats
}

// Evaluate computes fitness for a parameter vector (lower = better): the
// squared log error of each rate against its target, plus an eviction penalty.
func (fe *FitnessEvaluator) Evaluate(x []float64) float64 {
	cfg := fe.copyConfig()
	fe.params.ApplyToConfig(cfg, x)

	results := make([]runResult, len(fe.seeds))
	g, ctx := errgroup.WithContext(context.Background())
	for i, seed := range fe.seeds {
		i, seed := i, seed
		g.Go(func() error {
			r, err := fe.runSession(ctx, cfg, seed)
			results[i] = r
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return math.Inf(1)
	}

	var rt rates
	for _, r := range results {
		minutes := r.seconds / 60
		if minutes <= 0 {
			return math.Inf(1)
		}
		rt.Triggers += float64(r.triggers) / minutes
		rt.Palettes += float64(r.palettes) / minutes
		if r.splats > 0 {
			rt.EvictedFrac += float64(r.evicted) / float64(r.splats)
		}
	}
	n := float64(len(results))
	rt.Triggers /= n
	rt.Palettes /= n
	rt.EvictedFrac /= n

	fitness := logError(rt.Triggers, fe.targets.TriggersPerMin) +
		logError(rt.Palettes, fe.targets.PalettesPerMin)
	if excess := rt.EvictedFrac - fe.targets.MaxEvictedFrac; excess > 0 {
		fitness += 10 * excess
	}

	fe.mu.Lock()
	fe.lastRates = rt
	if fitness < fe.bestFitness {
		fe.bestFitness = fitness
		fe.bestStats = results[0].windowStats
	}
	fe.mu.Unlock()

	return fitness
}

// logError is the squared log ratio, with both sides offset by one so that
// zero rates stay finite.
func logError(got, want float64) float64 {
	d := math.Log1p(got) - math.Log1p(want)
	return d * d
}

// runSession drives a synthetic host through the reactive driver without a window.
func (fe *FitnessEvaluator) runSession(ctx context.Context, cfg *config.Config, seed int64) (runResult, error) {
	overflow, err := sim.ParseOverflowPolicy(cfg.Simulation.Overflow)
	if err != nil {
		return runResult{}, err
	}
	src := host.NewSynthetic(cfg.Host, seed)
	defer src.Close()

	env := sim.NewEnvironment(sim.EnvironmentConfig{
		Seeds:         cfg.Simulation.Seeds,
		Overflow:      overflow,
		DecayInterval: cfg.Simulation.DecayInterval,
		DecayAmount:   cfg.Simulation.DecayAmount,
	})
	driver := reactive.NewDriver(cfg.Driver, cfg.Splat, env, rand.New(rand.NewSource(seed)))
	collector := telemetry.NewCollector(cfg.Derived.StatsWindowFrames, cfg.Host.FPS)

	var res runResult
	for frame := 1; frame <= fe.frames; frame++ {
		if frame%1024 == 0 && ctx.Err() != nil {
			return res, ctx.Err()
		}
		s, ok := src.Next()
		if !ok {
			break
		}
		r := driver.Step(s)
		env.Emit()
		env.Decay()

		collector.RecordReaction(r)
		collector.RecordLive(env.Live())
		if r.Triggered() {
			res.triggers++
			res.splats += len(r.Volumes)
		}
		if r.PaletteChanged {
			res.palettes++
		}
		if collector.ShouldFlush(frame) {
			track, _ := src.CurrentTrack(ctx)
			res.windowStats = append(res.windowStats, collector.Flush(frame, track.URI, env.Evicted()))
		}
		res.seconds = float64(frame) / cfg.Host.FPS
	}
	res.evicted = env.Evicted()
	return res, nil
}

// copyConfig creates a copy of the base config. VolumeGains is the only
// slice the driver reads, so it is cloned explicitly.
func (fe *FitnessEvaluator) copyConfig() *config.Config {
	cfg := *fe.baseConfig
	cfg.Driver.VolumeGains = append([]float64(nil), fe.baseConfig.Driver.VolumeGains...)
	return &cfg
}
