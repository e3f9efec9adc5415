// Package telemetry aggregates per-frame driver activity and frame timings
// into windows that are logged and optionally written to CSV.
package telemetry

import (
	"log/slog"
	"slices"

	"gonum.org/v1/gonum/stat"
)

// WindowStats summarizes driver activity over one stats window.
type WindowStats struct {
	WindowStartFrame int     `csv:"-"`
	WindowEndFrame   int     `csv:"window_end"`
	Seconds          float64 `csv:"seconds"`
	Track            string  `csv:"track"`

	LoudnessMean float64 `csv:"loudness_mean"`
	LoudnessStd  float64 `csv:"loudness_std"`

	FluxMean float64 `csv:"flux_mean"`
	FluxP50  float64 `csv:"flux_p50"`
	FluxP90  float64 `csv:"flux_p90"`
	FluxMax  float64 `csv:"flux_max"`

	Triggers       int     `csv:"triggers"`        // frames that injected splats
	Splats         int     `csv:"splats"`          // splats injected
	VolumeMean     float64 `csv:"volume_mean"`     // mean trigger volume
	PaletteChanges int     `csv:"palette_changes"` // palette replacements
	TextureSwaps   int     `csv:"texture_swaps"`   // reference textures applied

	LiveMax int `csv:"live_max"` // peak live splats sampled per frame
	Evicted int `csv:"evicted"`  // splats dropped by the overflow policy
}

// Percentile returns the p-th percentile of sorted, p in [0, 1], with linear
// interpolation between ranks. Returns 0 for an empty slice.
func Percentile(sorted []float64, p float64) float64 {
	n := len(sorted)
	switch {
	case n == 0:
		return 0
	case p <= 0:
		return sorted[0]
	case p >= 1:
		return sorted[n-1]
	}
	idx := p * float64(n-1)
	lo := int(idx)
	if lo+1 >= n {
		return sorted[n-1]
	}
	frac := idx - float64(lo)
	return sorted[lo]*(1-frac) + sorted[lo+1]*frac
}

// Distribution summarizes a sample.
type Distribution struct {
	Mean, Std     float64
	P50, P90, Max float64
}

// Describe computes the distribution of values. Std is the sample standard
// deviation and is 0 for fewer than two values.
func Describe(values []float64) Distribution {
	n := len(values)
	if n == 0 {
		return Distribution{}
	}
	var d Distribution
	if n == 1 {
		d.Mean = values[0]
	} else {
		d.Mean, d.Std = stat.MeanStdDev(values, nil)
	}
	sorted := slices.Clone(values)
	slices.Sort(sorted)
	d.P50 = Percentile(sorted, 0.5)
	d.P90 = Percentile(sorted, 0.9)
	d.Max = sorted[n-1]
	return d
}

// LogValue implements slog.LogValuer.
func (s WindowStats) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("window_start", s.WindowStartFrame),
		slog.Int("window_end", s.WindowEndFrame),
		slog.Float64("seconds", s.Seconds),
		slog.String("track", s.Track),
		slog.Float64("loudness_mean", s.LoudnessMean),
		slog.Float64("loudness_std", s.LoudnessStd),
		slog.Float64("flux_mean", s.FluxMean),
		slog.Float64("flux_p90", s.FluxP90),
		slog.Int("triggers", s.Triggers),
		slog.Int("splats", s.Splats),
		slog.Int("palette_changes", s.PaletteChanges),
		slog.Int("texture_swaps", s.TextureSwaps),
		slog.Int("live_max", s.LiveMax),
		slog.Int("evicted", s.Evicted),
	)
}

// LogStats logs the window at info level.
func (s WindowStats) LogStats() {
	slog.Info("stats", "window", s)
}
