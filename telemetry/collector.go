package telemetry

import "github.com/pthm-cable/inkflux/reactive"

// Collector accumulates driver reactions within a window and produces WindowStats.
type Collector struct {
	windowFrames int
	fps          float64
	windowStart  int

	loudness []float64
	flux     []float64
	volumes  []float64

	triggers       int
	paletteChanges int
	textureSwaps   int
	liveMax        int
	evictedAtStart int
}

// NewCollector creates a collector flushing every windowFrames frames. fps
// converts frame indices to seconds.
func NewCollector(windowFrames int, fps float64) *Collector {
	if fps <= 0 {
		fps = 60
	}
	return &Collector{
		windowFrames: max(windowFrames, 1),
		fps:          fps,
	}
}

// RecordReaction adds one driver step.
func (c *Collector) RecordReaction(r reactive.Reaction) {
	c.loudness = append(c.loudness, r.Loudness)
	if r.HasFlux {
		c.flux = append(c.flux, max(r.Flux, 0))
	}
	if r.Triggered() {
		c.triggers++
		c.volumes = append(c.volumes, r.Volumes...)
	}
	if r.PaletteChanged {
		c.paletteChanges++
	}
}

// RecordTextureSwaps adds applied reference texture loads.
func (c *Collector) RecordTextureSwaps(n int) {
	c.textureSwaps += n
}

// RecordLive samples the live splat count.
func (c *Collector) RecordLive(n int) {
	c.liveMax = max(c.liveMax, n)
}

// ShouldFlush reports whether the window ending at frame is complete.
func (c *Collector) ShouldFlush(frame int) bool {
	return frame-c.windowStart >= c.windowFrames
}

// Flush produces the window ending at frame and resets the counters. evicted
// is the environment's running eviction total; the window reports the delta.
func (c *Collector) Flush(frame int, track string, evicted int) WindowStats {
	loud := Describe(c.loudness)
	flux := Describe(c.flux)
	vol := Describe(c.volumes)

	stats := WindowStats{
		WindowStartFrame: c.windowStart,
		WindowEndFrame:   frame,
		Seconds:          float64(frame) / c.fps,
		Track:            track,
		LoudnessMean:     loud.Mean,
		LoudnessStd:      loud.Std,
		FluxMean:         flux.Mean,
		FluxP50:          flux.P50,
		FluxP90:          flux.P90,
		FluxMax:          flux.Max,
		Triggers:         c.triggers,
		Splats:           len(c.volumes),
		VolumeMean:       vol.Mean,
		PaletteChanges:   c.paletteChanges,
		TextureSwaps:     c.textureSwaps,
		LiveMax:          c.liveMax,
		Evicted:          evicted - c.evictedAtStart,
	}

	c.windowStart = frame
	c.evictedAtStart = evicted
	c.loudness = c.loudness[:0]
	c.flux = c.flux[:0]
	c.volumes = c.volumes[:0]
	c.triggers = 0
	c.paletteChanges = 0
	c.textureSwaps = 0
	c.liveMax = 0
	return stats
}

// WindowFrames returns the number of frames per window.
func (c *Collector) WindowFrames() int { return c.windowFrames }
