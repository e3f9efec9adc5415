package reactive

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/pthm-cable/inkflux/config"
	"github.com/pthm-cable/inkflux/host"
	"github.com/pthm-cable/inkflux/sim"
)

func init() {
	config.MustInit("")
}

func approx(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestFluxBufferAverage(t *testing.T) {
	b := NewFluxBuffer(30)
	if b.Average() != 0 {
		t.Errorf("empty average = %v, want 0", b.Average())
	}

	b.Push(0.2)
	b.Push(0.4)
	if !approx(b.Average(), 0.3) {
		t.Errorf("average = %v, want 0.3", b.Average())
	}
}

func TestFluxBufferClampsNegatives(t *testing.T) {
	b := NewFluxBuffer(5)
	for _, v := range []float64{-1, 0.5, -0.001, 2, -3, -4, 0.1} {
		b.Push(v)
	}
	for i, v := range b.Values() {
		if v < 0 {
			t.Errorf("slot %d holds negative %v", i, v)
		}
	}
}

func TestFluxBufferWraps(t *testing.T) {
	b := NewFluxBuffer(3)
	for _, v := range []float64{1, 1, 1, 4, 4, 4} {
		b.Push(v)
	}
	if b.Len() != 3 {
		t.Errorf("len = %d, want 3", b.Len())
	}
	if !approx(b.Average(), 4) {
		t.Errorf("average after wrap = %v, want 4", b.Average())
	}
	for i, v := range b.Values() {
		if !approx(v, 4) {
			t.Errorf("slot %d = %v after wrap, want 4", i, v)
		}
	}
}

func TestLoudness(t *testing.T) {
	tests := []struct {
		name string
		s    host.Spectrum
		want float64
	}{
		{"silence", host.Spectrum{Left: []float64{-96, -96}, Right: []float64{-96, -96}}, 0},
		{"full scale", host.Spectrum{Left: []float64{0, 0}, Right: []float64{0}}, 1},
		{"half", host.Spectrum{Left: []float64{-48}, Right: []float64{-48}}, 0.5},
		{"mixed", host.Spectrum{Left: []float64{-96, 0}, Right: []float64{-48, -48}}, 0.5},
		{"empty", host.Spectrum{}, 1},
	}
	for _, tc := range tests {
		if got := Loudness(tc.s, -96); !approx(got, tc.want) {
			t.Errorf("%s: loudness = %v, want %v", tc.name, got, tc.want)
		}
	}
}

func newDriver(seeds int) (*Driver, *sim.Environment) {
	cfg := config.Cfg()
	env := sim.NewEnvironment(sim.EnvironmentConfig{
		Seeds:         seeds,
		Overflow:      sim.Backlog,
		DecayInterval: cfg.Simulation.DecayInterval,
		DecayAmount:   cfg.Simulation.DecayAmount,
	})
	return NewDriver(cfg.Driver, cfg.Splat, env, rand.New(rand.NewSource(7))), env
}

func TestReactTriggersTwoSplats(t *testing.T) {
	d, env := newDriver(4)

	r := d.react(0.25, 0.1)
	if len(r.Volumes) != 2 {
		t.Fatalf("volumes = %v, want two", r.Volumes)
	}
	if !approx(r.Volumes[0], 1.6) || !approx(r.Volumes[1], 2.6) {
		t.Errorf("volumes = %v, want [1.6 2.6]", r.Volumes)
	}
	if env.Live() != 2 {
		t.Fatalf("live splats = %d, want 2", env.Live())
	}

	seeds := env.Emit()
	for i, wantSize := range []float64{1.6 * 0.15, 2.6 * 0.15} {
		if !approx(seeds[i].Size, wantSize) {
			t.Errorf("seed %d size = %v, want %v", i, seeds[i].Size, wantSize)
		}
		// Amount is capped at 0.8 and spread over 8 frames
		if !approx(seeds[i].Amount, 0.1) {
			t.Errorf("seed %d amount = %v, want 0.1", i, seeds[i].Amount)
		}
		if seeds[i].Scatter < 2 || seeds[i].Scatter >= 6 {
			t.Errorf("seed %d scatter = %v out of [2, 6)", i, seeds[i].Scatter)
		}
		p := seeds[i].Position
		if p.X < -0.1 || p.X >= 1.1 || p.Y < -0.1 || p.Y >= 1.1 {
			t.Errorf("seed %d start %+v out of range", i, p)
		}
	}
}

func TestReactBelowThresholdInjectsNothing(t *testing.T) {
	d, env := newDriver(4)
	r := d.react(0.15, 0.1)
	if r.Triggered() {
		t.Errorf("expected no trigger, got volumes %v", r.Volumes)
	}
	if env.Live() != 0 {
		t.Errorf("live = %d, want 0", env.Live())
	}
}

func TestPaletteCooldown(t *testing.T) {
	tests := []struct {
		name     string
		cooldown int
		changed  bool
	}{
		{"cooled down", 150, true},
		{"cooling", 50, false},
		{"boundary", 100, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			d, _ := newDriver(4)
			d.cooldown = tc.cooldown
			before := d.Palette()

			r := d.react(0.6, 0.1)
			if r.PaletteChanged != tc.changed {
				t.Fatalf("palette changed = %v, want %v", r.PaletteChanged, tc.changed)
			}
			if tc.changed {
				if d.Cooldown() != 0 {
					t.Errorf("cooldown = %d, want 0", d.Cooldown())
				}
				return
			}
			if d.Cooldown() != tc.cooldown+1 {
				t.Errorf("cooldown = %d, want %d", d.Cooldown(), tc.cooldown+1)
			}
			want := before.Scale(0.999)
			got := d.Palette()
			if !approx(got.R, want.R) || !approx(got.G, want.G) || !approx(got.B, want.B) {
				t.Errorf("palette = %+v, want %+v", got, want)
			}
		})
	}
}

func TestStepFirstFrameHasNoFlux(t *testing.T) {
	d, env := newDriver(2)
	loud := host.Spectrum{Left: []float64{0}, Right: []float64{0}}

	r := d.Step(loud)
	if r.HasFlux || r.Triggered() {
		t.Errorf("first frame reaction = %+v", r)
	}
	if d.Flux().Len() != 0 {
		t.Errorf("flux buffer len = %d after first frame", d.Flux().Len())
	}
	// Background A is set from the starting palette
	if bg := env.BackgroundA(); !approx(bg.R, 0.3*0.2) {
		t.Errorf("background A = %+v", bg)
	}
}

func TestStepOnsetTriggers(t *testing.T) {
	d, env := newDriver(4)
	quiet := host.Spectrum{Left: []float64{-90}, Right: []float64{-90}}
	loud := host.Spectrum{Left: []float64{-10}, Right: []float64{-10}}

	for i := 0; i < 10; i++ {
		d.Step(quiet)
	}
	r := d.Step(loud)
	if !r.HasFlux || r.Flux <= 0 {
		t.Fatalf("expected positive flux, got %+v", r)
	}
	if !r.Triggered() {
		t.Fatalf("expected trigger on onset, got %+v", r)
	}
	if env.Live() != 2 {
		t.Errorf("live = %d, want 2", env.Live())
	}

	// Falling loudness pushes zero, never negative
	d.Step(quiet)
	for _, v := range d.Flux().Values() {
		if v < 0 {
			t.Errorf("negative flux stored: %v", v)
		}
	}
}

func TestRuntimeRatios(t *testing.T) {
	d, _ := newDriver(4)
	d.SetTriggerRatio(10)
	if r := d.react(0.25, 0.1); r.Triggered() {
		t.Errorf("expected raised trigger ratio to suppress splats")
	}
	d.SetPaletteRatio(1)
	d.cooldown = 200
	if r := d.react(0.25, 0.1); !r.PaletteChanged {
		t.Errorf("expected lowered palette ratio to change palette")
	}
}

type fakeTracks struct {
	track host.Track
	err   error
}

func (f fakeTracks) CurrentTrack(ctx context.Context) (host.Track, error) {
	return f.track, f.err
}

type fakeCovers struct{}

func (fakeCovers) CoverURL(ctx context.Context, albumID string) (string, error) {
	return "https://img.example/640/" + albumID, nil
}

func drainArtwork(t *testing.T, a *Artwork, env *sim.Environment) (applied, failed int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		ok, bad := a.Apply(env)
		applied += ok
		failed += bad
		if applied+failed > 0 {
			return applied, failed
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("artwork lookup did not complete")
	return 0, 0
}

func TestArtworkSetsTexture(t *testing.T) {
	_, env := newDriver(2)
	a := NewArtwork(context.Background(),
		fakeTracks{track: host.Track{URI: "spotify:album:abc"}},
		fakeCovers{}, "spotify:album:")
	defer a.Close()

	a.Refresh()
	applied, failed := drainArtwork(t, a, env)
	if applied != 1 || failed != 0 {
		t.Fatalf("applied=%d failed=%d", applied, failed)
	}
	if env.TextureURL() != "https://img.example/640/abc" {
		t.Errorf("texture = %q", env.TextureURL())
	}
	if a.Track().URI != "spotify:album:abc" {
		t.Errorf("track = %q", a.Track().URI)
	}
}

func TestArtworkFailureLeavesTexture(t *testing.T) {
	tests := []struct {
		name   string
		tracks fakeTracks
	}{
		{"not an album", fakeTracks{track: host.Track{URI: "spotify:track:xyz"}}},
		{"host error", fakeTracks{err: errors.New("player offline")}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, env := newDriver(2)
			env.SetTextureURL("gradient:")
			a := NewArtwork(context.Background(), tc.tracks, fakeCovers{}, "spotify:album:")
			defer a.Close()

			a.Refresh()
			applied, failed := drainArtwork(t, a, env)
			if applied != 0 || failed != 1 {
				t.Errorf("applied=%d failed=%d", applied, failed)
			}
			if env.TextureURL() != "gradient:" {
				t.Errorf("texture changed to %q", env.TextureURL())
			}
		})
	}
}

func TestArtworkCloseUnblocks(t *testing.T) {
	a := NewArtwork(context.Background(),
		fakeTracks{track: host.Track{URI: "spotify:album:abc"}},
		blockingCovers{}, "spotify:album:")

	a.Refresh()
	done := make(chan struct{})
	go func() {
		a.Close()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Close did not return")
	}
}

type blockingCovers struct{}

func (blockingCovers) CoverURL(ctx context.Context, albumID string) (string, error) {
	<-ctx.Done()
	return "", ctx.Err()
}

// switchingTracks reports whichever track was set last.
type switchingTracks struct {
	mu    sync.Mutex
	track host.Track
}

func (f *switchingTracks) set(uri string) {
	f.mu.Lock()
	f.track = host.Track{URI: uri}
	f.mu.Unlock()
}

func (f *switchingTracks) CurrentTrack(ctx context.Context) (host.Track, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.track, nil
}

// slowCovers holds lookups for one album until release is closed.
type slowCovers struct {
	album   string
	started chan struct{}
	release chan struct{}
}

func (c slowCovers) CoverURL(ctx context.Context, albumID string) (string, error) {
	if albumID == c.album {
		close(c.started)
		select {
		case <-c.release:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return "https://img.example/640/" + albumID, nil
}

func TestArtworkDropsSupersededLookup(t *testing.T) {
	_, env := newDriver(2)
	tracks := &switchingTracks{}
	tracks.set("spotify:album:old")
	covers := slowCovers{album: "old", started: make(chan struct{}), release: make(chan struct{})}
	a := NewArtwork(context.Background(), tracks, covers, "spotify:album:")
	defer a.Close()

	a.Refresh()
	select {
	case <-covers.started:
	case <-time.After(2 * time.Second):
		t.Fatal("lookup for old album never started")
	}

	tracks.set("spotify:album:new")
	a.Refresh()
	if applied, _ := drainArtwork(t, a, env); applied != 1 {
		t.Fatalf("applied = %d, want 1", applied)
	}
	if env.TextureURL() != "https://img.example/640/new" {
		t.Fatalf("texture = %q, want new album", env.TextureURL())
	}

	close(covers.release)
	deadline := time.Now().Add(2 * time.Second)
	for a.stale == 0 {
		if time.Now().After(deadline) {
			t.Fatal("old lookup was never delivered")
		}
		if applied, failed := a.Apply(env); applied+failed > 0 {
			t.Errorf("old lookup applied: applied=%d failed=%d", applied, failed)
		}
		time.Sleep(time.Millisecond)
	}

	if env.TextureURL() != "https://img.example/640/new" {
		t.Errorf("texture = %q, want new album to survive late result", env.TextureURL())
	}
	if a.Track().URI != "spotify:album:new" {
		t.Errorf("track = %q, want new album", a.Track().URI)
	}
}
