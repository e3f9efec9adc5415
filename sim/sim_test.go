package sim

import (
	"math"
	"testing"
)

func approx(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestSplatFinishesAfterDuration(t *testing.T) {
	for _, duration := range []int{1, 2, 8, 30} {
		s := NewSplat(SplatParams{Size: 0.1, TotalAmount: 0.8, Duration: duration})
		for i := 0; i < duration; i++ {
			if s.Finished() {
				t.Fatalf("duration %d: finished after %d emits", duration, i)
			}
			s.Emit()
		}
		if !s.Finished() {
			t.Errorf("duration %d: not finished after %d emits", duration, duration)
		}
	}
}

func TestSplatTrajectory(t *testing.T) {
	s := NewSplat(SplatParams{
		Start:       Vec2{X: 0.5, Y: 0.25},
		Velocity:    Vec2{X: 0.01, Y: -0.02},
		Scatter:     3,
		Size:        0.24,
		TotalAmount: 0.8,
		Duration:    8,
	})

	for frame := 0; frame < 8; frame++ {
		seed := s.Emit()
		wantX := 0.5 + 0.01*float64(frame)
		wantY := 0.25 - 0.02*float64(frame)
		if !approx(seed.Position.X, wantX) || !approx(seed.Position.Y, wantY) {
			t.Errorf("frame %d: position = %+v, want (%v, %v)", frame, seed.Position, wantX, wantY)
		}
		if !approx(seed.Amount, 0.1) {
			t.Errorf("frame %d: amount = %v, want 0.1", frame, seed.Amount)
		}
		if seed.Scatter != 3 || seed.Size != 0.24 {
			t.Errorf("frame %d: scatter/size = %v/%v", frame, seed.Scatter, seed.Size)
		}
	}
}

func TestSplatNegativeValuesPassThrough(t *testing.T) {
	s := NewSplat(SplatParams{Size: -0.2, TotalAmount: -0.8, Duration: 4})
	seed := s.Emit()
	if seed.Size != -0.2 {
		t.Errorf("size = %v, want -0.2", seed.Size)
	}
	if !approx(seed.Amount, -0.2) {
		t.Errorf("amount = %v, want -0.2", seed.Amount)
	}
}

func TestSplatZeroDurationRaised(t *testing.T) {
	s := NewSplat(SplatParams{TotalAmount: 1, Duration: 0})
	if s.Duration() != 1 {
		t.Fatalf("duration = %d, want 1", s.Duration())
	}
	seed := s.Emit()
	if seed.Amount != 1 {
		t.Errorf("amount = %v, want 1", seed.Amount)
	}
	if !s.Finished() {
		t.Error("expected finished after one emit")
	}
}

func newEnv(seeds int, policy OverflowPolicy) *Environment {
	return NewEnvironment(EnvironmentConfig{
		Seeds:         seeds,
		Overflow:      policy,
		DecayInterval: 20,
		DecayAmount:   1.0 / 255,
	})
}

func TestEmitAlwaysReturnsCapacity(t *testing.T) {
	for _, seeds := range []int{0, 1, 2, 5} {
		for _, live := range []int{0, 1, 2, 7} {
			for _, policy := range []OverflowPolicy{EvictOldest, Backlog} {
				env := newEnv(seeds, policy)
				for i := 0; i < live; i++ {
					env.AddSplat(NewSplat(SplatParams{Size: 1, TotalAmount: 1, Duration: 8}))
				}
				out := env.Emit()
				if len(out) != seeds {
					t.Errorf("seeds=%d live=%d %v: got %d seeds", seeds, live, policy, len(out))
				}
				active := min(live, seeds)
				for i, s := range out {
					if i < active && s.Size != 1 {
						t.Errorf("seeds=%d live=%d %v: slot %d not filled", seeds, live, policy, i)
					}
					if i >= active && s != (Seed{}) {
						t.Errorf("seeds=%d live=%d %v: slot %d not zeroed: %+v", seeds, live, policy, i, s)
					}
				}
			}
		}
	}
}

func TestEmitPrunesFinishedInOrder(t *testing.T) {
	env := newEnv(3, Backlog)
	short := NewSplat(SplatParams{Size: 1, Duration: 1})
	long := NewSplat(SplatParams{Size: 2, Duration: 3})
	third := NewSplat(SplatParams{Size: 3, Duration: 3})
	env.AddSplat(short)
	env.AddSplat(long)
	env.AddSplat(third)

	out := env.Emit()
	if out[0].Size != 1 || out[1].Size != 2 || out[2].Size != 3 {
		t.Fatalf("first emit order = %v", out)
	}

	out = env.Emit()
	if out[0].Size != 2 || out[1].Size != 3 || out[2] != (Seed{}) {
		t.Errorf("second emit after prune = %v", out)
	}
	if env.Live() != 2 {
		t.Errorf("live = %d, want 2", env.Live())
	}
}

func TestBacklogDoesNotAgeWaitingSplats(t *testing.T) {
	env := newEnv(1, Backlog)
	first := NewSplat(SplatParams{Size: 1, Duration: 2})
	waiting := NewSplat(SplatParams{Size: 2, Duration: 2})
	env.AddSplat(first)
	env.AddSplat(waiting)

	env.Emit()
	env.Emit()
	if waiting.FramesLeft() != 2 {
		t.Errorf("waiting splat aged to %d frames left", waiting.FramesLeft())
	}
	out := env.Emit()
	if out[0].Size != 2 {
		t.Errorf("expected waiting splat to be emitted once the first finished, got %v", out)
	}
}

func TestEvictOldestKeepsNewest(t *testing.T) {
	env := newEnv(2, EvictOldest)
	for size := 1; size <= 4; size++ {
		env.AddSplat(NewSplat(SplatParams{Size: float64(size), Duration: 8}))
	}
	if env.Live() != 2 {
		t.Fatalf("live = %d, want 2", env.Live())
	}
	if env.Evicted() != 2 {
		t.Errorf("evicted = %d, want 2", env.Evicted())
	}
	out := env.Emit()
	if out[0].Size != 3 || out[1].Size != 4 {
		t.Errorf("expected newest splats in insertion order, got %v", out)
	}
}

func TestEvictOldestZeroSeeds(t *testing.T) {
	env := newEnv(0, EvictOldest)
	env.AddSplat(NewSplat(SplatParams{Size: 1, Duration: 8}))
	if env.Live() != 0 {
		t.Errorf("live = %d, want 0", env.Live())
	}
	if out := env.Emit(); len(out) != 0 {
		t.Errorf("expected empty seed array, got %v", out)
	}
}

func TestDecaySchedule(t *testing.T) {
	env := newEnv(2, EvictOldest)
	want := float32(1.0 / 255)
	for i := 0; i <= 10000; i++ {
		d := env.Decay()
		if env.Frame()%20 == 0 {
			if d != want {
				t.Fatalf("frame %d: decay = %v, want %v", env.Frame(), d, want)
			}
		} else if d != 0 {
			t.Fatalf("frame %d: decay = %v, want 0", env.Frame(), d)
		}
		env.Emit()
	}
}

func TestEnvironmentAccessors(t *testing.T) {
	env := newEnv(2, EvictOldest)
	env.SetTextureURL("https://example.com/640/abc")
	env.SetBackgroundA(Color{R: 0.1, G: 0.2, B: 0.3})
	env.SetBackgroundB(Color{R: 1, G: 1, B: 1})

	if env.TextureURL() != "https://example.com/640/abc" {
		t.Errorf("texture = %q", env.TextureURL())
	}
	if env.BackgroundA() != (Color{R: 0.1, G: 0.2, B: 0.3}) {
		t.Errorf("background A = %+v", env.BackgroundA())
	}
	if env.BackgroundB() != (Color{R: 1, G: 1, B: 1}) {
		t.Errorf("background B = %+v", env.BackgroundB())
	}
}

func TestParseOverflowPolicy(t *testing.T) {
	tests := []struct {
		in      string
		want    OverflowPolicy
		name    string
		wantErr bool
	}{
		{"", EvictOldest, "evict_oldest", false},
		{"evict_oldest", EvictOldest, "evict_oldest", false},
		{"BACKLOG", Backlog, "backlog", false},
		{"drop", EvictOldest, "evict_oldest", true},
	}
	for _, tc := range tests {
		got, err := ParseOverflowPolicy(tc.in)
		if (err != nil) != tc.wantErr {
			t.Errorf("%q: err = %v", tc.in, err)
		}
		if got != tc.want {
			t.Errorf("%q: got %v, want %v", tc.in, got, tc.want)
		}
		if name := newEnv(2, got).Overflow().String(); name != tc.name {
			t.Errorf("%q: environment reports %q, want %q", tc.in, name, tc.name)
		}
	}
}

func TestSeedUniformsPack(t *testing.T) {
	u := NewSeedUniforms(3)
	u.Pack([]Seed{
		{Scatter: 2, Size: 0.5, Position: Vec2{X: 0.1, Y: 0.9}, Amount: 0.1},
		{Scatter: 4, Size: 0.25, Position: Vec2{X: -0.1, Y: 1.1}, Amount: 0.05},
	})

	if u.Scatter[0] != 2 || u.Scatter[1] != 4 || u.Scatter[2] != 0 {
		t.Errorf("scatter = %v", u.Scatter)
	}
	if u.Size[0] != 0.5 || u.Size[1] != 0.25 || u.Size[2] != 0 {
		t.Errorf("size = %v", u.Size)
	}
	wantPos := []float32{0.1, 0.9, -0.1, 1.1, 0, 0}
	for i, v := range wantPos {
		if u.Position[i] != v {
			t.Errorf("position[%d] = %v, want %v", i, u.Position[i], v)
		}
	}

	// Repacking with fewer seeds clears stale slots
	u.Pack(nil)
	for i := range u.Amount {
		if u.Amount[i] != 0 || u.Size[i] != 0 {
			t.Errorf("slot %d not cleared", i)
		}
	}
}
