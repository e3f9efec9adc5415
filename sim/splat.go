// Package sim models ink splats and the environment that feeds them to the
// simulation shader.
package sim

// Vec2 is a 2D vector in normalized simulation space.
type Vec2 struct {
	X, Y float64
}

// Add returns v + o.
func (v Vec2) Add(o Vec2) Vec2 {
	return Vec2{X: v.X + o.X, Y: v.Y + o.Y}
}

// Scale returns v * s.
func (v Vec2) Scale(s float64) Vec2 {
	return Vec2{X: v.X * s, Y: v.Y * s}
}

// Seed is one frame's ink injection for a single shader slot.
type Seed struct {
	Scatter  float64
	Size     float64
	Position Vec2
	Amount   float64
}

// SplatParams describes a splat at creation time.
type SplatParams struct {
	Start       Vec2
	Velocity    Vec2    // units per frame
	Scatter     float64 // >= 0
	Size        float64
	TotalAmount float64 // ink spread evenly over Duration frames
	Duration    int     // frames
}

// Splat is a short-lived ink event that moves linearly and emits one seed per frame.
// Size and amount are not clamped.
type Splat struct {
	start       Vec2
	velocity    Vec2
	scatter     float64
	size        float64
	totalAmount float64
	duration    int
	framesLeft  int
}

// NewSplat creates a splat. A duration below 1 is raised to 1.
func NewSplat(p SplatParams) *Splat {
	d := p.Duration
	if d < 1 {
		d = 1
	}
	return &Splat{
		start:       p.Start,
		velocity:    p.Velocity,
		scatter:     p.Scatter,
		size:        p.Size,
		totalAmount: p.TotalAmount,
		duration:    d,
		framesLeft:  d,
	}
}

// Emit returns the seed for the current frame and consumes one frame of lifetime.
func (s *Splat) Emit() Seed {
	elapsed := float64(s.duration - s.framesLeft)
	seed := Seed{
		Scatter:  s.scatter,
		Size:     s.size,
		Position: s.start.Add(s.velocity.Scale(elapsed)),
		Amount:   s.totalAmount / float64(s.duration),
	}
	s.framesLeft--
	return seed
}

// Finished reports whether every frame of the splat has been emitted.
func (s *Splat) Finished() bool {
	return s.framesLeft < 1
}

// FramesLeft returns the remaining lifetime in frames.
func (s *Splat) FramesLeft() int {
	return s.framesLeft
}

// Duration returns the total lifetime in frames.
func (s *Splat) Duration() int {
	return s.duration
}

// Size returns the seed radius emitted every frame.
func (s *Splat) Size() float64 {
	return s.size
}

// TotalAmount returns the ink spread across the splat's lifetime.
func (s *Splat) TotalAmount() float64 {
	return s.totalAmount
}
