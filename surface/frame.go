package surface

// Passes are the two GPU passes run once per frame for a mode.
type Passes interface {
	// Simulate reads the front target and writes the back target.
	Simulate(mode bool)
	// Render draws the back target written by Simulate to the screen.
	Render(mode bool)
}

// Sequencer toggles the frame mode and applies pending resizes before the
// simulate pass, so no pass ever reads a target sized for the old surface.
type Sequencer[T any] struct {
	pair    *Pair[T]
	scale   float64
	mode    bool
	pending Size
	resized bool
	frames  int
}

// NewSequencer creates a sequencer over pair. scale maps surface size to target size.
func NewSequencer[T any](pair *Pair[T], scale float64) *Sequencer[T] {
	return &Sequencer[T]{pair: pair, scale: scale}
}

// Resize records a new surface size; it takes effect on the next Advance or Settle.
func (s *Sequencer[T]) Resize(w, h int) {
	s.pending = Scaled(w, h, s.scale)
	s.resized = true
}

// Advance toggles the mode, applies any pending resize and returns the new mode.
func (s *Sequencer[T]) Advance() bool {
	s.mode = !s.mode
	s.Settle()
	s.frames++
	return s.mode
}

// Settle applies a pending resize without starting a frame. A render that
// follows reads a freshly cleared target rather than the pre-resize one.
// It reports whether a resize was applied.
func (s *Sequencer[T]) Settle() bool {
	if !s.resized {
		return false
	}
	s.pair.Resize(s.pending)
	s.resized = false
	return true
}

// Step runs one full frame: advance, simulate, render.
func (s *Sequencer[T]) Step(p Passes) {
	mode := s.Advance()
	p.Simulate(mode)
	p.Render(mode)
}

// Mode returns the mode of the most recent frame.
func (s *Sequencer[T]) Mode() bool { return s.mode }

// Frames returns the number of frames advanced.
func (s *Sequencer[T]) Frames() int { return s.frames }

// Pair returns the managed target pair.
func (s *Sequencer[T]) Pair() *Pair[T] { return s.pair }
