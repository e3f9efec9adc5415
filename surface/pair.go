// Package surface manages the ping-pong pair of simulation targets and the
// per-frame mode toggle that decides which one is read and which is written.
package surface

import "math"

// Size is a target resolution in pixels.
type Size struct {
	W, H int32
}

// Empty reports whether either dimension is zero or negative.
func (s Size) Empty() bool { return s.W <= 0 || s.H <= 0 }

// Scaled returns round(factor * w) x round(factor * h), at least 1x1.
func Scaled(w, h int, factor float64) Size {
	return Size{
		W: int32(max(1, math.Round(float64(w)*factor))),
		H: int32(max(1, math.Round(float64(h)*factor))),
	}
}

// Allocator creates and frees targets of type T. Alloc and Free are only
// called from the goroutine that drives the Pair.
type Allocator[T any] interface {
	Alloc(size Size) T
	Free(target T)
}

type slot[T any] struct {
	target T
	size   Size
	valid  bool
}

// Pair holds two targets indexed by the frame mode. Targets are created
// lazily and recreated whenever their size no longer matches the pair size.
type Pair[T any] struct {
	alloc Allocator[T]
	size  Size
	slots [2]slot[T]
}

// NewPair creates an empty pair. No target is allocated until first use.
func NewPair[T any](alloc Allocator[T], size Size) *Pair[T] {
	return &Pair[T]{alloc: alloc, size: size}
}

func index(mode bool) int {
	if mode {
		return 1
	}
	return 0
}

// Size returns the size new targets are created at.
func (p *Pair[T]) Size() Size { return p.size }

// Resize sets a new target size and invalidates both targets if it changed.
func (p *Pair[T]) Resize(size Size) {
	if size == p.size {
		return
	}
	p.size = size
	p.Invalidate(false)
	p.Invalidate(true)
}

// Invalidate frees the target for mode; it is recreated on next access.
func (p *Pair[T]) Invalidate(mode bool) {
	s := &p.slots[index(mode)]
	if !s.valid {
		return
	}
	p.alloc.Free(s.target)
	*s = slot[T]{}
}

// Valid reports whether the target for mode currently exists.
func (p *Pair[T]) Valid(mode bool) bool {
	return p.slots[index(mode)].valid
}

func (p *Pair[T]) ensure(i int) T {
	s := &p.slots[i]
	if s.valid && s.size == p.size {
		return s.target
	}
	if s.valid {
		p.alloc.Free(s.target)
	}
	*s = slot[T]{target: p.alloc.Alloc(p.size), size: p.size, valid: true}
	return s.target
}

// Front returns the target holding the previous frame's state for mode.
func (p *Pair[T]) Front(mode bool) T {
	return p.ensure(index(mode))
}

// Back returns the target written this frame for mode.
func (p *Pair[T]) Back(mode bool) T {
	return p.ensure(index(!mode))
}

// Release frees both targets.
func (p *Pair[T]) Release() {
	p.Invalidate(false)
	p.Invalidate(true)
}
