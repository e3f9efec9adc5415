package reactive

import "gonum.org/v1/gonum/stat"

// FluxBuffer is a fixed-capacity ring of non-negative spectral flux values.
type FluxBuffer struct {
	values []float64
	cursor int
	filled int
}

// NewFluxBuffer creates a buffer holding the most recent capacity values.
func NewFluxBuffer(capacity int) *FluxBuffer {
	if capacity < 1 {
		capacity = 1
	}
	return &FluxBuffer{values: make([]float64, capacity)}
}

// Push records a flux value, clamping negatives to zero.
func (b *FluxBuffer) Push(flux float64) {
	b.values[b.cursor] = max(flux, 0)
	b.cursor = (b.cursor + 1) % len(b.values)
	if b.filled < len(b.values) {
		b.filled++
	}
}

// Average returns the mean of the populated slots, or 0 when empty.
func (b *FluxBuffer) Average() float64 {
	if b.filled == 0 {
		return 0
	}
	return stat.Mean(b.values[:b.filled], nil)
}

// Len returns the number of populated slots.
func (b *FluxBuffer) Len() int { return b.filled }

// Cap returns the buffer capacity.
func (b *FluxBuffer) Cap() int { return len(b.values) }

// Values returns the populated slots in storage order.
func (b *FluxBuffer) Values() []float64 {
	return b.values[:b.filled]
}
