package sim

// SeedUniforms holds seed data flattened into the float32 arrays the
// simulation shader expects. Position is interleaved x, y.
type SeedUniforms struct {
	Scatter  []float32
	Size     []float32
	Amount   []float32
	Position []float32
}

// NewSeedUniforms allocates arrays for n seed slots.
func NewSeedUniforms(n int) SeedUniforms {
	return SeedUniforms{
		Scatter:  make([]float32, n),
		Size:     make([]float32, n),
		Amount:   make([]float32, n),
		Position: make([]float32, 2*n),
	}
}

// Len returns the number of slots.
func (u *SeedUniforms) Len() int { return len(u.Scatter) }

// Pack copies seeds into the arrays. Slots beyond len(seeds) are zeroed and
// extra seeds are ignored.
func (u *SeedUniforms) Pack(seeds []Seed) {
	clear(u.Scatter)
	clear(u.Size)
	clear(u.Amount)
	clear(u.Position)
	n := min(len(seeds), u.Len())
	for i := 0; i < n; i++ {
		s := seeds[i]
		u.Scatter[i] = float32(s.Scatter)
		u.Size[i] = float32(s.Size)
		u.Amount[i] = float32(s.Amount)
		u.Position[2*i] = float32(s.Position.X)
		u.Position[2*i+1] = float32(s.Position.Y)
	}
}
