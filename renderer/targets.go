package renderer

import (
	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/inkflux/surface"
)

// Targets allocates simulation render textures. It must not be used while
// another texture mode is active.
type Targets struct {
	allocated int
}

// Alloc creates a cleared render texture with a depth attachment.
func (t *Targets) Alloc(size surface.Size) rl.RenderTexture2D {
	target := rl.LoadRenderTexture(size.W, size.H)
	rl.SetTextureFilter(target.Texture, rl.FilterBilinear)
	rl.SetTextureWrap(target.Texture, rl.WrapClamp)

	rl.BeginTextureMode(target)
	rl.ClearBackground(rl.Blank)
	rl.EndTextureMode()

	t.allocated++
	return target
}

// Free releases a render texture.
func (t *Targets) Free(target rl.RenderTexture2D) {
	rl.UnloadRenderTexture(target)
}

// Allocated returns how many targets have been created, resizes included.
func (t *Targets) Allocated() int { return t.allocated }
