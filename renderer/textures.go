package renderer

import (
	"errors"
	"time"

	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/inkflux/config"
	"github.com/pthm-cable/inkflux/resource"
)

// TextureCache is the reference texture cache.
type TextureCache = resource.Cache[*resource.Pixels, rl.Texture2D]

// TextureLoader decodes images off-thread and uploads them as textures.
type TextureLoader struct {
	*resource.ImageFetcher
}

// NewTextureLoader creates a loader from the textures config.
func NewTextureLoader(cfg config.TexturesConfig) TextureLoader {
	timeout := time.Duration(cfg.TimeoutSeconds * float64(time.Second))
	return TextureLoader{ImageFetcher: resource.NewImageFetcher(cfg.MaxSize, timeout)}
}

// Upload creates a bilinear, clamped texture from p.
func (TextureLoader) Upload(p *resource.Pixels) (rl.Texture2D, error) {
	if p == nil || p.Width <= 0 || p.Height <= 0 {
		return rl.Texture2D{}, errors.New("empty image")
	}
	img := rl.GenImageColor(p.Width, p.Height, rl.Black)
	tex := rl.LoadTextureFromImage(img)
	rl.UnloadImage(img)
	if tex.ID == 0 {
		return rl.Texture2D{}, errors.New("texture upload failed")
	}
	rl.UpdateTexture(tex, p.Data)
	rl.SetTextureFilter(tex, rl.FilterBilinear)
	rl.SetTextureWrap(tex, rl.WrapClamp)
	return tex, nil
}

// Release unloads a texture.
func (TextureLoader) Release(tex rl.Texture2D) {
	if tex.ID != 0 {
		rl.UnloadTexture(tex)
	}
}
