package resource

import (
	"context"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"math"
	"net/http"
	"os"
	"strings"
	"time"

	xdraw "golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

// GradientSource names the built-in reference image used when no file or URL is configured.
const GradientSource = "gradient:"

// maxDownload caps remote image bodies.
const maxDownload = 16 << 20

// Pixels is a decoded RGBA image ready for upload, stored bottom row first so
// that texture coordinates derived from gl_FragCoord sample it upright.
type Pixels struct {
	Width, Height int
	Data          []color.RGBA
}

// ImageFetcher loads images from files, http(s) URLs or GradientSource and
// scales them so neither edge exceeds MaxSize.
type ImageFetcher struct {
	client  *http.Client
	maxSize int
}

// NewImageFetcher creates a fetcher. timeout bounds remote downloads.
func NewImageFetcher(maxSize int, timeout time.Duration) *ImageFetcher {
	return &ImageFetcher{
		client:  &http.Client{Timeout: timeout},
		maxSize: max(maxSize, 1),
	}
}

// Fetch loads and decodes source.
func (f *ImageFetcher) Fetch(ctx context.Context, source string) (*Pixels, error) {
	var img image.Image
	var err error
	switch {
	case source == GradientSource:
		img = Gradient(256, 256)
	case strings.HasPrefix(source, "http://"), strings.HasPrefix(source, "https://"):
		img, err = f.download(ctx, source)
	default:
		img, err = decodeFile(source)
	}
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return ToPixels(f.fit(img)), nil
}

func (f *ImageFetcher) download(ctx context.Context, url string) (image.Image, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("downloading image: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("downloading image: unexpected status %s", resp.Status)
	}
	return decode(io.LimitReader(resp.Body, maxDownload))
}

func decodeFile(path string) (image.Image, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening image: %w", err)
	}
	defer file.Close()
	return decode(file)
}

func decode(r io.Reader) (image.Image, error) {
	img, format, err := image.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("decoding image: %w", err)
	}
	if img.Bounds().Empty() {
		return nil, fmt.Errorf("decoding image: empty %s", format)
	}
	return img, nil
}

// fit downscales img so its longest edge is at most maxSize.
func (f *ImageFetcher) fit(img image.Image) image.Image {
	b := img.Bounds()
	longest := max(b.Dx(), b.Dy())
	if longest <= f.maxSize {
		return img
	}
	scale := float64(f.maxSize) / float64(longest)
	w := max(1, int(math.Round(float64(b.Dx())*scale)))
	h := max(1, int(math.Round(float64(b.Dy())*scale)))
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), img, b, xdraw.Src, nil)
	return dst
}

// ToPixels converts img to RGBA with rows flipped vertically.
func ToPixels(img image.Image) *Pixels {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	rgba, ok := img.(*image.RGBA)
	if !ok || rgba.Rect.Min != (image.Point{}) {
		rgba = image.NewRGBA(image.Rect(0, 0, w, h))
		xdraw.Draw(rgba, rgba.Bounds(), img, b.Min, xdraw.Src)
	}

	data := make([]color.RGBA, w*h)
	for y := 0; y < h; y++ {
		row := rgba.Pix[y*rgba.Stride : y*rgba.Stride+4*w]
		out := data[(h-1-y)*w : (h-y)*w]
		for x := range out {
			out[x] = color.RGBA{R: row[4*x], G: row[4*x+1], B: row[4*x+2], A: row[4*x+3]}
		}
	}
	return &Pixels{Width: w, Height: h, Data: data}
}

// Gradient renders the built-in reference image: a diagonal warm-to-cool ramp.
func Gradient(w, h int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			u := float64(x) / float64(max(w-1, 1))
			v := float64(y) / float64(max(h-1, 1))
			img.SetRGBA(x, y, color.RGBA{
				R: uint8(255 * (0.9 - 0.6*v)),
				G: uint8(255 * (0.3 + 0.4*u*v)),
				B: uint8(255 * (0.2 + 0.7*u)),
				A: 255,
			})
		}
	}
	return img
}
