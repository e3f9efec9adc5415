package host

import (
	"context"
	"math"
	"math/cmplx"
	"math/rand"
	"sync"

	"github.com/ojrac/opensimplex-go"
	"gonum.org/v1/gonum/dsp/fourier"

	"github.com/pthm-cable/inkflux/config"
)

// MinDB and MaxDB bound every magnitude a host produces.
const (
	MinDB = -96.0
	MaxDB = 0.0
)

// voice is one sustained partial whose level follows a noise envelope.
type voice struct {
	bin   float64 // frequency in FFT bins
	phase float64
}

// Synthetic generates a stereo spectrum procedurally: a few noise-modulated
// partials over a kick drum on a fixed tempo, transformed to dB magnitudes.
// It cycles through a list of album URIs as its "tracks".
type Synthetic struct {
	noise  opensimplex.Noise
	fft    *fourier.FFT
	rng    *rand.Rand
	block  []float64
	coeffs []complex128
	voices []voice
	bins   int
	fps    float64
	beat   float64 // frames per beat

	frame       int
	trackFrames int

	mu     sync.Mutex
	albums []string
	track  int

	changes chan struct{}
}

// NewSynthetic creates a synthetic host from the host config section.
func NewSynthetic(cfg config.HostConfig, seed int64) *Synthetic {
	bins := max(cfg.Bins, 1)
	n := 2 * bins
	fps := cfg.FPS
	if fps <= 0 {
		fps = 60
	}
	beat := fps * 60 / max(cfg.BPM, 1)
	trackFrames := int(cfg.TrackSeconds * fps)

	rng := rand.New(rand.NewSource(seed))
	voices := make([]voice, 6)
	for i := range voices {
		voices[i] = voice{
			bin:   float64(2+i*i*3) + rng.Float64(),
			phase: rng.Float64() * 2 * math.Pi,
		}
	}

	return &Synthetic{
		noise:       opensimplex.NewNormalized(seed),
		fft:         fourier.NewFFT(n),
		rng:         rng,
		block:       make([]float64, n),
		coeffs:      make([]complex128, n/2+1),
		voices:      voices,
		bins:        bins,
		fps:         fps,
		beat:        beat,
		trackFrames: trackFrames,
		albums:      append([]string(nil), cfg.Albums...),
		changes:     make(chan struct{}, 1),
	}
}

// Next synthesizes the next frame. It never runs out.
func (s *Synthetic) Next() (Spectrum, bool) {
	t := float64(s.frame) / s.fps
	s.advanceTrack()

	left := s.channel(t, 0)
	right := s.channel(t, 100)
	s.frame++
	return Spectrum{Left: left, Right: right}, true
}

// channel renders one block for a channel and returns its dB magnitudes.
// offset decorrelates the noise envelopes between channels.
func (s *Synthetic) channel(t, offset float64) []float64 {
	n := len(s.block)

	// Kick: exponential decay from the start of each beat
	sinceBeat := math.Mod(float64(s.frame), s.beat)
	kick := math.Exp(-sinceBeat / (s.beat * 0.12))
	// Sections: a slow envelope mutes the kick for stretches
	section := s.noise.Eval2(t*0.05, offset+7)
	if section < 0.35 {
		kick *= 0.1
	}

	clear(s.block)
	for i, v := range s.voices {
		level := s.noise.Eval2(t*0.4, offset+float64(i)*13.7) * 0.3
		w := 2 * math.Pi * v.bin / float64(n)
		for j := range s.block {
			s.block[j] += level * math.Sin(w*float64(j)+v.phase)
		}
	}
	kickBin := 1.5
	for j := range s.block {
		s.block[j] += kick * math.Sin(2*math.Pi*kickBin*float64(j)/float64(n))
		s.block[j] += kick * 0.3 * (s.rng.Float64()*2 - 1)
		s.block[j] += 0.002 * (s.rng.Float64()*2 - 1)
	}

	s.coeffs = s.fft.Coefficients(s.coeffs, s.block)
	out := make([]float64, s.bins)
	scale := 2 / float64(n)
	for k := range out {
		mag := cmplx.Abs(s.coeffs[k]) * scale
		out[k] = ToDB(mag)
	}
	return out
}

// ToDB converts a linear magnitude to dB clamped to [MinDB, MaxDB].
func ToDB(mag float64) float64 {
	if mag <= 0 {
		return MinDB
	}
	db := 20 * math.Log10(mag)
	return min(max(db, MinDB), MaxDB)
}

func (s *Synthetic) advanceTrack() {
	if s.trackFrames <= 0 || s.frame == 0 || s.frame%s.trackFrames != 0 {
		return
	}
	s.mu.Lock()
	if len(s.albums) > 0 {
		s.track = (s.track + 1) % len(s.albums)
	}
	s.mu.Unlock()
	notify(s.changes)
}

// TrackChanges implements Host.
func (s *Synthetic) TrackChanges() <-chan struct{} {
	return s.changes
}

// CurrentTrack implements Host.
func (s *Synthetic) CurrentTrack(ctx context.Context) (Track, error) {
	if err := ctx.Err(); err != nil {
		return Track{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.albums) == 0 {
		return Track{Title: "synthetic"}, nil
	}
	return Track{URI: s.albums[s.track], Title: "synthetic"}, nil
}

// Close implements Host.
func (s *Synthetic) Close() error { return nil }
