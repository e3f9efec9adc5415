package host

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/gocarina/gocsv"
)

// Magnitudes is a spectrum channel stored in one CSV cell as space-separated values.
type Magnitudes []float64

// MarshalCSV implements gocsv.TypeMarshaller.
func (m Magnitudes) MarshalCSV() (string, error) {
	parts := make([]string, len(m))
	for i, v := range m {
		parts[i] = strconv.FormatFloat(v, 'f', 2, 64)
	}
	return strings.Join(parts, " "), nil
}

// UnmarshalCSV implements gocsv.TypeUnmarshaller.
func (m *Magnitudes) UnmarshalCSV(s string) error {
	fields := strings.Fields(s)
	out := make(Magnitudes, len(fields))
	for i, f := range fields {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return fmt.Errorf("magnitude %d: %w", i, err)
		}
		out[i] = v
	}
	*m = out
	return nil
}

// Frame is one recorded spectrum row.
type Frame struct {
	Index int        `csv:"frame"`
	Track string     `csv:"track"`
	Left  Magnitudes `csv:"left"`
	Right Magnitudes `csv:"right"`
}

// Replay plays back recorded frames.
type Replay struct {
	frames []Frame
	loop   bool
	pos    int

	mu    sync.Mutex
	track string

	changes chan struct{}
}

// OpenReplay reads a recording written by Record.
func OpenReplay(path string, loop bool) (*Replay, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening replay: %w", err)
	}
	defer f.Close()

	var frames []Frame
	if err := gocsv.UnmarshalFile(f, &frames); err != nil {
		return nil, fmt.Errorf("parsing replay %s: %w", path, err)
	}
	if len(frames) == 0 {
		return nil, fmt.Errorf("replay %s has no frames", path)
	}
	return NewReplay(frames, loop), nil
}

// NewReplay creates a replay over frames already in memory.
func NewReplay(frames []Frame, loop bool) *Replay {
	r := &Replay{
		frames:  frames,
		loop:    loop,
		changes: make(chan struct{}, 1),
	}
	if len(frames) > 0 {
		r.track = frames[0].Track
	}
	return r
}

// Next implements Host. A change in the track column emits a track change.
func (r *Replay) Next() (Spectrum, bool) {
	if r.pos >= len(r.frames) {
		if !r.loop || len(r.frames) == 0 {
			return Spectrum{}, false
		}
		r.pos = 0
	}
	f := r.frames[r.pos]
	r.pos++

	r.mu.Lock()
	changed := f.Track != r.track
	r.track = f.Track
	r.mu.Unlock()
	if changed {
		notify(r.changes)
	}

	return Spectrum{Left: f.Left, Right: f.Right}, true
}

// Len returns the number of recorded frames.
func (r *Replay) Len() int { return len(r.frames) }

// TrackChanges implements Host.
func (r *Replay) TrackChanges() <-chan struct{} {
	return r.changes
}

// CurrentTrack implements Host.
func (r *Replay) CurrentTrack(ctx context.Context) (Track, error) {
	if err := ctx.Err(); err != nil {
		return Track{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return Track{URI: r.track}, nil
}

// Close implements Host.
func (r *Replay) Close() error { return nil }
