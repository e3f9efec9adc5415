package host

import (
	"context"
	"fmt"
	"io"

	"github.com/gocarina/gocsv"
)

// Capture pulls up to n frames from h, tagging each with the track playing when it was read.
func Capture(ctx context.Context, h Host, n int) ([]Frame, error) {
	frames := make([]Frame, 0, n)
	for i := 0; i < n; i++ {
		s, ok := h.Next()
		if !ok {
			break
		}
		track, err := h.CurrentTrack(ctx)
		if err != nil {
			return frames, fmt.Errorf("frame %d: reading track: %w", i, err)
		}
		frames = append(frames, Frame{
			Index: i,
			Track: track.URI,
			Left:  Magnitudes(s.Left),
			Right: Magnitudes(s.Right),
		})
	}
	return frames, nil
}

// Record captures up to n frames from h and writes them to w as CSV.
// It returns the number of frames written.
func Record(ctx context.Context, h Host, n int, w io.Writer) (int, error) {
	frames, err := Capture(ctx, h, n)
	if err != nil {
		return 0, err
	}
	if err := gocsv.Marshal(frames, w); err != nil {
		return 0, fmt.Errorf("writing recording: %w", err)
	}
	return len(frames), nil
}
