// Package host provides spectrum sources standing in for the music player:
// a procedural generator, a CSV replay, and a recorder that captures either.
package host

import (
	"context"
	"errors"
	"fmt"

	"github.com/pthm-cable/inkflux/config"
)

// Spectrum is one frame of per-bin magnitudes in dB, nominally in [-96, 0].
type Spectrum struct {
	Left  []float64
	Right []float64
}

// Track identifies the item currently playing.
type Track struct {
	URI   string
	Title string
}

// Host supplies spectrum frames and track-change notifications.
//
// Next is called once per frame from the frame goroutine. CurrentTrack may be
// called from any goroutine.
type Host interface {
	// Next returns the next spectrum frame. ok is false once the source is exhausted.
	Next() (s Spectrum, ok bool)
	// TrackChanges delivers a value whenever the playing track changes.
	TrackChanges() <-chan struct{}
	// CurrentTrack returns the track playing right now.
	CurrentTrack(ctx context.Context) (Track, error)
	Close() error
}

// notify performs a non-blocking send so a slow consumer sees at most one pending change.
func notify(ch chan struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}

// Open creates the host named by cfg.Kind.
func Open(cfg config.HostConfig, seed int64) (Host, error) {
	switch cfg.Kind {
	case "synthetic", "":
		return NewSynthetic(cfg, seed), nil
	case "replay":
		if cfg.Replay == "" {
			return nil, errors.New("replay host needs a recording path")
		}
		r, err := OpenReplay(cfg.Replay, cfg.Loop)
		if err != nil {
			return nil, err
		}
		return r, nil
	default:
		return nil, fmt.Errorf("unknown host kind %q", cfg.Kind)
	}
}
