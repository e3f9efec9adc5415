package reactive

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/pthm-cable/inkflux/host"
	"github.com/pthm-cable/inkflux/metadata"
	"github.com/pthm-cable/inkflux/sim"
)

// TrackSource reports the playing track.
type TrackSource interface {
	CurrentTrack(ctx context.Context) (host.Track, error)
}

// CoverResolver maps an album identifier to a cover image URL.
type CoverResolver interface {
	CoverURL(ctx context.Context, albumID string) (string, error)
}

// Artwork resolves cover art for track changes in the background and hands
// the resulting URLs back to the frame goroutine.
type Artwork struct {
	tracks TrackSource
	covers CoverResolver
	prefix string

	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	results chan lookup
	issued  int        // sequence of the last Refresh
	newest  int        // sequence of the newest lookup applied
	stale   int        // lookups dropped because a newer one finished first
	track   host.Track // last track a lookup reported, owned by the frame goroutine
}

type lookup struct {
	seq   int
	track host.Track
	url   string
	err   error
}

// NewArtwork creates a resolver. prefix is the URI prefix of album tracks.
func NewArtwork(parent context.Context, tracks TrackSource, covers CoverResolver, prefix string) *Artwork {
	ctx, cancel := context.WithCancel(parent)
	return &Artwork{
		tracks:  tracks,
		covers:  covers,
		prefix:  prefix,
		ctx:     ctx,
		cancel:  cancel,
		results: make(chan lookup, 4),
	}
}

// Refresh starts a lookup for the current track. It never blocks and never retries.
// Call from the frame goroutine.
func (a *Artwork) Refresh() {
	a.issued++
	seq := a.issued
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		track, url, err := a.resolve()
		if errors.Is(err, context.Canceled) {
			return
		}
		select {
		case a.results <- lookup{seq: seq, track: track, url: url, err: err}:
		case <-a.ctx.Done():
		}
	}()
}

func (a *Artwork) resolve() (host.Track, string, error) {
	track, err := a.tracks.CurrentTrack(a.ctx)
	if err != nil {
		return host.Track{}, "", err
	}
	id, err := metadata.AlbumID(track.URI, a.prefix)
	if err != nil {
		return track, "", err
	}
	url, err := a.covers.CoverURL(a.ctx, id)
	return track, url, err
}

// Apply drains finished lookups and sets the newest URL on env. It reports
// how many lookups succeeded and how many failed; failures are logged and
// leave the texture unchanged. A lookup that finishes after a newer Refresh
// has already been applied is dropped. Call from the frame goroutine.
func (a *Artwork) Apply(env *sim.Environment) (applied, failed int) {
	for {
		select {
		case r := <-a.results:
			if r.seq < a.newest {
				a.stale++
				slog.Debug("artwork lookup superseded", "track", r.track.URI, "seq", r.seq, "newest", a.newest)
				continue
			}
			a.newest = r.seq
			if r.track.URI != "" {
				a.track = r.track
			}
			if r.err != nil {
				slog.Warn("artwork lookup failed", "track", r.track.URI, "error", r.err)
				failed++
				continue
			}
			env.SetTextureURL(r.url)
			applied++
		default:
			return applied, failed
		}
	}
}

// Track returns the most recent track reported by a finished lookup.
func (a *Artwork) Track() host.Track { return a.track }

// Close cancels outstanding lookups and waits for them to exit.
func (a *Artwork) Close() {
	a.cancel()
	a.wg.Wait()
}
