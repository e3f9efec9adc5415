// Package resource loads GPU resources asynchronously. Fetching and decoding
// run on background goroutines; uploads and releases run on the goroutine
// that owns the cache, which for textures must be the raylib main thread.
package resource

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Loader fetches payloads of type P and turns them into handles of type H.
type Loader[P, H any] interface {
	// Fetch runs on a background goroutine.
	Fetch(ctx context.Context, source string) (P, error)
	// Upload and Release run on the owning goroutine.
	Upload(payload P) (H, error)
	Release(handle H)
}

type entry[H any] struct {
	handle H
	source string
	seq    uint64
}

type completion[P any] struct {
	key     string
	source  string
	seq     uint64
	payload P
	err     error
}

// CacheStats counts cache activity since creation.
type CacheStats struct {
	Loads     int // loads started
	Applied   int // completed loads that replaced an entry
	Discarded int // completed loads superseded by a newer one
	Failed    int // loads or uploads that returned an error
}

// Cache maps keys to handles. A key's entry is only ever replaced by a load
// issued later than the one that produced it, so out-of-order completions
// cannot roll an entry back. Every method except LoadAll's fetch phase runs
// on the owning goroutine.
type Cache[P, H any] struct {
	loader  Loader[P, H]
	entries map[string]entry[H]
	issued  map[string]uint64 // newest load sequence per key
	seq     uint64
	pending int
	stats   CacheStats

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	done   chan completion[P]
}

// NewCache creates a cache. Canceling parent cancels outstanding loads.
func NewCache[P, H any](parent context.Context, loader Loader[P, H]) *Cache[P, H] {
	ctx, cancel := context.WithCancel(parent)
	return &Cache[P, H]{
		loader:  loader,
		entries: make(map[string]entry[H]),
		issued:  make(map[string]uint64),
		ctx:     ctx,
		cancel:  cancel,
		done:    make(chan completion[P], 8),
	}
}

// Get returns the current handle for key.
func (c *Cache[P, H]) Get(key string) (H, bool) {
	e, ok := c.entries[key]
	return e.handle, ok
}

// Source returns the source the current handle for key was loaded from.
func (c *Cache[P, H]) Source(key string) (string, bool) {
	e, ok := c.entries[key]
	return e.source, ok
}

// Fetch returns the cached handle when key is already loaded from source and
// no newer load for key is in flight. Otherwise it starts a background load
// and returns whatever handle key currently holds, with ok false. Concurrent
// loads for one key are not merged; the latest issued load wins.
func (c *Cache[P, H]) Fetch(key, source string) (H, bool) {
	e, ok := c.entries[key]
	if ok && e.source == source && c.issued[key] == e.seq {
		return e.handle, true
	}
	c.start(key, source)
	return e.handle, false
}

func (c *Cache[P, H]) start(key, source string) {
	c.seq++
	seq := c.seq
	c.issued[key] = seq
	c.pending++
	c.stats.Loads++

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		payload, err := c.loader.Fetch(c.ctx, source)
		select {
		case c.done <- completion[P]{key: key, source: source, seq: seq, payload: payload, err: err}:
		case <-c.ctx.Done():
		}
	}()
}

// Poll applies every completed load without blocking and returns how many
// entries changed.
func (c *Cache[P, H]) Poll() int {
	applied := 0
	for {
		select {
		case comp := <-c.done:
			c.pending--
			if c.apply(comp) {
				applied++
			}
		default:
			return applied
		}
	}
}

func (c *Cache[P, H]) apply(comp completion[P]) bool {
	if comp.err != nil {
		c.stats.Failed++
		c.abandon(comp.key, comp.seq)
		slog.Warn("resource load failed", "key", comp.key, "source", comp.source, "error", comp.err)
		return false
	}
	if e, ok := c.entries[comp.key]; ok && e.seq > comp.seq {
		// A newer load already landed; drop this payload without uploading it.
		c.stats.Discarded++
		return false
	}
	handle, err := c.loader.Upload(comp.payload)
	if err != nil {
		c.stats.Failed++
		c.abandon(comp.key, comp.seq)
		slog.Warn("resource upload failed", "key", comp.key, "source", comp.source, "error", err)
		return false
	}
	c.install(comp.key, entry[H]{handle: handle, source: comp.source, seq: comp.seq})
	c.stats.Applied++
	return true
}

// abandon forgets a failed load so the current entry counts as fresh again.
func (c *Cache[P, H]) abandon(key string, seq uint64) {
	if c.issued[key] != seq {
		return
	}
	if e, ok := c.entries[key]; ok {
		c.issued[key] = e.seq
	} else {
		delete(c.issued, key)
	}
}

func (c *Cache[P, H]) install(key string, e entry[H]) {
	if old, ok := c.entries[key]; ok {
		c.loader.Release(old.handle)
	}
	c.entries[key] = e
}

// LoadAll fetches every key/source pair concurrently, then uploads them on
// the calling goroutine. It returns the first error; entries that loaded
// before the error stay installed.
func (c *Cache[P, H]) LoadAll(ctx context.Context, sources map[string]string) error {
	type result struct {
		key, source string
		seq         uint64
		payload     P
	}
	results := make([]result, 0, len(sources))
	for key, source := range sources {
		c.seq++
		c.issued[key] = c.seq
		c.stats.Loads++
		results = append(results, result{key: key, source: source, seq: c.seq})
	}

	g, gctx := errgroup.WithContext(ctx)
	for i := range results {
		r := &results[i]
		g.Go(func() error {
			p, err := c.loader.Fetch(gctx, r.source)
			if err != nil {
				return fmt.Errorf("loading %s from %s: %w", r.key, r.source, err)
			}
			r.payload = p
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		c.stats.Failed++
		for _, r := range results {
			c.abandon(r.key, r.seq)
		}
		return err
	}

	for _, r := range results {
		if e, ok := c.entries[r.key]; ok && e.seq > r.seq {
			c.stats.Discarded++
			continue
		}
		h, err := c.loader.Upload(r.payload)
		if err != nil {
			c.stats.Failed++
			c.abandon(r.key, r.seq)
			return fmt.Errorf("uploading %s: %w", r.key, err)
		}
		c.install(r.key, entry[H]{handle: h, source: r.source, seq: r.seq})
		c.stats.Applied++
	}
	return nil
}

// Pending returns the number of background loads not yet polled.
func (c *Cache[P, H]) Pending() int { return c.pending }

// Len returns the number of loaded entries.
func (c *Cache[P, H]) Len() int { return len(c.entries) }

// Stats returns activity counters.
func (c *Cache[P, H]) Stats() CacheStats { return c.stats }

// Close cancels outstanding loads, waits for them to exit and releases every handle.
func (c *Cache[P, H]) Close() {
	c.cancel()
	c.wg.Wait()
	for drained := false; !drained; {
		select {
		case <-c.done:
		default:
			drained = true
		}
	}
	c.pending = 0
	for key, e := range c.entries {
		c.loader.Release(e.handle)
		delete(c.entries, key)
	}
}
