package resource

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

// fakeLoader returns the source string as payload. Fetches for a source
// listed in gates block until the gate is closed.
type fakeLoader struct {
	mu       sync.Mutex
	gates    map[string]chan struct{}
	fetches  map[string]int
	fail     map[string]bool
	next     int
	uploads  []string
	released []int
}

type handle struct {
	id     int
	source string
}

func newFakeLoader() *fakeLoader {
	return &fakeLoader{
		gates:   make(map[string]chan struct{}),
		fetches: make(map[string]int),
		fail:    make(map[string]bool),
	}
}

func (l *fakeLoader) gate(source string) chan struct{} {
	l.mu.Lock()
	defer l.mu.Unlock()
	ch := make(chan struct{})
	l.gates[source] = ch
	return ch
}

func (l *fakeLoader) Fetch(ctx context.Context, source string) (string, error) {
	l.mu.Lock()
	l.fetches[source]++
	gate := l.gates[source]
	fail := l.fail[source]
	l.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if fail {
		return "", errors.New("fetch failed")
	}
	return source, nil
}

func (l *fakeLoader) Upload(p string) (handle, error) {
	l.next++
	l.uploads = append(l.uploads, p)
	return handle{id: l.next, source: p}, nil
}

func (l *fakeLoader) Release(h handle) {
	l.released = append(l.released, h.id)
}

func (l *fakeLoader) fetchCount(source string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.fetches[source]
}

// settle polls until no loads are pending.
func settle(t *testing.T, c *Cache[string, handle]) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for c.Pending() > 0 {
		if time.Now().After(deadline) {
			t.Fatalf("%d loads still pending", c.Pending())
		}
		c.Poll()
		time.Sleep(time.Millisecond)
	}
}

func TestFetchCachesSameSource(t *testing.T) {
	l := newFakeLoader()
	c := NewCache[string, handle](context.Background(), l)
	defer c.Close()

	if _, ok := c.Fetch("ref", "a.png"); ok {
		t.Fatal("first fetch reported cached")
	}
	settle(t, c)

	h1, ok := c.Fetch("ref", "a.png")
	if !ok {
		t.Fatal("second fetch not cached")
	}
	h2, ok := c.Fetch("ref", "a.png")
	if !ok || h1 != h2 {
		t.Errorf("handles differ: %v vs %v", h1, h2)
	}
	if n := l.fetchCount("a.png"); n != 1 {
		t.Errorf("fetched %d times, want 1", n)
	}
}

func TestFetchNewSourceReplacesAndReleases(t *testing.T) {
	l := newFakeLoader()
	c := NewCache[string, handle](context.Background(), l)
	defer c.Close()

	c.Fetch("ref", "a.png")
	settle(t, c)
	old, _ := c.Get("ref")

	stale, ok := c.Fetch("ref", "b.png")
	if ok || stale != old {
		t.Errorf("expected stale handle %v while loading, got %v (ok=%v)", old, stale, ok)
	}
	settle(t, c)

	cur, _ := c.Get("ref")
	if cur.source != "b.png" {
		t.Errorf("entry source = %q, want b.png", cur.source)
	}
	if len(l.released) != 1 || l.released[0] != old.id {
		t.Errorf("released = %v, want [%d]", l.released, old.id)
	}
}

func TestLateCompletionIsDiscarded(t *testing.T) {
	l := newFakeLoader()
	c := NewCache[string, handle](context.Background(), l)
	defer c.Close()

	slow := l.gate("old.png")
	c.Fetch("ref", "old.png")
	c.Fetch("ref", "new.png")

	// The newer load lands first
	deadline := time.Now().Add(2 * time.Second)
	for {
		c.Poll()
		if h, ok := c.Get("ref"); ok && h.source == "new.png" {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("newer load never landed")
		}
		time.Sleep(time.Millisecond)
	}

	close(slow)
	settle(t, c)

	h, _ := c.Get("ref")
	if h.source != "new.png" {
		t.Errorf("late completion rolled entry back to %q", h.source)
	}
	if len(l.uploads) != 1 {
		t.Errorf("uploads = %v, want only new.png", l.uploads)
	}
	if s := c.Stats(); s.Discarded != 1 || s.Applied != 1 {
		t.Errorf("stats = %+v", s)
	}
}

func TestDistinctKeysLoadIndependently(t *testing.T) {
	l := newFakeLoader()
	c := NewCache[string, handle](context.Background(), l)
	defer c.Close()

	blocked := l.gate("slow.png")
	c.Fetch("a", "slow.png")
	c.Fetch("b", "fast.png")

	deadline := time.Now().Add(2 * time.Second)
	for {
		c.Poll()
		if _, ok := c.Get("b"); ok {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("key b blocked behind key a")
		}
		time.Sleep(time.Millisecond)
	}
	if _, ok := c.Get("a"); ok {
		t.Error("key a loaded before its gate opened")
	}
	close(blocked)
	settle(t, c)
	if c.Len() != 2 {
		t.Errorf("len = %d, want 2", c.Len())
	}
}

func TestFailedLoadKeepsEntry(t *testing.T) {
	l := newFakeLoader()
	c := NewCache[string, handle](context.Background(), l)
	defer c.Close()

	c.Fetch("ref", "good.png")
	settle(t, c)

	l.mu.Lock()
	l.fail["bad.png"] = true
	l.mu.Unlock()
	c.Fetch("ref", "bad.png")
	settle(t, c)

	h, ok := c.Get("ref")
	if !ok || h.source != "good.png" {
		t.Errorf("entry = %v, %v; want good.png kept", h, ok)
	}
	if c.Stats().Failed != 1 {
		t.Errorf("failed = %d, want 1", c.Stats().Failed)
	}
	if _, ok := c.Fetch("ref", "good.png"); !ok {
		t.Error("surviving entry not served from cache after failed load")
	}
}

func TestLoadAll(t *testing.T) {
	l := newFakeLoader()
	c := NewCache[string, handle](context.Background(), l)
	defer c.Close()

	err := c.LoadAll(context.Background(), map[string]string{
		"reference": "ref.png",
		"overlay":   "overlay.png",
	})
	if err != nil {
		t.Fatalf("LoadAll: %v", err)
	}
	for key, src := range map[string]string{"reference": "ref.png", "overlay": "overlay.png"} {
		h, ok := c.Get(key)
		if !ok || h.source != src {
			t.Errorf("%s = %v, %v", key, h, ok)
		}
	}
}

func TestLoadAllError(t *testing.T) {
	l := newFakeLoader()
	l.fail["broken.png"] = true
	c := NewCache[string, handle](context.Background(), l)
	defer c.Close()

	err := c.LoadAll(context.Background(), map[string]string{"reference": "broken.png"})
	if err == nil {
		t.Fatal("expected error")
	}
	if c.Len() != 0 {
		t.Errorf("len = %d after failed LoadAll", c.Len())
	}
}

func TestCloseCancelsAndReleases(t *testing.T) {
	l := newFakeLoader()
	c := NewCache[string, handle](context.Background(), l)

	c.Fetch("a", "a.png")
	settle(t, c)
	l.gate("never.png")
	c.Fetch("b", "never.png")

	done := make(chan struct{})
	go func() {
		c.Close()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Close blocked on an in-flight load")
	}
	if len(l.released) != 1 {
		t.Errorf("released = %v, want one handle", l.released)
	}
	if c.Len() != 0 {
		t.Errorf("len = %d after Close", c.Len())
	}
}

func TestConcurrentFetchStress(t *testing.T) {
	l := newFakeLoader()
	c := NewCache[string, handle](context.Background(), l)
	defer c.Close()

	sources := []string{"a", "b", "c", "d"}
	for i := 0; i < 200; i++ {
		c.Fetch("ref", sources[i%len(sources)])
		c.Poll()
	}
	settle(t, c)

	// The entry reflects the last issued load, and every replaced handle was released once
	h, ok := c.Get("ref")
	if !ok || h.source != "d" {
		t.Errorf("entry = %v, %v; want d", h, ok)
	}
	seen := make(map[int]bool)
	for _, id := range l.released {
		if seen[id] {
			t.Fatalf("handle %d released twice", id)
		}
		seen[id] = true
	}
	if len(l.released) != len(l.uploads)-1 {
		t.Errorf("released %d of %d uploads", len(l.released), len(l.uploads))
	}
}

func writePNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			// Top rows red, bottom rows blue
			c := color.RGBA{R: 255, A: 255}
			if y >= h/2 {
				c = color.RGBA{B: 255, A: 255}
			}
			img.SetRGBA(x, y, c)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestToPixelsFlipsRows(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	img.SetRGBA(0, 0, color.RGBA{R: 1, A: 255})
	img.SetRGBA(0, 1, color.RGBA{R: 2, A: 255})

	p := ToPixels(img)
	if p.Width != 2 || p.Height != 2 {
		t.Fatalf("size = %dx%d", p.Width, p.Height)
	}
	if p.Data[0].R != 2 || p.Data[2].R != 1 {
		t.Errorf("rows not flipped: %v", p.Data)
	}
}

func TestImageFetcherFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "art.png")
	if err := os.WriteFile(path, writePNG(t, 40, 20), 0644); err != nil {
		t.Fatal(err)
	}

	f := NewImageFetcher(10, time.Second)
	p, err := f.Fetch(context.Background(), path)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if p.Width != 10 || p.Height != 5 {
		t.Errorf("scaled size = %dx%d, want 10x5", p.Width, p.Height)
	}
	// First stored row is the bottom of the image
	if p.Data[0].B < 200 || p.Data[len(p.Data)-1].R < 200 {
		t.Errorf("unexpected orientation: first=%v last=%v", p.Data[0], p.Data[len(p.Data)-1])
	}
}

func TestImageFetcherHTTP(t *testing.T) {
	body := writePNG(t, 8, 8)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "image/png")
		w.Write(body)
	}))
	defer srv.Close()

	f := NewImageFetcher(640, time.Second)
	p, err := f.Fetch(context.Background(), srv.URL+"/640/art")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if p.Width != 8 || p.Height != 8 {
		t.Errorf("size = %dx%d", p.Width, p.Height)
	}

	if _, err := f.Fetch(context.Background(), srv.URL+"/missing"); err == nil {
		t.Error("expected error for 404")
	}
}

func TestImageFetcherErrors(t *testing.T) {
	f := NewImageFetcher(64, time.Second)
	if _, err := f.Fetch(context.Background(), filepath.Join(t.TempDir(), "nope.png")); err == nil {
		t.Error("expected error for missing file")
	}

	path := filepath.Join(t.TempDir(), "garbage.png")
	os.WriteFile(path, []byte("not an image"), 0644)
	if _, err := f.Fetch(context.Background(), path); err == nil {
		t.Error("expected decode error")
	}
}

func TestImageFetcherGradient(t *testing.T) {
	f := NewImageFetcher(64, time.Second)
	p, err := f.Fetch(context.Background(), GradientSource)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if p.Width != 64 || p.Height != 64 || len(p.Data) != 64*64 {
		t.Errorf("gradient = %dx%d (%d px)", p.Width, p.Height, len(p.Data))
	}
}
