package telemetry

import (
	"fmt"
	"log/slog"
)

// BookmarkType identifies the type of bookmark.
type BookmarkType string

const (
	BookmarkFluxSurge    BookmarkType = "flux_surge"    // flux p90 well above recent windows
	BookmarkDrop         BookmarkType = "drop"          // loud window straight after a quiet one
	BookmarkSilence      BookmarkType = "silence"       // loudness collapsed after music
	BookmarkPaletteStorm BookmarkType = "palette_storm" // several palette changes in one window
	BookmarkSaturation   BookmarkType = "saturation"    // overflow policy dropped splats
)

// Bookmark marks a window worth revisiting in a recording.
type Bookmark struct {
	Type        BookmarkType `csv:"type"`
	Frame       int          `csv:"frame"`
	Track       string       `csv:"track"`
	Description string       `csv:"description"`
}

// LogBookmark logs the bookmark at info level.
func (b Bookmark) LogBookmark() {
	slog.Info("bookmark",
		"type", string(b.Type),
		"frame", b.Frame,
		"track", b.Track,
		"description", b.Description,
	)
}

// Thresholds used by the detector.
const (
	surgeFactor      = 2.0
	surgeMinTriggers = 3
	quietLoudness    = 0.25
	dropLoudness     = 0.5
	silenceLoudness  = 0.05
	stormChanges     = 3
)

// BookmarkDetector compares each window against a rolling history.
type BookmarkDetector struct {
	history     []WindowStats
	historySize int
	historyIdx  int
	historyFull bool

	prev    WindowStats
	hasPrev bool
	silent  bool // inside a silent stretch; suppresses repeats
}

// NewBookmarkDetector creates a detector with the given history size.
func NewBookmarkDetector(historySize int) *BookmarkDetector {
	historySize = max(historySize, 3)
	return &BookmarkDetector{
		history:     make([]WindowStats, historySize),
		historySize: historySize,
	}
}

// Check analyzes the latest window and returns any triggered bookmarks.
func (bd *BookmarkDetector) Check(stats WindowStats) []Bookmark {
	var out []Bookmark
	add := func(t BookmarkType, format string, args ...any) {
		out = append(out, Bookmark{
			Type:        t,
			Frame:       stats.WindowEndFrame,
			Track:       stats.Track,
			Description: fmt.Sprintf(format, args...),
		})
	}

	if avg, ok := bd.averageFluxP90(); ok && avg > 0 &&
		stats.FluxP90 > avg*surgeFactor && stats.Triggers >= surgeMinTriggers {
		add(BookmarkFluxSurge, "flux p90 %.4f is %.1fx recent average %.4f", stats.FluxP90, stats.FluxP90/avg, avg)
	}

	if bd.hasPrev && bd.prev.LoudnessMean < quietLoudness && stats.LoudnessMean >= dropLoudness {
		add(BookmarkDrop, "loudness rose from %.2f to %.2f", bd.prev.LoudnessMean, stats.LoudnessMean)
	}

	if stats.LoudnessMean < silenceLoudness {
		if !bd.silent && bd.hasPrev && bd.prev.LoudnessMean >= silenceLoudness {
			add(BookmarkSilence, "loudness fell to %.3f", stats.LoudnessMean)
		}
		bd.silent = true
	} else {
		bd.silent = false
	}

	if stats.PaletteChanges >= stormChanges {
		add(BookmarkPaletteStorm, "%d palette changes in one window", stats.PaletteChanges)
	}

	if stats.Evicted > 0 {
		add(BookmarkSaturation, "%d splats evicted, %d live at peak", stats.Evicted, stats.LiveMax)
	}

	bd.addToHistory(stats)
	bd.prev = stats
	bd.hasPrev = true
	return out
}

func (bd *BookmarkDetector) addToHistory(stats WindowStats) {
	bd.history[bd.historyIdx] = stats
	bd.historyIdx = (bd.historyIdx + 1) % bd.historySize
	if bd.historyIdx == 0 {
		bd.historyFull = true
	}
}

func (bd *BookmarkDetector) recent() []WindowStats {
	if bd.historyFull {
		return bd.history
	}
	return bd.history[:bd.historyIdx]
}

// averageFluxP90 needs at least three windows of history.
func (bd *BookmarkDetector) averageFluxP90() (float64, bool) {
	h := bd.recent()
	if len(h) < 3 {
		return 0, false
	}
	var sum float64
	for _, w := range h {
		sum += w.FluxP90
	}
	return sum / float64(len(h)), true
}
