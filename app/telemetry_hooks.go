package app

import "log/slog"

// flushTelemetry closes the stats window when it is due, then logs and
// writes the window, the perf stats and any bookmarks.
func (a *App) flushTelemetry() {
	if !a.collector.ShouldFlush(a.frame) {
		return
	}

	stats := a.collector.Flush(a.frame, a.artwork.Track().URI, a.env.Evicted())
	perfStats := a.perf.Stats()

	if a.logStats {
		stats.LogStats()
		perfStats.LogStats()
	}
	if err := a.output.WriteStats(stats); err != nil {
		slog.Error("failed to write stats", "error", err)
	}
	if err := a.output.WritePerf(perfStats, stats.WindowEndFrame); err != nil {
		slog.Error("failed to write perf", "error", err)
	}

	for _, bm := range a.bookmarks.Check(stats) {
		if a.logStats {
			bm.LogBookmark()
		}
		if err := a.output.WriteBookmark(bm); err != nil {
			slog.Error("failed to write bookmark", "error", err)
		}
	}
}
