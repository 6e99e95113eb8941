/*
scheduler.go - Background summary refresher

PURPOSE:
  Keeps the dashboard summary warm. Building a worklist touches every piece
  of active equipment, so the refresher rebuilds it on an interval and the
  summary endpoint serves the cached copy while it is fresh.

DESIGN:
  - Runs a background goroutine with a configurable interval
  - Builds for the configured upcoming window and the current date
  - Caches the Summary in go-cache keyed by date and window, so a cached
    value never outlives the day it was computed for
  - Mutating handlers call Invalidate; the next read recomputes
  - A build that overlaps an Invalidate is returned but not cached

CONFIGURATION:
  - Interval: How often to refresh (default: 5 minutes)
  - TTL: How long a cached summary is served (default: 10 minutes)
  - Enabled: Whether the goroutine runs; caching works either way

USAGE:
  refresher := NewSummaryRefresher(store, builder, 90, 10*time.Minute, logger)
  refresher.Start()
  // ... later
  refresher.Stop()

SEE ALSO:
  - handlers.go: GetSummary reads through the cache
  - compliance/summary.go: Summarize
*/
package api

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/warp/physics-compliance/compliance"
	"github.com/warp/physics-compliance/generic"
)

// SummaryRefresher periodically recomputes and caches the dashboard summary.
type SummaryRefresher struct {
	Source     compliance.SnapshotSource
	Builder    *compliance.WorklistBuilder
	WindowDays int
	Interval   time.Duration
	Enabled    bool
	Logger     *slog.Logger
	Clock      func() generic.Date

	cache   *cache.Cache
	gen     atomic.Uint64 // bumped by Invalidate
	ticker  *time.Ticker
	stop    chan struct{}
	wg      sync.WaitGroup
	mu      sync.Mutex
	running bool
}

// NewSummaryRefresher creates a refresher. ttl bounds how long a cached
// summary is served.
func NewSummaryRefresher(source compliance.SnapshotSource, builder *compliance.WorklistBuilder, windowDays int, ttl time.Duration, logger *slog.Logger) *SummaryRefresher {
	if logger == nil {
		logger = slog.Default()
	}
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &SummaryRefresher{
		Source:     source,
		Builder:    builder,
		WindowDays: compliance.NormalizeWindow(windowDays),
		Interval:   5 * time.Minute,
		Enabled:    true,
		Logger:     logger.With("component", "refresher"),
		Clock:      generic.Today,
		cache:      cache.New(ttl, 2*ttl),
	}
}

// Start begins the refresh loop. Calling Start on a running refresher is a
// no-op.
func (sr *SummaryRefresher) Start() {
	sr.mu.Lock()
	defer sr.mu.Unlock()

	if !sr.Enabled {
		sr.Logger.Info("disabled, not starting")
		return
	}
	if sr.running {
		return
	}

	sr.stop = make(chan struct{})
	sr.ticker = time.NewTicker(sr.Interval)
	sr.running = true
	sr.wg.Add(1)

	go sr.run(sr.ticker, sr.stop)

	sr.Logger.Info("started", "interval", sr.Interval, "window_days", sr.WindowDays)
}

// Stop halts the loop and waits for an in-flight refresh. Safe to call more
// than once.
func (sr *SummaryRefresher) Stop() {
	sr.mu.Lock()
	defer sr.mu.Unlock()

	if !sr.running {
		return
	}
	sr.ticker.Stop()
	close(sr.stop)
	sr.wg.Wait()
	sr.running = false
	sr.Logger.Info("stopped")
}

// Running reports whether the loop is active.
func (sr *SummaryRefresher) Running() bool {
	sr.mu.Lock()
	defer sr.mu.Unlock()
	return sr.running
}

func (sr *SummaryRefresher) run(ticker *time.Ticker, stop <-chan struct{}) {
	defer sr.wg.Done()

	// Run immediately on start
	sr.tick()

	for {
		select {
		case <-ticker.C:
			sr.tick()
		case <-stop:
			return
		}
	}
}

func (sr *SummaryRefresher) tick() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	start := time.Now()
	s, err := sr.Refresh(ctx)
	if err != nil {
		sr.Logger.Error("refresh failed", "error", err)
		return
	}
	sr.Logger.Debug("refreshed",
		"as_of", s.AsOf.String(),
		"overdue", s.Overdue,
		"upcoming", s.Upcoming,
		"compliant", s.Compliant,
		"no_frequency", s.NoFrequency,
		"took", time.Since(start))
}

// Refresh rebuilds the summary for today and the configured window and
// caches it.
func (sr *SummaryRefresher) Refresh(ctx context.Context) (compliance.Summary, error) {
	return sr.Compute(ctx, sr.Clock(), sr.WindowDays)
}

// Compute builds the summary for any date and window and caches it.
func (sr *SummaryRefresher) Compute(ctx context.Context, today generic.Date, windowDays int) (compliance.Summary, error) {
	windowDays = compliance.NormalizeWindow(windowDays)
	gen := sr.gen.Load()
	snap, err := compliance.LoadSnapshot(ctx, sr.Source, today, compliance.Filter{})
	if err != nil {
		return compliance.Summary{}, fmt.Errorf("load snapshot: %w", err)
	}
	s := compliance.Summarize(sr.Builder.Build(today, snap, windowDays))
	if sr.gen.Load() == gen {
		sr.cache.Set(summaryKey(today, windowDays), s, cache.DefaultExpiration)
	}
	return s, nil
}

// Get returns a cached summary.
func (sr *SummaryRefresher) Get(today generic.Date, windowDays int) (compliance.Summary, bool) {
	v, ok := sr.cache.Get(summaryKey(today, compliance.NormalizeWindow(windowDays)))
	if !ok {
		return compliance.Summary{}, false
	}
	return v.(compliance.Summary), true
}

// Invalidate drops every cached summary.
func (sr *SummaryRefresher) Invalidate() {
	sr.gen.Add(1)
	sr.cache.Flush()
}

func summaryKey(today generic.Date, windowDays int) string {
	return fmt.Sprintf("summary:%s:%d", today, windowDays)
}
