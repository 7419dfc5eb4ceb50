package dataset

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/wisbric/catalogcore/internal/telemetry"
)

// DefaultMinVotes is the sub-threshold below which a title is dropped
// from the ratings side of the join.
const DefaultMinVotes = 10

// Options configures an Engine.
type Options struct {
	RatingsURL string
	BasicsURL  string
	MinVotes   int
	Interval   time.Duration // default 24h
}

// Engine is the bulk dataset engine (C5): it owns a periodic
// download → parse → join → index → query pipeline, independent of C1–C3.
type Engine struct {
	opts      Options
	http      *http.Client
	logger    *slog.Logger
	snapshots *snapshotHolder
}

// NewEngine creates an Engine. Call Refresh once before serving queries
// (or rely on RunLoop's initial run) so the first query doesn't see an
// empty snapshot.
func NewEngine(opts Options, logger *slog.Logger) *Engine {
	if opts.MinVotes <= 0 {
		opts.MinVotes = DefaultMinVotes
	}
	if opts.Interval <= 0 {
		opts.Interval = 24 * time.Hour
	}
	return &Engine{
		opts:      opts,
		http:      &http.Client{Timeout: 20 * time.Minute},
		logger:    logger,
		snapshots: newSnapshotHolder(),
	}
}

// RunLoop runs Refresh once immediately, then on every Interval, until ctx
// is cancelled. A failed refresh is logged and leaves the previous
// snapshot active; the loop simply tries again next tick.
func (e *Engine) RunLoop(ctx context.Context) {
	e.logger.Info("dataset: refresh loop started", "interval", e.opts.Interval)

	if err := e.Refresh(ctx); err != nil {
		e.logger.Error("dataset: initial refresh failed", "error", err)
	}

	ticker := time.NewTicker(e.opts.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			e.logger.Info("dataset: refresh loop stopped")
			return
		case <-ticker.C:
			if err := e.Refresh(ctx); err != nil {
				e.logger.Error("dataset: refresh failed, previous dataset remains active", "error", err)
			}
		}
	}
}

// RefreshFrom overrides the configured dataset URLs and runs Refresh
// immediately. Exposed for tests and manual operator-triggered refreshes
// against an alternate source.
func (e *Engine) RefreshFrom(ctx context.Context, ratingsURL, basicsURL string) error {
	e.opts.RatingsURL = ratingsURL
	e.opts.BasicsURL = basicsURL
	return e.Refresh(ctx)
}

// Refresh downloads, parses, joins, indexes, and atomically publishes a
// fresh snapshot. On any failure it returns an error and leaves the
// currently-active snapshot untouched — no partial dataset is ever
// published.
func (e *Engine) Refresh(ctx context.Context) error {
	start := time.Now()

	ratings, err := e.loadRatings(ctx)
	if err != nil {
		telemetry.DatasetRefreshFailuresTotal.Inc()
		return fmt.Errorf("dataset: loading ratings: %w", err)
	}

	titles, stats, err := e.loadAndJoinBasics(ctx, ratings)
	if err != nil {
		telemetry.DatasetRefreshFailuresTotal.Inc()
		return fmt.Errorf("dataset: loading basics: %w", err)
	}

	snap := buildSnapshot(titles)
	snap.builtAt = time.Now().Unix()
	e.snapshots.publish(snap)

	telemetry.DatasetRefreshDuration.Observe(time.Since(start).Seconds())
	telemetry.DatasetTitlesIndexed.Set(float64(snap.titleCount))
	telemetry.DatasetLastRefreshUnix.Set(float64(snap.builtAt))

	e.logger.Info("dataset: refresh complete",
		"titles", snap.titleCount,
		"joined", stats.Joined,
		"below_votes", stats.BelowVotes,
		"unknown_type", stats.UnknownType,
		"adult_excluded", stats.AdultExcluded,
		"duration", time.Since(start))
	return nil
}

func (e *Engine) loadRatings(ctx context.Context) (map[string]ratingRow, error) {
	stream, err := openGzipTSV(ctx, e.http, e.opts.RatingsURL)
	if err != nil {
		return nil, err
	}
	defer stream.Close()

	return parseRatings(bufio.NewScanner(stream.gz), e.opts.MinVotes)
}

func (e *Engine) loadAndJoinBasics(ctx context.Context, ratings map[string]ratingRow) ([]*Title, parseStats, error) {
	stream, err := openGzipTSV(ctx, e.http, e.opts.BasicsURL)
	if err != nil {
		return nil, parseStats{}, err
	}
	defer stream.Close()

	return parseAndJoinBasics(bufio.NewScanner(stream.gz), ratings)
}
