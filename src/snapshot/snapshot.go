package snapshot

import (
	"context"
	"sync"
	"time"

	"market-sync/src/helpers"
	"market-sync/src/interfaces"
	"market-sync/src/logger"
	"market-sync/src/models"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

// -----------------------------------------------------------------------------
// SnapshotCache - single-flight TTL cache for the composite news/trending/
// events payload. The snapshot is replaced wholesale on every successful
// fetch; a failed fetch leaves the previous data untouched except for the
// isLoading reset, so stale data keeps rendering.
// -----------------------------------------------------------------------------

type SnapshotCache struct {
	Logger *logger.Logger

	mu   sync.RWMutex
	snap models.MSnapshot

	ttl   time.Duration
	clock interfaces.IClock

	// flight coalesces concurrent fetches: a forced call arriving while
	// another fetch is in flight joins it instead of starting a second one.
	flight singleflight.Group

	fetchNews     interfaces.NewsFetchFunc
	fetchTrending interfaces.TrendingFetchFunc
	fetchEvents   interfaces.EventsFetchFunc
}

// -----------------------------------------------------------------------------

func NewSnapshotCache(
	ttl time.Duration,
	clock interfaces.IClock,
	news interfaces.NewsFetchFunc,
	trending interfaces.TrendingFetchFunc,
	events interfaces.EventsFetchFunc,
	log *logger.Logger,
) *SnapshotCache {
	return &SnapshotCache{
		Logger:        log,
		ttl:           ttl,
		clock:         clock,
		fetchNews:     news,
		fetchTrending: trending,
		fetchEvents:   events,
	}
}

// -----------------------------------------------------------------------------

// GetSnapshot returns a valid cached snapshot synchronously, or runs (or
// joins) the single in-flight fetch.
func (c *SnapshotCache) GetSnapshot(ctx context.Context, params models.MSnapshotParams, forceRefresh bool) (models.MSnapshot, error) {
	if !forceRefresh && c.IsValid() {
		return c.Current(), nil
	}

	value, err, _ := c.flight.Do("snapshot", func() (any, error) {
		return c.fetch(ctx, params)
	})
	if err != nil {
		return c.Current(), err
	}
	return value.(models.MSnapshot), nil
}

// -----------------------------------------------------------------------------

// Refresh forces a fetch (still coalescing with any in-flight one).
func (c *SnapshotCache) Refresh(ctx context.Context, params models.MSnapshotParams) (models.MSnapshot, error) {
	return c.GetSnapshot(ctx, params, true)
}

// -----------------------------------------------------------------------------

// Current returns the snapshot as-is, without triggering any fetch.
func (c *SnapshotCache) Current() models.MSnapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.snap
}

// -----------------------------------------------------------------------------

// IsValid reports whether the snapshot can be served without refetching:
// now - fetchedAt < ttl && !isLoading.
func (c *SnapshotCache) IsValid() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.isValidLocked()
}

func (c *SnapshotCache) isValidLocked() bool {
	if c.snap.IsLoading || c.snap.FetchedAt.IsZero() {
		return false
	}
	return c.clock.Now().Sub(c.snap.FetchedAt) < c.ttl
}

// -----------------------------------------------------------------------------

// Fields exposes the read-only consumer view.
func (c *SnapshotCache) Fields() models.MSnapshotFields {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return models.MSnapshotFields{
		News:       c.snap.News,
		Trending:   c.snap.Trending,
		Events:     c.snap.Events,
		IsValid:    c.isValidLocked(),
		IsLoading:  c.snap.IsLoading,
		LastUpdate: c.snap.FetchedAt,
	}
}

// -----------------------------------------------------------------------------
// Internals
// -----------------------------------------------------------------------------

// fetch runs the three injected sources concurrently and replaces the
// snapshot wholesale. Never merges partially: any source failure aborts the
// replacement.
func (c *SnapshotCache) fetch(ctx context.Context, params models.MSnapshotParams) (models.MSnapshot, error) {
	c.mu.Lock()
	c.snap.IsLoading = true
	c.mu.Unlock()

	var (
		news     []models.MNewsItem
		trending []models.MTrendingTicker
		events   []models.MCalendarEvent
	)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		items, err := c.fetchNews(gctx, params.NewsCount)
		if err != nil {
			return helpers.NewFetchError("news fetch", err)
		}
		news = items
		return nil
	})

	if params.IncludeTrending {
		g.Go(func() error {
			items, err := c.fetchTrending(gctx)
			if err != nil {
				return helpers.NewFetchError("trending fetch", err)
			}
			trending = items
			return nil
		})
	}

	if params.IncludeEvents {
		g.Go(func() error {
			items, err := c.fetchEvents(gctx)
			if err != nil {
				return helpers.NewFetchError("events fetch", err)
			}
			events = items
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		c.mu.Lock()
		c.snap.IsLoading = false
		c.mu.Unlock()
		c.Logger.Error("Snapshot fetch failed, keeping previous data: %v", err)
		return models.MSnapshot{}, err
	}

	fresh := models.MSnapshot{
		News:      news,
		Trending:  trending,
		Events:    events,
		FetchedAt: c.clock.Now(),
		IsLoading: false,
	}

	c.mu.Lock()
	c.snap = fresh
	c.mu.Unlock()

	return fresh, nil
}
