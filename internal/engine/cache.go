package engine

import (
	"context"
	"sync"
	"time"
)

// CycleFunc produces a fresh snapshot for a channel. Pipeline.Run satisfies it.
type CycleFunc func(ctx context.Context, channelID string, now time.Time) (*AnalyticsSnapshot, error)

// RefreshCache memoizes the latest snapshot. It keeps exactly one authoritative
// entry: a new channel replaces it, a new interval only moves its expiry.
type RefreshCache struct {
	run  CycleFunc
	feed *SnapshotFeed

	refresh sync.Mutex   // serializes cycles, one in flight
	mu      sync.RWMutex // guards entry
	entry   *cacheEntry
}

type cacheEntry struct {
	channelID string
	snapshot  *AnalyticsSnapshot
	interval  time.Duration
	expiresAt time.Time
}

// CacheState describes the live entry, for status reporting.
type CacheState struct {
	ChannelID string
	FetchedAt time.Time
	ExpiresAt time.Time
	Snapshot  *AnalyticsSnapshot
}

// NewRefreshCache creates a cache around run. feed may be nil.
func NewRefreshCache(run CycleFunc, feed *SnapshotFeed) *RefreshCache {
	return &RefreshCache{run: run, feed: feed}
}

// GetOrRefresh returns the cached snapshot while now is before its expiry,
// otherwise runs one cycle and replaces the entry wholesale. On error the
// previous entry is left untouched.
func (c *RefreshCache) GetOrRefresh(ctx context.Context, channelID string, policy RefreshPolicy, now time.Time) (*AnalyticsSnapshot, error) {
	c.refresh.Lock()
	defer c.refresh.Unlock()

	if snap, ok := c.lookup(channelID, policy, now); ok {
		metrics.CacheHits.Add(1)
		return snap, nil
	}
	metrics.CacheMisses.Add(1)

	snap, err := c.run(ctx, channelID, now)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.entry = &cacheEntry{
		channelID: channelID,
		snapshot:  snap,
		interval:  policy.Interval,
		expiresAt: now.Add(policy.Interval),
	}
	c.mu.Unlock()

	c.feed.Publish(ctx, snap, policy.Interval)
	return snap, nil
}

// lookup returns the live snapshot for channelID if still fresh under policy.
// An interval change re-bases the existing entry's expiry on its fetch time.
func (c *RefreshCache) lookup(channelID string, policy RefreshPolicy, now time.Time) (*AnalyticsSnapshot, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e := c.entry
	if e == nil || e.channelID != channelID {
		return nil, false
	}
	if e.interval != policy.Interval {
		e.interval = policy.Interval
		e.expiresAt = e.snapshot.FetchedAt.Add(policy.Interval)
	}
	if !now.Before(e.expiresAt) {
		return nil, false
	}
	return e.snapshot, true
}

// Peek returns the live entry without refreshing, expired or not.
func (c *RefreshCache) Peek() (CacheState, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.entry == nil {
		return CacheState{}, false
	}
	return CacheState{
		ChannelID: c.entry.channelID,
		FetchedAt: c.entry.snapshot.FetchedAt,
		ExpiresAt: c.entry.expiresAt,
		Snapshot:  c.entry.snapshot,
	}, true
}

// CacheStats returns current cache hit/miss counters.
func CacheStats() (hits, misses int64) {
	return metrics.CacheHits.Load(), metrics.CacheMisses.Load()
}
