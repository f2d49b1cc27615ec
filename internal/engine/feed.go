package engine

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// feedKeyPrefix namespaces snapshot keys in Redis.
const feedKeyPrefix = "ytpulse:snapshot:"

// SnapshotFeed writes each new snapshot to Redis for out-of-process dashboards.
// It is write-only: the cache never reads it back, state is rebuilt on start.
// A nil *SnapshotFeed or one without a client is a no-op.
type SnapshotFeed struct {
	rdb *redis.Client
}

// NewSnapshotFeed connects to redisURL. Empty or unreachable URLs disable the feed.
func NewSnapshotFeed(redisURL string) *SnapshotFeed {
	if redisURL == "" {
		slog.Info("feed: no redis URL configured, snapshot feed disabled")
		return &SnapshotFeed{}
	}
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		slog.Warn("feed: invalid redis URL, snapshot feed disabled", slog.Any("error", err))
		return &SnapshotFeed{}
	}
	rdb := redis.NewClient(opts)
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		slog.Warn("feed: redis unreachable, snapshot feed disabled", slog.Any("error", err))
		_ = rdb.Close()
		return &SnapshotFeed{}
	}
	slog.Info("feed: redis connected", slog.String("addr", opts.Addr))
	return &SnapshotFeed{rdb: rdb}
}

// Enabled reports whether snapshots are actually written.
func (f *SnapshotFeed) Enabled() bool {
	return f != nil && f.rdb != nil
}

// FeedKey returns the Redis key holding the latest snapshot of a channel.
func FeedKey(channelID string) string {
	return feedKeyPrefix + channelID
}

// Publish stores snap under FeedKey with the refresh interval as TTL.
// Failures are logged and counted; they never fail the cycle.
func (f *SnapshotFeed) Publish(ctx context.Context, snap *AnalyticsSnapshot, ttl time.Duration) {
	if !f.Enabled() || snap == nil {
		return
	}
	data, err := json.Marshal(snap)
	if err != nil {
		metrics.PublishErrors.Add(1)
		slog.Warn("feed: marshal snapshot failed", slog.Any("error", err))
		return
	}
	if err := f.rdb.Set(ctx, FeedKey(snap.ChannelID), data, ttl).Err(); err != nil {
		metrics.PublishErrors.Add(1)
		slog.Warn("feed: publish failed", slog.String("channel", snap.ChannelID), slog.Any("error", err))
		return
	}
	metrics.SnapshotPublish.Add(1)
}

// Close shuts down the Redis connection.
func (f *SnapshotFeed) Close() error {
	if !f.Enabled() {
		return nil
	}
	return f.rdb.Close()
}
