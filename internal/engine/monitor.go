package engine

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Monitor is the inbound boundary: it holds the tracked channel and refresh
// policy and serves snapshots through the RefreshCache.
type Monitor struct {
	cache *RefreshCache
	now   func() time.Time

	mu        sync.RWMutex
	channelID string
	policy    RefreshPolicy
}

// MonitorOption configures a Monitor.
type MonitorOption func(*Monitor)

// WithClock overrides time.Now, for tests.
func WithClock(now func() time.Time) MonitorOption {
	return func(m *Monitor) { m.now = now }
}

// NewMonitor validates the initial settings and returns a ready Monitor.
func NewMonitor(cache *RefreshCache, channelID string, refreshSeconds int, opts ...MonitorOption) (*Monitor, error) {
	m := &Monitor{cache: cache, now: time.Now}
	for _, o := range opts {
		o(m)
	}
	if err := m.Configure(channelID, refreshSeconds); err != nil {
		return nil, err
	}
	return m, nil
}

// Configure switches the tracked channel and refresh interval.
// Invalid values return ErrConfig and leave the current settings in place.
func (m *Monitor) Configure(channelID string, refreshSeconds int) error {
	if err := ValidateChannelID(channelID); err != nil {
		return err
	}
	policy, err := NewRefreshPolicy(refreshSeconds)
	if err != nil {
		return err
	}
	m.mu.Lock()
	changed := m.channelID != channelID || m.policy != policy
	m.channelID = channelID
	m.policy = policy
	m.mu.Unlock()
	if changed {
		slog.Info("refresh: configured", slog.String("channel", channelID), slog.Duration("interval", policy.Interval))
	}
	return nil
}

// Settings returns the current channel and policy.
func (m *Monitor) Settings() (string, RefreshPolicy) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.channelID, m.policy
}

// Snapshot returns the current snapshot, refreshing it when stale.
func (m *Monitor) Snapshot(ctx context.Context) (*AnalyticsSnapshot, error) {
	channelID, policy := m.Settings()
	return m.cache.GetOrRefresh(ctx, channelID, policy, m.now())
}

// Peek returns the cached entry for the tracked channel without triggering a
// refresh. ExpiresAt follows the active policy, so an interval change shows up
// before the next lookup. An entry left over from a previous channel is not reported.
func (m *Monitor) Peek() (CacheState, bool) {
	channelID, policy := m.Settings()
	st, ok := m.cache.Peek()
	if !ok || st.ChannelID != channelID {
		return CacheState{}, false
	}
	st.ExpiresAt = st.FetchedAt.Add(policy.Interval)
	return st, true
}
