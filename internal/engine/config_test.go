package engine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() Config {
	return Config{
		ChannelID:      DefaultChannelID,
		RefreshSeconds: DefaultRefreshSeconds,
		MaxResults:     DefaultMaxResults,
		YouTubeAPIKey:  "test-key",
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{"valid", func(*Config) {}, false},
		{"missing api key", func(c *Config) { c.YouTubeAPIKey = "" }, true},
		{"bad channel", func(c *Config) { c.ChannelID = "technicalguruji" }, true},
		{"interval too short", func(c *Config) { c.RefreshSeconds = 29 }, true},
		{"interval too long", func(c *Config) { c.RefreshSeconds = 301 }, true},
		{"zero max results", func(c *Config) { c.MaxResults = 0 }, true},
		{"max results over page size", func(c *Config) { c.MaxResults = 51 }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrConfig)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateChannelID(t *testing.T) {
	assert.NoError(t, ValidateChannelID("UCOhHO2ICt0ti9KAh-QHvttQ"))
	assert.NoError(t, ValidateChannelID("UC_x5XG1OV2P6uZZ5FSM9Ttw"))
	assert.ErrorIs(t, ValidateChannelID(""), ErrConfig)
	assert.ErrorIs(t, ValidateChannelID("UCshort"), ErrConfig)
	assert.ErrorIs(t, ValidateChannelID("XXOhHO2ICt0ti9KAh-QHvttQ"), ErrConfig)
	assert.ErrorIs(t, ValidateChannelID("UCOhHO2ICt0ti9KAh-QHvttQ "), ErrConfig)
}

func TestNewRefreshPolicy(t *testing.T) {
	for _, s := range []int{MinRefreshSeconds, 60, MaxRefreshSeconds} {
		p, err := NewRefreshPolicy(s)
		require.NoError(t, err)
		assert.Equal(t, time.Duration(s)*time.Second, p.Interval)
	}
	for _, s := range []int{0, -5, MinRefreshSeconds - 1, MaxRefreshSeconds + 1} {
		_, err := NewRefreshPolicy(s)
		assert.ErrorIs(t, err, ErrConfig, "seconds=%d", s)
	}
}

func TestNewMonitor_RejectsInvalidSettings(t *testing.T) {
	c := NewRefreshCache((&countingCycle{}).run, nil)

	_, err := NewMonitor(c, "bogus", 60)
	require.ErrorIs(t, err, ErrConfig)
	_, err = NewMonitor(c, testChannel, 10)
	require.ErrorIs(t, err, ErrConfig)
}

func TestMonitorConfigure(t *testing.T) {
	m, err := NewMonitor(NewRefreshCache((&countingCycle{}).run, nil), testChannel, 60)
	require.NoError(t, err)

	require.NoError(t, m.Configure("UC_x5XG1OV2P6uZZ5FSM9Ttw", 120))
	ch, p := m.Settings()
	assert.Equal(t, "UC_x5XG1OV2P6uZZ5FSM9Ttw", ch)
	assert.Equal(t, 120*time.Second, p.Interval)

	// Invalid input leaves the current settings in place.
	require.ErrorIs(t, m.Configure("bad", 90), ErrConfig)
	require.ErrorIs(t, m.Configure(testChannel, 1000), ErrConfig)
	ch, p = m.Settings()
	assert.Equal(t, "UC_x5XG1OV2P6uZZ5FSM9Ttw", ch)
	assert.Equal(t, 120*time.Second, p.Interval)
}

func TestMonitorSnapshot_UsesClock(t *testing.T) {
	cycle := &countingCycle{}
	now := t0
	m, err := NewMonitor(NewRefreshCache(cycle.run, nil), testChannel, 60,
		WithClock(func() time.Time { return now }))
	require.NoError(t, err)
	ctx := context.Background()

	s1, err := m.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, t0, s1.FetchedAt)

	now = t0.Add(30 * time.Second)
	s2, err := m.Snapshot(ctx)
	require.NoError(t, err)
	assert.Same(t, s1, s2)

	now = t0.Add(60 * time.Second)
	_, err = m.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, cycle.count())

	st, ok := m.Peek()
	require.True(t, ok)
	assert.Equal(t, t0.Add(120*time.Second), st.ExpiresAt)
}

func TestMonitorPeek_FollowsActiveSettings(t *testing.T) {
	cycle := &countingCycle{}
	now := t0
	m, err := NewMonitor(NewRefreshCache(cycle.run, nil), testChannel, 60,
		WithClock(func() time.Time { return now }))
	require.NoError(t, err)

	_, err = m.Snapshot(context.Background())
	require.NoError(t, err)

	// Interval change is reflected before any lookup re-bases the entry.
	require.NoError(t, m.Configure(testChannel, 300))
	st, ok := m.Peek()
	require.True(t, ok)
	assert.Equal(t, t0, st.FetchedAt)
	assert.Equal(t, t0.Add(300*time.Second), st.ExpiresAt)

	// A failed switch leaves the old channel's entry, which is not reported.
	require.NoError(t, m.Configure("UC_x5XG1OV2P6uZZ5FSM9Ttw", 300))
	cycle.setErr(ErrFetch)
	now = t0.Add(time.Second)
	_, err = m.Snapshot(context.Background())
	require.ErrorIs(t, err, ErrFetch)
	_, ok = m.Peek()
	assert.False(t, ok)
}
