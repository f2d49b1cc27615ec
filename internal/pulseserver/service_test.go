package pulseserver

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/anatolykoptev/go_ytpulse/internal/engine"
	"github.com/anatolykoptev/go_ytpulse/internal/engine/history"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testChannel = "UCOhHO2ICt0ti9KAh-QHvttQ"

// stubCycle builds a three-video snapshot, or fails with err when set.
type stubCycle struct {
	mu  sync.Mutex
	err error
}

func (s *stubCycle) run(_ context.Context, channelID string, now time.Time) (*engine.AnalyticsSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	day := func(d int) time.Time { return time.Date(2025, 5, d, 0, 0, 0, 0, time.UTC) }
	recs := []engine.EnrichedVideoRecord{
		{RawVideoRecord: engine.RawVideoRecord{ID: "mid", Title: "b", PublishedAt: day(10), Likes: 1}, EngagementTotal: 1, SentimentLabel: engine.SentimentNeutral},
		{RawVideoRecord: engine.RawVideoRecord{ID: "new", Title: "c", PublishedAt: day(20), Likes: 50}, EngagementTotal: 50, SentimentLabel: engine.SentimentPositive},
		{RawVideoRecord: engine.RawVideoRecord{ID: "old", Title: "a", PublishedAt: day(1), Likes: 9}, EngagementTotal: 9, SentimentLabel: engine.SentimentNegative},
	}
	tags, fallback := engine.ExtractHashtags(recs)
	return &engine.AnalyticsSnapshot{
		ChannelID:        channelID,
		Country:          "IN",
		Records:          recs,
		Scorecard:        engine.Aggregate(recs),
		Hashtags:         tags,
		HashtagsFallback: fallback,
		Sentiment:        engine.CountSentiment(recs),
		TopEngagement:    engine.TopByEngagement(recs, engine.TopEngagementSize),
		FetchedAt:        now,
	}, nil
}

func newTestService(t *testing.T, cycle *stubCycle, journal *history.Journal) *Service {
	t.Helper()
	m, err := engine.NewMonitor(engine.NewRefreshCache(cycle.run, nil), testChannel, 60)
	require.NoError(t, err)
	var opts []engine.LoopOption
	if journal != nil {
		opts = append(opts, engine.WithRecorder(journal))
	}
	return NewService(m, engine.NewRefreshLoop(m, opts...), journal)
}

func ids(items []VideoItem) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.ID
	}
	return out
}

func TestServiceSnapshot(t *testing.T) {
	s := newTestService(t, &stubCycle{}, nil)
	ctx := context.Background()

	out, err := s.Snapshot(ctx, SnapshotInput{})
	require.NoError(t, err)
	assert.Equal(t, testChannel, out.ChannelID)
	assert.Equal(t, "IN", out.Country)
	assert.Equal(t, 3, out.Scorecard.TotalVideos)
	assert.Equal(t, 20.0, out.Scorecard.AverageEngagement)
	assert.True(t, out.HashtagsFallback)
	assert.Len(t, out.Hashtags, engine.MaxTrendingTags)
	assert.Equal(t, engine.SentimentBreakdown{Positive: 1, Neutral: 1, Negative: 1}, out.Sentiment)
	assert.Equal(t, []string{"new", "old", "mid"}, ids(out.TopEngagement))
	assert.Equal(t, []string{"new", "mid", "old"}, ids(out.Videos))
	assert.Equal(t, "Positive", out.Videos[0].Sentiment)
	assert.Equal(t, "2025-05-20T00:00:00Z", out.Videos[0].PublishedAt)

	tests := []struct {
		in   SnapshotInput
		want []string
	}{
		{SnapshotInput{Order: "oldest"}, []string{"old", "mid", "new"}},
		{SnapshotInput{Order: " Engagement "}, []string{"new", "old", "mid"}},
		{SnapshotInput{Order: "newest", Limit: 2}, []string{"new", "mid"}},
		{SnapshotInput{Order: "bogus", Limit: 500}, []string{"new", "mid", "old"}},
	}
	for _, tt := range tests {
		out, err := s.Snapshot(ctx, tt.in)
		require.NoError(t, err)
		assert.Equal(t, tt.want, ids(out.Videos), "input %+v", tt.in)
	}
}

func TestServiceSnapshot_Error(t *testing.T) {
	s := newTestService(t, &stubCycle{err: engine.ErrEmptyResult}, nil)
	_, err := s.Snapshot(context.Background(), SnapshotInput{})
	require.ErrorIs(t, err, engine.ErrEmptyResult)
}

func TestServiceConfigure(t *testing.T) {
	s := newTestService(t, &stubCycle{}, nil)
	ctx := context.Background()

	out, err := s.Configure(ctx, ConfigureInput{RefreshSeconds: 120})
	require.NoError(t, err)
	assert.Equal(t, testChannel, out.ChannelID)
	assert.Equal(t, 120, out.RefreshSeconds)
	<-s.loop.Resumed()

	other := "UC_x5XG1OV2P6uZZ5FSM9Ttw"
	out, err = s.Configure(ctx, ConfigureInput{ChannelID: other})
	require.NoError(t, err)
	assert.Equal(t, other, out.ChannelID)
	assert.Equal(t, 120, out.RefreshSeconds)
	assert.Contains(t, out.Message, other)

	_, err = s.Configure(ctx, ConfigureInput{RefreshSeconds: 5})
	require.ErrorIs(t, err, engine.ErrConfig)
	_, err = s.Configure(ctx, ConfigureInput{ChannelID: "not-a-channel"})
	require.ErrorIs(t, err, engine.ErrConfig)

	ch, policy := s.monitor.Settings()
	assert.Equal(t, other, ch)
	assert.Equal(t, 120*time.Second, policy.Interval)
}

func TestServiceStatus(t *testing.T) {
	s := newTestService(t, &stubCycle{}, nil)

	st := s.Status()
	assert.Equal(t, testChannel, st.ChannelID)
	assert.Equal(t, 60, st.RefreshSeconds)
	assert.Equal(t, "idle", st.State)
	assert.Empty(t, st.FetchedAt)
	assert.Contains(t, st.Metrics, "cycle_runs")

	_, err := s.Snapshot(context.Background(), SnapshotInput{})
	require.NoError(t, err)
	st = s.Status()
	assert.NotEmpty(t, st.FetchedAt)
	assert.NotEmpty(t, st.ExpiresAt)
}

func TestServiceStatus_IntervalChangeMovesExpiry(t *testing.T) {
	s := newTestService(t, &stubCycle{}, nil)
	_, err := s.Snapshot(context.Background(), SnapshotInput{})
	require.NoError(t, err)

	_, err = s.Configure(context.Background(), ConfigureInput{RefreshSeconds: 300})
	require.NoError(t, err)

	st := s.Status()
	fetched, err := time.Parse(time.RFC3339, st.FetchedAt)
	require.NoError(t, err)
	expires, err := time.Parse(time.RFC3339, st.ExpiresAt)
	require.NoError(t, err)
	assert.Equal(t, 300*time.Second, expires.Sub(fetched))
}

func TestServiceStatus_FailedChannelSwitchHidesOldEntry(t *testing.T) {
	cycle := &stubCycle{}
	s := newTestService(t, cycle, nil)
	_, err := s.Snapshot(context.Background(), SnapshotInput{})
	require.NoError(t, err)

	other := "UC_x5XG1OV2P6uZZ5FSM9Ttw"
	_, err = s.Configure(context.Background(), ConfigureInput{ChannelID: other})
	require.NoError(t, err)
	cycle.mu.Lock()
	cycle.err = engine.ErrFetch
	cycle.mu.Unlock()
	_, err = s.Snapshot(context.Background(), SnapshotInput{})
	require.ErrorIs(t, err, engine.ErrFetch)

	st := s.Status()
	assert.Equal(t, other, st.ChannelID)
	assert.Empty(t, st.FetchedAt)
	assert.Empty(t, st.ExpiresAt)
}

func TestServiceStatus_FailedLoop(t *testing.T) {
	s := newTestService(t, &stubCycle{err: engine.ErrEmptyResult}, nil)

	require.ErrorIs(t, s.loop.Run(context.Background()), engine.ErrEmptyResult)
	st := s.Status()
	assert.Equal(t, "failed", st.State)
	assert.True(t, st.NoData)
	assert.Contains(t, st.LastError, "no data")
}

func TestServiceHistory(t *testing.T) {
	s := newTestService(t, &stubCycle{}, nil)
	_, err := s.History(context.Background(), HistoryInput{})
	require.Error(t, err)

	j, err := history.Open(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	defer j.Close()

	cycle := &stubCycle{err: engine.ErrEmptyResult}
	s = newTestService(t, cycle, j)
	require.Error(t, s.loop.Run(context.Background()))

	out, err := s.History(context.Background(), HistoryInput{Limit: 5})
	require.NoError(t, err)
	require.Equal(t, 1, out.Total)
	assert.Equal(t, "failed", out.Cycles[0].State)
	assert.Equal(t, testChannel, out.Cycles[0].ChannelID)
}
