package engine

import (
	"context"
	"errors"
	"sync"
	"time"
)

const testChannel = "UCOhHO2ICt0ti9KAh-QHvttQ"

// stubFetcher is an in-memory RecordFetcher.
type stubFetcher struct {
	mu       sync.Mutex
	ids      []string
	raws     []RawVideoRecord
	country  string
	listErr  error
	statsErr error
	ctryErr  error
	lists    int
}

func (f *stubFetcher) ListRecentVideoIDs(_ context.Context, _ string, maxResults int) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lists++
	if f.listErr != nil {
		return nil, f.listErr
	}
	if len(f.ids) > maxResults {
		return f.ids[:maxResults], nil
	}
	return f.ids, nil
}

func (f *stubFetcher) FetchStats(_ context.Context, _ []string) ([]RawVideoRecord, error) {
	if f.statsErr != nil {
		return nil, f.statsErr
	}
	return f.raws, nil
}

func (f *stubFetcher) LookupCountry(_ context.Context, _ string) (string, error) {
	if f.ctryErr != nil {
		return "", f.ctryErr
	}
	return f.country, nil
}

func (f *stubFetcher) listCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lists
}

// scoreAnnotator returns a fixed score per title, 0 for unknown titles.
// Its label is deliberately wrong so tests prove it is ignored.
type scoreAnnotator struct {
	scores map[string]float64
	failOn string
}

func (a scoreAnnotator) Classify(_ context.Context, text string) (Sentiment, float64, error) {
	if a.failOn != "" && text == a.failOn {
		return "", 0, errors.New("annotator unavailable")
	}
	return SentimentNegative, a.scores[text], nil
}

func raw(id, title string, likes, comments int64) RawVideoRecord {
	return RawVideoRecord{
		ID:          id,
		Title:       title,
		PublishedAt: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		Views:       likes * 10,
		Likes:       likes,
		Comments:    comments,
	}
}

func enriched(id, title string, likes, comments int64) EnrichedVideoRecord {
	r := raw(id, title, likes, comments)
	return EnrichedVideoRecord{RawVideoRecord: r, SentimentLabel: SentimentNeutral, EngagementTotal: likes + comments}
}

// countingCycle is a CycleFunc that counts invocations and can be told to fail.
type countingCycle struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (c *countingCycle) run(_ context.Context, channelID string, now time.Time) (*AnalyticsSnapshot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	if c.err != nil {
		return nil, c.err
	}
	return &AnalyticsSnapshot{ChannelID: channelID, FetchedAt: now}, nil
}

func (c *countingCycle) setErr(err error) {
	c.mu.Lock()
	c.err = err
	c.mu.Unlock()
}

func (c *countingCycle) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}
