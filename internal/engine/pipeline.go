package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// RecordFetcher is the outbound boundary to the video platform.
type RecordFetcher interface {
	ListRecentVideoIDs(ctx context.Context, channelID string, maxResults int) ([]string, error)
	FetchStats(ctx context.Context, videoIDs []string) ([]RawVideoRecord, error)
	LookupCountry(ctx context.Context, channelID string) (string, error)
}

// UnknownCountry is reported when the channel has no region set.
const UnknownCountry = "Unknown"

// Pipeline runs one fetch→enrich→aggregate→extract cycle.
type Pipeline struct {
	fetcher    RecordFetcher
	annotator  SentimentAnnotator
	maxResults int
}

// NewPipeline wires a pipeline. maxResults <= 0 uses DefaultMaxResults.
func NewPipeline(fetcher RecordFetcher, annotator SentimentAnnotator, maxResults int) *Pipeline {
	if maxResults <= 0 {
		maxResults = DefaultMaxResults
	}
	return &Pipeline{fetcher: fetcher, annotator: annotator, maxResults: maxResults}
}

// Run executes a full cycle and returns a new snapshot stamped with now.
// Nothing is returned on error; the caller keeps whatever it had before.
func (p *Pipeline) Run(ctx context.Context, channelID string, now time.Time) (snap *AnalyticsSnapshot, err error) {
	metrics.CycleRuns.Add(1)
	err = TrackOperation(ctx, "cycle:"+channelID, func(ctx context.Context) error {
		snap, err = p.run(ctx, channelID, now)
		return err
	})
	if err != nil {
		metrics.CycleErrors.Add(1)
	}
	return
}

func (p *Pipeline) run(ctx context.Context, channelID string, now time.Time) (*AnalyticsSnapshot, error) {
	// --- Fetch ---
	ids, err := p.fetcher.ListRecentVideoIDs(ctx, channelID, p.maxResults)
	if err != nil {
		return nil, fetchErr("list video ids", err)
	}
	if len(ids) == 0 {
		return nil, fmt.Errorf("%w: channel %s", ErrEmptyResult, channelID)
	}
	raws, err := p.fetcher.FetchStats(ctx, ids)
	if err != nil {
		return nil, fetchErr("fetch stats", err)
	}
	if len(raws) == 0 {
		return nil, fmt.Errorf("%w: channel %s returned no stats", ErrEmptyResult, channelID)
	}
	country, err := p.fetcher.LookupCountry(ctx, channelID)
	if err != nil {
		return nil, fetchErr("lookup country", err)
	}
	if country == "" {
		country = UnknownCountry
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// --- Enrich ---
	records, err := EnrichAll(ctx, p.annotator, raws)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// --- Aggregate ---
	scorecard := Aggregate(records)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// --- Extract ---
	tags, fallback := ExtractHashtags(records)

	slog.Debug("refresh: cycle complete",
		slog.String("channel", channelID),
		slog.Int("videos", len(records)),
		slog.Bool("hashtag_fallback", fallback))

	return &AnalyticsSnapshot{
		ChannelID:        channelID,
		Country:          country,
		Records:          records,
		Scorecard:        scorecard,
		Hashtags:         tags,
		HashtagsFallback: fallback,
		Sentiment:        CountSentiment(records),
		TopEngagement:    TopByEngagement(records, TopEngagementSize),
		FetchedAt:        now,
	}, nil
}

// fetchErr tags a fetcher failure with ErrFetch unless it is already
// categorized or is a context cancellation.
func fetchErr(op string, err error) error {
	if isCategorized(err) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return fmt.Errorf("%w: %s: %w", ErrFetch, op, err)
}
