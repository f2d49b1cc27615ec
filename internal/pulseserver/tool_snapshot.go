package pulseserver

import (
	"context"
	"strings"
	"time"

	"github.com/anatolykoptev/go_ytpulse/internal/engine"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// SnapshotInput is the input for channel_snapshot.
type SnapshotInput struct {
	Limit int    `json:"limit,omitempty" jsonschema:"Max videos in the feed (default: 50)"`
	Order string `json:"order,omitempty" jsonschema:"Video feed order: newest (default), oldest, engagement"`
}

// VideoItem is one video row in the snapshot feed.
type VideoItem struct {
	ID             string  `json:"video_id"`
	Title          string  `json:"title"`
	PublishedAt    string  `json:"published_at"`
	Views          int64   `json:"views"`
	Likes          int64   `json:"likes"`
	Comments       int64   `json:"comments"`
	Engagement     int64   `json:"engagement_total"`
	Sentiment      string  `json:"sentiment"`
	SentimentScore float64 `json:"sentiment_score"`
}

// SnapshotOutput is the output for channel_snapshot.
type SnapshotOutput struct {
	ChannelID        string                    `json:"channel_id"`
	Country          string                    `json:"country"`
	FetchedAt        string                    `json:"fetched_at"`
	Scorecard        engine.ChannelScorecard   `json:"scorecard"`
	Sentiment        engine.SentimentBreakdown `json:"sentiment"`
	Hashtags         []engine.HashtagCount     `json:"hashtags"`
	HashtagsFallback bool                      `json:"hashtags_fallback"`
	TopEngagement    []VideoItem               `json:"top_engagement"`
	Videos           []VideoItem               `json:"videos"`
}

func registerChannelSnapshot(server *mcp.Server, s *Service) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "channel_snapshot",
		Description: "Current analytics snapshot of the tracked YouTube channel: scorecard (videos, views, likes, comments, average engagement), title sentiment distribution, trending hashtags, top-engagement videos and the recent video feed. Served from cache; refreshed when stale.",
		Annotations: &mcp.ToolAnnotations{ReadOnlyHint: true},
	}, func(ctx context.Context, _ *mcp.CallToolRequest, input SnapshotInput) (*mcp.CallToolResult, SnapshotOutput, error) {
		out, err := s.Snapshot(ctx, input)
		return nil, out, err
	})
}

// Snapshot builds the channel_snapshot output.
func (s *Service) Snapshot(ctx context.Context, input SnapshotInput) (SnapshotOutput, error) {
	snap, err := s.monitor.Snapshot(ctx)
	if err != nil {
		return SnapshotOutput{}, err
	}

	limit := input.Limit
	if limit <= 0 || limit > engine.DefaultMaxResults {
		limit = engine.DefaultMaxResults
	}

	var feed []engine.EnrichedVideoRecord
	switch strings.ToLower(strings.TrimSpace(input.Order)) {
	case "oldest":
		feed = snap.ByPublished(false)
	case "engagement":
		feed = engine.TopByEngagement(snap.Records, -1)
	default:
		feed = snap.ByPublished(true)
	}
	if len(feed) > limit {
		feed = feed[:limit]
	}

	return SnapshotOutput{
		ChannelID:        snap.ChannelID,
		Country:          snap.Country,
		FetchedAt:        snap.FetchedAt.UTC().Format(time.RFC3339),
		Scorecard:        snap.Scorecard,
		Sentiment:        snap.Sentiment,
		Hashtags:         snap.Hashtags,
		HashtagsFallback: snap.HashtagsFallback,
		TopEngagement:    toVideoItems(snap.TopEngagement),
		Videos:           toVideoItems(feed),
	}, nil
}

func toVideoItems(records []engine.EnrichedVideoRecord) []VideoItem {
	items := make([]VideoItem, 0, len(records))
	for _, r := range records {
		items = append(items, VideoItem{
			ID:             r.ID,
			Title:          r.Title,
			PublishedAt:    r.PublishedAt.UTC().Format(time.RFC3339),
			Views:          r.Views,
			Likes:          r.Likes,
			Comments:       r.Comments,
			Engagement:     r.EngagementTotal,
			Sentiment:      string(r.SentimentLabel),
			SentimentScore: r.SentimentScore,
		})
	}
	return items
}
