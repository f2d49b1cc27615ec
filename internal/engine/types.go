package engine

import (
	"slices"
	"time"
)

// --- Sentiment ---

// Sentiment is the 3-way label attached to every enriched record.
type Sentiment string

const (
	SentimentPositive Sentiment = "Positive"
	SentimentNeutral  Sentiment = "Neutral"
	SentimentNegative Sentiment = "Negative"
)

// --- Records ---

// RawVideoRecord is one video as returned by the fetcher. Immutable once fetched.
type RawVideoRecord struct {
	ID          string    `json:"video_id"`
	Title       string    `json:"title"`
	PublishedAt time.Time `json:"published_at"`
	Description string    `json:"description,omitempty"`
	Views       int64     `json:"views"`
	Likes       int64     `json:"likes"`
	Comments    int64     `json:"comments"`
}

// EnrichedVideoRecord is a RawVideoRecord plus sentiment and engagement.
type EnrichedVideoRecord struct {
	RawVideoRecord
	SentimentLabel  Sentiment `json:"sentiment"`
	SentimentScore  float64   `json:"sentiment_score"`
	EngagementTotal int64     `json:"engagement_total"`
}

// HashtagCount is one row of the trending table.
type HashtagCount struct {
	Tag   string `json:"hashtag"`
	Count int    `json:"frequency"`
}

// ChannelScorecard holds channel-level totals for one fetch cycle.
type ChannelScorecard struct {
	TotalVideos       int     `json:"total_videos"`
	TotalViews        int64   `json:"total_views"`
	TotalLikes        int64   `json:"total_likes"`
	TotalComments     int64   `json:"total_comments"`
	AverageEngagement float64 `json:"average_engagement"`
}

// SentimentBreakdown counts records per sentiment label.
type SentimentBreakdown struct {
	Positive int `json:"positive"`
	Neutral  int `json:"neutral"`
	Negative int `json:"negative"`
}

// AnalyticsSnapshot is the result of one complete refresh cycle.
// Snapshots are shared between readers and must not be modified.
type AnalyticsSnapshot struct {
	ChannelID        string                `json:"channel_id"`
	Country          string                `json:"country"`
	Records          []EnrichedVideoRecord `json:"records"`
	Scorecard        ChannelScorecard      `json:"scorecard"`
	Hashtags         []HashtagCount        `json:"hashtags"`
	HashtagsFallback bool                  `json:"hashtags_fallback"`
	Sentiment        SentimentBreakdown    `json:"sentiment"`
	TopEngagement    []EnrichedVideoRecord `json:"top_engagement"`
	FetchedAt        time.Time             `json:"fetched_at"`
}

// ByPublished returns a copy of the records ordered by publish time.
// Ascending order feeds the viewership trend, descending the raw feed.
func (s *AnalyticsSnapshot) ByPublished(desc bool) []EnrichedVideoRecord {
	out := slices.Clone(s.Records)
	slices.SortStableFunc(out, func(a, b EnrichedVideoRecord) int {
		if desc {
			return b.PublishedAt.Compare(a.PublishedAt)
		}
		return a.PublishedAt.Compare(b.PublishedAt)
	})
	return out
}
