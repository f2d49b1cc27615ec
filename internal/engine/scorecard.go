package engine

import (
	"math"
	"slices"
)

// TopEngagementSize is the number of records kept in AnalyticsSnapshot.TopEngagement.
const TopEngagementSize = 10

// Aggregate reduces records to channel totals. AverageEngagement is the mean
// EngagementTotal rounded to 2 decimal places, ties to even (0.125 → 0.12).
// Empty input yields the zero value.
func Aggregate(records []EnrichedVideoRecord) ChannelScorecard {
	if len(records) == 0 {
		return ChannelScorecard{}
	}
	var sc ChannelScorecard
	var engagement int64
	for _, r := range records {
		sc.TotalViews += r.Views
		sc.TotalLikes += r.Likes
		sc.TotalComments += r.Comments
		engagement += r.EngagementTotal
	}
	sc.TotalVideos = len(records)
	sc.AverageEngagement = round2(float64(engagement) / float64(len(records)))
	return sc
}

// TopByEngagement returns up to n records with the highest EngagementTotal.
// Equal engagement keeps fetch order.
func TopByEngagement(records []EnrichedVideoRecord, n int) []EnrichedVideoRecord {
	out := slices.Clone(records)
	slices.SortStableFunc(out, func(a, b EnrichedVideoRecord) int {
		switch {
		case a.EngagementTotal > b.EngagementTotal:
			return -1
		case a.EngagementTotal < b.EngagementTotal:
			return 1
		}
		return 0
	})
	if n >= 0 && len(out) > n {
		out = out[:n]
	}
	return out
}

func round2(v float64) float64 {
	return math.RoundToEven(v*100) / 100
}
