package engine

import (
	"regexp"
	"slices"
	"strings"
)

// MaxTrendingTags caps the trending table.
const MaxTrendingTags = 10

// hashtagRe matches '#' followed by word characters (Unicode letters, digits, underscore).
var hashtagRe = regexp.MustCompile(`#[\p{L}\p{N}_]+`)

// fallbackHashtags is the channel-branding table shown when no titles carry tags.
// It is a presentation default, not a measurement.
var fallbackHashtags = []HashtagCount{
	{Tag: "#technicalguruji", Count: 2500},
	{Tag: "#tgfamily", Count: 2100},
	{Tag: "#unboxing", Count: 1800},
	{Tag: "#smartphone", Count: 1650},
	{Tag: "#gadgets", Count: 1400},
	{Tag: "#technews", Count: 1250},
	{Tag: "#iphone17", Count: 1100},
	{Tag: "#samsung", Count: 950},
	{Tag: "#techshorts", Count: 800},
	{Tag: "#india", Count: 750},
}

// FallbackHashtags returns a copy of the static trending table.
func FallbackHashtags() []HashtagCount {
	return slices.Clone(fallbackHashtags)
}

// FindHashtags returns the lower-cased tags in text, in order of appearance.
func FindHashtags(text string) []string {
	return hashtagRe.FindAllString(strings.ToLower(text), -1)
}

// ExtractHashtags counts tags over all record titles and returns the top
// MaxTrendingTags by count, ties kept in first-seen order. When no title has a
// tag the static table is returned with fallback=true.
func ExtractHashtags(records []EnrichedVideoRecord) (tags []HashtagCount, fallback bool) {
	counts := make(map[string]int)
	var order []string
	for _, r := range records {
		for _, tag := range FindHashtags(r.Title) {
			if _, seen := counts[tag]; !seen {
				order = append(order, tag)
			}
			counts[tag]++
		}
	}
	if len(order) == 0 {
		return FallbackHashtags(), true
	}

	tags = make([]HashtagCount, 0, len(order))
	for _, tag := range order {
		tags = append(tags, HashtagCount{Tag: tag, Count: counts[tag]})
	}
	// Stable sort keeps first-seen order among equal counts.
	slices.SortStableFunc(tags, func(a, b HashtagCount) int {
		return b.Count - a.Count
	})
	if len(tags) > MaxTrendingTags {
		tags = tags[:MaxTrendingTags]
	}
	return tags, false
}
