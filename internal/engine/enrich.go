package engine

import (
	"context"
	"fmt"
)

// SentimentAnnotator classifies free text. Implementations live in the sources package.
type SentimentAnnotator interface {
	Classify(ctx context.Context, text string) (Sentiment, float64, error)
}

// sentimentThreshold is the exclusive polarity bound for Positive/Negative.
const sentimentThreshold = 0.1

// LabelForScore maps a polarity score to a label. Bounds are exclusive:
// exactly ±0.1 is Neutral.
func LabelForScore(score float64) Sentiment {
	switch {
	case score > sentimentThreshold:
		return SentimentPositive
	case score < -sentimentThreshold:
		return SentimentNegative
	default:
		return SentimentNeutral
	}
}

// Enrich classifies the record title and computes engagement.
// The label is always derived from the score, whatever label the annotator returned.
func Enrich(ctx context.Context, annotator SentimentAnnotator, raw RawVideoRecord) (EnrichedVideoRecord, error) {
	incrClassifyCalls()
	_, score, err := annotator.Classify(ctx, raw.Title)
	if err != nil {
		incrClassifyErrors()
		return EnrichedVideoRecord{}, fmt.Errorf("%w: video %s: %w", ErrClassification, raw.ID, err)
	}
	return EnrichedVideoRecord{
		RawVideoRecord:  raw,
		SentimentLabel:  LabelForScore(score),
		SentimentScore:  score,
		EngagementTotal: raw.Likes + raw.Comments,
	}, nil
}

// EnrichAll enriches records in order. The first failure aborts the batch and
// no partial result is returned.
func EnrichAll(ctx context.Context, annotator SentimentAnnotator, raws []RawVideoRecord) ([]EnrichedVideoRecord, error) {
	out := make([]EnrichedVideoRecord, 0, len(raws))
	for _, raw := range raws {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rec, err := Enrich(ctx, annotator, raw)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

// CountSentiment tallies labels across records.
func CountSentiment(records []EnrichedVideoRecord) SentimentBreakdown {
	var b SentimentBreakdown
	for _, r := range records {
		switch r.SentimentLabel {
		case SentimentPositive:
			b.Positive++
		case SentimentNegative:
			b.Negative++
		default:
			b.Neutral++
		}
	}
	return b
}
