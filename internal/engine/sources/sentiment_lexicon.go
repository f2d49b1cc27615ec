package sources

import (
	"context"
	"strings"

	"github.com/anatolykoptev/go_ytpulse/internal/engine"
	"github.com/jonreiter/govader"
)

// LexiconAnnotator scores text with the VADER lexicon. The compound score is
// already normalized to [-1,1]. It is deterministic and offline, and is the
// default when no LLM key is configured.
type LexiconAnnotator struct {
	analyzer *govader.SentimentIntensityAnalyzer
}

// NewLexiconAnnotator loads the VADER lexicon.
func NewLexiconAnnotator() *LexiconAnnotator {
	return &LexiconAnnotator{analyzer: govader.NewSentimentIntensityAnalyzer()}
}

// Classify implements engine.SentimentAnnotator.
func (a *LexiconAnnotator) Classify(_ context.Context, text string) (engine.Sentiment, float64, error) {
	if strings.TrimSpace(text) == "" {
		return engine.SentimentNeutral, 0, nil
	}
	score := a.analyzer.PolarityScores(text).Compound
	return engine.LabelForScore(score), score, nil
}
