package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/anatolykoptev/go-kit/llm"
	"github.com/anatolykoptev/go-kit/strutil"
	"github.com/anatolykoptev/go_ytpulse/internal/engine"
)

const sentimentPrompt = `Rate the sentiment polarity of this YouTube video title.
Return ONLY JSON: {"score": <number between -1 and 1>}
-1 is very negative, 0 is neutral, 1 is very positive.

Title: %s`

// maxTitleRunes bounds the title sent to the model.
const maxTitleRunes = 300

// completeFunc sends one prompt and returns the raw model reply.
type completeFunc func(ctx context.Context, prompt string) (string, error)

// LLMAnnotator asks a chat model for a polarity score.
type LLMAnnotator struct {
	complete completeFunc
}

// NewLLMAnnotator wraps a go-kit LLM client.
func NewLLMAnnotator(client *llm.Client) *LLMAnnotator {
	return &LLMAnnotator{complete: func(ctx context.Context, prompt string) (string, error) {
		return client.Complete(ctx, "", prompt,
			llm.WithChatTemperature(0),
			llm.WithChatMaxTokens(40),
		)
	}}
}

type llmSentimentOutput struct {
	Score *float64 `json:"score"`
}

// Classify implements engine.SentimentAnnotator.
func (a *LLMAnnotator) Classify(ctx context.Context, text string) (engine.Sentiment, float64, error) {
	prompt := fmt.Sprintf(sentimentPrompt, strutil.TruncateWith(text, maxTitleRunes, "..."))
	engine.IncrLLMCalls()
	raw, err := a.complete(ctx, prompt)
	if err != nil {
		engine.IncrLLMErrors()
		return "", 0, fmt.Errorf("llm: %w", err)
	}
	score, err := parseScore(raw)
	if err != nil {
		engine.IncrLLMErrors()
		return "", 0, err
	}
	return engine.LabelForScore(score), score, nil
}

// parseScore reads {"score": x} from a model reply, tolerating code fences.
func parseScore(raw string) (float64, error) {
	s := stripFences(raw)
	var out llmSentimentOutput
	if err := json.Unmarshal([]byte(s), &out); err != nil {
		return 0, fmt.Errorf("llm: parse failed on %q: %w", raw, err)
	}
	if out.Score == nil || math.IsNaN(*out.Score) {
		return 0, fmt.Errorf("llm: no score in %q", raw)
	}
	return clampScore(*out.Score), nil
}

// stripFences removes markdown code fences from LLM output.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

func clampScore(v float64) float64 {
	return max(-1, min(1, v))
}
