package engine

import (
	"fmt"
	"net/http"
	"regexp"
	"time"
)

// Refresh interval bounds, in seconds.
const (
	MinRefreshSeconds     = 30
	MaxRefreshSeconds     = 300
	DefaultRefreshSeconds = 60
	DefaultMaxResults     = 50
)

// DefaultChannelID is the channel tracked when none is configured.
const DefaultChannelID = "UCOhHO2ICt0ti9KAh-QHvttQ"

var channelIDRe = regexp.MustCompile(`^UC[A-Za-z0-9_-]{22}$`)

// Config holds all engine configuration, injected from main.
type Config struct {
	ChannelID             string
	RefreshSeconds        int
	MaxResults            int
	YouTubeAPIKey         string
	YouTubeAPIKeyFallback string
	YouTubeAPIBase        string  // empty = public Data API v3 endpoint
	YouTubeRPS            float64 // client-side request rate, 0 = unlimited
	LLMAPIKey             string
	LLMAPIKeyFallbacks    []string
	LLMAPIBase            string
	LLMModel              string
	LLMTemperature        float64
	LLMMaxTokens          int
	RedisURL              string // empty = snapshot feed disabled
	HistoryDBPath         string // empty = refresh journal disabled
	HTTPClient            *http.Client
}

// Validate checks the settings the pipeline cannot run without.
func (c Config) Validate() error {
	if c.YouTubeAPIKey == "" {
		return fmt.Errorf("%w: YOUTUBE_API_KEY is required", ErrConfig)
	}
	if err := ValidateChannelID(c.ChannelID); err != nil {
		return err
	}
	if _, err := NewRefreshPolicy(c.RefreshSeconds); err != nil {
		return err
	}
	if c.MaxResults < 1 || c.MaxResults > DefaultMaxResults {
		return fmt.Errorf("%w: max results %d outside [1,%d]", ErrConfig, c.MaxResults, DefaultMaxResults)
	}
	return nil
}

// ValidateChannelID checks the platform channel id format (UC + 22 chars).
func ValidateChannelID(id string) error {
	if !channelIDRe.MatchString(id) {
		return fmt.Errorf("%w: channel id %q", ErrConfig, id)
	}
	return nil
}

// RefreshPolicy controls how long a snapshot stays fresh.
type RefreshPolicy struct {
	Interval time.Duration
}

// NewRefreshPolicy builds a policy from seconds, rejecting values outside
// [MinRefreshSeconds, MaxRefreshSeconds].
func NewRefreshPolicy(seconds int) (RefreshPolicy, error) {
	if seconds < MinRefreshSeconds || seconds > MaxRefreshSeconds {
		return RefreshPolicy{}, fmt.Errorf("%w: refresh interval %ds outside [%d,%d]",
			ErrConfig, seconds, MinRefreshSeconds, MaxRefreshSeconds)
	}
	return RefreshPolicy{Interval: time.Duration(seconds) * time.Second}, nil
}
