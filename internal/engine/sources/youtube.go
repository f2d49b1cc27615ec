package sources

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/anatolykoptev/go_ytpulse/internal/engine"
	"golang.org/x/time/rate"
)

// YouTube Data API v3 client implementing engine.RecordFetcher.

const (
	ytDataAPIBase  = "https://www.googleapis.com/youtube/v3"
	ytMaxIDsPerReq = 50 // videos.list accepts at most 50 ids
	userAgent      = "GoYTPulse/1.0"
)

// --- YouTube Data API v3 types ---

type ytSearchResp struct {
	Items []struct {
		ID struct {
			VideoID string `json:"videoId"`
		} `json:"id"`
	} `json:"items"`
}

type ytVideosResp struct {
	Items []ytVideoItem `json:"items"`
}

type ytVideoItem struct {
	ID      string `json:"id"`
	Snippet struct {
		Title       string `json:"title"`
		Description string `json:"description"`
		PublishedAt string `json:"publishedAt"`
	} `json:"snippet"`
	Statistics struct {
		ViewCount    string `json:"viewCount"`
		LikeCount    string `json:"likeCount"`
		CommentCount string `json:"commentCount"`
	} `json:"statistics"`
}

type ytChannelsResp struct {
	Items []struct {
		Snippet struct {
			Country string `json:"country"`
		} `json:"snippet"`
	} `json:"items"`
}

// YouTubeClient fetches channel uploads and statistics.
type YouTubeClient struct {
	base    string
	keys    []string
	http    *http.Client
	limiter *rate.Limiter // nil = unlimited
	retry   RetryConfig
}

// NewYouTubeClient builds a client from engine config. A missing API key is a
// configuration error, reported here rather than at first use.
func NewYouTubeClient(cfg engine.Config) (*YouTubeClient, error) {
	if cfg.YouTubeAPIKey == "" {
		return nil, fmt.Errorf("%w: YOUTUBE_API_KEY is required", engine.ErrConfig)
	}
	keys := []string{cfg.YouTubeAPIKey}
	if cfg.YouTubeAPIKeyFallback != "" {
		keys = append(keys, cfg.YouTubeAPIKeyFallback)
	}
	base := strings.TrimRight(cfg.YouTubeAPIBase, "/")
	if base == "" {
		base = ytDataAPIBase
	}
	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: 15 * time.Second}
	}
	c := &YouTubeClient{base: base, keys: keys, http: hc, retry: DefaultRetryConfig}
	if cfg.YouTubeRPS > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(cfg.YouTubeRPS), 1)
	}
	return c, nil
}

// ListRecentVideoIDs returns the newest video ids of a channel, newest first.
func (c *YouTubeClient) ListRecentVideoIDs(ctx context.Context, channelID string, maxResults int) ([]string, error) {
	params := url.Values{}
	params.Set("part", "id")
	params.Set("channelId", channelID)
	params.Set("maxResults", strconv.Itoa(maxResults))
	params.Set("order", "date")
	params.Set("type", "video")

	var resp ytSearchResp
	if err := c.getJSON(ctx, "/search", params, &resp); err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	ids := make([]string, 0, len(resp.Items))
	for _, item := range resp.Items {
		if item.ID.VideoID != "" {
			ids = append(ids, item.ID.VideoID)
		}
	}
	return ids, nil
}

// FetchStats returns snippet and statistics for the given ids, in API order.
func (c *YouTubeClient) FetchStats(ctx context.Context, videoIDs []string) ([]engine.RawVideoRecord, error) {
	if len(videoIDs) == 0 {
		return nil, nil
	}
	records := make([]engine.RawVideoRecord, 0, len(videoIDs))
	for start := 0; start < len(videoIDs); start += ytMaxIDsPerReq {
		end := min(start+ytMaxIDsPerReq, len(videoIDs))
		params := url.Values{}
		params.Set("part", "snippet,statistics")
		params.Set("id", strings.Join(videoIDs[start:end], ","))

		var resp ytVideosResp
		if err := c.getJSON(ctx, "/videos", params, &resp); err != nil {
			return nil, fmt.Errorf("videos: %w", err)
		}
		for _, item := range resp.Items {
			rec, err := item.toRecord()
			if err != nil {
				return nil, fmt.Errorf("videos: %s: %w", item.ID, err)
			}
			records = append(records, rec)
		}
	}
	return records, nil
}

// LookupCountry returns the channel's country, or engine.UnknownCountry.
func (c *YouTubeClient) LookupCountry(ctx context.Context, channelID string) (string, error) {
	params := url.Values{}
	params.Set("part", "snippet")
	params.Set("id", channelID)

	var resp ytChannelsResp
	if err := c.getJSON(ctx, "/channels", params, &resp); err != nil {
		return "", fmt.Errorf("channels: %w", err)
	}
	if len(resp.Items) > 0 && resp.Items[0].Snippet.Country != "" {
		return resp.Items[0].Snippet.Country, nil
	}
	return engine.UnknownCountry, nil
}

func (item ytVideoItem) toRecord() (engine.RawVideoRecord, error) {
	var published time.Time
	if item.Snippet.PublishedAt != "" {
		t, err := time.Parse(time.RFC3339, item.Snippet.PublishedAt)
		if err != nil {
			return engine.RawVideoRecord{}, fmt.Errorf("publishedAt: %w", err)
		}
		published = t
	}
	views, err := parseCount(item.Statistics.ViewCount)
	if err != nil {
		return engine.RawVideoRecord{}, fmt.Errorf("viewCount: %w", err)
	}
	likes, err := parseCount(item.Statistics.LikeCount)
	if err != nil {
		return engine.RawVideoRecord{}, fmt.Errorf("likeCount: %w", err)
	}
	comments, err := parseCount(item.Statistics.CommentCount)
	if err != nil {
		return engine.RawVideoRecord{}, fmt.Errorf("commentCount: %w", err)
	}
	return engine.RawVideoRecord{
		ID:          item.ID,
		Title:       strings.TrimSpace(item.Snippet.Title),
		PublishedAt: published,
		Description: item.Snippet.Description,
		Views:       views,
		Likes:       likes,
		Comments:    comments,
	}, nil
}

// parseCount parses a Data API counter. Hidden counters are omitted and count as 0.
func parseCount(s string) (int64, error) {
	if s == "" {
		return 0, nil
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, err
	}
	if n < 0 {
		return 0, fmt.Errorf("negative count %d", n)
	}
	return n, nil
}

// getJSON calls a Data API endpoint and decodes the body into out.
// Falls back to the secondary key on 403 (quota exhausted or key rejected).
func (c *YouTubeClient) getJSON(ctx context.Context, path string, params url.Values, out any) error {
	var lastErr error
	for i, key := range c.keys {
		params.Set("key", key)
		body, err := c.fetch(ctx, c.base+path+"?"+params.Encode())
		if err == nil {
			if err := json.Unmarshal(body, out); err != nil {
				engine.IncrFetchErrors()
				return fmt.Errorf("decode %s: %w", path, err)
			}
			return nil
		}
		lastErr = err
		var se *statusError
		if !errors.As(err, &se) || !se.quotaExceeded() {
			break
		}
		if i < len(c.keys)-1 {
			slog.Debug("youtube: key rejected, trying fallback", slog.String("path", path))
		}
	}
	return lastErr
}

// fetch performs one GET with rate limiting and retries.
func (c *YouTubeClient) fetch(ctx context.Context, apiURL string) ([]byte, error) {
	return retryDo(ctx, c.retry, func() ([]byte, error) {
		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return nil, err
			}
		}
		engine.IncrFetchRequests()
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("User-Agent", userAgent)
		req.Header.Set("Accept", "application/json")

		resp, err := c.http.Do(req)
		if err != nil {
			engine.IncrFetchErrors()
			return nil, err
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			engine.IncrFetchErrors()
			body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
			return nil, &statusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
		}
		body, err := io.ReadAll(io.LimitReader(resp.Body, 8*1024*1024))
		if err != nil {
			engine.IncrFetchErrors()
			return nil, fmt.Errorf("read body: %w", err)
		}
		return body, nil
	})
}
