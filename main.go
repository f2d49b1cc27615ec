// go_ytpulse — YouTube channel analytics MCP server.
//
// Periodically pulls a channel's recent uploads from the YouTube Data API,
// scores title sentiment, aggregates a channel scorecard and trending hashtags,
// and serves the latest snapshot through MCP tools.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/anatolykoptev/go-kit/env"
	"github.com/anatolykoptev/go-kit/llm"
	"github.com/anatolykoptev/go-mcpserver"
	"github.com/anatolykoptev/go_ytpulse/internal/engine"
	"github.com/anatolykoptev/go_ytpulse/internal/engine/history"
	"github.com/anatolykoptev/go_ytpulse/internal/engine/sources"
	"github.com/anatolykoptev/go_ytpulse/internal/pulseserver"
	"github.com/joho/godotenv"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

var version = "dev"

func main() {
	// Local runs keep keys in .env; deployed environments set them directly.
	_ = godotenv.Load()

	mcpPort := env.Str("MCP_PORT", "8893")
	cfg := loadConfig()
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", slog.Any("error", err))
		os.Exit(1)
	}

	fetcher, err := sources.NewYouTubeClient(cfg)
	if err != nil {
		slog.Error("youtube client init failed", slog.Any("error", err))
		os.Exit(1)
	}

	var annotator engine.SentimentAnnotator = sources.NewLexiconAnnotator()
	if cfg.LLMAPIKey != "" {
		client := llm.NewClient(cfg.LLMAPIBase, cfg.LLMAPIKey, cfg.LLMModel,
			llm.WithFallbackKeys(cfg.LLMAPIKeyFallbacks),
			llm.WithMaxTokens(cfg.LLMMaxTokens),
			llm.WithTemperature(cfg.LLMTemperature),
			llm.WithHTTPClient(&http.Client{Timeout: 30 * time.Second}),
		)
		annotator = sources.NewLLMAnnotator(client)
		slog.Info("sentiment: llm annotator", slog.String("model", cfg.LLMModel))
	} else {
		slog.Info("sentiment: lexicon annotator")
	}

	feed := engine.NewSnapshotFeed(cfg.RedisURL)
	defer feed.Close()

	pipeline := engine.NewPipeline(fetcher, annotator, cfg.MaxResults)
	cache := engine.NewRefreshCache(pipeline.Run, feed)
	monitor, err := engine.NewMonitor(cache, cfg.ChannelID, cfg.RefreshSeconds)
	if err != nil {
		slog.Error("monitor init failed", slog.Any("error", err))
		os.Exit(1)
	}

	var loopOpts []engine.LoopOption
	var journal *history.Journal
	if cfg.HistoryDBPath != "" {
		journal, err = history.Open(cfg.HistoryDBPath)
		if err != nil {
			slog.Warn("history journal init failed, running without it", slog.Any("error", err))
		} else {
			defer journal.Close()
			loopOpts = append(loopOpts, engine.WithRecorder(journal))
			slog.Info("history journal initialized", slog.String("path", cfg.HistoryDBPath))
		}
	}
	loopOpts = append(loopOpts, engine.WithSnapshotHandler(logScorecard))
	loop := engine.NewRefreshLoop(monitor, loopOpts...)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go superviseLoop(ctx, loop)

	slog.Info("starting go_ytpulse",
		slog.String("port", mcpPort),
		slog.String("channel", cfg.ChannelID),
		slog.Int("refresh_seconds", cfg.RefreshSeconds),
	)

	server := mcp.NewServer(&mcp.Implementation{
		Name:    "go_ytpulse",
		Version: version,
	}, nil)
	pulseserver.RegisterTools(server, pulseserver.NewService(monitor, loop, journal))

	if err := mcpserver.Run(server, mcpserver.Config{
		Name:         "go_ytpulse",
		Version:      version,
		Port:         mcpPort,
		WriteTimeout: 120 * time.Second,
		Metrics:      engine.FormatMetrics,
	}); err != nil {
		slog.Error("server failed", slog.Any("error", err))
	}
}

func loadConfig() engine.Config {
	return engine.Config{
		ChannelID:             env.Str("CHANNEL_ID", engine.DefaultChannelID),
		RefreshSeconds:        env.Int("REFRESH_INTERVAL", engine.DefaultRefreshSeconds),
		MaxResults:            env.Int("MAX_RESULTS", engine.DefaultMaxResults),
		YouTubeAPIKey:         env.Str("YOUTUBE_API_KEY", ""),
		YouTubeAPIKeyFallback: env.Str("YOUTUBE_API_KEY_FALLBACK", ""),
		YouTubeAPIBase:        env.Str("YOUTUBE_API_BASE", ""),
		YouTubeRPS:            env.Float("YOUTUBE_RPS", 5),
		LLMAPIKey:             env.Str("LLM_API_KEY", ""),
		LLMAPIKeyFallbacks:    env.List("LLM_API_KEY_FALLBACKS", ""),
		LLMAPIBase:            env.Str("LLM_API_BASE", "https://generativelanguage.googleapis.com/v1beta/openai"),
		LLMModel:              env.Str("LLM_MODEL", "gemini-2.5-flash"),
		LLMTemperature:        env.Float("LLM_TEMPERATURE", 0),
		LLMMaxTokens:          env.Int("LLM_MAX_TOKENS", 256),
		RedisURL:              env.Str("REDIS_URL", ""),
		HistoryDBPath:         env.Str("HISTORY_DB_PATH", ""),
		HTTPClient: &http.Client{
			Timeout: env.Duration("YOUTUBE_TIMEOUT", 15*time.Second),
			Transport: &http.Transport{
				MaxIdleConns:        10,
				MaxIdleConnsPerHost: 5,
				IdleConnTimeout:     60 * time.Second,
			},
		},
	}
}

// logScorecard reports the headline numbers of each fresh snapshot.
func logScorecard(snap *engine.AnalyticsSnapshot) {
	attrs := []any{
		slog.String("channel", snap.ChannelID),
		slog.String("country", snap.Country),
		slog.Int("videos", snap.Scorecard.TotalVideos),
		slog.Int64("views", snap.Scorecard.TotalViews),
		slog.Float64("avg_engagement", snap.Scorecard.AverageEngagement),
		slog.Int("positive", snap.Sentiment.Positive),
		slog.Int("negative", snap.Sentiment.Negative),
		slog.Bool("hashtag_fallback", snap.HashtagsFallback),
	}
	if len(snap.Hashtags) > 0 {
		attrs = append(attrs, slog.String("top_hashtag", snap.Hashtags[0].Tag))
	}
	slog.Info("scorecard: updated", attrs...)
}

// superviseLoop runs the refresh loop. After a failed cycle the loop stays
// halted until channel_configure resumes it.
func superviseLoop(ctx context.Context, loop *engine.RefreshLoop) {
	for {
		err := loop.Run(ctx)
		if ctx.Err() != nil {
			return
		}
		if errors.Is(err, engine.ErrEmptyResult) {
			slog.Warn("refresh: no data for channel, waiting for reconfigure", slog.Any("error", err))
		} else {
			slog.Error("refresh: loop halted, waiting for reconfigure", slog.Any("error", err))
		}
		select {
		case <-loop.Resumed():
		case <-ctx.Done():
			return
		}
	}
}
