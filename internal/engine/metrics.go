package engine

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"
)

// Metrics tracks operational counters across the engine.
var metrics struct {
	CycleRuns       atomic.Int64
	CycleErrors     atomic.Int64
	FetchRequests   atomic.Int64
	FetchErrors     atomic.Int64
	ClassifyCalls   atomic.Int64
	ClassifyErrors  atomic.Int64
	LLMCalls        atomic.Int64
	LLMErrors       atomic.Int64
	SnapshotPublish atomic.Int64
	PublishErrors   atomic.Int64
	CacheHits       atomic.Int64
	CacheMisses     atomic.Int64
}

// metricKeys fixes the output order of FormatMetrics.
var metricKeys = []string{
	"cycle_runs", "cycle_errors",
	"fetch_requests", "fetch_errors",
	"classify_calls", "classify_errors",
	"llm_calls", "llm_errors",
	"snapshot_publishes", "publish_errors",
	"cache_hits", "cache_misses",
}

// GetMetrics returns a snapshot of all counters.
func GetMetrics() map[string]int64 {
	return map[string]int64{
		"cycle_runs":         metrics.CycleRuns.Load(),
		"cycle_errors":       metrics.CycleErrors.Load(),
		"fetch_requests":     metrics.FetchRequests.Load(),
		"fetch_errors":       metrics.FetchErrors.Load(),
		"classify_calls":     metrics.ClassifyCalls.Load(),
		"classify_errors":    metrics.ClassifyErrors.Load(),
		"llm_calls":          metrics.LLMCalls.Load(),
		"llm_errors":         metrics.LLMErrors.Load(),
		"snapshot_publishes": metrics.SnapshotPublish.Load(),
		"publish_errors":     metrics.PublishErrors.Load(),
		"cache_hits":         metrics.CacheHits.Load(),
		"cache_misses":       metrics.CacheMisses.Load(),
	}
}

// FormatMetrics returns metrics as a simple text format for HTTP endpoint.
func FormatMetrics() string {
	m := GetMetrics()
	var sb strings.Builder
	for _, k := range metricKeys {
		fmt.Fprintf(&sb, "%s %d\n", k, m[k])
	}
	return sb.String()
}

// Incrementors for the sources/ sub-package.
func IncrFetchRequests() { metrics.FetchRequests.Add(1) }
func IncrFetchErrors()   { metrics.FetchErrors.Add(1) }
func IncrLLMCalls()      { metrics.LLMCalls.Add(1) }
func IncrLLMErrors()     { metrics.LLMErrors.Add(1) }

func incrClassifyCalls()  { metrics.ClassifyCalls.Add(1) }
func incrClassifyErrors() { metrics.ClassifyErrors.Add(1) }

// TrackOperation logs a warning if an operation takes longer than threshold.
func TrackOperation(ctx context.Context, name string, fn func(context.Context) error) error {
	start := time.Now()
	err := fn(ctx)
	elapsed := time.Since(start)
	if elapsed > 5*time.Second {
		slog.Warn("slow operation", slog.String("op", name), slog.Duration("elapsed", elapsed))
	}
	return err
}
