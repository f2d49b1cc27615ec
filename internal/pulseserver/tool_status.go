package pulseserver

import (
	"context"
	"errors"
	"time"

	"github.com/anatolykoptev/go_ytpulse/internal/engine"
	"github.com/anatolykoptev/go_ytpulse/internal/engine/history"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// StatusInput is the input for refresh_status.
type StatusInput struct{}

// StatusOutput is the output for refresh_status.
type StatusOutput struct {
	ChannelID      string           `json:"channel_id"`
	RefreshSeconds int              `json:"refresh_seconds"`
	State          string           `json:"state"`
	LastError      string           `json:"last_error,omitempty"`
	NoData         bool             `json:"no_data,omitempty"`
	FetchedAt      string           `json:"fetched_at,omitempty"`
	ExpiresAt      string           `json:"expires_at,omitempty"`
	NextRun        string           `json:"next_run,omitempty"`
	Metrics        map[string]int64 `json:"metrics"`
}

// HistoryInput is the input for refresh_history.
type HistoryInput struct {
	Limit int `json:"limit,omitempty" jsonschema:"Max cycles to return (default: 20, max 100)"`
}

// HistoryOutput is the output for refresh_history.
type HistoryOutput struct {
	Cycles []history.Entry `json:"cycles"`
	Total  int             `json:"total"`
}

func registerRefreshStatus(server *mcp.Server, s *Service) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "refresh_status",
		Description: "State of the background refresh loop (idle, fetching, ready, failed), the last error, cache freshness and engine counters.",
		Annotations: &mcp.ToolAnnotations{ReadOnlyHint: true},
	}, func(ctx context.Context, _ *mcp.CallToolRequest, _ StatusInput) (*mcp.CallToolResult, StatusOutput, error) {
		return nil, s.Status(), nil
	})
}

func registerRefreshHistory(server *mcp.Server, s *Service) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "refresh_history",
		Description: "Recent refresh cycles from the local journal, newest first: channel, timing, outcome, video count and error.",
		Annotations: &mcp.ToolAnnotations{ReadOnlyHint: true},
	}, func(ctx context.Context, _ *mcp.CallToolRequest, input HistoryInput) (*mcp.CallToolResult, HistoryOutput, error) {
		out, err := s.History(ctx, input)
		return nil, out, err
	})
}

// Status reports loop and cache state without triggering a refresh.
func (s *Service) Status() StatusOutput {
	channelID, policy := s.monitor.Settings()
	st := s.loop.Status()
	out := StatusOutput{
		ChannelID:      channelID,
		RefreshSeconds: int(policy.Interval.Seconds()),
		State:          string(st.State),
		Metrics:        engine.GetMetrics(),
	}
	if st.LastErr != nil {
		out.LastError = st.LastErr.Error()
		out.NoData = errors.Is(st.LastErr, engine.ErrEmptyResult)
	}
	if !st.NextRun.IsZero() {
		out.NextRun = st.NextRun.UTC().Format(time.RFC3339)
	}
	if cs, ok := s.monitor.Peek(); ok {
		out.FetchedAt = cs.FetchedAt.UTC().Format(time.RFC3339)
		out.ExpiresAt = cs.ExpiresAt.UTC().Format(time.RFC3339)
	}
	return out
}

// History lists journaled cycles.
func (s *Service) History(ctx context.Context, input HistoryInput) (HistoryOutput, error) {
	if s.history == nil {
		return HistoryOutput{}, errors.New("refresh history is disabled (set HISTORY_DB_PATH)")
	}
	cycles, err := s.history.Recent(ctx, input.Limit)
	if err != nil {
		return HistoryOutput{}, err
	}
	if cycles == nil {
		cycles = []history.Entry{}
	}
	return HistoryOutput{Cycles: cycles, Total: len(cycles)}, nil
}
