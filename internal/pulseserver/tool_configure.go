package pulseserver

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// ConfigureInput is the input for channel_configure.
type ConfigureInput struct {
	ChannelID      string `json:"channel_id" jsonschema:"YouTube channel ID (UC + 22 characters)"`
	RefreshSeconds int    `json:"refresh_seconds" jsonschema:"Refresh interval in seconds, 30-300"`
}

// ConfigureOutput is the output for channel_configure.
type ConfigureOutput struct {
	ChannelID      string `json:"channel_id"`
	RefreshSeconds int    `json:"refresh_seconds"`
	Message        string `json:"message"`
}

func registerChannelConfigure(server *mcp.Server, s *Service) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "channel_configure",
		Description: "Change the tracked YouTube channel and/or the refresh interval (30-300 seconds). Also restarts a refresh loop that halted after a failed cycle.",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, input ConfigureInput) (*mcp.CallToolResult, *ConfigureOutput, error) {
		out, err := s.Configure(ctx, input)
		if err != nil {
			return nil, nil, err
		}
		return nil, out, nil
	})
}

// Configure applies new settings. Empty fields keep their current value.
func (s *Service) Configure(_ context.Context, input ConfigureInput) (*ConfigureOutput, error) {
	channelID, policy := s.monitor.Settings()
	if input.ChannelID != "" {
		channelID = input.ChannelID
	}
	seconds := int(policy.Interval.Seconds())
	if input.RefreshSeconds != 0 {
		seconds = input.RefreshSeconds
	}
	if err := s.loop.Reconfigure(channelID, seconds); err != nil {
		return nil, err
	}
	return &ConfigureOutput{
		ChannelID:      channelID,
		RefreshSeconds: seconds,
		Message:        fmt.Sprintf("tracking %s, refresh every %ds", channelID, seconds),
	}, nil
}
