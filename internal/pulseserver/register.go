// Package pulseserver exposes the channel analytics snapshot as MCP tools:
// channel_snapshot, channel_configure, refresh_status, refresh_history.
package pulseserver

import (
	"context"

	"github.com/anatolykoptev/go_ytpulse/internal/engine"
	"github.com/anatolykoptev/go_ytpulse/internal/engine/history"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// historyReader is the read side of the refresh journal.
type historyReader interface {
	Recent(ctx context.Context, limit int) ([]history.Entry, error)
}

// Service backs the tools with the running refresh loop.
type Service struct {
	monitor *engine.Monitor
	loop    *engine.RefreshLoop
	history historyReader // nil = journal disabled
}

// NewService creates the tool backend. journal may be nil.
func NewService(monitor *engine.Monitor, loop *engine.RefreshLoop, journal *history.Journal) *Service {
	s := &Service{monitor: monitor, loop: loop}
	if journal != nil {
		s.history = journal
	}
	return s
}

// RegisterTools registers all analytics tools on the given MCP server.
func RegisterTools(server *mcp.Server, s *Service) {
	registerChannelSnapshot(server, s)
	registerChannelConfigure(server, s)
	registerRefreshStatus(server, s)
	registerRefreshHistory(server, s)
}
