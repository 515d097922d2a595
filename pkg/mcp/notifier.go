package mcp

import (
	"context"
	"log/slog"

	"github.com/mark3labs/mcp-go/server"

	"github.com/rendis/stepflow/pkg/schema"
	"github.com/rendis/stepflow/pkg/stepflow"
)

// clientNotifier pushes each trace event to the client that called the tool
// as a "notifications/message" log entry.
// Best-effort: clients without an initialized session get nothing.
type clientNotifier struct {
	mcpServer *server.MCPServer
}

func (n clientNotifier) Emit(ctx context.Context, event schema.TraceEvent) {
	_ = n.mcpServer.SendNotificationToClient(ctx, "notifications/message", map[string]any{
		"level":  "info",
		"logger": "stepflow",
		"data": map[string]any{
			"run_id": event.RunID,
			"kind":   string(event.Kind),
			"seq":    event.Seq,
			"line":   event.String(),
		},
	})
}

// runSink fans trace events out to the calling client and the hub, if any.
func (s *StepflowServer) runSink() stepflow.Sink {
	notify := clientNotifier{mcpServer: s.mcpServer}
	if s.hub == nil {
		return notify
	}
	hub := s.hub
	return stepflow.SinkFunc(func(ctx context.Context, event schema.TraceEvent) {
		notify.Emit(ctx, event)
		if err := hub.Publish(ctx, event); err != nil {
			s.logger.Debug("publish trace event failed", slog.String("error", err.Error()))
		}
	})
}
