package main

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/rendis/stepflow/internal/streaming"
	"github.com/rendis/stepflow/pkg/mcp"
)

func newMCPCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve the stepflow tools over MCP on stdio",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			// Trace events of tool runs are mirrored to the debug log.
			hub := streaming.NewMemoryHub()
			events, unsubscribe, err := hub.Subscribe(ctx, streaming.EventFilter{})
			if err != nil {
				return err
			}
			defer unsubscribe()
			go func() {
				for ev := range events {
					a.logger.DebugContext(ctx, "trace",
						slog.String("run_id", ev.RunID),
						slog.String("kind", string(ev.Kind)),
						slog.String("line", ev.Text),
					)
				}
			}()

			srv := mcp.NewStepflowServer(mcp.ServerDeps{
				Hub:     hub,
				Logger:  a.logger,
				Version: version,
			})
			a.logger.Info("mcp server listening on stdio")
			return srv.Serve(ctx)
		},
	}
}
