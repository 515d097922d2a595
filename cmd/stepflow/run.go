package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/rendis/stepflow/internal/streaming"
	"github.com/rendis/stepflow/pkg/schema"
	"github.com/rendis/stepflow/pkg/stepflow"
)

const followBuffer = 1024

func newRunCmd(a *app) *cobra.Command {
	var follow bool
	var format string

	cmd := &cobra.Command{
		Use:   "run FILE",
		Short: "Execute a workflow program and print its trace",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if format == "" {
				format = a.cfg.TraceFormat
			}
			if format != "text" && format != "json" {
				return fmt.Errorf("unknown format %q (want text or json)", format)
			}
			source, err := readSource(args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			opts := []stepflow.RunOption{stepflow.WithLogger(a.logger)}

			wait := func() {}
			if follow {
				hub := streaming.NewMemoryHub(streaming.WithBuffer(followBuffer))
				runID := uuid.New().String()
				events, unsubscribe, err := hub.Subscribe(cmd.Context(), streaming.EventFilter{RunID: runID})
				if err != nil {
					return err
				}
				done := make(chan struct{})
				go func() {
					defer close(done)
					for ev := range events {
						printEvent(out, ev, format)
					}
				}()
				wait = func() {
					unsubscribe()
					<-done
					if n := hub.Dropped(); n > 0 {
						a.logger.Warn("trace events dropped while following", slog.Uint64("dropped", n))
					}
				}
				opts = append(opts, stepflow.WithRunID(runID), stepflow.WithSink(hub))
			}

			rep, runErr := stepflow.Run(cmd.Context(), source, opts...)
			wait()
			if rep == nil {
				return runErr
			}

			switch {
			case format == "json" && !follow:
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				if err := enc.Encode(rep); err != nil {
					return err
				}
			case format == "text":
				if !follow {
					for _, line := range rep.Lines() {
						fmt.Fprintln(out, line)
					}
				}
				printResults(out, rep)
			}
			return runErr
		},
	}

	cmd.Flags().BoolVar(&follow, "follow", false, "Print trace events as they happen")
	cmd.Flags().StringVar(&format, "format", "", "Output format: text or json (default from config)")
	return cmd
}

// printEvent writes one streamed event: its trace line for text, one JSON
// object per line for json.
func printEvent(w io.Writer, ev schema.TraceEvent, format string) {
	if format == "json" {
		data, err := json.Marshal(ev)
		if err == nil {
			fmt.Fprintln(w, string(data))
		}
		return
	}
	fmt.Fprintln(w, ev.String())
}

// printResults writes the step-result table, one step per line.
func printResults(w io.Writer, rep *stepflow.Report) {
	if len(rep.Results) == 0 {
		return
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Results:")
	for _, id := range rep.StepIDs() {
		r := rep.Results[id]
		fmt.Fprintf(w, "  step %d: status=%d success=%t data=%q\n", id, r.Status, r.Success, r.Data)
	}
}
