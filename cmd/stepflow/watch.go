package main

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/rendis/stepflow/internal/scheduler"
	"github.com/rendis/stepflow/pkg/stepflow"
)

const stopTimeout = 10 * time.Second

func newWatchCmd(a *app) *cobra.Command {
	var spec string

	cmd := &cobra.Command{
		Use:   "watch FILE",
		Short: "Re-run a workflow program on a cron schedule",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if spec == "" {
				spec = a.cfg.Schedule
			}
			source, err := readSource(args[0])
			if err != nil {
				return err
			}
			reg, err := stepflow.Registry()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			sched := scheduler.New(reg,
				scheduler.WithLogger(a.logger),
				scheduler.WithReport(func(rep scheduler.RunReport) { printReport(out, rep) }),
			)
			name := filepath.Base(args[0])
			if err := sched.Add(name, spec, source); err != nil {
				return err
			}

			ctx := cmd.Context()
			if _, err := sched.RunNow(ctx, name); err != nil {
				return err
			}
			if err := sched.Start(ctx); err != nil {
				return err
			}
			fmt.Fprintf(out, "watching %s (%s), next run %s\n",
				name, spec, sched.Jobs()[0].NextRunAt.Format(time.RFC3339))

			<-ctx.Done()

			stopCtx, cancel := context.WithTimeout(context.Background(), stopTimeout)
			defer cancel()
			return sched.Stop(stopCtx)
		},
	}

	cmd.Flags().StringVar(&spec, "schedule", "", `Cron spec, e.g. "*/5 * * * *" or "@every 30s" (default from config)`)
	return cmd
}

// printReport writes a one-line summary of a scheduled run.
func printReport(w io.Writer, rep scheduler.RunReport) {
	if rep.Err != nil {
		fmt.Fprintf(w, "%s %s run %s failed after %s: %v\n",
			rep.StartedAt.Format(time.RFC3339), rep.Job, rep.RunID, rep.Duration.Round(time.Millisecond), rep.Err)
		return
	}
	fmt.Fprintf(w, "%s %s run %s completed in %s: %d step result(s)\n",
		rep.StartedAt.Format(time.RFC3339), rep.Job, rep.RunID, rep.Duration.Round(time.Millisecond), len(rep.Results))
}
