package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rendis/stepflow/pkg/stepflow"
)

func newCheckCmd(a *app) *cobra.Command {
	var strict bool

	cmd := &cobra.Command{
		Use:   "check FILE",
		Short: "Validate a workflow program without running it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			source, err := readSource(args[0])
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("strict") {
				strict = a.cfg.Strict
			}

			res := stepflow.Check(source, strict)
			out := cmd.OutOrStdout()
			for _, issue := range res.Errors {
				fmt.Fprintln(out, issue.String())
			}
			for _, issue := range res.Warnings {
				fmt.Fprintln(out, issue.String())
			}
			if err := res.ToError(); err != nil {
				return err
			}
			fmt.Fprintf(out, "%s: ok (%d warning(s))\n", args[0], len(res.Warnings))
			return nil
		},
	}

	cmd.Flags().BoolVar(&strict, "strict", false, "Treat lint warnings as errors")
	return cmd
}
