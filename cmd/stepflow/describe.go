package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/rendis/stepflow/pkg/schema"
	"github.com/rendis/stepflow/pkg/stepflow"
)

func newDescribeCmd() *cobra.Command {
	var mermaid, ascii, withStatus bool
	var pngPath string

	cmd := &cobra.Command{
		Use:   "describe FILE",
		Short: "Outline a workflow program as steps or a diagram",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			source, err := readSource(args[0])
			if err != nil {
				return err
			}

			if pngPath != "" {
				var results map[uint32]schema.StepResult
				if withStatus {
					rep, runErr := stepflow.Run(cmd.Context(), source)
					if rep == nil {
						return runErr
					}
					results = rep.Results
				}
				png, err := stepflow.DescribeImage(source, results)
				if err != nil {
					return err
				}
				if err := os.WriteFile(pngPath, png, 0o644); err != nil {
					return fmt.Errorf("write image: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Diagram written to %s\n", pngPath)
				return nil
			}

			format := stepflow.FormatSteps
			switch {
			case mermaid && ascii:
				return errors.New("--mermaid and --ascii are mutually exclusive")
			case mermaid:
				format = stepflow.FormatMermaid
			case ascii:
				format = stepflow.FormatASCII
			}
			text, err := stepflow.Describe(source, format)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), text)
			return nil
		},
	}

	cmd.Flags().BoolVar(&mermaid, "mermaid", false, "Print a Mermaid flowchart")
	cmd.Flags().BoolVar(&ascii, "ascii", false, "Print an ASCII diagram")
	cmd.Flags().StringVar(&pngPath, "png", "", "Write a PNG flowchart to this file")
	cmd.Flags().BoolVar(&withStatus, "status", false, "Run the program first and color the PNG by step outcome")
	return cmd
}
