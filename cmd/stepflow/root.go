package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/rendis/stepflow/internal/logging"
)

// app carries what every subcommand needs once flags and config are loaded.
type app struct {
	settings string
	getenv   func(string) string

	cfg    Config
	logger *slog.Logger
}

func newApp() *app {
	return &app{
		settings: settingsPath(),
		getenv:   os.Getenv,
		cfg:      defaultConfig(),
		logger:   logging.Discard(),
	}
}

func newRootCmd(a *app) *cobra.Command {
	var logLevel string

	cmd := &cobra.Command{
		Use:   "stepflow",
		Short: "Stepflow - workflow language interpreter",
		Long: `Stepflow interprets a small workflow language of numbered steps grouped
into named workflows, with variables, conditionals and step result references.

Programs can be run with a readable trace, checked, outlined as diagrams,
re-run on a cron schedule or served to agent hosts over MCP.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(a.settings, a.getenv)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if cmd.Flags().Changed("log-level") {
				cfg.LogLevel = logLevel
			}
			a.cfg = cfg

			handler := slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{
				Level: logging.ParseLevel(cfg.LogLevel),
			})
			a.logger = slog.New(logging.NewCorrelationHandler(handler))
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error")
	cmd.PersistentFlags().StringVar(&a.settings, "config", a.settings, "settings file")

	cmd.AddCommand(
		newRunCmd(a),
		newCheckCmd(a),
		newTokensCmd(),
		newDescribeCmd(),
		newCommandsCmd(),
		newWatchCmd(a),
		newMCPCmd(a),
		newVersionCmd(),
	)
	return cmd
}

// readSource reads a program file.
func readSource(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read program: %w", err)
	}
	return string(data), nil
}
