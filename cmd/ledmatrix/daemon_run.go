package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"ledmatrix/internal/daemonrun"
)

func newDaemonRunCommand(ctx *commandContext) *cobra.Command {
	var foreground bool
	var logLevel string

	cmd := &cobra.Command{
		Use:    "daemon",
		Short:  "Run the ledmatrixd daemon",
		Hidden: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			return daemonrun.Run(cmd.Context(), cfg, daemonrun.Options{
				LogLevel:   logLevel,
				Foreground: foreground,
				Args:       stageArgs(ctx, logLevel),
			})
		},
	}
	cmd.Flags().BoolVar(&foreground, "foreground", false, "Stay attached to the terminal and log to stderr")
	cmd.Flags().StringVar(&logLevel, "log-level", "", "Override the configured log level")
	return cmd
}

// stageArgs rebuilds the command line for the detached stages. The service
// stage runs from /, so the config path is made absolute.
func stageArgs(ctx *commandContext, logLevel string) []string {
	args := []string{"daemon"}
	if path := ctx.resolvedConfigPath(); path != "" {
		if abs, err := filepath.Abs(path); err == nil {
			path = abs
		}
		args = append(args, "--config", path)
	}
	if socket := ctx.flagSocket(); socket != "" {
		args = append(args, "--socket", socket)
	}
	if logLevel != "" {
		args = append(args, "--log-level", logLevel)
	}
	return args
}
