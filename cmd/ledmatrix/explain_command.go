package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"ledmatrix/internal/faults"
)

func newExplainCommand() *cobra.Command {
	var code string

	cmd := &cobra.Command{
		Use:         "explain",
		Short:       "Decode a ledmatrixd service exit code",
		Long:        "Decode the service-specific exit code reported by the Windows service manager.\nThe code may be decimal or 0x-prefixed hex.",
		Example:     "  ledmatrix explain --code 0xDEAD0002",
		Args:        cobra.NoArgs,
		Annotations: skipConfigLoad,
		RunE: func(cmd *cobra.Command, args []string) error {
			value, err := parseUint32(code)
			if err != nil {
				return err
			}
			kind, description, ok := faults.Explain(value)
			if !ok {
				return fmt.Errorf("unknown exit code %#x", value)
			}
			if kind == "" {
				kind = "none"
			}
			stdout := cmd.OutOrStdout()
			colorize := shouldColorize(stdout)
			status := statusError
			if value == 0 {
				status = statusOK
			}
			fmt.Fprintln(stdout, renderStatusLine("Code", statusInfo, fmt.Sprintf("%#x (%d)", value, value), colorize))
			fmt.Fprintln(stdout, renderStatusLine("Kind", status, kind, colorize))
			fmt.Fprintln(stdout, renderStatusLine("Meaning", statusInfo, description, colorize))
			return nil
		},
	}
	cmd.Flags().StringVar(&code, "code", "", "Exit code to decode")
	_ = cmd.MarkFlagRequired("code")
	return cmd
}
