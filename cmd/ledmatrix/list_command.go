package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"ledmatrix/internal/config"
	"ledmatrix/internal/usbport"
)

func newListCommand(ctx *commandContext) *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List serial ports and mark LED matrix modules",
		RunE: func(cmd *cobra.Command, args []string) error {
			stdout := cmd.OutOrStdout()
			ports, err := usbport.List()
			if errors.Is(err, usbport.ErrUnsupported) {
				fmt.Fprintln(stdout, "Port discovery is not supported on this platform")
				return nil
			}
			if err != nil {
				return fmt.Errorf("list serial ports: %w", err)
			}
			if !all {
				ports = usbport.Matrices(ports)
			}
			if len(ports) == 0 {
				fmt.Fprintln(stdout, "No LED matrix modules found")
				return nil
			}
			fmt.Fprint(stdout, renderTable(
				[]string{"Port", "USB ID", "Matrix", "Configured"},
				portRows(ports, ctx.configValue()),
				nil,
			))
			fmt.Fprintln(stdout)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&all, "all", "a", false, "Include serial ports that are not LED matrices")
	return cmd
}

func portRows(ports []usbport.Port, cfg *config.Config) [][]string {
	rows := make([][]string, 0, len(ports))
	for _, p := range ports {
		rows = append(rows, []string{p.Path, p.ID.String(), yesNo(p.ID.IsMatrix()), configuredAs(p.Path, cfg)})
	}
	return rows
}

func configuredAs(port string, cfg *config.Config) string {
	if cfg == nil {
		return ""
	}
	switch {
	case cfg.LeftMatrix != nil && cfg.LeftMatrix.Port == port:
		return "left"
	case cfg.RightMatrix != nil && cfg.RightMatrix.Port == port:
		return "right"
	}
	return ""
}
