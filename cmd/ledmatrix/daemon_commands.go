package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"ledmatrix/internal/animator"
	"ledmatrix/internal/config"
	"ledmatrix/internal/daemonctl"
	"ledmatrix/internal/ipc"
)

const (
	stopGracePeriod  = 5 * time.Second
	startWaitTimeout = 10 * time.Second
)

func newDaemonCommands(ctx *commandContext) []*cobra.Command {
	startCmd := &cobra.Command{
		Use:   "start",
		Short: "Start the ledmatrixd daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			stdout := cmd.OutOrStdout()
			exe, err := daemonExecutable()
			if err != nil {
				return err
			}

			result, err := daemonctl.EnsureStarted(cmd.Context(), ctx.socketPath(), exe, daemonLaunchOptions(ctx), startWaitTimeout)
			if err != nil {
				return err
			}
			if result.Launched {
				fmt.Fprintln(stdout, "Daemon not running, launching...")
			}
			switch result.State {
			case daemonctl.StartStateStarted:
				fmt.Fprintln(stdout, "Daemon started")
			case daemonctl.StartStateAlreadyRunning:
				fmt.Fprintln(stdout, "Daemon already running")
			}
			return nil
		},
	}

	stopCmd := &cobra.Command{
		Use:   "stop",
		Short: "Stop the ledmatrixd daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			stdout := cmd.OutOrStdout()
			result, err := daemonctl.StopAndTerminate(cmd.Context(), ctx.socketPath(), ctx.configValue(), stopGracePeriod)
			if errors.Is(err, daemonctl.ErrDaemonNotRunning) {
				fmt.Fprintln(stdout, "Daemon is not running")
				return nil
			}
			if err != nil {
				return err
			}
			if result.ForcedKill {
				fmt.Fprintf(stdout, "Daemon did not exit in time; killed pid %d\n", result.PID)
			}
			fmt.Fprintln(stdout, "Daemon stopped")
			return nil
		},
	}

	restartCmd := &cobra.Command{
		Use:   "restart",
		Short: "Restart the ledmatrixd daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			stdout := cmd.OutOrStdout()
			exe, err := daemonExecutable()
			if err != nil {
				return err
			}

			result, err := daemonctl.Restart(
				cmd.Context(),
				ctx.socketPath(),
				ctx.configValue(),
				exe,
				daemonLaunchOptions(ctx),
				stopGracePeriod,
				startWaitTimeout,
			)
			if err != nil {
				return err
			}
			if result.WasRunning {
				if result.Stop.ForcedKill {
					fmt.Fprintf(stdout, "Daemon did not exit in time; killed pid %d\n", result.Stop.PID)
				}
				fmt.Fprintln(stdout, "Daemon stopped")
			}
			fmt.Fprintln(stdout, "Daemon restarted")
			return nil
		},
	}

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show daemon and matrix status",
		RunE: func(cmd *cobra.Command, args []string) error {
			socket := ctx.socketPath()
			status, err := ipc.Status(cmd.Context(), socket, time.Second)
			if err != nil && !ipc.IsUnavailable(err) {
				return err
			}
			stdout := cmd.OutOrStdout()
			writeStatus(stdout, socket, status, ctx.configValue(), shouldColorize(stdout))
			return nil
		},
	}

	return []*cobra.Command{startCmd, stopCmd, restartCmd, statusCmd}
}

// writeStatus prints the daemon section and the matrix table. A nil status
// means the daemon is not reachable; the table then comes from cfg.
func writeStatus(w io.Writer, socket string, status *ipc.DaemonStatus, cfg *config.Config, colorize bool) {
	for _, line := range renderSectionHeader("Daemon", colorize) {
		fmt.Fprintln(w, line)
	}
	if status != nil {
		uptime := time.Since(status.StartedAt).Round(time.Second)
		fmt.Fprintln(w, renderStatusLine("Ledmatrixd", statusOK, fmt.Sprintf("Running (pid %d, up %s)", status.PID, uptime), colorize))
	} else {
		fmt.Fprintln(w, renderStatusLine("Ledmatrixd", statusWarn, "Not running (start it with `ledmatrix start`)", colorize))
	}
	fmt.Fprintln(w, renderStatusLine("Socket", statusInfo, socket, colorize))
	if status != nil && status.LogPath != "" {
		fmt.Fprintln(w, renderStatusLine("Log", statusInfo, status.LogPath, colorize))
	}
	if status != nil {
		fmt.Fprintln(w, renderStatusLine("Pair", sideStateKind(status.Pair), status.Pair, colorize))
	}
	fmt.Fprintln(w)

	for _, line := range renderSectionHeader("Matrices", colorize) {
		fmt.Fprintln(w, line)
	}
	rows := make([][]string, 0, 2)
	for _, side := range []animator.Target{animator.Left, animator.Right} {
		rows = append(rows, statusRow(side, status, cfg))
	}
	fmt.Fprint(w, renderTable(
		[]string{"Side", "State", "Port", "Baud", "Sleeping"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignLeft},
	))
	fmt.Fprintln(w)
}

func statusRow(side animator.Target, status *ipc.DaemonStatus, cfg *config.Config) []string {
	var st ipc.SideStatus
	switch {
	case status != nil && side == animator.Left:
		st = status.Left
	case status != nil:
		st = status.Right
	default:
		st = offlineStatus(side, cfg)
	}
	if st.Port == "" {
		return []string{sideLabel(side), st.State}
	}
	return []string{sideLabel(side), st.State, st.Port, strconv.Itoa(st.BaudRate), yesNo(st.Sleeping)}
}

func offlineStatus(side animator.Target, cfg *config.Config) ipc.SideStatus {
	var m *config.Matrix
	if cfg != nil {
		m = cfg.LeftMatrix
		if side == animator.Right {
			m = cfg.RightMatrix
		}
	}
	if m == nil {
		return ipc.SideStatus{State: "unconfigured"}
	}
	return ipc.SideStatus{State: "offline", Port: m.Port, BaudRate: m.BaudRate, Sleeping: m.Sleeping}
}

func daemonExecutable() (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("resolve executable: %w", err)
	}
	return exe, nil
}

func daemonLaunchOptions(ctx *commandContext) daemonctl.LaunchOptions {
	return daemonctl.LaunchOptions{
		SocketPath: ctx.flagSocket(),
		ConfigPath: strings.TrimSpace(ctx.configPath()),
	}
}
