package daemonctl

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"syscall"
	"time"

	"ledmatrix/internal/config"
	"ledmatrix/internal/faults"
	"ledmatrix/internal/ipc"
	"ledmatrix/internal/lifecycle"
)

const pollInterval = 100 * time.Millisecond

// LaunchOptions controls daemon process launch behavior.
type LaunchOptions struct {
	SocketPath string
	ConfigPath string
}

type StartState string

const (
	StartStateStarted        StartState = "started"
	StartStateAlreadyRunning StartState = "already_running"
)

// StartResult captures daemon start orchestration state.
type StartResult struct {
	State    StartState
	Launched bool
}

// ErrDaemonNotRunning indicates daemon IPC is unavailable.
var ErrDaemonNotRunning = errors.New("daemon not running")

// StopResult captures daemon stop/termination outcome.
type StopResult struct {
	PID        int
	ForcedKill bool
}

// RestartResult captures stop/start outcomes for daemon restart.
type RestartResult struct {
	WasRunning bool
	Stop       StopResult
	Start      StartResult
}

// Launch runs "<executable> daemon", which detaches and returns once the
// background process has reported its startup result.
func Launch(ctx context.Context, executablePath string, opts LaunchOptions) error {
	if strings.TrimSpace(executablePath) == "" {
		return fmt.Errorf("resolve executable: executable path is empty")
	}
	if runtime.GOOS == "windows" {
		return faults.Wrap(faults.ErrPlatform, "launch daemon", "start the "+lifecycle.ServiceName+" service through the service manager", nil)
	}

	args := []string{"daemon"}
	if socket := strings.TrimSpace(opts.SocketPath); socket != "" {
		args = append(args, "--socket", socket)
	}
	if cfg := strings.TrimSpace(opts.ConfigPath); cfg != "" {
		// The daemon changes its working directory to /.
		if abs, err := filepath.Abs(cfg); err == nil {
			cfg = abs
		}
		args = append(args, "--config", cfg)
	}

	out, err := exec.CommandContext(ctx, executablePath, args...).CombinedOutput()
	if err != nil {
		if msg := strings.TrimSpace(string(out)); msg != "" {
			return fmt.Errorf("launch daemon: %s", msg)
		}
		return fmt.Errorf("launch daemon: %w", err)
	}
	return nil
}

// WaitForClient polls until the daemon answers on socketPath.
func WaitForClient(ctx context.Context, socketPath string, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	var lastErr error
	for time.Now().Before(deadline) {
		ok, err := ipc.Probe(ctx, socketPath, time.Second)
		if ok {
			return nil
		}
		lastErr = err
		if err := sleep(ctx, pollInterval); err != nil {
			return err
		}
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("timeout waiting for daemon")
	}
	return fmt.Errorf("daemon failed to start: %w", lastErr)
}

// EnsureStarted launches the daemon unless one already answers.
func EnsureStarted(ctx context.Context, socketPath, executablePath string, opts LaunchOptions, waitTimeout time.Duration) (StartResult, error) {
	ok, err := ipc.Probe(ctx, socketPath, time.Second)
	if err != nil {
		return StartResult{}, err
	}
	if ok {
		return StartResult{State: StartStateAlreadyRunning}, nil
	}

	if err := Launch(ctx, executablePath, opts); err != nil {
		return StartResult{}, err
	}
	if err := WaitForClient(ctx, socketPath, waitTimeout); err != nil {
		return StartResult{}, err
	}
	return StartResult{State: StartStateStarted, Launched: true}, nil
}

// WaitForShutdown waits for the daemon to stop answering.
func WaitForShutdown(ctx context.Context, socketPath string, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		ok, err := ipc.Probe(ctx, socketPath, time.Second)
		if err == nil && !ok {
			return nil
		}
		if err := sleep(ctx, pollInterval); err != nil {
			return err
		}
	}
	return fmt.Errorf("daemon did not stop within %s", timeout)
}

// StopAndTerminate sends SIGTERM to the daemon and kills it if it is still
// answering after gracePeriod.
func StopAndTerminate(ctx context.Context, socketPath string, cfg *config.Config, gracePeriod time.Duration) (StopResult, error) {
	status, err := ipc.Status(ctx, socketPath, time.Second)
	if err != nil {
		if ipc.IsUnavailable(err) {
			return StopResult{}, ErrDaemonNotRunning
		}
		return StopResult{}, err
	}

	pid := status.PID
	if pid <= 0 && cfg != nil {
		if fromFile, readErr := lifecycle.ReadPID(cfg.Paths.PIDFile); readErr == nil {
			pid = fromFile
		}
	}
	result := StopResult{PID: pid}
	if err := signalProcess(pid, syscall.SIGTERM); err != nil {
		return result, err
	}

	if WaitForShutdown(ctx, socketPath, gracePeriod) == nil {
		return result, nil
	}

	if err := signalProcess(pid, os.Kill); err != nil {
		return result, fmt.Errorf("failed to stop daemon process: %w", err)
	}
	if cfg != nil {
		_ = os.Remove(cfg.Paths.PIDFile)
		_ = os.Remove(cfg.LockPath())
	}
	if !config.IsAbstractSocket(socketPath) {
		_ = os.Remove(socketPath)
	}
	result.ForcedKill = true
	return result, nil
}

// Restart stops the daemon if running, then ensures it is started.
func Restart(ctx context.Context, socketPath string, cfg *config.Config, executablePath string, opts LaunchOptions, stopGracePeriod, startWaitTimeout time.Duration) (RestartResult, error) {
	stopResult, stopErr := StopAndTerminate(ctx, socketPath, cfg, stopGracePeriod)
	if stopErr != nil && !errors.Is(stopErr, ErrDaemonNotRunning) {
		return RestartResult{}, stopErr
	}

	startResult, err := EnsureStarted(ctx, socketPath, executablePath, opts, startWaitTimeout)
	if err != nil {
		return RestartResult{}, err
	}

	return RestartResult{
		WasRunning: stopErr == nil,
		Stop:       stopResult,
		Start:      startResult,
	}, nil
}

func signalProcess(pid int, sig os.Signal) error {
	if pid <= 0 {
		return fmt.Errorf("unable to determine daemon pid")
	}
	if pid == os.Getpid() {
		return fmt.Errorf("refusing to signal current process (pid %d)", pid)
	}
	proc, err := os.FindProcess(pid)
	if err != nil {
		return fmt.Errorf("locate daemon process %d: %w", pid, err)
	}
	if err := proc.Signal(sig); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return fmt.Errorf("signal daemon process %d: %w", pid, err)
	}
	return nil
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
