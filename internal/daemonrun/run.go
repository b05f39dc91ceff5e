package daemonrun

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"ledmatrix/internal/config"
	"ledmatrix/internal/daemon"
	"ledmatrix/internal/ipc"
	"ledmatrix/internal/lifecycle"
	"ledmatrix/internal/logging"
	"ledmatrix/internal/matrix"
)

// Options configures daemon process runtime behavior.
type Options struct {
	LogLevel   string
	Foreground bool
	// Args are passed to the re-executed background stages.
	Args []string
	// Opener replaces the serial transport; nil opens real ports.
	Opener matrix.Opener
	// Ready receives the startup outcome: nil once the IPC socket is
	// listening, or the error that stopped startup.
	Ready func(error)
}

// Run detaches through the platform bootstrapper and serves until signalled.
func Run(ctx context.Context, cfg *config.Config, opts Options) error {
	if cfg == nil {
		return fmt.Errorf("config is required")
	}
	if err := cfg.RequireMatrices(); err != nil {
		return err
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return err
	}

	boot := lifecycle.New(lifecycle.Options{
		PIDFile:    cfg.Paths.PIDFile,
		Foreground: opts.Foreground,
		Args:       opts.Args,
	})
	return boot.Run(ctx, func(ctx context.Context, ready func(error)) error {
		opts.Ready = ready
		return Serve(ctx, cfg, opts)
	})
}

// Serve runs the daemon in the current process until ctx is cancelled or the
// process receives SIGINT or SIGTERM.
func Serve(ctx context.Context, cfg *config.Config, opts Options) error {
	signalCtx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	ready := opts.Ready
	if ready == nil {
		ready = func(error) {}
	}
	fail := func(err error) error {
		ready(err)
		return err
	}

	if opts.LogLevel != "" {
		cfg.Logging.Level = opts.LogLevel
	}
	runID := time.Now().UTC().Format("20060102T150405.000Z")
	logPath := filepath.Join(cfg.Paths.LogDir, fmt.Sprintf("ledmatrixd-%s.log", runID))
	logger, closer, err := logging.NewFromConfig(cfg, logPath, opts.Foreground)
	if err != nil {
		return fail(fmt.Errorf("init logger: %w", err))
	}
	defer closer.Close()

	if err := logging.UpdatePointer(cfg.Paths.LogDir, "ledmatrixd.log", logPath); err != nil {
		logger.Warn("unable to update ledmatrixd.log link", logging.Error(err))
	}
	logging.CleanupOldLogs(logger, cfg.Logging.RetentionDays,
		logging.RetentionTarget{Dir: cfg.Paths.LogDir, Pattern: "ledmatrixd-*.log", Exclude: []string{logPath}},
	)

	d, err := daemon.New(cfg, opts.Opener, logger, daemon.WithLogPath(logPath))
	if err != nil {
		return fail(fmt.Errorf("create daemon: %w", err))
	}
	if err := d.Start(signalCtx); err != nil {
		logging.ErrorWithContext(logger, "daemon start failed", "daemon_start_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "stop the other ledmatrixd instance or remove a stale lock"),
		)
		return fail(err)
	}
	defer d.Close()

	server, err := ipc.NewServer(signalCtx, cfg.Paths.Socket, d, logger, ipc.WithReadTimeout(cfg.ReadTimeout()))
	if err != nil {
		return fail(fmt.Errorf("start IPC server: %w", err))
	}
	defer server.Close()
	server.Serve()
	ready(nil)

	logger.Info("ledmatrixd ready",
		logging.String(logging.FieldEventType, "daemon_ready"),
		logging.String("socket", server.Path()),
		logging.String("log", logPath),
		logging.Duration("read_timeout", cfg.ReadTimeout()),
	)

	<-signalCtx.Done()
	logger.Info("ledmatrixd shutting down", logging.String(logging.FieldEventType, "daemon_shutdown"))
	return nil
}
