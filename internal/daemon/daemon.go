package daemon

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"

	"ledmatrix/internal/animator"
	"ledmatrix/internal/config"
	"ledmatrix/internal/faults"
	"ledmatrix/internal/ipc"
	"ledmatrix/internal/logging"
	"ledmatrix/internal/matrix"
)

// Daemon coordinates the matrices and enforces single-instance execution.
type Daemon struct {
	cfg     *config.Config
	logger  *slog.Logger
	orch    *animator.Orchestrator
	logPath string

	lockPath string
	lock     *flock.Flock

	startedAt time.Time
	monitor   *hotplugMonitor

	running atomic.Bool
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// Option customizes a Daemon.
type Option func(*Daemon)

// WithLogPath records the active log file for status replies.
func WithLogPath(path string) Option {
	return func(d *Daemon) {
		d.logPath = path
	}
}

// New builds the matrix handles from cfg and wires them into an orchestrator.
// A nil opener talks to real serial ports.
func New(cfg *config.Config, opener matrix.Opener, logger *slog.Logger, opts ...Option) (*Daemon, error) {
	if cfg == nil {
		return nil, errors.New("daemon requires a config")
	}
	if err := cfg.RequireMatrices(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	if opener == nil {
		opener = matrix.SerialOpener{ReadTimeout: cfg.IOTimeout(), Verify: cfg.Daemon.VerifyPorts}
	}

	left := newMatrix(cfg.LeftMatrix, opener)
	right := newMatrix(cfg.RightMatrix, opener)

	lockPath := cfg.LockPath()
	d := &Daemon{
		cfg:      cfg,
		logger:   logging.NewComponentLogger(logger, "daemon"),
		orch:     animator.New(left, right, logger),
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

func newMatrix(mc *config.Matrix, opener matrix.Opener) *matrix.Matrix {
	if mc == nil {
		return nil
	}
	return matrix.New(mc.Port, mc.BaudRate, mc.Sleeping, opener)
}

// Start acquires the daemon lock and launches keepalive and hotplug
// monitoring.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	if err := os.MkdirAll(filepath.Dir(d.lockPath), 0o755); err != nil {
		return faults.Wrap(faults.ErrPlatform, "acquire lock", "create state directory", err)
	}
	ok, err := d.lock.TryLock()
	if err != nil {
		return faults.Wrap(faults.ErrPlatform, "acquire lock", d.lockPath, err)
	}
	if !ok {
		return faults.Wrap(faults.ErrPlatform, "acquire lock", "another ledmatrixd instance is already running", nil)
	}

	d.ctx, d.cancel = context.WithCancel(ctx)
	d.startedAt = time.Now()

	if interval := d.cfg.KeepaliveInterval(); interval > 0 {
		d.wg.Add(1)
		go func() {
			defer d.wg.Done()
			d.runKeepalive(d.ctx, interval)
		}()
	}

	if d.cfg.Daemon.Hotplug {
		d.monitor = newHotplugMonitor(d.watchedPorts(), d.handleHotplug, d.logger)
		if err := d.monitor.Start(d.ctx); err != nil {
			d.logger.Warn("hotplug monitor unavailable", logging.Error(err))
		}
	}

	d.running.Store(true)
	status := d.Status()
	d.logger.Info("ledmatrix daemon started",
		logging.String(logging.FieldEventType, "daemon_started"),
		logging.String("lock", d.lockPath),
		logging.Duration("keepalive_interval", d.cfg.KeepaliveInterval()),
		logging.String("left", status.Left.State),
		logging.String("right", status.Right.State),
	)
	return nil
}

// Stop cancels playback and background loops and releases the lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.monitor.Stop()
	d.wg.Wait()
	d.orch.Shutdown()
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.ctx = nil
	d.running.Store(false)
	d.logger.Info("ledmatrix daemon stopped", logging.String(logging.FieldEventType, "daemon_stopped"))
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	return d.lock.Close()
}

// Running reports whether Start succeeded and Stop has not run.
func (d *Daemon) Running() bool {
	return d.running.Load()
}

// Status snapshots the daemon and both sides.
func (d *Daemon) Status() *ipc.DaemonStatus {
	var status *ipc.DaemonStatus
	_ = d.orch.Do(func(s *animator.Session) error {
		status = d.snapshot(s)
		return nil
	})
	return status
}

func (d *Daemon) snapshot(s *animator.Session) *ipc.DaemonStatus {
	return &ipc.DaemonStatus{
		PID:       os.Getpid(),
		StartedAt: d.startedAt,
		Socket:    d.cfg.Paths.Socket,
		LogPath:   d.logPath,
		Left:      sideStatus(s, animator.Left),
		Right:     sideStatus(s, animator.Right),
		Pair:      s.State(animator.Pair).String(),
	}
}

func sideStatus(s *animator.Session, side animator.Target) ipc.SideStatus {
	st := ipc.SideStatus{State: s.State(side).String()}
	if m := s.Matrix(side); m != nil {
		st.Port = m.Port
		st.BaudRate = m.BaudRate
		st.Sleeping = m.Sleeping
	}
	return st
}

// watchedPorts maps each configured port, and the device node it resolves
// to, onto its side.
func (d *Daemon) watchedPorts() map[string]animator.Target {
	ports := make(map[string]animator.Target)
	add := func(mc *config.Matrix, side animator.Target) {
		if mc == nil {
			return
		}
		ports[mc.Port] = side
		if resolved, err := filepath.EvalSymlinks(mc.Port); err == nil {
			ports[resolved] = side
		}
	}
	add(d.cfg.LeftMatrix, animator.Left)
	add(d.cfg.RightMatrix, animator.Right)
	return ports
}

// handleHotplug reacts to a configured port appearing or disappearing. A
// freshly attached module has just booted, so it is awake.
func (d *Daemon) handleHotplug(action string, side animator.Target, device string) {
	logger := d.logger.With(logging.Side(side.String()), logging.String(logging.FieldPort, device))
	switch action {
	case "add":
		_ = d.orch.Do(func(s *animator.Session) error {
			if m := s.Matrix(side); m != nil {
				m.Sleeping = false
			}
			return nil
		})
		logger.Info("matrix attached", logging.String(logging.FieldEventType, "matrix_attached"))
	case "remove":
		logging.WarnWithContext(logger, "matrix detached", "matrix_detached",
			logging.String(logging.FieldImpact, "commands for this side fail until it is reattached"),
			logging.String(logging.FieldErrorHint, "reconnect the module"))
	default:
		logger.Debug("ignoring hotplug action", logging.String("action", action))
	}
}
