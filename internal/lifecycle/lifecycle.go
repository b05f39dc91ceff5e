package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"

	"ledmatrix/internal/faults"
)

// ServiceName identifies the daemon to service managers.
const ServiceName = "ledmatrixd"

// Service is the daemon body. It calls ready once startup has finished, with
// nil when the daemon is serving or with the error that stopped it. It returns
// when ctx is cancelled or the daemon fails.
type Service func(ctx context.Context, ready func(error)) error

// Options configures a Bootstrapper.
type Options struct {
	// PIDFile is created exclusively before the body runs and removed after.
	// Empty disables it.
	PIDFile string
	// Foreground runs the body in the calling process.
	Foreground bool
	// Args are the arguments the background stages are re-executed with.
	// Nil reuses os.Args[1:].
	Args []string
}

// Bootstrapper moves the process into the background, reports
// initialization failures to the original caller, then runs the body.
type Bootstrapper interface {
	Run(ctx context.Context, body Service) error
}

// ErrAlreadyRunning marks a PID file that already exists.
var ErrAlreadyRunning = errors.New("pid file exists")

// createPIDFile atomically creates path holding the current pid.
func createPIDFile(path string) error {
	if path == "" {
		return nil
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return faults.Wrap(faults.ErrPlatform, "create pid file",
				fmt.Sprintf("%s exists; another ledmatrixd instance may be running", path),
				ErrAlreadyRunning)
		}
		return faults.Wrap(faults.ErrPlatform, "create pid file", path, err)
	}
	_, werr := f.WriteString(strconv.Itoa(os.Getpid()) + "\n")
	cerr := f.Close()
	if err := errors.Join(werr, cerr); err != nil {
		_ = os.Remove(path)
		return faults.Wrap(faults.ErrPlatform, "write pid file", path, err)
	}
	return nil
}

func removePIDFile(path string) {
	if path != "" {
		_ = os.Remove(path)
	}
}

// ReadPID returns the pid stored in path.
func ReadPID(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || pid <= 0 {
		return 0, fmt.Errorf("pid file %s: invalid contents %q", path, strings.TrimSpace(string(data)))
	}
	return pid, nil
}

// runService runs body in the current process guarded by the PID file.
// notify receives the startup outcome exactly once: a PID file failure, the
// body's ready call, or the body's return value when it exits without
// calling ready. A nil notify is allowed.
func runService(ctx context.Context, pidFile string, body Service, notify func(error)) error {
	var once sync.Once
	ready := func(err error) {
		once.Do(func() {
			if notify != nil {
				notify(err)
			}
		})
	}
	if err := createPIDFile(pidFile); err != nil {
		ready(err)
		return err
	}
	defer removePIDFile(pidFile)

	err := body(ctx, ready)
	ready(err)
	return err
}
