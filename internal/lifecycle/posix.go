//go:build !windows

package lifecycle

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"os/signal"
	"strings"
	"syscall"

	"golang.org/x/sys/unix"

	"ledmatrix/internal/faults"
)

// StageEnv carries the detach stage across re-executions.
const StageEnv = "LEDMATRIX_DETACH_STAGE"

const (
	stageSession = "session"
	stageService = "service"

	// statusFD is the first ExtraFiles descriptor in the child.
	statusFD = 3

	safePath = "/usr/local/sbin:/usr/local/bin:/usr/sbin:/usr/bin:/sbin:/bin"
)

type posixBootstrapper struct {
	opts  Options
	stage string
	exe   string
	args  []string
}

// New returns the bootstrapper for this platform.
func New(opts Options) Bootstrapper {
	exe, err := os.Executable()
	if err != nil {
		exe = os.Args[0]
	}
	args := opts.Args
	if args == nil {
		args = os.Args[1:]
	}
	return &posixBootstrapper{
		opts:  opts,
		stage: os.Getenv(StageEnv),
		exe:   exe,
		args:  args,
	}
}

func (b *posixBootstrapper) Run(ctx context.Context, body Service) error {
	if b.opts.Foreground {
		return runService(ctx, b.opts.PIDFile, body, nil)
	}
	switch b.stage {
	case "":
		return b.launch()
	case stageSession:
		return b.relay(os.NewFile(statusFD, "status"))
	case stageService:
		return b.serve(ctx, os.NewFile(statusFD, "status"), body)
	default:
		return faults.Wrap(faults.ErrPlatform, "bootstrap", fmt.Sprintf("unknown %s value %q", StageEnv, b.stage), nil)
	}
}

// launch starts the session stage in a new session and waits for the
// service stage to report.
func (b *posixBootstrapper) launch() error {
	r, w, err := os.Pipe()
	if err != nil {
		return faults.Wrap(faults.ErrPlatform, "bootstrap", "create status pipe", err)
	}
	defer r.Close()

	cmd := b.command(stageSession, w)
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}
	if err := cmd.Start(); err != nil {
		_ = w.Close()
		return faults.Wrap(faults.ErrPlatform, "bootstrap", "start session stage", err)
	}
	_ = w.Close()

	status := awaitStatus(r)
	_ = cmd.Wait()
	return status
}

// relay runs inside the session leader and starts the service stage outside
// of it.
func (b *posixBootstrapper) relay(status *os.File) error {
	defer status.Close()
	cmd := b.command(stageService, status)
	if err := cmd.Start(); err != nil {
		err = faults.Wrap(faults.ErrPlatform, "bootstrap", "start service stage", err)
		report(status, err)
		return err
	}
	return cmd.Process.Release()
}

func (b *posixBootstrapper) serve(ctx context.Context, status *os.File, body Service) error {
	signal.Reset()
	unix.Umask(0)
	if err := os.Chdir("/"); err != nil {
		err = faults.Wrap(faults.ErrPlatform, "bootstrap", "chdir /", err)
		report(status, err)
		return err
	}
	// The launcher waits on the pipe until the body is actually serving.
	return runService(ctx, b.opts.PIDFile, body, func(err error) { report(status, err) })
}

func (b *posixBootstrapper) command(stage string, status *os.File) *exec.Cmd {
	cmd := exec.Command(b.exe, b.args...)
	cmd.Env = sanitizedEnv(stage, os.Getenv("HOME"))
	cmd.Dir = "/"
	cmd.ExtraFiles = []*os.File{status}
	return cmd
}

// sanitizedEnv is the whole environment a detached stage sees.
func sanitizedEnv(stage, home string) []string {
	env := []string{"PATH=" + safePath, StageEnv + "=" + stage}
	if home != "" {
		env = append(env, "HOME="+home)
	}
	return env
}

// report writes err, if any, to the status pipe and closes it. An empty pipe
// means success.
func report(status io.WriteCloser, err error) {
	if status == nil {
		return
	}
	if err != nil {
		_, _ = io.WriteString(status, err.Error())
	}
	_ = status.Close()
}

// awaitStatus reads the status pipe to EOF.
func awaitStatus(r io.Reader) error {
	msg, err := io.ReadAll(r)
	if err != nil {
		return faults.Wrap(faults.ErrPlatform, "bootstrap", "read status pipe", err)
	}
	if text := strings.TrimSpace(string(msg)); text != "" {
		return faults.Wrap(faults.ErrPlatform, "bootstrap", "daemon failed to start: "+text, nil)
	}
	return nil
}
