//go:build windows

package lifecycle

import (
	"context"

	"golang.org/x/sys/windows/svc"

	"ledmatrix/internal/faults"
)

type windowsBootstrapper struct {
	opts Options
}

// New returns the bootstrapper for this platform.
func New(opts Options) Bootstrapper {
	return &windowsBootstrapper{opts: opts}
}

// Run hands control to the service control manager when started as a
// service, and runs in the foreground otherwise.
func (b *windowsBootstrapper) Run(ctx context.Context, body Service) error {
	isService, err := svc.IsWindowsService()
	if err != nil {
		return faults.Wrap(faults.ErrPlatform, "bootstrap", "detect service environment", err)
	}
	if !isService || b.opts.Foreground {
		return runService(ctx, b.opts.PIDFile, body, nil)
	}

	h := &serviceHandler{ctx: ctx, body: body}
	if err := svc.Run(ServiceName, h); err != nil {
		return faults.Wrap(faults.ErrPlatform, "bootstrap", "run service", err)
	}
	return h.err
}

type serviceHandler struct {
	ctx  context.Context
	body Service
	err  error
}

func (h *serviceHandler) Execute(_ []string, requests <-chan svc.ChangeRequest, status chan<- svc.Status) (bool, uint32) {
	status <- svc.Status{State: svc.StartPending}

	ctx, cancel := context.WithCancel(h.ctx)
	defer cancel()
	ready := make(chan error, 1)
	done := make(chan error, 1)
	go func() {
		done <- runService(ctx, "", h.body, func(err error) { ready <- err })
	}()

	for {
		select {
		case err := <-ready:
			if err == nil {
				status <- svc.Status{State: svc.Running, Accepts: svc.AcceptStop | svc.AcceptShutdown}
			}
		case err := <-done:
			return h.finish(status, err)
		case req := <-requests:
			switch req.Cmd {
			case svc.Interrogate:
				status <- req.CurrentStatus
			case svc.Stop, svc.Shutdown:
				cancel()
				return h.finish(status, <-done)
			}
		}
	}
}

func (h *serviceHandler) finish(status chan<- svc.Status, err error) (bool, uint32) {
	h.err = err
	status <- svc.Status{State: svc.StopPending}
	if err != nil {
		return true, faults.ExitCode(err)
	}
	return false, 0
}
