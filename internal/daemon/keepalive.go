package daemon

import (
	"context"
	"time"

	"ledmatrix/internal/animator"
	"ledmatrix/internal/logging"
	"ledmatrix/internal/matrix"
)

func (d *Daemon) runKeepalive(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			d.pingIdle()
		}
	}
}

// pingIdle sends a version query to every awake, idle module so the firmware
// keeps the display on. Animating sides already see traffic and sleeping
// sides must stay asleep. It returns the number of modules pinged.
func (d *Daemon) pingIdle() int {
	pinged := 0
	_ = d.orch.Do(func(s *animator.Session) error {
		if s.State(animator.Pair) == animator.Animating {
			return nil
		}
		for _, side := range sides {
			m := s.Matrix(side)
			if m == nil || m.Sleeping || s.State(side) != animator.Idle {
				continue
			}
			err := m.Session(func(dev *matrix.Device) error {
				_, err := dev.GetVersion()
				return err
			})
			if err != nil {
				d.logger.Debug("keepalive ping failed",
					logging.Side(side.String()),
					logging.String(logging.FieldPort, m.Port),
					logging.Error(err),
				)
				continue
			}
			pinged++
		}
		return nil
	})
	return pinged
}
