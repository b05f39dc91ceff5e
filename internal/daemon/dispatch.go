package daemon

import (
	"context"
	"errors"
	"log/slog"

	"ledmatrix/internal/animator"
	"ledmatrix/internal/faults"
	"ledmatrix/internal/ipc"
	"ledmatrix/internal/logging"
	"ledmatrix/internal/matrix"
)

var sides = [...]animator.Target{animator.Left, animator.Right}

// sideFunc runs one command against one configured side with the state lock
// held.
type sideFunc func(s *animator.Session, side animator.Target, m *matrix.Matrix, cmd *ipc.Command, resp *ipc.Response) error

var sideHandlers = map[ipc.Kind]sideFunc{
	ipc.KindSetBrightness: func(_ *animator.Session, side animator.Target, m *matrix.Matrix, cmd *ipc.Command, _ *ipc.Response) error {
		level := *cmd.Value.Get(side)
		return wake(m, func(d *matrix.Device) error { return d.SetBrightness(level) })
	},
	ipc.KindGetBrightness: func(_ *animator.Session, side animator.Target, m *matrix.Matrix, _ *ipc.Command, resp *ipc.Response) error {
		return wake(m, func(d *matrix.Device) error {
			level, err := d.GetBrightness()
			if err == nil {
				resp.Brightness.Set(side, level)
			}
			return err
		})
	},
	ipc.KindSetSleep: func(_ *animator.Session, side animator.Target, m *matrix.Matrix, cmd *ipc.Command, _ *ipc.Response) error {
		sleep := *cmd.Toggle.Get(side)
		if err := wake(m, func(d *matrix.Device) error { return d.SetSleep(sleep) }); err != nil {
			return err
		}
		m.Sleeping = sleep
		return nil
	},
	ipc.KindGetSleep: func(_ *animator.Session, side animator.Target, m *matrix.Matrix, _ *ipc.Command, resp *ipc.Response) error {
		resp.Sleeping.Set(side, m.Sleeping)
		return nil
	},
	ipc.KindSetAnimate: func(_ *animator.Session, side animator.Target, m *matrix.Matrix, cmd *ipc.Command, _ *ipc.Response) error {
		animate := *cmd.Toggle.Get(side)
		return wake(m, func(d *matrix.Device) error { return d.SetAnimate(animate) })
	},
	ipc.KindGetAnimate: func(_ *animator.Session, side animator.Target, m *matrix.Matrix, _ *ipc.Command, resp *ipc.Response) error {
		return wake(m, func(d *matrix.Device) error {
			animating, err := d.GetAnimate()
			if err == nil {
				resp.Animating.Set(side, animating)
			}
			return err
		})
	},
	ipc.KindVersion: func(_ *animator.Session, side animator.Target, m *matrix.Matrix, _ *ipc.Command, resp *ipc.Response) error {
		return wake(m, func(d *matrix.Device) error {
			v, err := d.GetVersion()
			if err == nil {
				resp.Version.Set(side, v)
			}
			return err
		})
	},
	ipc.KindBootloader: func(_ *animator.Session, _ animator.Target, m *matrix.Matrix, _ *ipc.Command, _ *ipc.Response) error {
		return wake(m, (*matrix.Device).Bootloader)
	},
	ipc.KindCrash: func(_ *animator.Session, _ animator.Target, m *matrix.Matrix, _ *ipc.Command, _ *ipc.Response) error {
		return wake(m, (*matrix.Device).Crash)
	},
	ipc.KindFlushColumns: func(_ *animator.Session, _ animator.Target, m *matrix.Matrix, _ *ipc.Command, _ *ipc.Response) error {
		return wake(m, (*matrix.Device).FlushColumns)
	},
	ipc.KindDrawBW: func(_ *animator.Session, side animator.Target, m *matrix.Matrix, cmd *ipc.Command, _ *ipc.Response) error {
		var bitmap [matrix.BitmapSize]byte
		copy(bitmap[:], *cmd.Bitmap.Get(side))
		return wake(m, func(d *matrix.Device) error { return d.DrawBlackWhite(bitmap) })
	},
	ipc.KindStageColumn: func(_ *animator.Session, side animator.Target, m *matrix.Matrix, cmd *ipc.Command, _ *ipc.Response) error {
		col := cmd.Column.Get(side)
		var values [matrix.Rows]byte
		copy(values[:], col.Values)
		return wake(m, func(d *matrix.Device) error { return d.StageColumn(col.Index, values) })
	},
	ipc.KindRender: func(s *animator.Session, side animator.Target, m *matrix.Matrix, cmd *ipc.Command, _ *ipc.Response) error {
		frames := *cmd.Frames.Get(side)
		switch len(frames) {
		case 0:
			return nil
		case 1:
			return wake(m, func(d *matrix.Device) error { return matrix.RenderSingle(d, frames[0].Pixels) })
		default:
			m.Sleeping = false
			s.Start(side, ipc.Animation(frames), cmd.Loop)
			return nil
		}
	},
}

// handlerFor resolves the per-side handler for kind. Pattern kinds share one
// handler keyed by their firmware pattern id.
func handlerFor(kind ipc.Kind) (sideFunc, bool) {
	if p, ok := kind.Pattern(); ok {
		return showPattern(p), true
	}
	fn, ok := sideHandlers[kind]
	return fn, ok
}

func showPattern(p matrix.Pattern) sideFunc {
	return func(_ *animator.Session, side animator.Target, m *matrix.Matrix, cmd *ipc.Command, _ *ipc.Response) error {
		var param *uint8
		if p == matrix.PatternPercentage {
			param = cmd.Value.Get(side)
		}
		return wake(m, func(d *matrix.Device) error { return d.ShowPattern(p, param) })
	}
}

// wake clears the sleeping flag, since any traffic wakes the module, and runs
// fn in a fresh port session.
func wake(m *matrix.Matrix, fn func(*matrix.Device) error) error {
	m.Sleeping = false
	return m.Session(fn)
}

// Handle executes cmd against the configured matrices. Queries fill in the
// returned response; every other kind returns a bare response on success.
func (d *Daemon) Handle(ctx context.Context, cmd ipc.Command) (*ipc.Response, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}
	logger := logging.WithContext(ctx, d.logger).With(logging.String(logging.FieldCommand, string(cmd.Kind)))
	resp := &ipc.Response{Kind: cmd.Kind}

	err := d.orch.Do(func(s *animator.Session) error {
		switch {
		case cmd.Kind == ipc.KindStatus:
			resp.Status = d.snapshot(s)
			return nil
		case cmd.Kind == ipc.KindRenderPair:
			return d.renderPair(s, &cmd, logger)
		}

		if cmd.Kind.Class() == ipc.ClassVisual {
			var touched []animator.Target
			for _, side := range sides {
				if cmd.Touches(side) && s.Matrix(side) != nil {
					touched = append(touched, side)
				}
			}
			if len(touched) > 0 {
				s.Preempt(touched...)
			}
		}
		return d.applySides(s, &cmd, resp, logger)
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// applySides runs the kind's handler for every side the command touches.
// Sides without a configured matrix are skipped with a warning.
func (d *Daemon) applySides(s *animator.Session, cmd *ipc.Command, resp *ipc.Response, logger *slog.Logger) error {
	fn, ok := handlerFor(cmd.Kind)
	if !ok {
		return faults.Wrap(faults.ErrInvalidCommand, string(cmd.Kind), "no handler for command", nil)
	}

	var errs []error
	for _, side := range sides {
		if !cmd.Touches(side) {
			continue
		}
		m := s.Matrix(side)
		if m == nil {
			logging.WarnWithContext(logger, "matrix not configured; command ignored for this side", "side_unconfigured",
				logging.Side(side.String()),
				logging.String(logging.FieldErrorHint, "add a ["+side.String()+"_matrix] table to the config"),
			)
			continue
		}
		if err := fn(s, side, m, cmd, resp); err != nil {
			errs = append(errs, faults.Wrap(faults.ErrHandler, string(cmd.Kind), side.String()+" matrix", err))
		}
	}
	return errors.Join(errs...)
}

// renderPair draws 18-column frames across both modules. A single frame is
// written synchronously; longer sequences play on the pair slot.
func (d *Daemon) renderPair(s *animator.Session, cmd *ipc.Command, logger *slog.Logger) error {
	left, right := s.Matrix(animator.Left), s.Matrix(animator.Right)
	if left == nil || right == nil {
		logging.WarnWithContext(logger, "pair render needs both matrices configured; command ignored", "pair_unconfigured",
			logging.String(logging.FieldErrorHint, "configure both [left_matrix] and [right_matrix]"),
		)
		return nil
	}
	s.Preempt(animator.Pair)
	left.Sleeping = false
	right.Sleeping = false

	switch len(cmd.Pair) {
	case 0:
		return nil
	case 1:
		err := matrix.PairSession(left, right, func(l, r *matrix.Device) error {
			return matrix.RenderPair(l, r, cmd.Pair[0].Pixels)
		})
		if err != nil {
			return faults.Wrap(faults.ErrHandler, string(cmd.Kind), "pair", err)
		}
		return nil
	default:
		s.Start(animator.Pair, ipc.Animation(cmd.Pair), cmd.Loop)
		return nil
	}
}
