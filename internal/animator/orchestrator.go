package animator

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"ledmatrix/internal/logging"
	"ledmatrix/internal/matrix"
)

// Target names a playback slot.
type Target int

const (
	Left Target = iota
	Right
	Pair
)

func (t Target) String() string {
	switch t {
	case Left:
		return "left"
	case Right:
		return "right"
	case Pair:
		return "pair"
	default:
		return fmt.Sprintf("target(%d)", int(t))
	}
}

// State is the observable condition of one side.
type State int

const (
	Idle State = iota
	Animating
	Unconfigured
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Animating:
		return "animating"
	case Unconfigured:
		return "unconfigured"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Frame is one grayscale image and how long it stays on screen.
type Frame struct {
	Pixels   []byte
	Duration time.Duration
}

// Orchestrator owns the matrix handles and the three playback slots. One
// mutex guards all of it; every device write, whether from a command or a
// playback task, happens with the mutex held, so a token cancelled under the
// mutex can never be followed by a write from its task.
type Orchestrator struct {
	mu       sync.Mutex
	matrices [2]*matrix.Matrix
	tokens   [3]*Token
	wg       sync.WaitGroup
	logger   *slog.Logger
}

// New builds an orchestrator. Either handle may be nil for an unconfigured
// side.
func New(left, right *matrix.Matrix, logger *slog.Logger) *Orchestrator {
	return &Orchestrator{
		matrices: [2]*matrix.Matrix{left, right},
		logger:   logging.NewComponentLogger(logger, "animator"),
	}
}

// Do runs fn with exclusive access to the shared state. The Session must not
// escape fn.
func (o *Orchestrator) Do(fn func(*Session) error) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	return fn(&Session{o: o})
}

// Wait blocks until every playback task has exited.
func (o *Orchestrator) Wait() {
	o.wg.Wait()
}

// Shutdown cancels all playback and waits for the tasks to exit.
func (o *Orchestrator) Shutdown() {
	o.mu.Lock()
	for i := range o.tokens {
		o.tokens[i].Cancel()
		o.tokens[i] = nil
	}
	o.mu.Unlock()
	o.wg.Wait()
}

// Session is the view of shared state handed to Do callbacks.
type Session struct {
	o *Orchestrator
}

// Matrix returns the handle for Left or Right, nil when unconfigured.
func (s *Session) Matrix(side Target) *matrix.Matrix {
	if side != Left && side != Right {
		return nil
	}
	return s.o.matrices[side]
}

// Preempt cancels every token touching the given targets. The pair token is
// always cancelled since it touches both sides. Preempt does not wait for
// the tasks to exit; they observe the cancellation before their next write.
func (s *Session) Preempt(targets ...Target) {
	o := s.o
	for _, t := range targets {
		switch t {
		case Left, Right:
			o.cancelSlot(t)
		case Pair:
			o.cancelSlot(Left)
			o.cancelSlot(Right)
		}
	}
	o.cancelSlot(Pair)
}

// State reports the condition of side. Pair is Unconfigured unless both
// sides exist.
func (s *Session) State(side Target) State {
	o := s.o
	switch side {
	case Pair:
		if o.matrices[Left] == nil || o.matrices[Right] == nil {
			return Unconfigured
		}
		if o.tokens[Pair].Alive() {
			return Animating
		}
		return Idle
	case Left, Right:
		if o.matrices[side] == nil {
			return Unconfigured
		}
		if o.tokens[side].Alive() || o.tokens[Pair].Alive() {
			return Animating
		}
		return Idle
	default:
		return Unconfigured
	}
}

// Start preempts target and launches a playback task for frames. With loop
// set the sequence repeats until preempted. It returns the new token, or
// nil when there is nothing to play.
func (s *Session) Start(target Target, frames []Frame, loop bool) *Token {
	if len(frames) == 0 || target < Left || target > Pair {
		return nil
	}
	o := s.o
	s.Preempt(target)
	tok := newToken()
	o.tokens[target] = tok
	o.wg.Add(1)
	go o.play(target, tok, frames, loop)
	return tok
}

func (o *Orchestrator) cancelSlot(t Target) {
	if tok := o.tokens[t]; tok != nil {
		tok.Cancel()
		o.tokens[t] = nil
	}
}

// release clears slot t if it still holds tok.
func (o *Orchestrator) release(t Target, tok *Token) {
	if o.tokens[t] == tok {
		o.tokens[t] = nil
	}
	tok.Cancel()
}

func (o *Orchestrator) play(target Target, tok *Token, frames []Frame, loop bool) {
	defer o.wg.Done()
	logger := o.logger.With(logging.Side(target.String()))
	logger.Debug("animation started",
		logging.String(logging.FieldEventType, "animation_started"),
		logging.Int("frames", len(frames)),
		logging.Bool("loop", loop),
	)

	for {
		for i, f := range frames {
			if !o.renderFrame(target, tok, f.Pixels, i, logger) {
				return
			}
			if !tok.wait(f.Duration) {
				logger.Debug("animation preempted",
					logging.String(logging.FieldEventType, "animation_preempted"),
					logging.Int("frame", i),
				)
				return
			}
		}
		if !loop {
			break
		}
	}

	o.mu.Lock()
	o.release(target, tok)
	o.mu.Unlock()
	logger.Debug("animation finished", logging.String(logging.FieldEventType, "animation_finished"))
}

// renderFrame writes one frame under the state lock. It returns false when
// the task must stop.
func (o *Orchestrator) renderFrame(target Target, tok *Token, pixels []byte, index int, logger *slog.Logger) bool {
	o.mu.Lock()
	defer o.mu.Unlock()

	if !tok.Alive() {
		return false
	}

	var err error
	switch target {
	case Pair:
		left, right := o.matrices[Left], o.matrices[Right]
		if left == nil || right == nil {
			o.release(target, tok)
			return false
		}
		err = matrix.PairSession(left, right, func(l, r *matrix.Device) error {
			return matrix.RenderPair(l, r, pixels)
		})
	default:
		m := o.matrices[target]
		if m == nil {
			o.release(target, tok)
			return false
		}
		err = m.Session(func(d *matrix.Device) error {
			return matrix.RenderSingle(d, pixels)
		})
	}
	if err != nil {
		o.release(target, tok)
		logging.ErrorWithContext(logger, "animation frame write failed; animation stopped", "animation_failed",
			logging.Int("frame", index),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check that the matrix is attached and the port is correct"),
		)
		return false
	}
	return true
}
