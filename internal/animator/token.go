package animator

import (
	"sync"
	"sync/atomic"
	"time"
)

// Token is the cancellation handle of one playback task. A task holding a
// dead token must not touch a device again.
type Token struct {
	alive atomic.Bool
	done  chan struct{}
	once  sync.Once
}

func newToken() *Token {
	t := &Token{done: make(chan struct{})}
	t.alive.Store(true)
	return t
}

// Alive reports whether the token has not been cancelled.
func (t *Token) Alive() bool {
	return t != nil && t.alive.Load()
}

// Cancel invalidates the token. It is idempotent and nil-safe.
func (t *Token) Cancel() {
	if t == nil {
		return
	}
	t.once.Do(func() {
		t.alive.Store(false)
		close(t.done)
	})
}

// Done is closed once the token is cancelled.
func (t *Token) Done() <-chan struct{} {
	return t.done
}

// wait sleeps for d and reports false if the token died first.
func (t *Token) wait(d time.Duration) bool {
	if d <= 0 {
		return t.Alive()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return t.Alive()
	case <-t.done:
		return false
	}
}
