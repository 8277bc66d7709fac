package game

import (
	"sync"
	"time"
)

// Timer fires a callback at an absolute deadline. Unlike a bare time.Timer it
// keeps the deadline around so the remaining time can be reported to clients
// that (re)join mid-phase.
type Timer struct {
	deadline time.Time

	mu      sync.Mutex
	t       *time.Timer
	stopped bool
}

// NewTimer schedules fn to run once at deadline. A deadline in the past fires
// immediately. fn runs on its own goroutine.
func NewTimer(deadline time.Time, fn func()) *Timer {
	d := time.Until(deadline)
	if d < 0 {
		d = 0
	}
	return &Timer{
		deadline: deadline,
		t:        time.AfterFunc(d, fn),
	}
}

// Deadline reports the instant the timer fires (or would have fired).
func (t *Timer) Deadline() time.Time { return t.deadline }

// Stop cancels the timer. Safe to call more than once and after firing.
func (t *Timer) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.stopped {
		return
	}
	t.stopped = true
	t.t.Stop()
}
