package combat

import (
	"sync"
	"time"
)

// IdleTimer evicts an abandoned session after a period without actions.
// It never drives game state; turn effects are counted on transitions.
// It is safe for concurrent use.
type IdleTimer struct {
	mu      sync.Mutex
	timer   *time.Timer
	stopped bool
}

// NewIdleTimer creates and starts a timer that calls onExpire after d.
// onExpire is called in a separate goroutine.
//
// Precondition: d > 0; onExpire must not be nil.
// Postcondition: onExpire will be called unless Stop or Touch is called first.
func NewIdleTimer(d time.Duration, onExpire func()) *IdleTimer {
	it := &IdleTimer{}
	it.timer = time.AfterFunc(d, it.guard(onExpire))
	return it
}

func (it *IdleTimer) guard(onExpire func()) func() {
	return func() {
		it.mu.Lock()
		stopped := it.stopped
		it.mu.Unlock()
		if !stopped {
			onExpire()
		}
	}
}

// Touch restarts the countdown with a fresh duration.
//
// Postcondition: onExpire will be called d after Touch unless stopped first.
func (it *IdleTimer) Touch(d time.Duration, onExpire func()) {
	it.mu.Lock()
	defer it.mu.Unlock()
	if it.stopped {
		return
	}
	it.timer.Stop()
	it.timer = time.AfterFunc(d, it.guard(onExpire))
}

// Stop prevents the callback from firing. Safe to call multiple times.
func (it *IdleTimer) Stop() {
	it.mu.Lock()
	defer it.mu.Unlock()
	it.stopped = true
	it.timer.Stop()
}
