// Package timer provides the single-handle background-expiry timer.
package timer

import (
	"sync"
	"time"

	"github.com/MrEthical07/goSession/internal/clock"
)

// BackgroundTimer owns at most one pending expiry. Re-arming cancels the previous
// instance; a fired or cancelled instance can never fire again.
//
// Every arm gets a generation number. The fire callback receives it and must call
// [BackgroundTimer.Claim] before acting, so a callback that raced with Disarm or a
// later Arm becomes a no-op.
type BackgroundTimer struct {
	clock clock.Clock

	mu       sync.Mutex
	handle   clock.Timer
	gen      uint64
	armed    bool
	deadline time.Time
}

// New returns a disarmed timer driven by c.
func New(c clock.Clock) *BackgroundTimer {
	if c == nil {
		c = clock.Real()
	}
	return &BackgroundTimer{clock: c}
}

// Arm schedules fire after d, cancelling any pending instance. It returns the
// generation passed to fire.
func (t *BackgroundTimer) Arm(d time.Duration, fire func(gen uint64)) uint64 {
	t.mu.Lock()
	if t.handle != nil {
		t.handle.Stop()
		t.handle = nil
	}
	t.gen++
	gen := t.gen
	t.armed = true
	t.deadline = t.clock.Now().Add(d)
	t.mu.Unlock()

	// Scheduled outside the lock: a fake clock may run fire synchronously for d <= 0.
	h := t.clock.AfterFunc(d, func() { fire(gen) })

	t.mu.Lock()
	if t.gen == gen && t.armed {
		t.handle = h
	} else {
		h.Stop()
	}
	t.mu.Unlock()
	return gen
}

// Disarm cancels the pending instance. It reports whether one was armed.
func (t *BackgroundTimer) Disarm() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	wasArmed := t.armed
	if t.handle != nil {
		t.handle.Stop()
		t.handle = nil
	}
	t.gen++
	t.armed = false
	t.deadline = time.Time{}
	return wasArmed
}

// Claim consumes the armed instance if gen is still current. Exactly one Claim per
// arm succeeds; after it the timer is disarmed.
func (t *BackgroundTimer) Claim(gen uint64) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.armed || t.gen != gen {
		return false
	}
	t.armed = false
	t.handle = nil
	t.deadline = time.Time{}
	return true
}

// Armed reports whether an instance is pending.
func (t *BackgroundTimer) Armed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.armed
}

// Deadline returns the pending instance's deadline.
func (t *BackgroundTimer) Deadline() (time.Time, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.deadline, t.armed
}
