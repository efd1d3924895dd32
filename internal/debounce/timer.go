// Package debounce provides a restartable single-shot timer.
package debounce

import (
	"sync"
	"time"
)

// Timer calls fn once the delay passed since the last Arm. Arming again
// before it fires restarts the delay. fn runs on its own goroutine.
type Timer struct {
	mu    sync.Mutex
	delay time.Duration
	fn    func()
	timer *time.Timer
	gen   uint64
}

func New(delay time.Duration, fn func()) *Timer {
	return &Timer{delay: delay, fn: fn}
}

// Arm (re)starts the countdown.
func (t *Timer) Arm() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.stopLocked()
	t.gen++
	gen := t.gen
	t.timer = time.AfterFunc(t.delay, func() { t.fire(gen) })
}

// Stop disarms the timer. A fire already in progress may still run.
func (t *Timer) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stopLocked()
}

// Armed reports whether a fire is pending.
func (t *Timer) Armed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.timer != nil
}

// SetDelay changes the delay used by the next Arm.
func (t *Timer) SetDelay(delay time.Duration) {
	t.mu.Lock()
	t.delay = delay
	t.mu.Unlock()
}

func (t *Timer) Delay() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.delay
}

func (t *Timer) stopLocked() {
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
	t.gen++
}

func (t *Timer) fire(gen uint64) {
	t.mu.Lock()
	if gen != t.gen {
		t.mu.Unlock()
		return
	}
	t.timer = nil
	t.mu.Unlock()

	t.fn()
}
