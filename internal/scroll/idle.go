package scroll

import (
	"sync"
	"time"
)

// idleTimer fires its callback after delay has elapsed with no intervening
// Reset call, exactly like the teacher's performance.Debouncer
// (internal/components/performance/debouncer.go), renamed here to express
// its role driving spec.md §4.7's idle detection rather than generic update
// debouncing.
type idleTimer struct {
	mu       sync.Mutex
	delay    time.Duration
	timer    *time.Timer
	callback func()
	pending  bool
}

func newIdleTimer(delay time.Duration, callback func()) *idleTimer {
	return &idleTimer{delay: delay, callback: callback}
}

// Reset restarts the countdown; called on every scroll event (spec.md §4.7
// "A timer of default 150ms is reset on every scroll event").
func (d *idleTimer) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.pending = true
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.delay, func() {
		d.mu.Lock()
		fire := d.pending
		d.pending = false
		d.mu.Unlock()
		if fire && d.callback != nil {
			d.callback()
		}
	})
}

// Cancel stops any pending fire without calling the callback.
func (d *idleTimer) Cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.pending = false
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}

// SetDelay updates the idle duration for future Reset calls.
func (d *idleTimer) SetDelay(delay time.Duration) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.delay = delay
}
