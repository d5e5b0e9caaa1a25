// Package scroll implements the scroll controller (spec.md §4.7, component
// F): event normalization, velocity tracking, idle detection, and the
// axis/mode abstraction. The idle timer is adapted from the teacher's
// performance.Debouncer; the velocity bookkeeping generalizes
// performance.ViewportManager's single scalar scrollVelocity field into the
// full ring-buffer tracker spec.md describes.
package scroll

import (
	"context"
	"sync"
	"time"

	"github.com/rowvirt/vlist/internal/easing"
)

// Axis selects which terminal dimension the controller scrolls along.
type Axis int

const (
	AxisVertical Axis = iota
	AxisHorizontal
)

// Mode selects how scroll position is sourced (spec.md §4.7 "Modes").
type Mode int

const (
	ModeElement Mode = iota
	ModeWindow
	ModeCompressed
)

// RunState is the controller's coarse state machine (spec.md §4.7 "State
// machine"): Idle -> Scrolling -> Idle, with a transient Animating substate
// during smooth scroll-to or lerp/momentum interpolation.
type RunState int

const (
	StateIdle RunState = iota
	StateScrolling
	StateAnimating
)

// DefaultIdleTimeout is the default time with no scroll events before the
// idle callback fires.
const DefaultIdleTimeout = 150 * time.Millisecond

// Controller normalizes scroll input and tracks velocity/idle state.
type Controller struct {
	mu sync.Mutex

	Axis Axis
	Mode Mode

	pos   float64
	state RunState

	velocity *velocityTracker
	idle     *idleTimer

	onIdle   func()
	onScroll func(pos float64, direction int, velocity float64, reliable bool)

	animMu     sync.Mutex
	animCancel context.CancelFunc
}

// New constructs a Controller. idleTimeout defaults to DefaultIdleTimeout
// when <= 0.
func New(axis Axis, mode Mode, idleTimeout time.Duration) *Controller {
	if idleTimeout <= 0 {
		idleTimeout = DefaultIdleTimeout
	}
	c := &Controller{Axis: axis, Mode: mode, velocity: newVelocityTracker(DefaultVelocitySamples)}
	c.idle = newIdleTimer(idleTimeout, func() {
		c.mu.Lock()
		c.state = StateIdle
		cb := c.onIdle
		c.mu.Unlock()
		if cb != nil {
			cb()
		}
	})
	return c
}

// OnIdle registers the idle callback (spec.md §4.7: "responsible for
// flushing pending loads and for removing a 'scrolling' visual state").
func (c *Controller) OnIdle(cb func()) { c.mu.Lock(); c.onIdle = cb; c.mu.Unlock() }

// OnScroll registers the per-tick scroll callback.
func (c *Controller) OnScroll(cb func(pos float64, direction int, velocity float64, reliable bool)) {
	c.mu.Lock()
	c.onScroll = cb
	c.mu.Unlock()
}

// HandleEvent processes one normalized scroll tick at position pos and time
// now: it updates velocity, transitions Idle->Scrolling, resets the idle
// timer, and invokes the scroll callback. Returns the direction (-1/0/1) and
// the reported velocity.
func (c *Controller) HandleEvent(pos float64, now time.Time) (direction int, velocity float64, reliable bool) {
	c.mu.Lock()
	c.pos = pos
	c.velocity.AddSample(pos, now)
	c.state = StateScrolling
	direction = c.velocity.Direction()
	velocity = c.velocity.Velocity()
	reliable = c.velocity.Reliable()
	cb := c.onScroll
	c.mu.Unlock()

	c.cancelAnimationOnInput()
	c.idle.Reset()

	if cb != nil {
		cb(pos, direction, velocity, reliable)
	}
	return direction, velocity, reliable
}

// Position returns the current scroll position.
func (c *Controller) Position() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pos
}

// State returns the current run state.
func (c *Controller) State() RunState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// ScrollTo sets the scroll position directly (spec.md §4.7 "Programmatic
// scrollTo(pos) sets position directly"), cancelling any in-flight smooth
// animation.
func (c *Controller) ScrollTo(pos float64) {
	c.CancelScroll()
	c.mu.Lock()
	c.pos = pos
	c.mu.Unlock()
}

// frameInterval paces ScrollToSmooth's animation loop, approximating a
// 60fps RAF callback cadence.
const frameInterval = 16 * time.Millisecond

// ScrollToSmooth runs a duration-bounded easing animation from the current
// position to target, calling onTick on every frame. It is cancellable via
// CancelScroll and cancels itself if HandleEvent observes user input while
// it runs (spec.md §4.7).
func (c *Controller) ScrollToSmooth(ctx context.Context, target float64, duration time.Duration, ease easing.Func, onTick func(pos float64)) error {
	c.CancelScroll()

	animCtx, cancel := context.WithCancel(ctx)
	c.animMu.Lock()
	c.animCancel = cancel
	c.animMu.Unlock()
	defer func() {
		c.animMu.Lock()
		if c.animCancel != nil {
			c.animCancel = nil
		}
		c.animMu.Unlock()
	}()

	c.mu.Lock()
	from := c.pos
	c.state = StateAnimating
	c.mu.Unlock()

	if duration <= 0 {
		c.mu.Lock()
		c.pos = target
		c.state = StateIdle
		c.mu.Unlock()
		if onTick != nil {
			onTick(target)
		}
		return nil
	}

	start := time.Now()
	for {
		select {
		case <-animCtx.Done():
			return animCtx.Err()
		default:
		}

		elapsed := time.Since(start)
		if elapsed >= duration {
			c.mu.Lock()
			c.pos = target
			c.state = StateIdle
			c.mu.Unlock()
			if onTick != nil {
				onTick(target)
			}
			return nil
		}

		frac := float64(elapsed) / float64(duration)
		eased := ease(frac)
		pos := from + (target-from)*eased
		c.mu.Lock()
		c.pos = pos
		c.mu.Unlock()
		if onTick != nil {
			onTick(pos)
		}

		select {
		case <-animCtx.Done():
			return animCtx.Err()
		case <-time.After(frameInterval):
		}
	}
}

// CancelScroll aborts an in-flight smooth animation at its current
// position, per spec.md §4.7.
func (c *Controller) CancelScroll() {
	c.animMu.Lock()
	cancel := c.animCancel
	c.animCancel = nil
	c.animMu.Unlock()
	if cancel != nil {
		cancel()
	}
}

func (c *Controller) cancelAnimationOnInput() {
	c.animMu.Lock()
	cancel := c.animCancel
	c.animMu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// Destroy cancels the idle timer and any in-flight animation.
func (c *Controller) Destroy() {
	c.idle.Cancel()
	c.CancelScroll()
}
