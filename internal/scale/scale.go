// Package scale implements the scale (compression) engine (spec.md §4.6,
// component E): it detects when the true item-size total overflows the
// platform's maximum addressable scroll extent and rewrites positions
// through a first-item-anchor mapping so sibling gaps stay pixel-accurate
// regardless of compression ratio. The lerp/momentum interpolation is
// adapted from the teacher's internal/ui/animations.go easing/animation
// machinery, generalized from general-purpose UI transitions to per-frame
// scroll-position smoothing; the scrollbar thumb geometry is adapted from
// internal/components/dropdown's bounded, selection-centered visible window.
package scale

import (
	"math"
	"time"

	colorful "github.com/lucasb-eyer/go-colorful"
)

// DefaultHardLimit mirrors the browser engines' maximum addressable element
// height (spec.md §4.6), preserved here as the maximum virtual scroll extent
// this engine will render without compressing. It is configurable precisely
// because the "true" limit is platform lore, not a law of terminals — but an
// identical constant lets the compression math in this package be exercised
// the same way spec.md's scenarios exercise it.
const DefaultHardLimit = 1.67e7

// Sizes is the subset of sizecache.Cache the scale engine needs for the
// anchor mapping.
type Sizes interface {
	IndexAtOffset(y float64) int
	OffsetOf(i int) float64
}

// State is the compression record (spec.md §3 "Compression state").
type State struct {
	Active      bool
	VirtualSize float64
	ActualSize  float64
	Ratio       float64
}

// Engine owns the compression state plus the wheel/touch interpolation and
// scrollbar bookkeeping that only matter once compression is active.
type Engine struct {
	HardLimit float64
	state     State

	// wheel lerp
	targetScrollPos  float64
	virtualScrollPos float64
	lerpFactor       float64
	snapThreshold    float64

	// touch/momentum
	touchBaseline  float64
	touchStartY    float64
	momentumVel    float64
	momentumActive bool
	momentumDecel  float64

	// scrollbar
	thumbMinSize  float64
	autoHideAfter time.Duration
	lastInteract  time.Time
	dragging      bool
}

// New constructs an Engine. hardLimit <= 0 uses DefaultHardLimit.
func New(hardLimit float64) *Engine {
	if hardLimit <= 0 {
		hardLimit = DefaultHardLimit
	}
	return &Engine{
		HardLimit:     hardLimit,
		lerpFactor:    0.65,
		snapThreshold: 0.5,
		momentumDecel: 0.95,
		thumbMinSize:  30,
		autoHideAfter: time.Second,
	}
}

// Recompute updates and returns the compression state for the given true
// total size (spec.md §4.6 "Activation").
func (e *Engine) Recompute(actualSize float64) State {
	if actualSize > e.HardLimit {
		e.state = State{
			Active:      true,
			VirtualSize: e.HardLimit,
			ActualSize:  actualSize,
			Ratio:       e.HardLimit / actualSize,
		}
	} else {
		e.state = State{
			Active:      false,
			VirtualSize: actualSize,
			ActualSize:  actualSize,
			Ratio:       1,
		}
	}
	return e.state
}

// State returns the last computed compression state.
func (e *Engine) State() State { return e.state }

// AnchorIndex picks the first index whose rendered top should fall within
// the viewport given a virtual scrollPos (spec.md §4.6 step 1):
// i0 = indexAtOffset(scrollPos / ratio).
func (e *Engine) AnchorIndex(sizes Sizes, scrollPos float64) int {
	if !e.state.Active || e.state.Ratio == 0 {
		return sizes.IndexAtOffset(scrollPos)
	}
	return sizes.IndexAtOffset(scrollPos / e.state.Ratio)
}

// AnchorPosition computes the first-item-anchor position for i0 at the
// given scrollPos (spec.md §4.6 step 2): firstItemPos = round(offsetOf(i0)
// - actualScroll), where actualScroll = scrollPos / ratio.
func (e *Engine) AnchorPosition(sizes Sizes, i0 int, scrollPos float64) float64 {
	if !e.state.Active || e.state.Ratio == 0 {
		return sizes.OffsetOf(i0) - scrollPos
	}
	actualScroll := scrollPos / e.state.Ratio
	return math.Round(sizes.OffsetOf(i0) - actualScroll)
}

// PositionOf places index i relative to the anchor (spec.md §4.6 step 3):
// firstItemPos + (offsetOf(i) - offsetOf(i0)). Using fixed offsets relative
// to the anchor eliminates floating-point drift between siblings regardless
// of compression ratio.
func (e *Engine) PositionOf(sizes Sizes, i0 int, firstItemPos float64, i int) float64 {
	return firstItemPos + (sizes.OffsetOf(i) - sizes.OffsetOf(i0))
}

// --- native-scroll bypass: wheel lerp (spec.md §4.6) ---

// WheelDelta accumulates a wheel tick's deltaY into the target scroll
// position, clamped to [0, maxScroll].
func (e *Engine) WheelDelta(delta, maxScroll float64) {
	e.targetScrollPos += delta
	e.targetScrollPos = clamp(e.targetScrollPos, 0, maxScroll)
}

// Tick advances the lerp interpolation by one animation frame: factor 0.65,
// snapping to the target within 0.5px. Returns the new virtual scroll
// position and whether motion is still ongoing.
func (e *Engine) Tick() (pos float64, moving bool) {
	diff := e.targetScrollPos - e.virtualScrollPos
	if diff < 0 {
		diff = -diff
	}
	if diff <= e.snapThreshold {
		e.virtualScrollPos = e.targetScrollPos
		return e.virtualScrollPos, false
	}
	e.virtualScrollPos += (e.targetScrollPos - e.virtualScrollPos) * e.lerpFactor
	return e.virtualScrollPos, true
}

// VirtualScrollPos returns the internal scroll variable compressed mode
// reads and writes instead of native scrollTop.
func (e *Engine) VirtualScrollPos() float64 { return e.virtualScrollPos }

// SetVirtualScrollPos forces the internal scroll variable, used by
// scrollToIndex and restoreScroll in compressed mode.
func (e *Engine) SetVirtualScrollPos(pos float64) {
	e.virtualScrollPos = pos
	e.targetScrollPos = pos
}

// --- touch handling (spec.md §4.6 "Touch") ---

// TouchStart samples the finger position and records the current virtual
// scroll position as baseline.
func (e *Engine) TouchStart(y float64) {
	e.touchStartY = y
	e.touchBaseline = e.virtualScrollPos
	e.momentumActive = false
}

// TouchMove applies the finger delta 1:1 against the baseline and returns
// the new virtual scroll position, clamped to [0, maxScroll].
func (e *Engine) TouchMove(y, maxScroll float64) float64 {
	delta := e.touchStartY - y
	e.virtualScrollPos = clamp(e.touchBaseline+delta, 0, maxScroll)
	e.targetScrollPos = e.virtualScrollPos
	return e.virtualScrollPos
}

// TouchEnd computes a flick velocity from samples within the last 100ms (at
// least 2 required) and starts momentum at that velocity whenever those
// samples span a positive time; there is no minimum flick speed.
// samples must be ordered oldest-first.
func (e *Engine) TouchEnd(samples []TouchSample) {
	if len(samples) < 2 {
		e.momentumActive = false
		return
	}
	cutoff := samples[len(samples)-1].Time.Add(-100 * time.Millisecond)
	first := samples[0]
	for _, s := range samples {
		if s.Time.After(cutoff) {
			first = s
			break
		}
	}
	last := samples[len(samples)-1]
	dt := last.Time.Sub(first.Time).Milliseconds()
	if dt <= 0 {
		e.momentumActive = false
		return
	}
	e.momentumVel = (first.Y - last.Y) / float64(dt)
	e.momentumActive = true
}

// TouchSample is a (position, time) pair used to compute flick velocity.
type TouchSample struct {
	Y    float64
	Time time.Time
}

// MomentumTick advances the momentum animation by one frame: per-frame
// deceleration 0.95 until |velocity| < 0.1 px/ms or an edge is hit. Returns
// the new virtual scroll position and whether momentum is still active.
func (e *Engine) MomentumTick(maxScroll float64) (pos float64, active bool) {
	if !e.momentumActive {
		return e.virtualScrollPos, false
	}
	e.virtualScrollPos = clamp(e.virtualScrollPos+e.momentumVel, 0, maxScroll)
	e.momentumVel *= e.momentumDecel

	atEdge := e.virtualScrollPos <= 0 || e.virtualScrollPos >= maxScroll
	if absf(e.momentumVel) < 0.1 || atEdge {
		e.momentumActive = false
	}
	e.targetScrollPos = e.virtualScrollPos
	return e.virtualScrollPos, e.momentumActive
}

// --- compressed scrollbar (spec.md §4.6 "Compressed scrollbar") ---

// ThumbGeometry returns the thumb's size and position along the track,
// given the container size. Thumb size is proportional to
// containerSize/virtualSize, floored at thumbMinSize.
func (e *Engine) ThumbGeometry(containerSize float64) (size, pos float64) {
	if e.state.VirtualSize <= 0 {
		return e.thumbMinSize, 0
	}
	trackSize := containerSize
	size = trackSize * containerSize / e.state.VirtualSize
	if size < e.thumbMinSize {
		size = e.thumbMinSize
	}
	if size > trackSize {
		size = trackSize
	}
	maxScroll := e.state.VirtualSize - containerSize
	if maxScroll <= 0 {
		return size, 0
	}
	frac := e.virtualScrollPos / maxScroll
	pos = frac * (trackSize - size)
	return size, pos
}

// DragTo maps a drag position on the track back to a virtual scroll
// position and marks the scrollbar as actively dragging.
func (e *Engine) DragTo(trackFrac, maxScroll float64) float64 {
	e.dragging = true
	e.lastInteract = time.Now()
	e.virtualScrollPos = clamp(trackFrac*maxScroll, 0, maxScroll)
	e.targetScrollPos = e.virtualScrollPos
	return e.virtualScrollPos
}

// EndDrag clears the dragging flag.
func (e *Engine) EndDrag() {
	e.dragging = false
	e.lastInteract = time.Now()
}

// MarkInteraction resets the auto-hide clock.
func (e *Engine) MarkInteraction(now time.Time) { e.lastInteract = now }

// ShouldAutoHide reports whether the scrollbar should hide: not dragging,
// and idle for more than autoHideAfter.
func (e *Engine) ShouldAutoHide(now time.Time) bool {
	if e.dragging {
		return false
	}
	return now.Sub(e.lastInteract) > e.autoHideAfter
}

// ThumbColor blends between an idle and an active color by normalized
// velocity in [0,1], giving the scrollbar thumb a velocity tint.
func ThumbColor(idle, active colorful.Color, normalizedVelocity float64) colorful.Color {
	return idle.BlendLuv(active, clamp(normalizedVelocity, 0, 1))
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func absf(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
