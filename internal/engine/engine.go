// Package engine composes the size cache, sparse store, adapter scheduler,
// viewport, scale engine, scroll controller, and recycler into the single
// public surface a host program drives (spec.md §6, component H). It owns
// no rendering of its own: Render returns recycler slots for the host to
// paint, the way the teacher's top-level
// bubbletea model owns a tea.Model loop around its table/viewport
// components without drawing raw cells itself.
package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/rowvirt/vlist/internal/adapter"
	"github.com/rowvirt/vlist/internal/config"
	"github.com/rowvirt/vlist/internal/easing"
	"github.com/rowvirt/vlist/internal/events"
	"github.com/rowvirt/vlist/internal/item"
	"github.com/rowvirt/vlist/internal/recycler"
	"github.com/rowvirt/vlist/internal/scale"
	"github.com/rowvirt/vlist/internal/scroll"
	"github.com/rowvirt/vlist/internal/selection"
	"github.com/rowvirt/vlist/internal/sizecache"
	"github.com/rowvirt/vlist/internal/store"
	"github.com/rowvirt/vlist/internal/viewport"
)

// Align selects where ScrollToIndex positions the target item within the
// container (spec.md §6 "scrollToIndex").
type Align int

const (
	AlignStart Align = iota
	AlignCenter
	AlignEnd
	AlignNearest
)

// Snapshot captures enough state to restore scroll position across a data
// swap (spec.md §6 "getScrollSnapshot/restoreScroll").
type Snapshot struct {
	AnchorIndex  int
	OffsetInItem float64
}

// Engine is the generic virtualized list engine. T is the caller's item
// payload type.
type Engine[T any] struct {
	mu sync.RWMutex

	id string

	cfg config.Config[T]

	sizes    *sizecache.Cache
	store    *store.Store[T]
	sched    *adapter.Scheduler[T]
	vp       *viewport.Computer
	state    viewport.State
	scale    *scale.Engine
	scroller *scroll.Controller
	pool     *recycler.Pool[T]
	sel      *selection.Tracker
	bus      *events.Bus

	containerSize float64
	destroyed     bool
}

// New constructs an Engine from cfg and an optional data source. source may
// be nil; items can then only be supplied via SetItems/AppendItems etc.
func New[T any](cfg config.Config[T], source adapter.Source[T]) (*Engine[T], error) {
	if err := config.Validate(cfg); err != nil {
		return nil, err
	}

	e := &Engine[T]{
		id:            uuid.NewString(),
		cfg:           cfg,
		containerSize: 0,
	}

	switch cfg.Size.Mode {
	case config.SizeVariable:
		e.sizes = sizecache.New(cfg.Size.EstimateFunc)
	default:
		e.sizes = sizecache.NewConstant(cfg.Size.FixedSize)
	}

	e.store = store.New[T](
		store.WithChunkWidth[T](cfg.ChunkWidth),
		store.WithCap[T](cfg.StoreCap),
		store.WithEvictBuffer[T](cfg.EvictBuffer),
	)

	e.bus = events.New(func(t events.Type, r any) {
		// A handler panicked; surface it as a bus error event instead of
		// letting it escape Emit a second time.
		e.bus.Emit(events.Event{Type: events.TypeError, Payload: fmt.Errorf("handler for %s panicked: %v", t, r)})
	})

	if source != nil {
		e.sched = adapter.New[T](e.store, source,
			adapter.WithConcurrency[T](cfg.ConcurrentFetches),
			adapter.WithRateLimit[T](cfg.FetchRateLimit, cfg.ConcurrentFetches),
			adapter.WithVelocityGate[T](cfg.VelocityCancelThreshold, cfg.VelocityPreloadThreshold, cfg.PreloadAhead),
			adapter.WithErrorHandler[T](func(err error) {
				e.bus.Emit(events.Event{Type: events.TypeError, Payload: err})
			}),
			adapter.WithLoadCallbacks[T](
				func(r item.Range) { e.bus.Emit(events.Event{Type: events.TypeLoadStart, Payload: r}) },
				func(r item.Range) { e.bus.Emit(events.Event{Type: events.TypeLoadEnd, Payload: r}) },
			),
		)
	}

	e.vp = &viewport.Computer{Sizes: e.sizes, Overscan: cfg.Overscan}
	e.scale = scale.New(cfg.HardLimit)

	axis := scroll.AxisVertical
	if cfg.Horizontal {
		axis = scroll.AxisHorizontal
	}
	mode := scroll.ModeElement
	if cfg.ScrollElement {
		mode = scroll.ModeWindow
	}
	e.scroller = scroll.New(axis, mode, cfg.IdleTimeout)
	e.scroller.OnScroll(e.handleScrollTick)
	e.scroller.OnIdle(e.handleIdle)

	e.pool = recycler.New[T](
		recycler.WithIDPrefix[T](cfg.IDPrefix + "-" + e.id),
	)

	e.sel = selection.New(selection.Mode(cfg.Selection.Mode))

	return e, nil
}

// ID returns the engine instance's unique id, used to namespace stamped
// slot ids across multiple concurrently running engines.
func (e *Engine[T]) ID() string { return e.id }

func (e *Engine[T]) handleScrollTick(pos float64, direction int, velocity float64, reliable bool) {
	e.mu.Lock()
	if e.destroyed {
		e.mu.Unlock()
		return
	}
	e.state.ScrollPos = pos
	e.vp.Compute(&e.state)
	rr := e.state.RenderRange
	e.mu.Unlock()

	e.bus.Emit(events.Event{Type: events.TypeScroll, Payload: pos})
	e.bus.Emit(events.Event{Type: events.TypeRangeChange, Payload: rr})

	if e.sched == nil || !reliable {
		return
	}
	shouldLoad, shouldPreload := e.sched.OnVelocityTick(velocity)
	if !shouldLoad {
		return
	}
	ctx := context.Background()
	_ = e.sched.EnsureRange(ctx, rr)
	if shouldPreload {
		_ = e.sched.LoadMore(ctx, rr, direction)
	}
}

func (e *Engine[T]) handleIdle() {
	e.mu.RLock()
	destroyed := e.destroyed
	vis := e.state.VisibleRange
	e.mu.RUnlock()
	if destroyed || e.sched == nil {
		return
	}
	_ = e.sched.EnsureRange(context.Background(), vis)
	e.evictDistant()
}

func (e *Engine[T]) evictDistant() {
	e.mu.RLock()
	vis := e.state.VisibleRange
	e.mu.RUnlock()
	e.store.EvictDistant(vis.Start, vis.End)
}

// SetItems replaces the entire item list in place, grounded locally (not
// through the adapter scheduler). In Reverse mode the engine starts scrolled
// to the end, chat-style (spec.md §6 "reverse").
func (e *Engine[T]) SetItems(items []item.Item[T]) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.destroyed {
		return
	}
	e.store.Clear()
	e.store.SetTotal(len(items))
	e.store.SetRange(0, items)
	e.sizes.Rebuild(len(items))
	e.vp.Total = len(items)
	e.refreshSelectionIndexLocked(items)
	e.vp.Compute(&e.state)

	if e.cfg.Reverse {
		e.setScrollPosLocked(e.maxScrollLocked())
	}
}

// maxScrollLocked returns the furthest valid scroll position given the
// current total and container size. Callers must hold e.mu.
func (e *Engine[T]) maxScrollLocked() float64 {
	m := e.state.TotalSize - e.state.ContainerSize
	if m < 0 {
		return 0
	}
	return m
}

// isAtBottomLocked reports whether the current scroll position is at (or
// within half a unit of) the current bottom. Callers must hold e.mu.
func (e *Engine[T]) isAtBottomLocked() bool {
	return e.state.ScrollPos >= e.maxScrollLocked()-0.5
}

// setScrollPosLocked sets both the scroll controller's and the viewport
// state's position and recomputes the render range. Callers must hold e.mu.
func (e *Engine[T]) setScrollPosLocked(pos float64) {
	e.scroller.ScrollTo(pos)
	e.state.ScrollPos = pos
	e.vp.Compute(&e.state)
}

// AppendItems adds items to the end of the list. In Reverse mode, if the
// caller was already scrolled to the bottom, the view auto-sticks to the new
// bottom (spec.md §6 "reverse", §8 scenario 4); otherwise the scroll
// position is left unchanged.
func (e *Engine[T]) AppendItems(items []item.Item[T]) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.destroyed {
		return
	}
	wasAtBottom := e.cfg.Reverse && e.isAtBottomLocked()

	offset := e.store.TotalItems()
	e.store.SetRange(offset, items)
	e.sizes.Rebuild(e.store.TotalItems())
	e.vp.Total = e.store.TotalItems()
	e.vp.Compute(&e.state)

	if wasAtBottom {
		e.setScrollPosLocked(e.maxScrollLocked())
	}
}

// PrependItems adds items to the start of the list, shifting every existing
// index forward by len(items) (spec.md §8 "reverse-mode prepend").
func (e *Engine[T]) PrependItems(items []item.Item[T]) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.destroyed {
		return
	}
	n := len(items)
	if n == 0 {
		return
	}
	old := e.store.GetLoadedRanges()
	shifted := make(map[int]item.Item[T])
	for _, r := range old {
		for i := r.Start; i <= r.End; i++ {
			if v, ok := e.store.Get(i); ok {
				shifted[i+n] = v
			}
		}
	}
	e.store.Clear()
	e.store.SetTotal(e.store.TotalItems() + n)
	e.store.SetRange(0, items)
	for idx, v := range shifted {
		e.store.Set(idx, v)
	}
	e.sizes.Rebuild(e.store.TotalItems())
	e.vp.Total = e.store.TotalItems()

	if e.cfg.Reverse {
		// Preserve the visible content: advance scroll position by the
		// prepended height so the visually anchored item doesn't jump
		// (spec.md §6 "reverse", §8 scenario 5).
		e.setScrollPosLocked(e.state.ScrollPos + e.sizes.OffsetOf(n))
	} else {
		e.vp.Compute(&e.state)
	}
}

// UpdateItem replaces the item at index i in place.
func (e *Engine[T]) UpdateItem(i int, it item.Item[T]) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.destroyed {
		return
	}
	e.store.Set(i, it)
}

// RemoveItem deletes the item at index i and shifts everything after it
// back by one.
func (e *Engine[T]) RemoveItem(i int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.destroyed {
		return
	}
	total := e.store.TotalItems()
	if i < 0 || i >= total {
		return
	}
	shifted := make(map[int]item.Item[T])
	for idx := 0; idx < total; idx++ {
		if idx == i {
			continue
		}
		if v, ok := e.store.Get(idx); ok {
			dst := idx
			if idx > i {
				dst = idx - 1
			}
			shifted[dst] = v
		}
	}
	e.store.Clear()
	e.store.SetTotal(total - 1)
	for idx, v := range shifted {
		e.store.Set(idx, v)
	}
	e.sizes.Rebuild(e.store.TotalItems())
	e.vp.Total = e.store.TotalItems()
}

// GetItem returns the item at index i, if loaded.
func (e *Engine[T]) GetItem(i int) (item.Item[T], bool) {
	return e.store.Get(i)
}

// GetItemByID scans loaded ranges for an item whose ID matches id.
func (e *Engine[T]) GetItemByID(id string) (item.Item[T], int, bool) {
	for _, r := range e.store.GetLoadedRanges() {
		for i := r.Start; i <= r.End; i++ {
			if v, ok := e.store.Get(i); ok && v.ID == id {
				return v, i, true
			}
		}
	}
	var zero item.Item[T]
	return zero, -1, false
}

// GetIndexByID returns the index of the item with the given id, or -1.
func (e *Engine[T]) GetIndexByID(id string) int {
	_, idx, ok := e.GetItemByID(id)
	if !ok {
		return -1
	}
	return idx
}

func (e *Engine[T]) refreshSelectionIndexLocked(items []item.Item[T]) {
	rowToID := make(map[int]string, len(items))
	for i, it := range items {
		rowToID[i] = it.ID
	}
	e.sel.SetIndex(rowToID)
	e.sel.RestoreByIdentity()
}

// HandleResize updates the container size and recomputes the viewport.
func (e *Engine[T]) HandleResize(size float64) {
	e.mu.Lock()
	e.containerSize = size
	e.state.ContainerSize = size
	e.vp.Compute(&e.state)
	rr := e.state.RenderRange
	e.mu.Unlock()
	e.bus.Emit(events.Event{Type: events.TypeResize, Payload: size})
	e.bus.Emit(events.Event{Type: events.TypeRangeChange, Payload: rr})
}

// HandleScroll feeds a raw scroll position into the controller, which
// updates velocity tracking, idle detection, and kicks off fetches.
func (e *Engine[T]) HandleScroll(pos float64, now time.Time) {
	e.scroller.HandleEvent(pos, now)
}

// GetScrollPosition returns the current scroll position.
func (e *Engine[T]) GetScrollPosition() float64 { return e.scroller.Position() }

// CancelScroll aborts an in-flight smooth scroll-to animation.
func (e *Engine[T]) CancelScroll() { e.scroller.CancelScroll() }

// ScrollToIndex jumps directly to index i, aligned within the container per
// align (spec.md §6 "scrollToIndex").
func (e *Engine[T]) ScrollToIndex(i int, align Align) {
	pos := e.positionForAlign(i, align)
	e.scroller.ScrollTo(pos)
	e.mu.Lock()
	e.state.ScrollPos = pos
	e.vp.Compute(&e.state)
	e.mu.Unlock()
}

// ScrollToIndexSmooth animates to index i over duration using ease,
// cancellable via ctx (spec.md §6 "scrollToIndexSmooth").
func (e *Engine[T]) ScrollToIndexSmooth(ctx context.Context, i int, align Align, duration time.Duration, ease easing.Func) error {
	pos := e.positionForAlign(i, align)
	return e.scroller.ScrollToSmooth(ctx, pos, duration, ease, func(p float64) {
		e.mu.Lock()
		e.state.ScrollPos = p
		e.vp.Compute(&e.state)
		e.mu.Unlock()
	})
}

func (e *Engine[T]) positionForAlign(i int, align Align) float64 {
	e.mu.RLock()
	container := e.state.ContainerSize
	e.mu.RUnlock()

	top := e.sizes.OffsetOf(i)
	size := e.sizes.SizeOf(i)
	switch align {
	case AlignCenter:
		return top - (container-size)/2
	case AlignEnd:
		return top - container + size
	case AlignNearest:
		e.mu.RLock()
		cur := e.state.ScrollPos
		e.mu.RUnlock()
		if top < cur {
			return top
		}
		if top+size > cur+container {
			return top + size - container
		}
		return cur
	default:
		return top
	}
}

// GetScrollSnapshot captures the anchor item and its sub-item offset, so
// RestoreScroll can put the viewport back where it was even if item sizes
// changed in between (spec.md §6).
func (e *Engine[T]) GetScrollSnapshot() Snapshot {
	e.mu.RLock()
	defer e.mu.RUnlock()
	anchor := e.sizes.IndexAtOffset(e.state.ScrollPos)
	offset := e.state.ScrollPos - e.sizes.OffsetOf(anchor)
	if offset < 0 {
		offset = 0
	}
	return Snapshot{AnchorIndex: anchor, OffsetInItem: offset}
}

// RestoreScroll re-derives a scroll position from a previously captured
// Snapshot, clamping the offset to the anchor item's current size in case
// it changed since the snapshot was taken.
func (e *Engine[T]) RestoreScroll(s Snapshot) {
	size := e.sizes.SizeOf(s.AnchorIndex)
	offset := s.OffsetInItem
	if offset > size {
		offset = size
	}
	pos := e.sizes.OffsetOf(s.AnchorIndex) + offset
	e.scroller.ScrollTo(pos)
	e.mu.Lock()
	e.state.ScrollPos = pos
	e.vp.Compute(&e.state)
	e.mu.Unlock()
}

// Select marks the item at row as selected.
func (e *Engine[T]) Select(row int) {
	it, ok := e.store.Get(row)
	if !ok {
		return
	}
	e.sel.Select(row, it.ID)
	e.bus.Emit(events.Event{Type: events.TypeSelectionChange, Payload: e.sel.Selected()})
}

// GetSelected returns the currently selected item ids.
func (e *Engine[T]) GetSelected() []string { return e.sel.Selected() }

// ClearSelection empties the current selection.
func (e *Engine[T]) ClearSelection() {
	e.sel.Clear()
	e.bus.Emit(events.Event{Type: events.TypeSelectionChange, Payload: []string{}})
}

// On subscribes to an engine event; see the events package for types.
func (e *Engine[T]) On(t events.Type, h events.Handler) any { return e.bus.On(t, h) }

// Off unsubscribes a handler returned by On.
func (e *Engine[T]) Off(token any) { e.bus.Off(token) }

// Render recomputes the viewport (including scale-engine compression, when
// active) and returns the recycler slots for the current render range
// (spec.md §4.5, §6 "render"). Destroyed engines return nil.
func (e *Engine[T]) Render(tmpl recycler.TemplateFunc[T]) []*recycler.Slot[T] {
	e.mu.Lock()
	if e.destroyed {
		e.mu.Unlock()
		return nil
	}
	total := e.store.TotalItems()
	actualSize := e.sizes.TotalSize()
	st := e.scale.Recompute(actualSize)
	e.vp.Total = total
	e.vp.Compute(&e.state)
	rr := e.state.RenderRange
	e.state.IsCompressed = st.Active
	e.mu.Unlock()

	e.pool.Release(rr)

	slots := make([]*recycler.Slot[T], 0, rr.Len())
	for i := rr.Start; i <= rr.End; i++ {
		it, ok := e.store.Get(i)
		if !ok {
			it = item.NewPlaceholder[T](fmt.Sprintf("placeholder-%d", i))
		}
		pos := e.positionForRender(i, st)
		size := e.sizes.SizeOf(i)
		slots = append(slots, e.pool.Render(i, it, pos, size, total, tmpl))
	}
	return slots
}

func (e *Engine[T]) positionForRender(i int, st scale.State) float64 {
	if !st.Active {
		return e.sizes.OffsetOf(i) - e.state.ScrollPos
	}
	i0 := e.scale.AnchorIndex(e.sizes, e.state.ScrollPos)
	firstItemPos := e.scale.AnchorPosition(e.sizes, i0, e.state.ScrollPos)
	return e.scale.PositionOf(e.sizes, i0, firstItemPos, i)
}

// Destroy marks the engine destroyed, stops the scroll controller's idle
// timer and any smooth scroll, and waits for in-flight fetches. Afterwards
// SetItems, AppendItems, PrependItems, UpdateItem, RemoveItem and Render do
// nothing (Render returns nil), and scroll and idle callbacks are ignored.
// Select, ClearSelection, HandleResize, HandleScroll, ScrollToIndex,
// ScrollToIndexSmooth and RestoreScroll are not guarded, and cached items
// stay in the store. Calling Destroy again is a no-op.
func (e *Engine[T]) Destroy() {
	e.mu.Lock()
	if e.destroyed {
		e.mu.Unlock()
		return
	}
	e.destroyed = true
	e.mu.Unlock()

	e.scroller.Destroy()
	if e.sched != nil {
		e.sched.FlushPending()
	}
}
