// Package viewport implements the viewport state computation (spec.md §4.4,
// component D): pure mapping from scroll position and declared sizes to the
// visible and render index ranges. Adapted from the teacher's
// internal/components/performance.ViewportManager, which computed the same
// visible/render split over a fixed row height; here the split is driven by
// a sizecache.Cache so non-uniform sizes are supported, and all scrolling,
// caching, and velocity concerns the teacher mixed in are pulled out into
// their own packages (scroll, recycler) to keep this component pure, per
// spec.md §4.4 ("All functions are pure").
package viewport

import "github.com/rowvirt/vlist/internal/item"

// Sizes is the subset of sizecache.Cache the viewport needs. Declaring it as
// an interface here (rather than importing sizecache directly) keeps this
// package the leaf the spec's component diagram implies, and lets tests use
// a minimal fake.
type Sizes interface {
	IndexAtOffset(y float64) int
	OffsetOf(i int) float64
	TotalSize() float64
}

// State is the engine's single mutable viewport record (spec.md §3
// "Viewport state"). The engine owns one instance and overwrites it in
// place on every scroll tick to avoid allocation.
type State struct {
	ScrollPos     float64
	ContainerSize float64
	TotalSize     float64
	VisibleRange  item.Range
	RenderRange   item.Range
	IsCompressed  bool
}

// Computer holds the parameters (size cache, overscan, total item count)
// needed to compute viewport state. It is itself stateless beyond those
// parameters; Compute is a pure function of its arguments plus State's
// ScrollPos/ContainerSize fields.
type Computer struct {
	Sizes    Sizes
	Overscan int
	Total    int
}

// Compute recomputes VisibleRange, RenderRange, TotalSize, and IsCompressed
// in st from st.ScrollPos and st.ContainerSize, per spec.md §4.4:
//
//	visibleRange.start = indexAtOffset(scrollTop)
//	visibleRange.end   = indexAtOffset(scrollTop + containerSize), +1 if not last
//	renderRange        = clamp(widen(visibleRange, overscan), [0, n-1])
func (c *Computer) Compute(st *State) {
	st.TotalSize = c.Sizes.TotalSize()
	st.IsCompressed = false // the scale engine sets this when it takes over

	n := c.Total
	if n <= 0 {
		st.VisibleRange = item.Range{Start: 0, End: -1}
		st.RenderRange = item.Range{Start: 0, End: -1}
		return
	}

	start := c.Sizes.IndexAtOffset(st.ScrollPos)
	// indexAtOffset already resolves the bottom-edge offset using the
	// left-inclusive convention P[i] <= y < P[i+1], so an offset landing
	// exactly on an item boundary (e.g. a container height that is an exact
	// multiple of the item size) resolves forward into the next item —
	// which is precisely the "+1 if not last" widening spec.md §4.4
	// describes; computing it via a second, strict-inequality lookup and
	// adding 1 would double that widening, so no further adjustment is
	// applied here.
	end := c.Sizes.IndexAtOffset(st.ScrollPos + st.ContainerSize)
	visible := item.Range{Start: start, End: end}.Clamp(0, n-1)
	st.VisibleRange = visible

	st.RenderRange = visible.Widen(c.Overscan).Clamp(0, n-1)
}
