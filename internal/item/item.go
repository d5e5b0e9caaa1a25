// Package item defines the data types shared by every vlist subsystem: the
// opaque item record, its placeholder variant, and the inclusive index range
// used throughout the size cache, sparse store, viewport, and recycler.
package item

import "fmt"

// Item is an opaque record carrying a stable identity (ID) plus whatever
// payload the host application cares about (Data). The engine never inspects
// Data; it is only ever handed to the user-supplied template function.
//
// A Placeholder item carries the same identity shape as a real item plus the
// Placeholder discriminant marking it as "not yet loaded" (spec.md §3,
// "Placeholder item"). Per DESIGN.md this keeps the source's boolean-flag
// scheme rather than a tagged union, since Go's zero value for Data already
// behaves like the "no payload yet" case without needing a second type.
type Item[T any] struct {
	ID          string
	Data        T
	Placeholder bool
}

// NewPlaceholder builds a placeholder item with id as its identity.
// Engine.Render uses this for every index in the render range that has no
// loaded data yet.
func NewPlaceholder[T any](id string) Item[T] {
	return Item[T]{ID: id, Placeholder: true}
}

// Range is an inclusive pair of item indices. End < Start encodes the empty
// range (spec.md §3).
type Range struct {
	Start int
	End   int
}

// Empty reports whether the range contains no indices.
func (r Range) Empty() bool { return r.End < r.Start }

// Len returns the number of indices the range covers.
func (r Range) Len() int {
	if r.Empty() {
		return 0
	}
	return r.End - r.Start + 1
}

// Contains reports whether i falls within the range.
func (r Range) Contains(i int) bool {
	return !r.Empty() && i >= r.Start && i <= r.End
}

// Widen expands the range by n on both sides, without clamping.
func (r Range) Widen(n int) Range {
	if r.Empty() {
		return r
	}
	return Range{Start: r.Start - n, End: r.End + n}
}

// Clamp restricts the range to [lo, hi]. If the range falls entirely outside
// [lo, hi], or lo > hi, the result is empty.
func (r Range) Clamp(lo, hi int) Range {
	if r.Empty() || hi < lo {
		return Range{Start: 0, End: -1}
	}
	start := r.Start
	end := r.End
	if start < lo {
		start = lo
	}
	if end > hi {
		end = hi
	}
	if start > end {
		return Range{Start: 0, End: -1}
	}
	return Range{Start: start, End: end}
}

// Intersects reports whether the two ranges share at least one index.
func (r Range) Intersects(o Range) bool {
	if r.Empty() || o.Empty() {
		return false
	}
	return r.Start <= o.End && o.Start <= r.End
}

// Intersect returns the overlapping portion of the two ranges (empty if
// none).
func (r Range) Intersect(o Range) Range {
	if !r.Intersects(o) {
		return Range{Start: 0, End: -1}
	}
	start := r.Start
	if o.Start > start {
		start = o.Start
	}
	end := r.End
	if o.End < end {
		end = o.End
	}
	return Range{Start: start, End: end}
}

func (r Range) String() string {
	if r.Empty() {
		return "[]"
	}
	return fmt.Sprintf("[%d,%d]", r.Start, r.End)
}
