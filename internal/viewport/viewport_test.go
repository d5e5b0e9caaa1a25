package viewport

import (
	"testing"

	"github.com/rowvirt/vlist/internal/sizecache"
	"github.com/stretchr/testify/assert"
)

func newComputer(n, overscan int, itemSize float64) *Computer {
	sizes := sizecache.NewConstant(itemSize)
	sizes.Rebuild(n)
	return &Computer{Sizes: sizes, Overscan: overscan, Total: n}
}

// TestStaticListExactBounds reproduces spec.md §8 scenario 1 verbatim.
func TestStaticListExactBounds(t *testing.T) {
	c := newComputer(10000, 3, 64)

	st := &State{ScrollPos: 0, ContainerSize: 512}
	c.Compute(st)
	assert.Equal(t, 0, st.VisibleRange.Start)
	assert.Equal(t, 8, st.VisibleRange.End)
	assert.Equal(t, 0, st.RenderRange.Start)
	assert.Equal(t, 11, st.RenderRange.End)

	st2 := &State{ScrollPos: 640, ContainerSize: 512}
	c.Compute(st2)
	assert.Equal(t, 10, st2.VisibleRange.Start)
	assert.Equal(t, 18, st2.VisibleRange.End)
	assert.Equal(t, 7, st2.RenderRange.Start)
	assert.Equal(t, 21, st2.RenderRange.End)
}

func TestRenderRangeClampsToBounds(t *testing.T) {
	c := newComputer(10, 3, 64)
	st := &State{ScrollPos: 0, ContainerSize: 64}
	c.Compute(st)
	assert.Equal(t, 0, st.RenderRange.Start)
	assert.LessOrEqual(t, st.RenderRange.End, 9)

	st2 := &State{ScrollPos: c.Sizes.TotalSize() - 64, ContainerSize: 64}
	c.Compute(st2)
	assert.Equal(t, 9, st2.VisibleRange.End)
	assert.LessOrEqual(t, st2.RenderRange.End, 9)
}

func TestEmptyListProducesEmptyRanges(t *testing.T) {
	c := newComputer(0, 3, 64)
	st := &State{ScrollPos: 0, ContainerSize: 512}
	c.Compute(st)
	assert.True(t, st.VisibleRange.Empty())
	assert.True(t, st.RenderRange.Empty())
}

// TestCoverageNoGapsNoDuplicates is a light property check (spec.md §8): for
// many scroll positions, every item intersecting the viewport is within the
// computed visible range, and the visible range never exceeds total bounds.
func TestCoverageNoGapsNoDuplicates(t *testing.T) {
	n := 5000
	c := newComputer(n, 2, 37)
	total := c.Sizes.TotalSize()
	for pos := 0.0; pos < total; pos += 911 {
		st := &State{ScrollPos: pos, ContainerSize: 400}
		c.Compute(st)
		assert.False(t, st.VisibleRange.Empty())
		assert.GreaterOrEqual(t, st.VisibleRange.Start, 0)
		assert.LessOrEqual(t, st.VisibleRange.End, n-1)
		assert.LessOrEqual(t, st.VisibleRange.Start, st.VisibleRange.End)

		// every item whose box intersects [pos, pos+400] must be within the
		// visible range
		firstVisibleByOffset := c.Sizes.IndexAtOffset(pos)
		assert.LessOrEqual(t, st.VisibleRange.Start, firstVisibleByOffset)
	}
}
