package sizecache

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConstantCacheOffsets(t *testing.T) {
	c := NewConstant(64)
	c.Rebuild(10000)

	require.Equal(t, float64(0), c.OffsetOf(0))
	require.Equal(t, float64(64), c.OffsetOf(1))
	require.Equal(t, float64(640), c.OffsetOf(10))
	require.Equal(t, float64(10000*64), c.TotalSize())
}

func TestIndexAtOffsetRoundTrip(t *testing.T) {
	c := NewConstant(64)
	c.Rebuild(10000)

	for i := 0; i < c.Count(); i += 137 {
		off := c.OffsetOf(i)
		assert.Equal(t, i, c.IndexAtOffset(off), "round trip at index %d", i)
	}
}

func TestIndexAtOffsetBounds(t *testing.T) {
	c := NewConstant(64)
	c.Rebuild(100)

	assert.Equal(t, 0, c.IndexAtOffset(-50))
	assert.Equal(t, 0, c.IndexAtOffset(0))
	assert.Equal(t, 99, c.IndexAtOffset(c.TotalSize()))
	assert.Equal(t, 99, c.IndexAtOffset(c.TotalSize()+1000))
}

func TestVariableSizeFunc(t *testing.T) {
	fn := func(i int) float64 {
		if i%2 == 0 {
			return 20
		}
		return 40
	}
	c := New(fn)
	c.Rebuild(6)

	// offsets: 0, 20, 60, 80, 120, 140, total 180
	assert.Equal(t, float64(0), c.OffsetOf(0))
	assert.Equal(t, float64(20), c.OffsetOf(1))
	assert.Equal(t, float64(60), c.OffsetOf(2))
	assert.Equal(t, float64(180), c.TotalSize())

	for i := 0; i < 6; i++ {
		assert.Equal(t, i, c.IndexAtOffset(c.OffsetOf(i)+0.5))
	}
}

func TestRebuildIsDeterministic(t *testing.T) {
	calls := 0
	fn := func(i int) float64 {
		calls++
		return float64(i%5 + 1)
	}
	c := New(fn)
	c.Rebuild(50)
	first := append([]float64(nil), c.prefix...)

	c.Rebuild(50)
	assert.Equal(t, first, c.prefix)
}

func TestNegativeSizeClampedToZero(t *testing.T) {
	c := New(func(i int) float64 { return -5 })
	c.Rebuild(10)
	assert.Equal(t, float64(0), c.TotalSize())
	for i := 0; i < 10; i++ {
		assert.Equal(t, float64(0), c.SizeOf(i))
	}
}

func TestPrefixNonDecreasing(t *testing.T) {
	c := NewConstant(0)
	c.SetSizeFunc(func(i int) float64 { return float64(i % 3) })
	c.Rebuild(30)
	last := -1.0
	for i := 0; i <= c.Count(); i++ {
		v := c.OffsetOf(i)
		assert.GreaterOrEqual(t, v, last)
		last = v
	}
}
