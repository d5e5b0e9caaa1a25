// Package sizecache implements the size cache (spec.md §4.1, component A): a
// prefix-sum over declared item sizes supporting O(1) offset-at-index and
// O(log n) index-at-offset. Grounded on the teacher's performance package,
// which already tracked viewport math over a row count; this generalizes
// that to non-uniform, declared (not measured) sizes.
package sizecache

import "sort"

// SizeFunc declares the size of the item at index i. It must be a pure
// function of the index (spec.md §1 Non-goals: sizes are declared, never
// measured from rendered output).
type SizeFunc func(i int) float64

// Cache holds the prefix-sum vector P, where P[0]=0 and P[i+1]=P[i]+size(i).
type Cache struct {
	sizeFn SizeFunc
	n      int
	prefix []float64
}

// NewConstant builds a cache whose declared size is the same for every item.
func NewConstant(size float64) *Cache {
	return New(func(int) float64 { return size })
}

// New builds a cache from an arbitrary declared size function. Call Rebuild
// to size it for a given item count.
func New(fn SizeFunc) *Cache {
	return &Cache{sizeFn: fn, prefix: []float64{0}}
}

// SetSizeFunc replaces the declared size function. Callers must Rebuild
// afterward; the prefix sum is left stale until they do; this mirrors
// spec.md's invariant that P reflects current declared sizes exactly and is
// only rebuilt on a size-function or total-count change, not on every read.
func (c *Cache) SetSizeFunc(fn SizeFunc) {
	c.sizeFn = fn
}

// Rebuild recomputes the prefix-sum vector for n items. A rebuild with the
// same size function and the same n yields an identical P, since sizeFn is
// pure (spec.md §4.1 invariants).
func (c *Cache) Rebuild(n int) {
	if n < 0 {
		n = 0
	}
	c.n = n
	prefix := make([]float64, n+1)
	for i := 0; i < n; i++ {
		prefix[i+1] = prefix[i] + c.sizeOf(i)
	}
	c.prefix = prefix
}

func (c *Cache) sizeOf(i int) float64 {
	if c.sizeFn == nil {
		return 0
	}
	s := c.sizeFn(i)
	if s < 0 {
		s = 0
	}
	return s
}

// Count returns the number of items the cache is currently sized for.
func (c *Cache) Count() int { return c.n }

// OffsetOf returns P[i], the offset of the top of item i. O(1).
func (c *Cache) OffsetOf(i int) float64 {
	if i < 0 {
		return 0
	}
	if i > c.n {
		i = c.n
	}
	return c.prefix[i]
}

// SizeOf returns the declared size of item i.
func (c *Cache) SizeOf(i int) float64 {
	if i < 0 || i >= c.n {
		return 0
	}
	return c.prefix[i+1] - c.prefix[i]
}

// TotalSize returns P[n], the sum of all declared sizes.
func (c *Cache) TotalSize() float64 {
	return c.prefix[len(c.prefix)-1]
}

// IndexAtOffset returns the index i such that P[i] <= y < P[i+1], via binary
// search over the prefix vector. Returns 0 for y <= 0 and n-1 for y >= P[n]
// (spec.md §4.1).
func (c *Cache) IndexAtOffset(y float64) int {
	if c.n <= 0 {
		return 0
	}
	if y <= 0 {
		return 0
	}
	if y >= c.prefix[c.n] {
		return c.n - 1
	}
	// sort.Search finds the smallest i such that prefix[i+1] > y, i.e. the
	// first index whose item ends after y — that index is the item
	// containing y.
	i := sort.Search(c.n, func(i int) bool {
		return c.prefix[i+1] > y
	})
	if i >= c.n {
		i = c.n - 1
	}
	return i
}
