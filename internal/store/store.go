// Package store implements the sparse data store (spec.md §4.2, component B):
// chunked, LRU-bounded storage for item counts far larger than RAM budgets.
// The chunking and LRU-eviction bookkeeping is grounded on the teacher's
// internal/k8s/cache.go ResourceCache, generalized from per-resource-type
// maps keyed by string to a single generic chunk array keyed by index.
package store

import (
	"sync"
	"time"

	"github.com/rowvirt/vlist/internal/item"
)

// DefaultChunkWidth is the fixed slot-array width described in spec.md §3.
const DefaultChunkWidth = 100

// DefaultEvictBuffer is the distance-based eviction buffer (spec.md §4.2).
const DefaultEvictBuffer = 200

// DefaultCap is the cached-item count above which eviction kicks in.
const DefaultCap = 5000

type chunk[T any] struct {
	slots      []*item.Item[T]
	count      int
	lastAccess time.Time
}

func newChunk[T any](width int) *chunk[T] {
	return &chunk[T]{slots: make([]*item.Item[T], width)}
}

// Store is the sparse, chunked item store.
type Store[T any] struct {
	mu          sync.Mutex
	chunkWidth  int
	evictBuffer int
	cap         int
	total       int
	chunks      map[int]*chunk[T]
	cachedCount int
}

// Option configures a Store at construction.
type Option[T any] func(*Store[T])

// WithChunkWidth overrides DefaultChunkWidth.
func WithChunkWidth[T any](w int) Option[T] {
	return func(s *Store[T]) {
		if w > 0 {
			s.chunkWidth = w
		}
	}
}

// WithCap overrides DefaultCap.
func WithCap[T any](cap int) Option[T] {
	return func(s *Store[T]) {
		if cap > 0 {
			s.cap = cap
		}
	}
}

// WithEvictBuffer overrides DefaultEvictBuffer.
func WithEvictBuffer[T any](buf int) Option[T] {
	return func(s *Store[T]) {
		if buf >= 0 {
			s.evictBuffer = buf
		}
	}
}

// New constructs an empty Store.
func New[T any](opts ...Option[T]) *Store[T] {
	s := &Store[T]{
		chunkWidth:  DefaultChunkWidth,
		evictBuffer: DefaultEvictBuffer,
		cap:         DefaultCap,
		chunks:      make(map[int]*chunk[T]),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *Store[T]) chunkIndex(i int) int { return i / s.chunkWidth }
func (s *Store[T]) slotIndex(i int) int  { return i % s.chunkWidth }

// SetTotal declares the virtual length. It does not allocate anything.
func (s *Store[T]) SetTotal(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n < 0 {
		n = 0
	}
	s.total = n
}

// Clear discards every cached item without changing the declared total
// (spec.md §4.3 "reload drops all cached data and refetches").
func (s *Store[T]) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.chunks = make(map[int]*chunk[T])
	s.cachedCount = 0
}

// TotalItems returns the declared virtual length.
func (s *Store[T]) TotalItems() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.total
}

// Set writes a single item at index i, creating its chunk on demand.
func (s *Store[T]) Set(i int, it item.Item[T]) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.setLocked(i, it, time.Now())
	if i+1 > s.total {
		s.total = i + 1
	}
}

// SetRange writes a contiguous slice of items starting at offset.
func (s *Store[T]) SetRange(offset int, items []item.Item[T]) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	for k, it := range items {
		s.setLocked(offset+k, it, now)
	}
	if offset+len(items) > s.total {
		s.total = offset + len(items)
	}
}

func (s *Store[T]) setLocked(i int, it item.Item[T], now time.Time) {
	if i < 0 {
		return
	}
	ci := s.chunkIndex(i)
	si := s.slotIndex(i)
	c, ok := s.chunks[ci]
	if !ok {
		c = newChunk[T](s.chunkWidth)
		s.chunks[ci] = c
	}
	v := it
	if c.slots[si] == nil {
		c.count++
		s.cachedCount++
	}
	c.slots[si] = &v
	c.lastAccess = now
}

// Get returns the item at index i, if loaded.
func (s *Store[T]) Get(i int) (item.Item[T], bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i < 0 {
		return item.Item[T]{}, false
	}
	ci := s.chunkIndex(i)
	c, ok := s.chunks[ci]
	if !ok {
		return item.Item[T]{}, false
	}
	v := c.slots[s.slotIndex(i)]
	if v == nil {
		return item.Item[T]{}, false
	}
	c.lastAccess = time.Now()
	return *v, true
}

// Delete removes the item at index i, dropping its chunk if it becomes
// empty. Returns whether anything was removed.
func (s *Store[T]) Delete(i int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i < 0 {
		return false
	}
	ci := s.chunkIndex(i)
	c, ok := s.chunks[ci]
	if !ok {
		return false
	}
	si := s.slotIndex(i)
	if c.slots[si] == nil {
		return false
	}
	c.slots[si] = nil
	c.count--
	s.cachedCount--
	if c.count == 0 {
		delete(s.chunks, ci)
	}
	return true
}

// CachedCount returns the total number of loaded items across all chunks.
func (s *Store[T]) CachedCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cachedCount
}

// IsRangeLoaded reports whether every index in [a,b] holds an item.
func (s *Store[T]) IsRangeLoaded(a, b int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if b < a {
		return true
	}
	for i := a; i <= b; i++ {
		ci := s.chunkIndex(i)
		c, ok := s.chunks[ci]
		if !ok || c.slots[s.slotIndex(i)] == nil {
			return false
		}
	}
	return true
}

// GetLoadedRanges returns the maximal ordered set of maximal contiguous
// loaded index ranges (spec.md §3 "Loaded-range set").
func (s *Store[T]) GetLoadedRanges() []item.Range {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadedRangesLocked(0, s.total-1)
}

func (s *Store[T]) loadedRangesLocked(lo, hi int) []item.Range {
	var ranges []item.Range
	if hi < lo {
		return ranges
	}
	inRun := false
	runStart := 0
	for i := lo; i <= hi; i++ {
		ci := s.chunkIndex(i)
		c, ok := s.chunks[ci]
		loaded := ok && c.slots[s.slotIndex(i)] != nil
		switch {
		case loaded && !inRun:
			inRun = true
			runStart = i
		case !loaded && inRun:
			inRun = false
			ranges = append(ranges, item.Range{Start: runStart, End: i - 1})
		}
	}
	if inRun {
		ranges = append(ranges, item.Range{Start: runStart, End: hi})
	}
	return ranges
}

// FindUnloadedRanges computes the aligned, chunk-boundary missing ranges
// covering [a,b] that are not currently loaded (spec.md §4.2
// "Missing-range computation"). a is rounded down and b+1 rounded up to
// chunk boundaries before subtracting the loaded union, so fetches always
// come back in chunk-sized units.
func (s *Store[T]) FindUnloadedRanges(a, b int) []item.Range {
	s.mu.Lock()
	defer s.mu.Unlock()
	if b < a {
		return nil
	}
	alignedStart := (a / s.chunkWidth) * s.chunkWidth
	alignedEndExclusive := ((b + s.chunkWidth) / s.chunkWidth) * s.chunkWidth
	alignedEnd := alignedEndExclusive - 1
	if alignedEnd >= s.total && s.total > 0 {
		alignedEnd = s.total - 1
	}
	if alignedEnd < alignedStart {
		return nil
	}

	loaded := s.loadedRangesLocked(alignedStart, alignedEnd)
	var missing []item.Range
	cursor := alignedStart
	for _, lr := range loaded {
		if lr.Start > cursor {
			missing = append(missing, item.Range{Start: cursor, End: lr.Start - 1})
		}
		cursor = lr.End + 1
	}
	if cursor <= alignedEnd {
		missing = append(missing, item.Range{Start: cursor, End: alignedEnd})
	}
	return alignChunks(missing, s.chunkWidth, alignedEnd)
}

// alignChunks re-expresses each gap range as one or more chunk-aligned
// ranges so callers fetch whole chunks even when a gap straddles a chunk
// boundary only partially. gaps must be in ascending order; each chunk is
// emitted at most once, and no range extends past last.
func alignChunks(gaps []item.Range, width, last int) []item.Range {
	var out []item.Range
	next := 0 // first index not yet covered by out
	for _, g := range gaps {
		start := (g.Start / width) * width
		if start < next {
			start = next
		}
		for start <= g.End {
			end := start + width - 1
			if end > last {
				end = last
			}
			out = append(out, item.Range{Start: start, End: end})
			start += width
		}
		next = start
	}
	return out
}

// EvictDistant drops chunks entirely outside [visStart-buffer, visEnd+buffer]
// provided the cached count exceeds cap. Returns the number of items
// evicted.
func (s *Store[T]) EvictDistant(visStart, visEnd int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cachedCount <= s.cap {
		return 0
	}
	lo := visStart - s.evictBuffer
	hi := visEnd + s.evictBuffer
	evicted := 0
	for ci, c := range s.chunks {
		chunkStart := ci * s.chunkWidth
		chunkEnd := chunkStart + s.chunkWidth - 1
		if chunkEnd < lo || chunkStart > hi {
			evicted += c.count
			s.cachedCount -= c.count
			delete(s.chunks, ci)
		}
	}
	return evicted
}

// EvictToLimit drops the least-recently-accessed chunks until the cached
// count is at or below cap.
func (s *Store[T]) EvictToLimit() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	evicted := 0
	for s.cachedCount > s.cap && len(s.chunks) > 0 {
		var oldestCI int
		var oldestTime time.Time
		first := true
		for ci, c := range s.chunks {
			if first || c.lastAccess.Before(oldestTime) {
				oldestCI = ci
				oldestTime = c.lastAccess
				first = false
			}
		}
		c := s.chunks[oldestCI]
		evicted += c.count
		s.cachedCount -= c.count
		delete(s.chunks, oldestCI)
	}
	return evicted
}
