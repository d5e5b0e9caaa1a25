// Package recycler implements the DOM-recycler-equivalent renderer (spec.md
// §4.5, component G): a pool of reusable slots that are restamped with new
// item data each frame instead of being torn down and rebuilt, plus a
// content-hash keyed render cache so an unchanged item in an unchanged slot
// never re-runs its template function. The pool/free-list bookkeeping is
// adapted from the teacher's table.Model viewport/selection management
// (internal/components/table/table.go), and the render cache is the
// teacher's template.Cache (internal/template/cache.go) narrowed from a
// generic 5-minute TTL cache to a size-bounded LRU keyed on item content
// rather than wall-clock freshness, since recycled slots must never show
// stale content once an item changes.
package recycler

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync"

	"github.com/mattn/go-runewidth"
	"github.com/muesli/reflow/truncate"

	"github.com/rowvirt/vlist/internal/item"
)

// Meta is the stamped metadata a template function receives alongside the
// item, mirroring the DOM attributes spec.md §4.5 says a recycled element is
// restamped with (id, aria-posinset/setsize, position, size).
type Meta struct {
	ID       string // "<prefix>-item-<index>"
	Index    int
	Total    int
	Position float64
	Size     float64
}

// TemplateFunc renders a single item into its displayed content, given the
// item and its stamped metadata.
type TemplateFunc[T any] func(it item.Item[T], meta Meta) string

// Slot is one reusable rendering unit. Its template/metadata/content get
// overwritten on every Render call that reassigns it to a different index.
type Slot[T any] struct {
	Meta    Meta
	Item    item.Item[T]
	Content string
	bound   bool
}

// Bound reports whether the slot currently holds rendered content for a live
// index (spec.md §4.5: unused slots sit in a free list, unrendered).
func (s *Slot[T]) Bound() bool { return s.bound }

// Pool owns a set of slots, recycling freed ones across render passes and
// allocating a new slot only when the free list is empty (spec.md §4.5
// "DOM recycling").
type Pool[T any] struct {
	mu          sync.Mutex
	slots       map[int]*Slot[T] // index -> slot currently bound to it
	free        []*Slot[T]
	idPrefix    string
	cache       *renderCache
	maxWidth    int
	truncateEnd bool
}

// Option configures a Pool.
type Option[T any] func(*Pool[T])

// WithIDPrefix sets the prefix used when stamping slot ids
// ("<prefix>-item-<index>").
func WithIDPrefix[T any](prefix string) Option[T] {
	return func(p *Pool[T]) { p.idPrefix = prefix }
}

// WithRenderCacheSize bounds the content-hash render cache (0 disables it).
func WithRenderCacheSize[T any](n int) Option[T] {
	return func(p *Pool[T]) { p.cache = newRenderCache(n) }
}

// WithMaxWidth sets a fixed display width; rendered lines beyond it are
// truncated with an ellipsis, matching the teacher's table cell truncation.
func WithMaxWidth[T any](w int) Option[T] {
	return func(p *Pool[T]) { p.maxWidth = w }
}

// New constructs a Pool.
func New[T any](opts ...Option[T]) *Pool[T] {
	p := &Pool[T]{
		slots:    make(map[int]*Slot[T]),
		idPrefix: "vlist",
		cache:    newRenderCache(512),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Release returns slots bound to indices outside keep back to the free list,
// ready to be reassigned (spec.md §4.5 step: slots leaving the render range
// are recycled, not destroyed).
func (p *Pool[T]) Release(keep item.Range) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for idx, s := range p.slots {
		if !keep.Contains(idx) {
			s.bound = false
			p.free = append(p.free, s)
			delete(p.slots, idx)
		}
	}
}

// acquire returns the slot already bound to idx, or pops one off the free
// list, or allocates a new one.
func (p *Pool[T]) acquire(idx int) *Slot[T] {
	if s, ok := p.slots[idx]; ok {
		return s
	}
	var s *Slot[T]
	if n := len(p.free); n > 0 {
		s = p.free[n-1]
		p.free = p.free[:n-1]
	} else {
		s = &Slot[T]{}
	}
	s.bound = true
	p.slots[idx] = s
	return s
}

// Render stamps and (re)renders the slot for idx, reusing the cached content
// string if the item and its computed metadata are unchanged since the last
// render (spec.md §4.5 steps 1-4: reuse, restamp, re-render-if-dirty,
// release-on-scroll-out).
func (p *Pool[T]) Render(idx int, it item.Item[T], pos, size float64, total int, tmpl TemplateFunc[T]) *Slot[T] {
	p.mu.Lock()
	defer p.mu.Unlock()

	s := p.acquire(idx)
	meta := Meta{
		ID:       fmt.Sprintf("%s-item-%d", p.idPrefix, idx),
		Index:    idx,
		Total:    total,
		Position: pos,
		Size:     size,
	}

	key := cacheKey(it, meta)
	if p.cache != nil {
		if cached, ok := p.cache.Get(key); ok {
			s.Meta, s.Item, s.Content = meta, it, cached
			return s
		}
	}

	content := tmpl(it, meta)
	if p.maxWidth > 0 && runewidth.StringWidth(content) > p.maxWidth {
		content = truncate.StringWithTail(content, uint(p.maxWidth), "…")
	}

	s.Meta, s.Item, s.Content = meta, it, content
	if p.cache != nil {
		p.cache.Set(key, content)
	}
	return s
}

// Len reports how many slots are currently bound to a live index.
func (p *Pool[T]) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.slots)
}

// FreeCount reports how many slots sit idle in the free list, available for
// reuse before a new allocation is needed.
func (p *Pool[T]) FreeCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.free)
}

func cacheKey(it interface{}, meta Meta) string {
	h := sha256.New()
	fmt.Fprintf(h, "%v|%d|%.4f|%.4f|%d", it, meta.Index, meta.Position, meta.Size, meta.Total)
	return hex.EncodeToString(h.Sum(nil))
}
