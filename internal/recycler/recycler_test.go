package recycler

import (
	"fmt"
	"testing"

	"github.com/rowvirt/vlist/internal/item"
	"github.com/stretchr/testify/assert"
)

func stringTemplate(it item.Item[string], meta Meta) string {
	return fmt.Sprintf("[%s] %s", meta.ID, it.Data)
}

func TestRenderStampsIDAndContent(t *testing.T) {
	p := New[string](WithIDPrefix[string]("row"))
	it := item.Item[string]{ID: "a", Data: "hello"}

	s := p.Render(3, it, 48, 16, 100, stringTemplate)
	assert.Equal(t, "row-item-3", s.Meta.ID)
	assert.Equal(t, "[row-item-3] hello", s.Content)
	assert.True(t, s.Bound())
}

func TestRenderReusesBoundSlotForSameIndex(t *testing.T) {
	p := New[string]()
	it := item.Item[string]{ID: "a", Data: "hello"}

	s1 := p.Render(3, it, 0, 16, 10, stringTemplate)
	s2 := p.Render(3, it, 0, 16, 10, stringTemplate)
	assert.Same(t, s1, s2)
}

func TestReleaseReturnsSlotsToFreeList(t *testing.T) {
	p := New[string]()
	it := item.Item[string]{ID: "a", Data: "hello"}

	p.Render(0, it, 0, 16, 10, stringTemplate)
	p.Render(1, it, 16, 16, 10, stringTemplate)
	assert.Equal(t, 2, p.Len())

	p.Release(item.Range{Start: 1, End: 1})
	assert.Equal(t, 1, p.Len())
	assert.Equal(t, 1, p.FreeCount())
}

func TestAcquireRecyclesFreedSlotInsteadOfAllocating(t *testing.T) {
	p := New[string]()
	it := item.Item[string]{ID: "a", Data: "hello"}

	first := p.Render(0, it, 0, 16, 10, stringTemplate)
	p.Release(item.Range{Start: 0, End: -1})
	assert.Equal(t, 1, p.FreeCount())

	second := p.Render(5, it, 80, 16, 10, stringTemplate)
	assert.Same(t, first, second)
	assert.Equal(t, 0, p.FreeCount())
}

func TestRenderCacheSkipsTemplateOnUnchangedKey(t *testing.T) {
	p := New[string]()
	it := item.Item[string]{ID: "a", Data: "hello"}
	calls := 0
	tmpl := func(it item.Item[string], meta Meta) string {
		calls++
		return it.Data
	}

	p.Render(0, it, 0, 16, 10, tmpl)
	p.Release(item.Range{})
	p.Render(0, it, 0, 16, 10, tmpl) // same content/position/size -> cache hit
	assert.Equal(t, 1, calls)

	p.Render(0, it, 16, 16, 10, tmpl) // position changed -> cache miss
	assert.Equal(t, 2, calls)
}

func TestTruncatesContentWiderThanMaxWidth(t *testing.T) {
	p := New[string](WithMaxWidth[string](10))
	it := item.Item[string]{ID: "a", Data: "a very long piece of text"}
	tmpl := func(it item.Item[string], meta Meta) string { return it.Data }

	s := p.Render(0, it, 0, 16, 1, tmpl)
	assert.LessOrEqual(t, len(s.Content), 12) // 9 one-byte runes plus the 3-byte ellipsis
}
