package recycler

import "sync"

// renderCache is a size-bounded LRU keyed on rendered-content hash, adapted
// from the teacher's template.Cache but dropping its 5-minute TTL: a
// recycled slot's content is valid for as long as its key (item + metadata)
// doesn't change, not for as long as a clock says it's fresh.
type renderCache struct {
	mu      sync.Mutex
	entries map[string]string
	order   []string
	maxSize int
}

func newRenderCache(maxSize int) *renderCache {
	if maxSize <= 0 {
		return nil
	}
	return &renderCache{
		entries: make(map[string]string),
		order:   make([]string, 0, maxSize),
		maxSize: maxSize,
	}
}

func (c *renderCache) Get(key string) (string, bool) {
	if c == nil {
		return "", false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.entries[key]
	if ok {
		// move key to the most-recently-used end of order
		for i, k := range c.order {
			if k == key {
				copy(c.order[i:], c.order[i+1:])
				c.order[len(c.order)-1] = key
				break
			}
		}
	}
	return v, ok
}

func (c *renderCache) Set(key, value string) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[key]; !exists && len(c.entries) >= c.maxSize {
		oldest := c.order[0]
		delete(c.entries, oldest)
		c.order = c.order[1:]
	}
	if _, exists := c.entries[key]; !exists {
		c.order = append(c.order, key)
	}
	c.entries[key] = value
}
