package resolve

import "sync"

type lruEntry[K comparable, V any] struct {
	key   K
	value V
	prev  *lruEntry[K, V]
	next  *lruEntry[K, V]
}

// LRU is a fixed-capacity least-recently-used cache safe for concurrent use.
type LRU[K comparable, V any] struct {
	mu sync.Mutex

	capacity int
	items    map[K]*lruEntry[K, V]

	// head.next is the most recently used, tail.prev the least
	head *lruEntry[K, V]
	tail *lruEntry[K, V]

	hits   int64
	misses int64
}

// NewLRU creates a cache holding at most capacity entries.
func NewLRU[K comparable, V any](capacity int) *LRU[K, V] {
	if capacity <= 0 {
		capacity = 4096
	}
	c := &LRU[K, V]{
		capacity: capacity,
		items:    make(map[K]*lruEntry[K, V], capacity),
		head:     &lruEntry[K, V]{},
		tail:     &lruEntry[K, V]{},
	}
	c.head.next = c.tail
	c.tail.prev = c.head
	return c
}

// Get returns the value for key and marks it most recently used.
func (c *LRU[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.items[key]; ok {
		c.moveToFront(e)
		c.hits++
		return e.value, true
	}
	c.misses++
	var zero V
	return zero, false
}

// Peek returns the value for key without touching recency or stats.
func (c *LRU[K, V]) Peek(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.items[key]; ok {
		return e.value, true
	}
	var zero V
	return zero, false
}

// Add inserts or replaces key, evicting the least recently used entry
// when over capacity.
func (c *LRU[K, V]) Add(key K, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.items[key]; ok {
		e.value = value
		c.moveToFront(e)
		return
	}
	e := &lruEntry[K, V]{key: key, value: value}
	c.addToFront(e)
	c.items[key] = e
	for len(c.items) > c.capacity {
		c.removeEntry(c.tail.prev)
	}
}

// Len returns the number of cached entries.
func (c *LRU[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// Stats returns hit and miss counts for Get.
func (c *LRU[K, V]) Stats() (hits, misses int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits, c.misses
}

func (c *LRU[K, V]) addToFront(e *lruEntry[K, V]) {
	e.prev = c.head
	e.next = c.head.next
	c.head.next.prev = e
	c.head.next = e
}

func (c *LRU[K, V]) moveToFront(e *lruEntry[K, V]) {
	e.prev.next = e.next
	e.next.prev = e.prev
	c.addToFront(e)
}

func (c *LRU[K, V]) removeEntry(e *lruEntry[K, V]) {
	e.prev.next = e.next
	e.next.prev = e.prev
	delete(c.items, e.key)
}
