package fileio

import "container/list"

// WindowCache is a fixed-capacity LRU of mapped windows keyed by aligned
// offset. Evicted windows are released before the mutating call returns.
type WindowCache struct {
	capacity int
	ll       *list.List // front is most recently used
	items    map[int64]*list.Element
}

// NewWindowCache creates a cache holding at most capacity windows.
func NewWindowCache(capacity int) *WindowCache {
	if capacity < 1 {
		capacity = 1
	}
	return &WindowCache{
		capacity: capacity,
		ll:       list.New(),
		items:    make(map[int64]*list.Element, capacity),
	}
}

// Get returns the window at the aligned offset, promoting it to most
// recently used.
func (c *WindowCache) Get(offset int64) (*Window, bool) {
	el, ok := c.items[offset]
	if !ok {
		return nil, false
	}
	c.ll.MoveToFront(el)
	return el.Value.(*Window), true
}

// Put inserts a window, evicting and releasing the least recently used
// entry first when the cache is full. An existing window at the same
// offset is released and replaced.
func (c *WindowCache) Put(w *Window) error {
	if el, ok := c.items[w.offset]; ok {
		old := el.Value.(*Window)
		el.Value = w
		c.ll.MoveToFront(el)
		return old.Release()
	}
	var evictErr error
	if c.ll.Len() >= c.capacity {
		evictErr = c.evictOldest()
	}
	c.items[w.offset] = c.ll.PushFront(w)
	return evictErr
}

func (c *WindowCache) evictOldest() error {
	back := c.ll.Back()
	if back == nil {
		return nil
	}
	w := back.Value.(*Window)
	c.ll.Remove(back)
	delete(c.items, w.offset)
	return w.Release()
}

// Remove releases and drops the window at the aligned offset, if present.
func (c *WindowCache) Remove(offset int64) error {
	el, ok := c.items[offset]
	if !ok {
		return nil
	}
	w := el.Value.(*Window)
	c.ll.Remove(el)
	delete(c.items, offset)
	return w.Release()
}

// Clear releases every cached window.
func (c *WindowCache) Clear() error {
	var first error
	for el := c.ll.Front(); el != nil; el = el.Next() {
		if err := el.Value.(*Window).Release(); err != nil && first == nil {
			first = err
		}
	}
	c.ll.Init()
	c.items = make(map[int64]*list.Element, c.capacity)
	return first
}

// Len returns the number of cached windows.
func (c *WindowCache) Len() int { return c.ll.Len() }

// Contains reports whether a window for the aligned offset is cached,
// without promoting it.
func (c *WindowCache) Contains(offset int64) bool {
	_, ok := c.items[offset]
	return ok
}

// Offsets returns the cached aligned offsets from most to least recently
// used.
func (c *WindowCache) Offsets() []int64 {
	out := make([]int64, 0, c.ll.Len())
	for el := c.ll.Front(); el != nil; el = el.Next() {
		out = append(out, el.Value.(*Window).offset)
	}
	return out
}
