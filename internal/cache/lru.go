package cache

import (
	"container/list"
	"sync"
	"sync/atomic"

	"github.com/hupe1980/scalareval/internal/resource"
)

// LRU is a byte-bounded least-recently-used BlockCache.
type LRU struct {
	mu        sync.Mutex
	capacity  int64
	size      int64
	items     map[Key]*list.Element
	evictList *list.List
	rc        *resource.Controller

	hits   atomic.Int64
	misses atomic.Int64
}

type entry struct {
	key   Key
	value []byte
}

// NewLRU creates an LRU holding at most capacity bytes. If rc is not nil,
// cached bytes are charged to it.
func NewLRU(capacity int64, rc *resource.Controller) *LRU {
	return &LRU{
		capacity:  capacity,
		items:     make(map[Key]*list.Element),
		evictList: list.New(),
		rc:        rc,
	}
}

// Get implements BlockCache.
func (c *LRU) Get(key Key) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if ent, ok := c.items[key]; ok {
		c.hits.Add(1)
		c.evictList.MoveToFront(ent)
		return ent.Value.(*entry).value, true
	}
	c.misses.Add(1)
	return nil, false
}

// Set implements BlockCache. Blocks larger than the capacity are not cached.
func (c *LRU) Set(key Key, b []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()

	size := int64(len(b))
	if size > c.capacity {
		return
	}

	if ent, ok := c.items[key]; ok {
		old := int64(len(ent.Value.(*entry).value))
		if size > old && c.rc.AcquireMemory(size-old) != nil {
			// Keep the old value when the controller denies the growth.
			return
		}
		if size < old {
			c.rc.ReleaseMemory(old - size)
		}
		c.size += size - old
		ent.Value.(*entry).value = b
		c.evictList.MoveToFront(ent)
		c.evict()
		return
	}

	for c.size+size > c.capacity {
		back := c.evictList.Back()
		if back == nil {
			break
		}
		c.removeElement(back)
	}

	if c.rc.AcquireMemory(size) != nil {
		return
	}
	c.items[key] = c.evictList.PushFront(&entry{key, b})
	c.size += size
}

// Invalidate implements BlockCache.
func (c *LRU) Invalidate(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var drop []*list.Element
	for key, el := range c.items {
		if key.Name == name {
			drop = append(drop, el)
		}
	}
	for _, el := range drop {
		c.removeElement(el)
	}
}

// Stats implements BlockCache.
func (c *LRU) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

// Size returns the cached bytes.
func (c *LRU) Size() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.size
}

// Len returns the number of cached blocks.
func (c *LRU) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

func (c *LRU) evict() {
	for c.size > c.capacity {
		back := c.evictList.Back()
		if back == nil {
			return
		}
		c.removeElement(back)
	}
}

func (c *LRU) removeElement(e *list.Element) {
	c.evictList.Remove(e)
	kv := e.Value.(*entry)
	delete(c.items, kv.key)
	size := int64(len(kv.value))
	c.size -= size
	c.rc.ReleaseMemory(size)
}
