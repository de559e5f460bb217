package core

import (
	"container/list"
	"fmt"
	"sync"
	"time"

	"github.com/xrayctl/enginegate/internal/sentinel"
)

// ErrCacheCorruption signals a cache invariant violation: the store
// exceeding its size bound even after eviction. It indicates a defect, not
// a transient condition, and is logged loudly by the gateway.
const ErrCacheCorruption = sentinel.Error("cache invariant violated")

// Key identifies one cached query result. For status and stats entries,
// ContainerID is the container's engine ID; for list entries it is the
// canonical filter string (see Filter.Key).
type Key struct {
	ContainerID string
	Class       DataClass
}

// String renders the key in "id:class" form for logs.
func (k Key) String() string {
	return k.ContainerID + ":" + k.Class.String()
}

// entry is one cached value with its freshness metadata.
type entry struct {
	key        Key
	value      any
	insertedAt time.Time
	ttl        time.Duration
}

// expired reports whether the entry's freshness window has elapsed.
func (e *entry) expired(now time.Time) bool {
	return !now.Before(e.insertedAt.Add(e.ttl))
}

// Cache is a TTL-keyed, size-bounded store for engine query results,
// partitioned by data class. Entries expire lazily on read, are removed
// explicitly after mutating engine calls, and are swept periodically by the
// health monitor. When an insertion would exceed the size bound, the
// least-recently-used entry is evicted first.
//
// All operations are serialized through a single mutex; critical sections
// are bounded and never perform I/O, so cache calls cannot block request
// paths on the engine.
type Cache struct {
	mu sync.Mutex

	// entries indexes the recency list by key.
	entries map[Key]*list.Element

	// order is the recency list: front = most recently used, back = least.
	// Element values are *entry.
	order *list.List

	maxEntries int

	// version counts explicit invalidations. Readers snapshot it before an
	// engine call and pass it to PutSince, which drops fills that predate
	// an invalidation.
	version uint64

	// now is the clock, swappable in tests.
	now func() time.Time
}

// NewCache creates a Cache bounded to maxEntries. Panics if maxEntries is
// not positive.
func NewCache(maxEntries int) *Cache {
	if maxEntries <= 0 {
		panic(fmt.Sprintf("enginegate: cache maxEntries must be greater than 0, got %d", maxEntries))
	}
	return &Cache{
		entries:    make(map[Key]*list.Element, maxEntries),
		order:      list.New(),
		maxEntries: maxEntries,
		now:        time.Now,
	}
}

// Get returns the value cached under key if present and unexpired. Expiry
// is checked lazily: a stale entry found here is removed before reporting a
// miss. A hit marks the entry most recently used.
func (c *Cache) Get(key Key) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	ent := elem.Value.(*entry)
	if ent.expired(c.now()) {
		c.removeElement(elem)
		return nil, false
	}
	c.order.MoveToFront(elem)
	return ent.value, true
}

// Put inserts or overwrites the value under key with the given freshness
// window. If the insertion would exceed the size bound, the
// least-recently-used entry is evicted first.
//
// Returns ErrCacheCorruption if the store still exceeds its bound after
// eviction. That cannot happen through this code path and indicates a
// defect; callers treat it as fatal and log loudly.
func (c *Cache) Put(key Key, value any, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.put(key, value, ttl)
}

// Version returns the invalidation version, incremented by every
// Invalidate, InvalidateContainer, InvalidateClass, and Purge. Snapshot it
// before an engine call and pass it to PutSince.
func (c *Cache) Version() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.version
}

// PutSince inserts like Put, but only when no invalidation has occurred
// since the caller snapshotted Version. A stale fill is dropped without
// error: the value was read before an invalidation and may predate the
// state change that triggered it.
func (c *Cache) PutSince(key Key, value any, ttl time.Duration, since uint64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.version != since {
		return nil
	}
	return c.put(key, value, ttl)
}

// put is the insertion path shared by Put and PutSince. Caller holds mu.
func (c *Cache) put(key Key, value any, ttl time.Duration) error {
	if elem, ok := c.entries[key]; ok {
		ent := elem.Value.(*entry)
		ent.value = value
		ent.insertedAt = c.now()
		ent.ttl = ttl
		c.order.MoveToFront(elem)
		return nil
	}

	if c.order.Len() >= c.maxEntries {
		c.evictOldest()
	}
	c.entries[key] = c.order.PushFront(&entry{
		key:        key,
		value:      value,
		insertedAt: c.now(),
		ttl:        ttl,
	})

	if c.order.Len() > c.maxEntries {
		return fmt.Errorf("%w: %d entries after eviction, bound %d",
			ErrCacheCorruption, c.order.Len(), c.maxEntries)
	}
	return nil
}

// Invalidate removes the entry under key, if any.
func (c *Cache) Invalidate(key Key) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.version++
	if elem, ok := c.entries[key]; ok {
		c.removeElement(elem)
	}
}

// InvalidateContainer removes every cached entry whose container-id
// component equals id, across all data classes. Used after mutating engine
// calls so subsequent reads observe the mutation.
func (c *Cache) InvalidateContainer(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.version++
	for _, class := range dataClasses {
		if elem, ok := c.entries[Key{ContainerID: id, Class: class}]; ok {
			c.removeElement(elem)
		}
	}
}

// InvalidateClass removes every entry of the given data class. Mutations
// invalidate the whole list class this way, since list keys are filter
// strings that need not mention the mutated container.
func (c *Cache) InvalidateClass(class DataClass) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.version++
	var next *list.Element
	for elem := c.order.Front(); elem != nil; elem = next {
		next = elem.Next()
		if elem.Value.(*entry).key.Class == class {
			c.removeElement(elem)
		}
	}
}

// Sweep removes every expired entry and returns the number removed. Run
// periodically by the health monitor so expired entries do not pin memory
// in the absence of reads.
func (c *Cache) Sweep() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	removed := 0
	var next *list.Element
	for elem := c.order.Front(); elem != nil; elem = next {
		next = elem.Next()
		if elem.Value.(*entry).expired(now) {
			c.removeElement(elem)
			removed++
		}
	}
	return removed
}

// Purge drops every entry.
func (c *Cache) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.version++
	c.entries = make(map[Key]*list.Element)
	c.order.Init()
}

// Len returns the number of cached entries, expired or not.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

// evictOldest removes the least-recently-used entry. Caller holds mu.
func (c *Cache) evictOldest() {
	if elem := c.order.Back(); elem != nil {
		c.removeElement(elem)
	}
}

// removeElement unlinks an element from both the list and the index.
// Caller holds mu.
func (c *Cache) removeElement(elem *list.Element) {
	c.order.Remove(elem)
	delete(c.entries, elem.Value.(*entry).key)
}
