package cache

import (
	"container/list"
	"image"
)

type entry struct {
	key   PageKey
	value image.Image
	cost  int64
}

// MemoryCache implements a cost-bounded LRU cache. Every entry removed by
// eviction, replacement of a smaller limit or Clear is reported to OnEvict.
type MemoryCache struct {
	maxCost int64
	cost    int64
	items   map[PageKey]*list.Element
	lruList *list.List

	OnEvict func(key PageKey)
}

// NewMemoryCache creates a new in-memory LRU cache holding at most maxCost
// bytes of images.
func NewMemoryCache(maxCost int64) *MemoryCache {
	if maxCost < 0 {
		panic("cache: negative max cost")
	}
	return &MemoryCache{
		maxCost: maxCost,
		items:   make(map[PageKey]*list.Element),
		lruList: list.New(),
	}
}

func (c *MemoryCache) Get(key PageKey) (image.Image, bool) {
	elem, ok := c.items[key]
	if !ok {
		return nil, false
	}

	c.lruList.MoveToFront(elem)
	return elem.Value.(*entry).value, true
}

// Set stores value charged at cost. It returns false, leaving the cache
// untouched, if cost alone is above the limit.
func (c *MemoryCache) Set(key PageKey, value image.Image, cost int64) bool {
	if cost > c.maxCost {
		return false
	}

	if elem, ok := c.items[key]; ok {
		ent := elem.Value.(*entry)
		c.cost += cost - ent.cost
		ent.value = value
		ent.cost = cost
		c.lruList.MoveToFront(elem)
	} else {
		ent := &entry{key: key, value: value, cost: cost}
		c.items[key] = c.lruList.PushFront(ent)
		c.cost += cost
	}

	c.trim()
	return true
}

func (c *MemoryCache) SetMaxCost(maxCost int64) {
	if maxCost < 0 {
		panic("cache: negative max cost")
	}
	c.maxCost = maxCost
	c.trim()
}

func (c *MemoryCache) MaxCost() int64 {
	return c.maxCost
}

func (c *MemoryCache) TotalCost() int64 {
	return c.cost
}

func (c *MemoryCache) Len() int {
	return c.lruList.Len()
}

func (c *MemoryCache) Clear() {
	for c.lruList.Len() > 0 {
		c.remove(c.lruList.Back())
	}
}

// trim evicts from the least recently used end until the total fits.
func (c *MemoryCache) trim() {
	for c.cost > c.maxCost {
		oldest := c.lruList.Back()
		if oldest == nil {
			return
		}
		c.remove(oldest)
	}
}

func (c *MemoryCache) remove(elem *list.Element) {
	ent := elem.Value.(*entry)
	c.lruList.Remove(elem)
	delete(c.items, ent.key)
	c.cost -= ent.cost
	if c.OnEvict != nil {
		c.OnEvict(ent.key)
	}
}
