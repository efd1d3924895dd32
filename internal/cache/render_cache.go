package cache

import "image"

// RenderCache is a MemoryCache of rendered pages plus a per-page index of
// the scales it holds. The index follows the storage through its eviction
// hook, so it always matches the cached keys.
type RenderCache struct {
	storage *MemoryCache
	scales  scaleIndex
}

func NewRenderCache(limitBytes int64) *RenderCache {
	c := &RenderCache{
		storage: NewMemoryCache(limitBytes),
		scales:  make(scaleIndex),
	}
	c.storage.OnEvict = func(key PageKey) {
		c.scales.remove(key.Page, key.Scale)
	}
	return c
}

func (c *RenderCache) Lookup(page int, scale float64) (image.Image, bool) {
	return c.storage.Get(PageKey{Page: page, Scale: scale})
}

func (c *RenderCache) Nearest(page int, scale float64) (image.Image, float64, bool) {
	closest, ok := c.scales.closest(page, scale)
	if !ok {
		return nil, 0, false
	}
	img, ok := c.storage.Get(PageKey{Page: page, Scale: closest})
	if !ok {
		return nil, 0, false
	}
	return img, closest, true
}

func (c *RenderCache) Insert(page int, scale float64, img image.Image) bool {
	if !c.storage.Set(PageKey{Page: page, Scale: scale}, img, ImageCost(img)) {
		return false
	}
	// Set may have evicted other scales of this page, never this key.
	c.scales.add(page, scale)
	return true
}

func (c *RenderCache) SetLimit(bytes int64) {
	c.storage.SetMaxCost(bytes)
}

func (c *RenderCache) Limit() int64 {
	return c.storage.MaxCost()
}

func (c *RenderCache) Len() int {
	return c.storage.Len()
}

func (c *RenderCache) Cost() int64 {
	return c.storage.TotalCost()
}

func (c *RenderCache) Clear() {
	c.storage.Clear()
}
