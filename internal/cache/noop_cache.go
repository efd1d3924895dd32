package cache

import "image"

// NoopCache rejects every insert.
type NoopCache struct{}

func NewNoopCache() *NoopCache {
	return &NoopCache{}
}

func (c *NoopCache) Lookup(page int, scale float64) (image.Image, bool) {
	return nil, false
}

func (c *NoopCache) Nearest(page int, scale float64) (image.Image, float64, bool) {
	return nil, 0, false
}

func (c *NoopCache) Insert(page int, scale float64, img image.Image) bool {
	return false
}

func (c *NoopCache) SetLimit(bytes int64) {
}

func (c *NoopCache) Limit() int64 {
	return 0
}

func (c *NoopCache) Len() int {
	return 0
}

func (c *NoopCache) Cost() int64 {
	return 0
}

func (c *NoopCache) Clear() {
}
