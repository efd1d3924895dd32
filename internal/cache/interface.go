package cache

import "image"

// PageKey identifies one rendered page at one scale. Lookups compare Scale
// exactly.
type PageKey struct {
	Page  int
	Scale float64
}

// Cache stores rendered pages. Implementations are not safe for concurrent
// use; the provider serializes every call.
type Cache interface {
	Lookup(page int, scale float64) (image.Image, bool)
	// Nearest returns the cached image of page whose scale is closest to
	// scale, preferring the smaller scale on a tie.
	Nearest(page int, scale float64) (img image.Image, found float64, ok bool)
	// Insert returns false when the entry was rejected by the cache policy.
	Insert(page int, scale float64, img image.Image) bool
	SetLimit(bytes int64)
	Limit() int64
	Len() int
	Cost() int64
	Clear()
}
