package document

import (
	"fmt"
	"image"

	"pageview/internal/render"
)

// MaxRenderPixels bounds a single render whatever the caller asks for.
const MaxRenderPixels = 1 << 28

// pages is the page table shared by the backends.
type pages []PageInfo

func (p pages) PageCount() int {
	return len(p)
}

func (p pages) PagePointSize(page int) (float64, float64) {
	info := p.at(page)
	return float64(info.Width), float64(info.Height)
}

// Pages returns a copy of the page table.
func (p pages) Pages() []PageInfo {
	return append([]PageInfo(nil), p...)
}

func (p pages) at(page int) PageInfo {
	if page < 0 || page >= len(p) {
		panic(fmt.Sprintf("document: page %d out of range [0, %d)", page, len(p)))
	}
	return p[page]
}

func checkSize(size image.Point) error {
	if size.X <= 0 || size.Y <= 0 {
		return fmt.Errorf("invalid render size %v", size)
	}
	if int64(size.X)*int64(size.Y) > MaxRenderPixels {
		return fmt.Errorf("render size %v: %w", size, render.ErrTooLarge)
	}
	return nil
}
