// Package render holds the types shared between the page provider and its
// collaborators: requests, requester identities and the document interface.
package render

import (
	"context"
	"errors"
	"image"
	"math"
)

// ErrTooLarge is returned for render targets above the pixel limit.
var ErrTooLarge = errors.New("render target too large")

// RequesterID is an opaque handle for whoever asked for a page. The provider
// only compares it and passes it back to the Requester.
type RequesterID uint64

// Requester answers liveness probes and receives wake-ups once a render for
// one of its requests finished.
//
// IsActual is called while the provider holds its internal lock, so it must
// not call back into the provider. Notify is called without the lock held.
type Requester interface {
	IsActual(id RequesterID) bool
	Notify(id RequesterID) bool
}

// Document is the rasterizer. Render must poll ctx and should return early
// once it is cancelled; an empty image or an error is treated as "no result".
type Document interface {
	PageCount() int
	PagePointSize(page int) (width, height float64)
	Render(ctx context.Context, page int, size image.Point) (image.Image, error)
}

// Request asks for one page at one scale on behalf of a requester.
type Request struct {
	Page      int         `json:"page"`
	Scale     float64     `json:"scale"`
	Requester RequesterID `json:"requester"`
}

// SameTarget reports whether both requests would produce the same render.
func (r Request) SameTarget(other Request) bool {
	return r.Page == other.Page && SameScale(r.Scale, other.Scale)
}

// SameScale compares two scales with a relative tolerance of 1e-12.
func SameScale(a, b float64) bool {
	return math.Abs(a-b)*1e12 <= math.Min(math.Abs(a), math.Abs(b))
}

// PixelSize is the render target for a page of the given point size.
func PixelSize(width, height, scale, ratio float64) image.Point {
	return image.Point{
		X: int(math.Round(width * scale * ratio)),
		Y: int(math.Round(height * scale * ratio)),
	}
}

// Fits reports whether a page of the given point size rendered at scale and
// ratio stays within maxPixels. The area is computed in floating point so
// huge scales cannot overflow.
func Fits(width, height, scale, ratio float64, maxPixels int64) bool {
	area := width * scale * ratio * height * scale * ratio
	return area <= float64(maxPixels)
}

// Usable reports whether img carries any pixels.
func Usable(img image.Image) bool {
	return img != nil && !img.Bounds().Empty()
}

// AlwaysActual is a Requester that keeps every request alive and drops
// notifications. It is used when nobody registered a requester and for
// warmup renders.
type AlwaysActual struct{}

func (AlwaysActual) IsActual(RequesterID) bool { return true }
func (AlwaysActual) Notify(RequesterID) bool   { return false }
