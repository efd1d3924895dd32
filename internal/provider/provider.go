// Package provider schedules page renders behind a bounded cache.
//
// Request never blocks. It answers from the cache, either with an exact hit
// or with the closest scale rendered so far, and queues the missing render.
// At most one render runs at a time. Pending requests are kept per page, so
// a page whose scale keeps changing, as during a continuous zoom, is
// rendered once at its latest scale. A short debounce delay lets bursts
// settle before a render is started.
//
// All bookkeeping happens under one mutex. Entry points, timer fires and
// render completions are therefore serialized, and renders themselves run
// on worker goroutines that never touch provider state.
package provider

import (
	"fmt"
	"image"
	"math"
	"sync"
	"time"

	"go.uber.org/zap"

	"pageview/internal/cache"
	"pageview/internal/debounce"
	"pageview/internal/job"
	"pageview/internal/queue"
	"pageview/internal/render"
)

const (
	DefaultCacheLimit      = 512 * 1024 * 1024
	DefaultRenderDelay     = 50 * time.Millisecond
	DefaultMaxRenderPixels = 64 * 1024 * 1024
)

type Provider struct {
	mu sync.Mutex

	document   render.Document
	requester  render.Requester
	pixelRatio float64
	maxPixels  int64

	cache  cache.Cache
	queue  *queue.Queue
	timer  *debounce.Timer
	runner *job.Runner
	active *job.Job
	closed bool

	logger *zap.Logger
}

// Option configures a Provider at construction.
type Option func(*Provider)

// WithCache replaces the default memory cache.
func WithCache(c cache.Cache) Option {
	return func(p *Provider) {
		p.cache = c
	}
}

func WithRenderDelay(d time.Duration) Option {
	return func(p *Provider) {
		p.timer.SetDelay(d)
	}
}

// WithMaxRenderPixels caps the pixel count of a single render. Larger
// targets fail with render.ErrTooLarge instead of reaching the document.
func WithMaxRenderPixels(n int64) Option {
	return func(p *Provider) {
		if n > 0 {
			p.maxPixels = n
		}
	}
}

func New(logger *zap.Logger, opts ...Option) *Provider {
	p := &Provider{
		requester:  render.AlwaysActual{},
		pixelRatio: 1.0,
		maxPixels:  DefaultMaxRenderPixels,
		cache:      cache.NewRenderCache(DefaultCacheLimit),
		queue:      queue.New(),
		runner:     job.NewRunner(logger),
		logger:     logger,
	}
	p.timer = debounce.New(DefaultRenderDelay, p.onTimer)
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// SetDocument switches the rendered document. Switching to a different
// document drops all pending work and cached pages.
func (p *Provider) SetDocument(doc render.Document) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.document == doc {
		return
	}
	p.document = doc
	p.timer.Stop()
	p.cancelActive()
	p.queue.Clear()
	p.cache.Clear()
}

func (p *Provider) Document() render.Document {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.document
}

// SetRequester installs the liveness and notification callbacks. A nil
// requester keeps every request alive and drops notifications.
func (p *Provider) SetRequester(r render.Requester) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if r == nil {
		r = render.AlwaysActual{}
	}
	p.requester = r
}

// SetPixelRatio changes the device pixel ratio used for future renders.
// Pages already cached keep the ratio they were rendered with.
func (p *Provider) SetPixelRatio(ratio float64) {
	if !(ratio > 0) || math.IsInf(ratio, 0) {
		panic(fmt.Sprintf("provider: invalid pixel ratio %v", ratio))
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.pixelRatio = ratio
}

func (p *Provider) SetCacheLimit(bytes int64) {
	if bytes < 0 {
		panic(fmt.Sprintf("provider: negative cache limit %d", bytes))
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.cache.SetLimit(bytes)
}

// Renderable reports whether page at scale stays within the render pixel
// limit at the current pixel ratio.
func (p *Provider) Renderable(page int, scale float64) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.checkRequest(page, scale)
	w, h := p.document.PagePointSize(page)
	return render.Fits(w, h, scale, p.pixelRatio, p.maxPixels)
}

// SetRenderDelay sets the debounce delay applied before the queue is
// drained.
func (p *Provider) SetRenderDelay(d time.Duration) {
	if d < 0 {
		panic(fmt.Sprintf("provider: negative render delay %v", d))
	}
	p.timer.SetDelay(d)
}

// Request returns the image of page at scale if it is cached. Otherwise it
// schedules a render and returns the cached image of the nearest scale, if
// there is one; the requester is notified once the render finished. The
// boolean is true only for an exact hit, never for a placeholder.
//
// A missing document, a page outside the document or a scale that is not a
// positive finite number is a programming error and panics.
func (p *Provider) Request(id render.RequesterID, page int, scale float64) (image.Image, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.checkRequest(page, scale)

	if img, ok := p.cache.Lookup(page, scale); ok {
		p.logger.Debug("Cache hit", zap.Int("page", page), zap.Float64("scale", scale))
		return img, true
	}

	req := render.Request{Page: page, Scale: scale, Requester: id}
	nearest, _, _ := p.cache.Nearest(page, scale)

	if p.closed {
		return nearest, false
	}

	if p.active != nil {
		current := p.active.Request()
		if current.SameTarget(req) {
			if current.Requester != id && !p.requester.IsActual(current.Requester) {
				p.active.Adopt(id)
			}
			return nearest, false
		}
		if current.Page == page {
			p.logger.Debug("Superseding active render",
				zap.Int("page", page),
				zap.Float64("old_scale", current.Scale),
				zap.Float64("new_scale", scale),
			)
			p.cancelActive()
		}
	}

	// The latest requester takes over the pending entry; the one it replaces
	// is not notified.
	if pending, ok := p.queue.Find(page); ok {
		p.logger.Debug("Retargeting pending render",
			zap.Int("page", page),
			zap.Float64("old_scale", pending.Scale),
			zap.Float64("new_scale", scale),
		)
		p.queue.Coalesce(req)
		return nearest, false
	}

	p.queue.Push(req)

	// Let the burst settle; an active job drains the queue itself.
	if p.active == nil {
		p.timer.Arm()
	}

	return nearest, false
}

func (p *Provider) checkRequest(page int, scale float64) {
	if p.document == nil {
		panic("provider: request without a document")
	}
	if count := p.document.PageCount(); page < 0 || page >= count {
		panic(fmt.Sprintf("provider: page %d out of range [0, %d)", page, count))
	}
	if !(scale > 0) || math.IsInf(scale, 0) {
		panic(fmt.Sprintf("provider: invalid scale %v", scale))
	}
}

// Close stops scheduling, cancels the running render and waits for worker
// goroutines to return. Cached pages stay available.
func (p *Provider) Close() {
	p.mu.Lock()
	p.closed = true
	p.timer.Stop()
	p.cancelActive()
	p.queue.Clear()
	p.mu.Unlock()

	p.runner.Wait()
}

func (p *Provider) onTimer() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed || p.document == nil {
		return
	}
	p.drain()
}

func (p *Provider) cancelActive() {
	if p.active == nil {
		return
	}
	p.active.Cancel()
	p.active = nil
}
