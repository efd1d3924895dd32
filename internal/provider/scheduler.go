package provider

import (
	"context"
	"fmt"
	"image"

	"go.uber.org/zap"

	"pageview/internal/job"
	"pageview/internal/render"
)

// drain starts the next render, if any. Callers hold p.mu.
func (p *Provider) drain() {
	if p.active != nil && !p.requester.IsActual(p.active.Request().Requester) {
		p.logger.Debug("Dropping render for inactive requester",
			zap.Int("page", p.active.Request().Page),
			zap.Uint64("job", p.active.ID()),
		)
		p.cancelActive()
	}

	if n := p.queue.PruneFront(p.requester.IsActual); n > 0 {
		p.logger.Debug("Pruned inactive requests", zap.Int("count", n))
	}

	if p.queue.Len() == 0 {
		return
	}
	// The running job drains the queue when it completes.
	if p.active != nil {
		return
	}

	req, _ := p.queue.Pop()
	p.launch(req)
}

func (p *Provider) launch(req render.Request) {
	doc := p.document
	ratio := p.pixelRatio
	maxPixels := p.maxPixels
	logger := p.logger

	work := func(ctx context.Context) (image.Image, error) {
		w, h := doc.PagePointSize(req.Page)
		if !render.Fits(w, h, req.Scale, ratio, maxPixels) {
			return nil, fmt.Errorf("page %d at scale %v: %w", req.Page, req.Scale, render.ErrTooLarge)
		}
		size := render.PixelSize(w, h, req.Scale, ratio)
		return doc.Render(ctx, req.Page, size)
	}

	p.active = p.runner.Start(req, work, p.complete)
	logger.Debug("Render started",
		zap.Uint64("job", p.active.ID()),
		zap.Int("page", req.Page),
		zap.Float64("scale", req.Scale),
		zap.Float64("pixel_ratio", ratio),
	)
}

// complete runs on the worker goroutine once a render returned.
func (p *Provider) complete(j *job.Job, img image.Image, err error) {
	p.mu.Lock()

	req := j.Request()
	if p.active != j {
		p.mu.Unlock()
		p.logger.Debug("Discarding stale render",
			zap.Uint64("job", j.ID()),
			zap.Int("page", req.Page),
			zap.Float64("scale", req.Scale),
			zap.Bool("cancelled", j.Cancelled()),
		)
		return
	}

	switch {
	case err != nil:
		p.logger.Warn("Render failed",
			zap.Int("page", req.Page),
			zap.Float64("scale", req.Scale),
			zap.Error(err),
		)
	case !render.Usable(img):
		p.logger.Warn("Render returned no image", zap.Int("page", req.Page), zap.Float64("scale", req.Scale))
	default:
		p.logger.Debug("Render finished",
			zap.Int("page", req.Page),
			zap.Float64("scale", req.Scale),
			zap.Int64("duration_ms", j.Elapsed().Milliseconds()),
		)
		if !p.cache.Insert(req.Page, req.Scale, img) {
			p.logger.Debug("Render not cached",
				zap.Int("page", req.Page),
				zap.Float64("scale", req.Scale),
				zap.Int64("limit_bytes", p.cache.Limit()),
			)
		}
	}

	requester := p.requester
	p.active = nil
	if !p.closed {
		p.drain()
	}
	p.mu.Unlock()

	// Outside the lock so the requester may call Request right away.
	requester.Notify(req.Requester)
}
