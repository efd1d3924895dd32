package provider

import "pageview/internal/render"

type Stats struct {
	CachedPages     int             `json:"cached_pages"`
	CachedBytes     int64           `json:"cached_bytes"`
	CacheLimit      int64           `json:"cache_limit"`
	Pending         int             `json:"pending"`
	Active          *render.Request `json:"active,omitempty"`
	Workers         int             `json:"workers"`
	PixelRatio      float64         `json:"pixel_ratio"`
	MaxRenderPixels int64           `json:"max_render_pixels"`
	RenderDelayMS   int64           `json:"render_delay_ms"`
	RenderScheduled bool            `json:"render_scheduled"`
}

func (p *Provider) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()

	s := Stats{
		CachedPages:     p.cache.Len(),
		CachedBytes:     p.cache.Cost(),
		CacheLimit:      p.cache.Limit(),
		Pending:         p.queue.Len(),
		Workers:         p.runner.Running(),
		PixelRatio:      p.pixelRatio,
		MaxRenderPixels: p.maxPixels,
		RenderDelayMS:   p.timer.Delay().Milliseconds(),
		RenderScheduled: p.timer.Armed(),
	}
	if p.active != nil {
		req := p.active.Request()
		s.Active = &req
	}
	return s
}

// Pending returns the queued requests in drain order.
func (p *Provider) Pending() []render.Request {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.queue.Snapshot()
}
