package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cshum/vipsgen/vips"
	"go.uber.org/zap"

	"pageview/internal/cache"
	"pageview/internal/config"
	"pageview/internal/document"
	httphandlers "pageview/internal/http"
	"pageview/internal/logger"
	"pageview/internal/provider"
	"pageview/internal/viewer"
)

func main() {
	cfg := config.Load()

	log, err := logger.New(cfg.LogLevel, cfg.LogEncoding)
	if err != nil {
		panic(fmt.Sprintf("failed to initialize logger: %v", err))
	}
	defer log.Sync()

	if cfg.DocumentBackend == "vips" {
		startVips(cfg, log)
		defer vips.Shutdown()
	}

	log.Info("Starting pageview server",
		zap.Int("port", cfg.Port),
		zap.String("document_dir", cfg.DocumentDir),
		zap.String("backend", cfg.DocumentBackend),
	)

	doc, err := document.Open(cfg.DocumentBackend, cfg.DocumentDir, log)
	if err != nil {
		log.Fatal("Failed to open document", zap.Error(err))
	}

	pageCache, err := cache.NewCache(cfg.CacheType, cfg.CacheLimitBytes(), log)
	if err != nil {
		log.Fatal("Failed to initialize cache", zap.Error(err))
	}

	viewers := viewer.NewRegistry()

	pages := provider.New(log.Named("provider"),
		provider.WithCache(pageCache),
		provider.WithRenderDelay(cfg.RenderDelay),
		provider.WithMaxRenderPixels(cfg.MaxRenderPixels),
	)
	pages.SetDocument(doc)
	pages.SetRequester(viewers)
	pages.SetPixelRatio(cfg.PixelRatio)

	if cfg.WarmupScale > 0 {
		warmupPages(pages, viewers, doc.PageCount(), cfg.WarmupScale, log)
	}

	handlers := httphandlers.New(cfg, log, doc, pages, viewers)

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: handlers.Router(),
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Server failed", zap.Error(err))
		}
	}()

	log.Info("Server started", zap.Int("port", cfg.Port))

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}
	pages.Close()

	log.Info("Server stopped")
}

func startVips(cfg *config.Config, log *zap.Logger) {
	vipsConfig := &vips.Config{
		ConcurrencyLevel: cfg.VipsConcurrency,
		MaxCacheMem:      cfg.VipsMaxCacheMB * 1024 * 1024, // Convert MB to bytes
		MaxCacheFiles:    0,                                // Disable disk cache
		MaxCacheSize:     0,                                // Disable disk cache
		ReportLeaks:      false,
		CacheTrace:       false,
		VectorEnabled:    true,
	}

	// Map vips log levels to zap levels
	vips.SetLogging(func(domain string, level vips.LogLevel, message string) {
		if level >= vips.LogLevelError {
			log.Error("vips", zap.String("domain", domain), zap.Int("level", int(level)), zap.String("message", message))
		} else if level >= vips.LogLevelWarning {
			log.Warn("vips", zap.String("domain", domain), zap.Int("level", int(level)), zap.String("message", message))
		}
	}, vips.LogLevelError)

	vips.Startup(vipsConfig)

	log.Info("VIPS initialized",
		zap.Int("max_cache_mb", cfg.VipsMaxCacheMB),
		zap.Int("concurrency", cfg.VipsConcurrency),
	)
}

// warmupPages queues every page at scale through pinned slots, which stay
// actual, so the pages render one after another in the background.
func warmupPages(p *provider.Provider, viewers *viewer.Registry, count int, scale float64, log *zap.Logger) {
	log.Info("Starting page warmup", zap.Int("pages", count), zap.Float64("scale", scale))

	for page := 0; page < count; page++ {
		p.Request(viewers.Pin(page), page, scale)
	}
}
