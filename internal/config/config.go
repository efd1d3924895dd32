package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	Port             int
	DocumentDir      string
	DocumentBackend  string
	CacheType        string
	CacheLimitMB     int
	RenderDelay      time.Duration
	PixelRatio       float64
	MaxRenderPixels  int64
	VipsMaxCacheMB   int
	VipsConcurrency  int
	LogLevel         string
	LogEncoding      string
	AllowedOrigin    string
	WarmupScale      float64
	EventPollTimeout time.Duration
}

func Load() *Config {
	cfg := &Config{
		Port:             getEnvInt("PORT", 8080),
		DocumentDir:      getEnv("DOCUMENT_DIR", "/data"),
		DocumentBackend:  getEnv("DOCUMENT_BACKEND", "vips"),
		CacheType:        getEnv("CACHE", "memory"),
		CacheLimitMB:     getEnvInt("CACHE_LIMIT_MB", 512),
		RenderDelay:      time.Duration(getEnvInt("RENDER_DELAY_MS", 50)) * time.Millisecond,
		PixelRatio:       getEnvFloat("PIXEL_RATIO", 1.0),
		MaxRenderPixels:  int64(getEnvInt("MAX_RENDER_PIXELS", 64*1024*1024)),
		VipsMaxCacheMB:   getEnvInt("VIPS_MAX_CACHE_MB", 256),
		VipsConcurrency:  getEnvInt("VIPS_CONCURRENCY", 1),
		LogLevel:         getEnv("LOG_LEVEL", "info"),
		LogEncoding:      getEnv("LOG_ENCODING", "json"),
		AllowedOrigin:    getEnv("ALLOWED_ORIGIN", ""),
		WarmupScale:      getEnvFloat("WARMUP_SCALE", 0),
		EventPollTimeout: time.Duration(getEnvInt("EVENT_POLL_TIMEOUT_MS", 25000)) * time.Millisecond,
	}

	// Values the provider would reject fall back to their defaults.
	if cfg.CacheLimitMB < 0 {
		cfg.CacheLimitMB = 512
	}
	if cfg.RenderDelay < 0 {
		cfg.RenderDelay = 50 * time.Millisecond
	}
	if !(cfg.PixelRatio > 0) {
		cfg.PixelRatio = 1.0
	}
	if cfg.MaxRenderPixels <= 0 {
		cfg.MaxRenderPixels = 64 * 1024 * 1024
	}

	return cfg
}

func (c *Config) CacheLimitBytes() int64 {
	return int64(c.CacheLimitMB) * 1024 * 1024
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}
