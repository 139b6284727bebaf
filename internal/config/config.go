// Package config handles application configuration from environment
// variables.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds all application configuration.
type Config struct {
	Port string `env:"PORT" envDefault:"8080"`

	// UpstreamURL is the content service hosting catalog and archives.
	UpstreamURL string `env:"UPSTREAM_URL" envDefault:"https://git.door43.org"`

	// CacheRoot is the base directory for the durable local caches: the
	// generic response tier, downloaded archives and catalog results.
	CacheRoot string `env:"CACHE_ROOT" envDefault:"/var/cache/scripturecache"`

	// RedisAddr enables the remote KV tier and prefetch queue when set.
	RedisAddr string `env:"REDIS_ADDR"`

	// RedisKeyPrefix namespaces this service's keys in a shared database.
	RedisKeyPrefix string `env:"REDIS_KEY_PREFIX" envDefault:"sc:"`

	// CacheTTL is the default lifetime for assembled-response entries.
	CacheTTL time.Duration `env:"CACHE_TTL" envDefault:"6h"`

	// CatalogTTL is how long cached catalog search results stay fresh.
	CatalogTTL time.Duration `env:"CATALOG_TTL" envDefault:"1h"`

	// DownloadTimeout bounds each archive download attempt.
	DownloadTimeout time.Duration `env:"DOWNLOAD_TIMEOUT" envDefault:"60s"`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

// HasRedis reports whether the remote KV tier is configured.
func (c *Config) HasRedis() bool {
	return c.RedisAddr != ""
}
