// cmd/api/main.go
package main

import (
	"context"
	"net/http"
	"os"
	"time"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"

	"github.com/jdalton/scripturecache/internal/archive"
	"github.com/jdalton/scripturecache/internal/cache"
	"github.com/jdalton/scripturecache/internal/catalog"
	"github.com/jdalton/scripturecache/internal/config"
	"github.com/jdalton/scripturecache/internal/http/routes"
	"github.com/jdalton/scripturecache/internal/resource"
)

func main() {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("config error")
	}

	// Cache tiers: memory first, then the durable local tier, the remote
	// KV tier when configured, and the upstream marker last.
	providers := []cache.Provider{cache.NewMemoryProvider(5 * time.Minute)}
	if files, err := cache.NewFilesystemProvider(cfg.CacheRoot+"/responses", logger); err != nil {
		logger.Warn().Err(err).Msg("filesystem tier disabled")
	} else {
		providers = append(providers, files)
	}
	if cfg.HasRedis() {
		providers = append(providers, cache.NewRedisProvider(cfg.RedisAddr, cfg.RedisKeyPrefix, logger))
	}
	providers = append(providers, cache.NewUpstreamProvider(cfg.UpstreamURL))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	chain := cache.NewChain(ctx, cache.ChainOptions{
		Providers:  providers,
		DefaultTTL: cfg.CacheTTL,
		Logger:     logger,
	})
	cancel()

	cat := catalog.NewClient(cfg.UpstreamURL, cfg.CacheRoot, cfg.CatalogTTL, logger)
	fetcher := archive.NewFetcher(cfg.UpstreamURL, cfg.CacheRoot, cfg.DownloadTimeout, logger)
	svc := resource.New(cat, fetcher, chain, logger)

	var tasks *asynq.Client
	if cfg.HasRedis() {
		tasks = asynq.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
		defer tasks.Close()
	}

	s := routes.New(routes.ServerOptions{
		Svc:   svc,
		Chain: chain,
		Tasks: tasks,
		Log:   logger,
	})

	logger.Info().Str("port", cfg.Port).Msg("starting api")
	if err := http.ListenAndServe(":"+cfg.Port, s.Router); err != nil {
		logger.Fatal().Err(err).Msg("server stopped")
	}
}
