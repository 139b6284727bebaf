// cmd/worker/main.go
package main

import (
	"context"
	"encoding/json"
	"os"
	"time"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"

	"github.com/jdalton/scripturecache/internal/archive"
	"github.com/jdalton/scripturecache/internal/config"
	"github.com/jdalton/scripturecache/internal/jobs"
)

func main() {
	logger := zerolog.New(os.Stdout).With().Timestamp().Str("app", "worker").Logger()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("config error")
	}
	if !cfg.HasRedis() {
		logger.Fatal().Msg("REDIS_ADDR is required for the prefetch worker")
	}

	fetcher := archive.NewFetcher(cfg.UpstreamURL, cfg.CacheRoot, cfg.DownloadTimeout, logger)

	srv := asynq.NewServer(asynq.RedisClientOpt{Addr: cfg.RedisAddr}, asynq.Config{
		Concurrency: 4,
		Queues: map[string]int{
			"prefetch": 10,
			"default":  5,
		},
	})
	mux := asynq.NewServeMux()

	mux.HandleFunc(jobs.TaskPrefetchArchive, func(ctx context.Context, t *asynq.Task) error {
		var p jobs.PrefetchArchivePayload
		if err := json.Unmarshal(t.Payload(), &p); err != nil {
			logger.Error().Err(err).Msg("bad prefetch payload")
			return err
		}
		start := time.Now()
		_, err := fetcher.GetOrDownload(ctx, p.Organization, p.Repository, p.Ref, p.ZipballURL)
		if err != nil {
			logger.Warn().Err(err).
				Str("org", p.Organization).
				Str("repo", p.Repository).
				Msg("prefetch failed")
			return err
		}
		logger.Info().
			Str("org", p.Organization).
			Str("repo", p.Repository).
			Dur("took", time.Since(start)).
			Msg("prefetched archive")
		return nil
	})

	logger.Info().Msg("starting prefetch worker")
	if err := srv.Run(mux); err != nil {
		logger.Fatal().Err(err).Msg("worker stopped")
	}
}
