package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// redisScanBatch bounds each SCAN page when clearing by prefix.
const redisScanBatch = 256

// RedisProvider is the distributed key-value tier. It is only constructed
// when an address is configured, and reports unavailable when the server
// cannot be reached.
type RedisProvider struct {
	client *redis.Client
	prefix string
	log    zerolog.Logger
	counters
}

// NewRedisProvider connects to the given address. keyPrefix namespaces all
// keys so several services can share one database.
func NewRedisProvider(addr, keyPrefix string, log zerolog.Logger) *RedisProvider {
	return &RedisProvider{
		client: redis.NewClient(&redis.Options{Addr: addr}),
		prefix: keyPrefix,
		log:    log.With().Str("cache", "redis").Logger(),
	}
}

func (r *RedisProvider) Name() string  { return "redis" }
func (r *RedisProvider) Priority() int { return 25 }

func (r *RedisProvider) Get(ctx context.Context, key string) ([]byte, bool) {
	val, err := r.client.Get(ctx, r.prefix+key).Bytes()
	if err == redis.Nil {
		r.recordMiss()
		return nil, false
	}
	if err != nil {
		r.log.Warn().Err(err).Str("key", key).Msg("redis get failed")
		r.recordMiss()
		return nil, false
	}
	r.recordHit()
	return val, true
}

func (r *RedisProvider) Set(ctx context.Context, key string, value []byte, ttl time.Duration) {
	if err := r.client.Set(ctx, r.prefix+key, value, ttl).Err(); err != nil {
		r.log.Warn().Err(err).Str("key", key).Msg("redis set failed")
	}
}

func (r *RedisProvider) Has(ctx context.Context, key string) bool {
	n, err := r.client.Exists(ctx, r.prefix+key).Result()
	return err == nil && n > 0
}

func (r *RedisProvider) Delete(ctx context.Context, key string) {
	if err := r.client.Del(ctx, r.prefix+key).Err(); err != nil {
		r.log.Warn().Err(err).Str("key", key).Msg("redis delete failed")
	}
}

func (r *RedisProvider) Clear(ctx context.Context) {
	r.ClearPrefix(ctx, "")
}

// ClearPrefix walks the keyspace with SCAN and deletes matches, so a large
// shared database is never blocked the way a KEYS sweep would.
func (r *RedisProvider) ClearPrefix(ctx context.Context, prefix string) {
	var cursor uint64
	match := r.prefix + prefix + "*"
	for {
		keys, next, err := r.client.Scan(ctx, cursor, match, redisScanBatch).Result()
		if err != nil {
			r.log.Warn().Err(err).Str("match", match).Msg("redis scan failed")
			return
		}
		if len(keys) > 0 {
			if err := r.client.Del(ctx, keys...).Err(); err != nil {
				r.log.Warn().Err(err).Msg("redis clear failed")
			}
		}
		if next == 0 {
			return
		}
		cursor = next
	}
}

func (r *RedisProvider) IsAvailable(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return r.client.Ping(ctx).Err() == nil
}

func (r *RedisProvider) Stats(ctx context.Context) Stats {
	s := Stats{Name: r.Name(), ItemCount: -1, SizeBytes: -1, HitRate: r.hitRate()}
	s.Available = r.IsAvailable(ctx)
	if s.Available {
		if n, err := r.client.DBSize(ctx).Result(); err == nil {
			s.ItemCount = n
		}
	}
	return s
}
