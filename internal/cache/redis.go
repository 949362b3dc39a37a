package cache

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// Redis shares cached pages and generations across API replicas. Redis
// errors degrade to cache misses.
type Redis struct {
	redisdb *redis.Client
	ttl     time.Duration
	prefix  string
	log     *slog.Logger
}

func NewRedis(cfg RedisConfig, ttl time.Duration, log *slog.Logger) *Redis {
	redisdb := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
	})

	if ttl <= 0 {
		ttl = 5 * time.Second
	}

	return &Redis{redisdb: redisdb, ttl: ttl, prefix: "blog:", log: log}
}

// this ping function checks redis connectivity

func (r *Redis) Ping(ctx context.Context) error {
	return r.redisdb.Ping(ctx).Err()
}

func (r *Redis) Close() error {
	return r.redisdb.Close()
}

func (r *Redis) Get(ctx context.Context, key string) ([]byte, bool) {
	val, err := r.redisdb.Get(ctx, r.prefix+key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			r.log.Warn("cache_get_failed", "key", key, "err", err)
		}
		return nil, false
	}
	return val, true
}

func (r *Redis) Set(ctx context.Context, key string, val []byte) {
	if err := r.redisdb.Set(ctx, r.prefix+key, val, r.ttl).Err(); err != nil {
		r.log.Warn("cache_set_failed", "key", key, "err", err)
	}
}

func (r *Redis) Generation(ctx context.Context, collection string) int64 {
	gen, err := r.redisdb.Get(ctx, r.prefix+"gen:"+collection).Int64()
	if err != nil && !errors.Is(err, redis.Nil) {
		r.log.Warn("cache_generation_failed", "collection", collection, "err", err)
	}
	return gen
}

func (r *Redis) Bump(ctx context.Context, collection string) {
	if err := r.redisdb.Incr(ctx, r.prefix+"gen:"+collection).Err(); err != nil {
		r.log.Warn("cache_bump_failed", "collection", collection, "err", err)
	}
}
