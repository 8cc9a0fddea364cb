package cache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"shopmate/log"
)

// RedisCache is a ReadCache backed by a shared Redis instance, for
// deployments running more than one process. TTL handling is native to
// Redis, so expiry needs no sweeping here.
type RedisCache struct {
	rdb *redis.Client
}

// NewRedisCache connects to Redis via URL (redis://...) and verifies the
// connection with a ping.
func NewRedisCache(url string, timeout time.Duration) (*RedisCache, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	if timeout > 0 {
		opts.ReadTimeout = timeout
		opts.WriteTimeout = timeout
		opts.DialTimeout = timeout
	}

	client := redis.NewClient(opts)
	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, err
	}
	return &RedisCache{rdb: client}, nil
}

// Get returns the cached value when present and unexpired. Lookup errors
// are treated as misses so a Redis hiccup only costs latency.
func (r *RedisCache) Get(ctx context.Context, key string) ([]byte, bool) {
	b, err := r.rdb.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			log.Log.Warnf("[Cache] Redis get failed | Key: %s | Error: %v", key, err)
		}
		return nil, false
	}
	return b, true
}

// Set stores a value under key for ttl. Write errors are logged and
// swallowed.
func (r *RedisCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) {
	if err := r.rdb.Set(ctx, key, value, ttl).Err(); err != nil {
		log.Log.Warnf("[Cache] Redis set failed | Key: %s | Error: %v", key, err)
	}
}

// Close releases the underlying Redis client
func (r *RedisCache) Close() error {
	return r.rdb.Close()
}
