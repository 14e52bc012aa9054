// Package cache is an optional redis read-through cache for the reference
// lists (species, conditions, style combinations, division labels).
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/futaoo/INTERVAL/internal/metrics"
	"github.com/redis/go-redis/v9"
)

const (
	keyPrefix  = "trees:"
	defaultTTL = 10 * time.Minute
)

// Cache wraps a redis client. A nil *Cache, or one without a client, is a
// pass-through that always loads.
type Cache struct {
	rc  *redis.Client
	ttl time.Duration
}

func New(rc *redis.Client, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &Cache{rc: rc, ttl: ttl}
}

// OpenFromEnv connects using REDIS_HOST, REDIS_PORT, REDIS_PASS, REDIS_DB and
// CACHE_TTL. Without REDIS_HOST caching is disabled and the result is a
// pass-through cache.
func OpenFromEnv(ctx context.Context) *Cache {
	host := os.Getenv("REDIS_HOST")
	if host == "" {
		log.Println("[cache] REDIS_HOST not set, list caching disabled")
		return New(nil, 0)
	}
	port := os.Getenv("REDIS_PORT")
	if port == "" {
		port = "6379"
	}
	db := 0
	if v := os.Getenv("REDIS_DB"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			db = n
		}
	}
	ttl := defaultTTL
	if v := os.Getenv("CACHE_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			ttl = d
		}
	}

	rc := redis.NewClient(&redis.Options{
		Addr:     host + ":" + port,
		Password: os.Getenv("REDIS_PASS"),
		DB:       db,
	})
	if err := rc.Ping(ctx).Err(); err != nil {
		log.Printf("[cache] redis ping failed, list caching disabled: %v", err)
		_ = rc.Close()
		return New(nil, 0)
	}
	log.Printf("[cache] redis at %s:%s db=%d ttl=%s", host, port, db, ttl)
	return New(rc, ttl)
}

func (c *Cache) Enabled() bool {
	return c != nil && c.rc != nil
}

func (c *Cache) Close() error {
	if !c.Enabled() {
		return nil
	}
	return c.rc.Close()
}

// Keys are the cached reference lists.
var Keys = []string{"species", "conditions", "styles", "electoral_label"}

// Invalidate drops the given entries so the next read reloads them.
func (c *Cache) Invalidate(ctx context.Context, keys ...string) (int64, error) {
	if !c.Enabled() || len(keys) == 0 {
		return 0, nil
	}
	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = keyPrefix + k
	}
	return c.rc.Del(ctx, full...).Result()
}

// GetOrLoad returns the cached value for key, or calls load and stores its
// result. Redis failures fall back to load; they are logged, never returned.
func GetOrLoad[T any](ctx context.Context, c *Cache, key string, load func(context.Context) (T, error)) (T, error) {
	if !c.Enabled() {
		return load(ctx)
	}

	full := keyPrefix + key
	raw, err := c.rc.Get(ctx, full).Bytes()
	switch {
	case err == nil:
		var v T
		if jerr := json.Unmarshal(raw, &v); jerr == nil {
			metrics.CacheHitsTotal.Inc()
			return v, nil
		}
		log.Printf("[cache] discarding undecodable entry %s", full)
	case !errors.Is(err, redis.Nil):
		log.Printf("[cache] get %s: %v", full, err)
	}
	metrics.CacheMissesTotal.Inc()

	v, err := load(ctx)
	if err != nil {
		return v, err
	}
	if b, jerr := json.Marshal(v); jerr == nil {
		if serr := c.rc.Set(ctx, full, b, c.ttl).Err(); serr != nil {
			log.Printf("[cache] set %s: %v", full, serr)
		}
	}
	return v, nil
}
