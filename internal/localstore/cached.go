package localstore

import (
	"context"
	"errors"

	"github.com/charmbracelet/log"
	"github.com/eko/gocache/lib/v4/cache"
	"github.com/eko/gocache/lib/v4/codec"
	go_store "github.com/eko/gocache/store/go_cache/v4"
	redis_store "github.com/eko/gocache/store/redis/v4"
	"github.com/jon4hz/loaderdesk/internal/config"
	gocache "github.com/patrickmn/go-cache"
	"github.com/redis/go-redis/v9"
)

var _ Store = (*CachedStore)(nil)

// CachedStore is a read-through, write-through hot layer in front of a persistent Store.
type CachedStore struct {
	next  Store
	cache *cache.Cache[any]
	kind  config.CacheType
}

// Stats are the hit/miss statistics of the hot layer.
type Stats struct {
	*codec.Stats
	CacheName string `json:"cacheName"`
}

// NewCached wraps next with a hot cache of the configured type.
func NewCached(next Store, cfg *config.CacheConfig) *CachedStore {
	kind := config.CacheTypeMemory
	if cfg != nil && cfg.Type != "" {
		kind = cfg.Type
	}
	return &CachedStore{
		next:  next,
		cache: newCacheInstanceByType(cfg),
		kind:  kind,
	}
}

// Get serves name from the hot cache and falls back to the persistent store on a miss.
func (c *CachedStore) Get(ctx context.Context, name string) ([]byte, error) {
	// every cache error is treated as a miss
	if value, err := c.cache.Get(ctx, name); err == nil {
		if data := toBytes(value); data != nil {
			return data, nil
		}
	}

	data, err := c.next.Get(ctx, name)
	if err != nil {
		return nil, err
	}
	if err := c.cache.Set(ctx, name, data); err != nil {
		log.Warn("failed to populate local cache", "key", name, "error", err)
	}
	return data, nil
}

// Set writes name to the persistent store first and then refreshes the hot cache.
func (c *CachedStore) Set(ctx context.Context, name string, value []byte) error {
	if err := c.next.Set(ctx, name, value); err != nil {
		return err
	}
	if err := c.cache.Set(ctx, name, value); err != nil {
		log.Warn("failed to update local cache", "key", name, "error", err)
		// a stale hot entry would shadow the new value
		_ = c.cache.Delete(ctx, name)
	}
	return nil
}

// Delete removes name from both layers.
func (c *CachedStore) Delete(ctx context.Context, name string) error {
	if err := c.cache.Delete(ctx, name); err != nil {
		log.Debug("failed to evict local cache entry", "key", name, "error", err)
	}
	if err := c.next.Delete(ctx, name); err != nil && !errors.Is(err, ErrNotFound) {
		return err
	}
	return nil
}

// Clear drops every hot entry. The persistent store is untouched.
func (c *CachedStore) Clear(ctx context.Context) error {
	return c.cache.Clear(ctx)
}

// Close closes the persistent store.
func (c *CachedStore) Close() error {
	return c.next.Close()
}

// GetStats returns the hot layer statistics.
func (c *CachedStore) GetStats() *Stats {
	return &Stats{
		Stats:     c.cache.GetCodec().GetStats(),
		CacheName: string(c.kind),
	}
}

func toBytes(value any) []byte {
	switch v := value.(type) {
	case []byte:
		return v
	case string:
		return []byte(v)
	default:
		return nil
	}
}

func newCacheInstanceByType(cfg *config.CacheConfig) *cache.Cache[any] {
	if cfg == nil {
		return newMemoryCache()
	}
	switch cfg.Type {
	case config.CacheTypeRedis:
		return newRedisCache(cfg)
	default:
		return newMemoryCache()
	}
}

func newMemoryCache() *cache.Cache[any] {
	// never expire items, the persistent store is the only source of values
	gocacheClient := gocache.New(gocache.NoExpiration, gocache.NoExpiration)
	gocacheStore := go_store.NewGoCache(gocacheClient)
	return cache.New[any](gocacheStore)
}

func newRedisCache(cfg *config.CacheConfig) *cache.Cache[any] {
	redisClient := redis.NewClient(&redis.Options{
		Addr: cfg.RedisURL,
	})
	redisStore := redis_store.NewRedis(redisClient)
	return cache.New[any](redisStore)
}
