package timeoutcache

import (
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/rs/zerolog"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/aristath/chronotrader/pkg/logger"
)

// Cache is the TTL+LRU memory tier fronting a persistent DiskTier, composing
// into Cached. One Cache instance wraps one DiskTier; distinct function ids
// share the memory tier but are namespaced by Key's function-id prefix.
type Cache struct {
	mem  *lru.LRU[string, []byte]
	disk *DiskTier
	log  zerolog.Logger
	mu   sync.Mutex // serializes miss-path disk reads/writes per instance
}

// NewCache builds a Cache with a memory tier of the given size and TTL,
// fronting disk.
func NewCache(log zerolog.Logger, disk *DiskTier, size int, ttl time.Duration) *Cache {
	return &Cache{
		mem:  lru.NewLRU[string, []byte](size, nil, ttl),
		disk: disk,
		log:  logger.Component(log, "timeoutcache.cache"),
	}
}

// Cached wraps compute in the TTL+LRU-over-disk tier keyed by key. A memory
// hit returns in sub-millisecond time; a memory miss checks disk before
// falling through to compute; a disk miss populates both tiers with a fresh
// call to compute. ttl sets the disk-tier expiry only; the memory tier
// expires entries after the TTL the Cache was built with.
//
// Composition contract (spec.md §4.1): callers apply WithTimeout OUTSIDE
// Cached, never inside — a slow miss must not pollute the cache with a
// fallback value. Cached itself has no notion of deadlines.
func Cached[T any](c *Cache, key string, ttl time.Duration, compute func() (T, error)) (T, error) {
	var zero T

	if raw, ok := c.mem.Get(key); ok {
		var v T
		if err := msgpack.Unmarshal(raw, &v); err == nil {
			return v, nil
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	// Re-check memory: another goroutine may have populated it while we
	// waited for the lock.
	if raw, ok := c.mem.Get(key); ok {
		var v T
		if err := msgpack.Unmarshal(raw, &v); err == nil {
			return v, nil
		}
	}

	if c.disk != nil {
		if raw, ok, err := c.disk.Get(key); err == nil && ok {
			var v T
			if err := msgpack.Unmarshal(raw, &v); err == nil {
				c.mem.Add(key, raw)
				return v, nil
			}
		}
	}

	v, err := compute()
	if err != nil {
		return zero, err
	}

	raw, merr := msgpack.Marshal(v)
	if merr != nil {
		c.log.Warn().Err(merr).Str("key", key).Msg("timeoutcache: failed to serialize value for caching")
		return v, nil
	}

	c.mem.Add(key, raw)
	if c.disk != nil {
		if err := c.disk.Set(key, raw, time.Now().Add(ttl)); err != nil {
			c.log.Warn().Err(err).Str("key", key).Msg("timeoutcache: failed to persist to disk tier")
		}
	}
	return v, nil
}
