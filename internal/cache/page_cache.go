// Package cache holds rendered range-query pages between mutations. Every
// committed write invalidates the whole cache; entries are never patched.
//
// Reads hand back the generation they saw and writes are tied to it, so a
// page computed before an invalidation is never served after it.
package cache

import (
	"context"
	"crypto/sha1"
	"fmt"
	"log"
	"strconv"
	"strings"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/redis/go-redis/v9"
)

type PageCache interface {
	// Get returns the entry for key and the generation current at lookup.
	// Callers pass that generation to Set after computing a missing page.
	Get(ctx context.Context, key string) (value []byte, gen int64, ok bool)
	// Set stores value only for generation gen; a write for an
	// invalidated generation is never visible.
	Set(ctx context.Context, gen int64, key string, value []byte)
	Invalidate(ctx context.Context)
}

// Key derives a compact cache key from the parts of a range query.
func Key(parts ...string) string {
	sum := sha1.Sum([]byte(strings.Join(parts, "|")))
	return fmt.Sprintf("%x", sum[:])
}

// New returns a Redis-backed cache when rdb is non-nil, else an in-process one.
func New(rdb *redis.Client, prefix string, ttl time.Duration) PageCache {
	if rdb == nil {
		log.Println("[PageCache] redis unavailable, using in-process cache")
		return NewLocal(ttl)
	}
	return NewRedis(rdb, prefix, ttl)
}

// redisCache namespaces entries by a generation counter; Invalidate bumps
// the counter so stale entries are simply never read again and expire by TTL.
type redisCache struct {
	rdb    *redis.Client
	prefix string
	ttl    time.Duration
}

func NewRedis(rdb *redis.Client, prefix string, ttl time.Duration) PageCache {
	return &redisCache{rdb: rdb, prefix: prefix, ttl: ttl}
}

func (c *redisCache) genKey() string {
	return c.prefix + ":gen"
}

func (c *redisCache) entryKey(gen int64, key string) string {
	return c.prefix + ":" + strconv.FormatInt(gen, 10) + ":" + key
}

// Get reads the generation first. An entry found under it, or one later
// written under it by Set, is unreachable once Invalidate moves on.
func (c *redisCache) Get(ctx context.Context, key string) ([]byte, int64, bool) {
	gen, err := c.rdb.Get(ctx, c.genKey()).Int64()
	if err != nil && err != redis.Nil {
		log.Printf("[PageCache] get generation: %v", err)
		return nil, -1, false
	}
	full := c.entryKey(gen, key)
	b, err := c.rdb.Get(ctx, full).Bytes()
	if err != nil {
		if err != redis.Nil {
			log.Printf("[PageCache] get %s: %v", full, err)
		}
		return nil, gen, false
	}
	return b, gen, true
}

func (c *redisCache) Set(ctx context.Context, gen int64, key string, value []byte) {
	if gen < 0 {
		return
	}
	full := c.entryKey(gen, key)
	if err := c.rdb.Set(ctx, full, value, c.ttl).Err(); err != nil {
		log.Printf("[PageCache] set %s: %v", full, err)
	}
}

func (c *redisCache) Invalidate(ctx context.Context) {
	if err := c.rdb.Incr(ctx, c.genKey()).Err(); err != nil {
		log.Printf("[PageCache] invalidate: %v", err)
	}
}

// localCache keeps a generation counter next to the go-cache store. mu
// makes the generation check in Set and the flush in Invalidate exclusive.
type localCache struct {
	mu    sync.RWMutex
	gen   int64
	store *gocache.Cache
}

func NewLocal(ttl time.Duration) PageCache {
	return &localCache{store: gocache.New(ttl, 2*ttl)}
}

func (c *localCache) Get(_ context.Context, key string) ([]byte, int64, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.store.Get(key)
	if !ok {
		return nil, c.gen, false
	}
	b, ok := v.([]byte)
	return b, c.gen, ok
}

func (c *localCache) Set(_ context.Context, gen int64, key string, value []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.gen {
		return
	}
	c.store.SetDefault(key, value)
}

func (c *localCache) Invalidate(_ context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gen++
	c.store.Flush()
}
