// Package cache keeps the last known server state of each resource keyed by
// resource identity. Reads are served from memory, then from an optional
// persistent backend, then from the fetch function. Concurrent reads of one
// key share a single fetch.
package cache

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/injunweb/injunctl/internal/domain"
)

// DefaultTTL is how long a fetched value is served without refetching.
const DefaultTTL = 30 * time.Second

// Backend persists cache entries across processes.
type Backend interface {
	GetCacheEntry(ctx context.Context, key string) (domain.CacheEntry, bool, error)
	PutCacheEntry(ctx context.Context, entry domain.CacheEntry) error
	DeleteCacheEntries(ctx context.Context, keys ...string) error
	DeleteCacheEntriesByPrefix(ctx context.Context, prefix string) error
	ClearCacheEntries(ctx context.Context) error
}

type entry struct {
	value     any
	fetchedAt time.Time
	stale     bool
}

// Cache is a keyed resource cache. The zero value is not usable; use [New].
type Cache struct {
	backend Backend
	ttl     time.Duration
	now     func() time.Time
	log     *slog.Logger

	group singleflight.Group

	mu       sync.Mutex
	entries  map[Key]*entry
	epoch    uint64
	inflight map[string]struct{}
}

// Option configures a [Cache].
type Option func(*Cache)

// WithBackend persists entries through b.
func WithBackend(b Backend) Option {
	return func(c *Cache) { c.backend = b }
}

// WithTTL sets the freshness window. Non-positive values keep the default.
func WithTTL(ttl time.Duration) Option {
	return func(c *Cache) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// WithClock overrides the clock.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) {
		if now != nil {
			c.now = now
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Cache) {
		if l != nil {
			c.log = l
		}
	}
}

// New returns an empty cache.
func New(opts ...Option) *Cache {
	c := &Cache{
		ttl:      DefaultTTL,
		now:      time.Now,
		log:      slog.New(slog.NewTextHandler(io.Discard, nil)),
		entries:  make(map[Key]*entry),
		inflight: make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Query returns the cached value of key when it is fresh. Otherwise it
// calls fetch, caches the result and returns it. Fetch errors are returned
// and leave the cache untouched.
func Query[T any](ctx context.Context, c *Cache, key Key, fetch func(context.Context) (T, error)) (T, error) {
	if v, ok := lookup[T](ctx, c, key, true); ok {
		return v, nil
	}
	return Refetch(ctx, c, key, fetch)
}

// Refetch calls fetch regardless of freshness and caches the result.
func Refetch[T any](ctx context.Context, c *Cache, key Key, fetch func(context.Context) (T, error)) (T, error) {
	c.mu.Lock()
	epoch := c.epoch
	c.mu.Unlock()

	v, err, _ := c.group.Do(string(key), func() (any, error) {
		v, err := fetch(ctx)
		if err != nil {
			return nil, err
		}
		c.store(ctx, key, v, epoch)
		return v, nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	out, _ := v.(T)
	return out, nil
}

// Peek returns the cached value of key, fresh or not, without fetching.
func Peek[T any](ctx context.Context, c *Cache, key Key) (T, bool) {
	return lookup[T](ctx, c, key, false)
}

// SetData replaces the cached value of key.
func SetData[T any](ctx context.Context, c *Cache, key Key, v T) {
	c.mu.Lock()
	epoch := c.epoch
	c.mu.Unlock()
	c.store(ctx, key, v, epoch)
}

// Invalidate marks keys stale so the next [Query] refetches them. The stale
// values stay visible to [Peek] until they are replaced.
func (c *Cache) Invalidate(ctx context.Context, keys ...Key) {
	if len(keys) == 0 {
		return
	}
	c.mu.Lock()
	for _, k := range keys {
		if e, ok := c.entries[k]; ok {
			e.stale = true
		}
		c.group.Forget(string(k))
	}
	c.mu.Unlock()
	c.log.Debug("cache invalidate", "keys", keys)
	if c.backend == nil {
		return
	}
	raw := make([]string, len(keys))
	for i, k := range keys {
		raw[i] = string(k)
	}
	if err := c.backend.DeleteCacheEntries(ctx, raw...); err != nil {
		c.log.Warn("cache backend delete failed", "err", err)
	}
}

// InvalidatePrefix marks every key starting with prefix stale.
func (c *Cache) InvalidatePrefix(ctx context.Context, prefix string) {
	c.mu.Lock()
	for k, e := range c.entries {
		if k.HasPrefix(prefix) {
			e.stale = true
		}
	}
	c.mu.Unlock()
	c.log.Debug("cache invalidate prefix", "prefix", prefix)
	if c.backend == nil {
		return
	}
	if err := c.backend.DeleteCacheEntriesByPrefix(ctx, prefix); err != nil {
		c.log.Warn("cache backend delete failed", "prefix", prefix, "err", err)
	}
}

// Clear drops every cached value. Fetches that started before Clear do not
// repopulate the cache when they complete.
func (c *Cache) Clear(ctx context.Context) {
	c.mu.Lock()
	c.entries = make(map[Key]*entry)
	c.epoch++
	c.mu.Unlock()
	c.log.Debug("cache cleared")
	if c.backend == nil {
		return
	}
	if err := c.backend.ClearCacheEntries(ctx); err != nil {
		c.log.Warn("cache backend clear failed", "err", err)
	}
}

// Len returns the number of keys held in memory.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func lookup[T any](ctx context.Context, c *Cache, key Key, freshOnly bool) (T, bool) {
	var zero T
	now := c.now()

	c.mu.Lock()
	e, ok := c.entries[key]
	if ok {
		v, typed := e.value.(T)
		fresh := !e.stale && now.Sub(e.fetchedAt) < c.ttl
		c.mu.Unlock()
		if typed && (fresh || !freshOnly) {
			return v, true
		}
		return zero, false
	}
	epoch := c.epoch
	c.mu.Unlock()

	if c.backend == nil {
		return zero, false
	}
	stored, found, err := c.backend.GetCacheEntry(ctx, string(key))
	if err != nil {
		c.log.Warn("cache backend read failed", "key", key, "err", err)
		return zero, false
	}
	if !found || (freshOnly && stored.Expired(now)) {
		return zero, false
	}
	var v T
	if err := json.Unmarshal(stored.Payload, &v); err != nil {
		c.log.Warn("cache backend entry undecodable", "key", key, "err", err)
		return zero, false
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.epoch != epoch {
		return zero, false
	}
	if _, raced := c.entries[key]; !raced {
		c.entries[key] = &entry{
			value:     v,
			fetchedAt: stored.RefreshedAt,
			stale:     stored.Expired(now),
		}
	}
	return v, true
}

func (c *Cache) store(ctx context.Context, key Key, v any, epoch uint64) {
	e := entry{value: v, fetchedAt: c.now()}
	c.mu.Lock()
	if c.epoch != epoch {
		c.mu.Unlock()
		c.log.Debug("cache store discarded after clear", "key", key)
		return
	}
	c.entries[key] = &e
	c.mu.Unlock()
	c.log.Debug("cache store", "key", key)
	if c.backend != nil {
		c.persist(ctx, key, e)
	}
}

func (c *Cache) persist(ctx context.Context, key Key, e entry) {
	payload, err := json.Marshal(e.value)
	if err != nil {
		c.log.Warn("cache encode failed", "key", key, "err", err)
		return
	}
	expires := e.fetchedAt.Add(c.ttl)
	if e.stale {
		expires = e.fetchedAt
	}
	err = c.backend.PutCacheEntry(ctx, domain.CacheEntry{
		Key:         string(key),
		Payload:     payload,
		RefreshedAt: e.fetchedAt,
		ExpiresAt:   expires,
	})
	if err != nil {
		c.log.Warn("cache backend write failed", "key", key, "err", err)
	}
}

// remove drops key from memory and the backend.
func (c *Cache) remove(ctx context.Context, key Key) {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
	if c.backend == nil {
		return
	}
	if err := c.backend.DeleteCacheEntries(ctx, string(key)); err != nil {
		c.log.Warn("cache backend delete failed", "key", key, "err", err)
	}
}
