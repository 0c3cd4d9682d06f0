// Package query is a small read-through cache for backend reads. Entries
// are keyed by a path-like list of strings, go stale after a per-query
// time, and are evicted by key prefix when a mutation makes them invalid.
package query

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/nhle/outreach-inbox/internal/api"
)

// Key identifies a cached query, e.g. {"emails", "list", "INTERESTED"}.
type Key []string

// String joins the key parts with "/".
func (k Key) String() string {
	return strings.Join(k, "/")
}

// HasPrefix reports whether prefix is a leading subsequence of k.
func (k Key) HasPrefix(prefix Key) bool {
	if len(prefix) > len(k) {
		return false
	}
	for i := range prefix {
		if k[i] != prefix[i] {
			return false
		}
	}
	return true
}

// Options controls staleness and retry for one fetch.
type Options struct {
	// StaleTime is how long a cached result is served without refetching.
	// Zero means always refetch.
	StaleTime time.Duration

	// Retry is the number of extra attempts after a failure. Values above
	// one are clamped to one.
	Retry int
}

type entry struct {
	value     any
	fetchedAt time.Time
}

// Cache maps keys to their last successful result.
type Cache struct {
	mu      sync.Mutex
	entries map[string]entry
	keys    map[string]Key
	now     func() time.Time
}

// New creates an empty cache.
func New() *Cache {
	return &Cache{
		entries: make(map[string]entry),
		keys:    make(map[string]Key),
		now:     time.Now,
	}
}

// SetClock replaces the time source. Used by tests.
func (c *Cache) SetClock(now func() time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = now
}

func (c *Cache) lookup(key Key, staleTime time.Duration) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key.String()]
	if !ok {
		return nil, false
	}
	if c.now().Sub(e.fetchedAt) >= staleTime {
		return nil, false
	}
	return e.value, true
}

func (c *Cache) store(key Key, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()

	k := key.String()
	c.entries[k] = entry{value: value, fetchedAt: c.now()}
	c.keys[k] = append(Key(nil), key...)
}

// Invalidate evicts every entry whose key starts with prefix. The next
// Fetch for an evicted key goes to the backend.
func (c *Cache) Invalidate(prefix Key) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := 0
	for k, key := range c.keys {
		if key.HasPrefix(prefix) {
			delete(c.entries, k)
			delete(c.keys, k)
			n++
		}
	}
	if n > 0 {
		slog.Debug("invalidated queries", "prefix", prefix.String(), "count", n)
	}
	return n
}

// Len returns the number of cached entries.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Fetch returns the cached value for key if it is still fresh, otherwise
// calls fn and caches its result. A failed fetch is retried at most once
// (never for validation errors) and leaves any previous entry untouched.
func Fetch[T any](
	ctx context.Context,
	c *Cache,
	key Key,
	opts Options,
	fn func(context.Context) (T, error),
) (T, error) {
	if v, ok := c.lookup(key, opts.StaleTime); ok {
		if typed, ok := v.(T); ok {
			return typed, nil
		}
	}

	attempts := 1
	if opts.Retry > 0 {
		attempts = 2
	}

	var (
		result T
		err    error
	)
	for i := 0; i < attempts; i++ {
		result, err = fn(ctx)
		if err == nil {
			c.store(key, result)
			return result, nil
		}
		if api.IsValidation(err) || ctx.Err() != nil {
			break
		}
		slog.Debug("query attempt failed",
			"key", key.String(), "attempt", i+1, "error", err)
	}

	var zero T
	return zero, err
}

// Peek returns the cached value for key regardless of staleness.
func Peek[T any](c *Cache, key Key) (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero T
	e, ok := c.entries[key.String()]
	if !ok {
		return zero, false
	}
	typed, ok := e.value.(T)
	if !ok {
		return zero, false
	}
	return typed, true
}
