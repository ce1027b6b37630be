// Package cache implements a process-wide, namespace-scoped, class-TTL'd
// key-value fingerprint cache sitting in front of every provider lookup
// and URL resolution. Built on dgraph-io/ristretto, the retrieval pack's
// admission-counted in-memory cache, promoted here from an indirect
// dependency to direct.
package cache

import (
	"fmt"
	"time"

	"github.com/dgraph-io/ristretto"
)

// Class selects the TTL band a cache entry belongs to: positive results
// that are expensive to recompute live long, negative results (confirmed
// absence) live short so a transient provider outage doesn't poison the
// cache indefinitely.
type Class int

const (
	PositiveLong Class = iota
	PositiveShort
	Negative
)

func (c Class) ttl() time.Duration {
	switch c {
	case PositiveLong:
		return 7 * 24 * time.Hour
	case PositiveShort:
		return 1 * time.Hour
	case Negative:
		return 10 * time.Minute
	default:
		return time.Minute
	}
}

// Cache namespaces keys as "namespace:key" so provider lookups, URL
// resolutions, and parsed-content summaries can share one ristretto
// instance without colliding.
type Cache struct {
	c *ristretto.Cache
}

// New builds a fingerprint cache. NumCounters follows ristretto's guidance
// of ten counters per expected entry (about 100,000 entries). Because Set
// charges every entry a cost of 1, MaxCost is a ceiling on the number of
// entries, not on bytes.
func New() (*Cache, error) {
	rc, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: 1e6,
		MaxCost:     1 << 27, // entry-count ceiling (each entry costs 1)
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("cache: %w", err)
	}
	return &Cache{c: rc}, nil
}

func namespacedKey(namespace, key string) string {
	return namespace + ":" + key
}

// Get returns the cached value and whether it was found. A miss is
// indistinguishable from an expired entry or an entry evicted under
// memory pressure — callers must treat both as "not cached", never as an
// error.
func (c *Cache) Get(namespace, key string) (any, bool) {
	return c.c.Get(namespacedKey(namespace, key))
}

// Set installs value under (namespace, key) with the TTL for class,
// weighted by an approximate cost of 1 (entries here are small structs,
// not file payloads).
func (c *Cache) Set(namespace, key string, value any, class Class) {
	c.c.SetWithTTL(namespacedKey(namespace, key), value, 1, class.ttl())
}

// Del removes an entry, used when a downstream fetch proves a cached
// negative result stale (e.g. a provider starts returning a PDF after
// previously 404ing).
func (c *Cache) Del(namespace, key string) {
	c.c.Del(namespacedKey(namespace, key))
}

// Wait blocks until ristretto's async set buffer drains, used by tests
// that need a Set to be visible to an immediately following Get.
func (c *Cache) Wait() {
	c.c.Wait()
}

// Close releases background goroutines.
func (c *Cache) Close() {
	c.c.Close()
}
