// Package routecache caches rendered GET responses by route path and lets
// the action layer invalidate a path after a mutation, so the next read is
// served fresh. Entries are keyed per principal so one user's response is
// never served to another; invalidation drops a path for every principal.
// Invalidation is fire-and-forget: failures are logged, never propagated.
package routecache

import (
	"context"
	"os"
	"time"

	"github.com/sirupsen/logrus"
)

// Cache is the route-cache contract consumed by the caching middleware and
// the action layer.
type Cache interface {
	// Get returns the cached body for a path and principal, and whether it
	// was present.
	Get(ctx context.Context, path, principal string) ([]byte, bool)

	// Set stores the body for a path and principal with the cache's TTL.
	Set(ctx context.Context, path, principal string, body []byte)

	// Invalidate drops the cached entries for a path across all principals.
	Invalidate(ctx context.Context, path string)
}

// GetCache picks the route-cache backend from the environment: redis when
// CACHE_BACKEND=redis, otherwise in-process memory.
func GetCache(ttl time.Duration) Cache {
	backend := os.Getenv("CACHE_BACKEND")
	if backend == "redis" {
		addr := os.Getenv("REDIS_ADDR")
		if addr == "" {
			addr = "localhost:6379"
		}
		logrus.WithFields(logrus.Fields{"backend": "redis", "addr": addr}).Info("Use route cache")
		return NewRedisCache(addr, os.Getenv("REDIS_PASSWORD"), ttl)
	}
	logrus.WithField("backend", "memory").Info("Use route cache")
	return NewMemoryCache(ttl)
}
