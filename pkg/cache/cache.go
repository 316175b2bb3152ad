// Package cache is a JSON key/value cache with per-entry TTL. Values are
// stored as JSON so a hit decodes into exactly the shape that was set.
package cache

import (
	"context"
	"time"
)

// Store is implemented by RedisStore and MemoryStore.
type Store interface {
	// Get decodes the value under key into dest and reports whether it was
	// present. A miss is (false, nil).
	Get(ctx context.Context, key string, dest interface{}) (bool, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}
