// Package cache defines the store used to memoize search results.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"
)

// Cache stores opaque values under string keys with an optional TTL.
// Implementations live in infrastructure/storage.
type Cache interface {
	// Get returns the value for key and whether it was found.
	// A miss is not an error.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores value under key. A zero TTL never expires.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Clear removes every entry owned by this cache.
	Clear(ctx context.Context) error
}

// Stats reports cache effectiveness.
type Stats struct {
	Hits   int64
	Misses int64
	// Size is the current entry count, zero when the backend does not track it.
	Size int64
	// MaxSize is the capacity, zero when unbounded.
	MaxSize int64
}

// HitRatio returns hits over lookups, or zero before any lookup.
func (s Stats) HitRatio() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total)
}

// StatsProvider is implemented by caches that count hits and misses.
type StatsProvider interface {
	Stats() Stats
}

// Key derives a stable cache key from a namespace and a free-text query.
// Queries differing only in case or whitespace share a key.
func Key(namespace, query string) string {
	normalized := strings.Join(strings.Fields(strings.ToLower(query)), " ")
	sum := sha256.Sum256([]byte(normalized))
	return namespace + ":" + hex.EncodeToString(sum[:16])
}
