// Package cache provides the key/value cache strategy used by the cache-aside
// measurement store: string-serialized payloads with per-entry expiration,
// either sliding or absolute, expressed in minutes.
//
// Two implementations ship with the platform: RedisStrategy for production
// and MemoryStrategy for tests and cache-less deployments. Both are safe for
// concurrent use. A cache is never a source of truth - any entry may vanish
// at any time, and a miss simply triggers a store read.
package cache

import "context"

// Default expiration policy, in minutes. The short timeout serves high-churn
// shapes that are cheap to recompute (a sensor's full measurement listing);
// the standard timeout serves everything else.
const (
	DefaultTimeoutMinutes = 10
	ShortTimeoutMinutes   = 1
)

// Strategy is the abstract key/value cache. Payloads are strings (JSON
// snapshots in practice); expiration is configured per entry.
type Strategy interface {
	// Get returns the payload for key and whether it was present. A miss is
	// not an error; errors indicate the cache backend itself failed.
	Get(ctx context.Context, key string) (string, bool, error)

	// Set stores a payload with the default timeout and sliding expiration.
	Set(ctx context.Context, key, value string) error

	// SetWithExpiry stores a payload expiring after the given number of
	// minutes. With sliding expiration each read restarts the clock;
	// absolute expiration evicts at a fixed deadline regardless of reads.
	SetWithExpiry(ctx context.Context, key, value string, timeoutMinutes int, sliding bool) error

	// Remove evicts a key. Removing an absent key is not an error.
	Remove(ctx context.Context, key string) error
}
