// Package cache stores persisted vase documents behind a small key/value
// interface with several backends.
//
// The document codec in pkg/io only deals in bytes; this package decides
// where those bytes live. Backends:
//
//   - [FileCache]: gzip-compressed files with a JSON sidecar, for the CLI
//   - [MemoryCache]: in-process TTL cache (jellydator/ttlcache)
//   - [RedisCache]: Redis via go-redis
//   - [MongoCache]: one MongoDB document per key
//   - [S3Cache]: one S3 object per key
//   - [SQLCache]: one table row per key, on SQLite or Postgres
//   - [NullCache]: caching disabled
//
// [Open] picks a backend from pkg/config and wraps it so that hits, misses
// and writes are reported to pkg/observability.
//
// Keys come from a [Keyer]; see [DefaultKeyer.DocumentKey].
package cache

import (
	"context"
	"time"
)

// Cache is a byte store with optional per-entry expiry.
//
// Get reports a miss as (nil, false, nil); errors are reserved for backend
// failures. A ttl of zero or less means the entry does not expire.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Close() error
}
