// Package observability provides hooks for metrics and logging.
//
// This package enables optional instrumentation without tying the codec,
// cache and job packages to a metrics backend. Consumers register hooks at
// startup to receive events about document encoding and decoding, cache
// lookups and job state transitions.
//
// # Architecture
//
// The package uses a simple hooks pattern:
//   - Define hook interfaces for different event categories
//   - Provide no-op default implementations
//   - Allow registration of custom implementations at startup
//
// [NewPrometheusHooks] implements every hook interface on top of
// prometheus/client_golang and is what `vase serve` registers.
//
// # Usage
//
// Register hooks at application startup:
//
//	func main() {
//	    h := observability.NewPrometheusHooks(prometheus.DefaultRegisterer)
//	    observability.SetCodecHooks(h)
//	    observability.SetCacheHooks(h)
//	    observability.SetJobHooks(h)
//	    // ... run application
//	}
//
// Libraries call hooks to emit events:
//
//	start := time.Now()
//	doc, err := decode(r)
//	observability.Codec().OnDecode(time.Since(start), err)
package observability

import (
	"context"
	"sync"
	"time"
)

// =============================================================================
// Codec Hooks
// =============================================================================

// CodecHooks receives events from the document reader and writer.
type CodecHooks interface {
	// OnDecode records a finished deserialize call. err is nil on success.
	OnDecode(duration time.Duration, err error)

	// OnEncode records a finished serialize call.
	OnEncode(duration time.Duration, err error)
}

// =============================================================================
// Cache Hooks
// =============================================================================

// CacheHooks receives events from cache operations.
type CacheHooks interface {
	// OnCacheHit records a cache hit.
	OnCacheHit(ctx context.Context, driver string)

	// OnCacheMiss records a cache miss.
	OnCacheMiss(ctx context.Context, driver string)

	// OnCacheSet records a cache write.
	OnCacheSet(ctx context.Context, driver string, size int)
}

// =============================================================================
// Job Hooks
// =============================================================================

// JobHooks receives events from the document job queue.
type JobHooks interface {
	// OnJobTransition records a job moving into state.
	OnJobTransition(ctx context.Context, jobID, state string)

	// OnJobComplete records a finished job. err is nil for FINISHED jobs.
	OnJobComplete(ctx context.Context, jobID string, duration time.Duration, err error)
}

// =============================================================================
// No-op Implementations
// =============================================================================

// NoopCodecHooks is a no-op implementation of CodecHooks.
type NoopCodecHooks struct{}

func (NoopCodecHooks) OnDecode(time.Duration, error) {}
func (NoopCodecHooks) OnEncode(time.Duration, error) {}

// NoopCacheHooks is a no-op implementation of CacheHooks.
type NoopCacheHooks struct{}

func (NoopCacheHooks) OnCacheHit(context.Context, string)      {}
func (NoopCacheHooks) OnCacheMiss(context.Context, string)     {}
func (NoopCacheHooks) OnCacheSet(context.Context, string, int) {}

// NoopJobHooks is a no-op implementation of JobHooks.
type NoopJobHooks struct{}

func (NoopJobHooks) OnJobTransition(context.Context, string, string)                {}
func (NoopJobHooks) OnJobComplete(context.Context, string, time.Duration, error) {}

// =============================================================================
// Global Hook Registry
// =============================================================================

var (
	codecHooks CodecHooks = NoopCodecHooks{}
	cacheHooks CacheHooks = NoopCacheHooks{}
	jobHooks   JobHooks   = NoopJobHooks{}
	hooksMu    sync.RWMutex
)

// SetCodecHooks registers custom codec hooks.
// This should be called once at application startup before any documents are read.
func SetCodecHooks(h CodecHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		codecHooks = h
	}
}

// SetCacheHooks registers custom cache hooks.
// This should be called once at application startup before any cache operations.
func SetCacheHooks(h CacheHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		cacheHooks = h
	}
}

// SetJobHooks registers custom job hooks.
func SetJobHooks(h JobHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		jobHooks = h
	}
}

// Codec returns the registered codec hooks.
func Codec() CodecHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return codecHooks
}

// Cache returns the registered cache hooks.
func Cache() CacheHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return cacheHooks
}

// Job returns the registered job hooks.
func Job() JobHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return jobHooks
}

// Reset restores all hooks to their no-op defaults.
// This is primarily useful for testing.
func Reset() {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	codecHooks = NoopCodecHooks{}
	cacheHooks = NoopCacheHooks{}
	jobHooks = NoopJobHooks{}
}
