// Package metrics declares the prometheus namespaces and concrete
// counters/timers exposed by the storage layer: cache hit/miss/eviction
// counts, lifecycle hook counts, and backend operation latencies.
package metrics

import "github.com/docker/go-metrics"

const (
	// NamespacePrefix is the namespace of every metric this module emits.
	NamespacePrefix = "rcstorage"
)

var (
	// StorageNamespace covers mount, backend and lifecycle operations.
	StorageNamespace = metrics.NewNamespace(NamespacePrefix, "storage", nil)

	// CacheNamespace covers object-cache hit/miss/eviction counters.
	CacheNamespace = metrics.NewNamespace(NamespacePrefix, "cache", nil)
)

var (
	// CacheHits counts Cache.Lookup/Load calls served from the cache.
	CacheHits = CacheNamespace.NewLabeledCounter("hits", "number of cache hits", "operation")

	// CacheMisses counts Cache.Lookup/Load calls that fell through to the
	// backend.
	CacheMisses = CacheNamespace.NewLabeledCounter("misses", "number of cache misses", "operation")

	// CacheEvictions counts entries dropped by the bounded LRU.
	CacheEvictions = CacheNamespace.NewCounter("evictions", "number of bounded-cache evictions")

	// LifecycleHooks counts StorableObject lifecycle transitions.
	LifecycleHooks = StorageNamespace.NewLabeledCounter("lifecycle_hooks", "number of lifecycle hook invocations", "hook")

	// BackendLatency times Backend Lookup/Load/Store/Remove calls.
	BackendLatency = StorageNamespace.NewLabeledTimer("backend_latency", "backend operation latency", "driver", "operation")
)

func init() {
	metrics.Register(StorageNamespace)
	metrics.Register(CacheNamespace)
}
