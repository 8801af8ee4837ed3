// Package cache implements the lifecycle-aware memory overlay that sits
// in front of an eligible backend: one Cache per backend that has been
// mounted with an overlay and requested to be cached, keyed by object
// paths (extension stripped).
package cache

import (
	"context"
	"sort"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/baraverkstad/rcstorage"
	"github.com/baraverkstad/rcstorage/metrics"
	"github.com/baraverkstad/rcstorage/path"
	"github.com/baraverkstad/rcstorage/registry/storage/driver/memory"
)

// Cache is a per-backend memory overlay holding activated StorableObject
// values (and other decoded values) between accesses, applying the
// passivate/destroy lifecycle protocol on eviction.
type Cache struct {
	mu      sync.Mutex
	backend *memory.Driver
	bounded *lru.Cache[string, path.Path] // passivated-inactive entries only

	// Notify, if set, is called after each lifecycle hook fires, with the
	// hook name ("activate", "passivate", "destroy"), the object's path
	// and its StorableObject.Type(). Left nil, no notification occurs.
	Notify func(hook, objectPath, class string)
}

// New constructs an unbounded Cache.
func New() *Cache {
	return &Cache{backend: memory.New()}
}

// NewBounded constructs a Cache that caps the number of passivated,
// inactive entries retained between sweeps at size. size <= 0 means
// unbounded, matching the default activity-driven cache.
func NewBounded(size int) *Cache {
	c := &Cache{backend: memory.New()}
	if size > 0 {
		evictor, _ := lru.NewWithEvict(size, func(_ string, p path.Path) {
			c.evictBounded(p)
		})
		c.bounded = evictor
	}
	return c
}

func (c *Cache) evictBounded(p path.Path) {
	if v, ok, _ := c.backend.Load(context.Background(), p); ok {
		c.destroyValue(p, v)
		_ = c.backend.Remove(context.Background(), p)
		metrics.CacheEvictions.Inc(1)
	}
}

func (c *Cache) notify(hook string, p path.Path, v any) {
	if c.Notify == nil {
		return
	}
	class := ""
	if obj, ok := v.(rcstorage.StorableObject); ok {
		class = obj.Type()
	}
	c.Notify(hook, p.String(), class)
}

// Lookup returns metadata for the cached object at p.
func (c *Cache) Lookup(ctx context.Context, p path.Path) (rcstorage.Metadata, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	meta, ok, err := c.backend.Lookup(ctx, p)
	if ok {
		metrics.CacheHits.WithValues("lookup").Inc(1)
	} else {
		metrics.CacheMisses.WithValues("lookup").Inc(1)
	}
	return meta, ok, err
}

// Load returns the cached value at p; if it is a StorableObject, it is
// activated before being returned.
func (c *Cache) Load(ctx context.Context, p path.Path) (any, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok, err := c.backend.Load(ctx, p)
	if err != nil || !ok {
		metrics.CacheMisses.WithValues("load").Inc(1)
		return v, ok, err
	}
	metrics.CacheHits.WithValues("load").Inc(1)
	if obj, isObj := v.(rcstorage.StorableObject); isObj {
		obj.Activate()
		metrics.LifecycleHooks.WithValues("activate").Inc(1)
		c.notify("activate", p, v)
		c.touchBounded(p, false)
	}
	return v, true, nil
}

// Store inserts v at p. If v is a StorableObject it is passivated before
// being stored; a different prior value at p is destroyed, after being
// passivated if it is still active. If v is not storable and a prior value
// existed, the prior value is removed and destroyed.
func (c *Cache) Store(ctx context.Context, p path.Path, v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	prev, hadPrev, _ := c.backend.Load(ctx, p)

	if obj, isObj := v.(rcstorage.StorableObject); isObj {
		if hadPrev && !sameValue(prev, v) {
			c.destroyValue(p, prev)
		}
		obj.Passivate()
		metrics.LifecycleHooks.WithValues("passivate").Inc(1)
		c.notify("passivate", p, v)
		if err := c.backend.Store(ctx, p, v); err != nil {
			return err
		}
		c.touchBounded(p, true)
		return nil
	}

	if hadPrev {
		c.destroyValue(p, prev)
		_ = c.backend.Remove(ctx, p)
	}
	return c.backend.Store(ctx, p, v)
}

func sameValue(a, b any) bool {
	ap, aok := a.(rcstorage.StorableObject)
	bp, bok := b.(rcstorage.StorableObject)
	return aok && bok && ap == bp
}

func (c *Cache) destroyValue(p path.Path, v any) {
	if obj, ok := v.(rcstorage.StorableObject); ok {
		if obj.IsActive() {
			obj.Passivate()
			metrics.LifecycleHooks.WithValues("passivate").Inc(1)
			c.notify("passivate", p, v)
		}
		obj.Destroy()
		metrics.LifecycleHooks.WithValues("destroy").Inc(1)
		c.notify("destroy", p, v)
	}
}

// Remove removes every cached entry at or under p. A non-storable value,
// or force, or an inactive StorableObject is removed and destroyed;
// otherwise the StorableObject is only passivated and kept.
func (c *Cache) Remove(ctx context.Context, p path.Path, force bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	paths := c.pathsUnder(ctx, p)
	for _, cp := range paths {
		v, ok, _ := c.backend.Load(ctx, cp)
		if !ok {
			continue
		}
		obj, isObj := v.(rcstorage.StorableObject)
		if !isObj || force || !obj.IsActive() {
			c.destroyValue(cp, v)
			_ = c.backend.Remove(ctx, cp)
		} else {
			obj.Passivate()
			metrics.LifecycleHooks.WithValues("passivate").Inc(1)
			c.notify("passivate", cp, v)
		}
	}
	return nil
}

// ListModified returns the paths of cached StorableObjects at or under p
// whose IsModified() is true.
func (c *Cache) ListModified(ctx context.Context, p path.Path) []path.Path {
	c.mu.Lock()
	defer c.mu.Unlock()

	var out []path.Path
	for _, cp := range c.pathsUnder(ctx, p) {
		v, ok, _ := c.backend.Load(ctx, cp)
		if !ok {
			continue
		}
		if obj, isObj := v.(rcstorage.StorableObject); isObj && obj.IsModified() {
			out = append(out, cp)
		}
	}
	return out
}

// pathsUnder enumerates every object path currently cached at or below
// p, by walking the memory backend's index tree. Caller must hold c.mu.
func (c *Cache) pathsUnder(ctx context.Context, p path.Path) []path.Path {
	var out []path.Path
	var walk func(idxPath path.Path)
	walk = func(idxPath path.Path) {
		v, ok, _ := c.backend.Load(ctx, idxPath)
		if !ok {
			return
		}
		idx, isIdx := v.(rcstorage.Index)
		if !isIdx {
			return
		}
		for _, name := range idx.Objects {
			if leaf, err := idxPath.Child(name, false); err == nil {
				out = append(out, leaf)
			}
		}
		for _, name := range idx.Indices {
			if child, err := idxPath.Child(name, true); err == nil {
				walk(child)
			}
		}
	}
	base := p
	if !base.IsIndex() {
		if v, ok, _ := c.backend.Load(ctx, p); ok {
			if _, isIdx := v.(rcstorage.Index); !isIdx {
				return []path.Path{p}
			}
		}
		asIndex, err := p.Parent().Child(p.Name(), true)
		if err != nil {
			return nil
		}
		base = asIndex
	}
	walk(base)

	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out
}

// touchBounded tracks p in the bounded LRU only while it is passivated
// and inactive: justStored marks it a candidate for LRU eviction,
// reloading (activating) it removes it from consideration until the
// next passivation.
func (c *Cache) touchBounded(p path.Path, justStored bool) {
	if c.bounded == nil {
		return
	}
	if justStored {
		c.bounded.Add(p.Key(), p)
	} else {
		c.bounded.Remove(p.Key())
	}
}
