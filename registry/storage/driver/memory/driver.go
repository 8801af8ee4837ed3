// Package memory implements an in-memory map-backed Backend, generalized
// from a tree of directories/files to a pair of maps holding arbitrary
// object values and explicit parent Index values, so a memory backend
// can hold StorableObject values directly (the only backend variant
// required to).
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/baraverkstad/rcstorage"
	"github.com/baraverkstad/rcstorage/path"
	"github.com/baraverkstad/rcstorage/registry/storage/driver"
	"github.com/baraverkstad/rcstorage/registry/storage/driver/base"
	"github.com/baraverkstad/rcstorage/registry/storage/driver/factory"
)

const backendType = "memory"

func init() {
	factory.Register(backendType, backendFactory{})
}

type backendFactory struct{}

func (backendFactory) Create(parameters map[string]any) (driver.Backend, error) {
	return New(), nil
}

type backend struct {
	mu        sync.RWMutex
	objects   map[string]any
	indices   map[string]rcstorage.Index
	id        string
	readWrite bool
	mountPath path.Path
	mountTime int64
	overlayOK bool
	overlayAt path.Path
	overlayP  int
}

type baseEmbed struct {
	base.Base
}

// Driver is an in-memory Backend. Intended for plugin-style mounts and
// for the ephemeral caches that front the other backend variants.
type Driver struct {
	baseEmbed
}

// New constructs an empty, read-write Driver.
func New() *Driver {
	b := &backend{
		objects:   make(map[string]any),
		indices:   map[string]rcstorage.Index{path.Root.Key(): {Modified: time.Now(), HasMod: true}},
		readWrite: true,
		mountPath: path.Root,
	}
	return &Driver{baseEmbed{base.Base{Backend: b}}}
}

func (b *backend) ID() string           { return b.id }
func (b *backend) Type() driver.Type    { return driver.TypeMemory }
func (b *backend) ReadWrite() bool      { return b.readWrite }
func (b *backend) MountPath() path.Path { return b.mountPath }
func (b *backend) MountTime() int64     { return b.mountTime }
func (b *backend) OverlayPriority() int { return b.overlayP }

func (b *backend) SetMountPath(p path.Path, mountTime int64) {
	b.mountPath, b.mountTime = p, mountTime
	if b.id == "" {
		b.id = p.String()
	}
}

func (b *backend) OverlayPath() (path.Path, bool) {
	return b.overlayAt, b.overlayOK
}

func (b *backend) SetOverlay(p path.Path, priority int, ok bool) {
	b.overlayAt, b.overlayP, b.overlayOK = p, priority, ok
}

// touchAncestors stamps every ancestor index of p as modified. register
// updates p's own name in its immediate parent; with listIndices, each
// higher ancestor also lists the intermediate index below it.
func (b *backend) touchAncestors(p path.Path, listIndices bool, register func(parent rcstorage.Index, name string) rcstorage.Index) {
	now := time.Now()
	child := p
	for {
		parent := child.Parent()
		idx := b.indices[parent.Key()]
		if child.Equal(p) {
			idx = register(idx, child.Name())
		} else if listIndices {
			idx = idx.WithIndexName(child.Name())
		}
		idx.Modified = now
		idx.HasMod = true
		b.indices[parent.Key()] = idx
		if parent.IsRoot() {
			return
		}
		child = parent
	}
}

func (b *backend) Lookup(ctx context.Context, p path.Path) (rcstorage.Metadata, bool, error) {
	if p.String() == driver.StorageInfoPath {
		return rcstorage.Metadata{
			Category: rcstorage.CategoryObject,
			Path:     p,
			Backends: []path.Path{b.mountPath},
			Modified: time.Unix(0, b.mountTime),
			HasMod:   true,
		}, true, nil
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	if p.IsIndex() {
		idx, ok := b.indices[p.Key()]
		if !ok {
			return rcstorage.Metadata{}, false, nil
		}
		return rcstorage.Metadata{
			Category: rcstorage.CategoryIndex,
			Path:     p,
			Backends: []path.Path{b.mountPath},
			Modified: idx.Modified,
			HasMod:   idx.HasMod,
		}, true, nil
	}

	obj, ok := b.objects[p.Key()]
	if !ok {
		return rcstorage.Metadata{}, false, nil
	}
	category := rcstorage.CategoryObject
	if _, isBin := obj.(*rcstorage.BinaryHandle); isBin {
		category = rcstorage.CategoryBinary
	}
	return rcstorage.Metadata{
		Category: category,
		Path:     p,
		Backends: []path.Path{b.mountPath},
	}, true, nil
}

func (b *backend) Load(ctx context.Context, p path.Path) (any, bool, error) {
	if p.String() == driver.StorageInfoPath {
		return driver.Descriptor(b), true, nil
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	if p.IsIndex() {
		idx, ok := b.indices[p.Key()]
		if !ok {
			return nil, false, nil
		}
		return idx, true, nil
	}
	obj, ok := b.objects[p.Key()]
	return obj, ok, nil
}

func (b *backend) Store(ctx context.Context, p path.Path, data any) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.objects[p.Key()] = data
	b.touchAncestors(p, true, func(idx rcstorage.Index, name string) rcstorage.Index {
		return idx.WithObjectName(name)
	})
	// Ensure every ancestor index exists (even if not yet separately
	// touched), so Lookup/Load can find intermediate containers.
	for anc := p.Parent(); ; anc = anc.Parent() {
		if _, ok := b.indices[anc.Key()]; !ok {
			b.indices[anc.Key()] = rcstorage.Index{Modified: time.Now(), HasMod: true}
		}
		if anc.IsRoot() {
			break
		}
	}
	return nil
}

func (b *backend) Remove(ctx context.Context, p path.Path) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if p.IsRoot() {
		b.objects = make(map[string]any)
		b.indices = map[string]rcstorage.Index{path.Root.Key(): {Modified: time.Now(), HasMod: true}}
		return nil
	}

	if p.IsIndex() {
		delete(b.indices, p.Key())
	} else {
		delete(b.objects, p.Key())
	}
	b.touchAncestors(p, false, func(idx rcstorage.Index, name string) rcstorage.Index {
		return idx.WithoutName(name)
	})
	return nil
}

// Destroy drops the backend's maps without invoking lifecycle hooks on
// any contained StorableObject values — eviction lifecycle is the
// cache's responsibility, not the backend's.
func (b *backend) Destroy(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.objects = nil
	b.indices = nil
	return nil
}
