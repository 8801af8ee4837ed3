// Package vstore implements RootStorage, the composition root that owns
// the mount table, the per-backend caches, and the periodic cache
// cleaner, dispatching lookup/load/store/remove across the storage
// namespace (/storage/...) and the overlay namespace (everything else).
package vstore

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/baraverkstad/rcstorage"
	"github.com/baraverkstad/rcstorage/internal/dcontext"
	"github.com/baraverkstad/rcstorage/mount"
	"github.com/baraverkstad/rcstorage/notifications"
	"github.com/baraverkstad/rcstorage/path"
	"github.com/baraverkstad/rcstorage/registry/storage/cache"
	"github.com/baraverkstad/rcstorage/registry/storage/driver"
	"github.com/baraverkstad/rcstorage/registry/storage/driver/memory"
)

// mountRoot is the required prefix of every mount path.
var mountRoot = path.MustParse("/storage/")

// DefaultCleanInterval is the default period between background cache
// sweeps.
const DefaultCleanInterval = 30 * time.Second

// RootStorage is the virtual storage layer's composition root: an
// ordered mount table, a cache per eligible backend, and a cancellable
// background cleaner. It holds a single coarse lock for the whole of
// every mount-table mutation and every Lookup, Load, Store and Remove,
// including the backend I/O those operations perform; each Cache also
// guards its own state with its own lock.
type RootStorage struct {
	mu       sync.Mutex
	mounts   *mount.Table
	caches   map[string]*cache.Cache // keyed by mount path .Key()
	local    *memory.Driver          // the root's own metadata/placeholder namespace
	registry rcstorage.TypeRegistry
	now      func() any
	notify   *notifications.Bridge // nil unless SetNotifier was called

	cleanInterval time.Duration
	stopCh        chan struct{}
	stoppedCh     chan struct{}
}

// New constructs an empty RootStorage. registry supplies the external
// type-to-constructor lookup used during object initialization; now
// supplies the value stamped into a newly activated object's
// _activatedTime (typically a caller-owned clock, never time.Now
// called directly by the core).
func New(registry rcstorage.TypeRegistry, now func() any) *RootStorage {
	return &RootStorage{
		mounts:        mount.NewTable(),
		caches:        make(map[string]*cache.Cache),
		local:         memory.New(),
		registry:      registry,
		now:           now,
		cleanInterval: DefaultCleanInterval,
	}
}

// SetNotifier attaches a notification bridge; every subsequent mount,
// unmount, store and remove is reported to it. Passing nil disables
// notification.
func (s *RootStorage) SetNotifier(notify *notifications.Bridge) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notify = notify
}

// --- 4.6.1 Mount lifecycle -------------------------------------------

// Mount attaches backend at mountPath, which must be an index path under
// /storage/ and must not collide with an existing mount or metadata
// entry. The new mount starts read-only, with no overlay and priority 0.
func (s *RootStorage) Mount(ctx context.Context, backend driver.Backend, mountPath path.Path) error {
	if !mountPath.IsIndex() || !mountPath.StartsWith(mountRoot) {
		return &rcstorage.MountConflictError{Path: mountPath.String(), Reason: "mount path must be an index under /storage/"}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.mounts.Find(mountPath); ok {
		return &rcstorage.MountConflictError{Path: mountPath.String(), Reason: "mount path already in use"}
	}
	if _, ok, _ := s.local.Lookup(ctx, mountPath); ok {
		return &rcstorage.MountConflictError{Path: mountPath.String(), Reason: "collides with an existing metadata entry"}
	}

	mountTime := mount.NextMountTime()
	backend.SetMountPath(mountPath, mountTime)
	s.mounts.Add(mount.Record{
		Backend:   backend,
		Path:      mountPath,
		ReadWrite: false,
		Priority:  0,
		MountTime: mountTime,
	})

	placeholder, _ := mountPath.Child(".storageinfo", false)
	_ = s.local.Store(ctx, placeholder, rcstorage.Dictionary{})
	if s.notify != nil {
		_ = s.notify.Mounted(mountPath.String(), backend.ID())
	}
	return nil
}

// Remount updates the flags of an existing mount at mountPath: its
// read-write flag, whether it should be fronted by a Cache (and that
// cache's bounded size, 0 meaning unbounded), its overlay projection (if
// any) and overlay priority.
func (s *RootStorage) Remount(ctx context.Context, mountPath path.Path, readWrite, withCache bool, cacheSize int, overlay path.Path, hasOverlay bool, priority int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.mounts.Find(mountPath)
	if !ok {
		return &rcstorage.MountConflictError{Path: mountPath.String(), Reason: "not mounted"}
	}

	if rec.HasOverlay {
		placeholder, _ := rec.Overlay.Child(".storageinfo-"+mountKeySuffix(mountPath), false)
		_ = s.local.Remove(ctx, placeholder)
	}

	rec.ReadWrite = readWrite
	rec.HasOverlay = hasOverlay
	rec.Overlay = overlay
	rec.Priority = priority
	rec.MountTime = mount.NextMountTime()
	rec.Backend.SetMountPath(mountPath, rec.MountTime)
	rec.Backend.SetOverlay(overlay, priority, hasOverlay)
	s.mounts.Replace(rec)

	key := mountPath.Key()
	if withCache {
		if _, exists := s.caches[key]; !exists {
			var c *cache.Cache
			if cacheSize > 0 {
				c = cache.NewBounded(cacheSize)
			} else {
				c = cache.New()
			}
			if s.notify != nil {
				c.Notify = func(hook, p, class string) {
					switch hook {
					case "activate":
						_ = s.notify.Activated(p, class)
					case "passivate":
						_ = s.notify.Passivated(p, class)
					case "destroy":
						_ = s.notify.Destroyed(p, class)
					}
				}
			}
			s.caches[key] = c
		}
	} else {
		delete(s.caches, key)
	}

	if hasOverlay {
		placeholder, _ := overlay.Child(".storageinfo-"+mountKeySuffix(mountPath), false)
		_ = s.local.Store(ctx, placeholder, rcstorage.Dictionary{})
	}
	return nil
}

func mountKeySuffix(p path.Path) string {
	return strings.TrimPrefix(strings.ReplaceAll(p.String(), "/", "_"), "_")
}

// Unmount removes the mount at mountPath, purges its cache (running the
// full removal protocol over every cached entry) and destroys the
// backend.
func (s *RootStorage) Unmount(ctx context.Context, mountPath path.Path) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.unmountLocked(ctx, mountPath)
}

func (s *RootStorage) unmountLocked(ctx context.Context, mountPath path.Path) error {
	rec, ok := s.mounts.Remove(mountPath)
	if !ok {
		return &rcstorage.MountConflictError{Path: mountPath.String(), Reason: "not mounted"}
	}

	key := mountPath.Key()
	if c, exists := s.caches[key]; exists {
		_ = c.Remove(ctx, path.Root, true)
		delete(s.caches, key)
	}

	placeholder, _ := mountPath.Child(".storageinfo", false)
	_ = s.local.Remove(ctx, placeholder)
	if v, ok, _ := s.local.Load(ctx, mountPath); ok {
		if idx, isIdx := v.(rcstorage.Index); isIdx && len(idx.Indices) == 0 && len(idx.Objects) == 0 {
			_ = s.local.Remove(ctx, mountPath)
		}
	}
	if rec.HasOverlay {
		ov, _ := rec.Overlay.Child(".storageinfo-"+mountKeySuffix(mountPath), false)
		_ = s.local.Remove(ctx, ov)
	}

	if s.notify != nil {
		_ = s.notify.Unmounted(mountPath.String(), rec.Backend.ID())
	}
	return rec.Backend.Destroy(ctx)
}

// UnmountAll unmounts every mount in reverse precedence order, logging
// (not propagating) any error.
func (s *RootStorage) UnmountAll(ctx context.Context) {
	s.mu.Lock()
	all := s.mounts.ReverseAll()
	s.mu.Unlock()

	for _, rec := range all {
		if err := s.Unmount(ctx, rec.Path); err != nil {
			dcontext.GetLogger(ctx).Errorf("unmount %s: %v", rec.Path.String(), err)
		}
	}
}

// --- 4.6.2 Lookup -------------------------------------------------------

// Lookup resolves p to its merged Metadata, or (Metadata{}, false) if
// nothing resolves there.
func (s *RootStorage) Lookup(ctx context.Context, p path.Path) (rcstorage.Metadata, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if p.StartsWith(mountRoot) || p.Equal(mountRoot) {
		return s.lookupStorageNamespace(ctx, p)
	}

	var merged rcstorage.Metadata
	haveAny := false
	if p.IsIndex() || p.String() == driver.StorageInfoPath {
		if m, ok, _ := s.local.Lookup(ctx, p); ok {
			merged, haveAny = m, true
		}
	}

	for _, rec := range s.mounts.MatchingOverlay(p) {
		local, _ := p.RemovePrefix(rec.Overlay)
		localPath := rebuildLocal(rec.Path, local)

		var contrib rcstorage.Metadata
		got := false
		if c, ok := s.caches[rec.Path.Key()]; ok {
			if m, ok, _ := c.Lookup(ctx, localPath); ok {
				contrib, got = m, true
			}
		}
		if bm, ok, _ := rec.Backend.Lookup(ctx, localPath); ok {
			if got {
				contrib = contrib.Merge(bm)
			} else {
				contrib, got = bm, true
			}
		}
		if got {
			contrib.Path = p
			if haveAny {
				merged = merged.Merge(contrib)
			} else {
				merged, haveAny = contrib, true
			}
		}
	}

	return merged, haveAny, nil
}

func rebuildLocal(base path.Path, local path.Path) path.Path {
	p := base
	for i := 0; i < local.Length(); i++ {
		isIdx := local.IsIndex() || i < local.Length()-1
		p, _ = p.Child(local.NameAt(i), isIdx)
	}
	return p
}

func (s *RootStorage) lookupStorageNamespace(ctx context.Context, p path.Path) (rcstorage.Metadata, bool, error) {
	for _, rec := range s.mounts.MatchingStorage(p) {
		if c, ok := s.caches[rec.Path.Key()]; ok {
			if m, ok, _ := c.Lookup(ctx, p); ok {
				return m, true, nil
			}
		}
		if m, ok, _ := rec.Backend.Lookup(ctx, p); ok {
			return m, true, nil
		}
	}
	return s.local.Lookup(ctx, p)
}

// --- 4.6.3 Load ---------------------------------------------------------

// Load resolves p to its value: an Index, a Dictionary, a
// *rcstorage.BinaryHandle, or a rcstorage.StorableObject.
func (s *RootStorage) Load(ctx context.Context, p path.Path) (any, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if p.String() == driver.StorageInfoPath {
		return s.rootDescriptor(), true, nil
	}
	if p.StartsWith(mountRoot) || p.Equal(mountRoot) {
		return s.loadStorageNamespace(ctx, p)
	}
	if p.IsIndex() {
		return s.loadOverlayIndex(ctx, p)
	}
	return s.loadOverlayLeaf(ctx, p)
}

func (s *RootStorage) loadStorageNamespace(ctx context.Context, p path.Path) (any, bool, error) {
	for _, rec := range s.mounts.MatchingStorage(p) {
		if c, ok := s.caches[rec.Path.Key()]; ok {
			if v, ok, err := c.Load(ctx, p); ok || err != nil {
				return v, ok, err
			}
		}
		if v, ok, err := rec.Backend.Load(ctx, p); ok || err != nil {
			return v, ok, err
		}
	}
	return s.local.Load(ctx, p)
}

func (s *RootStorage) loadOverlayIndex(ctx context.Context, p path.Path) (any, bool, error) {
	result, haveAny, _ := s.local.Load(ctx, p)
	var merged rcstorage.Index
	if haveAny {
		merged = result.(rcstorage.Index)
	}

	binary := isBinaryPrefix(p)
	for _, rec := range s.mounts.MatchingOverlay(p) {
		local, _ := p.RemovePrefix(rec.Overlay)
		localPath := rebuildLocal(rec.Path, local)

		var idx rcstorage.Index
		got := false
		if c, ok := s.caches[rec.Path.Key()]; ok {
			if v, ok, _ := c.Load(ctx, localPath); ok {
				if ci, isIdx := v.(rcstorage.Index); isIdx {
					idx, got = ci, true
				}
			}
		}
		if v, ok, _ := rec.Backend.Load(ctx, localPath); ok {
			if bi, isIdx := v.(rcstorage.Index); isIdx {
				if got {
					idx = idx.Merge(bi)
				} else {
					idx, got = bi, true
				}
			}
		}
		if got {
			if !binary {
				idx = normalizeIndexObjectNames(idx)
			}
			if haveAny {
				merged = merged.Merge(idx)
			} else {
				merged, haveAny = idx, true
			}
		}
	}

	return merged, haveAny, nil
}

func normalizeIndexObjectNames(idx rcstorage.Index) rcstorage.Index {
	names := make([]string, len(idx.Objects))
	for i, n := range idx.Objects {
		names[i] = rcstorage.ObjectName(n)
	}
	out := rcstorage.NewIndex(idx.Indices, names)
	out.Modified, out.HasMod = idx.Modified, idx.HasMod
	return out
}

var binaryPrefixes = []path.Path{
	path.MustParse("/files/"),
	path.MustParse("/lib/"),
	path.MustParse("/storage/"),
}

func isBinaryPrefix(p path.Path) bool {
	for _, pre := range binaryPrefixes {
		if p.StartsWith(pre) {
			return true
		}
	}
	return false
}

func (s *RootStorage) loadOverlayLeaf(ctx context.Context, p path.Path) (any, bool, error) {
	for _, rec := range s.mounts.MatchingOverlay(p) {
		local, _ := p.RemovePrefix(rec.Overlay)
		localPath := rebuildLocal(rec.Path, local)

		c, hasCache := s.caches[rec.Path.Key()]
		if hasCache {
			if v, ok, err := c.Load(ctx, localPath); err != nil {
				return nil, false, err
			} else if ok {
				if obj, isObj := v.(rcstorage.StorableObject); isObj {
					obj.Activate()
				}
				return v, true, nil
			}
		}

		v, ok, err := rec.Backend.Load(ctx, localPath)
		if err != nil {
			return nil, false, err
		}
		if !ok {
			continue
		}
		if d, isDict := v.(rcstorage.Dictionary); isDict && hasCache {
			init, _ := s.initializeObject(ctx, rec, localPath, d)
			_ = c.Store(ctx, localPath, init)
			return init, true, nil
		}
		return v, true, nil
	}
	return nil, false, nil
}

// --- 4.6.4 Store and remove ---------------------------------------------

// Store writes v at p, dispatching through the storage or overlay
// namespace per RootStorage's resolution rules.
func (s *RootStorage) Store(ctx context.Context, p path.Path, v any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if p.String() == driver.StorageInfoPath {
		return &rcstorage.ReadOnlyError{Path: p.String()}
	}
	if p.StartsWith(mountRoot) || p.Equal(mountRoot) {
		return s.storeStorageNamespace(ctx, p, v)
	}

	wrote := false
	for _, rec := range s.mounts.MatchingOverlay(p) {
		local, _ := p.RemovePrefix(rec.Overlay)
		localPath := rebuildLocal(rec.Path, local)
		c, hasCache := s.caches[rec.Path.Key()]

		if !wrote && rec.ReadWrite {
			if hasCache {
				if err := c.Store(ctx, localPath, v); err != nil {
					return err
				}
			}
			if err := rec.Backend.Store(ctx, localPath, v); err != nil {
				return err
			}
			wrote = true
			if s.notify != nil {
				_ = s.notify.Stored(p.String(), classOf(v))
			}
			continue
		}
		if hasCache {
			_ = c.Remove(ctx, localPath, true)
		}
	}
	if !wrote {
		return &rcstorage.NoWritableStorageError{Path: p.String()}
	}
	return nil
}

func (s *RootStorage) storeStorageNamespace(ctx context.Context, p path.Path, v any) error {
	for _, rec := range s.mounts.MatchingStorage(p) {
		if c, ok := s.caches[rec.Path.Key()]; ok {
			if err := c.Store(ctx, p, v); err != nil {
				return err
			}
		}
		if err := rec.Backend.Store(ctx, p, v); err != nil {
			return err
		}
		if s.notify != nil {
			_ = s.notify.Stored(p.String(), classOf(v))
		}
		return nil
	}
	return &rcstorage.NoWritableStorageError{Path: p.String()}
}

// classOf returns a StorableObject's Type(), or "" for any other value.
func classOf(v any) string {
	if obj, ok := v.(rcstorage.StorableObject); ok {
		return obj.Type()
	}
	return ""
}

// Remove deletes p, dispatching through the storage or overlay namespace
// per RootStorage's resolution rules. Every matching overlay's cache
// entry is forcibly cleared, not only the read-write one.
func (s *RootStorage) Remove(ctx context.Context, p path.Path) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if p.String() == driver.StorageInfoPath {
		return &rcstorage.ReadOnlyError{Path: p.String()}
	}
	if p.StartsWith(mountRoot) || p.Equal(mountRoot) {
		return s.removeStorageNamespace(ctx, p)
	}

	removed := false
	for _, rec := range s.mounts.MatchingOverlay(p) {
		local, _ := p.RemovePrefix(rec.Overlay)
		localPath := rebuildLocal(rec.Path, local)
		c, hasCache := s.caches[rec.Path.Key()]

		if hasCache {
			_ = c.Remove(ctx, localPath, true)
		}
		if !removed && rec.ReadWrite {
			if err := rec.Backend.Remove(ctx, localPath); err != nil {
				return err
			}
			removed = true
		}
	}
	if !removed {
		return &rcstorage.NoWritableStorageError{Path: p.String()}
	}
	if s.notify != nil {
		_ = s.notify.Removed(p.String())
	}
	return nil
}

func (s *RootStorage) removeStorageNamespace(ctx context.Context, p path.Path) error {
	for _, rec := range s.mounts.MatchingStorage(p) {
		if c, ok := s.caches[rec.Path.Key()]; ok {
			_ = c.Remove(ctx, p, true)
		}
		if err := rec.Backend.Remove(ctx, p); err != nil {
			return err
		}
		if s.notify != nil {
			_ = s.notify.Removed(p.String())
		}
		return nil
	}
	return &rcstorage.NoWritableStorageError{Path: p.String()}
}

// --- 4.6.5 Object initialization -----------------------------------------

func (s *RootStorage) initializeObject(ctx context.Context, rec mount.Record, localPath path.Path, d rcstorage.Dictionary) (any, error) {
	subID := objectSubID(rec, localPath)
	if _, has := d["id"]; !has {
		d = d.Clone()
		d["id"] = subID
	}

	typeName, _ := d["type"].(string)
	ctor, ok := s.registry.Constructor(typeName)
	if !ok {
		return d, nil
	}

	obj := ctor(d)
	if err := obj.Init(d); err != nil {
		d = d.Clone()
		d["_error"] = err.Error()
		return d, nil
	}
	obj.Activate()
	return obj, nil
}

func objectSubID(rec mount.Record, localPath path.Path) string {
	rel, err := localPath.RemovePrefix(rec.Path)
	if err != nil {
		return rcstorage.ObjectName(localPath.Name())
	}
	comps := rel.Components()
	if len(comps) > 1 {
		comps = comps[1:]
	}
	if len(comps) == 0 {
		return ""
	}
	last := len(comps) - 1
	comps[last] = rcstorage.ObjectName(comps[last])
	return strings.Join(comps, "/")
}

func (s *RootStorage) rootDescriptor() rcstorage.Dictionary {
	d := rcstorage.Dictionary{
		"id":        "root",
		"type":      "storage/" + string(driver.TypeRoot),
		"readWrite": true,
		"mountPath": "/",
		"mountTime": int64(0),
	}
	var storages []any
	for _, rec := range s.mounts.All() {
		storages = append(storages, driver.Descriptor(rec.Backend))
	}
	d["storages"] = storages
	return rcstorage.Sterilize(d)
}

// --- 4.6.6 Background cleaning -------------------------------------------

// StartCleaner launches the cooperative background sweep goroutine,
// invoking Clean(force=false) every s.cleanInterval (default 30s) until
// StopCleaner is called.
func (s *RootStorage) StartCleaner(ctx context.Context) {
	s.mu.Lock()
	if s.stopCh != nil {
		s.mu.Unlock()
		return
	}
	s.stopCh = make(chan struct{})
	s.stoppedCh = make(chan struct{})
	s.mu.Unlock()

	go s.cleanMainloop(ctx)
}

func (s *RootStorage) cleanMainloop(ctx context.Context) {
	defer close(s.stoppedCh)
	ticker := time.NewTicker(s.cleanInterval)
	defer ticker.Stop()
	for {
		select {
		case <-s.stopCh:
			return
		case <-ticker.C:
			s.Clean(ctx, false)
		}
	}
}

// StopCleaner cancels the background sweep and waits for it to exit.
func (s *RootStorage) StopCleaner() {
	s.mu.Lock()
	stopCh := s.stopCh
	stoppedCh := s.stoppedCh
	s.stopCh, s.stoppedCh = nil, nil
	s.mu.Unlock()

	if stopCh == nil {
		return
	}
	close(stopCh)
	<-stoppedCh
}

// Clean persists every modified cached object back through Store, then
// evicts inactive entries (passivating the rest). force=true also
// destroys currently-active entries; it is reserved for shutdown.
func (s *RootStorage) Clean(ctx context.Context, force bool) {
	s.mu.Lock()
	snapshot := make(map[string]*cache.Cache, len(s.caches))
	for k, c := range s.caches {
		snapshot[k] = c
	}
	s.mu.Unlock()

	for _, c := range snapshot {
		for _, p := range c.ListModified(ctx, path.Root) {
			if v, ok, _ := c.Load(ctx, p); ok {
				if err := s.Store(ctx, p, v); err != nil {
					dcontext.GetLogger(ctx).Errorf("cacheClean: persisting %s: %v", p.String(), err)
				}
			}
		}
		_ = c.Remove(ctx, path.Root, force)
	}
}
