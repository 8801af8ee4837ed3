package vstore

import (
	"context"
	"testing"

	"github.com/baraverkstad/rcstorage"
	"github.com/baraverkstad/rcstorage/path"
	"github.com/baraverkstad/rcstorage/registry/storage/driver/memory"
)

type nilRegistry struct{}

func (nilRegistry) Constructor(_ string) (func(d rcstorage.Dictionary) rcstorage.StorableObject, bool) {
	return nil, false
}

func newRoot() *RootStorage {
	return New(nilRegistry{}, func() any { return "now" })
}

// S1: mounting a read-only backend under /storage/ surfaces its
// .storageinfo descriptor and rejects writes through the overlay until
// Remount flips read-write.
func TestMountThenStoreRejectedUntilReadWrite(t *testing.T) {
	ctx := context.Background()
	root := newRoot()
	mountPath := path.MustParse("/storage/m/")
	backend := memory.New()

	if err := root.Mount(ctx, backend, mountPath); err != nil {
		t.Fatalf("Mount: %v", err)
	}
	defer root.UnmountAll(ctx)

	meta, ok, err := root.Lookup(ctx, mountPath)
	if err != nil || !ok {
		t.Fatalf("Lookup mount path: ok=%v err=%v", ok, err)
	}
	if meta.Category != rcstorage.CategoryIndex {
		t.Fatalf("Category = %v, want CategoryIndex", meta.Category)
	}

	if err := root.Remount(ctx, mountPath, false, false, 0, path.Path{}, false, 0); err != nil {
		t.Fatalf("Remount: %v", err)
	}
	overlay := path.MustParse("/content/")
	if err := root.Remount(ctx, mountPath, false, false, 0, overlay, true, 0); err != nil {
		t.Fatalf("Remount with overlay: %v", err)
	}
	if err := root.Store(ctx, path.MustParse("/content/a"), rcstorage.Dictionary{"id": "a"}); err == nil {
		t.Fatalf("expected Store to fail while the mount is read-only")
	}

	if err := root.Remount(ctx, mountPath, true, false, 0, overlay, true, 0); err != nil {
		t.Fatalf("Remount read-write: %v", err)
	}
	if err := root.Store(ctx, path.MustParse("/content/a"), rcstorage.Dictionary{"id": "a"}); err != nil {
		t.Fatalf("Store after Remount read-write: %v", err)
	}

	v, ok, err := root.Load(ctx, path.MustParse("/content/a"))
	if err != nil || !ok {
		t.Fatalf("Load stored object: ok=%v err=%v", ok, err)
	}
	if dict, isDict := v.(rcstorage.Dictionary); !isDict || dict["id"] != "a" {
		t.Fatalf("Load returned %#v", v)
	}
}

// S2: two overlays projected onto the same namespace merge their
// indices, with the higher-priority mount's object shadowing the lower
// one's object of the same name.
func TestOverlayPriorityShadowsLowerMount(t *testing.T) {
	ctx := context.Background()
	root := newRoot()
	overlay := path.MustParse("/content/")

	lowPath := path.MustParse("/storage/low/")
	low := memory.New()
	if err := root.Mount(ctx, low, lowPath); err != nil {
		t.Fatalf("Mount low: %v", err)
	}
	if err := root.Remount(ctx, lowPath, true, false, 0, overlay, true, 1); err != nil {
		t.Fatalf("Remount low: %v", err)
	}
	if err := root.Store(ctx, path.MustParse("/content/shared"), rcstorage.Dictionary{"from": "low"}); err != nil {
		t.Fatalf("Store low/shared: %v", err)
	}
	if err := root.Store(ctx, path.MustParse("/content/onlylow"), rcstorage.Dictionary{"from": "low"}); err != nil {
		t.Fatalf("Store low/onlylow: %v", err)
	}

	highPath := path.MustParse("/storage/high/")
	high := memory.New()
	if err := root.Mount(ctx, high, highPath); err != nil {
		t.Fatalf("Mount high: %v", err)
	}
	if err := root.Remount(ctx, highPath, true, false, 0, overlay, true, 5); err != nil {
		t.Fatalf("Remount high: %v", err)
	}
	if err := root.Store(ctx, path.MustParse("/content/shared"), rcstorage.Dictionary{"from": "high"}); err != nil {
		t.Fatalf("Store high/shared: %v", err)
	}
	defer root.UnmountAll(ctx)

	v, ok, err := root.Load(ctx, path.MustParse("/content/shared"))
	if err != nil || !ok {
		t.Fatalf("Load shared: ok=%v err=%v", ok, err)
	}
	if dict, isDict := v.(rcstorage.Dictionary); !isDict || dict["from"] != "high" {
		t.Fatalf("higher-priority mount did not shadow lower: got %#v", v)
	}

	idxVal, ok, err := root.Load(ctx, overlay)
	if err != nil || !ok {
		t.Fatalf("Load overlay index: ok=%v err=%v", ok, err)
	}
	idx, isIdx := idxVal.(rcstorage.Index)
	if !isIdx {
		t.Fatalf("Load overlay returned %#v, want Index", idxVal)
	}
	names := map[string]bool{}
	for _, n := range idx.Objects {
		names[n] = true
	}
	if !names["shared"] || !names["onlylow"] {
		t.Fatalf("merged overlay index missing entries: %#v", idx.Objects)
	}
}

// S3: removing an object through the overlay removes it from the
// underlying mount, and the underlying mount remains directly
// addressable through /storage/.
func TestRemoveThroughOverlayAndStorageNamespace(t *testing.T) {
	ctx := context.Background()
	root := newRoot()
	mountPath := path.MustParse("/storage/m/")
	overlay := path.MustParse("/content/")
	backend := memory.New()
	if err := root.Mount(ctx, backend, mountPath); err != nil {
		t.Fatalf("Mount: %v", err)
	}
	if err := root.Remount(ctx, mountPath, true, false, 0, overlay, true, 0); err != nil {
		t.Fatalf("Remount: %v", err)
	}
	defer root.UnmountAll(ctx)

	if err := root.Store(ctx, path.MustParse("/content/a"), rcstorage.Dictionary{"id": "a"}); err != nil {
		t.Fatalf("Store: %v", err)
	}
	if err := root.Remove(ctx, path.MustParse("/content/a")); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if _, ok, _ := root.Load(ctx, path.MustParse("/content/a")); ok {
		t.Fatalf("object still resolves through the overlay after Remove")
	}
	if _, ok, _ := root.Load(ctx, path.MustParse("/storage/m/a")); ok {
		t.Fatalf("object still resolves through /storage/ after Remove")
	}
}

// S4: unmounting a backend removes its cache entries and makes it
// unreachable through both namespaces.
func TestUnmountRemovesStorageAndOverlayVisibility(t *testing.T) {
	ctx := context.Background()
	root := newRoot()
	mountPath := path.MustParse("/storage/m/")
	overlay := path.MustParse("/content/")
	backend := memory.New()
	if err := root.Mount(ctx, backend, mountPath); err != nil {
		t.Fatalf("Mount: %v", err)
	}
	if err := root.Remount(ctx, mountPath, true, false, 0, overlay, true, 0); err != nil {
		t.Fatalf("Remount: %v", err)
	}
	if err := root.Store(ctx, path.MustParse("/content/a"), rcstorage.Dictionary{"id": "a"}); err != nil {
		t.Fatalf("Store: %v", err)
	}

	if err := root.Unmount(ctx, mountPath); err != nil {
		t.Fatalf("Unmount: %v", err)
	}
	if _, ok, _ := root.Lookup(ctx, mountPath); ok {
		t.Fatalf("mount path still resolves after Unmount")
	}
	if _, ok, _ := root.Load(ctx, path.MustParse("/content/a")); ok {
		t.Fatalf("overlay content still resolves after Unmount")
	}
}

// S5: the root descriptor at /.storageinfo reflects every mounted
// backend.
func TestRootDescriptorListsMounts(t *testing.T) {
	ctx := context.Background()
	root := newRoot()
	if err := root.Mount(ctx, memory.New(), path.MustParse("/storage/a/")); err != nil {
		t.Fatalf("Mount a: %v", err)
	}
	if err := root.Mount(ctx, memory.New(), path.MustParse("/storage/b/")); err != nil {
		t.Fatalf("Mount b: %v", err)
	}
	defer root.UnmountAll(ctx)

	v, ok, err := root.Load(ctx, path.MustParse("/.storageinfo"))
	if err != nil || !ok {
		t.Fatalf("Load /.storageinfo: ok=%v err=%v", ok, err)
	}
	d, isDict := v.(rcstorage.Dictionary)
	if !isDict {
		t.Fatalf("Load /.storageinfo returned %#v, want Dictionary", v)
	}
	storages, ok := d["storages"].([]any)
	if !ok || len(storages) != 2 {
		t.Fatalf("root descriptor storages = %#v, want 2 entries", d["storages"])
	}
}

// S6: mounting outside /storage/ or onto an existing mount is rejected.
func TestMountRejectsInvalidPaths(t *testing.T) {
	ctx := context.Background()
	root := newRoot()
	defer root.UnmountAll(ctx)

	if err := root.Mount(ctx, memory.New(), path.MustParse("/content/")); err == nil {
		t.Fatalf("expected an error mounting outside /storage/")
	}
	mountPath := path.MustParse("/storage/m/")
	if err := root.Mount(ctx, memory.New(), mountPath); err != nil {
		t.Fatalf("Mount: %v", err)
	}
	if err := root.Mount(ctx, memory.New(), mountPath); err == nil {
		t.Fatalf("expected an error mounting twice at the same path")
	}
}
