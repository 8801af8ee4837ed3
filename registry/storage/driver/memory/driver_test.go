package memory

import (
	"context"
	"testing"

	"github.com/baraverkstad/rcstorage"
	"github.com/baraverkstad/rcstorage/path"
)

func TestStoreLoadLookup(t *testing.T) {
	ctx := context.Background()
	d := New()

	p := path.MustParse("/a/b.json")
	if err := d.Store(ctx, p, rcstorage.Dictionary{"id": "b"}); err != nil {
		t.Fatalf("Store: %v", err)
	}

	v, ok, err := d.Load(ctx, p)
	if err != nil || !ok {
		t.Fatalf("Load: ok=%v err=%v", ok, err)
	}
	dict, isDict := v.(rcstorage.Dictionary)
	if !isDict || dict["id"] != "b" {
		t.Fatalf("Load returned %#v", v)
	}

	meta, ok, err := d.Lookup(ctx, p)
	if err != nil || !ok {
		t.Fatalf("Lookup: ok=%v err=%v", ok, err)
	}
	if meta.Category != rcstorage.CategoryObject {
		t.Fatalf("Category = %v, want CategoryObject", meta.Category)
	}
}

func TestStoreCreatesAncestorIndices(t *testing.T) {
	ctx := context.Background()
	d := New()
	p := path.MustParse("/a/b/c.json")
	if err := d.Store(ctx, p, rcstorage.Dictionary{}); err != nil {
		t.Fatalf("Store: %v", err)
	}

	idxPath := path.MustParse("/a/b/")
	v, ok, err := d.Load(ctx, idxPath)
	if err != nil || !ok {
		t.Fatalf("Load index: ok=%v err=%v", ok, err)
	}
	idx, isIdx := v.(rcstorage.Index)
	if !isIdx {
		t.Fatalf("expected an Index, got %#v", v)
	}
	found := false
	for _, name := range idx.Objects {
		if name == "c.json" {
			found = true
		}
	}
	if !found {
		t.Fatalf("index at %s does not list object %q: %#v", idxPath, "c.json", idx)
	}
}

func TestRemoveObject(t *testing.T) {
	ctx := context.Background()
	d := New()
	p := path.MustParse("/a/b.json")
	if err := d.Store(ctx, p, rcstorage.Dictionary{}); err != nil {
		t.Fatalf("Store: %v", err)
	}
	if err := d.Remove(ctx, p); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if _, ok, _ := d.Load(ctx, p); ok {
		t.Fatalf("object still present after Remove")
	}
}

func TestRemoveRootClearsEverything(t *testing.T) {
	ctx := context.Background()
	d := New()
	_ = d.Store(ctx, path.MustParse("/a/b.json"), rcstorage.Dictionary{})
	if err := d.Remove(ctx, path.Root); err != nil {
		t.Fatalf("Remove root: %v", err)
	}
	if _, ok, _ := d.Load(ctx, path.MustParse("/a/b.json")); ok {
		t.Fatalf("object survived a root removal")
	}
}

func TestOverlayAndMountMetadata(t *testing.T) {
	d := New()
	mountPath := path.MustParse("/storage/mem/")
	d.SetMountPath(mountPath, 7)
	if !d.MountPath().Equal(mountPath) || d.MountTime() != 7 {
		t.Fatalf("SetMountPath did not stick")
	}

	overlay := path.MustParse("/content/")
	d.SetOverlay(overlay, 5, true)
	got, ok := d.OverlayPath()
	if !ok || !got.Equal(overlay) || d.OverlayPriority() != 5 {
		t.Fatalf("SetOverlay did not stick: got=%v ok=%v priority=%d", got, ok, d.OverlayPriority())
	}
}

func TestBinaryHandleCategory(t *testing.T) {
	ctx := context.Background()
	d := New()
	p := path.MustParse("/a/blob")
	if err := d.Store(ctx, p, &rcstorage.BinaryHandle{}); err != nil {
		t.Fatalf("Store: %v", err)
	}
	meta, ok, err := d.Lookup(ctx, p)
	if err != nil || !ok {
		t.Fatalf("Lookup: ok=%v err=%v", ok, err)
	}
	if meta.Category != rcstorage.CategoryBinary {
		t.Fatalf("Category = %v, want CategoryBinary", meta.Category)
	}
}
