package directory

import (
	"context"
	"os"
	"testing"

	_ "github.com/baraverkstad/rcstorage/codec"

	"github.com/baraverkstad/rcstorage"
	"github.com/baraverkstad/rcstorage/path"
)

func TestStoreLoadDictionary(t *testing.T) {
	ctx := context.Background()
	d := New(t.TempDir(), true)

	p := path.MustParse("/docs/readme")
	if err := d.Store(ctx, p, rcstorage.Dictionary{"id": "readme", "title": "hello"}); err != nil {
		t.Fatalf("Store: %v", err)
	}

	v, ok, err := d.Load(ctx, p)
	if err != nil || !ok {
		t.Fatalf("Load: ok=%v err=%v", ok, err)
	}
	dict, isDict := v.(rcstorage.Dictionary)
	if !isDict || dict["title"] != "hello" {
		t.Fatalf("Load returned %#v", v)
	}
}

func TestStoreLoadBinaryHandle(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	d := New(root, true)

	data := []byte("raw bytes")
	f, err := os.CreateTemp(root, "src-*")
	if err != nil {
		t.Fatalf("CreateTemp: %v", err)
	}
	if _, err := f.Write(data); err != nil {
		t.Fatalf("Write: %v", err)
	}
	f.Seek(0, 0)

	p := path.MustParse("/blob")
	if err := d.Store(ctx, p, &rcstorage.BinaryHandle{Stream: f}); err != nil {
		t.Fatalf("Store: %v", err)
	}
	f.Close()

	v, ok, err := d.Load(ctx, p)
	if err != nil || !ok {
		t.Fatalf("Load: ok=%v err=%v", ok, err)
	}
	handle, isHandle := v.(*rcstorage.BinaryHandle)
	if !isHandle {
		t.Fatalf("Load returned %#v, want *BinaryHandle", v)
	}
	defer handle.Stream.Close()
	if handle.Size != int64(len(data)) {
		t.Fatalf("Size = %d, want %d", handle.Size, len(data))
	}
}

func TestLookupIndex(t *testing.T) {
	ctx := context.Background()
	d := New(t.TempDir(), true)
	_ = d.Store(ctx, path.MustParse("/a/b"), rcstorage.Dictionary{})

	meta, ok, err := d.Lookup(ctx, path.MustParse("/a/"))
	if err != nil || !ok {
		t.Fatalf("Lookup: ok=%v err=%v", ok, err)
	}
	if meta.Category != rcstorage.CategoryIndex {
		t.Fatalf("Category = %v, want CategoryIndex", meta.Category)
	}
}

func TestRemovePrunesEmptyAncestors(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	d := New(root, true)
	p := path.MustParse("/a/b/c")
	_ = d.Store(ctx, p, rcstorage.Dictionary{})

	if err := d.Remove(ctx, p); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if _, err := os.Stat(root + "/a"); !os.IsNotExist(err) {
		t.Fatalf("expected empty ancestor directories to be pruned, stat err=%v", err)
	}
}

func TestReadOnlyRejectsStore(t *testing.T) {
	ctx := context.Background()
	d := New(t.TempDir(), false)
	if err := d.Store(ctx, path.MustParse("/a"), rcstorage.Dictionary{}); err == nil {
		t.Fatalf("expected an error storing to a read-only backend")
	}
}
