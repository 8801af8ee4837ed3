package base

import (
	"context"
	"testing"

	"github.com/baraverkstad/rcstorage"
	"github.com/baraverkstad/rcstorage/path"
	"github.com/baraverkstad/rcstorage/registry/storage/driver/memory"
)

func TestStoreRejectsIndexPathAndStorageInfo(t *testing.T) {
	ctx := context.Background()
	d := memory.New()
	d.SetMountPath(path.MustParse("/storage/m/"), 1)

	// memory.New() is read-write, so these guards are checked on a
	// writable backend.
	idxPath := path.MustParse("/a/")
	if err := d.Store(ctx, idxPath, rcstorage.Dictionary{}); err == nil {
		t.Fatalf("expected an error storing to an index path")
	}

	if err := d.Store(ctx, path.MustParse("/.storageinfo"), rcstorage.Dictionary{}); err == nil {
		t.Fatalf("expected an error storing to /.storageinfo")
	}
}

func TestRemoveRejectsStorageInfo(t *testing.T) {
	ctx := context.Background()
	d := memory.New()
	if err := d.Remove(ctx, path.MustParse("/.storageinfo")); err == nil {
		t.Fatalf("expected an error removing /.storageinfo")
	}
}
