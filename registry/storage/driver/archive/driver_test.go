package archive

import (
	"archive/zip"
	"context"
	"os"
	"path/filepath"
	"testing"

	_ "github.com/baraverkstad/rcstorage/codec"

	"github.com/baraverkstad/rcstorage"
	"github.com/baraverkstad/rcstorage/path"
)

func writeTestZip(t *testing.T, files map[string]string) string {
	t.Helper()
	name := filepath.Join(t.TempDir(), "archive.zip")
	f, err := os.Create(name)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	zw := zip.NewWriter(f)
	for path, content := range files {
		w, err := zw.Create(path)
		if err != nil {
			t.Fatalf("zw.Create(%s): %v", path, err)
		}
		if _, err := w.Write([]byte(content)); err != nil {
			t.Fatalf("write %s: %v", path, err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("zw.Close: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("f.Close: %v", err)
	}
	return name
}

func TestOpenLoadsDataAndBinaryEntries(t *testing.T) {
	zipPath := writeTestZip(t, map[string]string{
		"docs/readme.properties": "title=hello\n",
		"docs/logo.png":          "binary-bytes",
	})

	d, err := Open(zipPath)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	ctx := context.Background()

	v, ok, err := d.Load(ctx, path.MustParse("/docs/readme"))
	if err != nil || !ok {
		t.Fatalf("Load readme: ok=%v err=%v", ok, err)
	}
	dict, isDict := v.(rcstorage.Dictionary)
	if !isDict || dict["title"] != "hello" {
		t.Fatalf("Load readme returned %#v", v)
	}

	v, ok, err = d.Load(ctx, path.MustParse("/docs/logo.png"))
	if err != nil || !ok {
		t.Fatalf("Load logo: ok=%v err=%v", ok, err)
	}
	handle, isHandle := v.(*rcstorage.BinaryHandle)
	if !isHandle {
		t.Fatalf("Load logo returned %#v, want *BinaryHandle", v)
	}
	handle.Stream.Close()
}

func TestOpenMaterializesImplicitIndices(t *testing.T) {
	zipPath := writeTestZip(t, map[string]string{
		"a/b/c.properties": "x=1\n",
	})
	d, err := Open(zipPath)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	ctx := context.Background()

	v, ok, err := d.Load(ctx, path.MustParse("/a/"))
	if err != nil || !ok {
		t.Fatalf("Load /a/: ok=%v err=%v", ok, err)
	}
	idx, isIdx := v.(rcstorage.Index)
	if !isIdx {
		t.Fatalf("Load /a/ returned %#v, want Index", v)
	}
	if len(idx.Indices) != 1 || idx.Indices[0] != "b" {
		t.Fatalf("idx.Indices = %#v, want [b]", idx.Indices)
	}
}

func TestArchiveIsReadOnly(t *testing.T) {
	zipPath := writeTestZip(t, map[string]string{"a.properties": "x=1\n"})
	d, err := Open(zipPath)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	ctx := context.Background()
	if err := d.Store(ctx, path.MustParse("/b"), rcstorage.Dictionary{}); err == nil {
		t.Fatalf("expected an error storing into a read-only archive")
	}
	if err := d.Remove(ctx, path.MustParse("/a")); err == nil {
		t.Fatalf("expected an error removing from a read-only archive")
	}
}
