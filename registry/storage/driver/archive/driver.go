// Package archive implements a read-only Backend over a zip archive file:
// on open it walks every entry once and materializes an Index at every
// directory level, so subsequent lookups never re-scan the archive.
package archive

import (
	"archive/zip"
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	digest "github.com/opencontainers/go-digest"

	"github.com/baraverkstad/rcstorage"
	"github.com/baraverkstad/rcstorage/path"
	"github.com/baraverkstad/rcstorage/registry/storage/driver"
	"github.com/baraverkstad/rcstorage/registry/storage/driver/base"
	"github.com/baraverkstad/rcstorage/registry/storage/driver/factory"
)

const backendType = "archive"

// Parameters configures an archive Backend.
type Parameters struct {
	File string
}

func init() {
	factory.Register(backendType, backendFactory{})
}

type backendFactory struct{}

func (backendFactory) Create(parameters map[string]any) (driver.Backend, error) {
	var p Parameters
	if err := factory.Decode(parameters, &p); err != nil {
		return nil, err
	}
	if p.File == "" {
		return nil, fmt.Errorf("archive: missing required %q parameter", "file")
	}
	return Open(p.File)
}

type entry struct {
	file *zip.File // nil for an implicit (no explicit entry) directory
	mod  time.Time
}

type backend struct {
	id        string
	zr        *zip.ReadCloser
	archiveAt time.Time
	indices   map[string]rcstorage.Index
	objects   map[string]entry
	mountPath path.Path
	mountTime int64
	overlayOK bool
	overlayAt path.Path
	overlayP  int
}

type baseEmbed struct {
	base.Base
}

// Driver is a read-only Backend serving the contents of a zip archive.
type Driver struct {
	baseEmbed
}

// Open opens file as a zip archive and walks it once, materializing the
// index tree held in memory for the life of the Driver.
func Open(file string) (*Driver, error) {
	fi, err := os.Stat(file)
	if err != nil {
		return nil, &rcstorage.IOError{Path: file, Err: err}
	}
	zr, err := zip.OpenReader(file)
	if err != nil {
		return nil, &rcstorage.IOError{Path: file, Err: err}
	}

	b := &backend{
		id:        file,
		zr:        zr,
		archiveAt: fi.ModTime(),
		indices:   map[string]rcstorage.Index{path.Root.Key(): {}},
		objects:   make(map[string]entry),
		mountPath: path.Root,
	}
	b.indices[path.Root.Key()] = rcstorage.Index{Modified: fi.ModTime(), HasMod: true}

	for _, f := range zr.File {
		name := strings.TrimSuffix(f.Name, "/")
		isDir := f.FileInfo().IsDir() || strings.HasSuffix(f.Name, "/")
		p, err := path.Parse("/" + name + boolSlash(isDir))
		if err != nil {
			continue
		}
		b.ensureAncestors(p, f.ModTime())
		if isDir {
			b.indices[p.Key()] = rcstorage.Index{Modified: f.ModTime(), HasMod: true}
			parent := p.Parent()
			idx := b.indices[parent.Key()]
			b.indices[parent.Key()] = idx.WithIndexName(p.Name())
		} else {
			b.objects[p.Key()] = entry{file: f, mod: f.ModTime()}
			parent := p.Parent()
			idx := b.indices[parent.Key()]
			b.indices[parent.Key()] = idx.WithObjectName(rcstorage.ObjectName(p.Name()))
		}
	}

	return &Driver{baseEmbed{base.Base{Backend: b}}}, nil
}

func boolSlash(isDir bool) string {
	if isDir {
		return "/"
	}
	return ""
}

// ensureAncestors materializes an implicit Index for every ancestor
// directory that has no explicit zip entry, defaulting its timestamp to
// the archive file's own mtime per the open question on archive index
// timestamp defaulting.
func (b *backend) ensureAncestors(p path.Path, mod time.Time) {
	for anc := p.Parent(); ; anc = anc.Parent() {
		if _, ok := b.indices[anc.Key()]; !ok {
			b.indices[anc.Key()] = rcstorage.Index{Modified: b.archiveAt, HasMod: true}
		}
		if !anc.IsRoot() {
			parent := anc.Parent()
			idx := b.indices[parent.Key()]
			b.indices[parent.Key()] = idx.WithIndexName(anc.Name())
		}
		if anc.IsRoot() {
			return
		}
	}
}

// findEntry resolves p to an archive entry by its literal name, then by
// p's name plus each recognized data extension.
func (b *backend) findEntry(p path.Path) (entry, bool) {
	if e, ok := b.objects[p.Key()]; ok {
		return e, true
	}
	for _, ext := range rcstorage.DataExtensions() {
		if cand, err := p.Sibling(p.Name() + ext); err == nil {
			if e, ok := b.objects[cand.Key()]; ok {
				return e, true
			}
		}
	}
	return entry{}, false
}

func (b *backend) ID() string           { return b.id }
func (b *backend) Type() driver.Type    { return driver.TypeArchive }
func (b *backend) ReadWrite() bool      { return false }
func (b *backend) MountPath() path.Path { return b.mountPath }
func (b *backend) MountTime() int64     { return b.mountTime }
func (b *backend) OverlayPriority() int { return b.overlayP }

func (b *backend) SetMountPath(p path.Path, mountTime int64) {
	b.mountPath, b.mountTime = p, mountTime
}

func (b *backend) OverlayPath() (path.Path, bool) {
	return b.overlayAt, b.overlayOK
}

func (b *backend) SetOverlay(p path.Path, priority int, ok bool) {
	b.overlayAt, b.overlayP, b.overlayOK = p, priority, ok
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
	e, ok := b.findEntry(p)
	if !ok {
		return rcstorage.Metadata{}, false, nil
	}
	category := rcstorage.CategoryBinary
	mime := ""
	if s, ok := rcstorage.SerializerFor(extOf(e.file.Name)); ok {
		category = rcstorage.CategoryObject
		mime = s.MIME()
	}
	return rcstorage.Metadata{
		Category: category,
		Path:     p,
		Backends: []path.Path{b.mountPath},
		MIME:     mime,
		Modified: e.mod,
		HasMod:   true,
		Size:     int64(e.file.UncompressedSize64),
		HasSize:  true,
	}, true, nil
}

func (b *backend) Load(ctx context.Context, p path.Path) (any, bool, error) {
	if p.String() == driver.StorageInfoPath {
		return driver.Descriptor(b), true, nil
	}
	if p.IsIndex() {
		idx, ok := b.indices[p.Key()]
		if !ok {
			return nil, false, nil
		}
		return idx, true, nil
	}
	e, ok := b.findEntry(p)
	if !ok {
		return nil, false, nil
	}
	if _, isData := rcstorage.SerializerFor(extOf(e.file.Name)); isData {
		rc, err := e.file.Open()
		if err != nil {
			return nil, false, &rcstorage.IOError{Path: p.String(), Err: err}
		}
		defer rc.Close()
		d, err := rcstorage.Deserialize(e.file.Name, rc)
		if err != nil {
			return nil, false, &rcstorage.IOError{Path: p.String(), Err: err}
		}
		return d, true, nil
	}

	rc, err := e.file.Open()
	if err != nil {
		return nil, false, &rcstorage.IOError{Path: p.String(), Err: err}
	}
	dgst, err := digest.Canonical.FromReader(rc)
	rc.Close()
	if err != nil {
		return nil, false, &rcstorage.IOError{Path: p.String(), Err: err}
	}
	stream, err := e.file.Open()
	if err != nil {
		return nil, false, &rcstorage.IOError{Path: p.String(), Err: err}
	}
	return &rcstorage.BinaryHandle{
		Stream:   stream,
		Size:     int64(e.file.UncompressedSize64),
		Modified: e.mod,
		Hash:     dgst,
	}, true, nil
}

func extOf(name string) string {
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		return name[i:]
	}
	return ""
}

func (b *backend) Store(ctx context.Context, p path.Path, data any) error {
	return &rcstorage.ReadOnlyError{Path: p.String()}
}

func (b *backend) Remove(ctx context.Context, p path.Path) error {
	return &rcstorage.ReadOnlyError{Path: p.String()}
}

func (b *backend) Destroy(ctx context.Context) error {
	return b.zr.Close()
}
