// Package directory implements a filesystem-backed Backend: each index
// is a directory, each object is either a recognized data file or an
// arbitrary binary, and writes are crash-safe via a temp-file-then-
// rename sequence.
package directory

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	digest "github.com/opencontainers/go-digest"

	"github.com/baraverkstad/rcstorage"
	"github.com/baraverkstad/rcstorage/internal/uuid"
	"github.com/baraverkstad/rcstorage/path"
	"github.com/baraverkstad/rcstorage/registry/storage/driver"
	"github.com/baraverkstad/rcstorage/registry/storage/driver/base"
	"github.com/baraverkstad/rcstorage/registry/storage/driver/factory"
)

const backendType = "directory"

// Parameters configures a directory Backend, decoded from a
// configuration's loosely-typed parameter map via mapstructure.
type Parameters struct {
	Root      string
	ReadWrite bool
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
	if p.Root == "" {
		return nil, fmt.Errorf("directory: missing required %q parameter", "root")
	}
	return New(p.Root, p.ReadWrite), nil
}

type backend struct {
	id        string
	root      string
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

// Driver is a filesystem-rooted Backend, all of whose paths resolve
// under Root.
type Driver struct {
	baseEmbed
}

// New constructs a Driver rooted at root.
func New(root string, readWrite bool) *Driver {
	b := &backend{id: root, root: root, readWrite: readWrite, mountPath: path.Root}
	return &Driver{baseEmbed{base.Base{Backend: b}}}
}

func (b *backend) ID() string             { return b.id }
func (b *backend) Type() driver.Type      { return driver.TypeDirectory }
func (b *backend) ReadWrite() bool        { return b.readWrite }
func (b *backend) MountPath() path.Path   { return b.mountPath }
func (b *backend) MountTime() int64       { return b.mountTime }
func (b *backend) OverlayPriority() int   { return b.overlayP }

func (b *backend) SetMountPath(p path.Path, mountTime int64) {
	b.mountPath = p
	b.mountTime = mountTime
}

func (b *backend) OverlayPath() (path.Path, bool) {
	return b.overlayAt, b.overlayOK
}

func (b *backend) SetOverlay(p path.Path, priority int, ok bool) {
	b.overlayAt, b.overlayP, b.overlayOK = p, priority, ok
}

func (b *backend) fullPath(p path.Path) string {
	return filepath.Join(append([]string{b.root}, p.Components()...)...)
}

// findFile resolves p to the file actually on disk: first the literal
// name, then each registered data extension in turn. Returns the full
// path, whether the match came from an extension fallback, and whether
// anything was found at all.
func (b *backend) findFile(p path.Path) (full string, viaExt bool, ok bool) {
	lit := b.fullPath(p)
	if fi, err := os.Stat(lit); err == nil && !fi.IsDir() {
		return lit, false, true
	}
	for _, ext := range rcstorage.DataExtensions() {
		cand := lit + ext
		if fi, err := os.Stat(cand); err == nil && !fi.IsDir() {
			return cand, true, true
		}
	}
	return "", false, false
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

	full := b.fullPath(p)
	if p.IsIndex() {
		fi, err := os.Stat(full)
		if err != nil {
			if os.IsNotExist(err) {
				return rcstorage.Metadata{}, false, nil
			}
			return rcstorage.Metadata{}, false, &rcstorage.IOError{Path: p.String(), Err: err}
		}
		return rcstorage.Metadata{
			Category: rcstorage.CategoryIndex,
			Path:     p,
			Backends: []path.Path{b.mountPath},
			Modified: fi.ModTime(),
			HasMod:   true,
		}, true, nil
	}

	match, viaExt, ok := b.findFile(p)
	if !ok {
		return rcstorage.Metadata{}, false, nil
	}
	fi, err := os.Stat(match)
	if err != nil {
		return rcstorage.Metadata{}, false, &rcstorage.IOError{Path: p.String(), Err: err}
	}
	category := rcstorage.CategoryBinary
	mime := ""
	if viaExt {
		category = rcstorage.CategoryObject
		if s, ok := rcstorage.SerializerFor(filepath.Ext(match)); ok {
			mime = s.MIME()
		}
	}
	return rcstorage.Metadata{
		Category: category,
		Path:     p,
		Backends: []path.Path{b.mountPath},
		MIME:     mime,
		Modified: fi.ModTime(),
		HasMod:   true,
		Size:     fi.Size(),
		HasSize:  true,
	}, true, nil
}

func (b *backend) Load(ctx context.Context, p path.Path) (any, bool, error) {
	if p.String() == driver.StorageInfoPath {
		return driver.Descriptor(b), true, nil
	}

	if p.IsIndex() {
		full := b.fullPath(p)
		fi, err := os.Stat(full)
		if err != nil {
			if os.IsNotExist(err) {
				return nil, false, nil
			}
			return nil, false, &rcstorage.IOError{Path: p.String(), Err: err}
		}
		entries, err := os.ReadDir(full)
		if err != nil {
			return nil, false, &rcstorage.IOError{Path: p.String(), Err: err}
		}
		var indices, objects []string
		for _, e := range entries {
			if e.IsDir() {
				indices = append(indices, e.Name())
			} else {
				objects = append(objects, rcstorage.ObjectName(e.Name()))
			}
		}
		idx := rcstorage.NewIndex(indices, objects)
		idx.Modified = fi.ModTime()
		idx.HasMod = true
		return idx, true, nil
	}

	match, viaExt, ok := b.findFile(p)
	if !ok {
		return nil, false, nil
	}
	if viaExt {
		f, err := os.Open(match)
		if err != nil {
			return nil, false, &rcstorage.IOError{Path: p.String(), Err: err}
		}
		defer f.Close()
		d, err := rcstorage.Deserialize(filepath.Base(match), f)
		if err != nil {
			return nil, false, &rcstorage.IOError{Path: p.String(), Err: err}
		}
		return d, true, nil
	}

	fi, err := os.Stat(match)
	if err != nil {
		return nil, false, &rcstorage.IOError{Path: p.String(), Err: err}
	}
	raw, err := os.Open(match)
	if err != nil {
		return nil, false, &rcstorage.IOError{Path: p.String(), Err: err}
	}
	dgst, err := digest.Canonical.FromReader(raw)
	raw.Close()
	if err != nil {
		return nil, false, &rcstorage.IOError{Path: p.String(), Err: err}
	}
	stream, err := os.Open(match)
	if err != nil {
		return nil, false, &rcstorage.IOError{Path: p.String(), Err: err}
	}
	return &rcstorage.BinaryHandle{
		Stream:   stream,
		Size:     fi.Size(),
		Modified: fi.ModTime(),
		Hash:     dgst,
	}, true, nil
}

func (b *backend) Store(ctx context.Context, p path.Path, data any) error {
	switch v := data.(type) {
	case *rcstorage.BinaryHandle:
		return b.writeAtomic(p.String(), func(w io.Writer) error {
			_, err := io.Copy(w, v.Stream)
			return err
		})
	case rcstorage.Dictionary:
		return b.storeDictionary(p, v)
	case rcstorage.StorableObject:
		return b.storeDictionary(p, v.Serialize())
	default:
		return &rcstorage.UnsupportedTypeError{Path: p.String(), Value: data}
	}
}

func (b *backend) storeDictionary(p path.Path, d rcstorage.Dictionary) error {
	ext := rcstorage.ExtensionForMIME("")
	if mime, ok := d["_mimeType"].(string); ok {
		ext = rcstorage.ExtensionForMIME(mime)
	}
	name := p.Name() + ext
	if err := b.writeAtomic(joinParent(p, name), func(w io.Writer) error {
		return rcstorage.Serialize(name, d, w)
	}); err != nil {
		return err
	}
	// Remove a stale file under a different extension, if one exists.
	for _, other := range rcstorage.DataExtensions() {
		if other == ext {
			continue
		}
		stale := b.fullPath(p) + other
		if _, err := os.Stat(stale); err == nil {
			os.Remove(stale)
		}
	}
	return nil
}

func joinParent(p path.Path, name string) string {
	comps := p.Parent().Components()
	return "/" + filepath.Join(append(comps, name)...)
}

func (b *backend) writeAtomic(relPath string, write func(io.Writer) error) error {
	full := b.rootJoin(relPath)
	if err := os.MkdirAll(filepath.Dir(full), 0o777); err != nil {
		return &rcstorage.IOError{Path: relPath, Err: err}
	}
	tempPath := fmt.Sprintf("%s.%s.tmp", full, uuid.NewString())

	f, err := os.OpenFile(tempPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o666)
	if err != nil {
		return &rcstorage.IOError{Path: relPath, Err: err}
	}
	bw := bufio.NewWriter(f)
	var buf bytes.Buffer
	if err := write(&buf); err != nil {
		f.Close()
		os.Remove(tempPath)
		return &rcstorage.IOError{Path: relPath, Err: err}
	}
	if _, err := bw.Write(buf.Bytes()); err != nil {
		f.Close()
		os.Remove(tempPath)
		return &rcstorage.IOError{Path: relPath, Err: err}
	}
	if err := bw.Flush(); err != nil {
		f.Close()
		os.Remove(tempPath)
		return &rcstorage.IOError{Path: relPath, Err: err}
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tempPath)
		return &rcstorage.IOError{Path: relPath, Err: err}
	}
	if err := f.Close(); err != nil {
		os.Remove(tempPath)
		return &rcstorage.IOError{Path: relPath, Err: err}
	}
	if err := os.Rename(tempPath, full); err != nil {
		os.Remove(tempPath)
		return &rcstorage.IOError{Path: relPath, Err: err}
	}
	return nil
}

func (b *backend) rootJoin(relPath string) string {
	return filepath.Join(b.root, relPath)
}

func (b *backend) Remove(ctx context.Context, p path.Path) error {
	full := b.fullPath(p)
	if p.IsRoot() {
		entries, err := os.ReadDir(full)
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return &rcstorage.IOError{Path: p.String(), Err: err}
		}
		for _, e := range entries {
			if err := os.RemoveAll(filepath.Join(full, e.Name())); err != nil {
				return &rcstorage.IOError{Path: p.String(), Err: err}
			}
		}
		return nil
	}

	match, _, ok := b.findFile(p)
	if !ok {
		if _, err := os.Stat(full); err == nil {
			match = full
		} else {
			return nil
		}
	}
	if err := os.RemoveAll(match); err != nil {
		return &rcstorage.IOError{Path: p.String(), Err: err}
	}
	b.pruneEmptyAncestors(p.Parent())
	return nil
}

func (b *backend) pruneEmptyAncestors(p path.Path) {
	for !p.IsRoot() {
		full := b.fullPath(p)
		entries, err := os.ReadDir(full)
		if err != nil || len(entries) > 0 {
			return
		}
		if os.Remove(full) != nil {
			return
		}
		p = p.Parent()
	}
}

func (b *backend) Destroy(ctx context.Context) error {
	return nil
}
