// Package driver defines the uniform Backend capability implemented by
// every storage provider (directory, archive, memory) mounted into a
// RootStorage.
package driver

import (
	"context"

	"github.com/baraverkstad/rcstorage"
	"github.com/baraverkstad/rcstorage/path"
)

// Type tags a Backend implementation.
type Type string

const (
	TypeDirectory Type = "dir"
	TypeArchive   Type = "zip"
	TypeMemory    Type = "memory"
	TypeRoot      Type = "root"
)

// StorageInfoPath is the reserved, virtual, read-only descriptor entry
// every backend serves for lookup/load but rejects for store/remove.
const StorageInfoPath = "/.storageinfo"

// Backend is the uniform capability every storage provider implements:
// lookup (non-mutating metadata), load (value retrieval with extension
// fallback), store and remove. Directory, Archive and Memory are
// variants of this single interface rather than subclasses of a common
// base type.
type Backend interface {
	// ID returns the backend's stable identifier.
	ID() string
	// Type returns the backend's type tag.
	Type() Type
	// ReadWrite reports whether store/remove are permitted.
	ReadWrite() bool
	// MountPath returns the backend's current mount path (its own root
	// path until it has been mounted into a RootStorage).
	MountPath() path.Path
	// SetMountPath updates the backend's mount path and mount time.
	SetMountPath(p path.Path, mountTime int64)
	// MountTime returns the monotonic mount timestamp last assigned.
	MountTime() int64
	// OverlayPath returns the overlay projection path, if any.
	OverlayPath() (path.Path, bool)
	// OverlayPriority returns the overlay search rank; higher wins.
	OverlayPriority() int
	// SetOverlay updates the overlay path and priority; ok=false clears
	// the overlay.
	SetOverlay(p path.Path, priority int, ok bool)

	// Lookup returns metadata for p without side effects, or
	// (Metadata{}, false) if nothing exists at p.
	Lookup(ctx context.Context, p path.Path) (rcstorage.Metadata, bool, error)
	// Load returns the value at p: an Index for an index path, a
	// Dictionary for a recognized data file (with extension fallback
	// against p's literal name), a *rcstorage.BinaryHandle for anything
	// else, or a rcstorage.StorableObject (memory backend only).
	Load(ctx context.Context, p path.Path) (any, bool, error)
	// Store writes data at p; data is a Dictionary, a StorableObject, or
	// a *rcstorage.BinaryHandle.
	Store(ctx context.Context, p path.Path, data any) error
	// Remove deletes p (purging contents if p is the backend root).
	Remove(ctx context.Context, p path.Path) error
	// Destroy releases backend resources. It does not invoke lifecycle
	// hooks on any object the backend may be holding — that is the
	// cache's responsibility.
	Destroy(ctx context.Context) error
}

// Descriptor builds the storage descriptor dictionary surfaced at
// /.storageinfo for b.
func Descriptor(b Backend) rcstorage.Dictionary {
	d := rcstorage.Dictionary{
		"id":        b.ID(),
		"type":      "storage/" + string(b.Type()),
		"readWrite": b.ReadWrite(),
		"mountPath": b.MountPath().String(),
		"mountTime": b.MountTime(),
	}
	if ov, ok := b.OverlayPath(); ok {
		d["mountOverlayPath"] = ov.String()
		d["mountOverlayPrio"] = b.OverlayPriority()
	} else {
		d["mountOverlayPath"] = nil
		d["mountOverlayPrio"] = -1
	}
	return d
}
