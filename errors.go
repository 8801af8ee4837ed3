package rcstorage

import (
	"fmt"

	"github.com/baraverkstad/rcstorage/path"
)

// PathSyntaxError is raised when a raw path string cannot be parsed. It is
// an alias of the path package's own error type so that callers working
// purely with path.Parse never need to import this package to check for
// it, while callers working with the rest of the store can refer to one
// name for every kind of error this module raises.
type PathSyntaxError = path.SyntaxError

// ReadOnlyError is returned when a write is attempted on a read-only
// backend or on a reserved read-only path such as /.storageinfo.
type ReadOnlyError struct {
	Path string
}

func (e *ReadOnlyError) Error() string {
	return fmt.Sprintf("read-only: %s", e.Path)
}

// UnsupportedTypeError is returned when store is given a value a backend
// cannot serialize.
type UnsupportedTypeError struct {
	Path  string
	Value any
}

func (e *UnsupportedTypeError) Error() string {
	return fmt.Sprintf("unsupported type %T at %s", e.Value, e.Path)
}

// UnsupportedFormatError is returned when a file extension has no
// registered serializer.
type UnsupportedFormatError struct {
	Name string
}

func (e *UnsupportedFormatError) Error() string {
	return fmt.Sprintf("unsupported format: %s", e.Name)
}

// MountConflictError is returned when a mount path collides with an
// existing entry or violates a namespace rule.
type MountConflictError struct {
	Path   string
	Reason string
}

func (e *MountConflictError) Error() string {
	return fmt.Sprintf("mount conflict at %s: %s", e.Path, e.Reason)
}

// NoWritableStorageError is returned when an overlay store/remove finds
// no read-writable target.
type NoWritableStorageError struct {
	Path string
}

func (e *NoWritableStorageError) Error() string {
	return fmt.Sprintf("no writable storage for %s", e.Path)
}

// IOError wraps an underlying byte-level failure from a backend.
type IOError struct {
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("io error at %s: %v", e.Path, e.Err)
}

func (e *IOError) Unwrap() error {
	return e.Err
}
