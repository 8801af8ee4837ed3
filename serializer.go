package rcstorage

import (
	"io"
	"strings"
	"sync"
	"time"

	digest "github.com/opencontainers/go-digest"
)

// Serializer converts between a Dictionary and a byte stream for one file
// extension. Concrete formats (.properties/.json/.xml/.yaml) are external
// collaborators registered into the process-wide registry below; the
// core only depends on this interface.
type Serializer interface {
	// Extension is the file extension this serializer owns, dot included.
	Extension() string
	// MIME is the canonical MIME type emitted for this extension.
	MIME() string
	// Serialize writes d to sink in this format.
	Serialize(name string, d Dictionary, sink io.Writer) error
	// Deserialize reads a dictionary in this format from src.
	Deserialize(name string, src io.Reader) (Dictionary, error)
}

var (
	serializerMu      sync.RWMutex
	serializersByExt  = map[string]Serializer{}
	serializersByMIME = map[string]Serializer{}
)

// RegisterSerializer adds s to the process-wide registry keyed by its
// extension and MIME type. Typically called from an init() function in a
// codec package, grounded on the teacher's factory-registration idiom.
func RegisterSerializer(s Serializer) {
	serializerMu.Lock()
	defer serializerMu.Unlock()
	serializersByExt[s.Extension()] = s
	serializersByMIME[s.MIME()] = s
}

// SerializerFor returns the serializer registered for ext (dot included),
// or false if none is registered.
func SerializerFor(ext string) (Serializer, bool) {
	serializerMu.RLock()
	defer serializerMu.RUnlock()
	s, ok := serializersByExt[ext]
	return s, ok
}

// DataExtensions lists the recognized data extensions with .properties
// first; the order of the others is not defined.
func DataExtensions() []string {
	serializerMu.RLock()
	defer serializerMu.RUnlock()
	exts := make([]string, 0, len(serializersByExt))
	// .properties first so it is tried first as the format default.
	if _, ok := serializersByExt[".properties"]; ok {
		exts = append(exts, ".properties")
	}
	for ext := range serializersByExt {
		if ext != ".properties" {
			exts = append(exts, ext)
		}
	}
	return exts
}

// ExtensionForMIME returns the file extension matching mimeType, falling
// back to .properties when mimeType is empty or unregistered.
func ExtensionForMIME(mimeType string) string {
	serializerMu.RLock()
	defer serializerMu.RUnlock()
	if s, ok := serializersByMIME[mimeType]; ok {
		return s.Extension()
	}
	return ".properties"
}

// ObjectName strips any known data extension from name.
func ObjectName(name string) string {
	serializerMu.RLock()
	defer serializerMu.RUnlock()
	for ext := range serializersByExt {
		if strings.HasSuffix(name, ext) {
			return strings.TrimSuffix(name, ext)
		}
	}
	return name
}

// SerializedPath appends the data extension matching mimeType (or
// .properties by default) to the extensionless name.
func SerializedPath(name, mimeType string) string {
	return name + ExtensionForMIME(mimeType)
}

// Serialize dispatches to the serializer registered for name's extension.
func Serialize(name string, d Dictionary, sink io.Writer) error {
	ext := extensionOf(name)
	s, ok := SerializerFor(ext)
	if !ok {
		return &UnsupportedFormatError{Name: name}
	}
	return s.Serialize(name, d, sink)
}

// Deserialize dispatches to the serializer registered for name's
// extension.
func Deserialize(name string, src io.Reader) (Dictionary, error) {
	ext := extensionOf(name)
	s, ok := SerializerFor(ext)
	if !ok {
		return nil, &UnsupportedFormatError{Name: name}
	}
	return s.Deserialize(name, src)
}

func extensionOf(name string) string {
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		return name[i:]
	}
	return ""
}

// BinaryHandle is the value a backend load returns for a leaf path that
// is not a recognized data file: a lazily-read stream plus the metadata
// needed to serve it without fully materializing content up front.
type BinaryHandle struct {
	Stream   io.ReadCloser
	MIME     string
	Size     int64
	Modified time.Time
	Hash     digest.Digest
}
