package rcstorage

import (
	"sort"
	"time"

	"github.com/baraverkstad/rcstorage/path"
)

// Category classifies what a resolved Metadata entry denotes.
type Category string

const (
	CategoryIndex  Category = "index"
	CategoryObject Category = "object"
	CategoryBinary Category = "binary"
)

// Metadata describes a resolved entry without carrying its value: its
// category, an opaque class tag for objects, the canonical path, the set
// of backend root paths that contributed to it, and optional MIME type,
// modification time and size.
type Metadata struct {
	Category Category
	Class    string
	Path     path.Path
	Backends []path.Path
	MIME     string
	Modified time.Time
	HasMod   bool
	Size     int64
	HasSize  bool
}

// Merge combines m (taken as base) with other: it unions the backend root
// sets, takes the later of the two modified times, and the larger of the
// two known sizes. Category, class and path are taken from m.
func (m Metadata) Merge(other Metadata) Metadata {
	out := m
	out.Backends = unionPaths(m.Backends, other.Backends)

	switch {
	case m.HasMod && other.HasMod:
		if other.Modified.After(m.Modified) {
			out.Modified = other.Modified
		}
		out.HasMod = true
	case other.HasMod:
		out.Modified = other.Modified
		out.HasMod = true
	}

	switch {
	case m.HasSize && other.HasSize:
		if other.Size > m.Size {
			out.Size = other.Size
		}
		out.HasSize = true
	case other.HasSize:
		out.Size = other.Size
		out.HasSize = true
	}

	if out.MIME == "" {
		out.MIME = other.MIME
	}
	return out
}

func unionPaths(a, b []path.Path) []path.Path {
	seen := make(map[string]bool, len(a)+len(b))
	out := make([]path.Path, 0, len(a)+len(b))
	for _, p := range a {
		if !seen[p.Key()] {
			seen[p.Key()] = true
			out = append(out, p)
		}
	}
	for _, p := range b {
		if !seen[p.Key()] {
			seen[p.Key()] = true
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out
}
