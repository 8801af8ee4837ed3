package rcstorage

import (
	"sort"
	"strings"
	"time"
)

// Index is a container value enumerating the immediate children at one
// path: a set of sub-index names and a set of object names, both sorted
// and deduplicated case-insensitively, plus an optional last-modified
// timestamp.
type Index struct {
	Indices  []string
	Objects  []string
	Modified time.Time
	HasMod   bool
}

// NewIndex builds an Index from unsorted, possibly duplicate name slices.
func NewIndex(indices, objects []string) Index {
	return Index{
		Indices: dedupFold(indices),
		Objects: dedupFold(objects),
	}
}

func dedupFold(names []string) []string {
	seen := make(map[string]string, len(names))
	for _, n := range names {
		key := strings.ToLower(n)
		if _, ok := seen[key]; !ok {
			seen[key] = n
		}
	}
	out := make([]string, 0, len(seen))
	for _, n := range seen {
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool { return strings.ToLower(out[i]) < strings.ToLower(out[j]) })
	return out
}

// Merge unions the indices and objects sets of idx and other, and takes
// the later of the two modified timestamps. Merge is associative and
// commutative on the resulting name sets.
func (idx Index) Merge(other Index) Index {
	out := Index{
		Indices: dedupFold(append(append([]string{}, idx.Indices...), other.Indices...)),
		Objects: dedupFold(append(append([]string{}, idx.Objects...), other.Objects...)),
	}
	switch {
	case idx.HasMod && other.HasMod:
		out.Modified = idx.Modified
		if other.Modified.After(idx.Modified) {
			out.Modified = other.Modified
		}
		out.HasMod = true
	case idx.HasMod:
		out.Modified = idx.Modified
		out.HasMod = true
	case other.HasMod:
		out.Modified = other.Modified
		out.HasMod = true
	}
	return out
}

// Visible returns idx with names beginning with "." removed, unless
// includeHidden is set.
func (idx Index) Visible(includeHidden bool) Index {
	if includeHidden {
		return idx
	}
	out := Index{Modified: idx.Modified, HasMod: idx.HasMod}
	for _, n := range idx.Indices {
		if !strings.HasPrefix(n, ".") {
			out.Indices = append(out.Indices, n)
		}
	}
	for _, n := range idx.Objects {
		if !strings.HasPrefix(n, ".") {
			out.Objects = append(out.Objects, n)
		}
	}
	return out
}

// WithObjectName returns a copy of idx with name added to its object set.
func (idx Index) WithObjectName(name string) Index {
	out := idx
	out.Objects = dedupFold(append(append([]string{}, idx.Objects...), name))
	return out
}

// WithIndexName returns a copy of idx with name added to its sub-index set.
func (idx Index) WithIndexName(name string) Index {
	out := idx
	out.Indices = dedupFold(append(append([]string{}, idx.Indices...), name))
	return out
}

// WithoutName returns a copy of idx with name removed from both sets.
func (idx Index) WithoutName(name string) Index {
	lower := strings.ToLower(name)
	out := Index{Modified: idx.Modified, HasMod: idx.HasMod}
	for _, n := range idx.Indices {
		if strings.ToLower(n) != lower {
			out.Indices = append(out.Indices, n)
		}
	}
	for _, n := range idx.Objects {
		if strings.ToLower(n) != lower {
			out.Objects = append(out.Objects, n)
		}
	}
	return out
}
