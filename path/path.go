// Package path implements the immutable, case-insensitive hierarchical
// path addressing used throughout rcstorage. It has no dependency on the
// rest of the module so it can be imported standalone, mirroring how the
// teacher keeps its path-regexp and reference-name grammars in
// self-contained packages.
package path

import (
	"fmt"
	"hash/fnv"
	"strings"
)

// SyntaxError is returned when a raw path string is malformed.
type SyntaxError struct {
	Raw    string
	Reason string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("path syntax: %q: %s", e.Raw, e.Reason)
}

// Path is an ordered sequence of non-empty name components plus an index
// flag distinguishing a container (directory-like) path from a leaf path.
// Values are immutable: every mutating-looking method returns a new Path.
type Path struct {
	comps []string
	index bool
}

// Root is the empty path with the index flag set.
var Root = Path{index: true}

// Parse parses a leading-slash, optionally trailing-slash string into a
// Path. A trailing slash marks an index (container) path. ".." components
// are resolved greedily against the preceding component; ".." past the
// root stays at the root. Any empty component surviving normalization
// other than the leading/trailing slash themselves is a SyntaxError.
func Parse(raw string) (Path, error) {
	if raw == "" || raw[0] != '/' {
		return Path{}, &SyntaxError{Raw: raw, Reason: "must begin with '/'"}
	}
	rest := raw[1:]
	if rest == "" {
		return Root, nil
	}

	index := false
	if strings.HasSuffix(rest, "/") {
		index = true
		rest = strings.TrimSuffix(rest, "/")
	}
	if rest == "" {
		// raw was "//" or similar: a slash-only path folds to root.
		return Root, nil
	}

	var comps []string
	for _, part := range strings.Split(rest, "/") {
		switch part {
		case "":
			return Path{}, &SyntaxError{Raw: raw, Reason: "empty path component"}
		case ".":
			// no-op component
		case "..":
			if len(comps) > 0 {
				comps = comps[:len(comps)-1]
			}
		default:
			comps = append(comps, part)
		}
	}

	return Path{comps: comps, index: index}, nil
}

// MustParse is Parse but panics on error; intended for static paths known
// at compile time (mount-table defaults, tests).
func MustParse(raw string) Path {
	p, err := Parse(raw)
	if err != nil {
		panic(err)
	}
	return p
}

// Resolve parses raw relative to parent's directory: a non-index parent is
// first replaced by its own parent (you can only resolve "into" a
// container). The remainder follows the same "..".-resolution rules as
// Parse. A leading slash on raw is permitted and ignored (the resolution
// is always relative).
func Resolve(parent Path, raw string) (Path, error) {
	base := parent
	if !base.index {
		base = base.Parent()
	}

	index := base.index
	trimmed := strings.TrimPrefix(raw, "/")
	if strings.HasSuffix(trimmed, "/") {
		index = true
		trimmed = strings.TrimSuffix(trimmed, "/")
	} else if trimmed != "" {
		index = false
	}

	comps := append([]string{}, base.comps...)
	if trimmed != "" {
		for _, part := range strings.Split(trimmed, "/") {
			switch part {
			case "":
				return Path{}, &SyntaxError{Raw: raw, Reason: "empty path component"}
			case ".":
			case "..":
				if len(comps) > 0 {
					comps = comps[:len(comps)-1]
				}
			default:
				comps = append(comps, part)
			}
		}
	}

	return Path{comps: comps, index: index}, nil
}

// IsRoot reports whether p is the root path.
func (p Path) IsRoot() bool {
	return len(p.comps) == 0 && p.index
}

// IsIndex reports whether p addresses a container.
func (p Path) IsIndex() bool {
	return p.index
}

// Length returns the total number of components in p.
func (p Path) Length() int {
	return len(p.comps)
}

// Depth returns the number of directory steps in p: for an index path
// every component is a directory step; for a leaf path the final
// component is the leaf name, not a directory step.
func (p Path) Depth() int {
	if p.index || len(p.comps) == 0 {
		return len(p.comps)
	}
	return len(p.comps) - 1
}

// Name returns the last component of p, or "" for the root.
func (p Path) Name() string {
	if len(p.comps) == 0 {
		return ""
	}
	return p.comps[len(p.comps)-1]
}

// NameAt returns the i'th component of p.
func (p Path) NameAt(i int) string {
	return p.comps[i]
}

// Components returns a copy of p's ordered name components.
func (p Path) Components() []string {
	return append([]string{}, p.comps...)
}

// Parent returns the containing index path of p. The parent of the root
// is the root itself.
func (p Path) Parent() Path {
	if len(p.comps) == 0 {
		return Root
	}
	return Path{comps: append([]string{}, p.comps[:len(p.comps)-1]...), index: true}
}

// Child returns the path for the named child of p, which must itself be
// an index path (or root).
func (p Path) Child(name string, isIndex bool) (Path, error) {
	if name == "" || strings.ContainsRune(name, '/') {
		return Path{}, &SyntaxError{Raw: name, Reason: "invalid child name"}
	}
	comps := append(append([]string{}, p.comps...), name)
	return Path{comps: comps, index: isIndex}, nil
}

// Sibling returns the path with the same parent and the same index flag
// as p, but with the last component replaced by name. The root has no
// sibling.
func (p Path) Sibling(name string) (Path, error) {
	if len(p.comps) == 0 {
		return Path{}, &SyntaxError{Raw: name, Reason: "root has no sibling"}
	}
	if name == "" || strings.ContainsRune(name, '/') {
		return Path{}, &SyntaxError{Raw: name, Reason: "invalid sibling name"}
	}
	comps := append(append([]string{}, p.comps[:len(p.comps)-1]...), name)
	return Path{comps: comps, index: p.index}, nil
}

// StartsWith reports whether p is prefixed by other's components
// (case-insensitively). If other is shorter than p, other must be an
// index path (you cannot have children under a leaf). If other and p have
// equal length, their index flags must agree.
func (p Path) StartsWith(other Path) bool {
	if other.Length() > p.Length() {
		return false
	}
	for i := 0; i < other.Length(); i++ {
		if !strings.EqualFold(p.comps[i], other.comps[i]) {
			return false
		}
	}
	if other.Length() < p.Length() {
		return other.index
	}
	return other.index == p.index
}

// RemovePrefix returns p relative to other, requiring p.StartsWith(other).
func (p Path) RemovePrefix(other Path) (Path, error) {
	if !p.StartsWith(other) {
		return Path{}, &SyntaxError{Raw: p.String(), Reason: "not prefixed by " + other.String()}
	}
	comps := append([]string{}, p.comps[other.Length():]...)
	return Path{comps: comps, index: p.index}, nil
}

// String renders p as a leading-slash string, with a trailing slash iff p
// is an index path.
func (p Path) String() string {
	if p.IsRoot() {
		return "/"
	}
	s := "/" + strings.Join(p.comps, "/")
	if p.index {
		s += "/"
	}
	return s
}

// Equal reports whether p and other denote the same path, comparing each
// component case-insensitively.
func (p Path) Equal(other Path) bool {
	if p.index != other.index || len(p.comps) != len(other.comps) {
		return false
	}
	for i := range p.comps {
		if !strings.EqualFold(p.comps[i], other.comps[i]) {
			return false
		}
	}
	return true
}

// Hash returns a case-fold-stable hash of p, suitable for use in custom
// hash tables; two equal paths always hash identically.
func (p Path) Hash() uint64 {
	h := fnv.New64a()
	if p.index {
		h.Write([]byte{'I'})
	} else {
		h.Write([]byte{'D'})
	}
	for _, c := range p.comps {
		h.Write([]byte{0})
		h.Write([]byte(strings.ToLower(c)))
	}
	return h.Sum64()
}

// Key returns a canonical, case-folded string suitable for use as a Go
// map key (maps cannot use Path directly since its Equal semantics are
// case-insensitive, unlike Go's built-in ==).
func (p Path) Key() string {
	kind := "D"
	if p.index {
		kind = "I"
	}
	lowered := make([]string, len(p.comps))
	for i, c := range p.comps {
		lowered[i] = strings.ToLower(c)
	}
	return kind + ":" + strings.Join(lowered, "/")
}
