// Package query implements the fluent, depth-first, object-only
// traversal builder over a base storage and a base path.
package query

import (
	"context"
	"strings"

	"github.com/baraverkstad/rcstorage"
	"github.com/baraverkstad/rcstorage/path"
)

// ErrSkipIndex, returned from a Visitor, is ignored instead of aborting
// the traversal. Visitors are only called for objects, so it never
// prevents descent into an index.
var ErrSkipIndex = errSkip{}

type errSkip struct{}

func (errSkip) Error() string { return "skip this index" }

// Storage is the minimal lookup/load capability a Query traverses. It is
// satisfied by *registry/storage.RootStorage (and by any Cache/Backend
// for narrower traversals).
type Storage interface {
	Lookup(ctx context.Context, p path.Path) (rcstorage.Metadata, bool, error)
	Load(ctx context.Context, p path.Path) (any, bool, error)
}

// Visitor is called once per emitted object path with its metadata and
// value. Returning ErrSkipIndex has no effect for a leaf (only indices
// can be skipped); any other non-nil error aborts the traversal.
type Visitor func(p path.Path, meta rcstorage.Metadata, value any) error

// Query is a fluent, depth-first traversal builder. Zero value is not
// usable; construct with New.
type Query struct {
	storage       Storage
	base          path.Path
	predicate     func(path.Path) bool
	includeHidden bool
	maxDepth      int // <=0 means unbounded
	extension     string
	permission    func(string) bool
}

// New constructs a Query rooted at base.
func New(storage Storage, base path.Path) *Query {
	return &Query{storage: storage, base: base}
}

// WithPredicate composes fn with any existing predicate via AND.
func (q *Query) WithPredicate(fn func(path.Path) bool) *Query {
	prev := q.predicate
	if prev == nil {
		q.predicate = fn
	} else {
		q.predicate = func(p path.Path) bool { return prev(p) && fn(p) }
	}
	return q
}

// WithHidden toggles inclusion of hidden ("."-prefixed) names. Default
// off.
func (q *Query) WithHidden(include bool) *Query {
	q.includeHidden = include
	return q
}

// MaxDepth bounds the traversal to at most n levels below the base path.
// n<=0 means unbounded (the default).
func (q *Query) MaxDepth(n int) *Query {
	q.maxDepth = n
	return q
}

// WithExtension restricts emitted leaves to those whose literal name
// carries ext.
func (q *Query) WithExtension(ext string) *Query {
	q.extension = ext
	return q
}

// WithPermission adds a permission check on the path string, composed
// with AND alongside any predicate.
func (q *Query) WithPermission(fn func(string) bool) *Query {
	q.permission = fn
	return q
}

// Walk performs the depth-first traversal, invoking visit for every
// emitted object (never an index). Traversal order is lexical by name at
// each level.
func (q *Query) Walk(ctx context.Context, visit Visitor) error {
	return q.walk(ctx, q.base, 0, visit)
}

func (q *Query) walk(ctx context.Context, p path.Path, depth int, visit Visitor) error {
	val, ok, err := q.storage.Load(ctx, p)
	if err != nil || !ok {
		return nil // absence and I/O failure during traversal are both non-fatal
	}
	idx, isIdx := val.(rcstorage.Index)
	if !isIdx {
		return nil
	}
	idx = idx.Visible(q.includeHidden)

	for _, name := range idx.Objects {
		if q.extension != "" && !strings.HasSuffix(name, q.extension) {
			continue
		}
		leaf, err := p.Child(name, false)
		if err != nil {
			continue
		}
		if !q.allowed(leaf) {
			continue
		}
		meta, mok, merr := q.storage.Lookup(ctx, leaf)
		if merr != nil || !mok {
			continue
		}
		v, vok, verr := q.storage.Load(ctx, leaf)
		if verr != nil || !vok {
			continue
		}
		if err := visit(leaf, meta, v); err != nil && err != ErrSkipIndex {
			return err
		}
	}

	if q.maxDepth > 0 && depth+1 > q.maxDepth {
		return nil
	}
	for _, name := range idx.Indices {
		child, err := p.Child(name, true)
		if err != nil {
			continue
		}
		if !q.allowed(child) {
			continue
		}
		if err := q.walk(ctx, child, depth+1, visit); err != nil {
			return err
		}
	}
	return nil
}

func (q *Query) allowed(p path.Path) bool {
	if q.predicate != nil && !q.predicate(p) {
		return false
	}
	if q.permission != nil && !q.permission(p.String()) {
		return false
	}
	return true
}

// Paths collects every emitted path into a slice.
func (q *Query) Paths(ctx context.Context) ([]path.Path, error) {
	var out []path.Path
	err := q.Walk(ctx, func(p path.Path, _ rcstorage.Metadata, _ any) error {
		out = append(out, p)
		return nil
	})
	return out, err
}

// Objects collects every emitted object value into a slice.
func (q *Query) Objects(ctx context.Context) ([]any, error) {
	var out []any
	err := q.Walk(ctx, func(_ path.Path, _ rcstorage.Metadata, v any) error {
		out = append(out, v)
		return nil
	})
	return out, err
}

// TypedObjects collects every emitted StorableObject whose Type() equals
// class, casting by class tag as the spec's typed filters require.
func (q *Query) TypedObjects(ctx context.Context, class string) ([]rcstorage.StorableObject, error) {
	var out []rcstorage.StorableObject
	err := q.Walk(ctx, func(_ path.Path, meta rcstorage.Metadata, v any) error {
		if obj, ok := v.(rcstorage.StorableObject); ok && obj.Type() == class {
			out = append(out, obj)
		}
		return nil
	})
	return out, err
}
