package rcstorage

import "strings"

// Dictionary is an ordered string-to-value mapping carried by a
// StorableObject: values are primitives, dictionaries, arrays, or nested
// StorableObjects. A well-formed dictionary carries at least "id" and
// "type" keys.
type Dictionary map[string]any

// Clone returns a shallow copy of d.
func (d Dictionary) Clone() Dictionary {
	out := make(Dictionary, len(d))
	for k, v := range d {
		out[k] = v
	}
	return out
}

// IsHidden reports whether key is a hidden key: written but never
// surfaced outside the store.
func IsHidden(key string) bool {
	return strings.HasPrefix(key, ".")
}

// IsComputed reports whether key is a computed key: surfaced on read but
// never persisted.
func IsComputed(key string) bool {
	return strings.HasPrefix(key, "_")
}

// Sterilize recursively strips hidden and computed keys from d and from
// any nested dictionaries, and coerces non-standard value types to
// strings. It is used when emitting a dictionary across the external
// boundary (e.g. the /.storageinfo descriptor).
func Sterilize(d Dictionary) Dictionary {
	out := make(Dictionary, len(d))
	for k, v := range d {
		if IsHidden(k) || IsComputed(k) {
			continue
		}
		out[k] = sterilizeValue(v)
	}
	return out
}

func sterilizeValue(v any) any {
	switch val := v.(type) {
	case Dictionary:
		return Sterilize(val)
	case map[string]any:
		return Sterilize(Dictionary(val))
	case []any:
		out := make([]any, len(val))
		for i, e := range val {
			out[i] = sterilizeValue(e)
		}
		return out
	case string, bool, int, int64, float64, nil:
		return val
	default:
		return toString(val)
	}
}

func toString(v any) string {
	if s, ok := v.(interface{ String() string }); ok {
		return s.String()
	}
	return ""
}

// Persistable returns a copy of d with computed keys dropped and hidden
// keys kept: this is the shape written to a backend by store.
func Persistable(d Dictionary) Dictionary {
	out := make(Dictionary, len(d))
	for k, v := range d {
		if IsComputed(k) {
			continue
		}
		out[k] = v
	}
	return out
}

// StorableObject is a cacheable domain value with an init/activate/
// passivate/destroy lifecycle plus a serialize hook producing a shallow
// dictionary snapshot. Concrete domain types implement this by embedding
// *BaseObject and overriding the hooks they need.
type StorableObject interface {
	ID() string
	Type() string
	IsActive() bool
	IsModified() bool
	SetModified(bool)
	Init(d Dictionary) error
	Activate()
	Passivate()
	Destroy()
	Serialize() Dictionary
}

// BaseObject is the common lifecycle bookkeeping shared by every
// StorableObject: it tracks the backing dictionary plus active/modified
// flags and stamps the computed _activatedTime key on every activation.
// Domain types embed BaseObject and override Init/Activate/Passivate/
// Destroy as needed, calling the embedded method first to preserve the
// bookkeeping.
type BaseObject struct {
	Dict     Dictionary
	active   bool
	modified bool
	nowFn    func() any
}

// NewBaseObject wraps d, cloning it so the cache's copy is insulated from
// caller mutation. nowFn supplies the value stamped into _activatedTime
// on each activation (a caller-supplied clock keeps the type free of a
// direct time.Now dependency, matching the package's stance that wall
// time belongs to callers, not the core).
func NewBaseObject(d Dictionary, nowFn func() any) *BaseObject {
	return &BaseObject{Dict: d.Clone(), nowFn: nowFn}
}

func (o *BaseObject) ID() string {
	id, _ := o.Dict["id"].(string)
	return id
}

func (o *BaseObject) Type() string {
	t, _ := o.Dict["type"].(string)
	return t
}

func (o *BaseObject) IsActive() bool { return o.active }

func (o *BaseObject) IsModified() bool { return o.modified }

func (o *BaseObject) SetModified(m bool) { o.modified = m }

// Init merges d's keys into the object's dictionary (callers pass the
// freshly loaded dictionary so init can observe what was persisted).
func (o *BaseObject) Init(d Dictionary) error {
	for k, v := range d {
		o.Dict[k] = v
	}
	return nil
}

func (o *BaseObject) Activate() {
	o.active = true
	if o.nowFn != nil {
		o.Dict["_activatedTime"] = o.nowFn()
	}
}

func (o *BaseObject) Passivate() {
	o.active = false
}

func (o *BaseObject) Destroy() {
	o.active = false
}

// Serialize returns a shallow copy of the object's dictionary with
// computed keys stripped (hidden keys are kept: they are written, just
// not surfaced outside the store).
func (o *BaseObject) Serialize() Dictionary {
	return Persistable(o.Dict)
}

// TypeRegistry maps a dictionary's declared "type" value to a
// StorableObject constructor. It is an external collaborator: the core
// only consumes this interface, never a concrete registry.
type TypeRegistry interface {
	Constructor(typeName string) (func(d Dictionary) StorableObject, bool)
}
