// Package factory registers named Backend constructors, so a mount's
// backend can be built from a configuration's map[string]any parameters
// without the caller knowing the concrete backend type.
package factory

import (
	"fmt"
	"sync"

	"github.com/mitchellh/mapstructure"

	"github.com/baraverkstad/rcstorage/registry/storage/driver"
)

// Factory builds a Backend from loosely-typed parameters, decoded into
// whatever struct the concrete backend expects via mapstructure.
type Factory interface {
	Create(parameters map[string]any) (driver.Backend, error)
}

var (
	mu        sync.Mutex
	factories = make(map[string]Factory)
)

// Register makes a backend factory available by name. Panics if name is
// already registered or factory is nil, matching the fail-fast contract
// expected of package init() registration.
func Register(name string, factory Factory) {
	if factory == nil {
		panic("factory: nil Factory for " + name)
	}
	mu.Lock()
	defer mu.Unlock()
	if _, ok := factories[name]; ok {
		panic(fmt.Sprintf("factory: %s already registered", name))
	}
	factories[name] = factory
}

// Create builds a Backend of the named type from parameters.
func Create(name string, parameters map[string]any) (driver.Backend, error) {
	mu.Lock()
	f, ok := factories[name]
	mu.Unlock()
	if !ok {
		return nil, &UnregisteredBackendError{Name: name}
	}
	return f.Create(parameters)
}

// Decode is a convenience wrapper around mapstructure.Decode for factory
// implementations translating loosely-typed parameters into a concrete
// options struct.
func Decode(parameters map[string]any, out any) error {
	return mapstructure.Decode(parameters, out)
}

// UnregisteredBackendError records an attempt to create a backend of an
// unregistered type.
type UnregisteredBackendError struct {
	Name string
}

func (e *UnregisteredBackendError) Error() string {
	return fmt.Sprintf("factory: backend type not registered: %s", e.Name)
}
