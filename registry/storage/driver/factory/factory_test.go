package factory

import (
	"context"
	"testing"

	"github.com/baraverkstad/rcstorage"
	"github.com/baraverkstad/rcstorage/path"
	"github.com/baraverkstad/rcstorage/registry/storage/driver"
)

type stubBackend struct{ readWrite bool }

func (stubBackend) ID() string { return "stub" }
func (stubBackend) Type() driver.Type { return driver.Type("stub") }
func (s stubBackend) ReadWrite() bool { return s.readWrite }
func (stubBackend) MountPath() path.Path { return path.Root }
func (stubBackend) SetMountPath(path.Path, int64) {}
func (stubBackend) MountTime() int64 { return 0 }
func (stubBackend) OverlayPath() (path.Path, bool) { return path.Path{}, false }
func (stubBackend) OverlayPriority() int { return 0 }
func (stubBackend) SetOverlay(path.Path, int, bool) {}

func (stubBackend) Lookup(context.Context, path.Path) (rcstorage.Metadata, bool, error) {
	return rcstorage.Metadata{}, false, nil
}

func (stubBackend) Load(context.Context, path.Path) (any, bool, error) {
	return nil, false, nil
}

func (stubBackend) Store(context.Context, path.Path, any) error { return nil }
func (stubBackend) Remove(context.Context, path.Path) error { return nil }
func (stubBackend) Destroy(context.Context) error { return nil }

type stubFactory struct{}

func (stubFactory) Create(parameters map[string]any) (driver.Backend, error) {
	rw, _ := parameters["readWrite"].(bool)
	return stubBackend{readWrite: rw}, nil
}

func TestRegisterAndCreate(t *testing.T) {
	Register("factory-test-stub", stubFactory{})

	b, err := Create("factory-test-stub", map[string]any{"readWrite": true})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if !b.ReadWrite() {
		t.Fatalf("parameters were not decoded through the factory")
	}
}

func TestCreateUnregisteredReturnsError(t *testing.T) {
	if _, err := Create("factory-test-does-not-exist", nil); err == nil {
		t.Fatalf("expected an error for an unregistered backend type")
	}
}

func TestRegisterPanicsOnDuplicate(t *testing.T) {
	Register("factory-test-dup", stubFactory{})
	defer func() {
		if recover() == nil {
			t.Fatalf("expected a panic registering a duplicate factory name")
		}
	}()
	Register("factory-test-dup", stubFactory{})
}
