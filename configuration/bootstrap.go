package configuration

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/baraverkstad/rcstorage/path"
	vstore "github.com/baraverkstad/rcstorage/registry/storage"
	"github.com/baraverkstad/rcstorage/registry/storage/driver/factory"
)

// Apply builds the backends named by c.Mounts via the driver factory
// registry and mounts/remounts each of them into root, applying the log
// level setting. A mount's readWrite flag is also passed to its factory
// as the "readWrite" parameter. CleanIntervalSeconds is not applied.
func Apply(ctx context.Context, c *Configuration, root *vstore.RootStorage) error {
	if lvl, err := logrus.ParseLevel(string(c.Log.Level)); err == nil {
		logrus.SetLevel(lvl)
	}

	for name, m := range c.Mounts {
		params := m.Parameters
		if m.ReadWrite {
			params = make(map[string]any, len(m.Parameters)+1)
			for k, v := range m.Parameters {
				params[k] = v
			}
			params["readWrite"] = true
		}
		backend, err := factory.Create(m.Driver, params)
		if err != nil {
			return fmt.Errorf("mount %q: %w", name, err)
		}
		mountPath, err := path.Parse(m.Path)
		if err != nil {
			return fmt.Errorf("mount %q: %w", name, err)
		}
		if err := root.Mount(ctx, backend, mountPath); err != nil {
			return fmt.Errorf("mount %q: %w", name, err)
		}

		var overlay path.Path
		hasOverlay := m.Overlay != ""
		if hasOverlay {
			overlay, err = path.Parse(m.Overlay)
			if err != nil {
				return fmt.Errorf("mount %q: %w", name, err)
			}
		}
		if err := root.Remount(ctx, mountPath, m.ReadWrite, m.Cache, m.CacheSize, overlay, hasOverlay, m.Priority); err != nil {
			return fmt.Errorf("mount %q: %w", name, err)
		}
	}
	return nil
}
