// Command rcstorage drives a configured RootStorage from the command
// line: mount the backends named by a configuration file, then list,
// read, write, remove, or search objects through the unified path
// namespace.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	_ "github.com/baraverkstad/rcstorage/codec"
	"github.com/baraverkstad/rcstorage/configuration"
	"github.com/baraverkstad/rcstorage/internal/dcontext"
	"github.com/baraverkstad/rcstorage/internal/uuid"
	vstore "github.com/baraverkstad/rcstorage/registry/storage"
	_ "github.com/baraverkstad/rcstorage/registry/storage/driver/archive"
	_ "github.com/baraverkstad/rcstorage/registry/storage/driver/directory"
)

var configPath string

// RootCmd is the main command for the `rcstorage` binary.
var RootCmd = &cobra.Command{
	Use:   "rcstorage",
	Short: "`rcstorage` drives a unified, path-addressed object store",
	Long:  "`rcstorage` drives a unified, path-addressed object store",
	Run: func(cmd *cobra.Command, args []string) {
		// nolint:errcheck
		cmd.Usage()
	},
}

func init() {
	RootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to the mount configuration YAML file")
	RootCmd.AddCommand(mountCmd)
	RootCmd.AddCommand(lsCmd)
	RootCmd.AddCommand(catCmd)
	RootCmd.AddCommand(putCmd)
	RootCmd.AddCommand(rmCmd)
	RootCmd.AddCommand(findCmd)
}

func main() {
	if err := RootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfiguration reads and parses configPath, failing loudly if it
// was never set: every subcommand but the bare root needs a mount list.
func loadConfiguration() (*configuration.Configuration, error) {
	if configPath == "" {
		return nil, fmt.Errorf("--config is required")
	}
	raw, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", configPath, err)
	}
	return configuration.Parse(raw)
}

// bootstrap loads the configuration, applies logging, mounts every
// backend it names, and returns the resulting store along with a
// context carrying the configured logger.
func bootstrap() (context.Context, *vstore.RootStorage, error) {
	cfg, err := loadConfiguration()
	if err != nil {
		return nil, nil, err
	}

	ctx := dcontext.WithInstanceID(context.Background(), uuid.NewString())
	root := vstore.New(typeRegistry{}, func() any { return nowStamp() })
	if err := configuration.Apply(ctx, cfg, root); err != nil {
		return nil, nil, err
	}
	dcontext.GetLogger(ctx).Debugf("mounted %d backend(s) from %s", len(cfg.Mounts), configPath)
	return ctx, root, nil
}

func fatalf(format string, args ...any) {
	logrus.Errorf(format, args...)
	os.Exit(1)
}
