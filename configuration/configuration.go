// Package configuration loads a RootStorage's mount list from a YAML
// file, with environment-variable overrides layered on top following
// the PREFIX_FIELD_SUBFIELD convention implemented by Parser.
package configuration

import (
	"reflect"
)

// Configuration is a versioned description of the mounts a RootStorage
// should bring up at startup.
//
// Note that yaml field names should never include _ characters, since
// that is the separator used in environment variable overrides.
type Configuration struct {
	// Version is the version which defines the format of the rest of
	// the configuration.
	Version Version `yaml:"version"`

	// Log configures the ambient leveled logger.
	Log Log `yaml:"log"`

	// CleanIntervalSeconds is parsed but not applied by Apply; the
	// background cache sweep keeps its default 30s period.
	CleanIntervalSeconds int `yaml:"cleanIntervalSeconds,omitempty"`

	// Mounts lists every backend to attach at startup, keyed by an
	// arbitrary name used only for YAML/env readability.
	Mounts map[string]Mount `yaml:"mounts"`
}

// Log configures the ambient logger.
type Log struct {
	Level     Loglevel          `yaml:"level"`
	Formatter string            `yaml:"formatter,omitempty"`
	Fields    map[string]string `yaml:"fields,omitempty"`
}

// Loglevel is a logging level name, e.g. "debug", "info", "warn", "error".
type Loglevel string

// Mount describes one backend to attach: which driver factory builds it,
// the parameters it takes, where it mounts, and its overlay projection.
type Mount struct {
	// Driver names the registered factory (e.g. "directory", "archive",
	// "memory").
	Driver string `yaml:"driver"`
	// Parameters are decoded by the named factory via mapstructure.
	Parameters map[string]any `yaml:"parameters,omitempty"`

	// Path is the mount path under /storage/.
	Path string `yaml:"path"`
	// ReadWrite permits store/remove through this mount.
	ReadWrite bool `yaml:"readWrite,omitempty"`
	// Cache enables a lifecycle-aware Cache in front of this mount.
	Cache bool `yaml:"cache,omitempty"`
	// CacheSize bounds the cache's passivated-inactive entries; 0 means
	// unbounded.
	CacheSize int `yaml:"cacheSize,omitempty"`
	// Overlay is the overlay projection path, empty for none.
	Overlay string `yaml:"overlay,omitempty"`
	// Priority is the overlay search rank; higher wins.
	Priority int `yaml:"priority,omitempty"`
}

var parser = NewParser("RCSTORAGE", []VersionedParseInfo{
	{
		Version: MajorMinorVersion(0, 1),
		ParseAs: reflect.TypeOf(Configuration{}),
		ConversionFunc: func(c any) (any, error) {
			return c, nil
		},
	},
})

// Parse reads a Configuration from YAML bytes, applying any
// RCSTORAGE_-prefixed environment variable overrides.
func Parse(in []byte) (*Configuration, error) {
	config := new(Configuration)
	if err := parser.Parse(in, config); err != nil {
		return nil, err
	}
	return config, nil
}
