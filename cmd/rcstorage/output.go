package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/baraverkstad/rcstorage"
	"github.com/baraverkstad/rcstorage/configuration"
	"github.com/baraverkstad/rcstorage/path"
)

// metadataView renders rcstorage.Metadata for CLI output: Path's and
// Backends' unexported fields make the struct opaque to encoding/json,
// so each is rendered through path.Path.String() instead.
type metadataView struct {
	Category string   `json:"category"`
	Class    string   `json:"class,omitempty"`
	Path     string   `json:"path"`
	Backends []string `json:"backends,omitempty"`
	MIME     string   `json:"mime,omitempty"`
	Modified string   `json:"modified,omitempty"`
	Size     int64    `json:"size,omitempty"`
}

func newMetadataView(meta rcstorage.Metadata) metadataView {
	backends := make([]string, len(meta.Backends))
	for i, b := range meta.Backends {
		backends[i] = b.String()
	}
	v := metadataView{
		Category: string(meta.Category),
		Class:    meta.Class,
		Path:     meta.Path.String(),
		Backends: backends,
		MIME:     meta.MIME,
	}
	if meta.HasMod {
		v.Modified = meta.Modified.UTC().Format("2006-01-02T15:04:05Z")
	}
	if meta.HasSize {
		v.Size = meta.Size
	}
	return v
}

func rootPath() path.Path { return path.Root }

// mustConfig re-reads the configuration file for commands (like mount)
// that want to report on it after bootstrap has already consumed it.
func mustConfig() *configuration.Configuration {
	cfg, err := loadConfiguration()
	if err != nil {
		fatalf("%v", err)
	}
	return cfg
}

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		fmt.Fprintln(os.Stderr, err)
	}
}

func mustPath(raw string) path.Path {
	p, err := path.Parse(raw)
	if err != nil {
		fatalf("%v", err)
	}
	return p
}
