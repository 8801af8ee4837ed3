// Package codec registers the concrete Serializer implementations for
// the recognized data extensions (.json, .yaml, .xml, .properties).
// Importing this package for its side effects makes every format
// available through rcstorage.SerializerFor.
package codec

import (
	"encoding/json"
	"io"

	"github.com/baraverkstad/rcstorage"
)

type jsonSerializer struct{}

func (jsonSerializer) Extension() string { return ".json" }
func (jsonSerializer) MIME() string      { return "application/json" }

func (jsonSerializer) Serialize(_ string, d rcstorage.Dictionary, sink io.Writer) error {
	enc := json.NewEncoder(sink)
	enc.SetIndent("", "  ")
	return enc.Encode(map[string]any(d))
}

func (jsonSerializer) Deserialize(_ string, src io.Reader) (rcstorage.Dictionary, error) {
	var m map[string]any
	if err := json.NewDecoder(src).Decode(&m); err != nil {
		return nil, err
	}
	return rcstorage.Dictionary(m), nil
}

func init() {
	rcstorage.RegisterSerializer(jsonSerializer{})
}
