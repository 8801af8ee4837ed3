package codec

import (
	"io"

	"gopkg.in/yaml.v2"

	"github.com/baraverkstad/rcstorage"
)

type yamlSerializer struct{}

func (yamlSerializer) Extension() string { return ".yaml" }
func (yamlSerializer) MIME() string      { return "application/yaml" }

func (yamlSerializer) Serialize(_ string, d rcstorage.Dictionary, sink io.Writer) error {
	out, err := yaml.Marshal(map[string]any(d))
	if err != nil {
		return err
	}
	_, err = sink.Write(out)
	return err
}

func (yamlSerializer) Deserialize(_ string, src io.Reader) (rcstorage.Dictionary, error) {
	raw, err := io.ReadAll(src)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := yaml.Unmarshal(raw, &m); err != nil {
		return nil, err
	}
	return rcstorage.Dictionary(normalizeYAML(m).(map[string]any)), nil
}

// normalizeYAML recursively converts yaml.v2's map[interface{}]interface{}
// nodes (produced for any mapping, since yaml.v2 predates Go generics and
// decodes untyped mappings with interface{} keys) into map[string]any, so
// callers never have to type-switch on the library's internal map kind.
func normalizeYAML(v any) any {
	switch t := v.(type) {
	case map[interface{}]interface{}:
		m := make(map[string]any, len(t))
		for k, val := range t {
			if ks, ok := k.(string); ok {
				m[ks] = normalizeYAML(val)
			}
		}
		return m
	case map[string]any:
		m := make(map[string]any, len(t))
		for k, val := range t {
			m[k] = normalizeYAML(val)
		}
		return m
	case []interface{}:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = normalizeYAML(e)
		}
		return out
	default:
		return v
	}
}

func init() {
	rcstorage.RegisterSerializer(yamlSerializer{})
}
