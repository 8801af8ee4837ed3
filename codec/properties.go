package codec

import (
	"bufio"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/baraverkstad/rcstorage"
)

// propertiesSerializer implements the flat key=value format that is the
// default when no MIME hint selects another extension. Values are
// scalars (string, bool, int, float64); a nested Dictionary or array
// cannot round-trip through this format and is rejected at Serialize
// time — pick .json or .yaml for structured data.
type propertiesSerializer struct{}

func (propertiesSerializer) Extension() string { return ".properties" }
func (propertiesSerializer) MIME() string      { return "text/x-java-properties" }

func (propertiesSerializer) Serialize(_ string, d rcstorage.Dictionary, sink io.Writer) error {
	keys := make([]string, 0, len(d))
	for k := range d {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	w := bufio.NewWriter(sink)
	for _, k := range keys {
		line, err := formatProperty(k, d[k])
		if err != nil {
			return err
		}
		if _, err := w.WriteString(line + "\n"); err != nil {
			return err
		}
	}
	return w.Flush()
}

func formatProperty(key string, v any) (string, error) {
	switch t := v.(type) {
	case nil:
		return key + "=", nil
	case string:
		return key + "=" + escapeProperty(t), nil
	case bool, int, int64, float64:
		return fmt.Sprintf("%s=%v", key, t), nil
	default:
		return "", fmt.Errorf("codec: key %q: value of type %T cannot be stored as a .properties scalar", key, v)
	}
}

func escapeProperty(s string) string {
	s = strings.ReplaceAll(s, "\\", "\\\\")
	s = strings.ReplaceAll(s, "\n", "\\n")
	return s
}

func unescapeProperty(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' && i+1 < len(s) {
			i++
			switch s[i] {
			case 'n':
				b.WriteByte('\n')
			case '\\':
				b.WriteByte('\\')
			default:
				b.WriteByte(s[i])
			}
			continue
		}
		b.WriteByte(s[i])
	}
	return b.String()
}

func (propertiesSerializer) Deserialize(_ string, src io.Reader) (rcstorage.Dictionary, error) {
	d := rcstorage.Dictionary{}
	scanner := bufio.NewScanner(src)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, "!") {
			continue
		}
		eq := strings.IndexByte(line, '=')
		if eq < 0 {
			continue
		}
		key := strings.TrimSpace(line[:eq])
		val := unescapeProperty(line[eq+1:])
		d[key] = parseScalar(val)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return d, nil
}

func parseScalar(s string) any {
	if s == "" {
		return nil
	}
	if b, err := strconv.ParseBool(s); err == nil {
		return b
	}
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	return s
}

func init() {
	rcstorage.RegisterSerializer(propertiesSerializer{})
}
