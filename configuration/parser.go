package configuration

import (
	"fmt"
	"os"
	"reflect"
	"regexp"
	"strings"

	"gopkg.in/yaml.v2"
)

// Version is a major.minor version pair identifying the shape of a
// Configuration YAML document, e.g. "1.0".
type Version string

// MajorMinorVersion constructs a Version from its major and minor
// components.
func MajorMinorVersion(major, minor uint) Version {
	return Version(fmt.Sprintf("%d.%d", major, minor))
}

// VersionedParseInfo describes how one Configuration version is parsed:
// the Go type its YAML unmarshals into, and a function converting that
// type into the Parser's target type (identity when there has been no
// format migration since that version).
type VersionedParseInfo struct {
	Version        Version
	ParseAs        reflect.Type
	ConversionFunc func(interface{}) (interface{}, error)
}

// Parser parses a version-tagged YAML document into a target struct,
// then overlays RCSTORAGE_-prefixed environment variables on top of the
// parsed fields — the mechanism rcstorage's `configuration.Parse` uses
// to let a deployment override `mounts.<name>.readWrite`,
// `log.level`, and similar fields without editing the YAML file.
type Parser struct {
	prefix  string
	mapping map[Version]VersionedParseInfo
	env     map[string]string
}

// NewParser returns a *Parser with the given environment prefix which handles
// versioned configurations which match the given parseInfos
func NewParser(prefix string, parseInfos []VersionedParseInfo) *Parser {
	p := Parser{prefix: prefix, mapping: make(map[Version]VersionedParseInfo), env: make(map[string]string)}

	for _, parseInfo := range parseInfos {
		p.mapping[parseInfo.Version] = parseInfo
	}

	for _, env := range os.Environ() {
		envParts := strings.SplitN(env, "=", 2)
		p.env[envParts[0]] = envParts[1]
	}

	return &p
}

// Parse reads a Configuration's YAML bytes into v, applying any
// RCSTORAGE_-prefixed environment override on top. A scalar field
// v.Log.Level is overridden by RCSTORAGE_LOG_LEVEL; a map entry
// v.Mounts["content"].ReadWrite is overridden by
// RCSTORAGE_MOUNTS_CONTENT_READWRITE.
func (p *Parser) Parse(in []byte, v interface{}) error {
	var versionedStruct struct {
		Version Version
	}

	if err := yaml.Unmarshal(in, &versionedStruct); err != nil {
		return err
	}

	parseInfo, ok := p.mapping[versionedStruct.Version]
	if !ok {
		return fmt.Errorf("unsupported configuration version: %q", versionedStruct.Version)
	}

	parseAs := reflect.New(parseInfo.ParseAs)
	if err := yaml.Unmarshal(in, parseAs.Interface()); err != nil {
		return err
	}

	if err := p.overwriteFields(parseAs, p.prefix); err != nil {
		return err
	}

	c, err := parseInfo.ConversionFunc(parseAs.Interface())
	if err != nil {
		return err
	}
	reflect.ValueOf(v).Elem().Set(reflect.Indirect(reflect.ValueOf(c)))
	return nil
}

func (p *Parser) overwriteFields(v reflect.Value, prefix string) error {
	for v.Kind() == reflect.Ptr {
		v = reflect.Indirect(v)
	}
	switch v.Kind() {
	case reflect.Struct:
		for i := 0; i < v.NumField(); i++ {
			sf := v.Type().Field(i)
			fieldPrefix := strings.ToUpper(prefix + "_" + sf.Name)
			if e, ok := p.env[fieldPrefix]; ok {
				fieldVal := reflect.New(sf.Type)
				if err := yaml.Unmarshal([]byte(e), fieldVal.Interface()); err != nil {
					return err
				}
				v.Field(i).Set(reflect.Indirect(fieldVal))
			}
			if err := p.overwriteFields(v.Field(i), fieldPrefix); err != nil {
				return err
			}
		}
	case reflect.Map:
		return p.overwriteMapField(v, prefix)
	}
	return nil
}

// overwriteMapField handles the two map shapes rcstorage's Configuration
// actually carries: Mounts (map[string]Mount, keyed by the arbitrary
// mount name embedded in the env var, RCSTORAGE_MOUNTS_<NAME>_<FIELD>)
// and a Mount's Parameters (map[string]any, backend-specific scalars
// decoded straight from the env value, RCSTORAGE_MOUNTS_<NAME>_PARAMETERS_<KEY>).
// A map entry's value is not addressable, so struct entries are copied
// out, overwritten field-by-field, and written back; scalar entries are
// replaced outright. An entry named only by the environment (no
// corresponding YAML key) is synthesized from a zero value.
func (p *Parser) overwriteMapField(m reflect.Value, prefix string) error {
	if m.Type().Elem().Kind() == reflect.Struct {
		for _, k := range m.MapKeys() {
			elem := reflect.New(m.Type().Elem()).Elem()
			elem.Set(m.MapIndex(k))
			if err := p.overwriteFields(elem, strings.ToUpper(fmt.Sprintf("%s_%s", prefix, k))); err != nil {
				return err
			}
			m.SetMapIndex(k, elem)
		}
	}

	envMapRegexp, err := regexp.Compile(fmt.Sprintf("^%s_([A-Z0-9]+)$", strings.ToUpper(prefix)))
	if err != nil {
		return err
	}
	for key, val := range p.env {
		submatches := envMapRegexp.FindStringSubmatch(key)
		if submatches == nil {
			continue
		}
		mapValue := reflect.New(m.Type().Elem())
		if err := yaml.Unmarshal([]byte(val), mapValue.Interface()); err != nil {
			return err
		}
		m.SetMapIndex(reflect.ValueOf(strings.ToLower(submatches[1])), reflect.Indirect(mapValue))
	}
	return nil
}
