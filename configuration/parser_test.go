package configuration

import (
	"os"
	"reflect"

	"gopkg.in/check.v1"
)

// localConfiguration exercises the struct and map-of-struct overwrite paths
// without pulling in the full Configuration type.
type localConfiguration struct {
	Version Version          `yaml:"version"`
	Log     *Log             `yaml:"log"`
	Mounts  map[string]Mount `yaml:"mounts,omitempty"`
}

var expectedConfig = localConfiguration{
	Version: "0.1",
	Log: &Log{
		Formatter: "json",
	},
	Mounts: map[string]Mount{
		"local": {Driver: "memory", ReadWrite: true, Priority: 7},
	},
}

const testConfig = `version: "0.1"
log:
  formatter: "text"
mounts:
  local:
    driver: "memory"
    readWrite: false
    priority: 1`

type ParserSuite struct{}

var _ = check.Suite(new(ParserSuite))

func (suite *ParserSuite) TestParserOverwriteInitializedPointer(c *check.C) {
	config := localConfiguration{}

	os.Setenv("RCSTORAGE_LOG_FORMATTER", "json")
	defer os.Unsetenv("RCSTORAGE_LOG_FORMATTER")

	p := NewParser("rcstorage", []VersionedParseInfo{
		{
			Version: "0.1",
			ParseAs: reflect.TypeOf(config),
			ConversionFunc: func(c interface{}) (interface{}, error) {
				return c, nil
			},
		},
	})

	err := p.Parse([]byte(testConfig), &config)
	c.Assert(err, check.IsNil)
	c.Assert(config.Log, check.DeepEquals, expectedConfig.Log)
}

func (suite *ParserSuite) TestParserOverwriteMapOfStruct(c *check.C) {
	config := localConfiguration{}

	os.Setenv("RCSTORAGE_LOG_FORMATTER", "json")
	defer os.Unsetenv("RCSTORAGE_LOG_FORMATTER")
	os.Setenv("RCSTORAGE_MOUNTS_LOCAL_READWRITE", "true")
	defer os.Unsetenv("RCSTORAGE_MOUNTS_LOCAL_READWRITE")
	os.Setenv("RCSTORAGE_MOUNTS_LOCAL_PRIORITY", "7")
	defer os.Unsetenv("RCSTORAGE_MOUNTS_LOCAL_PRIORITY")

	p := NewParser("rcstorage", []VersionedParseInfo{
		{
			Version: "0.1",
			ParseAs: reflect.TypeOf(config),
			ConversionFunc: func(c interface{}) (interface{}, error) {
				return c, nil
			},
		},
	})

	err := p.Parse([]byte(testConfig), &config)
	c.Assert(err, check.IsNil)
	c.Assert(config, check.DeepEquals, expectedConfig)
}
