package configuration

import (
	"testing"

	. "gopkg.in/check.v1"
)

// Hook up gocheck into the "go test" runner
func Test(t *testing.T) { TestingT(t) }

var configStruct = Configuration{
	Version: "0.1",
	Log: Log{
		Level:     "info",
		Formatter: "text",
		Fields:    map[string]string{"environment": "test"},
	},
	CleanIntervalSeconds: 60,
	Mounts: map[string]Mount{
		"content": {
			Driver:    "directory",
			Path:      "/storage/content",
			ReadWrite: true,
			Cache:     true,
			CacheSize: 1024,
			Parameters: map[string]any{
				"root": "/var/lib/rcstorage/content",
			},
		},
		"theme": {
			Driver:   "archive",
			Path:     "/storage/theme",
			Overlay:  "/ui",
			Priority: 5,
			Parameters: map[string]any{
				"file": "/var/lib/rcstorage/theme.zip",
			},
		},
	},
}

var configYamlV0_1 = `
version: "0.1"
log:
  level: info
  formatter: text
  fields:
    environment: test
cleanIntervalSeconds: 60
mounts:
  content:
    driver: directory
    path: /storage/content
    readWrite: true
    cache: true
    cacheSize: 1024
    parameters:
      root: /var/lib/rcstorage/content
  theme:
    driver: archive
    path: /storage/theme
    overlay: /ui
    priority: 5
    parameters:
      file: /var/lib/rcstorage/theme.zip
`

type ConfigSuite struct{}

var _ = Suite(new(ConfigSuite))

func (suite *ConfigSuite) TestParseSimple(c *C) {
	config, err := Parse([]byte(configYamlV0_1))
	c.Assert(err, IsNil)
	c.Assert(*config, DeepEquals, configStruct)
}

func (suite *ConfigSuite) TestParseRejectsUnknownVersion(c *C) {
	_, err := Parse([]byte("version: \"9.9\"\n"))
	c.Assert(err, NotNil)
}

func (suite *ConfigSuite) TestParseIncompleteYamlFails(c *C) {
	_, err := Parse([]byte("version: \"0.1\nmounts:\n"))
	c.Assert(err, NotNil)
}
