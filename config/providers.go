package config

import (
	"os"

	"github.com/pkg/errors"
	"github.com/vrischmann/envconfig"
	"gopkg.in/yaml.v3"
)

const (
	YAMLProviderName = "yaml"
	EnvProviderName  = "envconfig"

	DefaultEnvPrefix = "DBPOOL"
)

// YAMLProvider reads a YAML file. An empty path is skipped.
type YAMLProvider struct {
	path string
}

func NewYAMLProvider(path string) *YAMLProvider {
	return &YAMLProvider{path: path}
}

func (p *YAMLProvider) Parse(structure interface{}) error {
	if p.path == "" {
		return nil
	}

	data, err := os.ReadFile(p.path)
	if err != nil {
		return errors.Wrap(err, "read config file")
	}

	if err := yaml.Unmarshal(data, structure); err != nil {
		return errors.Wrapf(err, "unmarshal %s", p.path)
	}

	return nil
}

// EnvProvider overrides fields from environment variables named
// PREFIX_SECTION_FIELD.
type EnvProvider struct {
	prefix string
}

func NewEnvProvider(prefix string) *EnvProvider {
	return &EnvProvider{prefix: prefix}
}

func (p *EnvProvider) Parse(structure interface{}) error {
	return envconfig.InitWithOptions(structure, envconfig.Options{
		Prefix:      p.prefix,
		AllOptional: true,
		LeaveNil:    true,
	})
}
