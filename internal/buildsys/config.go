// Package buildsys configures the native build for a checkout.
package buildsys

import (
	_ "embed"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/felixgeelhaar/premerge/internal/errors"
)

//go:embed run_cmake_config.yaml
var defaultConfigYAML []byte

// Config holds cmake arguments, environment and project lists, the general
// section applying to all operating systems.
type Config struct {
	Environment     map[string]map[string]string `yaml:"environment"`
	Arguments       map[string][]string          `yaml:"arguments"`
	DefaultProjects map[string]string            `yaml:"default_projects"`
}

// DefaultConfig returns the built-in configuration.
func DefaultConfig() (*Config, error) {
	return parseConfig(defaultConfigYAML, "run_cmake_config.yaml")
}

// LoadConfig reads a configuration file. An empty path loads the built-in one.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return DefaultConfig()
	}
	data, err := os.ReadFile(path) // #nosec G304 -- operator supplied config path
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NewFileNotFoundError(path)
		}
		return nil, errors.Wrap(errors.ErrCodeFileReadFailed, "read cmake config", err)
	}
	return parseConfig(data, path)
}

func parseConfig(data []byte, name string) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, errors.NewFileUnmarshalError(name, "YAML", err)
	}
	if len(cfg.Arguments["general"]) == 0 {
		return nil, errors.NewConfigInvalidError(name + ": arguments.general is empty")
	}
	return &cfg, nil
}

// Args returns the general arguments followed by the ones for goos.
func (c *Config) Args(goos string) []string {
	args := make([]string, 0, len(c.Arguments["general"])+len(c.Arguments[goos]))
	args = append(args, c.Arguments["general"]...)
	return append(args, c.Arguments[goos]...)
}

// Env returns the extra environment for goos as sorted KEY=VALUE pairs.
func (c *Config) Env(goos string) []string {
	vars := c.Environment[goos]
	env := make([]string, 0, len(vars))
	for k, v := range vars {
		env = append(env, k+"="+v)
	}
	sort.Strings(env)
	return env
}

// Projects resolves the LLVM_ENABLE_PROJECTS value. "default" and "" select
// the configured list for goos.
func (c *Config) Projects(requested, goos string) string {
	if requested == "" || requested == "default" {
		return c.DefaultProjects[goos]
	}
	return requested
}
