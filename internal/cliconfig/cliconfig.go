// Package cliconfig loads the kabap CLI's optional YAML config file
// (SPEC_FULL.md "CLI configuration"): default scale, watchdog limit
// and extension prefix list, parsed with goccy/go-yaml rather than a
// hand-rolled key=value reader.
package cliconfig

import (
	"os"

	"github.com/goccy/go-yaml"
)

// Config holds the defaults a kabap invocation can inherit from a YAML
// file via --config.
type Config struct {
	Scale      int      `yaml:"scale"`
	Watchdog   int      `yaml:"watchdog"`
	Extensions []string `yaml:"extensions"`
}

// Load reads and parses a YAML config file.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
