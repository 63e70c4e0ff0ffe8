package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the run configuration loaded from the YAML file. Flags select
// what to generate; this file says where the data lives and where the
// artifacts go.
type Config struct {
	// DSN of the source database (mysql DSN syntax).
	DSN string `yaml:"dsn"`
	// OutputDir receives the generated artifacts.
	OutputDir string `yaml:"output_dir"`
	// Destinations are extra directories every artifact is copied to.
	Destinations []string `yaml:"destinations"`
	// BranchGroups maps a group name to the branch codes it contains, so a
	// run can be scoped to e.g. all street stores with one flag value.
	BranchGroups map[string][]string `yaml:"branch_groups"`
	// LogLevel is a logrus level name; defaults to info.
	LogLevel string `yaml:"log_level"`
}

// Load reads and validates the configuration file.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	cfg := &Config{
		OutputDir: "data",
		LogLevel:  "info",
	}
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	if cfg.DSN == "" {
		return nil, fmt.Errorf("config %s: dsn is required", path)
	}
	return cfg, nil
}

// ResolveBranches turns a -branch flag value into a concrete branch list:
// a known group name expands to its members, anything else is taken as a
// single branch code, and an empty value means every branch.
func (c *Config) ResolveBranches(name string) []string {
	if name == "" {
		return nil
	}
	if branches, ok := c.BranchGroups[name]; ok {
		return append([]string(nil), branches...)
	}
	return []string{name}
}
