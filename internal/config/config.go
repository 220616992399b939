// Package config loads the optional ruledeploy project configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"syscall"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	billy "github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"
	"gopkg.in/yaml.v3"

	"github.com/roach88/ruledeploy/internal/deploy"
)

// FileName is the project-level config file looked up in the install target.
const FileName = ".ruledeploy.yaml"

// Config is the complete ruledeploy configuration.
type Config struct {
	// Source is an explicit rule tree root, tried before every other
	// candidate. Relative paths are taken from the config file's directory.
	Source string `yaml:"source"`

	// Exclude lists doublestar patterns for source file names to skip.
	Exclude []string `yaml:"exclude"`

	// Gitignore enables the .gitignore hint (default true).
	Gitignore bool `yaml:"gitignore"`

	// CountPattern selects the files the report counts.
	CountPattern string `yaml:"count_pattern"`

	Watch WatchConfig `yaml:"watch"`

	// path is the file this config was read from, empty for defaults.
	path string
}

// WatchConfig configures the watch command.
type WatchConfig struct {
	// Debounce is how long source changes must settle before re-installing.
	Debounce time.Duration `yaml:"debounce"`
}

// DefaultConfig returns a Config with defaults.
func DefaultConfig() *Config {
	return &Config{
		Gitignore:    true,
		CountPattern: deploy.DefaultCountPattern,
		Watch: WatchConfig{
			Debounce: deploy.DefaultDebounce,
		},
	}
}

// Path returns the file the config was loaded from, or "" for defaults.
func (c *Config) Path() string {
	return c.path
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if c.CountPattern == "" {
		return fmt.Errorf("count_pattern is required")
	}
	if !doublestar.ValidatePattern(c.CountPattern) {
		return fmt.Errorf("count_pattern %q is not a valid pattern", c.CountPattern)
	}
	for _, p := range c.Exclude {
		if !doublestar.ValidatePattern(p) {
			return fmt.Errorf("exclude pattern %q is not valid", p)
		}
	}
	if c.Watch.Debounce < 0 {
		return fmt.Errorf("watch.debounce must not be negative")
	}
	return nil
}

// LoadFromFile loads configuration from a YAML file on fs.
// Keys absent from the file keep their defaults.
func LoadFromFile(fs billy.Filesystem, path string) (*Config, error) {
	data, err := util.ReadFile(fs, path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	cfg.path = path
	if cfg.Source != "" && !filepath.IsAbs(cfg.Source) {
		cfg.Source = filepath.Join(filepath.Dir(path), cfg.Source)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config file %s: %w", path, err)
	}
	return cfg, nil
}

// Load returns the configuration for an install into target.
//
// An explicit path must exist. Otherwise <target>/.ruledeploy.yaml is used
// when present, and defaults when it is not.
func Load(fs billy.Filesystem, explicitPath, target string) (*Config, error) {
	if explicitPath != "" {
		return LoadFromFile(fs, explicitPath)
	}

	path := filepath.Join(target, FileName)
	if _, err := fs.Stat(path); err != nil {
		// ENOTDIR: target is a file, which the installer rejects on its own.
		if errors.Is(err, os.ErrNotExist) || errors.Is(err, syscall.ENOTDIR) {
			return DefaultConfig(), nil
		}
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	return LoadFromFile(fs, path)
}
