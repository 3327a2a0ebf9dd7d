// Package config loads locvault configuration from YAML with environment
// overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config holds all locvault configuration.
type Config struct {
	// Database is the path of the SQLite file backing the store.
	Database string `yaml:"database"`

	Store   StoreConfig   `yaml:"store"`
	Logging LoggingConfig `yaml:"logging"`
}

// StoreConfig tunes store behavior.
type StoreConfig struct {
	// ValidateSubsetParent makes SaveSubset fail when the referenced
	// original does not exist, instead of the default relaxed write.
	ValidateSubsetParent bool `yaml:"validate_subset_parent"`

	// BusyTimeout is the SQLite busy timeout in milliseconds.
	BusyTimeout int `yaml:"busy_timeout_ms"`
}

// LoggingConfig configures log output.
type LoggingConfig struct {
	Verbose bool `yaml:"verbose"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Database: filepath.Join("data", "locvault.db"),
		Store: StoreConfig{
			ValidateSubsetParent: false,
			BusyTimeout:          5000,
		},
		Logging: LoggingConfig{
			Verbose: false,
		},
	}
}

// Load reads configuration from a YAML file. A missing file yields the
// defaults; environment overrides are applied last.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.applyEnvOverrides()
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

// Save writes the configuration to a YAML file.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

func (c *Config) applyEnvOverrides() {
	if db := os.Getenv("LOCVAULT_DB"); db != "" {
		c.Database = db
	}
	if v := os.Getenv("LOCVAULT_VERBOSE"); v == "1" || v == "true" {
		c.Logging.Verbose = true
	}
	if v := os.Getenv("LOCVAULT_VALIDATE_PARENT"); v == "1" || v == "true" {
		c.Store.ValidateSubsetParent = true
	}
}
