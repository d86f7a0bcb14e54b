// Package config provides configuration management for ductflow.
//
// Config file locations (priority order):
//  1. $DUCTFLOW_CONFIG
//  2. ./ductflow.yaml
//  3. $XDG_CONFIG_HOME/ductflow/config.yaml
//  4. ~/.config/ductflow/config.yaml
//  5. /etc/ductflow/config.yaml
//
// Environment variables override file values, and command line flags
// override both.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"ductflow/internal/domain"
)

const (
	// EnvAddr overrides server.addr
	EnvAddr = "DUCTFLOW_ADDR"
	// EnvDatabase overrides database.path
	EnvDatabase = "DUCTFLOW_DB"
	// EnvLogLevel overrides logging.level
	EnvLogLevel = "DUCTFLOW_LOG_LEVEL"
)

const (
	defaultAddr            = ":3000"
	defaultDatabasePath    = "./ductflow.db"
	defaultShutdownTimeout = 10 * time.Second
	defaultDebounce        = 500 * time.Millisecond
)

// ErrInvalidConfig wraps every validation failure
var ErrInvalidConfig = errors.New("invalid config")

var validate = validator.New()

// Load finds and loads the config file, or returns defaults if none found.
// Environment overrides are applied in both cases.
func Load() (*Config, string, error) {
	path := FindConfigPath()

	if path == "" {
		cfg := DefaultConfig()
		cfg.ApplyEnv()
		return cfg, "", cfg.Validate()
	}

	cfg, path, err := LoadFromPath(path)
	if err != nil {
		return nil, path, err
	}
	cfg.ApplyEnv()
	return cfg, path, cfg.Validate()
}

// LoadFromPath loads config from a specific path
func LoadFromPath(path string) (*Config, string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, path, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, path, fmt.Errorf("parse config: %w", err)
	}

	cfg.applyDefaults()

	return &cfg, path, nil
}

// Save writes config to the specified path
func (c *Config) Save(path string) error {
	if err := EnsureConfigDir(path); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	return os.WriteFile(path, data, 0644)
}

// DefaultConfig returns sensible defaults for a new installation
func DefaultConfig() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// applyDefaults fills in missing values with defaults
func (c *Config) applyDefaults() {
	if c.Version == 0 {
		c.Version = 1
	}
	if c.Server.Addr == "" {
		c.Server.Addr = defaultAddr
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = Duration(defaultShutdownTimeout)
	}
	if c.Database.Path == "" {
		c.Database.Path = defaultDatabasePath
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "text"
	}
	if len(c.Traversal.TerminalCategories) == 0 {
		c.Traversal.TerminalCategories = []domain.Category{domain.CategoryDuctTerminal}
	}
	if c.Watch.Debounce == 0 {
		c.Watch.Debounce = Duration(defaultDebounce)
	}
}

// ApplyEnv overrides values from the environment
func (c *Config) ApplyEnv() {
	if v := os.Getenv(EnvAddr); v != "" {
		c.Server.Addr = v
	}
	if v := os.Getenv(EnvDatabase); v != "" {
		c.Database.Path = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.Logging.Level = strings.ToLower(v)
	}
}

// Validate checks the config for values the application cannot run with
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var fieldErrors validator.ValidationErrors
		if !errors.As(err, &fieldErrors) {
			return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
		}
		msgs := make([]string, 0, len(fieldErrors))
		for _, fe := range fieldErrors {
			msgs = append(msgs, fmt.Sprintf("%s failed %s", fe.Namespace(), fe.Tag()))
		}
		return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(msgs, "; "))
	}
	return nil
}

// Classifier builds the terminal classifier described by the traversal
// settings
func (c *Config) Classifier() *domain.Classifier {
	return domain.NewClassifier(c.Traversal.TerminalCategories...)
}

// Summary returns a human-readable config summary
func (c *Config) Summary() string {
	summary := fmt.Sprintf("Server: %s, Database: %s\n", c.Server.Addr, c.Database.Path)
	summary += fmt.Sprintf("Terminals: %v", c.Traversal.TerminalCategories)
	if len(c.Traversal.StartCategories) > 0 {
		summary += fmt.Sprintf(", Starts: %v", c.Traversal.StartCategories)
	}
	if c.Traversal.MaxExpansions > 0 {
		summary += fmt.Sprintf(", Max expansions: %d", c.Traversal.MaxExpansions)
	}
	if c.Watch.Enabled {
		summary += fmt.Sprintf("\nWatching %d file(s)", len(c.Watch.Paths))
	}
	return summary
}
