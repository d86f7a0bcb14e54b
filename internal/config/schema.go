package config

import (
	"time"

	"ductflow/internal/domain"
)

// Config is the root configuration structure
type Config struct {
	Version   int             `yaml:"version"`
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Logging   LoggingConfig   `yaml:"logging"`
	Traversal TraversalConfig `yaml:"traversal"`
	Watch     WatchConfig     `yaml:"watch"`
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Addr            string   `yaml:"addr" validate:"required"`
	ShutdownTimeout Duration `yaml:"shutdown_timeout"`
}

// DatabaseConfig holds database settings
type DatabaseConfig struct {
	Path string `yaml:"path" validate:"required"`
}

// LoggingConfig selects the log level and handler
type LoggingConfig struct {
	Level  string `yaml:"level" validate:"oneof=debug info warn error"`
	Format string `yaml:"format" validate:"oneof=text json"`
}

// TraversalConfig controls how networks are classified and traversed
type TraversalConfig struct {
	// TerminalCategories are the categories treated as airflow sinks
	TerminalCategories []domain.Category `yaml:"terminal_categories" validate:"min=1,dive,required"`
	// MaxExpansions bounds a traversal; zero means unlimited
	MaxExpansions int `yaml:"max_expansions" validate:"min=0"`
	// StartCategories restricts which categories may start a traversal.
	// Empty allows any.
	StartCategories []domain.Category `yaml:"start_categories,omitempty" validate:"dive,required"`
}

// WatchConfig lists network files reloaded on change while serving
type WatchConfig struct {
	Enabled  bool     `yaml:"enabled"`
	Paths    []string `yaml:"paths,omitempty"`
	Debounce Duration `yaml:"debounce"`
}

// Duration wraps time.Duration for YAML unmarshaling
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler
func (d *Duration) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML implements yaml.Marshaler
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// Duration returns the underlying time.Duration
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}
