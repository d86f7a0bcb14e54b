package config

import (
	"os"
	"path/filepath"
)

const (
	EnvConfigPath  = "DUCTFLOW_CONFIG"
	ConfigFileName = "ductflow.yaml"
	ConfigDirName  = "ductflow"
)

// SearchPaths lists candidate config files, highest priority first:
// $DUCTFLOW_CONFIG, ./ductflow.yaml, $XDG_CONFIG_HOME/ductflow/config.yaml,
// ~/.config/ductflow/config.yaml, /etc/ductflow/config.yaml.
// Unset variables contribute no candidate.
func SearchPaths() []string {
	var paths []string
	if p := os.Getenv(EnvConfigPath); p != "" {
		paths = append(paths, p)
	}
	if abs, err := filepath.Abs(ConfigFileName); err == nil {
		paths = append(paths, abs)
	} else {
		paths = append(paths, ConfigFileName)
	}
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		paths = append(paths, filepath.Join(xdg, ConfigDirName, "config.yaml"))
	}
	if home := os.Getenv("HOME"); home != "" {
		paths = append(paths, filepath.Join(home, ".config", ConfigDirName, "config.yaml"))
	}
	return append(paths, filepath.Join("/etc", ConfigDirName, "config.yaml"))
}

// FindConfigPath returns the first existing entry of SearchPaths, or ""
func FindConfigPath() string {
	for _, p := range SearchPaths() {
		if info, err := os.Stat(p); err == nil && !info.IsDir() {
			return p
		}
	}
	return ""
}

// EnsureConfigDir creates the directory holding configPath
func EnsureConfigDir(configPath string) error {
	return os.MkdirAll(filepath.Dir(configPath), 0755)
}
