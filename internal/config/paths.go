package config

import (
	"os"
	"path/filepath"
)

// appName is the application directory name.
const appName = "acp"

// configFileName is the config file name inside the config directory.
const configFileName = "config.toml"

// DefaultConfigDir returns the directory for acp config files, respecting
// XDG_CONFIG_HOME (default ~/.config/acp).
func DefaultConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, appName)
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}

	return filepath.Join(home, ".config", appName)
}

// DefaultConfigPath returns the full path to the default config file, or ""
// if no home directory can be determined.
func DefaultConfigPath() string {
	dir := DefaultConfigDir()
	if dir == "" {
		return ""
	}

	return filepath.Join(dir, configFileName)
}
