// Package config loads the acp configuration file and environment
// overrides. Everything has a default, so a config file is optional.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
)

// DefaultClientID is the OAuth client ID of the registered acp native app.
const DefaultClientID = "f584c7eb-818e-4374-9cbb-037456973b9c"

// DefaultScopes is the authorization grant set requested from Globus Auth.
// The scope set is configuration, not a constant baked into call sites:
// sites that run their own Globus deployments override it in config.toml.
var DefaultScopes = []string{
	"openid",
	"profile",
	"urn:globus:auth:scope:transfer.api.globus.org:all",
}

// Config is the parsed configuration file.
type Config struct {
	// ClientID is the OAuth client ID used for both login flows.
	ClientID string `toml:"client_id"`

	// Scopes is the required authorization grant set. A cached session
	// missing any of these triggers a fresh login.
	Scopes []string `toml:"scopes"`

	// LogLevel is the baseline log level (debug, info, warn, error).
	// CLI flags override it.
	LogLevel string `toml:"log_level"`
}

// DefaultConfig returns a Config with every field at its default.
func DefaultConfig() *Config {
	return &Config{
		ClientID: DefaultClientID,
		Scopes:   append([]string(nil), DefaultScopes...),
		LogLevel: "warn",
	}
}

// Load reads and parses a TOML config file. Unknown keys are fatal:
// silently ignoring a typo leads to hard-to-debug behavior.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, fmt.Errorf("config: parsing %s: %w", path, err)
	}

	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, k := range undecoded {
			keys = append(keys, k.String())
		}

		return nil, fmt.Errorf("config: unknown keys in %s: %s", path, strings.Join(keys, ", "))
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}

	return cfg, nil
}

// LoadOrDefault reads the config file if it exists, otherwise returns
// defaults. Supports the zero-config first run.
func LoadOrDefault(path string) (*Config, error) {
	if path == "" {
		return DefaultConfig(), nil
	}

	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return DefaultConfig(), nil
	}

	return Load(path)
}

// validate rejects configs that would only fail later, mid-login.
func validate(cfg *Config) error {
	if cfg.ClientID == "" {
		return errors.New("client_id must not be empty")
	}

	if len(cfg.Scopes) == 0 {
		return errors.New("scopes must not be empty")
	}

	switch cfg.LogLevel {
	case "debug", "info", "warn", "error":
		return nil
	default:
		return fmt.Errorf("invalid log_level %q", cfg.LogLevel)
	}
}

// Resolve determines the config path (CLI flag > $ACP_CONFIG > default
// location) and loads it, falling back to defaults when no file exists.
func Resolve(flagPath string) (*Config, error) {
	path := DefaultConfigPath()

	if env := os.Getenv(EnvConfig); env != "" {
		path = env
	}

	if flagPath != "" {
		path = flagPath
	}

	return LoadOrDefault(path)
}
