package config

// Environment variable names for overrides.
const (
	// EnvConfig overrides the config file path.
	EnvConfig = "ACP_CONFIG"
)
