package timber

import "github.com/crimson-sun/timber/internal/config"

// Config is the full timber configuration. See DefaultConfig.
type Config = config.Config

// DefaultConfig returns the configuration used when none is given: console
// on, file and network off, single event policy, 5s flush interval.
func DefaultConfig() Config {
	return config.Default()
}

// LoadConfig reads a TOML configuration file, applies TIMBER_* environment
// overrides and validates the result. An empty path searches the default
// locations; a missing file yields the defaults.
func LoadConfig(path string) (*Config, error) {
	cfg, _, _, err := config.Load(path)
	return cfg, err
}
