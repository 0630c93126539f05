package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// Keys holds the names of metadata and user-info entries written into
// every event.
type Keys struct {
	File        string `toml:"file"`
	Function    string `toml:"function"`
	Line        string `toml:"line"`
	AppVersion  string `toml:"app_version"`
	OSVersion   string `toml:"os_version"`
	Device      string `toml:"device"`
	LogType     string `toml:"log_type"`
	ErrorDomain string `toml:"error_domain"`
	ErrorCode   string `toml:"error_code"`
}

// Events controls how log calls become events.
type Events struct {
	// Policy is "single" (one event per call, whole cause chain folded in)
	// or "multiple" (one event per independent error of an aggregate).
	Policy          string         `toml:"policy"`
	DefaultUserInfo map[string]any `toml:"default_user_info"`
}

// Console configures the console sink.
type Console struct {
	Enabled bool   `toml:"enabled"`
	Pretty  bool   `toml:"pretty"`
	Color   string `toml:"color"` // auto, always, never
}

// File configures the NDJSON file sink.
type File struct {
	Enabled       bool   `toml:"enabled"`
	Path          string `toml:"path"`
	MaxSizeBytes  int64  `toml:"max_size_bytes"`
	SyncEachWrite bool   `toml:"sync_each_write"`
}

// Network configures the batched HTTP sink.
type Network struct {
	Enabled              bool              `toml:"enabled"`
	URL                  string            `toml:"url"`
	Headers              map[string]string `toml:"headers"`
	TimeoutSeconds       int               `toml:"timeout_seconds"`
	FlushIntervalSeconds int               `toml:"flush_interval_seconds"`
	Compression          string            `toml:"compression"` // none, gzip or zstd
}

// Platform overrides the detected platform strings. Empty values fall back
// to detection.
type Platform struct {
	AppVersion string `toml:"app_version"`
	OSVersion  string `toml:"os_version"`
	Device     string `toml:"device"`
}

// Logging configures timber's own diagnostic output.
type Logging struct {
	Level  string `toml:"level"`
	Format string `toml:"format"` // text or json
}

// Config holds all timber configuration.
//
// Sections:
//   - Keys: metadata and user-info key names
//   - Events: event policy and default user info
//   - Console, File, Network: sink settings and enable flags
//   - Platform: static overrides for app/OS/device strings
//   - Logging: diagnostic log level and format
type Config struct {
	Keys     Keys     `toml:"keys"`
	Events   Events   `toml:"events"`
	Console  Console  `toml:"console"`
	File     File     `toml:"file"`
	Network  Network  `toml:"network"`
	Platform Platform `toml:"platform"`
	Logging  Logging  `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return ExpandPath(defaultConfigPath)
}

// Load locates and parses a configuration file, applies environment
// overrides, and validates the result. A missing file is not an error;
// defaults are used. It returns the resolved path and whether it existed.
func Load(path string, opts ...ValidateOption) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(opts...); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

// Parse decodes TOML data over the defaults, then normalizes and validates
// it. Environment overrides are not applied.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Normalize(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// WriteSample writes the default configuration as TOML to path.
func WriteSample(path string) error {
	data, err := toml.Marshal(Default())
	if err != nil {
		return fmt.Errorf("encode sample config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := ExpandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := ExpandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("timber.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// ExpandPath resolves a leading "~" to the user's home directory and
// returns an absolute path.
func ExpandPath(path string) (string, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return "", nil
	}
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		path = filepath.Join(home, strings.TrimPrefix(path, "~"))
	}
	return filepath.Abs(path)
}
