package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// applyEnv overrides file values with TIMBER_* environment variables.
func (c *Config) applyEnv() error {
	if v := os.Getenv("TIMBER_EVENT_POLICY"); v != "" {
		c.Events.Policy = v
	}
	if v := os.Getenv("TIMBER_CONSOLE_ENABLED"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return &ConfigurationError{Field: "console.enabled", Reason: fmt.Sprintf("TIMBER_CONSOLE_ENABLED: %v", err)}
		}
		c.Console.Enabled = b
	}
	if v := os.Getenv("TIMBER_FILE_PATH"); v != "" {
		c.File.Path = v
		c.File.Enabled = true
	}
	if v := os.Getenv("TIMBER_NETWORK_URL"); v != "" {
		c.Network.URL = v
	}
	if v := os.Getenv("TIMBER_NETWORK_ENABLED"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return &ConfigurationError{Field: "network.enabled", Reason: fmt.Sprintf("TIMBER_NETWORK_ENABLED: %v", err)}
		}
		c.Network.Enabled = b
	}
	if v := os.Getenv("TIMBER_FLUSH_INTERVAL"); v != "" {
		secs, err := parseSeconds(v)
		if err != nil {
			return &ConfigurationError{Field: "network.flush_interval_seconds", Reason: fmt.Sprintf("TIMBER_FLUSH_INTERVAL: %v", err)}
		}
		c.Network.FlushIntervalSeconds = secs
	}
	if v := os.Getenv("TIMBER_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	return nil
}

// parseSeconds accepts a bare integer ("10") or a duration ("10s", "1m").
func parseSeconds(v string) (int, error) {
	v = strings.TrimSpace(v)
	if n, err := strconv.Atoi(v); err == nil {
		return n, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, err
	}
	return int(d / time.Second), nil
}
