package config

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/crimson-sun/timber/internal/compose"
)

// ConfigurationError reports an invalid setting. A pipeline never starts
// with a configuration that fails validation.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("config: %s: %s", e.Field, e.Reason)
}

// ValidateOption relaxes a rule of Validate.
type ValidateOption func(*validation)

type validation struct {
	externalTransport bool
}

// ExternalTransport tells Validate that network events are delivered by a
// caller-supplied transport, so network.url is not required.
func ExternalTransport() ValidateOption {
	return func(v *validation) { v.externalTransport = true }
}

// Validate ensures the configuration is usable.
func (c *Config) Validate(opts ...ValidateOption) error {
	var v validation
	for _, opt := range opts {
		opt(&v)
	}
	if err := c.validateKeys(); err != nil {
		return err
	}
	if err := c.validateEvents(); err != nil {
		return err
	}
	if err := c.validateConsole(); err != nil {
		return err
	}
	if err := c.validateFile(); err != nil {
		return err
	}
	if err := c.validateNetwork(v); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateKeys() error {
	fields := []struct {
		name  string
		value string
	}{
		{"keys.file", c.Keys.File},
		{"keys.function", c.Keys.Function},
		{"keys.line", c.Keys.Line},
		{"keys.app_version", c.Keys.AppVersion},
		{"keys.os_version", c.Keys.OSVersion},
		{"keys.device", c.Keys.Device},
		{"keys.log_type", c.Keys.LogType},
		{"keys.error_domain", c.Keys.ErrorDomain},
		{"keys.error_code", c.Keys.ErrorCode},
	}
	seen := make(map[string]string, len(fields))
	for _, f := range fields {
		if strings.TrimSpace(f.value) == "" {
			return &ConfigurationError{Field: f.name, Reason: "must not be empty"}
		}
		if prev, ok := seen[f.value]; ok {
			return &ConfigurationError{Field: f.name, Reason: fmt.Sprintf("duplicates %s (%q)", prev, f.value)}
		}
		seen[f.value] = f.name
	}
	return nil
}

func (c *Config) validateEvents() error {
	if _, err := compose.ParseEventPolicy(c.Events.Policy); err != nil {
		return &ConfigurationError{Field: "events.policy", Reason: fmt.Sprintf("must be single or multiple, got %q", c.Events.Policy)}
	}
	return nil
}

func (c *Config) validateConsole() error {
	switch c.Console.Color {
	case "auto", "always", "never":
		return nil
	default:
		return &ConfigurationError{Field: "console.color", Reason: fmt.Sprintf("must be auto, always or never, got %q", c.Console.Color)}
	}
}

func (c *Config) validateFile() error {
	if !c.File.Enabled {
		return nil
	}
	if c.File.Path == "" {
		return &ConfigurationError{Field: "file.path", Reason: "must be set when file.enabled is true"}
	}
	if c.File.MaxSizeBytes < 0 {
		return &ConfigurationError{Field: "file.max_size_bytes", Reason: "must not be negative"}
	}
	return nil
}

func (c *Config) validateNetwork(v validation) error {
	if c.Network.FlushIntervalSeconds <= 0 {
		return &ConfigurationError{Field: "network.flush_interval_seconds", Reason: "must be positive"}
	}
	if c.Network.TimeoutSeconds <= 0 {
		return &ConfigurationError{Field: "network.timeout_seconds", Reason: "must be positive"}
	}
	switch c.Network.Compression {
	case "none", "gzip", "zstd":
	default:
		return &ConfigurationError{Field: "network.compression", Reason: fmt.Sprintf("must be none, gzip or zstd, got %q", c.Network.Compression)}
	}
	if !c.Network.Enabled || (v.externalTransport && c.Network.URL == "") {
		return nil
	}
	if c.Network.URL == "" {
		return &ConfigurationError{Field: "network.url", Reason: "must be set when network.enabled is true"}
	}
	u, err := url.Parse(c.Network.URL)
	if err != nil {
		return &ConfigurationError{Field: "network.url", Reason: err.Error()}
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return &ConfigurationError{Field: "network.url", Reason: fmt.Sprintf("scheme must be http or https, got %q", u.Scheme)}
	}
	if u.Host == "" {
		return &ConfigurationError{Field: "network.url", Reason: "missing host"}
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "text", "json":
		return nil
	default:
		return &ConfigurationError{Field: "logging.format", Reason: fmt.Sprintf("must be text or json, got %q", c.Logging.Format)}
	}
}
