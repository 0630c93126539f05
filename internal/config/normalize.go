package config

import (
	"strings"
	"time"

	"github.com/crimson-sun/timber/internal/compose"
)

// Normalize trims and lower-cases enumerated values, rewrites the event
// policy to its canonical name, fills an empty policy, console color and
// compression, and expands the file path. Load and Parse call it;
// configurations built in code should call it before Validate.
func (c *Config) Normalize() error {
	c.Events.Policy = strings.ToLower(strings.TrimSpace(c.Events.Policy))
	if p, err := compose.ParseEventPolicy(c.Events.Policy); err == nil {
		c.Events.Policy = p.String()
	}
	c.Console.Color = strings.ToLower(strings.TrimSpace(c.Console.Color))
	if c.Console.Color == "" {
		c.Console.Color = defaultConsoleColor
	}
	c.Network.URL = strings.TrimSpace(c.Network.URL)
	c.Network.Compression = strings.ToLower(strings.TrimSpace(c.Network.Compression))
	if c.Network.Compression == "" {
		c.Network.Compression = defaultCompression
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))

	if c.File.Path != "" {
		expanded, err := ExpandPath(c.File.Path)
		if err != nil {
			return err
		}
		c.File.Path = expanded
	}
	return nil
}

// FlushInterval returns the network flush period.
func (c *Config) FlushInterval() time.Duration {
	return time.Duration(c.Network.FlushIntervalSeconds) * time.Second
}

// NetworkTimeout returns the HTTP timeout of the network sink.
func (c *Config) NetworkTimeout() time.Duration {
	return time.Duration(c.Network.TimeoutSeconds) * time.Second
}
