// Package config loads timber's settings from a TOML file and TIMBER_*
// environment variables.
//
// Resolution order: built-in defaults, then the file (explicit path,
// ~/.config/timber/config.toml, or ./timber.toml), then the environment.
// The result is validated before use; an invalid configuration yields a
// *ConfigurationError and must stop the pipeline from starting.
package config
