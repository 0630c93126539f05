package config

const (
	defaultConfigPath           = "~/.config/timber/config.toml"
	defaultEventPolicy          = "single"
	defaultConsoleColor         = "auto"
	defaultFilePath             = "~/.local/share/timber/events.jsonl"
	defaultNetworkTimeout       = 10
	defaultFlushIntervalSeconds = 5
	defaultCompression          = "none"
	defaultLogLevel             = "info"
	defaultLogFormat            = "text"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Keys: Keys{
			File:        "file",
			Function:    "function",
			Line:        "line",
			AppVersion:  "app_version",
			OSVersion:   "ios_version",
			Device:      "ios_device",
			LogType:     "log_type",
			ErrorDomain: "error_domain",
			ErrorCode:   "error_code",
		},
		Events: Events{
			Policy: defaultEventPolicy,
		},
		Console: Console{
			Enabled: true,
			Color:   defaultConsoleColor,
		},
		File: File{
			Path: defaultFilePath,
		},
		Network: Network{
			TimeoutSeconds:       defaultNetworkTimeout,
			FlushIntervalSeconds: defaultFlushIntervalSeconds,
			Compression:          defaultCompression,
		},
		Logging: Logging{
			Level:  defaultLogLevel,
			Format: defaultLogFormat,
		},
	}
}
