package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/crimson-sun/timber/internal/config"
)

func newConfigCommand(ctx *commandContext) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration utilities",
	}

	configCmd.AddCommand(newConfigInitCommand())
	configCmd.AddCommand(newConfigValidateCommand(ctx))
	configCmd.AddCommand(newConfigShowCommand(ctx))

	return configCmd
}

func newConfigInitCommand() *cobra.Command {
	var targetPath string
	var overwrite bool

	cmd := &cobra.Command{
		Use:         "init",
		Short:       "Create a sample configuration file",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			target := strings.TrimSpace(targetPath)
			if target == "" {
				defaultPath, err := config.DefaultConfigPath()
				if err != nil {
					return fmt.Errorf("determine default config path: %w", err)
				}
				target = defaultPath
			} else {
				expanded, err := config.ExpandPath(target)
				if err != nil {
					return fmt.Errorf("resolve config path: %w", err)
				}
				target = expanded
			}

			dir := filepath.Dir(target)
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return fmt.Errorf("create config directory %q: %w", dir, err)
			}

			if !overwrite {
				if _, err := os.Stat(target); err == nil {
					return fmt.Errorf("config file already exists at %s (use --overwrite to replace it)", target)
				} else if !os.IsNotExist(err) {
					return fmt.Errorf("check config path: %w", err)
				}
			}

			if err := config.WriteSample(target); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Wrote sample configuration to %s\n", target)
			fmt.Fprintln(out, "Set network.url and network.enabled (or export TIMBER_NETWORK_URL) to send events over HTTP.")
			return nil
		},
	}

	cmd.Flags().StringVarP(&targetPath, "path", "p", "", "Destination for the configuration file")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Overwrite existing configuration if present")
	return cmd
}

func newConfigValidateCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate configuration file",
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := ctx.ensureConfig(); err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Config path: %s\n", ctx.configPath)
			if !ctx.configSeen {
				fmt.Fprintln(out, "Config file did not exist; defaults were used")
			}
			fmt.Fprintln(out, "Configuration valid")
			return nil
		},
	}
}

func newConfigShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the effective configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"Section", "Setting", "Value"}, configRows(cfg)))
			return nil
		},
	}
}

func configRows(cfg *config.Config) [][]string {
	rows := [][]string{
		{"events", "policy", cfg.Events.Policy},
		{"events", "default user info", formatMap(cfg.Events.DefaultUserInfo)},
		{"console", "enabled", yesNo(cfg.Console.Enabled)},
		{"console", "pretty", yesNo(cfg.Console.Pretty)},
		{"console", "color", cfg.Console.Color},
		{"file", "enabled", yesNo(cfg.File.Enabled)},
		{"file", "path", cfg.File.Path},
		{"file", "max size", formatSize(cfg.File.MaxSizeBytes)},
		{"network", "enabled", yesNo(cfg.Network.Enabled)},
		{"network", "url", orNone(cfg.Network.URL)},
		{"network", "headers", formatHeaderNames(cfg.Network.Headers)},
		{"network", "timeout", cfg.NetworkTimeout().String()},
		{"network", "compression", cfg.Network.Compression},
		{"network", "flush interval", cfg.FlushInterval().String()},
		{"platform", "app version", orDetected(cfg.Platform.AppVersion)},
		{"platform", "os version", orDetected(cfg.Platform.OSVersion)},
		{"platform", "device", orDetected(cfg.Platform.Device)},
		{"keys", "metadata", strings.Join([]string{
			cfg.Keys.File, cfg.Keys.Function, cfg.Keys.Line,
			cfg.Keys.AppVersion, cfg.Keys.OSVersion, cfg.Keys.Device,
		}, ", ")},
		{"keys", "user info", strings.Join([]string{cfg.Keys.LogType, cfg.Keys.ErrorDomain, cfg.Keys.ErrorCode}, ", ")},
		{"logging", "level", cfg.Logging.Level},
		{"logging", "format", cfg.Logging.Format},
	}
	return rows
}

func formatMap(m map[string]any) string {
	if len(m) == 0 {
		return "none"
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s=%v", k, m[k])
	}
	return strings.Join(parts, ", ")
}

// formatHeaderNames lists header names only; values may hold credentials.
func formatHeaderNames(h map[string]string) string {
	if len(h) == 0 {
		return "none"
	}
	names := make([]string, 0, len(h))
	for k := range h {
		names = append(names, k)
	}
	sort.Strings(names)
	return strings.Join(names, ", ")
}

func formatSize(n int64) string {
	if n <= 0 {
		return "no rotation"
	}
	return strconv.FormatInt(n, 10) + " bytes"
}

func orNone(s string) string {
	if s == "" {
		return "none"
	}
	return s
}

func orDetected(s string) string {
	if s == "" {
		return "detected"
	}
	return s
}
