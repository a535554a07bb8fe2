package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// CacheConfig mirrors cacheproxy.Configuration's tunables in a
// viper/mapstructure-friendly shape (plain seconds rather than time.Duration).
type CacheConfig struct {
	UserAgent          string `mapstructure:"user_agent"`
	SuccessTTLSeconds  int    `mapstructure:"success_ttl_seconds"`
	ErrorTTLSeconds    int    `mapstructure:"error_ttl_seconds"`
	ProbeEntriesMax    int    `mapstructure:"probe_entries_max"`
	ContentMemoryMaxMB int    `mapstructure:"content_memory_max_mb"`
}

// DetectionConfig holds the processor detection cache's TTL.
type DetectionConfig struct {
	TTLSeconds int `mapstructure:"ttl_seconds"`
}

// DefaultsConfig holds the per-operation results_max defaults used when a
// caller does not specify one explicitly.
type DefaultsConfig struct {
	ResultsMaxInventory int `mapstructure:"results_max_inventory"`
	ResultsMaxContent   int `mapstructure:"results_max_content"`
}

// ServerConfig controls the MCP tool server's transport.
type ServerConfig struct {
	Transport string `mapstructure:"transport"`
	Port      int    `mapstructure:"port"`
}

// ExtensionConfig describes one entry of the `extensions` list. Entries
// carrying a Package are rejected at load time: this rendition has no
// dynamic Go plugin loader, so only built-in processors are supported.
type ExtensionConfig struct {
	Arguments map[string]any `mapstructure:"arguments"`
	Name      string         `mapstructure:"name"`
	Package   string         `mapstructure:"package"`
	Enabled   bool           `mapstructure:"enabled"`
}

type appConfig struct {
	Cache      CacheConfig       `mapstructure:"cache"`
	Detection  DetectionConfig   `mapstructure:"detection"`
	Defaults   DefaultsConfig    `mapstructure:"defaults"`
	Server     ServerConfig      `mapstructure:"server"`
	Extensions []ExtensionConfig `mapstructure:"extensions"`
}

func defaultAppConfig() appConfig {
	return appConfig{
		Cache: CacheConfig{
			UserAgent:          "librovore/1.0 (+documentation search)",
			SuccessTTLSeconds:  300,
			ErrorTTLSeconds:    30,
			ProbeEntriesMax:    1000,
			ContentMemoryMaxMB: 32,
		},
		Detection: DetectionConfig{TTLSeconds: 3600},
		Defaults:  DefaultsConfig{ResultsMaxInventory: 5, ResultsMaxContent: 10},
		Server:    ServerConfig{Transport: "stdio", Port: 8080},
	}
}

// loadConfig loads the application configuration from an optional config
// file layered under defaults, then environment variables prefixed
// LIBROVORE_, following the precedence order defaults -> file -> env -> flags.
func loadConfig(flags *cmdFlags) (*appConfig, error) {
	v := viper.New()

	cfg := defaultAppConfig()

	v.SetDefault("cache", cfg.Cache)
	v.SetDefault("detection", cfg.Detection)
	v.SetDefault("defaults", cfg.Defaults)
	v.SetDefault("server", cfg.Server)

	if flags.ConfigPath != "" {
		v.SetConfigFile(flags.ConfigPath)

		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("failed to read config: %w", err)
			}
		}
	}

	v.SetEnvPrefix("LIBROVORE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	for _, ext := range cfg.Extensions {
		if ext.Package != "" {
			return nil, fmt.Errorf("extension %q: package-based extensions are not supported by this build", ext.Name)
		}
	}

	return &cfg, nil
}
