// FILE: evsink/src/internal/config/loader.go
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"evsink/src/internal/core"

	lconfig "github.com/lixenwraith/config"
)

const envPrefix = "EVSINK_"

func defaults() *Config {
	return &Config{
		Logging: DefaultLogConfig(),
		Source: SourceConfig{
			Type:         "nixjson",
			Path:         "-",
			MaxLineBytes: 1 << 20,
		},
		Queue: QueueConfig{
			InitialCapacity: core.DefaultQueueCapacity,
			WarnDepth:       core.DefaultQueueWarnDepth,
		},
		Reporter: ReporterConfig{
			BatchSize:         core.DefaultBatchSize,
			StatusIntervalMS:  core.DefaultStatusInterval,
			ShutdownTimeoutMS: core.DefaultShutdownTimeout,
		},
		Sinks: []SinkConfig{
			{
				Type: "console",
				Console: &ConsoleSinkOptions{
					Target: "stdout",
					Format: "auto",
				},
			},
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Host:    "127.0.0.1",
			Port:    9464,
			Path:    "/metrics",
		},
	}
}

// Load reads configuration from defaults, the config file, environment and
// CLI arguments, in increasing order of precedence
func Load(configPath string, cliArgs []string) (*Config, error) {
	if configPath == "" {
		configPath = GetConfigPath()
	}

	cfg, err := lconfig.NewBuilder().
		WithDefaults(defaults()).
		WithEnvPrefix(envPrefix).
		WithFile(configPath).
		WithArgs(cliArgs).
		WithEnvTransform(customEnvTransform).
		WithSources(
			lconfig.SourceCLI,
			lconfig.SourceEnv,
			lconfig.SourceFile,
			lconfig.SourceDefault,
		).
		Build()

	if err != nil {
		// A missing file falls back to defaults
		if !strings.Contains(err.Error(), "not found") {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
	}

	finalConfig := &Config{}
	if err := cfg.Scan(finalConfig, ""); err != nil {
		return nil, fmt.Errorf("failed to scan config: %w", err)
	}

	return finalConfig, validateConfig(finalConfig)
}

func customEnvTransform(path string) string {
	env := strings.ReplaceAll(path, ".", "_")
	env = strings.ToUpper(env)
	env = envPrefix + env
	return env
}

// GetConfigPath resolves the config file from the environment or the user's config dir
func GetConfigPath() string {
	if configFile := os.Getenv("EVSINK_CONFIG_FILE"); configFile != "" {
		if filepath.IsAbs(configFile) {
			return configFile
		}
		if configDir := os.Getenv("EVSINK_CONFIG_DIR"); configDir != "" {
			return filepath.Join(configDir, configFile)
		}
		return configFile
	}

	if configDir := os.Getenv("EVSINK_CONFIG_DIR"); configDir != "" {
		return filepath.Join(configDir, "evsink.toml")
	}

	if homeDir, err := os.UserHomeDir(); err == nil {
		return filepath.Join(homeDir, ".config", "evsink.toml")
	}

	return "evsink.toml"
}
