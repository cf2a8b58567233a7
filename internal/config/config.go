package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"

	"github.com/bloomworks/livebus/internal/channel"
	"github.com/bloomworks/livebus/internal/conflict"
	"github.com/bloomworks/livebus/internal/coordinator"
)

// Config represents the complete live bus configuration
type Config struct {
	Channels    []channel.Config   `mapstructure:"channels"`
	Coordinator coordinator.Config `mapstructure:"coordinator"`
	Conflict    ConflictConfig     `mapstructure:"conflict"`
	Registry    RegistryConfig     `mapstructure:"registry"`
	Logging     LoggingConfig      `mapstructure:"logging"`
	Monitor     MonitorConfig      `mapstructure:"monitor"`
}

// ConflictConfig wraps the engine config with the sweep schedule.
type ConflictConfig struct {
	conflict.Config `mapstructure:",squash"`

	// SweepInterval is how often the timeout sweep runs (default: 30s)
	SweepInterval time.Duration `mapstructure:"sweep_interval"`
}

// RegistryConfig controls the channel registry
type RegistryConfig struct {
	// Staleness is how long a channel may go without accepted traffic
	// before health checks flag it (default: 15m)
	Staleness time.Duration `mapstructure:"staleness"`

	// PruneInterval is how often expired messages are swept out of
	// channel history buffers (default: 1m)
	PruneInterval time.Duration `mapstructure:"prune_interval"`
}

// LoggingConfig controls structured logging behavior
type LoggingConfig struct {
	// Enabled controls whether file logging is enabled (default: true)
	Enabled bool `mapstructure:"enabled"`
	// Level is the log level: "debug", "info", "warn", "error" (default: "info")
	Level string `mapstructure:"level"`
	// Dir is the log directory. Empty logs to stderr.
	Dir string `mapstructure:"dir"`
	// MaxSizeMB is the maximum log file size in megabytes before rotation (default: 10)
	MaxSizeMB int `mapstructure:"max_size_mb"`
	// MaxBackups is the number of backup log files to keep (default: 3)
	MaxBackups int `mapstructure:"max_backups"`
}

// MonitorConfig controls the terminal monitor
type MonitorConfig struct {
	// RefreshInterval is how often the monitor view refreshes (default: 1s)
	RefreshInterval time.Duration `mapstructure:"refresh_interval"`
}

// Default returns a Config with sensible default values
func Default() *Config {
	return &Config{
		Channels:    []channel.Config{},
		Coordinator: coordinator.Config{}.Normalize(),
		Conflict: ConflictConfig{
			Config:        conflict.Config{}.Normalize(),
			SweepInterval: 30 * time.Second,
		},
		Registry: RegistryConfig{
			Staleness:     15 * time.Minute,
			PruneInterval: time.Minute,
		},
		Logging: LoggingConfig{
			Enabled:    true,
			Level:      "info",
			Dir:        "",
			MaxSizeMB:  10,
			MaxBackups: 3,
		},
		Monitor: MonitorConfig{
			RefreshInterval: time.Second,
		},
	}
}

// SetDefaults registers default values with viper
func SetDefaults() {
	defaults := Default()

	// Coordinator defaults
	viper.SetDefault("coordinator.tick_interval", defaults.Coordinator.TickInterval)
	viper.SetDefault("coordinator.max_events", defaults.Coordinator.MaxEvents)
	viper.SetDefault("coordinator.enable_global_sync", true)
	viper.SetDefault("coordinator.capacity_threshold", defaults.Coordinator.CapacityThreshold)

	// Conflict defaults
	viper.SetDefault("conflict.tolerance", defaults.Conflict.Tolerance)
	viper.SetDefault("conflict.default_strategy", string(defaults.Conflict.DefaultStrategy))
	viper.SetDefault("conflict.resolution_timeout", defaults.Conflict.ResolutionTimeout)
	viper.SetDefault("conflict.consensus_fraction", defaults.Conflict.ConsensusFraction)
	viper.SetDefault("conflict.sweep_interval", defaults.Conflict.SweepInterval)

	// Registry defaults
	viper.SetDefault("registry.staleness", defaults.Registry.Staleness)
	viper.SetDefault("registry.prune_interval", defaults.Registry.PruneInterval)

	// Logging defaults
	viper.SetDefault("logging.enabled", defaults.Logging.Enabled)
	viper.SetDefault("logging.level", defaults.Logging.Level)
	viper.SetDefault("logging.dir", defaults.Logging.Dir)
	viper.SetDefault("logging.max_size_mb", defaults.Logging.MaxSizeMB)
	viper.SetDefault("logging.max_backups", defaults.Logging.MaxBackups)

	// Monitor defaults
	viper.SetDefault("monitor.refresh_interval", defaults.Monitor.RefreshInterval)
}

// Load reads the configuration from viper into a Config struct and validates it
func Load() (*Config, error) {
	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, ValidationErrors(errs)
	}

	return &cfg, nil
}

// Get returns the current configuration (convenience function)
func Get() *Config {
	cfg, err := Load()
	if err != nil {
		// Fall back to defaults if unmarshaling fails
		return Default()
	}
	return cfg
}

// ConfigDir returns the path to the user's config directory
func ConfigDir() string {
	// Check XDG_CONFIG_HOME first
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "livebus")
	}
	// Fall back to ~/.config/livebus
	home, err := os.UserHomeDir()
	if err != nil {
		return ".livebus"
	}
	return filepath.Join(home, ".config", "livebus")
}

// ConfigFile returns the path to the config file
func ConfigFile() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}
