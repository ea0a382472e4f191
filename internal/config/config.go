package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/spf13/viper"
)

// Config holds all procsight configuration
type Config struct {
	// Monitoring defaults
	WatchInterval   time.Duration `mapstructure:"watch_interval"`
	SystemInterval  time.Duration `mapstructure:"system_interval"`
	SystemDuration  time.Duration `mapstructure:"system_duration"`
	PerflogInterval time.Duration `mapstructure:"perflog_interval"`
	PerflogDuration time.Duration `mapstructure:"perflog_duration"`

	// Service backend subprocess timeouts
	ServiceQueryTimeout  time.Duration `mapstructure:"service_query_timeout"`
	ServiceActionTimeout time.Duration `mapstructure:"service_action_timeout"`

	// Display
	TopCount int  `mapstructure:"top_count"`
	NoColor  bool `mapstructure:"no_color"`

	// Logging
	LogLevel string `mapstructure:"log_level"`
	LogFile  string `mapstructure:"log_file"`
}

// DefaultConfig returns configuration with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		WatchInterval:        time.Second,
		SystemInterval:       2 * time.Second,
		SystemDuration:       60 * time.Second,
		PerflogInterval:      60 * time.Second,
		PerflogDuration:      time.Hour,
		ServiceQueryTimeout:  10 * time.Second,
		ServiceActionTimeout: 30 * time.Second,
		TopCount:             20,
		LogLevel:             "info",
		LogFile:              filepath.Join(GetLogDir(), "procsight.log"),
	}
}

// Load reads configuration from file and environment
func Load() (*Config, error) {
	cfg := DefaultConfig()

	viper.SetConfigName("procsight")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(getConfigDir())
	viper.AddConfigPath(".")

	viper.SetEnvPrefix("PROCSIGHT")
	viper.AutomaticEnv()

	// Read config file (ignore if not found)
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config: %w", err)
		}
	}

	if err := viper.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	return cfg, nil
}

// getConfigDir returns the platform-specific config directory
func getConfigDir() string {
	switch runtime.GOOS {
	case "windows":
		return filepath.Join(os.Getenv("ProgramData"), "ProcSight")
	case "darwin":
		return "/Library/Application Support/ProcSight"
	default: // Linux and others
		return "/etc/procsight"
	}
}

// GetLogDir returns the platform-specific log directory
func GetLogDir() string {
	switch runtime.GOOS {
	case "windows":
		return filepath.Join(os.Getenv("ProgramData"), "ProcSight", "logs")
	case "darwin":
		return "/Library/Logs/ProcSight"
	default:
		return "/var/log/procsight"
	}
}
