package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Config holds the application configuration. It carries runner and
// logging knobs only; the probe's allocation size and hold duration
// come from positional arguments and fixed defaults, never from here.
type Config struct {
	LogLevel   string `mapstructure:"log_level"`
	ReportFile string `mapstructure:"report_file"` // empty disables run recording

	// Defaults for the verify command's child ceilings.
	VerifyLimit        string        `mapstructure:"verify_limit"`         // cgroup memory.max, e.g. "64M"
	VerifyAddressSpace string        `mapstructure:"verify_address_space"` // RLIMIT_AS, e.g. "3G"
	VerifyTimeout      time.Duration `mapstructure:"verify_timeout"`
}

// LoadConfig loads configuration from file and environment variables
func LoadConfig() (*Config, error) {
	// Set defaults
	viper.SetDefault("log_level", "info")
	viper.SetDefault("report_file", "")
	viper.SetDefault("verify_limit", "64M")
	viper.SetDefault("verify_address_space", "")
	viper.SetDefault("verify_timeout", 2*time.Minute)

	// Set config file location
	configDir := filepath.Join(getHomeDir(), ".memprobe")
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(configDir)

	// Read config file (ignore error if file doesn't exist)
	_ = viper.ReadInConfig() // nolint:errcheck // config file is optional

	// Override with environment variables
	viper.SetEnvPrefix("MEMPROBE")
	viper.AutomaticEnv()

	// Map env var names to config keys (errors are unlikely and safe to ignore)
	_ = viper.BindEnv("log_level", "MEMPROBE_LOG_LEVEL")                       // nolint:errcheck // errors are unlikely here
	_ = viper.BindEnv("report_file", "MEMPROBE_REPORT_FILE")                   // nolint:errcheck // errors are unlikely here
	_ = viper.BindEnv("verify_limit", "MEMPROBE_VERIFY_LIMIT")                 // nolint:errcheck // errors are unlikely here
	_ = viper.BindEnv("verify_address_space", "MEMPROBE_VERIFY_ADDRESS_SPACE") // nolint:errcheck // errors are unlikely here
	_ = viper.BindEnv("verify_timeout", "MEMPROBE_VERIFY_TIMEOUT")             // nolint:errcheck // errors are unlikely here

	// Unmarshal into Config struct
	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	// Expand ~ in paths
	cfg.ReportFile = expandPath(cfg.ReportFile)

	return &cfg, nil
}

// getHomeDir returns the user's home directory
func getHomeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}

// expandPath expands ~ to home directory
func expandPath(path string) string {
	if path == "" {
		return path
	}
	if path[0] == '~' {
		home := getHomeDir()
		return filepath.Join(home, path[1:])
	}
	return path
}
