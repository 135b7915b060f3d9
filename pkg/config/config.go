package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Config represents the complete fstool configuration.
//
// This structure captures all configurable aspects of the tool:
//   - Logging configuration
//   - Boot context (which device the tool was loaded from)
//   - Resource limits for transfer and read buffers
//   - Device definitions (one volume backend per device)
//
// Configuration sources (in order of precedence):
//  1. CLI flags (highest priority, applied by the caller)
//  2. Environment variables (FSTOOL_*)
//  3. Configuration file (YAML)
//  4. Default values (lowest priority)
//
// Device Configuration Pattern:
// Each volume backend defines its own configuration type. A device entry
// carries type-specific sections (e.g. filesystem, badger) and only the
// section matching its type is decoded by the factories.
type Config struct {
	// Logging controls log output behavior
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`

	// Boot describes how the tool was started
	Boot BootConfig `mapstructure:"boot" yaml:"boot"`

	// Limits bounds the memory used by file operations
	Limits LimitsConfig `mapstructure:"limits" yaml:"limits"`

	// Devices lists the devices visible to the tool, in fallback order
	Devices []DeviceConfig `mapstructure:"devices" yaml:"devices" validate:"dive"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	// Level is the minimum log level to output
	// Valid values: DEBUG, INFO, WARN, ERROR (case-insensitive, normalized to uppercase)
	Level string `mapstructure:"level" yaml:"level" validate:"required,oneof=DEBUG INFO WARN ERROR debug info warn error"`

	// Format specifies the log output format
	// Valid values: text, json
	Format string `mapstructure:"format" yaml:"format" validate:"required,oneof=text json"`

	// Output specifies where logs are written
	// Valid values: stdout, stderr, or a file path. Defaults to stderr since
	// stdout carries the interactive display.
	Output string `mapstructure:"output" yaml:"output" validate:"required"`
}

// BootConfig names the device the tool was loaded from.
type BootConfig struct {
	// ImageDevice is tried first when resolving the root volume. It may be
	// empty or name a device without a file system.
	ImageDevice string `mapstructure:"image_device" yaml:"image_device"`
}

// LimitsConfig bounds buffer usage.
type LimitsConfig struct {
	// MaxBufferBytes caps the bytes held in transfer and read buffers at
	// once. Must cover at least one transfer chunk.
	MaxBufferBytes int64 `mapstructure:"max_buffer_bytes" yaml:"max_buffer_bytes" validate:"gte=4096"`
}

// DeviceConfig defines a single device.
//
// The Type field determines which volume backend is used.
// Only the corresponding type-specific configuration section is used.
type DeviceConfig struct {
	// Name identifies the device (e.g. "fs0")
	Name string `mapstructure:"name" yaml:"name" validate:"required"`

	// Type specifies which volume backend the device exposes
	// Valid values: memory, filesystem, badger, s3, none
	// "none" registers a device without a file-system service.
	Type string `mapstructure:"type" yaml:"type" validate:"required,oneof=memory filesystem badger s3 none"`

	// Memory contains memory-specific configuration
	// Only used when Type = "memory"
	Memory map[string]any `mapstructure:"memory" yaml:"memory,omitempty"`

	// Filesystem contains filesystem-specific configuration
	// Only used when Type = "filesystem"
	Filesystem map[string]any `mapstructure:"filesystem" yaml:"filesystem,omitempty"`

	// Badger contains BadgerDB-specific configuration
	// Only used when Type = "badger"
	Badger map[string]any `mapstructure:"badger" yaml:"badger,omitempty"`

	// S3 contains S3-specific configuration
	// Only used when Type = "s3"
	S3 map[string]any `mapstructure:"s3" yaml:"s3,omitempty"`
}

// envKeys are the scalar settings that can be set from the environment
// even when the config file does not mention them.
var envKeys = []string{
	"logging.level",
	"logging.format",
	"logging.output",
	"boot.image_device",
	"limits.max_buffer_bytes",
}

// Load loads configuration from file, environment, and defaults.
//
// Configuration precedence (highest to lowest):
//  1. Environment variables (FSTOOL_*)
//  2. Configuration file
//  3. Default values
//
// Parameters:
//   - configPath: Path to config file (empty string uses default location)
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: Configuration loading or validation error
func Load(configPath string) (*Config, error) {
	v := viper.New()

	if err := setupViper(v, configPath); err != nil {
		return nil, err
	}

	if err := readConfigFile(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	ApplyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// setupViper configures viper with environment variables and config file settings.
func setupViper(v *viper.Viper, configPath string) error {
	// Environment variables use FSTOOL_ prefix and underscores
	// Example: FSTOOL_LOGGING_LEVEL=DEBUG
	v.SetEnvPrefix("FSTOOL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for _, key := range envKeys {
		if err := v.BindEnv(key); err != nil {
			return fmt.Errorf("failed to bind environment for %s: %w", key, err)
		}
	}

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		// Default location: $XDG_CONFIG_HOME/fstool/config.yaml
		v.AddConfigPath(getConfigDir())
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
	return nil
}

// readConfigFile reads the configuration file if it exists.
func readConfigFile(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return nil
		}
		// An explicit path that does not exist is treated like a missing
		// default file.
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}

	return nil
}

// getConfigDir returns the configuration directory path.
//
// Uses XDG_CONFIG_HOME if set, otherwise ~/.config, or falls back to current
// directory (.) if home directory cannot be determined.
func getConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "fstool")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}

	return filepath.Join(home, ".config", "fstool")
}

// GetDefaultConfigPath returns the default configuration file path.
func GetDefaultConfigPath() string {
	return filepath.Join(getConfigDir(), "config.yaml")
}

// ConfigExists checks if a config file exists at the default location.
func ConfigExists() bool {
	_, err := os.Stat(GetDefaultConfigPath())
	return err == nil
}
