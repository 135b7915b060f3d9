package config

import (
	"strings"

	"github.com/marmos91/fstool/internal/bufpool"
)

const (
	// DefaultDeviceName is the name of the device created when none is configured.
	DefaultDeviceName = "fs0"

	// DefaultVolumePath is the host directory backing the default device.
	DefaultVolumePath = "/tmp/fstool-volume"
)

// ApplyDefaults sets default values for any unspecified configuration fields.
//
// This function is called after loading configuration from file and environment
// variables to fill in any missing values with sensible defaults.
//
// Default Strategy:
//   - Zero values (0, "", nil) are replaced with defaults
//   - Explicit values are preserved
//   - Backend-specific defaults are handled by the backends themselves
func ApplyDefaults(cfg *Config) {
	applyLoggingDefaults(&cfg.Logging)
	applyLimitsDefaults(&cfg.Limits)

	// Add default device if none configured
	if len(cfg.Devices) == 0 {
		cfg.Devices = []DeviceConfig{
			{
				Name: DefaultDeviceName,
				Type: "filesystem",
				Filesystem: map[string]any{
					"path":              DefaultVolumePath,
					"create_if_missing": true,
				},
			},
		}
	}

	applyDeviceDefaults(cfg.Devices)
}

// applyLoggingDefaults sets logging defaults and normalizes values.
func applyLoggingDefaults(cfg *LoggingConfig) {
	if cfg.Level == "" {
		cfg.Level = "INFO"
	}
	// Normalize log level to uppercase for consistent internal representation
	cfg.Level = strings.ToUpper(cfg.Level)

	if cfg.Format == "" {
		cfg.Format = "text"
	}
	if cfg.Output == "" {
		cfg.Output = "stderr"
	}
}

// applyLimitsDefaults sets buffer limits.
func applyLimitsDefaults(cfg *LimitsConfig) {
	if cfg.MaxBufferBytes == 0 {
		cfg.MaxBufferBytes = bufpool.DefaultBudget
	}
}

// applyDeviceDefaults normalizes device types and initializes option maps.
func applyDeviceDefaults(devices []DeviceConfig) {
	for i := range devices {
		dev := &devices[i]
		dev.Type = strings.ToLower(dev.Type)

		if dev.Memory == nil {
			dev.Memory = make(map[string]any)
		}
		if dev.Filesystem == nil {
			dev.Filesystem = make(map[string]any)
		}
		if dev.Badger == nil {
			dev.Badger = make(map[string]any)
		}
		if dev.S3 == nil {
			dev.S3 = make(map[string]any)
		}
	}
}

// GetDefaultConfig returns a configuration with all defaults applied.
func GetDefaultConfig() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	return cfg
}
