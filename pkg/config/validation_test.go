package config

import (
	"strings"
	"testing"
)

func TestValidate_ValidConfig(t *testing.T) {
	cfg := GetDefaultConfig()

	err := Validate(cfg)
	if err != nil {
		t.Errorf("Expected valid config to pass validation, got error: %v", err)
	}
}

func TestValidate_InvalidLogLevel(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Logging.Level = "INVALID"

	err := Validate(cfg)
	if err == nil {
		t.Fatal("Expected validation error for invalid log level")
	}
	if !strings.Contains(err.Error(), "oneof") {
		t.Errorf("Expected 'oneof' validation error, got: %v", err)
	}
}

func TestValidate_InvalidLogFormat(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Logging.Format = "xml"

	err := Validate(cfg)
	if err == nil {
		t.Fatal("Expected validation error for invalid log format")
	}
}

func TestValidate_InvalidDeviceType(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Devices[0].Type = "floppy"

	err := Validate(cfg)
	if err == nil {
		t.Fatal("Expected validation error for invalid device type")
	}
	if !strings.Contains(err.Error(), "Devices[0].Type") {
		t.Errorf("Expected error to name the device field, got: %v", err)
	}
}

func TestValidate_EmptyDeviceName(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Devices[0].Name = ""

	err := Validate(cfg)
	if err == nil {
		t.Fatal("Expected validation error for empty device name")
	}
	if !strings.Contains(err.Error(), "required") {
		t.Errorf("Expected 'required' validation error, got: %v", err)
	}
}

func TestValidate_NoDevices(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Devices = nil

	err := Validate(cfg)
	if err == nil {
		t.Fatal("Expected validation error for no devices")
	}
	if !strings.Contains(err.Error(), "at least one device") {
		t.Errorf("Expected 'at least one device' error, got: %v", err)
	}
}

func TestValidate_DuplicateDeviceNames(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Devices = append(cfg.Devices, DeviceConfig{Name: "fs0", Type: "memory"})

	err := Validate(cfg)
	if err == nil {
		t.Fatal("Expected validation error for duplicate device names")
	}
	if !strings.Contains(err.Error(), "duplicate") {
		t.Errorf("Expected 'duplicate' error, got: %v", err)
	}
}

func TestValidate_UnknownBootDevice(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Boot.ImageDevice = "usb0"

	err := Validate(cfg)
	if err == nil {
		t.Fatal("Expected validation error for unknown boot device")
	}
	if !strings.Contains(err.Error(), "boot.image_device") {
		t.Errorf("Expected boot.image_device error, got: %v", err)
	}
}

func TestValidate_BootDeviceWithoutFileSystem(t *testing.T) {
	// A boot device without a file system is legal; resolution falls back.
	cfg := GetDefaultConfig()
	cfg.Devices = append(cfg.Devices, DeviceConfig{Name: "pxe0", Type: "none"})
	cfg.Boot.ImageDevice = "pxe0"

	if err := Validate(cfg); err != nil {
		t.Errorf("Expected config to pass validation, got error: %v", err)
	}
}

func TestValidate_BufferLimitTooSmall(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Limits.MaxBufferBytes = 1024

	err := Validate(cfg)
	if err == nil {
		t.Fatal("Expected validation error for small buffer limit")
	}
	if !strings.Contains(err.Error(), "gte") {
		t.Errorf("Expected 'gte' validation error, got: %v", err)
	}
}

func TestValidate_LogLevelNormalization(t *testing.T) {
	testCases := []string{"debug", "INFO", "Warn", "error"}

	for _, level := range testCases {
		t.Run(level, func(t *testing.T) {
			cfg := &Config{Logging: LoggingConfig{Level: level}}
			ApplyDefaults(cfg)

			if err := Validate(cfg); err != nil {
				t.Errorf("Expected level %q to validate after normalization, got: %v", level, err)
			}
		})
	}
}
