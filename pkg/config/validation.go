package config

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

// validate is the singleton validator instance
var validate *validator.Validate

func init() {
	validate = validator.New()
}

// Validate validates the configuration using struct tags and custom rules.
//
// Note: Log level normalization is handled in ApplyDefaults, not here.
// Validation accepts both uppercase and lowercase log levels.
//
// Returns an error describing validation failures.
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		return formatValidationError(err)
	}

	return validateCustomRules(cfg)
}

// validateCustomRules performs custom validation beyond struct tags.
func validateCustomRules(cfg *Config) error {
	if len(cfg.Devices) == 0 {
		return fmt.Errorf("devices: at least one device must be configured")
	}

	names := make(map[string]bool)
	for i, dev := range cfg.Devices {
		if names[dev.Name] {
			return fmt.Errorf("devices[%d]: duplicate device name %q", i, dev.Name)
		}
		names[dev.Name] = true
	}

	if cfg.Boot.ImageDevice != "" && !names[cfg.Boot.ImageDevice] {
		return fmt.Errorf("boot.image_device: %q is not a configured device", cfg.Boot.ImageDevice)
	}

	return nil
}

// formatValidationError converts validator errors into user-friendly messages.
func formatValidationError(err error) error {
	if validationErrs, ok := err.(validator.ValidationErrors); ok {
		if len(validationErrs) > 0 {
			e := validationErrs[0]
			return fmt.Errorf("%s: validation failed on '%s' tag (value: %v)",
				e.Namespace(), e.Tag(), e.Value())
		}
	}
	return err
}
