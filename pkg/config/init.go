package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// InitConfig writes a default configuration file to the default location.
//
// Returns the path of the written file. Fails if the file already exists
// unless force is set.
func InitConfig(force bool) (string, error) {
	configPath := GetDefaultConfigPath()
	if err := InitConfigToPath(configPath, force); err != nil {
		return "", err
	}
	return configPath, nil
}

// InitConfigToPath writes a default configuration file to configPath,
// creating parent directories as needed.
func InitConfigToPath(configPath string, force bool) error {
	if !force {
		if _, err := os.Stat(configPath); err == nil {
			return fmt.Errorf("config file already exists at %s (use --force to overwrite)", configPath)
		}
	}

	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	content, err := generateYAMLWithComments(GetDefaultConfig())
	if err != nil {
		return err
	}

	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// generateYAMLWithComments renders cfg as YAML preceded by a descriptive header.
func generateYAMLWithComments(cfg *Config) (string, error) {
	body, err := yaml.Marshal(cfg)
	if err != nil {
		return "", fmt.Errorf("failed to marshal config: %w", err)
	}

	var b strings.Builder
	b.WriteString("# fstool Configuration File\n")
	b.WriteString("#\n")
	b.WriteString("# Environment variables override these values, e.g.\n")
	b.WriteString("#   FSTOOL_LOGGING_LEVEL=DEBUG\n")
	b.WriteString("#   FSTOOL_BOOT_IMAGE_DEVICE=fs0\n")
	b.WriteString("#\n")
	b.WriteString("# Device types: memory, filesystem, badger, s3, none.\n")
	b.WriteString("# Devices are tried in order when the boot device has no usable volume.\n")
	b.WriteString("\n")
	b.Write(body)

	return b.String(), nil
}
