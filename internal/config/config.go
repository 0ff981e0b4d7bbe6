// Package config loads the YAML configuration shared by the simulate,
// reader and sweep command-line tools.
package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config is the top-level configuration document.
type Config struct {
	Keys    KeysConfig    `yaml:"keys"`
	Runtime RuntimeConfig `yaml:"runtime"`
}

// KeysConfig locates the key material used for authentication.
type KeysConfig struct {
	KeyFile      string `yaml:"key_file"`
	PasswordFile string `yaml:"password_file,omitempty"`
}

// RuntimeConfig configures the transport and tag framing.
type RuntimeConfig struct {
	SerialDevice   string `yaml:"serial_device"`
	BaudRate       int    `yaml:"baud_rate"`
	EdgeThreshold  *int   `yaml:"edge_threshold"`
	DefaultMode    string `yaml:"default_mode"`
	TearOffEnabled bool   `yaml:"tear_off_enabled,omitempty"`
}

// Load reads and validates a YAML config file at path.
func Load(path string) (*Config, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(content))
	dec.KnownFields(true)

	var cfg Config
	if err := dec.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("parse config yaml: %w", err)
	}
	cfg.resolvePaths(path)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks that required fields are present and sane.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Keys.KeyFile) == "" {
		return fmt.Errorf("config.keys.key_file is required")
	}
	if err := validateReadableFile(c.Keys.KeyFile, "config.keys.key_file"); err != nil {
		return err
	}

	if strings.TrimSpace(c.Runtime.SerialDevice) == "" {
		return fmt.Errorf("config.runtime.serial_device is required")
	}
	if c.Runtime.BaudRate <= 0 {
		return fmt.Errorf("config.runtime.baud_rate must be > 0")
	}

	switch strings.ToUpper(c.Runtime.DefaultMode) {
	case "STD", "ADV1", "ADV2", "FADV", "":
	default:
		return fmt.Errorf("config.runtime.default_mode must be one of STD, ADV1, ADV2, FADV")
	}

	if strings.TrimSpace(c.Keys.PasswordFile) != "" {
		if err := validateReadableFile(c.Keys.PasswordFile, "config.keys.password_file"); err != nil {
			return err
		}
	}

	return nil
}

func (c *Config) resolvePaths(configPath string) {
	configDir := filepath.Dir(configPath)
	c.Keys.KeyFile = resolvePath(configDir, c.Keys.KeyFile)
	c.Keys.PasswordFile = resolvePath(configDir, c.Keys.PasswordFile)
}

func resolvePath(baseDir, path string) string {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" || filepath.IsAbs(trimmed) {
		return trimmed
	}
	return filepath.Clean(filepath.Join(baseDir, trimmed))
}

func validateReadableFile(path string, field string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("%s: %w", field, err)
	}
	if info.IsDir() {
		return fmt.Errorf("%s must point to a file, got directory", field)
	}
	return nil
}
