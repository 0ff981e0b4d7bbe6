package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadValidConfigAndResolveRelativePaths(t *testing.T) {
	tmp := t.TempDir()
	keyPath := filepath.Join(tmp, "key.hex")
	if err := os.WriteFile(keyPath, []byte("001122334455\n"), 0o644); err != nil {
		t.Fatalf("write key: %v", err)
	}

	cfgPath := filepath.Join(tmp, "config.yaml")
	cfgYAML := `
keys:
  key_file: "key.hex"
runtime:
  serial_device: "/dev/ttyUSB0"
  baud_rate: 115200
  default_mode: "ADV1"
`
	if err := os.WriteFile(cfgPath, []byte(cfgYAML), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(cfgPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Keys.KeyFile != keyPath {
		t.Fatalf("expected resolved key path %q, got %q", keyPath, cfg.Keys.KeyFile)
	}
	if cfg.Runtime.BaudRate != 115200 {
		t.Fatalf("expected baud_rate 115200, got %d", cfg.Runtime.BaudRate)
	}
}

func TestLoadRejectsMissingKeyFile(t *testing.T) {
	tmp := t.TempDir()
	cfgPath := filepath.Join(tmp, "config.yaml")
	cfgYAML := `
keys:
  key_file: "nope.hex"
runtime:
  serial_device: "/dev/ttyUSB0"
  baud_rate: 115200
`
	if err := os.WriteFile(cfgPath, []byte(cfgYAML), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	if _, err := Load(cfgPath); err == nil {
		t.Fatalf("expected error for missing key file, got nil")
	}
}

func TestLoadRejectsUnknownMode(t *testing.T) {
	tmp := t.TempDir()
	keyPath := filepath.Join(tmp, "key.hex")
	if err := os.WriteFile(keyPath, []byte("001122334455\n"), 0o644); err != nil {
		t.Fatalf("write key: %v", err)
	}

	cfgPath := filepath.Join(tmp, "config.yaml")
	cfgYAML := `
keys:
  key_file: "key.hex"
runtime:
  serial_device: "/dev/ttyUSB0"
  baud_rate: 115200
  default_mode: "BOGUS"
`
	if err := os.WriteFile(cfgPath, []byte(cfgYAML), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	if _, err := Load(cfgPath); err == nil {
		t.Fatalf("expected error for unknown default_mode, got nil")
	}
}

func TestLoadRejectsUnknownField(t *testing.T) {
	tmp := t.TempDir()
	keyPath := filepath.Join(tmp, "key.hex")
	if err := os.WriteFile(keyPath, []byte("001122334455\n"), 0o644); err != nil {
		t.Fatalf("write key: %v", err)
	}

	cfgPath := filepath.Join(tmp, "config.yaml")
	cfgYAML := `
keys:
  key_file: "key.hex"
  bogus_field: "x"
runtime:
  serial_device: "/dev/ttyUSB0"
  baud_rate: 115200
`
	if err := os.WriteFile(cfgPath, []byte(cfgYAML), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	if _, err := Load(cfgPath); err == nil {
		t.Fatalf("expected error for unknown field, got nil")
	}
}
