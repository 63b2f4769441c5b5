package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// TestRun_InvalidConfig verifies run fails with invalid config path.
func TestRun_InvalidConfig(t *testing.T) {
	originalEnv := os.Getenv("BSEC_CONDUIT_CONFIG")
	defer os.Setenv("BSEC_CONDUIT_CONFIG", originalEnv)

	os.Setenv("BSEC_CONDUIT_CONFIG", "/nonexistent/path/config.yaml")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := run(ctx)
	if err == nil {
		t.Fatal("run() should fail with invalid config path")
	}
}

// TestRun_MissingDatabasePath verifies run fails when the database path is empty.
func TestRun_MissingDatabasePath(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "test-config.yaml")

	configContent := `
sensor:
  id: test-sensor
  base_dir: "` + tmpDir + `"
  i2c_address: 0x76
  temp_offset: 0.0
  sample_rate: 3
  voltage: 3.3
  retain_state: 4

database:
  path: ""
  wal_mode: true
  busy_timeout: 5

mqtt:
  enabled: false

influxdb:
  enabled: false

logging:
  level: info
  format: text
  output: stdout
`
	if err := os.WriteFile(configPath, []byte(configContent), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	originalEnv := os.Getenv("BSEC_CONDUIT_CONFIG")
	defer os.Setenv("BSEC_CONDUIT_CONFIG", originalEnv)
	os.Setenv("BSEC_CONDUIT_CONFIG", configPath)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := run(ctx)
	if err == nil {
		t.Fatal("run() should fail with empty database path")
	}
}

// TestRun_InvalidSensorConfig verifies run fails before touching the
// filesystem when the sensor parameters are out of range.
func TestRun_InvalidSensorConfig(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "test-config.yaml")

	configContent := `
sensor:
  id: test-sensor
  base_dir: "` + tmpDir + `"
  i2c_address: 0x42
  sample_rate: 3
  voltage: 3.3
  retain_state: 4

database:
  path: "` + filepath.Join(tmpDir, "test.db") + `"
  wal_mode: true
  busy_timeout: 5

mqtt:
  enabled: false

influxdb:
  enabled: false

logging:
  level: info
  format: text
  output: stdout
`
	if err := os.WriteFile(configPath, []byte(configContent), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	originalEnv := os.Getenv("BSEC_CONDUIT_CONFIG")
	defer os.Setenv("BSEC_CONDUIT_CONFIG", originalEnv)
	os.Setenv("BSEC_CONDUIT_CONFIG", configPath)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := run(ctx)
	if err == nil {
		t.Fatal("run() should fail with invalid i2c address")
	}
}

// TestRun_MissingSourceTree verifies run fails cleanly when the base
// directory holds no vendor source tree.
func TestRun_MissingSourceTree(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "test-config.yaml")

	configContent := `
sensor:
  id: test-sensor
  base_dir: "` + tmpDir + `"
  i2c_address: 0x76
  sample_rate: 3
  voltage: 3.3
  retain_state: 4

database:
  path: "` + filepath.Join(tmpDir, "test.db") + `"
  wal_mode: true
  busy_timeout: 5

mqtt:
  enabled: false

influxdb:
  enabled: false

logging:
  level: error
  format: text
  output: stdout
`
	if err := os.WriteFile(configPath, []byte(configContent), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	originalEnv := os.Getenv("BSEC_CONDUIT_CONFIG")
	defer os.Setenv("BSEC_CONDUIT_CONFIG", originalEnv)
	os.Setenv("BSEC_CONDUIT_CONFIG", configPath)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := run(ctx)
	if err == nil {
		t.Fatal("run() should fail when the vendor source tree is missing")
	}
}

// TestGetConfigPath_Default verifies default config path.
func TestGetConfigPath_Default(t *testing.T) {
	originalEnv := os.Getenv("BSEC_CONDUIT_CONFIG")
	defer os.Setenv("BSEC_CONDUIT_CONFIG", originalEnv)

	os.Unsetenv("BSEC_CONDUIT_CONFIG")

	path := getConfigPath()
	if path != defaultConfigPath {
		t.Errorf("getConfigPath() = %q, want %q", path, defaultConfigPath)
	}
}

// TestGetConfigPath_EnvOverride verifies environment variable override.
func TestGetConfigPath_EnvOverride(t *testing.T) {
	originalEnv := os.Getenv("BSEC_CONDUIT_CONFIG")
	defer os.Setenv("BSEC_CONDUIT_CONFIG", originalEnv)

	expected := "/custom/path/config.yaml"
	os.Setenv("BSEC_CONDUIT_CONFIG", expected)

	path := getConfigPath()
	if path != expected {
		t.Errorf("getConfigPath() = %q, want %q", path, expected)
	}
}
