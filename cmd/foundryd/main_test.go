package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// minimal catalog used by startup tests.
const testCatalog = `
recipes:
  - id: plank-press
    name: Plank Press
    inputs:
      - kind: wood
        amount: 2
    outputs:
      - kind: plank
        amount: 4
    processing_time: 2.0
    power_consumption: 100
    required_tier: 1

machine_types:
  - id: sawmill
    name: Sawmill
    class: processor
    tier: 1
    power_draw: 10
    footprint:
      width: 2
      height: 2
    intake_ports:
      - capacity: 50
    output_ports:
      - capacity: 50
    recipes:
      - plank-press
`

// TestRun_InvalidConfig verifies run fails with invalid config path.
func TestRun_InvalidConfig(t *testing.T) {
	originalEnv := os.Getenv("FOUNDRY_CONFIG")
	defer os.Setenv("FOUNDRY_CONFIG", originalEnv)

	os.Setenv("FOUNDRY_CONFIG", "/nonexistent/path/config.yaml")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := run(ctx); err == nil {
		t.Fatal("run() should fail with invalid config path")
	}
}

// TestRun_MissingDatabasePath verifies run fails config validation when the
// database path is empty.
func TestRun_MissingDatabasePath(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "test-config.yaml")

	configContent := `
database:
  path: ""

catalog:
  path: "catalog.yaml"

logging:
  level: info
  format: text
  output: stdout
`
	if err := os.WriteFile(configPath, []byte(configContent), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	originalEnv := os.Getenv("FOUNDRY_CONFIG")
	defer os.Setenv("FOUNDRY_CONFIG", originalEnv)
	os.Setenv("FOUNDRY_CONFIG", configPath)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := run(ctx); err == nil {
		t.Fatal("run() should fail with empty database path")
	}
}

// TestGetConfigPath_Default verifies default config path.
func TestGetConfigPath_Default(t *testing.T) {
	originalEnv := os.Getenv("FOUNDRY_CONFIG")
	defer os.Setenv("FOUNDRY_CONFIG", originalEnv)

	os.Unsetenv("FOUNDRY_CONFIG")

	if path := getConfigPath(); path != defaultConfigPath {
		t.Errorf("getConfigPath() = %q, want %q", path, defaultConfigPath)
	}
}

// TestGetConfigPath_EnvOverride verifies environment variable override.
func TestGetConfigPath_EnvOverride(t *testing.T) {
	originalEnv := os.Getenv("FOUNDRY_CONFIG")
	defer os.Setenv("FOUNDRY_CONFIG", originalEnv)

	expected := "/custom/path/config.yaml"
	os.Setenv("FOUNDRY_CONFIG", expected)

	if path := getConfigPath(); path != expected {
		t.Errorf("getConfigPath() = %q, want %q", path, expected)
	}
}

// TestRun_StartupAndShutdown boots the full daemon against temp files and a
// cancelled context. MQTT is absent, which run tolerates; everything else is
// self-contained.
func TestRun_StartupAndShutdown(t *testing.T) {
	if testing.Short() {
		t.Skip("full startup test in -short mode")
	}

	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "test-config.yaml")
	catalogPath := filepath.Join(tmpDir, "catalog.yaml")
	dbPath := filepath.Join(tmpDir, "test.db")

	if err := os.WriteFile(catalogPath, []byte(testCatalog), 0600); err != nil {
		t.Fatalf("failed to write test catalog: %v", err)
	}

	configContent := `
site:
  id: factory-test

database:
  path: "` + dbPath + `"
  wal_mode: true
  busy_timeout: 5

catalog:
  path: "` + catalogPath + `"

grid:
  width: 16
  height: 16

mqtt:
  broker:
    host: "127.0.0.1"
    port: 1
    client_id: "foundry-test"

api:
  host: "127.0.0.1"
  port: 18099

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

	originalEnv := os.Getenv("FOUNDRY_CONFIG")
	defer os.Setenv("FOUNDRY_CONFIG", originalEnv)
	os.Setenv("FOUNDRY_CONFIG", configPath)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	if err := run(ctx); err != nil {
		t.Fatalf("run() failed: %v", err)
	}
}
