package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/homelink/homelink-core/internal/infrastructure/config"
)

// TestRun_InvalidConfig verifies run fails with invalid config path.
func TestRun_InvalidConfig(t *testing.T) {
	originalEnv := os.Getenv("HOMELINK_CONFIG")
	defer os.Setenv("HOMELINK_CONFIG", originalEnv)

	os.Setenv("HOMELINK_CONFIG", "/nonexistent/path/config.yaml")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := run(ctx)
	if err == nil {
		t.Fatal("run() should fail with invalid config path")
	}
}

// TestRun_MissingDatabasePath verifies run fails when database path is invalid.
func TestRun_MissingDatabasePath(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "test-config.yaml")

	configContent := `
site:
  id: test-site

database:
  path: ""
  wal_mode: true
  busy_timeout: 5

broker:
  host: "127.0.0.1"
  port: 1883
  client_id: "test-client"
  tls: false

session:
  qos: 1

influxdb:
  enabled: false

logging:
  level: info
  format: text
  output: stdout

api:
  host: "127.0.0.1"
  port: 8080
  timeouts:
    read: 30
    write: 60
    idle: 120
`
	if err := os.WriteFile(configPath, []byte(configContent), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	originalEnv := os.Getenv("HOMELINK_CONFIG")
	defer os.Setenv("HOMELINK_CONFIG", originalEnv)
	os.Setenv("HOMELINK_CONFIG", configPath)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := run(ctx)
	if err == nil {
		t.Fatal("run() should fail with empty database path")
	}
}

// TestGetConfigPath_Default verifies default config path.
func TestGetConfigPath_Default(t *testing.T) {
	originalEnv := os.Getenv("HOMELINK_CONFIG")
	defer os.Setenv("HOMELINK_CONFIG", originalEnv)

	os.Unsetenv("HOMELINK_CONFIG")

	path := getConfigPath()
	if path != defaultConfigPath {
		t.Errorf("getConfigPath() = %q, want %q", path, defaultConfigPath)
	}
}

// TestGetConfigPath_EnvOverride verifies environment variable override.
func TestGetConfigPath_EnvOverride(t *testing.T) {
	originalEnv := os.Getenv("HOMELINK_CONFIG")
	defer os.Setenv("HOMELINK_CONFIG", originalEnv)

	expected := "/custom/path/config.yaml"
	os.Setenv("HOMELINK_CONFIG", expected)

	path := getConfigPath()
	if path != expected {
		t.Errorf("getConfigPath() = %q, want %q", path, expected)
	}
}

// TestSessionConfig verifies the config mapping onto session parameters.
func TestSessionConfig(t *testing.T) {
	cfg := testConfig()
	got := sessionConfig(cfg)

	if got.Host != "broker.local" {
		t.Errorf("Host = %q, want broker.local", got.Host)
	}
	if got.Port != 8883 {
		t.Errorf("Port = %d, want 8883", got.Port)
	}
	if !got.TLS {
		t.Error("TLS = false, want true")
	}
	if got.Username != "hub" || got.Password != "secret" {
		t.Errorf("credentials = %q/%q, want hub/secret", got.Username, got.Password)
	}
	if got.Parameters.ConnectTimeout != 15*time.Second {
		t.Errorf("ConnectTimeout = %v, want 15s", got.Parameters.ConnectTimeout)
	}
	if got.Parameters.MaxReconnectAttempts != 7 {
		t.Errorf("MaxReconnectAttempts = %d, want 7", got.Parameters.MaxReconnectAttempts)
	}
	if !got.Parameters.AutoReconnect {
		t.Error("AutoReconnect = false, want true")
	}

	if result := got.Parameters.Validate(); !result.Valid {
		t.Errorf("mapped parameters invalid: %v", result.Errors)
	}
}

// TestQoSFromLevel verifies the numeric level mapping.
func TestQoSFromLevel(t *testing.T) {
	tests := []struct {
		level int
		want  string
	}{
		{0, "at_most_once"},
		{1, "at_least_once"},
		{2, "exactly_once"},
		{99, "at_least_once"},
	}

	for _, tt := range tests {
		if got := string(qosFromLevel(tt.level)); got != tt.want {
			t.Errorf("qosFromLevel(%d) = %q, want %q", tt.level, got, tt.want)
		}
	}
}

// testConfig builds a config with every session field populated.
func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Broker.Host = "broker.local"
	cfg.Broker.Port = 8883
	cfg.Broker.TLS = true
	cfg.Broker.ClientID = "homelink-hub"
	cfg.Broker.Auth.Username = "hub"
	cfg.Broker.Auth.Password = "secret"
	cfg.Session.ConnectTimeout = 15
	cfg.Session.ReadTimeout = 30
	cfg.Session.WriteTimeout = 30
	cfg.Session.HeartbeatInterval = 20
	cfg.Session.ReconnectInterval = 5
	cfg.Session.MaxReconnectAttempts = 7
	cfg.Session.AutoReconnect = true
	cfg.Session.EnableHeartbeat = true
	cfg.Session.QoS = 1
	cfg.Session.BufferSize = 8192
	return cfg
}
