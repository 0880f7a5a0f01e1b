package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("writing config file: %v", err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	path := writeConfigFile(t, "server:\n  port: 8090\n")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Server.Port != 8090 {
		t.Errorf("Server.Port = %d, want 8090", cfg.Server.Port)
	}
	if cfg.WebSocket.Path != "/ws" {
		t.Errorf("WebSocket.Path = %q, want /ws", cfg.WebSocket.Path)
	}
	if cfg.Relay.ClearGracePeriod != 500 {
		t.Errorf("Relay.ClearGracePeriod = %d, want 500", cfg.Relay.ClearGracePeriod)
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("Logging.Level = %q, want info", cfg.Logging.Level)
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := writeConfigFile(t, `
server:
  port: 9000
websocket:
  path: /relay
  send_buffer: 128
relay:
  clear_grace_period: 250
database:
  path: /tmp/test.db
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Server.Port != 9000 {
		t.Errorf("Server.Port = %d, want 9000", cfg.Server.Port)
	}
	if cfg.WebSocket.Path != "/relay" {
		t.Errorf("WebSocket.Path = %q, want /relay", cfg.WebSocket.Path)
	}
	if cfg.WebSocket.SendBuffer != 128 {
		t.Errorf("WebSocket.SendBuffer = %d, want 128", cfg.WebSocket.SendBuffer)
	}
	if cfg.Relay.ClearGracePeriod != 250 {
		t.Errorf("Relay.ClearGracePeriod = %d, want 250", cfg.Relay.ClearGracePeriod)
	}
	if cfg.Database.Path != "/tmp/test.db" {
		t.Errorf("Database.Path = %q, want /tmp/test.db", cfg.Database.Path)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	path := writeConfigFile(t, "database:\n  path: /from/file.db\n")

	t.Setenv("FARSIGN_DATABASE_PATH", "/from/env.db")
	t.Setenv("FARSIGN_LOG_LEVEL", "debug")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Database.Path != "/from/env.db" {
		t.Errorf("Database.Path = %q, want /from/env.db", cfg.Database.Path)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q, want debug", cfg.Logging.Level)
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load("/nonexistent/config.yaml")
	if err == nil {
		t.Fatal("Load() with missing file should return error")
	}
}

func TestValidateRejectsBadConfig(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantMsg string
	}{
		{
			name:    "invalid port",
			mutate:  func(c *Config) { c.Server.Port = 0 },
			wantMsg: "server.port",
		},
		{
			name:    "empty database path",
			mutate:  func(c *Config) { c.Database.Path = "" },
			wantMsg: "database.path",
		},
		{
			name:    "bad websocket path",
			mutate:  func(c *Config) { c.WebSocket.Path = "ws" },
			wantMsg: "websocket.path",
		},
		{
			name:    "negative grace period",
			mutate:  func(c *Config) { c.Relay.ClearGracePeriod = -1 },
			wantMsg: "clear_grace_period",
		},
		{
			name: "telemetry enabled without url",
			mutate: func(c *Config) {
				c.Telemetry.Enabled = true
				c.Telemetry.URL = ""
			},
			wantMsg: "telemetry.url",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("Validate() should have failed")
			}
			if !strings.Contains(err.Error(), tt.wantMsg) {
				t.Errorf("error %q does not mention %q", err, tt.wantMsg)
			}
		})
	}
}
