package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config file: %v", err)
	}
	return path
}

func TestLoadFile_Defaults(t *testing.T) {
	cfg, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}

	if cfg.Server.Port != 8080 {
		t.Errorf("Port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.Storage.Type != "sqlite" {
		t.Errorf("Storage.Type = %q, want sqlite", cfg.Storage.Type)
	}
	if cfg.Storage.SQLite.Path != "./data/triage.db" {
		t.Errorf("SQLite.Path = %q", cfg.Storage.SQLite.Path)
	}
	if cfg.Backend.Model != "gpt-4o-mini" {
		t.Errorf("Model = %q, want gpt-4o-mini", cfg.Backend.Model)
	}
	if cfg.Backend.MaxTokens != 1024 {
		t.Errorf("MaxTokens = %d, want 1024", cfg.Backend.MaxTokens)
	}
	if cfg.Backend.Timeout() != 20*time.Second {
		t.Errorf("Timeout() = %v, want 20s", cfg.Backend.Timeout())
	}
}

func TestLoadFile_YAML(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 9090
storage:
  type: memory
backend:
  type: mock
  model: test-model
  timeout_ms: 500
`)

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}

	if cfg.Server.Port != 9090 {
		t.Errorf("Port = %d, want 9090", cfg.Server.Port)
	}
	if cfg.Storage.Type != "memory" {
		t.Errorf("Storage.Type = %q, want memory", cfg.Storage.Type)
	}
	if cfg.Backend.Type != "mock" || cfg.Backend.Model != "test-model" {
		t.Errorf("Backend = %+v", cfg.Backend)
	}
	if cfg.Backend.Timeout() != 500*time.Millisecond {
		t.Errorf("Timeout() = %v, want 500ms", cfg.Backend.Timeout())
	}
}

func TestLoadFile_EnvOverridesFile(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 9090
backend:
  type: mock
`)

	t.Setenv("TRIAGE_SERVER__PORT", "7070")
	t.Setenv("TRIAGE_BACKEND__TYPE", "openai")
	t.Setenv("TRIAGE_BACKEND__API_KEY", "sk-from-env")

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}
	if cfg.Server.Port != 7070 {
		t.Errorf("Port = %d, want env override 7070", cfg.Server.Port)
	}
	if cfg.Backend.Type != "openai" {
		t.Errorf("Backend.Type = %q, want env override openai", cfg.Backend.Type)
	}
	if cfg.Backend.APIKey != "sk-from-env" {
		t.Errorf("APIKey = %q", cfg.Backend.APIKey)
	}
}

func TestLoadFile_APIKeySubstitution(t *testing.T) {
	path := writeConfig(t, `
backend:
  type: anthropic
  api_key: ${TRIAGE_TEST_SECRET}
`)
	t.Setenv("TRIAGE_TEST_SECRET", "ak-secret")

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}
	if cfg.Backend.APIKey != "ak-secret" {
		t.Errorf("APIKey = %q, want substituted value", cfg.Backend.APIKey)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{
			name:   "mock backend needs no key",
			mutate: func(c *Config) { c.Backend.Type = "mock" },
		},
		{
			name: "openai with key",
			mutate: func(c *Config) {
				c.Backend.Type = "openai"
				c.Backend.APIKey = "sk-x"
			},
		},
		{
			name:    "openai without key",
			mutate:  func(c *Config) { c.Backend.Type = "openai" },
			wantErr: true,
		},
		{
			name:    "anthropic without key",
			mutate:  func(c *Config) { c.Backend.Type = "anthropic" },
			wantErr: true,
		},
		{
			name:    "no backend",
			mutate:  func(c *Config) {},
			wantErr: true,
		},
		{
			name:    "unknown backend",
			mutate:  func(c *Config) { c.Backend.Type = "bard" },
			wantErr: true,
		},
		{
			name: "unknown storage",
			mutate: func(c *Config) {
				c.Backend.Type = "mock"
				c.Storage.Type = "postgres"
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Config{Storage: StorageConfig{Type: "memory"}}
			tt.mutate(&cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
