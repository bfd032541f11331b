// Package config loads service configuration from config.yaml and
// TRIAGE_-prefixed environment variables, env winning over file.
package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

type Config struct {
	Server  ServerConfig  `koanf:"server"`
	Storage StorageConfig `koanf:"storage"`
	Backend BackendConfig `koanf:"backend"`
}

type ServerConfig struct {
	Port int `koanf:"port"`
}

type StorageConfig struct {
	Type   string       `koanf:"type"` // sqlite, memory
	SQLite SQLiteConfig `koanf:"sqlite"`
}

type SQLiteConfig struct {
	Path string `koanf:"path"`
}

// BackendConfig selects and configures the reasoning backend. The backend is
// fixed at startup and read-only thereafter; a missing or unknown backend is
// a fatal configuration error, not a per-turn condition.
type BackendConfig struct {
	Type      string `koanf:"type"` // openai, anthropic, mock
	APIKey    string `koanf:"api_key"`
	Model     string `koanf:"model"`
	BaseURL   string `koanf:"base_url"`
	MaxTokens int    `koanf:"max_tokens"`
	// TimeoutMS bounds a single backend invocation; a timeout is treated as
	// a transport failure and routes to the fallback decision.
	TimeoutMS int `koanf:"timeout_ms"`
}

// Timeout returns the backend invocation timeout as a duration.
func (b BackendConfig) Timeout() time.Duration {
	return time.Duration(b.TimeoutMS) * time.Millisecond
}

var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// Load reads config.yaml (optional) and TRIAGE_* env vars, applies defaults,
// and substitutes ${VAR} references in the API key.
func Load() (*Config, error) {
	return LoadFile("config.yaml")
}

// LoadFile is Load with an explicit config file path.
func LoadFile(path string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		// File not found is fine; env vars can carry everything.
		if !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
	}

	if err := k.Load(env.Provider("TRIAGE_", ".", func(s string) string {
		return strings.Replace(strings.ToLower(strings.TrimPrefix(s, "TRIAGE_")), "__", ".", -1)
	}), nil); err != nil {
		return nil, err
	}

	defaults := map[string]any{
		"server.port":        8080,
		"storage.type":       "sqlite",
		"storage.sqlite.path": "./data/triage.db",
		"backend.model":      "gpt-4o-mini",
		"backend.max_tokens": 1024,
		"backend.timeout_ms": 20000,
	}
	for key, val := range defaults {
		if !k.Exists(key) {
			k.Set(key, val)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, err
	}

	cfg.Backend.APIKey = substituteEnvVars(cfg.Backend.APIKey)

	return &cfg, nil
}

// Validate rejects configurations the process cannot start with.
func (c *Config) Validate() error {
	switch c.Backend.Type {
	case "openai", "anthropic":
		if c.Backend.APIKey == "" {
			return fmt.Errorf("backend %q requires an api_key", c.Backend.Type)
		}
	case "mock":
	case "":
		return fmt.Errorf("no backend configured (set backend.type)")
	default:
		return fmt.Errorf("unknown backend type %q", c.Backend.Type)
	}

	switch c.Storage.Type {
	case "sqlite", "memory":
	default:
		return fmt.Errorf("unknown storage type %q", c.Storage.Type)
	}

	return nil
}

func substituteEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		varName := envVarPattern.FindStringSubmatch(match)[1]
		return os.Getenv(varName)
	})
}
