// Package registration wires the built-in backends into the backend factory.
// Registration is an explicit call from main (or tests) rather than an init()
// side effect.
package registration

import (
	"net/http"

	"github.com/twinhealth/chat-triage/internal/backend"
	"github.com/twinhealth/chat-triage/internal/backend/anthropic"
	"github.com/twinhealth/chat-triage/internal/backend/openai"
	"github.com/twinhealth/chat-triage/internal/config"
)

// RegisterBuiltins registers the openai, anthropic, and mock backends.
func RegisterBuiltins() {
	backend.Register("openai", func(cfg config.BackendConfig) (backend.Backend, error) {
		opts := []openai.ClientOption{
			openai.WithHTTPClient(&http.Client{Timeout: cfg.Timeout()}),
		}
		if cfg.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
		}
		return openai.New(cfg.APIKey, cfg.Model, cfg.MaxTokens, opts...), nil
	})

	backend.Register("anthropic", func(cfg config.BackendConfig) (backend.Backend, error) {
		opts := []anthropic.ClientOption{
			anthropic.WithHTTPClient(&http.Client{Timeout: cfg.Timeout()}),
		}
		if cfg.BaseURL != "" {
			opts = append(opts, anthropic.WithBaseURL(cfg.BaseURL))
		}
		return anthropic.New(cfg.APIKey, cfg.Model, cfg.MaxTokens, opts...), nil
	})

	backend.Register("mock", func(cfg config.BackendConfig) (backend.Backend, error) {
		return backend.NewMock(), nil
	})
}
