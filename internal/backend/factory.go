package backend

import (
	"fmt"

	"github.com/twinhealth/chat-triage/internal/config"
)

// Factory creates a Backend from its configuration block. The creator
// functions live here rather than in the provider packages to keep
// registration explicit and free of init() side effects.
type Factory func(cfg config.BackendConfig) (Backend, error)

var factories = map[string]Factory{}

// Register adds a backend factory under a type name. Later registrations for
// the same name win, which lets tests substitute backends.
func Register(name string, f Factory) {
	factories[name] = f
}

// Registered reports whether a backend type is known.
func Registered(name string) bool {
	_, ok := factories[name]
	return ok
}

// New creates the configured backend. Unknown types are a configuration
// error; config.Validate catches them before this point in normal startup.
func New(cfg config.BackendConfig) (Backend, error) {
	f, ok := factories[cfg.Type]
	if !ok {
		return nil, fmt.Errorf("unknown backend type %q", cfg.Type)
	}
	return f(cfg)
}
