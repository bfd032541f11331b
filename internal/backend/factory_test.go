package backend

import (
	"context"
	"errors"
	"testing"

	"github.com/twinhealth/chat-triage/internal/config"
)

func TestRegisterAndNew(t *testing.T) {
	Register("scripted", func(cfg config.BackendConfig) (Backend, error) {
		return NewMock(), nil
	})

	if !Registered("scripted") {
		t.Fatalf("Registered(scripted) = false after Register")
	}

	b, err := New(config.BackendConfig{Type: "scripted"})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if b.Name() != "mock" {
		t.Errorf("Name() = %q, want mock", b.Name())
	}
}

func TestNew_UnknownType(t *testing.T) {
	if _, err := New(config.BackendConfig{Type: "telepathy"}); err == nil {
		t.Errorf("New() succeeded for an unregistered type")
	}
}

func TestMock_ScriptOrderAndRepeat(t *testing.T) {
	m := NewMock()
	m.Script([]string{"first", "second"}, []error{errors.New("boom"), nil})

	ctx := context.Background()

	if _, err := m.Invoke(ctx, &Request{UserPrompt: "a"}); err == nil {
		t.Errorf("first Invoke() succeeded, want scripted error")
	}

	out, err := m.Invoke(ctx, &Request{UserPrompt: "b"})
	if err != nil || out != "second" {
		t.Errorf("second Invoke() = %q, %v", out, err)
	}

	// Script exhausted: the last entry repeats.
	out, err = m.Invoke(ctx, &Request{UserPrompt: "c"})
	if err != nil || out != "second" {
		t.Errorf("third Invoke() = %q, %v; want repeated last entry", out, err)
	}

	if m.Calls() != 3 {
		t.Errorf("Calls() = %d, want 3", m.Calls())
	}
	if m.LastRequest == nil || m.LastRequest.UserPrompt != "c" {
		t.Errorf("LastRequest not tracking the latest request")
	}
}

func TestMock_CancelledContext(t *testing.T) {
	m := NewMock()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := m.Invoke(ctx, &Request{}); err == nil {
		t.Errorf("Invoke() ignored a cancelled context")
	}
}
