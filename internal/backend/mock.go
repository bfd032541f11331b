package backend

import (
	"context"
	"sync"
)

// Mock is a scripted backend for tests and local development. Responses are
// consumed in order; when the script is exhausted the last entry repeats.
type Mock struct {
	mu        sync.Mutex
	responses []string
	errs      []error
	calls     int

	// LastRequest records the most recent request for assertions.
	LastRequest *Request
}

var _ Backend = (*Mock)(nil)

// NewMock creates a mock backend that always answers with a safe default
// escalation-shaped payload until scripted otherwise.
func NewMock() *Mock {
	return &Mock{
		responses: []string{`{"topic":"OTHERS","status":"escalate","response_message":"A specialist will follow up.","confidence":0.5,"justification":"mock default"}`},
	}
}

// Script replaces the response script. A nil error entry means the paired
// response is returned successfully.
func (m *Mock) Script(responses []string, errs []error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses = responses
	m.errs = errs
	m.calls = 0
}

// Calls returns how many times Invoke has been called.
func (m *Mock) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func (m *Mock) Name() string {
	return "mock"
}

func (m *Mock) Invoke(ctx context.Context, req *Request) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	i := m.calls
	m.calls++
	m.LastRequest = req

	if i >= len(m.responses) {
		i = len(m.responses) - 1
	}
	if i < len(m.errs) && m.errs[i] != nil {
		return "", m.errs[i]
	}
	if i < 0 || len(m.responses) == 0 {
		return "", ErrEmptyResponse
	}
	return m.responses[i], nil
}
