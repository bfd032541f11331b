// Package storage defines the persistence interfaces for sessions and the
// audit log, with SQLite and in-memory implementations in subpackages.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/twinhealth/chat-triage/internal/domain"
)

// ErrSessionNotFound is returned when a session id resolves to nothing.
var ErrSessionNotFound = errors.New("session not found")

// SessionStore is the durable conversation record. GetOrCreateSession must be
// atomic with respect to concurrent creation under the same id, and
// AppendTurn must persist durably before returning.
type SessionStore interface {
	// GetOrCreateSession resolves id to its session, creating it on first
	// contact. created reports whether a new session row was made.
	GetOrCreateSession(ctx context.Context, id string) (sess *domain.Session, created bool, err error)

	// GetSession returns the session with its full ordered history, or
	// ErrSessionNotFound.
	GetSession(ctx context.Context, id string) (*domain.Session, error)

	// AppendTurn appends one turn to the session history and refreshes the
	// session's updated_at. The stored turn, with seq and timestamp
	// assigned, is returned.
	AppendTurn(ctx context.Context, sessionID string, role domain.Role, content string) (*domain.Turn, error)

	// ListSessions returns sessions newest-first by updated_at, without
	// history loaded.
	ListSessions(ctx context.Context, opts ListOptions) ([]SessionSummary, error)
}

// AuditStore is the write-once decision log. No update or delete operations
// are exposed.
type AuditStore interface {
	// RecordDecision writes exactly one audit record for a completed
	// turn-processing cycle. Fallback outcomes are first-class and loggable.
	RecordDecision(ctx context.Context, sessionID string, d domain.Decision) (*domain.AuditRecord, error)

	// ListAuditRecords returns records newest-first. SessionID, Topic and
	// Status in opts narrow the listing when non-zero.
	ListAuditRecords(ctx context.Context, opts AuditListOptions) ([]domain.AuditRecord, error)
}

// Store combines both persistence concerns plus lifecycle.
type Store interface {
	SessionStore
	AuditStore
	Close() error
}

// SessionSummary is a browse-view row: a session without its history.
type SessionSummary struct {
	ID        string    `json:"id"`
	TurnCount int       `json:"turn_count"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ListOptions paginates session listings.
type ListOptions struct {
	Limit  int
	Offset int
}

// AuditListOptions filters and paginates audit listings.
type AuditListOptions struct {
	SessionID string
	Topic     domain.Topic
	Status    domain.Status
	Limit     int
	Offset    int
}
