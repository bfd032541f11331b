// Package memory is an in-memory implementation of storage.Store used by
// tests and local development.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/twinhealth/chat-triage/internal/domain"
	"github.com/twinhealth/chat-triage/internal/storage"
)

// Store is an in-memory implementation of storage.Store.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*domain.Session
	audit    []domain.AuditRecord
	nextID   int64

	// FailAppends, when set, makes AppendTurn fail after the given number of
	// successful appends. Used to exercise persistence-failure paths.
	FailAppends int

	// FailAudit, when set, makes RecordDecision fail.
	FailAudit bool

	appends int
}

var _ storage.Store = (*Store)(nil)

// New creates a new in-memory store.
func New() *Store {
	return &Store{
		sessions: make(map[string]*domain.Session),
		nextID:   1,
	}
}

func (s *Store) GetOrCreateSession(ctx context.Context, id string) (*domain.Session, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sess, ok := s.sessions[id]; ok {
		return copySession(sess), false, nil
	}

	now := time.Now().UTC()
	sess := &domain.Session{ID: id, CreatedAt: now, UpdatedAt: now}
	s.sessions[id] = sess
	return copySession(sess), true, nil
}

func (s *Store) GetSession(ctx context.Context, id string) (*domain.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessions[id]
	if !ok {
		return nil, storage.ErrSessionNotFound
	}
	return copySession(sess), nil
}

func (s *Store) AppendTurn(ctx context.Context, sessionID string, role domain.Role, content string) (*domain.Turn, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.FailAppends > 0 && s.appends >= s.FailAppends {
		return nil, context.DeadlineExceeded
	}

	sess, ok := s.sessions[sessionID]
	if !ok {
		return nil, storage.ErrSessionNotFound
	}

	turn := domain.Turn{
		ID:        "turn_" + uuid.New().String(),
		SessionID: sessionID,
		Seq:       len(sess.History),
		Role:      role,
		Content:   content,
		CreatedAt: time.Now().UTC(),
	}
	sess.History = append(sess.History, turn)
	sess.UpdatedAt = turn.CreatedAt
	s.appends++

	return &turn, nil
}

func (s *Store) ListSessions(ctx context.Context, opts storage.ListOptions) ([]storage.SessionSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	summaries := make([]storage.SessionSummary, 0, len(s.sessions))
	for _, sess := range s.sessions {
		summaries = append(summaries, storage.SessionSummary{
			ID:        sess.ID,
			TurnCount: len(sess.History),
			CreatedAt: sess.CreatedAt,
			UpdatedAt: sess.UpdatedAt,
		})
	}

	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].UpdatedAt.After(summaries[j].UpdatedAt)
	})

	return paginate(summaries, opts.Limit, opts.Offset), nil
}

func (s *Store) RecordDecision(ctx context.Context, sessionID string, d domain.Decision) (*domain.AuditRecord, error) {
	if err := d.Validate(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.FailAudit {
		return nil, context.DeadlineExceeded
	}

	rec := domain.AuditRecord{
		ID:              s.nextID,
		SessionID:       sessionID,
		Topic:           d.Topic,
		Status:          d.Status,
		ResponseMessage: d.ResponseMessage,
		CreatedAt:       time.Now().UTC(),
	}
	s.nextID++
	s.audit = append(s.audit, rec)

	return &rec, nil
}

func (s *Store) ListAuditRecords(ctx context.Context, opts storage.AuditListOptions) ([]domain.AuditRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var records []domain.AuditRecord
	for _, r := range s.audit {
		if opts.SessionID != "" && r.SessionID != opts.SessionID {
			continue
		}
		if opts.Topic != "" && r.Topic != opts.Topic {
			continue
		}
		if opts.Status != "" && r.Status != opts.Status {
			continue
		}
		records = append(records, r)
	}

	// Newest-first, matching the SQLite ordering.
	sort.Slice(records, func(i, j int) bool {
		return records[i].ID > records[j].ID
	})

	return paginate(records, opts.Limit, opts.Offset), nil
}

func (s *Store) Close() error {
	return nil
}

func copySession(sess *domain.Session) *domain.Session {
	cp := *sess
	cp.History = make([]domain.Turn, len(sess.History))
	copy(cp.History, sess.History)
	return &cp
}

func paginate[T any](items []T, limit, offset int) []T {
	if limit == 0 {
		limit = 100
	}
	if offset >= len(items) {
		return nil
	}
	end := offset + limit
	if end > len(items) {
		end = len(items)
	}
	return items[offset:end]
}
