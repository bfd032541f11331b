// Package sqlite is the durable SQLite implementation of the session and
// audit stores.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/twinhealth/chat-triage/internal/domain"
	"github.com/twinhealth/chat-triage/internal/storage"
)

// Store is a SQLite implementation of storage.Store.
type Store struct {
	db *sql.DB
}

var _ storage.Store = (*Store)(nil)

// New opens (or creates) the database at dbPath and initializes the schema.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Single connection: SQLite allows one writer at a time and the driver
	// reports lock contention as errors rather than waiting.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL; PRAGMA synchronous=NORMAL; PRAGMA foreign_keys=ON; PRAGMA busy_timeout=5000;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set pragmas: %w", err)
	}

	s := &Store{db: db}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return s, nil
}

func (s *Store) initSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS sessions (
			id TEXT PRIMARY KEY,
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS turns (
			id TEXT PRIMARY KEY,
			session_id TEXT NOT NULL,
			seq INTEGER NOT NULL,
			role TEXT NOT NULL,
			content TEXT NOT NULL,
			created_at TIMESTAMP NOT NULL,
			UNIQUE (session_id, seq),
			FOREIGN KEY (session_id) REFERENCES sessions(id) ON DELETE CASCADE
		)`,
		`CREATE TABLE IF NOT EXISTS audit_records (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			session_id TEXT NOT NULL,
			topic TEXT NOT NULL,
			status TEXT NOT NULL,
			response_message TEXT NOT NULL,
			created_at TIMESTAMP NOT NULL,
			FOREIGN KEY (session_id) REFERENCES sessions(id) ON DELETE CASCADE
		)`,
		`CREATE INDEX IF NOT EXISTS idx_turns_session ON turns(session_id, seq)`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_updated ON sessions(updated_at)`,
		`CREATE INDEX IF NOT EXISTS idx_audit_session ON audit_records(session_id, created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_audit_topic_status ON audit_records(topic, status)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to execute schema statement: %w", err)
		}
	}

	return nil
}

// GetOrCreateSession resolves id to its session, creating it on first
// contact. The INSERT ... ON CONFLICT DO NOTHING makes two concurrent first
// contacts under the same id resolve to a single row.
func (s *Store) GetOrCreateSession(ctx context.Context, id string) (*domain.Session, bool, error) {
	now := time.Now().UTC()

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO sessions (id, created_at, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(id) DO NOTHING`,
		id, now, now)
	if err != nil {
		return nil, false, fmt.Errorf("failed to create session: %w", err)
	}

	created := false
	if n, err := res.RowsAffected(); err == nil && n > 0 {
		created = true
	}

	sess, err := s.GetSession(ctx, id)
	if err != nil {
		return nil, false, err
	}
	return sess, created, nil
}

// GetSession returns the session with its full ordered history.
func (s *Store) GetSession(ctx context.Context, id string) (*domain.Session, error) {
	var sess domain.Session
	err := s.db.QueryRowContext(ctx,
		`SELECT id, created_at, updated_at FROM sessions WHERE id = ?`, id).
		Scan(&sess.ID, &sess.CreatedAt, &sess.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, storage.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	history, err := s.getTurns(ctx, id)
	if err != nil {
		return nil, err
	}
	sess.History = history

	return &sess, nil
}

func (s *Store) getTurns(ctx context.Context, sessionID string) ([]domain.Turn, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, session_id, seq, role, content, created_at
		 FROM turns WHERE session_id = ? ORDER BY seq ASC`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query turns: %w", err)
	}
	defer rows.Close()

	var turns []domain.Turn
	for rows.Next() {
		var t domain.Turn
		if err := rows.Scan(&t.ID, &t.SessionID, &t.Seq, &t.Role, &t.Content, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan turn: %w", err)
		}
		turns = append(turns, t)
	}

	return turns, rows.Err()
}

// AppendTurn appends one turn and refreshes the session's updated_at in a
// single transaction. The seq is assigned from the current history length, so
// insertion order is conversational order.
func (s *Store) AppendTurn(ctx context.Context, sessionID string, role domain.Role, content string) (*domain.Turn, error) {
	if !domain.ValidRole(role) {
		return nil, fmt.Errorf("invalid turn role %q", string(role))
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var exists int
	if err := tx.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM sessions WHERE id = ?`, sessionID).Scan(&exists); err != nil {
		return nil, fmt.Errorf("failed to check session: %w", err)
	}
	if exists == 0 {
		return nil, storage.ErrSessionNotFound
	}

	var next int
	if err := tx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(seq), -1) + 1 FROM turns WHERE session_id = ?`, sessionID).Scan(&next); err != nil {
		return nil, fmt.Errorf("failed to compute next seq: %w", err)
	}

	turn := &domain.Turn{
		ID:        "turn_" + uuid.New().String(),
		SessionID: sessionID,
		Seq:       next,
		Role:      role,
		Content:   content,
		CreatedAt: time.Now().UTC(),
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO turns (id, session_id, seq, role, content, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		turn.ID, turn.SessionID, turn.Seq, turn.Role, turn.Content, turn.CreatedAt); err != nil {
		return nil, fmt.Errorf("failed to insert turn: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE sessions SET updated_at = ? WHERE id = ?`, turn.CreatedAt, sessionID); err != nil {
		return nil, fmt.Errorf("failed to update session: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit turn: %w", err)
	}

	return turn, nil
}

// ListSessions returns sessions newest-first by updated_at.
func (s *Store) ListSessions(ctx context.Context, opts storage.ListOptions) ([]storage.SessionSummary, error) {
	limit := opts.Limit
	if limit == 0 {
		limit = 100
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT s.id, s.created_at, s.updated_at,
		        (SELECT COUNT(1) FROM turns t WHERE t.session_id = s.id) AS turn_count
		 FROM sessions s
		 ORDER BY s.updated_at DESC
		 LIMIT ? OFFSET ?`, limit, opts.Offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query sessions: %w", err)
	}
	defer rows.Close()

	var summaries []storage.SessionSummary
	for rows.Next() {
		var sum storage.SessionSummary
		if err := rows.Scan(&sum.ID, &sum.CreatedAt, &sum.UpdatedAt, &sum.TurnCount); err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		summaries = append(summaries, sum)
	}

	return summaries, rows.Err()
}

// RecordDecision writes one audit record. Write-once: there is no UPDATE or
// DELETE statement for audit_records anywhere in this package.
func (s *Store) RecordDecision(ctx context.Context, sessionID string, d domain.Decision) (*domain.AuditRecord, error) {
	if err := d.Validate(); err != nil {
		return nil, fmt.Errorf("refusing to record invalid decision: %w", err)
	}

	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO audit_records (session_id, topic, status, response_message, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		sessionID, d.Topic, d.Status, d.ResponseMessage, now)
	if err != nil {
		return nil, fmt.Errorf("failed to record decision: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to read audit record id: %w", err)
	}

	return &domain.AuditRecord{
		ID:              id,
		SessionID:       sessionID,
		Topic:           d.Topic,
		Status:          d.Status,
		ResponseMessage: d.ResponseMessage,
		CreatedAt:       now,
	}, nil
}

// ListAuditRecords returns audit records newest-first.
func (s *Store) ListAuditRecords(ctx context.Context, opts storage.AuditListOptions) ([]domain.AuditRecord, error) {
	query := `SELECT id, session_id, topic, status, response_message, created_at FROM audit_records WHERE 1=1`
	var args []any

	if opts.SessionID != "" {
		query += ` AND session_id = ?`
		args = append(args, opts.SessionID)
	}
	if opts.Topic != "" {
		query += ` AND topic = ?`
		args = append(args, opts.Topic)
	}
	if opts.Status != "" {
		query += ` AND status = ?`
		args = append(args, opts.Status)
	}

	limit := opts.Limit
	if limit == 0 {
		limit = 100
	}
	query += ` ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`
	args = append(args, limit, opts.Offset)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit records: %w", err)
	}
	defer rows.Close()

	var records []domain.AuditRecord
	for rows.Next() {
		var r domain.AuditRecord
		if err := rows.Scan(&r.ID, &r.SessionID, &r.Topic, &r.Status, &r.ResponseMessage, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan audit record: %w", err)
		}
		records = append(records, r)
	}

	return records, rows.Err()
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}
