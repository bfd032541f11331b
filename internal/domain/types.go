package domain

import "time"

// Turn is one message within a session's ordered history. A turn has no
// identity outside its position; Seq is assigned by the store on append.
type Turn struct {
	ID        string    `json:"id"`
	SessionID string    `json:"session_id"`
	Seq       int       `json:"seq"`
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// Session is the durable record of one conversation, keyed by an opaque
// identifier supplied by the caller or generated on first contact. History is
// append-only from the pipeline's perspective.
type Session struct {
	ID        string    `json:"id"`
	History   []Turn    `json:"history"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// UserTurnCount returns the number of user turns in the session history.
func (s *Session) UserTurnCount() int {
	n := 0
	for _, t := range s.History {
		if t.Role == RoleUser {
			n++
		}
	}
	return n
}

// AuditRecord captures the decision actually taken for one turn-processing
// cycle. Records are write-once: created at the end of a cycle, never mutated.
type AuditRecord struct {
	ID              int64     `json:"id"`
	SessionID       string    `json:"session_id"`
	Topic           Topic     `json:"topic"`
	Status          Status    `json:"status"`
	ResponseMessage string    `json:"response_message"`
	CreatedAt       time.Time `json:"created_at"`
}
