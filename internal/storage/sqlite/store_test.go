package sqlite

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/twinhealth/chat-triage/internal/domain"
	"github.com/twinhealth/chat-triage/internal/storage"
)

func newTestStore(t *testing.T, name string) *Store {
	t.Helper()
	// In-memory SQLite with shared cache so all connections see one database.
	store, err := New(fmt.Sprintf("file:%s?mode=memory&cache=shared", name))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestGetOrCreateSession(t *testing.T) {
	store := newTestStore(t, "getorcreate")
	ctx := context.Background()

	sess, created, err := store.GetOrCreateSession(ctx, "sess-1")
	if err != nil {
		t.Fatalf("GetOrCreateSession() error = %v", err)
	}
	if !created {
		t.Errorf("created = false on first contact, want true")
	}
	if sess.ID != "sess-1" {
		t.Errorf("ID = %v, want sess-1", sess.ID)
	}

	again, created, err := store.GetOrCreateSession(ctx, "sess-1")
	if err != nil {
		t.Fatalf("GetOrCreateSession() second call error = %v", err)
	}
	if created {
		t.Errorf("created = true on second contact, want false")
	}
	if again.ID != sess.ID {
		t.Errorf("same id resolved to a different session")
	}
}

func TestGetOrCreateSession_Concurrent(t *testing.T) {
	store := newTestStore(t, "concurrent")
	ctx := context.Background()

	const workers = 8
	createdCount := make(chan bool, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, created, err := store.GetOrCreateSession(ctx, "race-sess")
			if err != nil {
				t.Errorf("GetOrCreateSession() error = %v", err)
				return
			}
			createdCount <- created
		}()
	}
	wg.Wait()
	close(createdCount)

	total := 0
	for created := range createdCount {
		if created {
			total++
		}
	}
	if total != 1 {
		t.Errorf("created reported true %d times, want exactly 1", total)
	}

	sessions, err := store.ListSessions(ctx, storage.ListOptions{})
	if err != nil {
		t.Fatalf("ListSessions() error = %v", err)
	}
	if len(sessions) != 1 {
		t.Errorf("session count = %d, want 1", len(sessions))
	}
}

func TestAppendTurn_RoundTrip(t *testing.T) {
	store := newTestStore(t, "roundtrip")
	ctx := context.Background()

	if _, _, err := store.GetOrCreateSession(ctx, "sess-rt"); err != nil {
		t.Fatalf("GetOrCreateSession() error = %v", err)
	}

	want := []struct {
		role    domain.Role
		content string
	}{
		{domain.RoleUser, "When will my lab results arrive?"},
		{domain.RoleAssistant, "Within 48 hours of the draw."},
		{domain.RoleUser, "ok"},
		{domain.RoleSystemNote, "escalated to care team"},
	}

	for _, turn := range want {
		if _, err := store.AppendTurn(ctx, "sess-rt", turn.role, turn.content); err != nil {
			t.Fatalf("AppendTurn(%v) error = %v", turn.role, err)
		}
	}

	sess, err := store.GetSession(ctx, "sess-rt")
	if err != nil {
		t.Fatalf("GetSession() error = %v", err)
	}

	if len(sess.History) != len(want) {
		t.Fatalf("history length = %d, want %d", len(sess.History), len(want))
	}
	for i, turn := range sess.History {
		if turn.Role != want[i].role || turn.Content != want[i].content {
			t.Errorf("turn %d = %s/%q, want %s/%q", i, turn.Role, turn.Content, want[i].role, want[i].content)
		}
		if turn.Seq != i {
			t.Errorf("turn %d seq = %d, want %d", i, turn.Seq, i)
		}
	}
}

func TestAppendTurn_UpdatesTimestamp(t *testing.T) {
	store := newTestStore(t, "timestamps")
	ctx := context.Background()

	sess, _, err := store.GetOrCreateSession(ctx, "sess-ts")
	if err != nil {
		t.Fatalf("GetOrCreateSession() error = %v", err)
	}

	if _, err := store.AppendTurn(ctx, "sess-ts", domain.RoleUser, "hello"); err != nil {
		t.Fatalf("AppendTurn() error = %v", err)
	}

	after, err := store.GetSession(ctx, "sess-ts")
	if err != nil {
		t.Fatalf("GetSession() error = %v", err)
	}
	if !after.UpdatedAt.After(sess.UpdatedAt) && !after.UpdatedAt.Equal(sess.UpdatedAt) {
		t.Errorf("updated_at went backwards: %v -> %v", sess.UpdatedAt, after.UpdatedAt)
	}
	if after.UpdatedAt.Equal(after.CreatedAt) {
		t.Logf("updated_at equals created_at; append was within clock resolution")
	}
}

func TestAppendTurn_UnknownSession(t *testing.T) {
	store := newTestStore(t, "unknownsess")

	_, err := store.AppendTurn(context.Background(), "nope", domain.RoleUser, "hi")
	if err != storage.ErrSessionNotFound {
		t.Errorf("AppendTurn() error = %v, want ErrSessionNotFound", err)
	}
}

func TestAppendTurn_RejectsUnknownRole(t *testing.T) {
	store := newTestStore(t, "badrole")
	ctx := context.Background()

	if _, _, err := store.GetOrCreateSession(ctx, "sess-role"); err != nil {
		t.Fatalf("GetOrCreateSession() error = %v", err)
	}

	if _, err := store.AppendTurn(ctx, "sess-role", domain.Role("moderator"), "hi"); err == nil {
		t.Errorf("AppendTurn() accepted a role outside the closed set")
	}
}

func TestRecordDecision_AndList(t *testing.T) {
	store := newTestStore(t, "audit")
	ctx := context.Background()

	if _, _, err := store.GetOrCreateSession(ctx, "sess-a"); err != nil {
		t.Fatalf("GetOrCreateSession() error = %v", err)
	}

	first, err := domain.NewDecision(domain.TopicLab, domain.StatusClassified, "48 hours", 0.9, "lab")
	if err != nil {
		t.Fatalf("NewDecision() error = %v", err)
	}
	second, err := domain.NewDecision(domain.TopicOthers, domain.StatusEscalate, domain.EscalationMessage, 0.0, "fallback")
	if err != nil {
		t.Fatalf("NewDecision() error = %v", err)
	}

	if _, err := store.RecordDecision(ctx, "sess-a", first); err != nil {
		t.Fatalf("RecordDecision() error = %v", err)
	}
	if _, err := store.RecordDecision(ctx, "sess-a", second); err != nil {
		t.Fatalf("RecordDecision() error = %v", err)
	}

	records, err := store.ListAuditRecords(ctx, storage.AuditListOptions{SessionID: "sess-a"})
	if err != nil {
		t.Fatalf("ListAuditRecords() error = %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("record count = %d, want 2", len(records))
	}
	// Newest first.
	if records[0].Topic != domain.TopicOthers || records[1].Topic != domain.TopicLab {
		t.Errorf("records not newest-first: %v then %v", records[0].Topic, records[1].Topic)
	}

	escalations, err := store.ListAuditRecords(ctx, storage.AuditListOptions{Status: domain.StatusEscalate})
	if err != nil {
		t.Fatalf("ListAuditRecords(status) error = %v", err)
	}
	if len(escalations) != 1 {
		t.Errorf("escalation count = %d, want 1", len(escalations))
	}
}

func TestRecordDecision_RejectsInvalid(t *testing.T) {
	store := newTestStore(t, "auditinvalid")
	ctx := context.Background()

	if _, _, err := store.GetOrCreateSession(ctx, "sess-b"); err != nil {
		t.Fatalf("GetOrCreateSession() error = %v", err)
	}

	bad := domain.Decision{Topic: domain.Topic("BOGUS"), Status: domain.StatusEscalate, Confidence: 0.5}
	if _, err := store.RecordDecision(ctx, "sess-b", bad); err == nil {
		t.Errorf("RecordDecision() accepted an invalid decision")
	}
}

func TestListSessions_NewestFirst(t *testing.T) {
	store := newTestStore(t, "listsessions")
	ctx := context.Background()

	for _, id := range []string{"s1", "s2", "s3"} {
		if _, _, err := store.GetOrCreateSession(ctx, id); err != nil {
			t.Fatalf("GetOrCreateSession(%s) error = %v", id, err)
		}
	}
	// Touch s1 so it becomes the most recently updated.
	if _, err := store.AppendTurn(ctx, "s1", domain.RoleUser, "hello"); err != nil {
		t.Fatalf("AppendTurn() error = %v", err)
	}

	sessions, err := store.ListSessions(ctx, storage.ListOptions{})
	if err != nil {
		t.Fatalf("ListSessions() error = %v", err)
	}
	if len(sessions) != 3 {
		t.Fatalf("session count = %d, want 3", len(sessions))
	}
	if sessions[0].ID != "s1" {
		t.Errorf("first session = %s, want s1 (most recently updated)", sessions[0].ID)
	}
	if sessions[0].TurnCount != 1 {
		t.Errorf("s1 turn count = %d, want 1", sessions[0].TurnCount)
	}
}

func TestGetSession_NotFound(t *testing.T) {
	store := newTestStore(t, "notfound")

	if _, err := store.GetSession(context.Background(), "missing"); err != storage.ErrSessionNotFound {
		t.Errorf("GetSession() error = %v, want ErrSessionNotFound", err)
	}
}
