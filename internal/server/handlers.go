package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/twinhealth/chat-triage/internal/domain"
	"github.com/twinhealth/chat-triage/internal/pipeline"
	"github.com/twinhealth/chat-triage/internal/storage"
)

type handlers struct {
	pipeline *pipeline.Pipeline
	store    storage.Store
	logger   *slog.Logger
}

func (h *handlers) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// chat processes one inbound message through the decision pipeline. Backend
// failures never surface here: they arrive as a normal outcome carrying an
// escalation status. Only input errors (400) and persistence failures (500)
// are error responses.
func (h *handlers) chat(w http.ResponseWriter, r *http.Request) {
	var req pipeline.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON in request body")
		return
	}

	outcome, err := h.pipeline.Process(r.Context(), req)
	if err != nil {
		AddError(r.Context(), err)
		if errors.Is(err, pipeline.ErrInvalidInput) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.logger.Error("turn processing failed",
			slog.String("request_id", GetRequestID(r.Context())),
			slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	AddLogField(r.Context(), "session_id", outcome.SessionID)
	writeJSON(w, http.StatusOK, outcome)
}

func (h *handlers) listSessions(w http.ResponseWriter, r *http.Request) {
	opts := storage.ListOptions{
		Limit:  queryInt(r, "limit"),
		Offset: queryInt(r, "offset"),
	}

	sessions, err := h.store.ListSessions(r.Context(), opts)
	if err != nil {
		AddError(r.Context(), err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if sessions == nil {
		sessions = []storage.SessionSummary{}
	}

	writeJSON(w, http.StatusOK, map[string]any{"sessions": sessions})
}

func (h *handlers) getSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	sess, err := h.store.GetSession(r.Context(), id)
	if err != nil {
		if errors.Is(err, storage.ErrSessionNotFound) {
			writeError(w, http.StatusNotFound, "session not found")
			return
		}
		AddError(r.Context(), err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	writeJSON(w, http.StatusOK, sess)
}

func (h *handlers) sessionAudit(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if _, err := h.store.GetSession(r.Context(), id); err != nil {
		if errors.Is(err, storage.ErrSessionNotFound) {
			writeError(w, http.StatusNotFound, "session not found")
			return
		}
		AddError(r.Context(), err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	records, err := h.store.ListAuditRecords(r.Context(), storage.AuditListOptions{
		SessionID: id,
		Limit:     queryInt(r, "limit"),
		Offset:    queryInt(r, "offset"),
	})
	if err != nil {
		AddError(r.Context(), err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if records == nil {
		records = []domain.AuditRecord{}
	}

	writeJSON(w, http.StatusOK, map[string]any{"audit_records": records})
}

func (h *handlers) listAudit(w http.ResponseWriter, r *http.Request) {
	opts := storage.AuditListOptions{
		Topic:  domain.Topic(r.URL.Query().Get("topic")),
		Status: domain.Status(r.URL.Query().Get("status")),
		Limit:  queryInt(r, "limit"),
		Offset: queryInt(r, "offset"),
	}
	if opts.Topic != "" && !domain.ValidTopic(opts.Topic) {
		writeError(w, http.StatusBadRequest, "unknown topic filter")
		return
	}
	if opts.Status != "" && !domain.ValidStatus(opts.Status) {
		writeError(w, http.StatusBadRequest, "unknown status filter")
		return
	}

	records, err := h.store.ListAuditRecords(r.Context(), opts)
	if err != nil {
		AddError(r.Context(), err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if records == nil {
		records = []domain.AuditRecord{}
	}

	writeJSON(w, http.StatusOK, map[string]any{"audit_records": records})
}

func queryInt(r *http.Request, key string) int {
	if v := r.URL.Query().Get(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			return n
		}
	}
	return 0
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
