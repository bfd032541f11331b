// Package pipeline orchestrates one turn-processing cycle: load or create the
// session, append the user turn, apply the short-circuit rule, otherwise
// classify, then persist the resulting decision and exactly one audit record.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/twinhealth/chat-triage/internal/classifier"
	"github.com/twinhealth/chat-triage/internal/domain"
	"github.com/twinhealth/chat-triage/internal/storage"
)

// ErrInvalidInput marks malformed requests: reported immediately, no session
// mutation.
var ErrInvalidInput = errors.New("invalid input")

// Request is one inbound message. SessionID may be empty, in which case a new
// unguessable identifier is generated.
type Request struct {
	SessionID string `json:"session_id"`
	Message   string `json:"message"`
}

// Outcome is what the caller receives for a successfully processed turn,
// fallback outcomes included.
type Outcome struct {
	SessionID string        `json:"session_id"`
	Topic     domain.Topic  `json:"topic"`
	Status    domain.Status `json:"status"`
	Response  string        `json:"response"`
}

// Pipeline is the per-turn decision procedure. Cycles for the same session id
// are serialized; cross-session cycles run fully in parallel.
type Pipeline struct {
	store      storage.Store
	classifier *classifier.Classifier
	logger     *slog.Logger
	tracer     trace.Tracer
	locks      *sessionLocks
}

// New creates a pipeline over the given store and classifier.
func New(store storage.Store, cl *classifier.Classifier, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		store:      store,
		classifier: cl,
		logger:     logger,
		tracer:     otel.Tracer("chat-triage/pipeline"),
		locks:      newSessionLocks(),
	}
}

// Process runs one turn-processing cycle to completion. Backend failures are
// absorbed into a fallback decision and still produce a normal outcome;
// persistence failures after the user-turn append return an error with the
// user turn left durable (deliberate: never lose the member's input).
func (p *Pipeline) Process(ctx context.Context, req Request) (*Outcome, error) {
	message := strings.TrimSpace(req.Message)
	if message == "" {
		return nil, fmt.Errorf("%w: message is required", ErrInvalidInput)
	}

	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = uuid.New().String()
	}

	release := p.locks.acquire(sessionID)
	defer release()

	ctx, span := p.tracer.Start(ctx, "triage.process_turn",
		trace.WithAttributes(attribute.String("session.id", sessionID)))
	defer span.End()

	sess, created, err := p.store.GetOrCreateSession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	if created {
		p.logger.Info("session created", slog.String("session_id", sessionID))
	}

	firstTurn := len(sess.History) == 0

	userTurn, err := p.store.AppendTurn(ctx, sessionID, domain.RoleUser, message)
	if err != nil {
		// Abort before any audit record: no orphaned audit entries for
		// turns that were never durably recorded.
		return nil, fmt.Errorf("append user turn: %w", err)
	}

	var decision domain.Decision
	shortCircuited := firstTurn && domain.IsGenericAck(message)
	if shortCircuited {
		decision = domain.GenericAckDecision()
		p.logger.Info("short-circuited generic acknowledgement",
			slog.String("session_id", sessionID))
	} else {
		history := append(sess.History, *userTurn)
		result := p.classifier.Classify(ctx, history)
		decision = result.Decision
		if result.Fallback {
			span.SetAttributes(attribute.String("triage.failure_class", string(result.FailureClass)))
			p.logger.Warn("classification fell back to escalation",
				slog.String("session_id", sessionID),
				slog.String("failure_class", string(result.FailureClass)))
		}
	}

	span.SetAttributes(
		attribute.String("triage.topic", string(decision.Topic)),
		attribute.String("triage.status", string(decision.Status)),
		attribute.Bool("triage.short_circuit", shortCircuited),
	)

	// Side effects, in order: assistant turn (when there is a response),
	// then exactly one audit record. Both must complete for the cycle to
	// report success.
	if decision.ResponseMessage != "" {
		if _, err := p.store.AppendTurn(ctx, sessionID, domain.RoleAssistant, decision.ResponseMessage); err != nil {
			return nil, fmt.Errorf("append assistant turn: %w", err)
		}
	}

	if _, err := p.store.RecordDecision(ctx, sessionID, decision); err != nil {
		return nil, fmt.Errorf("record decision: %w", err)
	}

	p.logger.Info("turn processed",
		slog.String("session_id", sessionID),
		slog.String("topic", string(decision.Topic)),
		slog.String("status", string(decision.Status)),
		slog.Bool("short_circuit", shortCircuited),
	)

	return &Outcome{
		SessionID: sessionID,
		Topic:     decision.Topic,
		Status:    decision.Status,
		Response:  decision.ResponseMessage,
	}, nil
}
