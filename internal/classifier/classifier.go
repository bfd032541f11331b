// Package classifier turns a serialized conversation into a single validated
// classification decision by invoking one configured reasoning backend. The
// backend's output is parsed and validated field by field here; any failure
// (transport, timeout, parse, schema) is converted into the designated
// fallback decision rather than an error.
package classifier

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/twinhealth/chat-triage/internal/backend"
	"github.com/twinhealth/chat-triage/internal/domain"
)

// Result is the outcome of one classification attempt. Decision is always
// fully populated and schema-valid; Fallback and FailureClass report whether
// it came from the backend or was manufactured locally.
type Result struct {
	Decision     domain.Decision
	Fallback     bool
	FailureClass FailureClass
}

// Classifier is the classification client: one backend, one attempt per
// call, a bounded invocation, and strict local validation.
type Classifier struct {
	backend backend.Backend
	timeout time.Duration
	logger  *slog.Logger
}

// New creates a classifier over the given backend. timeout bounds each
// invocation; zero means the caller's context alone bounds it.
func New(b backend.Backend, timeout time.Duration, logger *slog.Logger) *Classifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Classifier{backend: b, timeout: timeout, logger: logger}
}

// BackendName reports which backend is configured.
func (c *Classifier) BackendName() string {
	return c.backend.Name()
}

// Classify invokes the backend once over the ordered history and returns a
// validated decision or the fallback. No error crosses this boundary.
func (c *Classifier) Classify(ctx context.Context, history []domain.Turn) Result {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	serialized := SerializeHistory(history)
	req := &backend.Request{
		SystemInstructions: SystemInstructions(),
		UserPrompt:         UserPrompt(serialized),
		OutputSchema:       OutputSchema(),
	}

	raw, err := c.backend.Invoke(ctx, req)
	if err != nil {
		class := FailureTransport
		switch {
		case errors.Is(err, context.DeadlineExceeded):
			class = FailureTimeout
		case errors.Is(err, backend.ErrEmptyResponse):
			class = FailureEmpty
		}
		c.logger.Error("backend invocation failed",
			slog.String("backend", c.backend.Name()),
			slog.String("failure_class", string(class)),
			slog.String("error", err.Error()),
		)
		return Result{Decision: systemErrorDecision(class, err.Error()), Fallback: true, FailureClass: class}
	}

	decision, class, err := parseAndValidate(raw)
	if err != nil {
		c.logger.Error("backend output rejected",
			slog.String("backend", c.backend.Name()),
			slog.String("failure_class", string(class)),
			slog.String("error", err.Error()),
			slog.String("raw_output", truncateForLog(raw, 500)),
		)
		return Result{Decision: systemErrorDecision(class, err.Error()), Fallback: true, FailureClass: class}
	}

	return Result{Decision: decision}
}

// rawDecision is the untrusted wire shape of the backend output.
type rawDecision struct {
	Topic           string   `json:"topic"`
	Status          string   `json:"status"`
	ResponseMessage string   `json:"response_message"`
	Confidence      *float64 `json:"confidence"`
	Justification   string   `json:"justification"`
}

// parseAndValidate decodes the raw text and checks every field against the
// decision schema: closed-set membership for topic and status, numeric range
// for confidence, required presence for all fields.
func parseAndValidate(raw string) (domain.Decision, FailureClass, error) {
	var rd rawDecision
	if err := json.Unmarshal([]byte(stripCodeFences(raw)), &rd); err != nil {
		return domain.Decision{}, FailureParse, err
	}

	topic, ok := domain.NormalizeTopic(rd.Topic)
	if !ok {
		return domain.Decision{}, FailureValidation, errors.New("topic outside taxonomy: " + rd.Topic)
	}
	status, ok := domain.NormalizeStatus(rd.Status)
	if !ok {
		return domain.Decision{}, FailureValidation, errors.New("status outside closed set: " + rd.Status)
	}
	if rd.Confidence == nil {
		return domain.Decision{}, FailureValidation, errors.New("confidence missing")
	}

	response := rd.ResponseMessage
	if status == domain.StatusNoResponse {
		// The decision invariant requires an empty response for silent
		// turns; a model that supplied one anyway is normalized, not
		// rejected.
		response = ""
	}

	decision, err := domain.NewDecision(topic, status, response, *rd.Confidence, rd.Justification)
	if err != nil {
		return domain.Decision{}, FailureValidation, err
	}
	return decision, FailureNone, nil
}

// stripCodeFences removes a markdown code fence wrapper if the backend added
// one despite the output contract.
func stripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

func truncateForLog(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
