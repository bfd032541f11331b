package classifier

import "github.com/twinhealth/chat-triage/internal/domain"

// FailureClass tags why a classification attempt could not be trusted. It is
// diagnostic only; every class routes to the same fallback decision.
type FailureClass string

const (
	FailureNone       FailureClass = ""
	FailureTransport  FailureClass = "transport_error"
	FailureTimeout    FailureClass = "timeout"
	FailureEmpty      FailureClass = "empty_response"
	FailureParse      FailureClass = "parse_error"
	FailureValidation FailureClass = "schema_validation"
)

// systemErrorDecision manufactures the designated fallback decision. This is
// the single place in the system a fallback is built; callers above the
// classifier never see a raw backend error.
func systemErrorDecision(class FailureClass, detail string) domain.Decision {
	justification := "system error fallback (" + string(class) + ")"
	if detail != "" {
		justification += ": " + detail
	}
	return domain.Decision{
		Topic:           domain.TopicOthers,
		Status:          domain.StatusEscalate,
		ResponseMessage: domain.EscalationMessage,
		Confidence:      0.0,
		Justification:   justification,
	}
}
