package domain

import "fmt"

// Decision is the fully-populated outcome of classifying one turn. Values are
// constructed through NewDecision or the classifier's validation path, so a
// Decision in flight is always schema-valid.
type Decision struct {
	Topic           Topic   `json:"topic"`
	Status          Status  `json:"status"`
	ResponseMessage string  `json:"response_message"`
	Confidence      float64 `json:"confidence"`
	Justification   string  `json:"justification"`
}

// NewDecision builds a validated decision. It fails on any field outside the
// closed sets, a confidence outside [0, 1], or a non-empty response message
// paired with the no_response status.
func NewDecision(topic Topic, status Status, response string, confidence float64, justification string) (Decision, error) {
	d := Decision{
		Topic:           topic,
		Status:          status,
		ResponseMessage: response,
		Confidence:      confidence,
		Justification:   justification,
	}
	if err := d.Validate(); err != nil {
		return Decision{}, err
	}
	return d, nil
}

// Validate checks every field against the decision schema.
func (d Decision) Validate() error {
	if !ValidTopic(d.Topic) {
		return fmt.Errorf("invalid topic %q", string(d.Topic))
	}
	if !ValidStatus(d.Status) {
		return fmt.Errorf("invalid status %q", string(d.Status))
	}
	if d.Confidence < 0.0 || d.Confidence > 1.0 {
		return fmt.Errorf("confidence %v outside [0.0, 1.0]", d.Confidence)
	}
	if d.Status == StatusNoResponse && d.ResponseMessage != "" {
		return fmt.Errorf("response message must be empty when status is %s", StatusNoResponse)
	}
	return nil
}

// GenericAckDecision is the deterministic decision synthesized when the first
// message of a session is a bare acknowledgement.
func GenericAckDecision() Decision {
	return Decision{
		Topic:           TopicOthers,
		Status:          StatusNoResponse,
		ResponseMessage: "",
		Confidence:      1.0,
		Justification:   "generic acknowledgement on first turn; no backend call",
	}
}
