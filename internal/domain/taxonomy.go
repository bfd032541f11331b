// Package domain defines the core types of the triage service: the topic
// taxonomy, conversation turns and sessions, classification decisions, and
// the audit record written once per processed turn.
package domain

import "strings"

// Topic is the closed topic taxonomy a message can be classified into.
type Topic string

const (
	TopicLab             Topic = "LAB"
	TopicTwinAppointment Topic = "TWIN_APPOINTMENT"
	TopicOthers          Topic = "OTHERS"
)

// Status is the action taken for a classified turn.
type Status string

const (
	StatusClassified Status = "classified"
	StatusEscalate   Status = "escalate"
	StatusNoResponse Status = "no_response"
)

// Role identifies the author of a turn.
type Role string

const (
	RoleUser       Role = "user"
	RoleAssistant  Role = "assistant"
	RoleSystemNote Role = "system-note"
)

// ValidTopic reports whether t is a member of the topic taxonomy.
func ValidTopic(t Topic) bool {
	switch t {
	case TopicLab, TopicTwinAppointment, TopicOthers:
		return true
	}
	return false
}

// ValidStatus reports whether s is a member of the status set.
func ValidStatus(s Status) bool {
	switch s {
	case StatusClassified, StatusEscalate, StatusNoResponse:
		return true
	}
	return false
}

// ValidRole reports whether r is a member of the role set.
func ValidRole(r Role) bool {
	switch r {
	case RoleUser, RoleAssistant, RoleSystemNote:
		return true
	}
	return false
}

// NormalizeTopic maps a raw backend value onto the taxonomy, tolerating case
// and surrounding whitespace. ok is false for values outside the closed set.
func NormalizeTopic(raw string) (Topic, bool) {
	t := Topic(strings.ToUpper(strings.TrimSpace(raw)))
	return t, ValidTopic(t)
}

// NormalizeStatus maps a raw backend value onto the status set.
func NormalizeStatus(raw string) (Status, bool) {
	s := Status(strings.ToLower(strings.TrimSpace(raw)))
	return s, ValidStatus(s)
}

// EscalationMessage is the fixed copy returned when classification cannot be
// trusted and the conversation is handed to a human specialist.
const EscalationMessage = "We're sorry, something went wrong while processing your message. " +
	"A Twin Health care specialist has been notified and will follow up with you shortly."

// genericAcks is the exact phrase set treated as conversational noise when it
// is the very first message of a session.
var genericAcks = map[string]struct{}{
	"ok":     {},
	"okay":   {},
	"thanks": {},
}

// IsGenericAck reports whether msg, case-insensitively trimmed, is one of the
// fixed generic acknowledgements.
func IsGenericAck(msg string) bool {
	_, ok := genericAcks[strings.ToLower(strings.TrimSpace(msg))]
	return ok
}
