package classifier

import (
	"fmt"
	"strings"
	"sync"

	"github.com/tiktoken-go/tokenizer"

	"github.com/twinhealth/chat-triage/internal/domain"
)

// ragContext is the fixed domain knowledge the backend classifies against.
// It is combined into the system instructions exactly once per invocation.
const ragContext = `You are the message-triage assistant for Twin Health, a metabolic care provider.
Classify the member's latest need from the full conversation into exactly one topic:

- LAB: lab appointments, lab results, blood draws, fasting instructions, lab report timing.
  Respond with the relevant guidance: lab results are available in the app within 48 hours of
  the draw; fasting is required for 10 hours before a metabolic panel; home phlebotomy visits
  can be rescheduled up to 4 hours in advance from the appointments tab.
- TWIN_APPOINTMENT: non-lab Twin Health appointments - coach check-ins, doctor consultations,
  sensor placements, onboarding calls. Respond with the relevant guidance: appointments can be
  viewed and rescheduled in the app under Care Team; doctor consultations require 24 hours
  notice to reschedule; sensor placement visits are confirmed by SMS the day before.
- OTHERS: anything else - billing, medical emergencies, symptoms, medication questions,
  complaints, or topics not covered above. These must be escalated to a human care
  specialist. Never answer medical or billing questions yourself.

Status rules:
- "classified": you matched LAB or TWIN_APPOINTMENT and produced a grounded response_message.
- "escalate": the topic is OTHERS, or you cannot answer confidently from the guidance above.
  The response_message must tell the member a care specialist will follow up.
- "no_response": the message needs no reply (bare acknowledgements); response_message must be empty.`

// outputContract is appended to the system instructions to pin the output
// format independent of any provider-side schema enforcement.
const outputContract = "Your task is strictly to analyze the conversation and output a single JSON object " +
	"that adheres to the provided schema. Do not generate any free-form text, markdown, or preamble."

// historyTokenBudget bounds the serialized history sent to the backend. When
// over budget, oldest turns are dropped whole; the newest turn always
// survives.
const historyTokenBudget = 6000

// SystemInstructions returns the fixed instruction block sent with every
// classification request.
func SystemInstructions() string {
	return ragContext + "\n\n" + outputContract
}

// SerializeHistory renders the ordered history as role-prefixed lines, the
// framing the backend prompt expects. Histories over the token budget lose
// their oldest turns first.
func SerializeHistory(history []domain.Turn) string {
	trimmed := trimToBudget(history, historyTokenBudget)

	var b strings.Builder
	for i, t := range trimmed {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "%s: %s", t.Role, t.Content)
	}
	return b.String()
}

// UserPrompt wraps the serialized history with the classification ask.
func UserPrompt(serializedHistory string) string {
	return "Analyze the following conversation history and classify the topic.\n" +
		"Conversation history:\n" +
		serializedHistory + "\n" +
		"Provide the complete classification decision JSON."
}

var (
	codecOnce sync.Once
	codec     tokenizer.Codec
	codecErr  error
)

func countTokens(s string) int {
	codecOnce.Do(func() {
		codec, codecErr = tokenizer.Get(tokenizer.Cl100kBase)
	})
	if codecErr != nil {
		// Rough fallback consistent with common BPE density.
		return len(s) / 4
	}
	ids, _, err := codec.Encode(s)
	if err != nil {
		return len(s) / 4
	}
	return len(ids)
}

func trimToBudget(history []domain.Turn, budget int) []domain.Turn {
	if len(history) == 0 {
		return history
	}

	total := 0
	costs := make([]int, len(history))
	for i, t := range history {
		costs[i] = countTokens(string(t.Role)+": "+t.Content) + 1
		total += costs[i]
	}

	start := 0
	for start < len(history)-1 && total > budget {
		total -= costs[start]
		start++
	}
	return history[start:]
}
