package classifier

import "encoding/json"

// decisionSchema is the JSON Schema constraint sent to the backend with every
// request. It mirrors the domain.Decision closed sets; the classifier still
// re-validates field by field because schema enforcement upstream is advisory.
const decisionSchema = `{
  "type": "object",
  "properties": {
    "topic": {
      "type": "string",
      "enum": ["LAB", "TWIN_APPOINTMENT", "OTHERS"]
    },
    "status": {
      "type": "string",
      "enum": ["classified", "escalate", "no_response"]
    },
    "response_message": {
      "type": "string"
    },
    "confidence": {
      "type": "number",
      "minimum": 0,
      "maximum": 1
    },
    "justification": {
      "type": "string"
    }
  },
  "required": ["topic", "status", "response_message", "confidence", "justification"],
  "additionalProperties": false
}`

// OutputSchema returns the decision schema as raw JSON.
func OutputSchema() json.RawMessage {
	return json.RawMessage(decisionSchema)
}
