package classifier

import (
	"strings"
	"testing"

	"github.com/twinhealth/chat-triage/internal/domain"
)

func TestSerializeHistory(t *testing.T) {
	turns := []domain.Turn{
		{Seq: 0, Role: domain.RoleUser, Content: "when is my blood draw"},
		{Seq: 1, Role: domain.RoleAssistant, Content: "Tomorrow at 9am."},
		{Seq: 2, Role: domain.RoleUser, Content: "do I fast before it"},
	}

	got := SerializeHistory(turns)
	want := "user: when is my blood draw\nassistant: Tomorrow at 9am.\nuser: do I fast before it"
	if got != want {
		t.Errorf("SerializeHistory() =\n%q\nwant\n%q", got, want)
	}
}

func TestSerializeHistory_Empty(t *testing.T) {
	if got := SerializeHistory(nil); got != "" {
		t.Errorf("SerializeHistory(nil) = %q, want empty", got)
	}
}

func TestTrimToBudget_DropsOldestFirst(t *testing.T) {
	turns := []domain.Turn{
		{Seq: 0, Role: domain.RoleUser, Content: strings.Repeat("old filler text ", 50)},
		{Seq: 1, Role: domain.RoleAssistant, Content: strings.Repeat("middle filler ", 50)},
		{Seq: 2, Role: domain.RoleUser, Content: "newest question"},
	}

	trimmed := trimToBudget(turns, 60)
	if len(trimmed) == 0 {
		t.Fatalf("trimToBudget() dropped everything")
	}
	last := trimmed[len(trimmed)-1]
	if last.Seq != 2 {
		t.Errorf("newest turn missing after trim; last seq = %d", last.Seq)
	}
	if len(trimmed) == len(turns) {
		t.Errorf("nothing was trimmed under a %d-token budget", 60)
	}
	// Whatever survives is a suffix of the original order.
	if trimmed[0].Seq != turns[len(turns)-len(trimmed)].Seq {
		t.Errorf("trim did not preserve a contiguous suffix")
	}
}

func TestTrimToBudget_NewestAlwaysSurvives(t *testing.T) {
	turns := []domain.Turn{
		{Seq: 0, Role: domain.RoleUser, Content: strings.Repeat("enormous ", 400)},
	}

	trimmed := trimToBudget(turns, 1)
	if len(trimmed) != 1 || trimmed[0].Seq != 0 {
		t.Errorf("sole turn was dropped under an impossible budget")
	}
}

func TestUserPrompt_WrapsHistory(t *testing.T) {
	got := UserPrompt("user: hello")
	if !strings.Contains(got, "user: hello") {
		t.Errorf("UserPrompt() missing serialized history:\n%s", got)
	}
	if !strings.Contains(got, "classify") && !strings.Contains(got, "classification") {
		t.Errorf("UserPrompt() missing classification ask:\n%s", got)
	}
}

func TestOutputSchema_EncodesClosedSets(t *testing.T) {
	schema := string(OutputSchema())
	for _, want := range []string{`"LAB"`, `"TWIN_APPOINTMENT"`, `"OTHERS"`, `"classified"`, `"escalate"`, `"no_response"`, `"additionalProperties"`} {
		if !strings.Contains(schema, want) {
			t.Errorf("schema missing %s", want)
		}
	}
}
