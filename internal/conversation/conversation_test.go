package conversation

import (
	"context"
	"errors"
	"strings"
	"testing"

	"care-assess/internal/llm"
	"care-assess/internal/llm/llmtest"
	"care-assess/internal/model"
)

var sample = model.EnhancedTranscript{
	Segments: []model.Segment{
		{Text: "Hello, I'm David", Speaker: "David", SpeakerRole: "Social Worker"},
		{Text: "Oh hi David, I'm Ellie", Speaker: "Ellie", SpeakerRole: "Client"},
	},
	SpeakerRoles: map[string]string{"David": "Social Worker", "Ellie": "Client"},
}

func TestFormat(t *testing.T) {
	reply := "David: \"Hello, I'm David\"\nEllie: \"Oh hi David, I'm Ellie\""
	fake := llmtest.Replying(reply)

	res := New(llm.New(fake, "test")).Format(context.Background(), "Hello, I'm David. Oh hi David, I'm Ellie.", sample)
	if res.IsDegraded() {
		t.Fatalf("degraded: %s", res.Reason)
	}
	if res.Value != reply {
		t.Errorf("value = %q, want %q", res.Value, reply)
	}

	p := fake.LastUserPrompt()
	for _, want := range []string{"- David: Social Worker", "- Ellie: Client", "[Ellie] Oh hi David", "Transcript:\nHello"} {
		if !strings.Contains(p, want) {
			t.Errorf("prompt missing %q:\n%s", want, p)
		}
	}
}

func TestFormatReturnsInputOnFailure(t *testing.T) {
	text := "raw transcript text"
	res := New(llm.New(llmtest.Failing(errors.New("boom")), "test")).Format(context.Background(), text, sample)
	if !res.IsDegraded() {
		t.Error("expected degraded result")
	}
	if res.Value != text {
		t.Errorf("value = %q, want original %q", res.Value, text)
	}
}

func TestFormatEmptyReplyIsDegraded(t *testing.T) {
	res := New(llm.New(llmtest.Replying(""), "test")).Format(context.Background(), "raw", model.EnhancedTranscript{})
	if !res.IsDegraded() || res.Value != "raw" {
		t.Errorf("got %+v, want degraded raw", res)
	}
}
