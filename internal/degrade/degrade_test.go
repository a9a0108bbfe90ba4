package degrade

import "testing"

func TestOk(t *testing.T) {
	r := Ok("text")
	if r.IsDegraded() {
		t.Error("Ok result reported degraded")
	}
	if r.Value != "text" {
		t.Errorf("value = %q, want %q", r.Value, "text")
	}
}

func TestDegraded(t *testing.T) {
	r := Degraded(3, "llm timeout")
	if !r.IsDegraded() {
		t.Error("Degraded result not reported degraded")
	}
	if r.Value != 3 || r.Reason != "llm timeout" {
		t.Errorf("got %+v", r)
	}

	if !Degraded(0, "").IsDegraded() {
		t.Error("empty reason should still be degraded")
	}
}
