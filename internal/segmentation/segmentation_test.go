package segmentation

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"care-assess/internal/llm"
	"care-assess/internal/llm/llmtest"
	"care-assess/internal/model"
)

const davidEllie = `{"turns":[
	{"text":"Hello, I'm David","speaker":"David","speakerRole":"Social Worker"},
	{"text":"Oh hi David, I'm Ellie","speaker":"Ellie","speakerRole":"Client"}
]}`

func engine(fake *llmtest.Fake) *Engine {
	return New(llm.New(fake, "test"))
}

func TestSegmentTwoSpeakers(t *testing.T) {
	text := "Hello, I'm David. Oh hi David, I'm Ellie."
	words := timeline(text, 0, 0.5)

	res := engine(llmtest.Replying(davidEllie)).Segment(context.Background(), text, words, 4)
	if res.IsDegraded() {
		t.Fatalf("degraded: %s", res.Reason)
	}
	et := res.Value
	if len(et.Segments) != 2 {
		t.Fatalf("segments = %d, want 2", len(et.Segments))
	}
	if !reflect.DeepEqual(et.Speakers, []string{"David", "Ellie"}) {
		t.Errorf("speakers = %v, want [David Ellie]", et.Speakers)
	}
	wantRoles := map[string]string{"David": "Social Worker", "Ellie": "Client"}
	if !reflect.DeepEqual(et.SpeakerRoles, wantRoles) {
		t.Errorf("roles = %v, want %v", et.SpeakerRoles, wantRoles)
	}
	if et.FullText != text {
		t.Errorf("full text = %q", et.FullText)
	}
	if et.Segments[0].Speaker != "David" || et.Segments[1].Speaker != "Ellie" {
		t.Errorf("segment speakers = %q, %q", et.Segments[0].Speaker, et.Segments[1].Speaker)
	}
}

func TestIdentifySpeakersFallbackOnFailure(t *testing.T) {
	res := engine(llmtest.Failing(errors.New("timeout"))).IdentifySpeakers(context.Background(), "some words here")
	if !res.IsDegraded() {
		t.Fatal("expected degraded result")
	}
	if len(res.Value) != 1 || res.Value[0].Text != "some words here" || res.Value[0].Speaker != GenericSpeaker {
		t.Errorf("fallback turns = %+v", res.Value)
	}
}

func TestIdentifySpeakersDropsEmptyTurns(t *testing.T) {
	reply := `{"turns":[{"text":"  ","speaker":"A","speakerRole":"Client"},{"text":"hi","speaker":" Ben ","speakerRole":"Carer"}]}`
	res := engine(llmtest.Replying(reply)).IdentifySpeakers(context.Background(), "hi")
	if res.IsDegraded() {
		t.Fatalf("degraded: %s", res.Reason)
	}
	if len(res.Value) != 1 || res.Value[0].Speaker != "Ben" {
		t.Errorf("turns = %+v", res.Value)
	}
}

func TestIdentifySpeakersNoTurns(t *testing.T) {
	res := engine(llmtest.Replying(`{"turns":[]}`)).IdentifySpeakers(context.Background(), "hi there")
	if !res.IsDegraded() {
		t.Error("expected degraded result for empty turn list")
	}
}

func TestSegmentChunksWordsWhenIdentificationFails(t *testing.T) {
	words := timeline("a b c d e f g h i j k l", 0, 1)
	res := engine(llmtest.Replying("not json")).Segment(context.Background(), "a b c d e f g h i j k l", words, 0)
	if !res.IsDegraded() {
		t.Fatal("expected degraded result")
	}
	if len(res.Value.Segments) != 2 {
		t.Errorf("segments = %d, want 2 chunks", len(res.Value.Segments))
	}
	if !reflect.DeepEqual(res.Value.Speakers, []string{GenericSpeaker}) {
		t.Errorf("speakers = %v", res.Value.Speakers)
	}
}

func TestSegmentWholeTextWithoutWords(t *testing.T) {
	res := engine(llmtest.Failing(errors.New("down"))).Segment(context.Background(), "we talked", nil, 0)
	if !res.IsDegraded() {
		t.Fatal("expected degraded result")
	}
	segs := res.Value.Segments
	if len(segs) != 1 || segs[0].Start != 0 || segs[0].End != DefaultDuration {
		t.Errorf("segments = %+v", segs)
	}
}

func TestSegmentCustomAligner(t *testing.T) {
	fixed := alignerFunc(func(turns []Turn, _ []model.Word) []model.Segment {
		return []model.Segment{{Start: 1, End: 2, Text: "x", Speaker: turns[0].Speaker}}
	})
	e := NewWithAligner(llm.New(llmtest.Replying(davidEllie), "test"), fixed)

	res := e.Segment(context.Background(), "Hello", nil, 0)
	if len(res.Value.Segments) != 1 || res.Value.Segments[0].Speaker != "David" {
		t.Errorf("segments = %+v", res.Value.Segments)
	}
}

type alignerFunc func([]Turn, []model.Word) []model.Segment

func (f alignerFunc) Align(turns []Turn, words []model.Word) []model.Segment { return f(turns, words) }

func TestEnhanceRolesLastWriteWins(t *testing.T) {
	et := Enhance("t", []model.Segment{
		{Speaker: "Ann", SpeakerRole: "Client"},
		{Speaker: ""},
		{Speaker: "Bob", SpeakerRole: "Carer"},
		{Speaker: "Ann", SpeakerRole: "Family Member"},
		{Speaker: "Ann"},
	})
	if !reflect.DeepEqual(et.Speakers, []string{"Ann", "Bob"}) {
		t.Errorf("speakers = %v", et.Speakers)
	}
	if et.SpeakerRoles["Ann"] != "Family Member" {
		t.Errorf("Ann role = %q, want %q", et.SpeakerRoles["Ann"], "Family Member")
	}
}
