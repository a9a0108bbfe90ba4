// Package segmentation splits a transcript into speaker turns and places
// them on the audio timeline.
package segmentation

import (
	"context"
	"strings"

	"github.com/sashabaranov/go-openai/jsonschema"

	"care-assess/internal/degrade"
	"care-assess/internal/llm"
	"care-assess/internal/model"
)

const (
	GenericSpeaker = "Speaker 1"
	GenericRole    = "Unknown"

	// DefaultDuration in seconds for a recording of unknown length.
	DefaultDuration = 60.0

	chunkSize = 10
)

// Turn is one speaker turn as identified by the model.
type Turn struct {
	Text        string `json:"text"`
	Speaker     string `json:"speaker"`
	SpeakerRole string `json:"speakerRole"`
}

const identifyPrompt = `You split home care assessment conversations into speaker turns.

Split the transcript into consecutive turns in conversation order. For each turn give:
- text: the exact words spoken in that turn
- speaker: the speaker's real name if it is mentioned in the dialogue, otherwise a generic label such as "Speaker 1"
- speakerRole: one of "Social Worker", "Client", "Family Member", "Carer", "Other"

Do not summarise, reorder or drop any words.`

var turnsSchema = jsonschema.Definition{
	Type: jsonschema.Object,
	Properties: map[string]jsonschema.Definition{
		"turns": {
			Type: jsonschema.Array,
			Items: &jsonschema.Definition{
				Type: jsonschema.Object,
				Properties: map[string]jsonschema.Definition{
					"text":        {Type: jsonschema.String},
					"speaker":     {Type: jsonschema.String},
					"speakerRole": {Type: jsonschema.String},
				},
				Required:             []string{"text", "speaker", "speakerRole"},
				AdditionalProperties: false,
			},
		},
	},
	Required:             []string{"turns"},
	AdditionalProperties: false,
}

type Engine struct {
	llm     *llm.Client
	aligner Aligner
}

func New(client *llm.Client) *Engine {
	return NewWithAligner(client, PrefixAligner{SecondsPerWord: DefaultSecondsPerWord})
}

func NewWithAligner(client *llm.Client, aligner Aligner) *Engine {
	return &Engine{llm: client, aligner: aligner}
}

// IdentifySpeakers asks the model for speaker turns. On any failure the
// whole text comes back as one generic turn.
func (e *Engine) IdentifySpeakers(ctx context.Context, text string) degrade.Result[[]Turn] {
	text = strings.TrimSpace(text)
	fallback := []Turn{{Text: text, Speaker: GenericSpeaker, SpeakerRole: GenericRole}}
	if text == "" {
		return degrade.Degraded(fallback, "empty transcript")
	}

	var out struct {
		Turns []Turn `json:"turns"`
	}
	if err := e.llm.JSON(ctx, identifyPrompt, text, "speaker_turns", turnsSchema, &out); err != nil {
		return degrade.Degraded(fallback, "speaker identification failed: "+err.Error())
	}

	turns := make([]Turn, 0, len(out.Turns))
	for _, t := range out.Turns {
		t.Text = strings.TrimSpace(t.Text)
		if t.Text == "" {
			continue
		}
		t.Speaker = strings.TrimSpace(t.Speaker)
		t.SpeakerRole = strings.TrimSpace(t.SpeakerRole)
		turns = append(turns, t)
	}
	if len(turns) == 0 {
		return degrade.Degraded(fallback, "no speaker turns in model output")
	}
	return degrade.Ok(turns)
}

// Segment builds the enhanced transcript. Identified turns are aligned to
// the word timeline; without turns the words are chunked, and without words
// either the whole text becomes one segment.
func (e *Engine) Segment(ctx context.Context, text string, words []model.Word, duration float64) degrade.Result[model.EnhancedTranscript] {
	turns := e.IdentifySpeakers(ctx, text)

	switch {
	case !turns.IsDegraded():
		return degrade.Ok(Enhance(text, e.aligner.Align(turns.Value, words)))
	case len(words) > 0:
		return degrade.Degraded(Enhance(text, ChunkWords(words, chunkSize)), turns.Reason)
	default:
		return degrade.Degraded(Enhance(text, WholeText(text, duration)), turns.Reason)
	}
}

// Enhance derives the speaker list, in order of first appearance, and the
// speaker to role map. A later non-empty role for the same speaker wins.
func Enhance(text string, segments []model.Segment) model.EnhancedTranscript {
	if segments == nil {
		segments = []model.Segment{}
	}
	speakers := []string{}
	roles := map[string]string{}
	seen := map[string]bool{}
	for _, s := range segments {
		if s.Speaker == "" {
			continue
		}
		if !seen[s.Speaker] {
			seen[s.Speaker] = true
			speakers = append(speakers, s.Speaker)
		}
		if s.SpeakerRole != "" {
			roles[s.Speaker] = s.SpeakerRole
		}
	}
	return model.EnhancedTranscript{
		FullText:     strings.TrimSpace(text),
		Segments:     segments,
		Speakers:     speakers,
		SpeakerRoles: roles,
	}
}
