// Package conversation renders a segmented transcript as readable dialogue.
package conversation

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"care-assess/internal/degrade"
	"care-assess/internal/llm"
	"care-assess/internal/model"
)

const formatPrompt = `You format home care assessment transcripts as dialogue.

Rewrite the transcript as alternating lines of the form:
SpeakerName: "utterance"

Use the speaker names and roles provided. Keep every utterance in order and do not add commentary.`

type Formatter struct {
	llm *llm.Client
}

func New(client *llm.Client) *Formatter {
	return &Formatter{llm: client}
}

// Format never fails: if the model call does, the original text is returned
// unchanged as a degraded result.
func (f *Formatter) Format(ctx context.Context, text string, et model.EnhancedTranscript) degrade.Result[string] {
	out, err := f.llm.Text(ctx, formatPrompt, prompt(text, et))
	if err != nil {
		return degrade.Degraded(text, "conversation formatting failed: "+err.Error())
	}
	return degrade.Ok(out)
}

func prompt(text string, et model.EnhancedTranscript) string {
	var b strings.Builder
	if len(et.SpeakerRoles) > 0 {
		b.WriteString("Speakers:\n")
		names := make([]string, 0, len(et.SpeakerRoles))
		for name := range et.SpeakerRoles {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			fmt.Fprintf(&b, "- %s: %s\n", name, et.SpeakerRoles[name])
		}
		b.WriteString("\n")
	}
	if len(et.Segments) > 0 {
		b.WriteString("Speaker turns:\n")
		for _, s := range et.Segments {
			speaker := s.Speaker
			if speaker == "" {
				speaker = "Unknown"
			}
			fmt.Fprintf(&b, "[%s] %s\n", speaker, s.Text)
		}
		b.WriteString("\n")
	}
	b.WriteString("Transcript:\n")
	b.WriteString(text)
	return b.String()
}
