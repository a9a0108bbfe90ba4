package segmentation

import (
	"math"
	"strings"
	"unicode"

	"care-assess/internal/model"
)

const (
	// DefaultSecondsPerWord is the speaking rate assumed when a turn cannot
	// be matched to timestamps.
	DefaultSecondsPerWord = 0.5

	leadWords  = 3 // leading turn words compared against the timeline
	lookahead  = 3 // unconsumed words a turn may start at
	prefixRune = 3 // runes two words must share to be considered the same
)

// Aligner assigns time ranges to speaker turns.
type Aligner interface {
	Align(turns []Turn, words []model.Word) []model.Segment
}

// PrefixAligner walks the word timeline once, matching the leading words of
// each turn by their first few letters. Turns that do not match get an
// estimated range and the cursor still moves forward by their word count.
type PrefixAligner struct {
	SecondsPerWord float64
}

func (a PrefixAligner) Align(turns []Turn, words []model.Word) []model.Segment {
	segments, _ := a.align(turns, words)
	return segments
}

// align also returns the cursor position after each turn.
func (a PrefixAligner) align(turns []Turn, words []model.Word) ([]model.Segment, []int) {
	spw := a.SecondsPerWord
	if spw <= 0 {
		spw = DefaultSecondsPerWord
	}

	segments := make([]model.Segment, 0, len(turns))
	cursors := make([]int, 0, len(turns))

	cursor := 0
	var prevStart, prevEnd float64
	for _, turn := range turns {
		tokens := strings.Fields(turn.Text)
		seg := model.Segment{
			Text:        strings.TrimSpace(turn.Text),
			Speaker:     turn.Speaker,
			SpeakerRole: turn.SpeakerRole,
		}

		if at, ok := findLead(tokens, words, cursor); ok {
			last := min(at+len(tokens), len(words)) - 1
			seg.Start = math.Max(words[at].Start, prevStart)
			seg.End = math.Max(words[last].End, seg.Start)
			cursor = last + 1
		} else {
			start := prevEnd
			if cursor < len(words) {
				start = math.Max(words[cursor].Start, prevEnd)
			}
			seg.Start = start
			seg.End = start + spw*float64(len(tokens))
			cursor = min(cursor+len(tokens), len(words))
		}

		prevStart, prevEnd = seg.Start, seg.End
		segments = append(segments, seg)
		cursors = append(cursors, cursor)
	}
	return segments, cursors
}

// findLead returns the index, within lookahead of cursor, where the leading
// tokens of a turn match the timeline.
func findLead(tokens []string, words []model.Word, cursor int) (int, bool) {
	if len(tokens) == 0 {
		return 0, false
	}
	lead := tokens[:min(leadWords, len(tokens))]
	for off := 0; off < lookahead && cursor+off < len(words); off++ {
		if leadMatches(lead, words[cursor+off:]) {
			return cursor + off, true
		}
	}
	return 0, false
}

func leadMatches(lead []string, words []model.Word) bool {
	n := 0
	for i := 0; i < len(lead) && i < len(words); i++ {
		if !sameWord(lead[i], words[i].Text) {
			return false
		}
		n++
	}
	return n > 0
}

func sameWord(a, b string) bool {
	return prefix(normalize(a)) == prefix(normalize(b))
}

func normalize(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func prefix(s string) string {
	r := []rune(s)
	if len(r) > prefixRune {
		r = r[:prefixRune]
	}
	return string(r)
}

// ChunkWords emits one generic-speaker segment per size words.
func ChunkWords(words []model.Word, size int) []model.Segment {
	if size <= 0 {
		size = 10
	}
	segments := make([]model.Segment, 0, (len(words)+size-1)/size)
	var prevStart float64
	for i := 0; i < len(words); i += size {
		chunk := words[i:min(i+size, len(words))]
		texts := make([]string, len(chunk))
		for j, w := range chunk {
			texts[j] = w.Text
		}
		start := math.Max(chunk[0].Start, prevStart)
		segments = append(segments, model.Segment{
			Start:       start,
			End:         math.Max(chunk[len(chunk)-1].End, start),
			Text:        strings.Join(texts, " "),
			Speaker:     GenericSpeaker,
			SpeakerRole: GenericRole,
		})
		prevStart = start
	}
	return segments
}

// WholeText is a single generic segment covering the recording, or
// DefaultDuration seconds when the length is unknown.
func WholeText(text string, duration float64) []model.Segment {
	if duration <= 0 {
		duration = DefaultDuration
	}
	return []model.Segment{{
		Start:       0,
		End:         duration,
		Text:        strings.TrimSpace(text),
		Speaker:     GenericSpeaker,
		SpeakerRole: GenericRole,
	}}
}
