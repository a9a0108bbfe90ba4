package model

// Word is a single transcribed word with its time range in seconds.
type Word struct {
	Text  string  `json:"word"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// Segment is one speaker turn aligned to the audio timeline.
type Segment struct {
	Start       float64 `json:"start"`
	End         float64 `json:"end"`
	Text        string  `json:"text"`
	Speaker     string  `json:"speaker,omitempty"`
	SpeakerRole string  `json:"speakerRole,omitempty"`
}

// EnhancedTranscript is the structured form of a transcript stored as JSON
// on the Transcript row.
type EnhancedTranscript struct {
	FullText         string            `json:"fullText"`
	Segments         []Segment         `json:"segments"`
	Speakers         []string          `json:"speakers"`
	SpeakerRoles     map[string]string `json:"speakerRoles"`
	ConversationText string            `json:"conversationFormat,omitempty"`
}

// Sections maps a section key to its text.
type Sections map[string]string

// MergeSections overlays generated onto existing. Keys in generated replace
// or extend existing ones, unrelated existing keys are kept. Neither input is
// modified, and merging the same generated map twice gives the same result as
// merging it once.
func MergeSections(existing, generated Sections) Sections {
	out := make(Sections, len(existing)+len(generated))
	for k, v := range existing {
		out[k] = v
	}
	for k, v := range generated {
		out[k] = v
	}
	return out
}
