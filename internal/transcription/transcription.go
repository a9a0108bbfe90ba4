// Package transcription turns an audio file into text with word timestamps.
package transcription

import (
	"context"
	"fmt"
	"os"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"care-assess/internal/model"
)

// Error is returned when the provider fails or gives unusable output.
type Error struct {
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause == nil {
		return "transcription: " + e.Message
	}
	return fmt.Sprintf("transcription: %s: %v", e.Message, e.Cause)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Client is the part of *openai.Client used here.
type Client interface {
	CreateTranscription(ctx context.Context, req openai.AudioRequest) (openai.AudioResponse, error)
}

// Result of one transcription.
type Result struct {
	Text     string
	Words    []model.Word
	Duration float64 // seconds, 0 when unknown
}

type Adapter struct {
	client Client
	model  string
}

func New(client Client, model string) *Adapter {
	if model == "" {
		model = openai.Whisper1
	}
	return &Adapter{client: client, model: model}
}

// Transcribe submits the file and asks for word level timestamps. There is no
// retry, every failure comes back as *Error.
func (a *Adapter) Transcribe(ctx context.Context, path string) (Result, error) {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return Result{}, &Error{Message: "file not found", Cause: err}
		}
		return Result{}, &Error{Message: "unreadable audio file", Cause: err}
	}

	resp, err := a.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    a.model,
		FilePath: path,
		Format:   openai.AudioResponseFormatVerboseJSON,
		TimestampGranularities: []openai.TranscriptionTimestampGranularity{
			openai.TranscriptionTimestampGranularityWord,
		},
	})
	if err != nil {
		return Result{}, &Error{Message: "provider call failed", Cause: err}
	}

	text := strings.TrimSpace(resp.Text)
	if text == "" {
		return Result{}, &Error{Message: "provider returned no text"}
	}

	words := make([]model.Word, 0, len(resp.Words))
	for _, w := range resp.Words {
		word := strings.TrimSpace(w.Word)
		if word == "" {
			continue
		}
		words = append(words, model.Word{Text: word, Start: w.Start, End: w.End})
	}

	return Result{Text: text, Words: words, Duration: resp.Duration}, nil
}
