// Package llmtest provides a scripted chat client for tests.
package llmtest

import (
	"context"
	"sync"

	openai "github.com/sashabaranov/go-openai"
)

// Fake answers chat completions with Reply and records every request.
type Fake struct {
	Reply func(req openai.ChatCompletionRequest) (string, error)

	mu       sync.Mutex
	requests []openai.ChatCompletionRequest
}

// Replying returns a Fake that always answers content.
func Replying(content string) *Fake {
	return &Fake{Reply: func(openai.ChatCompletionRequest) (string, error) { return content, nil }}
}

// Failing returns a Fake whose every call fails with err.
func Failing(err error) *Fake {
	return &Fake{Reply: func(openai.ChatCompletionRequest) (string, error) { return "", err }}
}

func (f *Fake) CreateChatCompletion(_ context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	f.mu.Unlock()

	content, err := f.Reply(req)
	if err != nil {
		return openai.ChatCompletionResponse{}, err
	}
	return openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{
			{Message: openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: content}},
		},
	}, nil
}

// Requests returns a copy of the requests seen so far.
func (f *Fake) Requests() []openai.ChatCompletionRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]openai.ChatCompletionRequest(nil), f.requests...)
}

// LastUserPrompt returns the user message of the latest request.
func (f *Fake) LastUserPrompt() string {
	reqs := f.Requests()
	if len(reqs) == 0 {
		return ""
	}
	msgs := reqs[len(reqs)-1].Messages
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Role == openai.ChatMessageRoleUser {
			return msgs[i].Content
		}
	}
	return ""
}
