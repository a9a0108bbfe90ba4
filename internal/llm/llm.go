// Package llm wraps chat completions used by the segmentation, formatting and
// assessment stages.
package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
	"github.com/sashabaranov/go-openai/jsonschema"
)

// ErrEmptyResponse is returned when the model produced no usable content.
var ErrEmptyResponse = errors.New("llm: empty response")

// ChatClient is the part of *openai.Client used here.
type ChatClient interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

type Client struct {
	api         ChatClient
	model       string
	temperature float32
}

func New(api ChatClient, model string) *Client {
	if model == "" {
		model = openai.GPT4oMini
	}
	return &Client{api: api, model: model}
}

// NewOpenAI builds a client for the OpenAI API or a compatible gateway.
func NewOpenAI(apiKey, baseURL, model string) *Client {
	return New(NewOpenAIAPI(apiKey, baseURL), model)
}

// NewOpenAIAPI returns the raw go-openai client, shared with transcription.
func NewOpenAIAPI(apiKey, baseURL string) *openai.Client {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return openai.NewClientWithConfig(cfg)
}

// Text returns the assistant message for a system + user prompt.
func (c *Client) Text(ctx context.Context, system, user string) (string, error) {
	return c.complete(ctx, openai.ChatCompletionRequest{
		Model:       c.model,
		Messages:    messages(system, user),
		Temperature: c.temperature,
	})
}

// JSON asks for output matching schema and decodes it into out.
func (c *Client) JSON(ctx context.Context, system, user, name string, schema jsonschema.Definition, out any) error {
	content, err := c.complete(ctx, openai.ChatCompletionRequest{
		Model:       c.model,
		Messages:    messages(system, user),
		Temperature: c.temperature,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONSchema,
			JSONSchema: &openai.ChatCompletionResponseFormatJSONSchema{
				Name:   name,
				Schema: &schema,
				Strict: true,
			},
		},
	})
	if err != nil {
		return err
	}
	raw := ExtractJSON(content)
	if raw == "" {
		return fmt.Errorf("no JSON object in llm output: %w", ErrEmptyResponse)
	}
	if err := json.Unmarshal([]byte(raw), out); err != nil {
		return fmt.Errorf("decode llm JSON: %w", err)
	}
	return nil
}

func (c *Client) complete(ctx context.Context, req openai.ChatCompletionRequest) (string, error) {
	resp, err := c.api.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", ErrEmptyResponse
	}
	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	if content == "" {
		return "", ErrEmptyResponse
	}
	return content, nil
}

func messages(system, user string) []openai.ChatCompletionMessage {
	return []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleSystem, Content: system},
		{Role: openai.ChatMessageRoleUser, Content: user},
	}
}

// ExtractJSON finds the first balanced JSON object in s, after stripping
// markdown fences. Braces inside string literals are skipped.
func ExtractJSON(s string) string {
	if s == "" {
		return ""
	}
	s = strings.ReplaceAll(s, "\r\n", "\n")
	for _, fence := range []string{"```json", "```"} {
		s = strings.ReplaceAll(s, fence, "")
	}

	start := strings.Index(s, "{")
	if start == -1 {
		return ""
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		ch := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}
		switch ch {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return strings.TrimSpace(s[start : i+1])
			}
		}
	}
	return ""
}
