// Package genai wraps generative-model chat calls behind a small interface.
package genai

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

// ErrEmptyResponse is returned when the model produced no usable text.
var ErrEmptyResponse = errors.New("model returned empty response")

// Client generates text from a system instruction and a user message.
// Implementations must decode deterministically (zero sampling temperature).
type Client interface {
	Generate(ctx context.Context, system, user string) (string, error)
}

// OpenAIClient calls an OpenAI-compatible chat endpoint via langchaingo.
type OpenAIClient struct {
	model   llms.Model
	timeout time.Duration
}

// Options configures an OpenAIClient. BaseURL may be empty for the public
// endpoint; the API key is read from the OPENAI_API_KEY environment variable
// by the underlying client.
type Options struct {
	BaseURL string
	Model   string
	Timeout time.Duration
}

// NewOpenAIClient creates a chat client for the given model.
func NewOpenAIClient(opts Options) (*OpenAIClient, error) {
	clientOpts := []openai.Option{openai.WithModel(opts.Model)}
	if opts.BaseURL != "" {
		clientOpts = append(clientOpts, openai.WithBaseURL(opts.BaseURL))
	}
	model, err := openai.New(clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("create chat client: %w", err)
	}
	timeout := opts.Timeout
	if timeout == 0 {
		timeout = 60 * time.Second
	}
	return &OpenAIClient{model: model, timeout: timeout}, nil
}

// Generate runs a single zero-temperature chat completion.
func (c *OpenAIClient) Generate(ctx context.Context, system, user string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	content := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, system),
		llms.TextParts(llms.ChatMessageTypeHuman, user),
	}
	resp, err := c.model.GenerateContent(ctx, content, llms.WithTemperature(0.0))
	if err != nil {
		return "", fmt.Errorf("generate: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", ErrEmptyResponse
	}
	text := strings.TrimSpace(resp.Choices[0].Content)
	if text == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}
