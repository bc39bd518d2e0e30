// Package ai holds the remote collaborators discovery consumes: an embedding
// client, an LLM-backed entity recognizer and a narrative generator. Each
// call goes through retry with backoff and a per-collaborator circuit breaker,
// so a failing service degrades quickly instead of stalling a run.
package ai

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// Model constants for Anthropic Claude models
const (
	ModelSonnet = "claude-sonnet-4-5-20250929"
	ModelHaiku  = "claude-3-5-haiku-20241022"
)

// Completer sends one prompt to a language model and returns its text
type Completer interface {
	Complete(ctx context.Context, model string, maxTokens int, prompt string) (string, error)
}

// AnthropicCompleter is a Completer backed by the Anthropic Messages API
type AnthropicCompleter struct {
	client anthropic.Client
}

// NewAnthropicCompleter creates a completer. An empty apiKey reads
// ANTHROPIC_API_KEY.
func NewAnthropicCompleter(apiKey string) (*AnthropicCompleter, error) {
	if apiKey == "" {
		apiKey = os.Getenv("ANTHROPIC_API_KEY")
	}
	if apiKey == "" {
		return nil, fmt.Errorf("ANTHROPIC_API_KEY environment variable is required")
	}
	return &AnthropicCompleter{client: anthropic.NewClient(option.WithAPIKey(apiKey))}, nil
}

// Complete implements Completer
func (a *AnthropicCompleter) Complete(ctx context.Context, model string, maxTokens int, prompt string) (string, error) {
	response, err := a.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(model),
		MaxTokens: int64(maxTokens),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		return "", fmt.Errorf("anthropic API call failed: %w", err)
	}

	var b strings.Builder
	for _, block := range response.Content {
		if block.Type == "text" {
			b.WriteString(block.Text)
		}
	}
	if b.Len() == 0 {
		return "", fmt.Errorf("anthropic response contained no text")
	}
	return b.String(), nil
}
