package llm

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/adityapallipati/voice-agent/internal/config"
	"github.com/adityapallipati/voice-agent/internal/fault"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// AnthropicClient is the production Completer backed by the Anthropic
// Messages API. Every call is bounded by the configured timeout; a stuck
// model call must not stall concurrent webhook handlers or the sweep.
type AnthropicClient struct {
	client    anthropic.Client
	model     anthropic.Model
	maxTokens int64
	timeout   time.Duration
}

func NewAnthropicClient(cfg config.LLMConfig) (*AnthropicClient, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("llm: api key is required")
	}
	model := cfg.Model
	if model == "" {
		model = "claude-sonnet-4-20250514"
	}
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 1024
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &AnthropicClient{
		client:    anthropic.NewClient(option.WithAPIKey(cfg.APIKey)),
		model:     anthropic.Model(model),
		maxTokens: int64(maxTokens),
		timeout:   timeout,
	}, nil
}

func (c *AnthropicClient) Complete(ctx context.Context, prompt string) (string, error) {
	if strings.TrimSpace(prompt) == "" {
		return "", fault.Validation("prompt is empty")
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	msg, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     c.model,
		MaxTokens: c.maxTokens,
		// Classification and extraction want deterministic output.
		Temperature: anthropic.Float(0),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		return "", fault.External("llm", err)
	}

	var b strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			b.WriteString(block.Text)
		}
	}
	return b.String(), nil
}
