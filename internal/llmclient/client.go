// Package llmclient is the LLM Service collaborator (spec.md §6):
// a thin wrapper over a langchaingo llms.Model that adds token
// accounting via tiktoken-go, grounded on the teacher's
// internal/llm/config.go (model construction) and
// internal/inference/pipeline.go (tokenizer lifecycle).
package llmclient

import (
	"context"
	"fmt"

	"github.com/pkoukk/tiktoken-go"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

// Config is the connection and model-selection configuration for one
// LLM backend, the generalized form of the teacher's ModelConfig.
type Config struct {
	ModelName string
	APIKey    string
	BaseURL   string
}

// Usage records the token accounting for one Complete call.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
}

func (u Usage) Total() int {
	return u.PromptTokens + u.CompletionTokens
}

// Client is the LLM Service collaborator: it completes prompts and
// reports token usage, so callers never need to touch the tokenizer
// or the underlying llms.Model directly.
type Client struct {
	model     llms.Model
	tokenizer *tiktoken.Tiktoken
}

// New builds a Client from cfg, mirroring the teacher's CreateLLM.
func New(cfg Config) (*Client, error) {
	model, err := openai.New(
		openai.WithModel(cfg.ModelName),
		openai.WithToken(cfg.APIKey),
		openai.WithBaseURL(cfg.BaseURL),
	)
	if err != nil {
		return nil, fmt.Errorf("llmclient: building model: %w", err)
	}

	tokenizer, err := tiktoken.GetEncoding("cl100k_base")
	if err != nil {
		return nil, fmt.Errorf("llmclient: loading tokenizer: %w", err)
	}

	return &Client{model: model, tokenizer: tokenizer}, nil
}

// NewFromModel wraps an already-constructed llms.Model, used by tests
// to inject a fake model without a real API key.
func NewFromModel(model llms.Model) (*Client, error) {
	tokenizer, err := tiktoken.GetEncoding("cl100k_base")
	if err != nil {
		return nil, fmt.Errorf("llmclient: loading tokenizer: %w", err)
	}
	return &Client{model: model, tokenizer: tokenizer}, nil
}

// Complete sends prompt to the model and returns its text response
// plus the token usage for the exchange.
func (c *Client) Complete(ctx context.Context, prompt string) (string, Usage, error) {
	response, err := llms.GenerateFromSinglePrompt(ctx, c.model, prompt)
	if err != nil {
		return "", Usage{}, fmt.Errorf("llmclient: generate: %w", err)
	}

	usage := Usage{
		PromptTokens:     c.CountTokens(prompt),
		CompletionTokens: c.CountTokens(response),
	}
	return response, usage, nil
}

// CompleteText is Complete without the usage return, the same shape as
// the Complete method of the narrow Completer interfaces internal/intent
// and internal/sqlgen depend on; internal/planner adapts a Client to
// them, so neither package imports llmclient directly.
func (c *Client) CompleteText(ctx context.Context, prompt string) (string, error) {
	text, _, err := c.Complete(ctx, prompt)
	return text, err
}

// CountTokens returns the cl100k_base token count for text.
func (c *Client) CountTokens(text string) int {
	return len(c.tokenizer.Encode(text, nil, nil))
}

// Model exposes the underlying llms.Model for callers that need it
// directly rather than going through Complete. Nothing in this module
// calls it.
func (c *Client) Model() llms.Model {
	return c.model
}
