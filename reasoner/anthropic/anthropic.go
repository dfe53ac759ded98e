// Package anthropic provides a reasoner.Reasoner implementation backed by
// the Anthropic Messages API.
package anthropic

import (
	"context"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/hupe1980/intentmesh/reasoner"
)

const systemPrompt = "You are the reasoning engine of a goal-directed agent. " +
	"Answer precisely and follow the requested output format exactly."

// Options configure the Anthropic reasoner adapter (model id, temperature,
// max tokens, API key). Extend via functional options to preserve stability.
type Options struct {
	Model       anthropic.Model
	Temperature float64
	MaxTokens   int64
	APIKey      string
}

// Reasoner wraps the Anthropic Messages API behind the generic
// reasoner.Reasoner interface.
type Reasoner struct {
	client *anthropic.Client
	opts   Options
}

// New creates a new Anthropic reasoner using the official client.
func New(optFns ...func(o *Options)) *Reasoner {
	opts := Options{
		Model:       anthropic.ModelClaude3_5Sonnet20241022,
		Temperature: 0.7,
		MaxTokens:   4096,
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	var clientOpts []option.RequestOption
	if opts.APIKey != "" {
		clientOpts = append(clientOpts, option.WithAPIKey(opts.APIKey))
	}
	client := anthropic.NewClient(clientOpts...)

	return &Reasoner{client: &client, opts: opts}
}

// NewFromClient creates a new Anthropic reasoner from an existing client.
func NewFromClient(client *anthropic.Client, optFns ...func(o *Options)) *Reasoner {
	opts := Options{
		Model:       anthropic.ModelClaude3_5Sonnet20241022,
		Temperature: 0.7,
		MaxTokens:   4096,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Reasoner{client: client, opts: opts}
}

// Call implements reasoner.Reasoner.
func (r *Reasoner) Call(ctx context.Context, prompt string, shape reasoner.Shape) (reasoner.Result, error) {
	if instr := reasoner.FormatInstruction(shape); instr != "" {
		prompt = prompt + "\n\n" + instr
	}
	params := anthropic.MessageNewParams{
		Model:       r.opts.Model,
		MaxTokens:   r.opts.MaxTokens,
		Temperature: anthropic.Float(r.opts.Temperature),
		System:      []anthropic.TextBlockParam{{Text: systemPrompt}},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	}
	resp, err := r.client.Messages.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("anthropic api error: %w", err)
	}

	var sb strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			sb.WriteString(block.AsText().Text)
		}
	}
	raw := reasoner.StripFences(sb.String())
	if raw == "" {
		return nil, fmt.Errorf("anthropic: empty completion")
	}
	return reasoner.Decode(shape, raw)
}
