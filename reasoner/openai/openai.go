// Package openai provides a reasoner.Reasoner implementation backed by the
// OpenAI Chat Completions API. It sends the prompt with a shape-specific
// output instruction and decodes the completion into the expected result
// variant.
package openai

import (
	"context"
	"fmt"

	"github.com/openai/openai-go"

	"github.com/hupe1980/intentmesh/reasoner"
)

const systemPrompt = "You are the reasoning engine of a goal-directed agent. " +
	"Answer precisely and follow the requested output format exactly."

// Options configure the OpenAI reasoner adapter. Fields mirror a subset of
// Chat Completion parameters intentionally kept minimal; extend via
// functional options without breaking callers.
type Options struct {
	Model               string
	Temperature         float64
	MaxCompletionTokens int64
}

// Reasoner wraps the OpenAI Chat Completions API behind the generic
// reasoner.Reasoner interface.
type Reasoner struct {
	client *openai.Client
	opts   Options
}

// New creates a new OpenAI reasoner using the official client.
func New(optFns ...func(o *Options)) *Reasoner {
	client := openai.NewClient()
	return NewFromClient(&client, optFns...)
}

// NewFromClient creates a new OpenAI reasoner from an existing client.
func NewFromClient(client *openai.Client, optFns ...func(o *Options)) *Reasoner {
	opts := Options{
		Model:               openai.ChatModelGPT4oMini,
		Temperature:         0.7,
		MaxCompletionTokens: 4096,
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
	params := openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(prompt),
		},
		Model:               r.opts.Model,
		Temperature:         openai.Float(r.opts.Temperature),
		MaxCompletionTokens: openai.Int(r.opts.MaxCompletionTokens),
	}
	resp, err := r.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("openai api error: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("openai: no choices returned")
	}
	raw := reasoner.StripFences(resp.Choices[0].Message.Content)
	return reasoner.Decode(shape, raw)
}
