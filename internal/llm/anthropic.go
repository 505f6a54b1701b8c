// Anthropic realization of Provider. No in-pack file exercises this SDK
// directly; its presence is grounded on other_examples/Tangerg-lynx's
// models go.mod declaring anthropic-sdk-go as a dependency, and this
// adapter's shape mirrors the OpenAI adapter's own constructor/method
// pattern (NewClient via an API-key option, a narrow wrapper type) rather
// than a usage file copied from the pack — disclosed in DESIGN.md.
package llm

import (
	"context"
	"errors"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

const anthropicMaxTokens = 1024

// AnthropicProvider wraps an Anthropic messages client.
type AnthropicProvider struct {
	client *anthropic.Client
	model  string
}

// NewAnthropic constructs a client authenticated with apiKey, targeting model.
func NewAnthropic(apiKey, model string) *AnthropicProvider {
	client := anthropic.NewClient(option.WithAPIKey(apiKey))
	return &AnthropicProvider{client: &client, model: model}
}

func (p *AnthropicProvider) Name() string { return "anthropic" }

// Complete issues one messages.New call, returning the first content
// block's text.
func (p *AnthropicProvider) Complete(ctx context.Context, systemPrompt, userPrompt string, temperature float64) (string, error) {
	return timed(p.Name(), "complete", func() (string, error) {
		params := anthropic.MessageNewParams{
			Model:     anthropic.Model(p.model),
			MaxTokens: anthropicMaxTokens,
			Messages: []anthropic.MessageParam{
				anthropic.NewUserMessage(anthropic.NewTextBlock(userPrompt)),
			},
			Temperature: anthropic.Float(temperature),
		}
		if systemPrompt != "" {
			params.System = []anthropic.TextBlockParam{{Text: systemPrompt}}
		}

		resp, err := p.client.Messages.New(ctx, params)
		if err != nil {
			return "", fmt.Errorf("llm: anthropic message: %w", err)
		}
		if len(resp.Content) == 0 {
			return "", errors.New("llm: anthropic returned no content blocks")
		}
		return resp.Content[0].Text, nil
	})
}
