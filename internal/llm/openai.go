// OpenAI realization of Provider, grounded on other_examples/Tangerg-lynx's
// openai adapter shape: a thin struct wrapping *openai.Client constructed
// via option.WithAPIKey, exposing a narrow method set rather than the full
// SDK surface.
package llm

import (
	"context"
	"errors"
	"fmt"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

// OpenAIProvider wraps an OpenAI chat-completions client.
type OpenAIProvider struct {
	client *openai.Client
	model  string
}

// NewOpenAI constructs a client authenticated with apiKey, targeting model.
func NewOpenAI(apiKey, model string) *OpenAIProvider {
	client := openai.NewClient(option.WithAPIKey(apiKey))
	return &OpenAIProvider{client: &client, model: model}
}

func (p *OpenAIProvider) Name() string { return "openai" }

// Complete issues one chat-completion call with the given system/user
// prompts and temperature, returning the first choice's message content.
func (p *OpenAIProvider) Complete(ctx context.Context, systemPrompt, userPrompt string, temperature float64) (string, error) {
	return timed(p.Name(), "complete", func() (string, error) {
		messages := []openai.ChatCompletionMessageParamUnion{}
		if systemPrompt != "" {
			messages = append(messages, openai.SystemMessage(systemPrompt))
		}
		messages = append(messages, openai.UserMessage(userPrompt))

		params := openai.ChatCompletionNewParams{
			Model:       p.model,
			Messages:    messages,
			Temperature: openai.Float(temperature),
		}

		resp, err := p.client.Chat.Completions.New(ctx, params)
		if err != nil {
			return "", fmt.Errorf("llm: openai chat completion: %w", err)
		}
		if len(resp.Choices) == 0 {
			return "", errors.New("llm: openai returned no choices")
		}
		return resp.Choices[0].Message.Content, nil
	})
}
