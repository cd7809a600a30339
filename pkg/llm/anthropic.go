package llm

import (
	"context"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// AnthropicProvider implements Provider for Anthropic Claude.
type AnthropicProvider struct {
	client   anthropic.Client
	settings Settings
}

// NewAnthropicProvider creates a new Anthropic provider.
func NewAnthropicProvider(s Settings) *AnthropicProvider {
	return &AnthropicProvider{
		client:   anthropic.NewClient(option.WithAPIKey(s.APIKey)),
		settings: s,
	}
}

// Name returns the provider name.
func (p *AnthropicProvider) Name() string {
	return "anthropic"
}

// Generate makes an API call to Anthropic Claude.
func (p *AnthropicProvider) Generate(ctx context.Context, req Request) (string, error) {
	messages := []anthropic.MessageParam{}

	for _, msg := range req.Messages {
		switch msg.Role {
		case RoleUser:
			messages = append(messages, anthropic.NewUserMessage(
				anthropic.NewTextBlock(msg.Content),
			))
		case RoleAssistant:
			messages = append(messages, anthropic.MessageParam{
				Role: anthropic.MessageParamRoleAssistant,
				Content: []anthropic.ContentBlockParamUnion{
					anthropic.NewTextBlock(msg.Content),
				},
			})
		}
	}

	maxTokens := p.settings.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 1024
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(p.settings.Model),
		Messages:  messages,
		MaxTokens: int64(maxTokens),
	}
	if req.SystemPrompt != "" {
		params.System = []anthropic.TextBlockParam{
			{Text: req.SystemPrompt},
		}
	}
	if p.settings.Temperature > 0 {
		params.Temperature = anthropic.Float(p.settings.Temperature)
	}

	response, err := p.client.Messages.New(ctx, params)
	if err != nil {
		return "", wrapProviderError(p.Name(), err)
	}

	content := ""
	for _, block := range response.Content {
		if b, ok := block.AsAny().(anthropic.TextBlock); ok {
			content += b.Text
		}
	}

	if content == "" {
		return "", wrapProviderError(p.Name(), fmt.Errorf("empty completion"))
	}

	return content, nil
}
