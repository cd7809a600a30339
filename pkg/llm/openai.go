package llm

import (
	"context"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// OpenAIProvider implements Provider for OpenAI chat completions.
type OpenAIProvider struct {
	client   openai.Client
	settings Settings
}

// NewOpenAIProvider creates a new OpenAI provider.
func NewOpenAIProvider(s Settings) *OpenAIProvider {
	return &OpenAIProvider{
		client:   openai.NewClient(option.WithAPIKey(s.APIKey)),
		settings: s,
	}
}

// Name returns the provider name.
func (p *OpenAIProvider) Name() string {
	return "openai"
}

// Generate makes an API call to OpenAI.
func (p *OpenAIProvider) Generate(ctx context.Context, req Request) (string, error) {
	messages := []openai.ChatCompletionMessageParamUnion{}

	if req.SystemPrompt != "" {
		messages = append(messages, openai.SystemMessage(req.SystemPrompt))
	}

	for _, msg := range req.Messages {
		switch msg.Role {
		case RoleSystem:
			// Handled above; duplicates in the transcript are skipped.
		case RoleUser:
			messages = append(messages, openai.UserMessage(msg.Content))
		case RoleAssistant:
			messages = append(messages, openai.AssistantMessage(msg.Content))
		}
	}

	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(p.settings.Model),
		Messages: messages,
	}
	if p.settings.MaxTokens > 0 {
		params.MaxTokens = openai.Int(int64(p.settings.MaxTokens))
	}
	if p.settings.Temperature > 0 {
		params.Temperature = openai.Float(p.settings.Temperature)
	}

	response, err := p.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", wrapProviderError(p.Name(), err)
	}

	if len(response.Choices) == 0 {
		return "", wrapProviderError(p.Name(), fmt.Errorf("no response choices returned"))
	}

	return response.Choices[0].Message.Content, nil
}
