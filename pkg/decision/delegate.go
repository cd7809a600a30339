package decision

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"github.com/xeipuuv/gojsonschema"

	"github.com/parthardas/helpdesk/pkg/conversation"
	"github.com/parthardas/helpdesk/pkg/llm"
)

// historyWindow bounds how much transcript the delegate prompt carries.
const historyWindow = 10

// Delegate is the external decision strategy: it asks a text-generation
// provider to pick the next label and validates the answer against the
// vocabulary before trusting it.
type Delegate struct {
	provider llm.Provider
	vocab    Vocabulary
	schema   *gojsonschema.Schema
	logger   zerolog.Logger
}

// decisionPayload is the JSON shape the delegate prompt requests.
type decisionPayload struct {
	AgentName string `json:"agent_name"`
	Query     string `json:"query,omitempty"`
}

// NewDelegate creates a delegate decider for the given vocabulary.
func NewDelegate(provider llm.Provider, vocab Vocabulary, logger zerolog.Logger) (*Delegate, error) {
	if provider == nil {
		return nil, fmt.Errorf("provider is required")
	}
	if len(vocab.Labels) == 0 {
		return nil, fmt.Errorf("vocabulary cannot be empty")
	}

	schema, err := compileDecisionSchema(vocab)
	if err != nil {
		return nil, fmt.Errorf("failed to compile decision schema: %w", err)
	}

	return &Delegate{
		provider: provider,
		vocab:    vocab,
		schema:   schema,
		logger:   logger,
	}, nil
}

// compileDecisionSchema builds a JSON schema whose agent_name enum is the
// closed vocabulary plus the terminal sentinel.
func compileDecisionSchema(vocab Vocabulary) (*gojsonschema.Schema, error) {
	enum := append([]string{}, vocab.Labels...)
	enum = append(enum, conversation.RouteEnd)

	raw := map[string]any{
		"type":                 "object",
		"required":             []string{"agent_name"},
		"additionalProperties": true,
		"properties": map[string]any{
			"agent_name": map[string]any{
				"type": "string",
				"enum": enum,
			},
			"query": map[string]any{
				"type": "string",
			},
		},
	}

	b, err := json.Marshal(raw)
	if err != nil {
		return nil, err
	}

	return gojsonschema.NewSchema(gojsonschema.NewBytesLoader(b))
}

// Strategy names the decision strategy.
func (d *Delegate) Strategy() string {
	return "delegate"
}

// systemPrompt embeds the fixed label vocabulary and capability lines.
func (d *Delegate) systemPrompt() string {
	var b strings.Builder
	b.WriteString("You are a routing assistant. Based on the user's message, select exactly one agent:\n")
	for _, line := range d.vocab.Descriptions {
		b.WriteString("- ")
		b.WriteString(line)
		b.WriteString("\n")
	}
	b.WriteString("- ")
	b.WriteString(conversation.RouteEnd)
	b.WriteString(": the conversation is complete and no agent is needed\n")
	b.WriteString("\nRespond with valid JSON and nothing else, in this exact format:\n")
	b.WriteString(`{"agent_name": "<one of the labels above>"}`)
	b.WriteString("\nExample: ")

	example := conversation.RouteEnd
	if len(d.vocab.Labels) > 0 {
		example = d.vocab.Labels[0]
	}
	fmt.Fprintf(&b, `{"agent_name": %q}`, example)

	return b.String()
}

// Decide asks the provider for a label and strictly validates the reply.
// Any unusable output is a *ParseError; provider failures pass through as
// *llm.ProviderError. Callers recover both via the fallback chain.
func (d *Delegate) Decide(ctx context.Context, state *conversation.State) (string, error) {
	messages := make([]llm.Message, 0, historyWindow+1)
	history := state.History
	if len(history) > historyWindow {
		history = history[len(history)-historyWindow:]
	}
	for _, msg := range history {
		if msg.Role == "user" || msg.Role == "assistant" {
			messages = append(messages, llm.Message{Role: msg.Role, Content: msg.Content})
		}
	}
	if len(messages) == 0 || messages[len(messages)-1].Content != state.UserInput {
		messages = append(messages, llm.Message{Role: llm.RoleUser, Content: state.UserInput})
	}

	output, err := d.provider.Generate(ctx, llm.Request{
		SystemPrompt: d.systemPrompt(),
		Messages:     messages,
	})
	if err != nil {
		return "", err
	}

	label, err := d.parse(output)
	if err != nil {
		d.logger.Debug().Str("output", truncate(output, 200)).Err(err).Msg("Delegate decision unusable")
		return "", err
	}

	return label, nil
}

// parse extracts and validates the decision JSON from raw model output.
func (d *Delegate) parse(output string) (string, error) {
	raw := extractJSON(output)
	if raw == "" {
		return "", &ParseError{Output: output, Reason: "no JSON object in output"}
	}

	result, err := d.schema.Validate(gojsonschema.NewStringLoader(raw))
	if err != nil {
		return "", &ParseError{Output: output, Reason: fmt.Sprintf("invalid JSON: %v", err)}
	}
	if !result.Valid() {
		reasons := make([]string, 0, len(result.Errors()))
		for _, desc := range result.Errors() {
			reasons = append(reasons, desc.String())
		}
		return "", &ParseError{Output: output, Reason: strings.Join(reasons, "; ")}
	}

	var payload decisionPayload
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return "", &ParseError{Output: output, Reason: fmt.Sprintf("unmarshal: %v", err)}
	}

	return payload.AgentName, nil
}

// extractJSON pulls the first JSON object out of model output, tolerating
// fenced code blocks and surrounding prose.
func extractJSON(output string) string {
	s := strings.TrimSpace(output)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")

	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end <= start {
		return ""
	}
	return s[start : end+1]
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
