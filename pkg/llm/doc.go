// Package llm wraps hosted text-generation APIs behind a single Provider interface.
//
// Invariants:
// - Providers are stateless and safe to share across conversations.
// - API failures surface as *ProviderError with a retryable classification.
// - Credentials are injected at construction time, never read from the environment here.
//
// Usage:
//
//	p, _ := llm.NewProvider(llm.Settings{Provider: "openai", Model: "gpt-4o-mini", APIKey: key})
//	reply, _ := p.Generate(ctx, llm.Request{
//		SystemPrompt: "You are a helpful assistant.",
//		Messages:     []llm.Message{{Role: llm.RoleUser, Content: "hello"}},
//	})
//	_ = reply
package llm
