// Package decision maps the current conversation state to the next routing
// label. Two interchangeable strategies implement the same contract:
// priority-ordered keyword matching and an LLM delegate whose JSON output
// is validated against the closed label vocabulary.
//
// Invariants:
// - A decider only ever returns labels from its configured vocabulary or END.
// - Delegate output that fails parsing or validation is a *ParseError, never
//   a label; the fallback chain recovers it with keyword matching.
// - Keyword matching makes no external calls.
//
// Usage:
//
//	kw := decision.NewKeyword(rules, "conversation")
//	del := decision.NewDelegate(provider, vocab)
//	dec := decision.NewChain(del, kw)
//	label, _ := dec.Decide(ctx, state)
package decision
