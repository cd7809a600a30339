// Package dispatch drives a conversation turn from user input to a terminal
// response through a bounded decide/invoke/merge loop.
//
// Invariants:
// - Every turn terminates within the configured step budget.
// - Only the loop flips the record's done flag; handlers signal completion
//   through their update.
// - The user always receives a response string; handler failures surface as
//   an apology, never as an error to the end user.
// - A record with done=true passes through unchanged.
//
// Usage:
//
//	loop, _ := dispatch.New(dispatch.Config{Registry: reg, Decider: dec, Domain: "banking"})
//	result, _ := loop.Run(ctx, state)
//	_ = result.AgentUsed
package dispatch
