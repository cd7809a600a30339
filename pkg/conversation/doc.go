// Package conversation holds the per-session state record threaded through
// the dispatch loop, plus the stores that keep it between turns.
//
// Invariants:
// - History is append-only; entries are never mutated after being written.
// - A state record is owned by exactly one turn at a time; Store.Acquire
//   serializes turns for the same session.
// - Session keys are validated and path-safe before touching disk.
//
// Usage:
//
//	store := conversation.NewStore()
//	state, release := store.Acquire("sess_abc", "banking")
//	defer release()
//	state.BeginTurn("What is my balance?")
package conversation
