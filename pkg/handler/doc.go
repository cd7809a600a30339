// Package handler defines the agent handler contract and the registry the
// dispatch loop resolves routing labels against.
//
// Invariants:
// - Handler names are unique within a registry and double as routing labels.
// - Handlers are idempotent for identical input; a mis-routed retry must be safe.
// - Handlers return partial updates; they never flip the record's done flag themselves.
//
// Usage:
//
//	reg := handler.NewRegistry()
//	_ = reg.Register(handler.Func("accounts", "Looks up account balances", false, lookupBalances))
package handler
