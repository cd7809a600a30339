package handler

import (
	"context"

	"github.com/parthardas/helpdesk/pkg/conversation"
)

// Handler performs one unit of domain work against a conversation record.
type Handler interface {
	// Name is the routing label the decision function produces.
	Name() string

	// Description is a human-readable capability summary, embedded in the
	// delegate decision prompt.
	Description() string

	// Terminal reports whether a successful invocation always completes
	// the turn.
	Terminal() bool

	// Handle computes a partial update for the record. It must not mutate
	// the record directly; the dispatch loop owns the merge.
	Handle(ctx context.Context, state *conversation.State) (conversation.Update, error)
}

// HandleFunc adapts a function to the Handler interface.
type HandleFunc func(ctx context.Context, state *conversation.State) (conversation.Update, error)

type funcHandler struct {
	name        string
	description string
	terminal    bool
	fn          HandleFunc
}

// Func wraps a function as a Handler.
func Func(name, description string, terminal bool, fn HandleFunc) Handler {
	return &funcHandler{
		name:        name,
		description: description,
		terminal:    terminal,
		fn:          fn,
	}
}

func (h *funcHandler) Name() string        { return h.name }
func (h *funcHandler) Description() string { return h.description }
func (h *funcHandler) Terminal() bool      { return h.terminal }

func (h *funcHandler) Handle(ctx context.Context, state *conversation.State) (conversation.Update, error) {
	return h.fn(ctx, state)
}
