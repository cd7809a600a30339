package decision

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/parthardas/helpdesk/pkg/conversation"
)

// Chain tries a primary decider and falls back to a secondary one when the
// primary fails for any reason. The canonical configuration is delegate
// first, keyword fallback: malformed or invalid delegate output is never
// fatal to the turn.
type Chain struct {
	primary  Decider
	fallback Decider
	logger   zerolog.Logger

	// onFallback, when set, observes each recovered failure (metrics hook).
	onFallback func(strategy string)
}

// NewChain composes a primary decider with a fallback.
func NewChain(primary, fallback Decider, logger zerolog.Logger) *Chain {
	return &Chain{
		primary:  primary,
		fallback: fallback,
		logger:   logger,
	}
}

// OnFallback registers an observer called with the primary strategy name
// whenever the fallback path is taken.
func (c *Chain) OnFallback(fn func(strategy string)) {
	c.onFallback = fn
}

// Strategy names the decision strategy.
func (c *Chain) Strategy() string {
	return c.primary.Strategy() + "+" + c.fallback.Strategy()
}

// Decide runs the primary decider and recovers any failure through the
// fallback decider.
func (c *Chain) Decide(ctx context.Context, state *conversation.State) (string, error) {
	label, err := c.primary.Decide(ctx, state)
	if err == nil {
		return label, nil
	}

	c.logger.Warn().
		Err(err).
		Str("session_id", state.SessionID).
		Str("strategy", c.primary.Strategy()).
		Msg("Primary decision failed, falling back")

	if c.onFallback != nil {
		c.onFallback(c.primary.Strategy())
	}

	return c.fallback.Decide(ctx, state)
}
