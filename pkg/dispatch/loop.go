package dispatch

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/parthardas/helpdesk/internal/observability"
	"github.com/parthardas/helpdesk/pkg/conversation"
	"github.com/parthardas/helpdesk/pkg/decision"
	"github.com/parthardas/helpdesk/pkg/handler"
)

// Turn outcomes reported in Result and metrics.
const (
	OutcomeCompleted      = "completed"
	OutcomeEmergency      = "emergency"
	OutcomeBudgetExceeded = "budget_exceeded"
	OutcomeHandlerError   = "handler_error"
	OutcomeNoop           = "noop"
)

// Defaults applied when Config leaves them zero.
const (
	DefaultMaxSteps    = 5
	DefaultTurnTimeout = 60 * time.Second

	defaultBudgetResponse  = "I couldn't resolve this, please rephrase your request."
	defaultApologyResponse = "I'm sorry, something went wrong while handling your request. Please try again."
)

// Config assembles a dispatch loop. Registry, Decider and Domain are
// required; everything else has defaults.
type Config struct {
	Registry *handler.Registry
	Decider  decision.Decider
	Domain   string

	// MaxSteps bounds dispatch iterations per turn.
	MaxSteps int

	// TurnTimeout bounds the whole turn including external calls.
	TurnTimeout time.Duration

	// Emergency, when set, is checked against the raw user input before
	// any decision strategy runs. A match short-circuits the turn with
	// EmergencyResponse.
	Emergency         *decision.Keyword
	EmergencyResponse string

	BudgetResponse  string
	ApologyResponse string

	Logger zerolog.Logger
}

// Result summarizes a completed turn.
type Result struct {
	// AgentUsed is the last handler invoked, empty when none ran.
	AgentUsed string

	// Trail is the sequence of routing labels chosen during the turn.
	Trail []string

	// Outcome is one of the Outcome constants.
	Outcome string

	// Steps is the number of dispatch iterations consumed.
	Steps int
}

// Loop is the bounded dispatch state machine driving one conversation turn
// at a time. It is stateless across turns and safe to share between
// sessions; the per-session serialization lives in conversation.Store.
type Loop struct {
	cfg Config
}

// New validates the configuration and creates a dispatch loop.
func New(cfg Config) (*Loop, error) {
	if cfg.Registry == nil {
		return nil, fmt.Errorf("handler registry is required")
	}
	if cfg.Decider == nil {
		return nil, fmt.Errorf("decider is required")
	}
	if cfg.Domain == "" {
		return nil, fmt.Errorf("domain is required")
	}
	if cfg.MaxSteps <= 0 {
		cfg.MaxSteps = DefaultMaxSteps
	}
	if cfg.TurnTimeout <= 0 {
		cfg.TurnTimeout = DefaultTurnTimeout
	}
	if cfg.BudgetResponse == "" {
		cfg.BudgetResponse = defaultBudgetResponse
	}
	if cfg.ApologyResponse == "" {
		cfg.ApologyResponse = defaultApologyResponse
	}
	if cfg.Emergency != nil && cfg.EmergencyResponse == "" {
		return nil, fmt.Errorf("emergency rules require an emergency response")
	}

	observability.EnsureRegistered()

	return &Loop{cfg: cfg}, nil
}

// Run drives the record to a terminal response. The returned error is
// non-nil only for ErrTurnTimeout; every other failure mode terminates the
// turn with a user-safe response and a nil error.
func (l *Loop) Run(ctx context.Context, state *conversation.State) (Result, error) {
	if state.Done {
		return Result{Outcome: OutcomeNoop}, nil
	}

	ctx, cancel := context.WithTimeout(ctx, l.cfg.TurnTimeout)
	defer cancel()

	started := time.Now()
	result, err := l.run(ctx, state)
	if err != nil {
		return result, err
	}

	if state.Response != "" {
		state.Append("assistant", state.Response)
	}

	observability.RecordTurn(l.cfg.Domain, result.Outcome, time.Since(started), result.Steps)

	l.cfg.Logger.Info().
		Str("session_id", state.SessionID).
		Str("domain", l.cfg.Domain).
		Str("outcome", result.Outcome).
		Str("agent", result.AgentUsed).
		Int("steps", result.Steps).
		Msg("Turn completed")

	return result, nil
}

func (l *Loop) run(ctx context.Context, state *conversation.State) (Result, error) {
	var result Result

	// Safety-labeled routes bypass both decision strategies and handlers.
	if l.cfg.Emergency != nil {
		if label, ok := l.cfg.Emergency.Match(state.UserInput); ok {
			state.RouteTo = label
			state.Response = l.cfg.EmergencyResponse
			state.Done = true
			result.Outcome = OutcomeEmergency
			result.Trail = append(result.Trail, label)
			return result, nil
		}
	}

	// reroute carries a handler-chosen next label past the decider.
	reroute := ""

	for !state.Done {
		if err := ctx.Err(); err != nil {
			// done stays unset so the caller can retry the turn
			return result, ErrTurnTimeout
		}

		var label string
		if reroute != "" {
			label = reroute
			reroute = ""
		} else {
			var err error
			label, err = l.cfg.Decider.Decide(ctx, state)
			if err != nil {
				// Only possible when no fallback strategy is configured.
				l.failTurn(state, &result, fmt.Errorf("decision failed: %w", err))
				return result, nil
			}
			observability.RecordDecision(l.cfg.Decider.Strategy(), label)
		}

		if label != conversation.RouteEnd && !l.cfg.Registry.Exists(label) {
			l.failTurn(state, &result, fmt.Errorf("decider produced unregistered label %q", label))
			return result, nil
		}

		state.RouteTo = label
		result.Trail = append(result.Trail, label)

		if label == conversation.RouteEnd {
			state.Done = true
			result.Outcome = OutcomeCompleted
			return result, nil
		}

		state.StepCount++
		result.Steps = state.StepCount
		if state.StepCount > l.cfg.MaxSteps {
			state.Response = l.cfg.BudgetResponse
			state.Done = true
			result.Outcome = OutcomeBudgetExceeded
			observability.RecordBudgetExceeded(l.cfg.Domain)
			l.cfg.Logger.Warn().
				Str("session_id", state.SessionID).
				Int("max_steps", l.cfg.MaxSteps).
				Msg("Step budget exceeded")
			return result, nil
		}

		h, err := l.cfg.Registry.Get(label)
		if err != nil {
			l.failTurn(state, &result, err)
			return result, nil
		}

		handlerStart := time.Now()
		update, err := h.Handle(ctx, state)
		observability.RecordHandler(l.cfg.Domain, h.Name(), time.Since(handlerStart), err)
		if err != nil {
			if ctx.Err() != nil {
				return result, ErrTurnTimeout
			}
			l.failTurn(state, &result, &HandlerError{Handler: h.Name(), Err: err})
			return result, nil
		}

		result.AgentUsed = h.Name()
		state.Merge(update)

		if h.Terminal() || update.End {
			state.Done = true
			result.Outcome = OutcomeCompleted
		} else if update.RouteTo != "" {
			reroute = update.RouteTo
		}
	}

	return result, nil
}

// failTurn terminates the turn with the apology response. Contained
// failure: logged, counted, never raised to the user.
func (l *Loop) failTurn(state *conversation.State, result *Result, err error) {
	l.cfg.Logger.Error().
		Err(err).
		Str("session_id", state.SessionID).
		Str("domain", l.cfg.Domain).
		Msg("Turn failed")

	state.Response = l.cfg.ApologyResponse
	state.Done = true
	result.Outcome = OutcomeHandlerError
}
