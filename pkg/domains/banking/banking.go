// Package banking is the banking helpdesk vertical: account balances,
// bill payments and policy guidelines over mocked SQLite data.
package banking

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/parthardas/helpdesk/pkg/conversation"
	"github.com/parthardas/helpdesk/pkg/decision"
	"github.com/parthardas/helpdesk/pkg/dispatch"
	"github.com/parthardas/helpdesk/pkg/domains"
	"github.com/parthardas/helpdesk/pkg/handler"
	"github.com/parthardas/helpdesk/pkg/llm"
)

// Name is the routing domain identifier.
const Name = "banking"

// DefaultUserID stands in when a session never identified its user.
const DefaultUserID = "user123"

// Config assembles the banking bundle.
type Config struct {
	// DSN for the SQLite store, ":memory:" when empty.
	DSN string

	// Provider enables LLM-delegated routing and small-talk replies.
	// When nil the domain runs keyword-only.
	Provider llm.Provider

	MaxSteps int
	Logger   zerolog.Logger
}

// Rules is the priority-ordered keyword routing table.
func Rules() []decision.Rule {
	return []decision.Rule{
		{Keywords: []string{"balance", "account"}, Label: "accounts"},
		{Keywords: []string{"pay", "bill", "biller"}, Label: "billing"},
		{Keywords: []string{"policy", "guideline", "document"}, Label: "guidelines"},
	}
}

// New assembles the banking domain bundle.
func New(cfg Config) (*domains.Bundle, error) {
	dsn := cfg.DSN
	if dsn == "" {
		dsn = ":memory:"
	}
	store, err := OpenStore(dsn)
	if err != nil {
		return nil, err
	}

	reg := handler.NewRegistry()
	for _, h := range []handler.Handler{
		accountsHandler(store),
		billingHandler(),
		guidelinesHandler(store),
		conversationHandler(cfg.Provider),
	} {
		if err := reg.Register(h); err != nil {
			store.Close()
			return nil, err
		}
	}

	decider, keyword, err := domains.NewDecider(cfg.Provider, reg, Rules(), "conversation", cfg.Logger)
	if err != nil {
		store.Close()
		return nil, err
	}

	loop, err := dispatch.New(dispatch.Config{
		Registry: reg,
		Decider:  decider,
		Domain:   Name,
		MaxSteps: cfg.MaxSteps,
		Logger:   cfg.Logger,
	})
	if err != nil {
		store.Close()
		return nil, err
	}

	return &domains.Bundle{
		Name:     Name,
		Registry: reg,
		Loop:     loop,
		Keyword:  keyword,
		Close:    store.Close,
	}, nil
}

// userID resolves the acting user from session context.
func userID(state *conversation.State) string {
	if v, ok := state.Context["user_id"].(string); ok && v != "" {
		return v
	}
	return DefaultUserID
}

func accountsHandler(store *Store) handler.Handler {
	return handler.Func("accounts", "checking account balances", true,
		func(ctx context.Context, state *conversation.State) (conversation.Update, error) {
			balances, err := store.Balances(ctx, userID(state))
			if err != nil {
				return conversation.Update{}, err
			}
			if len(balances) == 0 {
				return conversation.Update{
					Response: "No account found for the given user ID.",
				}, nil
			}

			types := make([]string, 0, len(balances))
			for t := range balances {
				types = append(types, t)
			}
			sort.Strings(types)

			parts := make([]string, 0, len(types))
			for _, t := range types {
				parts = append(parts, fmt.Sprintf("%s: $%.2f", t, balances[t]))
			}
			return conversation.Update{
				Response: "Balances - " + strings.Join(parts, ", "),
			}, nil
		})
}

var (
	amountPattern = regexp.MustCompile(`\$?(\d+(?:\.\d{1,2})?)`)
	billerPattern = regexp.MustCompile(`(?i)(?:to|biller)\s+([A-Za-z][A-Za-z ]*?)(?:\s+(?:for|of|\$)|$|[.,])`)
)

func billingHandler() handler.Handler {
	return handler.Func("billing", "adding billers or making payments", true,
		func(_ context.Context, state *conversation.State) (conversation.Update, error) {
			amount, amountOK := parseAmount(state.UserInput)
			biller := parseBiller(state.UserInput)

			if !amountOK || biller == "" {
				return conversation.Update{
					Response: "To pay a bill I need the biller name and the amount, for example: pay $100.50 to Electric Company.",
				}, nil
			}

			return conversation.Update{
				Response: fmt.Sprintf("Biller '%s' added and $%.2f paid from user %s's account.",
					biller, amount, userID(state)),
				Context: map[string]any{
					"last_biller": biller,
					"last_amount": amount,
				},
			}, nil
		})
}

func parseAmount(input string) (float64, bool) {
	m := amountPattern.FindStringSubmatch(input)
	if m == nil {
		return 0, false
	}
	v, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func parseBiller(input string) string {
	m := billerPattern.FindStringSubmatch(input)
	if m == nil {
		return ""
	}
	return strings.TrimSpace(m[1])
}

func guidelinesHandler(store *Store) handler.Handler {
	return handler.Func("guidelines", "policy or document questions", true,
		func(ctx context.Context, state *conversation.State) (conversation.Update, error) {
			content, err := store.Guideline(ctx, state.UserInput)
			if err != nil {
				return conversation.Update{}, err
			}
			if content == "" {
				content = "No information available on this topic."
			}
			return conversation.Update{Response: content}, nil
		})
}

const conversationPrompt = "You are a friendly banking helpdesk assistant. " +
	"Answer small talk and general questions briefly. For balances, payments " +
	"or policy questions, tell the user you can help with those directly."

func conversationHandler(provider llm.Provider) handler.Handler {
	return handler.Func("conversation", "small talk and anything else", true,
		func(ctx context.Context, state *conversation.State) (conversation.Update, error) {
			if provider == nil {
				return conversation.Update{
					Response: "I can help with account balances, bill payments and bank policy questions. What do you need?",
				}, nil
			}

			reply, err := provider.Generate(ctx, llm.Request{
				SystemPrompt: conversationPrompt,
				Messages:     promptMessages(state),
			})
			if err != nil {
				return conversation.Update{}, err
			}
			return conversation.Update{Response: reply}, nil
		})
}

// promptMessages maps recent transcript entries onto provider messages.
func promptMessages(state *conversation.State) []llm.Message {
	const window = 10
	history := state.History
	if len(history) > window {
		history = history[len(history)-window:]
	}
	msgs := make([]llm.Message, 0, len(history))
	for _, m := range history {
		msgs = append(msgs, llm.Message{Role: m.Role, Content: m.Content})
	}
	return msgs
}
