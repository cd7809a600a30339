// Package healthcare is the medical triage vertical. Emergency keywords
// short-circuit every turn to a fixed 911 message before any routing
// decision runs; everything else flows through scheduling, triage and
// general-information handlers.
package healthcare

import (
	"context"
	"fmt"
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
const Name = "healthcare"

// EmergencyResponse is the fixed safety message. It is never produced by a
// model and bypasses all handlers.
const EmergencyResponse = "This sounds like a medical emergency. Please call 911 immediately. " +
	"Do not wait for an online response."

// Disclaimer trails every non-emergency informational answer.
const Disclaimer = "This is a triage assistant for guidance only. In case of emergency, " +
	"call 911 immediately. This tool does not replace professional medical advice."

// EmergencyKeywords trigger the short-circuit.
var EmergencyKeywords = []string{
	"chest pain",
	"difficulty breathing",
	"stroke",
	"unconscious",
	"severe bleeding",
}

// Config assembles the healthcare bundle.
type Config struct {
	// Provider backs the triage and info handlers. When nil those
	// handlers return fixed guidance text.
	Provider llm.Provider

	MaxSteps int
	Logger   zerolog.Logger
}

// Rules is the priority-ordered keyword routing table.
func Rules() []decision.Rule {
	return []decision.Rule{
		{Keywords: []string{"appointment", "schedule", "book", "doctor"}, Label: "schedule"},
		{Keywords: []string{"symptom", "pain", "fever", "sick", "hurt"}, Label: "triage"},
		{Keywords: []string{"medication", "condition", "treatment", "what is"}, Label: "info"},
	}
}

// EmergencyRules builds the short-circuit keyword matcher.
func EmergencyRules() *decision.Keyword {
	return decision.NewKeyword([]decision.Rule{
		{Keywords: EmergencyKeywords, Label: "emergency"},
	}, "")
}

// New assembles the healthcare domain bundle.
func New(cfg Config) (*domains.Bundle, error) {
	reg := handler.NewRegistry()
	for _, h := range []handler.Handler{
		triageHandler(cfg.Provider),
		scheduleHandler(),
		infoHandler(cfg.Provider),
		conversationHandler(),
	} {
		if err := reg.Register(h); err != nil {
			return nil, err
		}
	}

	decider, keyword, err := domains.NewDecider(cfg.Provider, reg, Rules(), "conversation", cfg.Logger)
	if err != nil {
		return nil, err
	}

	loop, err := dispatch.New(dispatch.Config{
		Registry:          reg,
		Decider:           decider,
		Domain:            Name,
		MaxSteps:          cfg.MaxSteps,
		Emergency:         EmergencyRules(),
		EmergencyResponse: EmergencyResponse,
		Logger:            cfg.Logger,
	})
	if err != nil {
		return nil, err
	}

	return &domains.Bundle{Name: Name, Registry: reg, Loop: loop, Keyword: keyword}, nil
}

const triagePrompt = "You are a cautious medical triage assistant. Assess the " +
	"described symptoms, suggest a sensible next step (self-care, see a doctor " +
	"soon, or urgent care), and keep the answer short. Never diagnose. Always " +
	"remind the user you are not a medical professional."

func triageHandler(provider llm.Provider) handler.Handler {
	return handler.Func("triage", "assess symptoms and suggest a next step", true,
		func(ctx context.Context, state *conversation.State) (conversation.Update, error) {
			if provider == nil {
				return conversation.Update{
					Response: "Based on what you've described, consider seeing a doctor if symptoms persist or worsen. " + Disclaimer,
				}, nil
			}

			reply, err := provider.Generate(ctx, llm.Request{
				SystemPrompt: triagePrompt,
				Messages:     historyWindow(state),
			})
			if err != nil {
				return conversation.Update{}, err
			}
			return conversation.Update{Response: reply + "\n\n" + Disclaimer}, nil
		})
}

func scheduleHandler() handler.Handler {
	return handler.Func("schedule", "book appointments with practice or network doctors", true,
		func(_ context.Context, state *conversation.State) (conversation.Update, error) {
			input := strings.ToLower(state.UserInput)

			// Network only on explicit request, practice otherwise.
			network := strings.Contains(input, "network") ||
				strings.Contains(input, "affiliated") ||
				strings.Contains(input, "external")

			kind := "practice"
			detail := "one of our practice doctors"
			if network {
				kind = "network"
				detail = "an affiliated network provider"
			}

			return conversation.Update{
				Response: fmt.Sprintf("I've requested an appointment with %s. You'll receive a confirmation with the exact time shortly.", detail),
				Context:  map[string]any{"appointment_kind": kind},
			}, nil
		})
}

const infoPrompt = "You are a healthcare information assistant. Answer general " +
	"questions about conditions, medications and treatments factually and " +
	"briefly. Never diagnose or prescribe."

func infoHandler(provider llm.Provider) handler.Handler {
	return handler.Func("info", "general questions about conditions, medications and treatments", true,
		func(ctx context.Context, state *conversation.State) (conversation.Update, error) {
			if provider == nil {
				return conversation.Update{
					Response: "I can share general health information, but for anything specific please consult your doctor. " + Disclaimer,
				}, nil
			}

			reply, err := provider.Generate(ctx, llm.Request{
				SystemPrompt: infoPrompt,
				Messages:     historyWindow(state),
			})
			if err != nil {
				return conversation.Update{}, err
			}
			return conversation.Update{Response: reply + "\n\n" + Disclaimer}, nil
		})
}

func conversationHandler() handler.Handler {
	return handler.Func("conversation", "small talk and anything else", true,
		func(_ context.Context, _ *conversation.State) (conversation.Update, error) {
			return conversation.Update{
				Response: "I can help with symptoms, appointments and general health questions. What do you need?",
			}, nil
		})
}

func historyWindow(state *conversation.State) []llm.Message {
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
